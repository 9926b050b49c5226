package backend

import (
	"github.com/spf13/afero"
)

// AferoStore is a Store over an afero.Fs. Tests typically use
// afero.NewMemMapFs; production use afero.NewOsFs via NewOsStore.
type AferoStore struct {
	Fs afero.Fs
}

// NewOsStore returns a Store over the host filesystem.
func NewOsStore() AferoStore { return AferoStore{Fs: afero.NewOsFs()} }

// Open the file at |path|.
func (s AferoStore) Open(path string, flag int) (File, error) {
	var f, err = s.Fs.OpenFile(path, flag, 0644)
	if err != nil {
		return nil, err
	}
	return aferoFile{File: f}, nil
}

// Remove the file at |path|.
func (s AferoStore) Remove(path string) error { return s.Fs.Remove(path) }

type aferoFile struct {
	afero.File
}

func (f aferoFile) Size() (int64, error) {
	var info, err = f.Stat()
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

var _ Store = AferoStore{}
