package main

import (
	"io"
	"os"
	"strconv"

	mbp "go.onion.dev/core/mainboilerplate"
	"go.onion.dev/core/onion"
)

type cmdRead struct {
	File     string `long:"file" short:"f" required:"true" description:"Path of the canonical file"`
	Revision string `long:"revision" short:"r" default:"latest" description:"Revision to read ('latest', or a revision number)"`
	Offset   int64  `long:"offset" default:"0" description:"Byte offset to begin reading from"`
	Length   int64  `long:"length" default:"-1" description:"Bytes to read; a negative length reads through the logical EOF"`
}

func init() {
	_ = mustAddCmd(parser.Command, "read", "Read a logical byte range at a revision", `
Read a byte range of the logical file as observed at a revision, writing it
to stdout. For example, to extract the full logical file as of revision 2:

  onionctl read -f data.bin -r 2 > data.rev2
`, &cmdRead{})
}

func (cmd *cmdRead) Execute([]string) error {
	startup()

	var revision = uint64(onion.RevisionLatest)
	if cmd.Revision != "latest" {
		var parsed, err = strconv.ParseUint(cmd.Revision, 10, 64)
		mbp.Must(err, "failed to parse revision", "revision", cmd.Revision)
		revision = parsed
	}

	var f, err = onion.Open(openStore(), cmd.File, onion.Options{
		Mode:     onion.ModeReadOnly,
		Revision: revision,
	})
	mbp.Must(err, "failed to open onion file", "file", cmd.File)
	defer f.Close()

	var length = cmd.Length
	if length < 0 || cmd.Offset+length > f.Size() {
		length = f.Size() - cmd.Offset
	}
	if length < 0 {
		length = 0
	}

	var _, copyErr = io.Copy(os.Stdout, io.NewSectionReader(f, cmd.Offset, length))
	mbp.Must(copyErr, "failed to copy logical bytes")
	return nil
}
