package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/dustin/go-humanize"

	mbp "go.onion.dev/core/mainboilerplate"
	"go.onion.dev/core/onion"
	"go.onion.dev/core/onion/format"
)

type cmdInfo struct {
	File string `long:"file" short:"f" required:"true" description:"Path of the canonical file"`
}

func init() {
	_ = mustAddCmd(parser.Command, "info", "Print onion file header metadata", `
Print the decoded header of an onion versioned file: its flags, page size,
canonical file extent, and the location of its whole-history.
`, &cmdInfo{})
}

func (cmd *cmdInfo) Execute([]string) error {
	startup()

	var hdr, history, _, err = onion.Revisions(openStore(), cmd.File)
	mbp.Must(err, "failed to read onion file", "file", cmd.File)

	var names []string
	for _, f := range []struct {
		flag format.Flags
		name string
	}{
		{format.FlagWriteLock, "write-lock"},
		{format.FlagDivergentHistory, "divergent-history"},
		{format.FlagPageAlignment, "page-alignment"},
	} {
		if hdr.Flags&f.flag != 0 {
			names = append(names, f.name)
		}
	}

	fmt.Fprintf(os.Stdout, "Flags:              0x%06x [%s]\n", uint32(hdr.Flags), strings.Join(names, ", "))
	fmt.Fprintf(os.Stdout, "Page size:          %s\n", humanize.IBytes(uint64(hdr.PageSize)))
	fmt.Fprintf(os.Stdout, "Origin EOF:         %s\n", humanize.IBytes(hdr.OriginEOF))
	fmt.Fprintf(os.Stdout, "Whole-history addr: %d\n", hdr.WholeHistoryAddr)
	fmt.Fprintf(os.Stdout, "Whole-history size: %d\n", hdr.WholeHistorySize)
	fmt.Fprintf(os.Stdout, "Revisions:          %d\n", len(history.Records))
	return nil
}
