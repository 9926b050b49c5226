package main

import (
	"encoding/json"
	"os"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"

	mbp "go.onion.dev/core/mainboilerplate"
	"go.onion.dev/core/onion"
	"go.onion.dev/core/onion/format"
)

type cmdHistoryList struct {
	File   string `long:"file" short:"f" required:"true" description:"Path of the canonical file"`
	Format string `long:"format" short:"o" choice:"table" choice:"json" default:"table" description:"Output format"`
}

func init() {
	_ = mustAddCmd(cmdHistory, "list", "List committed revisions", `
List the committed revisions of an onion versioned file, in commit order.

Use the --format flag to switch between a table of revision metadata and a
JSON dump of the decoded revision records, eg for scripting:

  onionctl history list -f data.bin --format json
`, &cmdHistoryList{})
}

func (cmd *cmdHistoryList) Execute([]string) error {
	startup()

	var _, _, records, err = onion.Revisions(openStore(), cmd.File)
	mbp.Must(err, "failed to read onion history", "file", cmd.File)

	switch cmd.Format {
	case "table":
		cmd.outputTable(records)
	case "json":
		mbp.Must(json.NewEncoder(os.Stdout).Encode(records), "failed to encode to json")
	}
	return nil
}

func (cmd *cmdHistoryList) outputTable(records []format.RevisionRecord) {
	var table = tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Revision", "Parent", "Created", "Pages", "Size", "User", "Comment"})

	for _, r := range records {
		var u = r.Username
		if u == "" {
			u = strconv.FormatUint(uint64(r.UserID), 10)
		}
		table.Append([]string{
			strconv.FormatUint(r.Revision, 10),
			strconv.FormatUint(r.Parent, 10),
			string(r.TimeOfCreation[:]),
			strconv.Itoa(len(r.Entries)),
			humanize.IBytes(r.LogiEOF),
			u,
			r.Comment,
		})
	}
	table.Render()
}
