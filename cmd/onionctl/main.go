package main

import (
	"github.com/jessevdk/go-flags"

	mbp "go.onion.dev/core/mainboilerplate"
	"go.onion.dev/core/onion/backend"
)

const iniFilename = "onionctl.ini"

var (
	baseCfg = new(struct {
		Log mbp.LogConfig `group:"Logging" namespace:"log" env-namespace:"LOG"`
	})
	parser = flags.NewParser(baseCfg, flags.Default)

	// cmdHistory organizes nested history sub-commands. It must be
	// initialized here so it exists prior to any init() functions being
	// called to add nested sub-commands.
	cmdHistory = mustAddCmd(parser.Command, "history", "Inspect onion file revision history", "", &struct{}{})
)

func startup() {
	mbp.InitLog(baseCfg.Log)
}

func openStore() backend.AferoStore {
	return backend.NewOsStore()
}

func mustAddCmd(cmd *flags.Command, name, short, long string, cfg interface{}) *flags.Command {
	cmd, err := cmd.AddCommand(name, short, long, cfg)
	mbp.Must(err, "failed to add command")
	return cmd
}

func main() {
	parser.LongDescription = `onionctl is a tool for inspecting onion versioned files.

See --help pages of each sub-command for documentation and usage examples.
Optionally configure onionctl with a '` + iniFilename + `' file in the current working directory,
or with '~/.config/onion/` + iniFilename + `'.
`
	mbp.MustParseConfig(parser, iniFilename)
}
