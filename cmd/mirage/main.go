package main

import (
	"log/slog"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/mirage/cmd/mirage/commands"
	ferrors "git.home.luguber.info/inful/mirage/internal/foundation/errors"
	"git.home.luguber.info/inful/mirage/internal/version"
)

func main() {
	cli := &commands.CLI{}
	parser := kong.Parse(cli,
		kong.Name("mirage"),
		kong.Description("Static site generator for Markdown blogs."),
		kong.UsageOnError(),
		kong.Vars{"version": version.String()},
	)

	err := parser.Run(&commands.Global{Logger: slog.Default()}, cli)
	ferrors.NewCLIErrorAdapter(cli.Verbose, slog.Default()).HandleError(err)
}
