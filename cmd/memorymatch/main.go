package main

import (
	"errors"
	"io/fs"
	"os"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
)

// version is set by ldflags during build
var version = "dev"

type CLI struct {
	Globals

	Version kong.VersionFlag `short:"v" help:"Show version"`
	Play    PlayCmd          `cmd:"" default:"withargs" help:"Play in the terminal"`
	Serve   ServeCmd         `cmd:"" help:"Serve the browser client"`
	Scores  ScoresCmd        `cmd:"" help:"Show or clear the high-score table"`
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Warn("Failed to load .env", "error", err)
	}

	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("memorymatch"),
		kong.Description("A memory matching card game for the terminal and the browser"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version":        version,
			"default_config": defaultConfigPath(),
		},
		kong.Bind(&cli.Globals),
	)
	err := ctx.Run()
	ctx.FatalIfErrorf(err)
}

func defaultConfigPath() string {
	if p := os.Getenv("MEMORYMATCH_CONFIG"); p != "" {
		return p
	}
	return "memorymatch.hcl"
}
