package commands

import (
	"context"
	"fmt"
	"log/slog"

	"git.home.luguber.info/inful/mirage/internal/build"
	"git.home.luguber.info/inful/mirage/internal/config"
	"git.home.luguber.info/inful/mirage/internal/logfields"
)

// CompileCmd implements the 'compile' command.
type CompileCmd struct {
	Root   string `short:"r" help:"Project root (overrides config root)"`
	Output string `short:"o" help:"Output directory (default {root}/site)"`
}

func (c *CompileCmd) Run(_ *Global, root *CLI) error {
	cfg, err := loadConfig(root.Config)
	if err != nil {
		return err
	}
	if c.Root != "" {
		cfg.Root = c.Root
	}
	_, err = RunCompile(context.Background(), cfg, c.Output, "cli")
	return err
}

// RunCompile performs one full compile of cfg's project.
func RunCompile(ctx context.Context, cfg *config.Config, output, trigger string) (*build.Result, error) {
	journal := openJournal(cfg)
	defer closeJournal(journal)

	svc := build.NewService()
	if journal != nil {
		svc = svc.WithJournal(journal)
	}

	res, err := svc.Run(ctx, build.Request{Config: cfg, OutputDir: output, Trigger: trigger})
	if err != nil {
		return res, err
	}
	slog.Info("Compile finished",
		logfields.BuildID(res.BuildID),
		logfields.Path(res.OutputPath),
		slog.Int("posts", res.Counts.Posts),
		slog.Int("pages", res.Counts.Pages),
		slog.Int("listing_pages", res.Counts.ListingPages),
		slog.Int("skipped", res.Counts.Skipped),
		slog.Duration("duration", res.Duration))
	fmt.Printf("Compiled %d posts and %d pages into %s\n", res.Counts.Posts, res.Counts.Pages, res.OutputPath)
	return res, nil
}
