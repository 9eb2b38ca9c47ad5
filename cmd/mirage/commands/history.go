package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"git.home.luguber.info/inful/mirage/internal/eventstore"
	ferrors "git.home.luguber.info/inful/mirage/internal/foundation/errors"
)

// HistoryCmd lists recent compiles recorded in the build journal.
type HistoryCmd struct {
	Since time.Duration `help:"How far back to look" default:"168h"`
	Limit int           `short:"n" help:"Maximum number of builds to show" default:"20"`
}

func (h *HistoryCmd) Run(_ *Global, root *CLI) error {
	cfg, err := loadConfig(root.Config)
	if err != nil {
		return err
	}
	if cfg.History.Path == "" {
		return ferrors.ConfigError("build journal is disabled; set history.path in config.yml").
			WithContext("field", "history.path").
			Build()
	}
	store, err := eventstore.NewSQLiteStore(cfg.History.Path)
	if err != nil {
		return err
	}
	defer closeJournal(store)
	return RunHistory(context.Background(), os.Stdout, store, time.Now().Add(-h.Since), h.Limit)
}

// RunHistory writes a table of build summaries to out.
func RunHistory(ctx context.Context, out io.Writer, store eventstore.Store, since time.Time, limit int) error {
	builds, err := eventstore.History(ctx, store, since, limit)
	if err != nil {
		return err
	}
	if len(builds) == 0 {
		_, _ = fmt.Fprintln(out, "No builds recorded")
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "BUILD\tSTARTED\tTRIGGER\tSTATUS\tDURATION\tPOSTS\tPAGES\tSKIPPED\tDETAIL")
	for _, b := range builds {
		detail := ""
		if b.Error != "" {
			detail = b.FailedStage + ": " + b.Error
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
			short(b.BuildID),
			b.StartedAt.Local().Format(time.DateTime),
			b.Trigger,
			b.Status,
			b.Duration.Round(time.Millisecond),
			b.Counts.Posts,
			b.Counts.Pages,
			b.Counts.Skipped,
			detail)
	}
	return tw.Flush()
}

func short(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
