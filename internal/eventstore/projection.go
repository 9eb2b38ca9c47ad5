package eventstore

import (
	"context"
	"slices"
	"time"
)

// Build statuses in a summary.
const (
	StatusRunning   = "running"
	StatusSuccess   = "success"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

// BuildSummary is the read model of one compile.
type BuildSummary struct {
	BuildID     string
	Trigger     string
	Status      string
	StartedAt   time.Time
	CompletedAt time.Time
	Duration    time.Duration
	FailedStage string
	Error       string
	Counts      BuildCompletedPayload
	Skipped     []ItemSkippedPayload
}

// History reconstructs build summaries from the journal, newest first.
// At most limit summaries are returned (all when limit <= 0).
func History(ctx context.Context, s Store, since time.Time, limit int) ([]BuildSummary, error) {
	events, err := s.GetRange(ctx, since, time.Now().Add(time.Minute))
	if err != nil {
		return nil, err
	}

	byID := make(map[string]*BuildSummary)
	var order []string
	for _, e := range events {
		sum, ok := byID[e.BuildID()]
		if !ok {
			sum = &BuildSummary{BuildID: e.BuildID(), Status: StatusRunning, StartedAt: e.Timestamp()}
			byID[e.BuildID()] = sum
			order = append(order, e.BuildID())
		}
		apply(sum, e)
	}

	out := make([]BuildSummary, 0, len(order))
	for _, id := range order {
		out = append(out, *byID[id])
	}
	slices.SortStableFunc(out, func(a, b BuildSummary) int {
		return b.StartedAt.Compare(a.StartedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func apply(sum *BuildSummary, e Event) {
	switch e.Type() {
	case TypeBuildStarted:
		var p BuildStartedPayload
		if Decode(e, &p) == nil {
			sum.Trigger = p.Trigger
		}
		sum.StartedAt = e.Timestamp()
	case TypeItemSkipped:
		var p ItemSkippedPayload
		if Decode(e, &p) == nil {
			sum.Skipped = append(sum.Skipped, p)
		}
	case TypeBuildCompleted:
		var p BuildCompletedPayload
		if Decode(e, &p) == nil {
			sum.Counts = p
			sum.Duration = time.Duration(p.DurationMS) * time.Millisecond
		}
		sum.Status = StatusSuccess
		sum.CompletedAt = e.Timestamp()
	case TypeBuildFailed:
		var p BuildFailedPayload
		if Decode(e, &p) == nil {
			sum.FailedStage = p.Stage
			sum.Error = p.Error
			sum.Duration = time.Duration(p.DurationMS) * time.Millisecond
			sum.Status = p.Status
		}
		if sum.Status == "" || sum.Status == StatusRunning {
			sum.Status = StatusFailed
		}
		sum.CompletedAt = e.Timestamp()
	}
}
