package watch

import (
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"

	ferrors "git.home.luguber.info/inful/mirage/internal/foundation/errors"
)

// scheduler queues a full rebuild at a fixed interval.
type scheduler struct {
	s gocron.Scheduler
}

func newScheduler(interval time.Duration, notify func(Event)) (*scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryWatch, "failed to create scheduler").Fatal().Build()
	}
	_, err = s.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			slog.Info("Scheduled rebuild", slog.Duration("interval", interval))
			notify(Event{Trigger: TriggerSchedule})
		}),
		gocron.WithName("periodic-rebuild"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = s.Shutdown()
		return nil, ferrors.WrapError(err, ferrors.CategoryWatch, "failed to schedule periodic rebuild").
			WithContext("interval", interval.String()).
			Fatal().
			Build()
	}
	return &scheduler{s: s}, nil
}

func (s *scheduler) Start() {
	s.s.Start()
}

func (s *scheduler) Stop() error {
	return s.s.Shutdown()
}
