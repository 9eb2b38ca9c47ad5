package build

import (
	"context"
	"time"

	"git.home.luguber.info/inful/mirage/internal/config"
)

// Service executes compiles.
type Service interface {
	Run(ctx context.Context, req Request) (*Result, error)
}

// Request contains the inputs of one compile.
type Request struct {
	// Config is the loaded project configuration.
	Config *config.Config

	// OutputDir overrides the published output directory (default {root}/site).
	OutputDir string

	// Trigger names what started the compile (cli, change, schedule, deploy).
	Trigger string
}

// Counts tallies what a compile wrote and skipped.
type Counts struct {
	Pages        int
	Posts        int
	ListingPages int
	CSS          int
	JS           int
	Images       int
	Favicons     int
	Skipped      int
}

// Result contains the outcome of a compile.
type Result struct {
	BuildID     string
	Status      Status
	OutputPath  string
	Counts      Counts
	FailedStage string
	StartTime   time.Time
	EndTime     time.Time
	Duration    time.Duration
}

// Status represents the outcome of a compile.
type Status string

const (
	StatusSuccess   Status = "success"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// IsSuccess reports whether the compile published a new tree.
func (s Status) IsSuccess() bool { return s == StatusSuccess }
