package eventstore

import (
	"encoding/json"
	"time"

	ferrors "git.home.luguber.info/inful/mirage/internal/foundation/errors"
)

// Event type names.
const (
	TypeBuildStarted   = "BuildStarted"
	TypeStageCompleted = "StageCompleted"
	TypeItemSkipped    = "ItemSkipped"
	TypeBuildCompleted = "BuildCompleted"
	TypeBuildFailed    = "BuildFailed"
)

// BuildStartedPayload records what triggered a compile.
type BuildStartedPayload struct {
	Trigger string `json:"trigger"`
	Root    string `json:"root"`
}

// StageCompletedPayload records one finished stage.
type StageCompletedPayload struct {
	Stage      string `json:"stage"`
	DurationMS int64  `json:"duration_ms"`
}

// ItemSkippedPayload records a file skipped with a warning.
type ItemSkippedPayload struct {
	Kind   string `json:"kind"`
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// BuildCompletedPayload records the counts of a successful compile.
type BuildCompletedPayload struct {
	Pages        int   `json:"pages"`
	Posts        int   `json:"posts"`
	ListingPages int   `json:"listing_pages"`
	CSS          int   `json:"css"`
	JS           int   `json:"js"`
	Images       int   `json:"images"`
	Favicons     int   `json:"favicons"`
	Skipped      int   `json:"skipped"`
	DurationMS   int64 `json:"duration_ms"`
}

// BuildFailedPayload records where and why a compile stopped.
type BuildFailedPayload struct {
	Stage      string `json:"stage"`
	Status     string `json:"status"`
	Error      string `json:"error"`
	DurationMS int64  `json:"duration_ms"`
}

// NewEvent marshals payload into an event of the given type.
func NewEvent(buildID, eventType string, payload any) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, ferrors.EventStoreError("failed to marshal event payload").
			WithCause(err).
			WithContext("build_id", buildID).
			WithContext("event", eventType).
			Build()
	}
	return &BaseEvent{
		EventBuildID:   buildID,
		EventType:      eventType,
		EventTimestamp: time.Now(),
		EventPayload:   data,
	}, nil
}

// Decode unmarshals the payload of e into v.
func Decode(e Event, v any) error {
	if err := json.Unmarshal(e.Payload(), v); err != nil {
		return ferrors.EventStoreError("failed to unmarshal event payload").
			WithCause(err).
			WithContext("event", e.Type()).
			Build()
	}
	return nil
}
