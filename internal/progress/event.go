// Package progress defines the event stream emitted by the enrichment run
// and the hub that fans batches out to sinks.
package progress

import (
	"errors"
	"fmt"
	"time"
)

// Stage denotes the type of milestone represented by an Event.
type Stage string

// Supported progress stages.
const (
	StageRunStart   Stage = "RUN_START"
	StageRunDone    Stage = "RUN_DONE"
	StageAttempt    Stage = "ATTEMPT_DONE"
	StageRecord     Stage = "RECORD_DONE"
	StageCheckpoint Stage = "CHECKPOINT_SAVED"
)

// Event captures a single enrichment milestone.
type Event struct {
	// RunID identifies the enrichment run the event belongs to.
	RunID string
	// TS is the UTC timestamp recorded by the emitter.
	TS time.Time
	// Stage denotes which milestone occurred.
	Stage Stage
	// ISBN scopes attempt and record events to one catalog entry.
	ISBN string
	// Source names the adapter for attempt events.
	Source string
	// Outcome is the attempt classification (resolved, not_found, ...).
	Outcome string
	// Status is the committed record status for record events.
	Status string
	// Dur captures execution latency for attempts and run completions.
	Dur time.Duration
	// Note lets emitters attach low-volume debug context.
	Note string
}

// Validate performs coarse validation on Event payloads.
func (e Event) Validate() error {
	if e.RunID == "" {
		return errors.New("run id is required")
	}
	if e.TS.IsZero() {
		return errors.New("timestamp is required")
	}
	switch e.Stage {
	case StageRunStart, StageRunDone, StageCheckpoint:
	case StageAttempt:
		if e.Source == "" {
			return errors.New("attempt event requires source")
		}
		if e.Outcome == "" {
			return errors.New("attempt event requires outcome")
		}
	case StageRecord:
		if e.ISBN == "" {
			return errors.New("record event requires isbn")
		}
		if e.Status == "" {
			return errors.New("record event requires status")
		}
	default:
		return fmt.Errorf("unknown stage %q", e.Stage)
	}
	if e.Dur < 0 {
		return errors.New("duration must be >= 0")
	}
	return nil
}
