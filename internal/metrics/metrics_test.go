package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestInit(t *testing.T) {
	// Call Init multiple times to test idempotency.
	Init()
	Init()

	if enrichAttemptsTotal == nil || enrichRecordsTotal == nil ||
		httpRequestsTotal == nil || httpRequestDurationSeconds == nil {
		t.Fatal("Init() did not initialize metrics collectors")
	}

	ObserveAttempt("openlibrary", "resolved", 50*time.Millisecond)
	if val := testutil.ToFloat64(enrichAttemptsTotal.WithLabelValues("openlibrary", "resolved")); val != 1 {
		t.Errorf("expected one resolved openlibrary attempt, got %f", val)
	}

	ObserveRecord("resolved")
	ObserveRecord("resolved")
	if val := testutil.ToFloat64(enrichRecordsTotal.WithLabelValues("resolved")); val != 2 {
		t.Errorf("expected two resolved records, got %f", val)
	}

	IncActiveWorkers()
	IncActiveWorkers()
	DecActiveWorkers()
	if val := testutil.ToFloat64(enrichActiveWorkers); val != 1 {
		t.Errorf("expected one active worker, got %f", val)
	}

	before := testutil.ToFloat64(checkpointSavesTotal)
	ObserveCheckpoint()
	if val := testutil.ToFloat64(checkpointSavesTotal); val != before+1 {
		t.Errorf("expected checkpoint counter to advance, got %f", val)
	}
}
