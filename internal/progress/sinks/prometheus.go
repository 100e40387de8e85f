package sinks

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/rclib/bookweaver/internal/progress"
)

// PrometheusSink exports enrichment progress via Prometheus. It owns the run
// lifecycle collectors and the per-source attempt counters.
type PrometheusSink struct {
	runsStarted     prometheus.Counter
	runsCompleted   prometheus.Counter
	runDuration     prometheus.Histogram
	sourceAttempts  *prometheus.CounterVec
	attemptDuration *prometheus.HistogramVec
	recordsTotal    *prometheus.CounterVec
	checkpoints     prometheus.Counter
}

// NewPrometheusSink registers the collectors against the provided registry.
func NewPrometheusSink(reg prometheus.Registerer) (*PrometheusSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PrometheusSink{
		runsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bookweaver_runs_started_total",
			Help: "Total enrichment runs that have started.",
		}),
		runsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bookweaver_runs_completed_total",
			Help: "Total enrichment runs completed.",
		}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "bookweaver_run_duration_seconds",
			Help:    "Wall time per completed enrichment run.",
			Buckets: []float64{10, 60, 300, 900, 1800, 3600, 7200, 14400},
		}),
		sourceAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bookweaver_source_attempts_total",
			Help: "Adapter attempts partitioned by source and outcome.",
		}, []string{"source", "outcome"}),
		attemptDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "bookweaver_source_attempt_duration_seconds",
			Help:    "Attempt duration partitioned by source.",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		}, []string{"source"}),
		recordsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bookweaver_records_total",
			Help: "Records committed partitioned by final status.",
		}, []string{"status"}),
		checkpoints: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bookweaver_checkpoints_total",
			Help: "Checkpoint snapshots written.",
		}),
	}
	for _, collector := range []prometheus.Collector{
		s.runsStarted,
		s.runsCompleted,
		s.runDuration,
		s.sourceAttempts,
		s.attemptDuration,
		s.recordsTotal,
		s.checkpoints,
	} {
		if err := reg.Register(collector); err != nil {
			return nil, fmt.Errorf("register progress collector: %w", err)
		}
	}
	return s, nil
}

// Consume updates collectors from the batch.
func (s *PrometheusSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		switch evt.Stage {
		case progress.StageRunStart:
			s.runsStarted.Inc()
		case progress.StageRunDone:
			s.runsCompleted.Inc()
			s.runDuration.Observe(evt.Dur.Seconds())
		case progress.StageAttempt:
			s.sourceAttempts.WithLabelValues(evt.Source, evt.Outcome).Inc()
			s.attemptDuration.WithLabelValues(evt.Source).Observe(evt.Dur.Seconds())
		case progress.StageRecord:
			s.recordsTotal.WithLabelValues(evt.Status).Inc()
		case progress.StageCheckpoint:
			s.checkpoints.Inc()
		}
	}
	return nil
}

// Close implements the Sink interface; it performs no action.
func (s *PrometheusSink) Close(context.Context) error {
	return nil
}
