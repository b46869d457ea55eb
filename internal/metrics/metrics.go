// Package metrics counts tool invocations and command outcomes and can dump
// them as a node_exporter textfile.
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/systmms/ykvc/internal/errors"
	pkgexec "github.com/systmms/ykvc/pkg/exec"
)

// Outcome label values.
const (
	OutcomeSuccess    = "success"
	OutcomeExitError  = "exit_error"
	OutcomeStartError = "start_error"
)

// Metrics owns a private registry so a process (or test) never collides
// with the default one. A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	toolInvocations *prometheus.CounterVec
	toolDuration    *prometheus.HistogramVec
	operations      *prometheus.CounterVec
}

// New registers the ykvc collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		toolInvocations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ykvc_tool_invocations_total",
				Help: "External tool invocations by tool and outcome",
			},
			[]string{"tool", "outcome"},
		),
		toolDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ykvc_tool_duration_seconds",
				Help:    "Wall time of external tool invocations in seconds",
				Buckets: []float64{0.05, 0.1, 0.5, 1, 5, 30, 120},
			},
			[]string{"tool"},
		),
		operations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ykvc_operations_total",
				Help: "ykvc commands by name and outcome",
			},
			[]string{"operation", "outcome"},
		),
	}
}

// Registry exposes the collectors, e.g. for testutil.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveTool records one tool run.
func (m *Metrics) ObserveTool(tool string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.toolInvocations.WithLabelValues(tool, toolOutcome(err)).Inc()
	m.toolDuration.WithLabelValues(tool).Observe(d.Seconds())
}

// ObserveOperation records a command result; failures are labelled with
// their error kind.
func (m *Metrics) ObserveOperation(operation string, err error) {
	if m == nil {
		return
	}
	outcome := OutcomeSuccess
	if err != nil {
		outcome = errors.KindOf(err).String()
	}
	m.operations.WithLabelValues(operation, outcome).Inc()
}

// WriteTextfile atomically writes every metric to path in the text
// exposition format.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.registry)
}

func toolOutcome(err error) string {
	switch {
	case err == nil:
		return OutcomeSuccess
	case pkgexec.NotStarted(err):
		return OutcomeStartError
	default:
		return OutcomeExitError
	}
}

// InstrumentedExecutor times every call of the wrapped executor. Only the
// tool name is recorded; arguments may carry secrets.
type InstrumentedExecutor struct {
	next    pkgexec.CommandExecutor
	metrics *Metrics
	now     func() time.Time
}

var _ pkgexec.CommandExecutor = (*InstrumentedExecutor)(nil)

// Instrument wraps next. A nil m returns next unchanged.
func Instrument(next pkgexec.CommandExecutor, m *Metrics) pkgexec.CommandExecutor {
	if m == nil {
		return next
	}
	return &InstrumentedExecutor{next: next, metrics: m, now: time.Now}
}

func (e *InstrumentedExecutor) Execute(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	start := e.now()
	stdout, stderr, err := e.next.Execute(ctx, name, args...)
	e.metrics.ObserveTool(name, e.now().Sub(start), err)
	return stdout, stderr, err
}

func (e *InstrumentedExecutor) Run(ctx context.Context, name string, args ...string) error {
	start := e.now()
	err := e.next.Run(ctx, name, args...)
	e.metrics.ObserveTool(name, e.now().Sub(start), err)
	return err
}
