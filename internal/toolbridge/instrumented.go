package toolbridge

import (
	"context"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/blastxml/internal/metrics"
)

// InstrumentedRunner wraps a Runner with run metrics and failure logging.
type InstrumentedRunner struct {
	inner  Runner
	logger *zap.Logger
}

// NewInstrumentedRunner wraps inner.
func NewInstrumentedRunner(inner Runner, logger *zap.Logger) *InstrumentedRunner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InstrumentedRunner{inner: inner, logger: logger}
}

// Run delegates to the inner runner and records tool_runs_total and tool_run_duration_seconds.
func (r *InstrumentedRunner) Run(ctx context.Context, cmd Command) error {
	program := filepath.Base(cmd.Name)
	start := time.Now()
	err := r.inner.Run(ctx, cmd)
	elapsed := time.Since(start)

	metrics.ToolRunDuration.WithLabelValues(program).Observe(elapsed.Seconds())
	if err != nil {
		metrics.ToolRunsTotal.WithLabelValues(program, "error").Inc()
		r.logger.Error("tool run failed",
			zap.String("program", program),
			zap.Duration("duration", elapsed),
			zap.Error(err),
		)
		return err
	}
	metrics.ToolRunsTotal.WithLabelValues(program, "ok").Inc()
	r.logger.Debug("tool run finished",
		zap.String("program", program),
		zap.Duration("duration", elapsed),
	)
	return nil
}
