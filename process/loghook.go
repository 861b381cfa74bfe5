package process

import (
	"github.com/sarchlab/lamportsim/sim"
	"github.com/sarchlab/lamportsim/tracing"
	"go.uber.org/zap"
)

// LogHook writes every event record of a process to a logger at debug level.
type LogHook struct {
	logger *zap.Logger
}

// NewLogHook creates a LogHook.
func NewLogHook(logger *zap.Logger) *LogHook {
	return &LogHook{logger: logger}
}

// Func logs the record carried by the hook context.
func (h *LogHook) Func(ctx sim.HookCtx) {
	if ctx.Pos != HookPosEventRecorded {
		return
	}

	rec := ctx.Item.(tracing.EventRecord)

	name := ""
	if named, ok := ctx.Domain.(sim.Named); ok {
		name = named.Name()
	}

	h.logger.Debug("event",
		zap.String("process", name),
		zap.Stringer("kind", rec.Kind),
		zap.Float64("wall_time", rec.WallTime),
		zap.Uint64("tick", rec.LogicalTime),
		zap.Int("queue_len", rec.QueueLen),
		zap.Stringer("from", rec.FromPort),
		zap.Stringer("to", rec.ToPort))
}
