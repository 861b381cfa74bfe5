package runner

import (
	"time"

	"github.com/sarchlab/lamportsim/monitoring"
	"github.com/sarchlab/lamportsim/sim"
	"go.uber.org/zap"
)

// Builder can build runners.
type Builder struct {
	timeTeller   sim.TimeTeller
	duration     sim.WallTimeInSec
	pollInterval time.Duration
	logger       *zap.Logger
	progressBar  *monitoring.ProgressBar
}

// MakeBuilder creates a builder that reads the system clock and polls it
// without sleeping.
func MakeBuilder() Builder {
	return Builder{
		timeTeller: sim.WallClock{},
		logger:     zap.NewNop(),
	}
}

// WithTimeTeller sets the clock that drives the process.
func (b Builder) WithTimeTeller(t sim.TimeTeller) Builder {
	b.timeTeller = t
	return b
}

// WithDuration sets how long the process runs.
func (b Builder) WithDuration(d sim.WallTimeInSec) Builder {
	b.duration = d
	return b
}

// WithPollInterval sets the sleep between two passes of the driver loop. A
// zero interval only yields the processor.
func (b Builder) WithPollInterval(d time.Duration) Builder {
	b.pollInterval = d
	return b
}

// WithLogger sets the logger.
func (b Builder) WithLogger(logger *zap.Logger) Builder {
	b.logger = logger
	return b
}

// WithProgressBar sets the bar that counts the actions of the process.
func (b Builder) WithProgressBar(bar *monitoring.ProgressBar) Builder {
	b.progressBar = bar
	return b
}

// Build creates a runner for the process.
func (b Builder) Build(p Process) *Runner {
	b.mustBeComplete(p)

	return &Runner{
		process:      p,
		timeTeller:   b.timeTeller,
		duration:     b.duration,
		pollInterval: b.pollInterval,
		logger:       b.logger.With(zap.String("process", p.Name())),
		progressBar:  b.progressBar,
	}
}

func (b Builder) mustBeComplete(p Process) {
	if p == nil {
		panic("process is not set")
	}

	if b.timeTeller == nil {
		panic("time teller is not set")
	}

	if b.duration <= 0 {
		panic("duration must be positive")
	}

	if b.pollInterval < 0 {
		panic("poll interval must not be negative")
	}

	if b.logger == nil {
		panic("logger is not set")
	}
}
