// Package runner drives simulated processes against the wall clock.
package runner

import (
	"errors"
	"runtime"
	"sync"
	"time"

	"github.com/sarchlab/lamportsim/monitoring"
	"github.com/sarchlab/lamportsim/sim"
	"github.com/sarchlab/lamportsim/tracing"
	"go.uber.org/zap"
)

// Process is a simulated process as seen by the driver loop.
type Process interface {
	Name() string
	Listen()
	Advance(now sim.WallTimeInSec)
	IsAvailable() bool
	Step() tracing.Kind
	SetUnavailable()
	Close() error
}

// Runner runs one process until its time runs out.
type Runner struct {
	process      Process
	timeTeller   sim.TimeTeller
	duration     sim.WallTimeInSec
	pollInterval time.Duration
	logger       *zap.Logger
	progressBar  *monitoring.ProgressBar

	cleanups []func() error
}

// AddCleanup registers a function that runs after the process is closed.
// Cleanups run in registration order.
func (r *Runner) AddCleanup(f func() error) {
	r.cleanups = append(r.cleanups, f)
}

// Process returns the process driven by the runner.
func (r *Runner) Process() Process {
	return r.process
}

// Run starts the listener of the process and drives the process until the
// duration has passed. Every pass reads the clock, updates the availability
// of the process, and lets an available process perform one action. At the
// end the process is closed, which also stops the listener, and Run waits
// for the listener before it returns.
func (r *Runner) Run() error {
	start := r.timeTeller.Now()

	listenerDone := make(chan struct{})
	go func() {
		r.process.Listen()
		close(listenerDone)
	}()

	r.logger.Info("process started",
		zap.Float64("duration", float64(r.duration)))

	steps := 0
	for {
		now := r.timeTeller.Now()
		if now-start > r.duration {
			break
		}

		r.process.Advance(now)

		if r.process.IsAvailable() {
			r.process.Step()
			r.process.SetUnavailable()
			steps++

			if r.progressBar != nil {
				r.progressBar.IncrementFinished(1)
			}
		}

		r.wait()
	}

	err := r.process.Close()
	<-listenerDone

	for _, cleanup := range r.cleanups {
		err = errors.Join(err, cleanup())
	}

	r.logger.Info("process stopped", zap.Int("steps", steps))

	return err
}

func (r *Runner) wait() {
	if r.pollInterval > 0 {
		time.Sleep(r.pollInterval)
		return
	}

	runtime.Gosched()
}

// RunAll runs every runner in its own goroutine and waits for all of them.
func RunAll(runners []*Runner) error {
	var (
		wg   sync.WaitGroup
		lock sync.Mutex
		errs []error
	)

	for _, r := range runners {
		wg.Add(1)

		go func(r *Runner) {
			defer wg.Done()

			err := r.Run()
			if err != nil {
				lock.Lock()
				errs = append(errs, err)
				lock.Unlock()
			}
		}(r)
	}

	wg.Wait()

	return errors.Join(errs...)
}
