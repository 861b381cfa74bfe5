package runner

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/sarchlab/lamportsim/analysis"
	"github.com/sarchlab/lamportsim/config"
	"github.com/sarchlab/lamportsim/datarecording"
	"github.com/sarchlab/lamportsim/monitoring"
	"github.com/sarchlab/lamportsim/process"
	"github.com/sarchlab/lamportsim/sim"
	"github.com/sarchlab/lamportsim/tracing"
	"github.com/sarchlab/lamportsim/transport"
	"github.com/sarchlab/lamportsim/workload"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Instance is a process that is ready to run.
type Instance struct {
	Process *process.Process
	Runner  *Runner
	Dir     string
}

// Setup builds a process from a validated configuration: it binds the
// listening port, prepares the process directory, and opens the trace sinks.
// Port 0 binds a free port.
// The process is registered to the monitor when one is given.
func Setup(
	cfg config.Config,
	logger *zap.Logger,
	monitor *monitoring.Monitor,
) (inst *Instance, err error) {
	var closers []func() error
	defer func() {
		if err == nil {
			return
		}

		for i := len(closers) - 1; i >= 0; i-- {
			_ = closers[i]()
		}
	}()

	trans := transport.NewTCPTransport(cfg.Host, cfg.Port).
		WithTimeout(cfg.SendTimeout)

	err = trans.Listen()
	if err != nil {
		return nil, err
	}
	closers = append(closers, trans.Close)

	dir, err := PrepareProcessDir(cfg.LogRoot, Metadata{
		Name:          cfg.Name,
		Port:          trans.Port(),
		ClockSpeed:    cfg.ClockSpeed,
		ExperimentDir: cfg.ExperimentDir,
	})
	if err != nil {
		return nil, err
	}

	sink, sinkClosers, err := openSinks(cfg, dir)
	closers = append(closers, sinkClosers...)
	if err != nil {
		return nil, err
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	logger = logger.With(zap.String("process", cfg.Name))

	p := process.MakeBuilder().
		WithHost(cfg.Host).
		WithPort(trans.Port()).
		WithFreq(sim.Freq(cfg.ClockSpeed)).
		WithPeers(cfg.OtherPorts).
		WithTransport(trans).
		WithSink(sink).
		WithWorkload(workload.NewSeededGenerator(seed, cfg.RandomUpperBound)).
		WithLogger(logger).
		Build(cfg.Name)

	if logger.Core().Enabled(zapcore.DebugLevel) {
		p.AcceptHook(process.NewLogHook(logger))
	}

	queueLog, err := analysis.NewCSVPerfLogger(
		filepath.Join(dir, QueueLenFileName))
	if err != nil {
		return nil, err
	}
	closers = append(closers, queueLog.Close)

	analyzerBuilder := analysis.MakeQueueAnalyzerBuilder().
		WithPerfLogger(queueLog).
		WithBuffer(p.Queue())
	if cfg.QueuePeriod > 0 {
		analyzerBuilder = analyzerBuilder.
			WithPeriod(sim.WallTimeInSec(cfg.QueuePeriod))
	}
	analyzer := analyzerBuilder.Build()

	runnerBuilder := MakeBuilder().
		WithDuration(sim.WallTimeInSec(cfg.DurationSeconds)).
		WithLogger(logger)

	var bar *monitoring.ProgressBar
	if monitor != nil {
		monitor.RegisterProcess(p)

		// One action at start, then at most one per clock period.
		total := sim.Freq(cfg.ClockSpeed).
			Cycle(sim.WallTimeInSec(cfg.DurationSeconds)) + 1
		bar = monitor.CreateProgressBar(cfg.Name, total)
		runnerBuilder = runnerBuilder.WithProgressBar(bar)
	}

	r := runnerBuilder.Build(p)
	r.AddCleanup(func() error {
		analyzer.Report()
		return queueLog.Close()
	})

	if bar != nil {
		r.AddCleanup(func() error {
			monitor.CompleteProgressBar(bar)
			return nil
		})
	}

	logger.Info("process ready",
		zap.String("addr", trans.Addr()),
		zap.Ints("peers", cfg.OtherPorts),
		zap.Float64("clock_speed", cfg.ClockSpeed),
		zap.String("dir", dir))

	return &Instance{Process: p, Runner: r, Dir: dir}, nil
}

// openSinks opens the CSV trace and the SQL traces enabled by the
// configuration. The returned closers release whatever was opened.
func openSinks(
	cfg config.Config,
	dir string,
) (tracing.Sink, []func() error, error) {
	var (
		sinks   []tracing.Sink
		closers []func() error
	)

	csvSink, err := tracing.NewCSVSink(filepath.Join(dir, TraceFileName))
	if err != nil {
		return nil, nil, err
	}
	sinks = append(sinks, csvSink)
	closers = append(closers, csvSink.Close)

	if cfg.Trace.SQLite {
		path := filepath.Join(dir, SQLiteTraceName)

		err = os.Remove(path + ".sqlite3")
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, closers, fmt.Errorf("remove old trace: %w", err)
		}

		sqlSink := tracing.NewSQLSink(datarecording.New(path), cfg.Name)
		sinks = append(sinks, sqlSink)
		closers = append(closers, sqlSink.Close)
	}

	if cfg.Trace.MySQLDSN != "" {
		recorder, err := datarecording.NewMySQL(cfg.Trace.MySQLDSN)
		if err != nil {
			return nil, closers, err
		}

		sqlSink := tracing.NewSQLSink(recorder, cfg.Name)
		sinks = append(sinks, sqlSink)
		closers = append(closers, sqlSink.Close)
	}

	if len(sinks) == 1 {
		return csvSink, closers, nil
	}

	return tracing.NewMultiSink(sinks...), closers, nil
}
