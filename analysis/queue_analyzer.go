package analysis

import (
	"math"
	"sync"

	"github.com/sarchlab/lamportsim/sim"
)

// QueueAnalyzer records the time-weighted average length of a queue. It is
// attached to the queue as a hook and reports one entry per period, or a
// single entry covering the whole run when no period is set.
type QueueAnalyzer struct {
	lock sync.Mutex

	logger     PerfLogger
	timeTeller sim.TimeTeller
	buf        sim.Buffer
	usePeriod  bool
	period     sim.WallTimeInSec

	startTime       sim.WallTimeInSec
	lastTime        sim.WallTimeInSec
	lastLevel       int
	levelToDuration map[int]sim.WallTimeInSec
	reported        bool
}

// Func records a queue length change. The new length is the Detail of the
// hook context.
func (a *QueueAnalyzer) Func(ctx sim.HookCtx) {
	if ctx.Pos != sim.HookPosBufPush && ctx.Pos != sim.HookPosBufPop {
		return
	}

	a.lock.Lock()
	defer a.lock.Unlock()

	if a.reported {
		return
	}

	now := a.timeTeller.Now()
	currLevel := ctx.Detail.(int)

	if a.usePeriod && now > a.periodEndTime(a.lastTime) {
		a.summarize(now, false)
		a.resetPeriod(now)
	}

	a.levelToDuration[a.lastLevel] += now - a.lastTime
	a.lastLevel = currLevel
	a.lastTime = now
}

// Report writes the entries of the time not reported yet. The analyzer
// ignores changes after Report.
func (a *QueueAnalyzer) Report() {
	a.lock.Lock()
	defer a.lock.Unlock()

	if a.reported {
		return
	}

	a.summarize(a.timeTeller.Now(), true)
	a.reported = true
	a.levelToDuration = make(map[int]sim.WallTimeInSec)
}

// summarize reports the periods that ended before now. With final set, the
// unfinished period is reported too.
func (a *QueueAnalyzer) summarize(now sim.WallTimeInSec, final bool) {
	if a.reported {
		return
	}

	if !a.usePeriod {
		a.summarizePeriod(now, a.startTime, now)
		return
	}

	periodStartTime := a.periodStartTime(a.lastTime)
	periodEndTime := a.periodEndTime(a.lastTime)

	for periodEndTime < now {
		a.summarizePeriod(now, periodStartTime, periodEndTime)

		a.levelToDuration = make(map[int]sim.WallTimeInSec)
		a.lastTime = periodEndTime
		periodStartTime = periodEndTime
		periodEndTime = periodStartTime + a.period
	}

	if final && periodStartTime < now {
		a.summarizePeriod(now, periodStartTime, now)
	}
}

func (a *QueueAnalyzer) summarizePeriod(
	now, periodStartTime, periodEndTime sim.WallTimeInSec,
) {
	sumLevel := 0.0
	sumDuration := 0.0

	for level, duration := range a.levelToDuration {
		sumLevel += float64(level) * float64(duration)
		sumDuration += float64(duration)
	}

	summarizeEndTime := min(periodEndTime, now)
	if summarizeEndTime > a.lastTime {
		remainingTime := summarizeEndTime - a.lastTime
		sumLevel += float64(a.lastLevel) * float64(remainingTime)
		sumDuration += float64(remainingTime)
	}

	if sumDuration == 0 {
		return
	}

	a.logger.AddDataEntry(PerfEntry{
		Start: periodStartTime,
		End:   periodEndTime,
		Where: a.buf.Name(),
		What:  "QueueLen",
		Value: sumLevel / sumDuration,
		Unit:  "msg",
	})
}

func (a *QueueAnalyzer) resetPeriod(now sim.WallTimeInSec) {
	a.levelToDuration = make(map[int]sim.WallTimeInSec)
	a.lastTime = a.periodStartTime(now)
}

func (a *QueueAnalyzer) periodStartTime(
	t sim.WallTimeInSec,
) sim.WallTimeInSec {
	return sim.WallTimeInSec(math.Floor(float64(t/a.period))) * a.period
}

func (a *QueueAnalyzer) periodEndTime(t sim.WallTimeInSec) sim.WallTimeInSec {
	return a.periodStartTime(t) + a.period
}

// QueueAnalyzerBuilder can build a QueueAnalyzer.
type QueueAnalyzerBuilder struct {
	logger     PerfLogger
	timeTeller sim.TimeTeller
	usePeriod  bool
	period     sim.WallTimeInSec
	buffer     sim.Buffer
}

// MakeQueueAnalyzerBuilder creates a QueueAnalyzerBuilder.
func MakeQueueAnalyzerBuilder() QueueAnalyzerBuilder {
	return QueueAnalyzerBuilder{
		timeTeller: sim.WallClock{},
	}
}

// WithPerfLogger sets the PerfLogger to use.
func (b QueueAnalyzerBuilder) WithPerfLogger(
	logger PerfLogger,
) QueueAnalyzerBuilder {
	b.logger = logger
	return b
}

// WithTimeTeller sets the TimeTeller to use.
func (b QueueAnalyzerBuilder) WithTimeTeller(
	timeTeller sim.TimeTeller,
) QueueAnalyzerBuilder {
	b.timeTeller = timeTeller
	return b
}

// WithPeriod sets the length of a reporting period.
func (b QueueAnalyzerBuilder) WithPeriod(
	period sim.WallTimeInSec,
) QueueAnalyzerBuilder {
	b.usePeriod = true
	b.period = period
	return b
}

// WithBuffer sets the queue to observe.
func (b QueueAnalyzerBuilder) WithBuffer(
	buffer sim.Buffer,
) QueueAnalyzerBuilder {
	b.buffer = buffer
	return b
}

// Build creates a QueueAnalyzer and attaches it to the queue. Time starts
// counting at the moment of the call.
func (b QueueAnalyzerBuilder) Build() *QueueAnalyzer {
	if b.logger == nil {
		panic("perfLogger is not set")
	}

	if b.timeTeller == nil {
		panic("timeTeller is not set")
	}

	if b.buffer == nil {
		panic("buffer is not set")
	}

	if b.usePeriod && b.period <= 0 {
		panic("period must be positive")
	}

	now := b.timeTeller.Now()

	analyzer := &QueueAnalyzer{
		logger:          b.logger,
		timeTeller:      b.timeTeller,
		buf:             b.buffer,
		usePeriod:       b.usePeriod,
		period:          b.period,
		startTime:       now,
		lastTime:        now,
		lastLevel:       b.buffer.Size(),
		levelToDuration: make(map[int]sim.WallTimeInSec),
	}

	b.buffer.AcceptHook(analyzer)

	return analyzer
}
