// Package process implements a simulated process that owns a logical clock,
// paces itself at a fixed clock speed, and exchanges timestamped messages
// with its peers.
//
// Two goroutines drive a process. The listener (Listen) accepts inbound
// messages and appends them to the inbound queue. The driver calls Advance,
// Step and SetUnavailable in a loop. The queue is the only state both sides
// mutate.
package process

import (
	"errors"
	"log"
	"sync"

	"github.com/sarchlab/lamportsim/sim"
	"github.com/sarchlab/lamportsim/tracing"
	"github.com/sarchlab/lamportsim/transport"
	"github.com/sarchlab/lamportsim/workload"
	"go.uber.org/zap"
)

// ErrEmptyQueue is returned when reading a message from an empty queue.
var ErrEmptyQueue = errors.New("inbound queue is empty")

// HookPosEventRecorded marks that an event record has been written. The hook
// item is the tracing.EventRecord.
var HookPosEventRecorded = &sim.HookPos{Name: "Event Recorded"}

// Workload picks the next outbound action of a process.
type Workload interface {
	Next(peers []int) workload.Action
}

// Process is one simulated process.
type Process struct {
	sim.HookableBase

	name      string
	host      string
	port      int
	freq      sim.Freq
	peers     []int
	transport transport.Transport
	sink      tracing.Sink
	workload  Workload
	logger    *zap.Logger

	queue sim.Buffer

	lock            sync.Mutex
	logicalClock    uint64
	available       bool
	lastAvailableAt sim.WallTimeInSec
	now             sim.WallTimeInSec

	closeOnce sync.Once
	closeErr  error
}

// Name returns the name of the process.
func (p *Process) Name() string {
	return p.name
}

// Host returns the host the process listens on.
func (p *Process) Host() string {
	return p.host
}

// Port returns the port the process listens on. The port identifies the
// process in messages and traces.
func (p *Process) Port() int {
	return p.port
}

// Freq returns the clock speed of the process.
func (p *Process) Freq() sim.Freq {
	return p.freq
}

// Peers returns the ports of the peers, in configuration order.
func (p *Process) Peers() []int {
	peers := make([]int, len(p.peers))
	copy(peers, p.peers)

	return peers
}

// LogicalClock returns the current logical time.
func (p *Process) LogicalClock() uint64 {
	p.lock.Lock()
	defer p.lock.Unlock()

	return p.logicalClock
}

// IsAvailable reports whether the process may act now.
func (p *Process) IsAvailable() bool {
	p.lock.Lock()
	defer p.lock.Unlock()

	return p.available
}

// Now returns the wall time given to the last Advance call.
func (p *Process) Now() sim.WallTimeInSec {
	p.lock.Lock()
	defer p.lock.Unlock()

	return p.now
}

// QueueLen returns the number of messages waiting in the inbound queue.
func (p *Process) QueueLen() int {
	return p.queue.Size()
}

// Queue returns the inbound queue.
func (p *Process) Queue() sim.Buffer {
	return p.queue
}

// Advance moves the process to wall time now. An unavailable process becomes
// available, and its logical clock ticks once, when more than one clock
// period has passed since it last acted. This is the only place the clock
// advances on its own.
func (p *Process) Advance(now sim.WallTimeInSec) {
	p.lock.Lock()
	defer p.lock.Unlock()

	p.now = now

	if p.available {
		return
	}

	if p.freq.Elapsed(p.lastAvailableAt, now) {
		p.available = true
		p.logicalClock++
	}
}

// SetUnavailable ends the current action. The process stays unavailable
// until the next clock period elapses.
func (p *Process) SetUnavailable() {
	p.lock.Lock()
	defer p.lock.Unlock()

	p.available = false
	p.lastAvailableAt = p.now
}

// Step performs exactly one action. A pending inbound message is always
// consumed first; the workload is only consulted when the queue is empty.
// Step must only be called while the process is available.
func (p *Process) Step() tracing.Kind {
	if !p.IsAvailable() {
		log.Panicf("process %s: step while unavailable", p.name)
	}

	if p.queue.Size() > 0 {
		_, err := p.ReceiveMessage()
		if err != nil {
			log.Panicf("process %s: %v", p.name, err)
		}

		return tracing.KindReceived
	}

	action := p.workload.Next(p.peers)

	switch action.Kind {
	case workload.Internal:
		p.InternalEvent()
		return tracing.KindInternal
	case workload.Unicast, workload.Broadcast:
		return p.SendMessage(p.NewOutboundMsg(), action.Targets)
	default:
		log.Panicf("process %s: unknown action %s", p.name, action.Kind)
		return 0
	}
}

// ReceiveMessage pops the oldest inbound message and merges its timestamp
// into the logical clock.
func (p *Process) ReceiveMessage() (*sim.Msg, error) {
	e := p.queue.Pop()
	if e == nil {
		return nil, ErrEmptyQueue
	}

	msg := e.(*sim.Msg)

	p.lock.Lock()
	if msg.Tick > p.logicalClock {
		p.logicalClock = msg.Tick
	}
	clock := p.logicalClock
	now := p.now
	p.lock.Unlock()

	p.record(tracing.EventRecord{
		Kind:        tracing.KindReceived,
		WallTime:    float64(now),
		LogicalTime: clock,
		QueueLen:    p.queue.Size(),
		FromPort:    tracing.Ports{msg.Port},
		ToPort:      tracing.Ports{p.port},
	})

	return msg, nil
}

// NewOutboundMsg builds a message stamped with the current logical time and
// the port of this process.
func (p *Process) NewOutboundMsg() *sim.Msg {
	return sim.MsgBuilder{}.
		WithTick(p.LogicalClock()).
		WithPort(p.port).
		Build()
}

// SendMessage tries to deliver msg to every port. A failed delivery is logged
// and does not stop delivery to the other ports. Nothing is retried. One
// record is written: Sent for a single port, Broadcast for several.
func (p *Process) SendMessage(msg *sim.Msg, ports []int) tracing.Kind {
	if len(ports) == 0 {
		log.Panicf("process %s: send without targets", p.name)
	}

	for _, port := range ports {
		err := p.transport.Send(port, msg)
		if err != nil {
			p.logger.Error("message not delivered",
				zap.Int("to", port),
				zap.String("msg", msg.ID),
				zap.Error(err))
		}
	}

	kind := tracing.KindSent
	if len(ports) > 1 {
		kind = tracing.KindBroadcast
	}

	to := make(tracing.Ports, len(ports))
	copy(to, ports)

	p.lock.Lock()
	clock := p.logicalClock
	now := p.now
	p.lock.Unlock()

	p.record(tracing.EventRecord{
		Kind:        kind,
		WallTime:    float64(now),
		LogicalTime: clock,
		QueueLen:    p.queue.Size(),
		FromPort:    tracing.Ports{p.port},
		ToPort:      to,
	})

	return kind
}

// InternalEvent records an event that involves no other process.
func (p *Process) InternalEvent() {
	p.lock.Lock()
	clock := p.logicalClock
	now := p.now
	p.lock.Unlock()

	p.record(tracing.EventRecord{
		Kind:        tracing.KindInternal,
		WallTime:    float64(now),
		LogicalTime: clock,
		QueueLen:    p.queue.Size(),
	})
}

// Enqueue appends an inbound message to the queue.
func (p *Process) Enqueue(msg *sim.Msg) {
	p.queue.Push(msg)
}

// Listen runs the listener loop until the transport is closed. Connections
// that fail or carry an undecodable payload are dropped.
func (p *Process) Listen() {
	for {
		msg, err := p.transport.Accept()

		switch {
		case errors.Is(err, transport.ErrClosed),
			errors.Is(err, transport.ErrNotListening):
			p.logger.Debug("listener stopped", zap.Error(err))
			return
		case err != nil:
			p.logger.Debug("inbound connection dropped", zap.Error(err))
			continue
		}

		p.Enqueue(msg)

		p.logger.Debug("message queued",
			zap.String("msg", msg.ID),
			zap.Int("from", msg.Port),
			zap.Uint64("tick", msg.Tick))
	}
}

// Close releases the transport endpoint, which stops the listener, and then
// closes the trace sink. Messages still queued are dropped. No record is
// written after Close.
func (p *Process) Close() error {
	p.closeOnce.Do(func() {
		p.closeErr = errors.Join(p.transport.Close(), p.sink.Close())

		if dropped := p.queue.Size(); dropped > 0 {
			p.logger.Debug("unread messages dropped",
				zap.Int("count", dropped))
		}
		p.queue.Clear()
	})

	return p.closeErr
}

func (p *Process) record(rec tracing.EventRecord) {
	err := p.sink.Write(rec)
	if err != nil {
		p.logger.Error("event not recorded",
			zap.Stringer("kind", rec.Kind),
			zap.Error(err))
	}

	if p.NumHooks() > 0 {
		p.InvokeHook(sim.HookCtx{
			Domain: p,
			Now:    sim.WallTimeInSec(rec.WallTime),
			Pos:    HookPosEventRecorded,
			Item:   rec,
		})
	}
}
