package process

import (
	"log"

	"github.com/sarchlab/lamportsim/sim"
	"github.com/sarchlab/lamportsim/tracing"
	"github.com/sarchlab/lamportsim/transport"
	"go.uber.org/zap"
)

// Builder can build processes.
type Builder struct {
	host      string
	port      int
	freq      sim.Freq
	peers     []int
	transport transport.Transport
	sink      tracing.Sink
	workload  Workload
	logger    *zap.Logger
}

// MakeBuilder creates a builder with default parameters.
func MakeBuilder() Builder {
	return Builder{
		host:   "127.0.0.1",
		freq:   1 * sim.Hz,
		logger: zap.NewNop(),
	}
}

// WithHost sets the host the process listens on.
func (b Builder) WithHost(host string) Builder {
	b.host = host
	return b
}

// WithPort sets the port that identifies the process.
func (b Builder) WithPort(port int) Builder {
	b.port = port
	return b
}

// WithFreq sets the clock speed of the process.
func (b Builder) WithFreq(freq sim.Freq) Builder {
	b.freq = freq
	return b
}

// WithPeers sets the ports of the peers.
func (b Builder) WithPeers(peers []int) Builder {
	b.peers = make([]int, len(peers))
	copy(b.peers, peers)

	return b
}

// WithTransport sets the transport used to exchange messages.
func (b Builder) WithTransport(t transport.Transport) Builder {
	b.transport = t
	return b
}

// WithSink sets where event records are written.
func (b Builder) WithSink(sink tracing.Sink) Builder {
	b.sink = sink
	return b
}

// WithWorkload sets the workload that picks outbound actions.
func (b Builder) WithWorkload(w Workload) Builder {
	b.workload = w
	return b
}

// WithLogger sets the logger.
func (b Builder) WithLogger(logger *zap.Logger) Builder {
	b.logger = logger
	return b
}

// Build creates a process. The process starts available with a logical
// clock of 0.
func (b Builder) Build(name string) *Process {
	sim.NameMustBeValid(name)
	b.mustBeComplete()

	p := &Process{
		name:      name,
		host:      b.host,
		port:      b.port,
		freq:      b.freq,
		peers:     b.peers,
		transport: b.transport,
		sink:      b.sink,
		workload:  b.workload,
		logger: b.logger.With(
			zap.String("process", name),
			zap.Int("port", b.port)),
		queue:     sim.NewBuffer(name+".InboundQueue", 0),
		available: true,
	}

	return p
}

func (b Builder) mustBeComplete() {
	if b.transport == nil {
		log.Panic("transport is not set")
	}

	if b.sink == nil {
		log.Panic("trace sink is not set")
	}

	if b.workload == nil {
		log.Panic("workload is not set")
	}

	if b.freq <= 0 {
		log.Panic("clock speed must be positive")
	}

	if b.logger == nil {
		log.Panic("logger is not set")
	}
}
