// Package transport moves messages between simulated processes. Every message
// travels on its own short-lived TCP connection: the sender dials, writes one
// payload and closes; the receiver accepts, reads until EOF and closes.
package transport

import (
	"errors"

	"github.com/sarchlab/lamportsim/sim"
)

// ErrClosed is returned by Accept once the listening endpoint is closed.
var ErrClosed = errors.New("transport closed")

// ErrNotListening is returned when accepting before Listen is called.
var ErrNotListening = errors.New("transport not listening")

// A Transport delivers single messages between processes.
type Transport interface {
	// Addr returns the listening address.
	Addr() string

	// Listen opens the passive endpoint.
	Listen() error

	// Accept blocks until one inbound connection delivers one message.
	Accept() (*sim.Msg, error)

	// Send delivers one message to the process listening on port.
	Send(port int, msg *sim.Msg) error

	// Close releases the listening endpoint. Blocked Accept calls return
	// ErrClosed.
	Close() error
}
