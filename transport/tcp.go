package transport

import (
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/sarchlab/lamportsim/sim"
)

// DefaultTimeout bounds every outbound dial and write, and every inbound read.
const DefaultTimeout = 200 * time.Millisecond

// TCPTransport implements Transport over loopback or LAN TCP. Peers are
// addressed by port on the same host.
type TCPTransport struct {
	host    string
	port    int
	timeout time.Duration

	lock     sync.Mutex
	listener net.Listener
	inbound  net.Conn
	closed   bool
}

// NewTCPTransport creates a transport that listens on host:port. A port of 0
// picks a free port at Listen time.
func NewTCPTransport(host string, port int) *TCPTransport {
	return &TCPTransport{
		host:    host,
		port:    port,
		timeout: DefaultTimeout,
	}
}

// WithTimeout sets the dial, write and read timeout. Zero disables timeouts.
func (t *TCPTransport) WithTimeout(timeout time.Duration) *TCPTransport {
	t.timeout = timeout
	return t
}

// Addr returns the listening address.
func (t *TCPTransport) Addr() string {
	return net.JoinHostPort(t.host, strconv.Itoa(t.Port()))
}

// Port returns the listening port. After Listen, this is the port actually
// bound.
func (t *TCPTransport) Port() int {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.port
}

// Listen opens the listening endpoint.
func (t *TCPTransport) Listen() error {
	t.lock.Lock()
	defer t.lock.Unlock()

	if t.listener != nil {
		return fmt.Errorf("transport: already listening on %s", t.listener.Addr())
	}

	if t.closed {
		return ErrClosed
	}

	addr := net.JoinHostPort(t.host, strconv.Itoa(t.port))

	l, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("transport: listen on %s: %w", addr, err)
	}

	t.listener = l
	t.port = l.Addr().(*net.TCPAddr).Port

	return nil
}

// Accept waits for one inbound connection and reads one message from it.
func (t *TCPTransport) Accept() (*sim.Msg, error) {
	t.lock.Lock()
	l := t.listener
	closed := t.closed
	t.lock.Unlock()

	if closed {
		return nil, ErrClosed
	}

	if l == nil {
		return nil, ErrNotListening
	}

	conn, err := l.Accept()
	if err != nil {
		if errors.Is(err, net.ErrClosed) || t.isClosed() {
			return nil, ErrClosed
		}

		return nil, fmt.Errorf("transport: accept: %w", err)
	}

	if !t.track(conn) {
		conn.Close()
		return nil, ErrClosed
	}
	defer t.untrack(conn)

	if t.timeout > 0 {
		err = conn.SetReadDeadline(time.Now().Add(t.timeout))
		if err != nil {
			return nil, fmt.Errorf("transport: set read deadline: %w", err)
		}
	}

	data, err := io.ReadAll(io.LimitReader(conn, MaxPayloadSize))
	if err != nil {
		if t.isClosed() {
			return nil, ErrClosed
		}

		return nil, fmt.Errorf("transport: read: %w", err)
	}

	return Decode(data)
}

// track makes conn the connection being read, so that Close can interrupt
// the read. It returns false if the transport is already closed.
func (t *TCPTransport) track(conn net.Conn) bool {
	t.lock.Lock()
	defer t.lock.Unlock()

	if t.closed {
		return false
	}

	t.inbound = conn

	return true
}

func (t *TCPTransport) untrack(conn net.Conn) {
	t.lock.Lock()
	if t.inbound == conn {
		t.inbound = nil
	}
	t.lock.Unlock()

	conn.Close()
}

// Send dials the peer, writes one encoded message and closes the connection.
// It never retries.
func (t *TCPTransport) Send(port int, msg *sim.Msg) error {
	data, err := Encode(msg)
	if err != nil {
		return fmt.Errorf("transport: encode: %w", err)
	}

	addr := net.JoinHostPort(t.host, strconv.Itoa(port))
	dialer := net.Dialer{Timeout: t.timeout}

	conn, err := dialer.Dial("tcp", addr)
	if err != nil {
		return fmt.Errorf("transport: dial %s: %w", addr, err)
	}
	defer conn.Close()

	if t.timeout > 0 {
		err = conn.SetWriteDeadline(time.Now().Add(t.timeout))
		if err != nil {
			return fmt.Errorf("transport: set write deadline: %w", err)
		}
	}

	_, err = conn.Write(data)
	if err != nil {
		return fmt.Errorf("transport: write to %s: %w", addr, err)
	}

	return nil
}

// Close stops listening and drops the inbound connection being read, if
// any. It is safe to call more than once.
func (t *TCPTransport) Close() error {
	t.lock.Lock()
	defer t.lock.Unlock()

	if t.closed {
		return nil
	}

	t.closed = true

	if t.inbound != nil {
		t.inbound.Close()
		t.inbound = nil
	}

	if t.listener == nil {
		return nil
	}

	return t.listener.Close()
}

func (t *TCPTransport) isClosed() bool {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.closed
}
