package serial

import (
	"errors"
	"net"
	"time"
)

// ErrWouldBlock is returned by a Transport when no byte is available yet;
// the serial state machine treats it as "keep waiting this bit slot"
// rather than a transfer failure (spec.md section 4.5, grounded on
// _examples/original_source/gband/src/serial.rs's WouldBlock/TimedOut
// handling around a non-blocking TcpStream).
var ErrWouldBlock = errors.New("serial: would block")

// Transport abstracts the physical link partner. Send/Recv each move one
// byte and must not block for longer than a bit slot; returning
// ErrWouldBlock lets the state machine retry on the next divided tick.
type Transport interface {
	Send(b byte) error
	Recv() (byte, error)
}

// NullTransport is the default link partner: nothing is ever connected, so
// every exchange succeeds at once and receives 0xFF, and a transfer
// completes after its eight bit periods with 0xFF in SB, matching an
// unplugged link cable.
type NullTransport struct{}

func (NullTransport) Send(byte) error      { return nil }
func (NullTransport) Recv() (byte, error) { return 0xFF, nil }

// SocketTransport links two emulator instances over a TCP stream, acting
// as a listener first and falling back to a client if the port is already
// taken, exactly like the original's SocketWrapper::try_connect.
type SocketTransport struct {
	addr     string
	listener net.Listener
	conn     net.Conn
}

// NewSocketTransport returns a transport bound to addr (e.g. "127.0.0.1:8001").
// The connection is established lazily on first use.
func NewSocketTransport(addr string) *SocketTransport {
	return &SocketTransport{addr: addr}
}

func (s *SocketTransport) ensureConnected() error {
	if s.conn != nil {
		return nil
	}
	if s.listener == nil {
		ln, err := net.Listen("tcp", s.addr)
		if err == nil {
			s.listener = ln
		} else {
			conn, dialErr := net.DialTimeout("tcp", s.addr, 100*time.Millisecond)
			if dialErr != nil {
				return ErrWouldBlock
			}
			s.conn = conn
			return nil
		}
	}
	if ln, ok := s.listener.(*net.TCPListener); ok {
		ln.SetDeadline(time.Now().Add(time.Millisecond))
	}
	conn, err := s.listener.Accept()
	if err != nil {
		return ErrWouldBlock
	}
	s.conn = conn
	return nil
}

func (s *SocketTransport) Send(b byte) error {
	if err := s.ensureConnected(); err != nil {
		return err
	}
	s.conn.SetWriteDeadline(time.Now().Add(time.Millisecond))
	_, err := s.conn.Write([]byte{b})
	return err
}

func (s *SocketTransport) Recv() (byte, error) {
	if err := s.ensureConnected(); err != nil {
		return 0, err
	}
	buf := [1]byte{}
	s.conn.SetReadDeadline(time.Now().Add(time.Millisecond))
	if _, err := s.conn.Read(buf[:]); err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return 0, ErrWouldBlock
		}
		s.conn.Close()
		s.conn = nil
		return 0, err
	}
	return buf[0], nil
}

// Close releases any underlying socket resources.
func (s *SocketTransport) Close() error {
	if s.conn != nil {
		s.conn.Close()
	}
	if s.listener != nil {
		s.listener.Close()
	}
	return nil
}

// Reset drops the listener and connection so the next transfer retries
// from a fresh connection attempt (spec.md section 7).
func (s *SocketTransport) Reset() {
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
	if s.listener != nil {
		s.listener.Close()
		s.listener = nil
	}
}
