package relay

import (
	"bufio"
	"io"
	"net"
	"sync"
	"time"
)

const (
	// Maximum message size allowed from a peer
	maxLineBytes = 512 * 1024 // 512KB

	// initialScanBuffer is the starting line buffer size
	initialScanBuffer = 64 * 1024
)

// LineConn is a stream transport carrying newline-delimited messages.
// The TCP listener and the WebSocket bridge both present connections
// through this interface, so sessions never care which transport a
// client arrived on.
type LineConn interface {
	// ReadLine blocks until one full message line is available and
	// returns it without the trailing newline. io.EOF signals a clean
	// peer close.
	ReadLine() ([]byte, error)

	// WriteLine writes one message within the configured write bound.
	// The line is newline-terminated on the wire whether or not the
	// caller included one.
	WriteLine(line []byte) error

	// Close releases the underlying connection. Safe to call more
	// than once.
	Close() error

	// RemoteAddr describes the peer for logging.
	RemoteAddr() string
}

// tcpLineConn adapts a net.Conn to the line transport.
type tcpLineConn struct {
	conn         net.Conn
	scanner      *bufio.Scanner
	writeTimeout time.Duration

	writeMu sync.Mutex
}

// NewLineConn wraps a stream connection in the newline framing. Writes
// that do not complete within writeTimeout fail, so a stalled peer
// cannot block its session indefinitely.
func NewLineConn(conn net.Conn, writeTimeout time.Duration) LineConn {
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, initialScanBuffer), maxLineBytes)
	return &tcpLineConn{
		conn:         conn,
		scanner:      scanner,
		writeTimeout: writeTimeout,
	}
}

func (c *tcpLineConn) ReadLine() ([]byte, error) {
	if !c.scanner.Scan() {
		if err := c.scanner.Err(); err != nil {
			return nil, err
		}
		return nil, io.EOF
	}
	// The scanner reuses its buffer on the next Scan.
	line := make([]byte, len(c.scanner.Bytes()))
	copy(line, c.scanner.Bytes())
	return line, nil
}

func (c *tcpLineConn) WriteLine(line []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.writeTimeout > 0 {
		if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
			return err
		}
	}
	if len(line) == 0 || line[len(line)-1] != '\n' {
		// Terminate into a fresh buffer; appending in place could
		// scribble on the caller's backing array.
		terminated := make([]byte, len(line)+1)
		copy(terminated, line)
		terminated[len(line)] = '\n'
		line = terminated
	}
	_, err := c.conn.Write(line)
	return err
}

func (c *tcpLineConn) Close() error {
	return c.conn.Close()
}

func (c *tcpLineConn) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}
