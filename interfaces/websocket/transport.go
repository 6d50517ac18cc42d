package websocket

import (
	"bytes"
	"io"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"ideaboard-backend/interfaces/relay"
)

// lineConn adapts a websocket connection to the relay's line
// transport: one text message per line, no embedded newlines.
type lineConn struct {
	conn         *websocket.Conn
	writeTimeout time.Duration

	writeMu sync.Mutex
}

func newLineConn(conn *websocket.Conn, writeTimeout time.Duration) relay.LineConn {
	return &lineConn{conn: conn, writeTimeout: writeTimeout}
}

func (c *lineConn) ReadLine() ([]byte, error) {
	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil, io.EOF
			}
			return nil, err
		}
		if messageType != websocket.TextMessage {
			// Binary frames are not part of the protocol.
			continue
		}
		return bytes.TrimRight(data, "\n"), nil
	}
}

func (c *lineConn) WriteLine(line []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.writeTimeout > 0 {
		if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
			return err
		}
	}
	return c.conn.WriteMessage(websocket.TextMessage, bytes.TrimRight(line, "\n"))
}

func (c *lineConn) Close() error {
	return c.conn.Close()
}

func (c *lineConn) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}
