package server

import (
	"net"
	"sync"
	"sync/atomic"
	"time"
)

// Connection owns one accepted socket. Its reader goroutine copies raw
// chunks into a bounded queue and never interprets them; the tick goroutine
// drains the queue.
type Connection struct {
	id   uint32
	conn net.Conn

	inbound      chan []byte
	closed       chan struct{}
	closeOnce    sync.Once
	alive        atomic.Bool
	peerEOF      atomic.Bool
	readBuf      int
	writeTimeout time.Duration
}

func newConnection(id uint32, c net.Conn, queue, readBuf int, writeTimeout time.Duration) *Connection {
	conn := &Connection{
		id:           id,
		conn:         c,
		inbound:      make(chan []byte, queue),
		closed:       make(chan struct{}),
		readBuf:      readBuf,
		writeTimeout: writeTimeout,
	}
	conn.alive.Store(true)
	return conn
}

// readLoop runs on its own goroutine until the socket fails or the
// connection is closed. A full queue blocks it, which applies TCP
// backpressure to the peer.
func (c *Connection) readLoop() {
	defer close(c.inbound)

	buf := make([]byte, c.readBuf)
	for {
		n, err := c.conn.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])

			select {
			case c.inbound <- chunk:
			case <-c.closed:
				return
			}
		}
		if err != nil {
			return
		}
	}
}

// Drain hands queued chunks to fn in arrival order without blocking. It
// stops after one queue's worth so a flooding peer cannot stall the tick.
// Seeing the queue closed sets PeerClosed; every chunk has been handed to fn
// by then.
func (c *Connection) Drain(fn func([]byte)) {
	for range cap(c.inbound) {
		select {
		case chunk, ok := <-c.inbound:
			if !ok {
				c.peerEOF.Store(true)
				return
			}
			fn(chunk)
		default:
			return
		}
	}
}

// Send writes b synchronously. A failed write closes the connection.
func (c *Connection) Send(b []byte) error {
	if !c.Alive() {
		return net.ErrClosed
	}
	if c.writeTimeout > 0 {
		c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	}
	if _, err := c.conn.Write(b); err != nil {
		c.Close()
		return err
	}
	return nil
}

// Alive reports whether the socket is still open on our side.
func (c *Connection) Alive() bool {
	return c.alive.Load()
}

// PeerClosed reports whether the peer stopped sending and all of its bytes
// were drained.
func (c *Connection) PeerClosed() bool {
	return c.peerEOF.Load()
}

func (c *Connection) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.alive.Store(false)
		close(c.closed)
		err = c.conn.Close()
	})
	return err
}
