package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/1broseidon/winquery/internal/backend"
)

// ErrConnectionLost is returned for commands whose response was never
// received because the connection closed.
var ErrConnectionLost = errors.New("ipc: connection lost")

// Client is a backend.Channel talking to a Server over one persistent
// connection. It is safe for concurrent use.
type Client struct {
	socketPath string
	timeout    time.Duration
	logger     *slog.Logger

	mu     sync.Mutex
	conn   *clientConn
	gen    uint64
	nextID uint64
	closed bool
}

// clientConn is one dialed connection and the requests awaiting a response
// on it. waiting is guarded by Client.mu and set to nil once the
// connection is gone.
type clientConn struct {
	net.Conn
	waiting map[uint64]chan *Response
}

var (
	_ backend.Channel      = (*Client)(nil)
	_ backend.Dispatcher   = (*Client)(nil)
	_ backend.Generational = (*Client)(nil)
)

// NewClient creates a client for the server at socketPath. The connection
// is dialed on first use.
func NewClient(socketPath string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Client{
		socketPath: socketPath,
		timeout:    5 * time.Second,
		logger:     logger,
	}
}

// Invoke implements backend.Channel.
func (c *Client) Invoke(ctx context.Context, command string, args ...string) (backend.Result, error) {
	p, err := c.Dispatch(ctx, command, args...)
	if err != nil {
		return backend.Result{}, err
	}
	return p.Wait()
}

// Dispatch implements backend.Dispatcher. The request is written before
// Dispatch returns; the response is awaited by the returned Pending.
func (c *Client) Dispatch(ctx context.Context, command string, args ...string) (backend.Pending, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, net.ErrClosed
	}

	c.nextID++
	id := c.nextID
	data, err := json.Marshal(Request{ID: id, Command: command, Args: args})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	data = append(data, '\n')

	ch := make(chan *Response, 1)
	cc, err := c.send(id, ch, data)
	if err != nil {
		return nil, err
	}

	return backend.Deferred(func() (backend.Result, error) {
		select {
		case resp, ok := <-ch:
			if !ok {
				return backend.Result{}, fmt.Errorf("%s: %w", command, ErrConnectionLost)
			}
			return resp.result(command)
		case <-ctx.Done():
			c.forget(cc, id)
			return backend.Result{}, ctx.Err()
		}
	}), nil
}

// send registers ch for id and writes data, dialing when needed. A write
// on a broken connection is retried once on a fresh one.
func (c *Client) send(id uint64, ch chan *Response, data []byte) (*clientConn, error) {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if c.conn == nil {
			if err := c.dial(); err != nil {
				return nil, err
			}
		}
		cc := c.conn
		cc.waiting[id] = ch
		cc.SetWriteDeadline(time.Now().Add(c.timeout))
		_, err := cc.Write(data)
		if err == nil {
			return cc, nil
		}
		delete(cc.waiting, id)
		lastErr = err
		c.logger.Debug("IPC write failed, redialing", "error", err)
		c.dropLocked(cc)
	}
	return nil, fmt.Errorf("failed to send request: %w", lastErr)
}

// Generation implements backend.Generational. It changes on every dial,
// since each connection gets a fresh server-side session.
func (c *Client) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen
}

func (c *Client) dial() error {
	conn, err := net.DialTimeout("unix", c.socketPath, c.timeout)
	if err != nil {
		return fmt.Errorf("failed to connect to server: %w (is winquery serve running?)", err)
	}
	cc := &clientConn{Conn: conn, waiting: make(map[uint64]chan *Response)}
	c.conn = cc
	c.gen++
	go c.readLoop(cc)
	return nil
}

// readLoop delivers responses until the connection fails.
func (c *Client) readLoop(cc *clientConn) {
	reader := bufio.NewReader(cc)
	for {
		line, err := reader.ReadBytes('\n')
		if err != nil {
			c.mu.Lock()
			c.dropLocked(cc)
			c.mu.Unlock()
			return
		}
		var resp Response
		if err := json.Unmarshal(line, &resp); err != nil {
			c.logger.Warn("failed to parse response", "error", err)
			continue
		}
		c.mu.Lock()
		ch, ok := cc.waiting[resp.ID]
		delete(cc.waiting, resp.ID)
		c.mu.Unlock()
		if ok {
			ch <- &resp
		}
	}
}

// dropLocked closes cc and fails its waiting requests.
func (c *Client) dropLocked(cc *clientConn) {
	if c.conn == cc {
		c.conn = nil
	}
	if cc.waiting == nil {
		return
	}
	cc.Close()
	for _, ch := range cc.waiting {
		close(ch)
	}
	cc.waiting = nil
}

func (c *Client) forget(cc *clientConn, id uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cc.waiting != nil {
		delete(cc.waiting, id)
	}
}

// Close closes the connection. Pending commands fail with
// ErrConnectionLost.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	if c.conn != nil {
		c.dropLocked(c.conn)
	}
	return nil
}
