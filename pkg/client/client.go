// Package client drives a webview host from the parent side: it assigns
// request ids, matches responses and dispatches notifications.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/rexliu/wvrpc/pkg/frame"
	"github.com/rexliu/wvrpc/pkg/protocol"
)

// ErrClosed is returned for calls that cannot complete because the host's
// output ended.
var ErrClosed = errors.New("client: connection closed")

// ResponseError is a request the host answered with an err response.
type ResponseError struct {
	ID      protocol.ID
	Message string
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("webview error: %s", e.Message)
}

// Client is safe for concurrent use.
type Client struct {
	log    *zap.SugaredLogger
	reader frame.Reader
	writer *frame.Writer
	stdin  io.Closer

	nextID atomic.Int64

	mu      sync.Mutex
	pending map[protocol.ID]chan protocol.Response
	closed  bool

	events    *hub
	started   chan struct{}
	startOnce sync.Once
	version   atomic.Value
	done      chan struct{}
	readErr   error

	wait func() error
}

// Connect attaches a client to a running host: r is the host's stdout and w
// its stdin.
func Connect(r io.Reader, w io.WriteCloser, framing frame.Framing, log *zap.SugaredLogger) *Client {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	c := &Client{
		log:     log,
		reader:  frame.NewReader(r, framing),
		writer:  frame.NewWriter(w, framing),
		stdin:   w,
		pending: make(map[protocol.ID]chan protocol.Response),
		events:  newHub(log),
		started: make(chan struct{}),
		done:    make(chan struct{}),
	}
	go c.readLoop()
	return c
}

// On registers handler for a notification type: "started", "ipc" or "closed".
func (c *Client) On(typ string, handler Handler) {
	c.events.subscribe(typ, handler)
}

// Started is closed once the host reported it is up.
func (c *Client) Started() <-chan struct{} {
	return c.started
}

// Version returns the version from the started notification.
func (c *Client) Version() string {
	v, _ := c.version.Load().(string)
	return v
}

// Done is closed when the host's output ends.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

func (c *Client) readLoop() {
	defer close(c.done)
	defer c.events.close()
	for {
		data, err := c.reader.Next()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				c.log.Errorw("host output failed", "error", err)
				c.readErr = err
			}
			c.failPending()
			return
		}
		msg, err := protocol.DecodeMessage(data)
		if err != nil {
			c.log.Warnw("skipping undecodable message", "error", err, "frame", string(data))
			continue
		}
		switch m := msg.(type) {
		case protocol.Response:
			c.deliver(m)
		case protocol.Notification:
			if s, ok := m.(protocol.Started); ok {
				c.version.Store(s.Version)
				c.startOnce.Do(func() { close(c.started) })
			}
			c.events.broadcast(m)
		}
	}
}

func (c *Client) deliver(resp protocol.Response) {
	c.mu.Lock()
	ch, ok := c.pending[resp.ResponseID()]
	delete(c.pending, resp.ResponseID())
	c.mu.Unlock()
	if !ok {
		c.log.Warnw("response for unknown request", "id", resp.ResponseID().String())
		return
	}
	ch <- resp
}

func (c *Client) failPending() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	for id, ch := range c.pending {
		close(ch)
		delete(c.pending, id)
	}
}

// NextID returns a fresh integer request id.
func (c *Client) NextID() protocol.ID {
	return protocol.IntID(c.nextID.Add(1))
}

// Call sends req and waits for the matching response. The request id must
// not be in flight already.
func (c *Client) Call(ctx context.Context, req protocol.Request) (protocol.Response, error) {
	data, err := protocol.EncodeRequest(req)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", req.Op(), err)
	}
	id := req.RequestID()
	ch := make(chan protocol.Response, 1)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	if _, busy := c.pending[id]; busy {
		c.mu.Unlock()
		return nil, fmt.Errorf("request id %s already in flight", id)
	}
	c.pending[id] = ch
	c.mu.Unlock()

	if err := c.writer.WriteFrame(data); err != nil {
		c.forget(id)
		return nil, fmt.Errorf("write %s: %w", req.Op(), err)
	}

	select {
	case resp, ok := <-ch:
		if !ok {
			return nil, ErrClosed
		}
		return resp, nil
	case <-ctx.Done():
		c.forget(id)
		return nil, ctx.Err()
	}
}

func (c *Client) forget(id protocol.ID) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

// call runs a request and turns an err response into a *ResponseError.
func (c *Client) call(ctx context.Context, req protocol.Request) (protocol.Value, error) {
	resp, err := c.Call(ctx, req)
	if err != nil {
		return nil, err
	}
	switch r := resp.(type) {
	case protocol.Ack:
		return nil, nil
	case protocol.Result:
		return r.Value, nil
	case protocol.Err:
		return nil, &ResponseError{ID: r.ID, Message: r.Message}
	default:
		return nil, fmt.Errorf("unexpected response %T", resp)
	}
}

// Close ends the host's input, which makes it exit, and waits for its output
// to end.
func (c *Client) Close(ctx context.Context) error {
	if err := c.stdin.Close(); err != nil {
		c.log.Debugw("closing host input", "error", err)
	}
	select {
	case <-c.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return c.Wait()
}

// Wait blocks until the host's output ends and, for spawned hosts, the
// process exits.
func (c *Client) Wait() error {
	<-c.done
	if c.wait != nil {
		if err := c.wait(); err != nil {
			return err
		}
	}
	return c.readErr
}
