package ipc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"

	"github.com/rexliu/wvrpc/pkg/frame"
	"github.com/rexliu/wvrpc/pkg/protocol"
)

// HandlerFunc runs one request. A nil value acknowledges it; an error is
// reported to the peer as an err response.
type HandlerFunc func(context.Context, protocol.Request) (protocol.Value, error)

// Server bridges a byte stream pair to the control loop: an inbound goroutine
// decodes requests into a queue and an outbound goroutine writes messages.
type Server struct {
	log    *zap.SugaredLogger
	reader frame.Reader
	writer *frame.Writer

	requests *Queue[protocol.Request]
	outbound *Queue[protocol.Message]

	mu       sync.RWMutex
	handlers map[string]HandlerFunc

	startOnce  sync.Once
	writerDone chan struct{}
	writeErr   error
}

// NewServer constructs a bridge over r and w using the given framing.
func NewServer(r io.Reader, w io.Writer, framing frame.Framing, log *zap.SugaredLogger) *Server {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Server{
		log:        log,
		reader:     frame.NewReader(r, framing),
		writer:     frame.NewWriter(w, framing),
		requests:   NewQueue[protocol.Request](),
		outbound:   NewQueue[protocol.Message](),
		handlers:   make(map[string]HandlerFunc),
		writerDone: make(chan struct{}),
	}
}

// Register installs a handler for a request op.
func (s *Server) Register(op string, handler HandlerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[op] = handler
}

func (s *Server) lookupHandler(op string) HandlerFunc {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.handlers[op]
}

// Requests is the queue the inbound goroutine fills. It is closed when the
// inbound stream ends or can no longer be framed.
func (s *Server) Requests() *Queue[protocol.Request] {
	return s.requests
}

// Start launches the inbound and outbound goroutines. Later calls are no-ops.
func (s *Server) Start() {
	s.startOnce.Do(func() {
		go s.readLoop()
		go s.writeLoop()
	})
}

// Send queues m for the peer. It is safe to call from any goroutine and
// reports false once the outbound side has shut down.
func (s *Server) Send(m protocol.Message) bool {
	return s.outbound.Push(m)
}

func (s *Server) readLoop() {
	defer s.requests.Close()
	for {
		data, err := s.reader.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				s.log.Debug("inbound stream ended")
			} else {
				s.log.Errorw("inbound stream failed", "error", err)
			}
			return
		}
		req, err := protocol.DecodeRequest(data)
		if err != nil {
			s.log.Warnw("skipping undecodable frame", "error", err, "frame", string(data))
			continue
		}
		s.requests.Push(req)
	}
}

func (s *Server) writeLoop() {
	defer close(s.writerDone)
	for {
		msg, err := s.outbound.Pop(context.Background())
		if err != nil {
			return
		}
		data, err := protocol.EncodeMessage(msg)
		if err != nil {
			s.log.Errorw("dropping unencodable message", "type", protocol.Type(msg), "error", err)
			continue
		}
		if err := s.writer.WriteFrame(data); err != nil {
			s.log.Errorw("outbound stream failed", "error", err)
			s.writeErr = err
			s.outbound.Close()
			return
		}
	}
}

// Dispatch runs the handler registered for req and returns its response.
func (s *Server) Dispatch(ctx context.Context, req protocol.Request) (resp protocol.Response) {
	id := req.RequestID()
	handler := s.lookupHandler(req.Op())
	if handler == nil {
		return protocol.Err{ID: id, Message: fmt.Sprintf("unsupported request %q", req.Op())}
	}
	defer func() {
		if r := recover(); r != nil {
			s.log.Errorw("handler panicked", "op", req.Op(), "id", id.String(), "panic", r)
			resp = protocol.Err{ID: id, Message: fmt.Sprintf("internal error: %v", r)}
		}
	}()
	value, err := handler(ctx, req)
	switch {
	case err != nil:
		return protocol.Err{ID: id, Message: err.Error()}
	case value == nil:
		return protocol.Ack{ID: id}
	default:
		return protocol.Result{ID: id, Value: value}
	}
}

// Shutdown closes the outbound queue and waits until every queued message
// has been written or ctx is done. It returns the write error, if any.
// Start must have been called.
func (s *Server) Shutdown(ctx context.Context) error {
	s.outbound.Close()
	select {
	case <-s.writerDone:
		return s.writeErr
	case <-ctx.Done():
		return fmt.Errorf("drain outbound: %w", ctx.Err())
	}
}
