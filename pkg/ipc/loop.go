package ipc

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/rexliu/wvrpc/pkg/ids"
	"github.com/rexliu/wvrpc/pkg/protocol"
	"github.com/rexliu/wvrpc/pkg/window"
)

// DefaultDrainTimeout bounds how long Run waits for queued messages to be
// written after the loop stops.
const DefaultDrainTimeout = 5 * time.Second

// State is the control loop state.
type State int

const (
	StateRunning State = iota
	StateExiting
)

func (s State) String() string {
	if s == StateExiting {
		return "exiting"
	}
	return "running"
}

// Loop is the control loop. It owns the window: every request is dispatched
// from the goroutine running Run.
type Loop struct {
	server       *Server
	window       window.Window
	version      string
	log          *zap.SugaredLogger
	state        State
	DrainTimeout time.Duration
}

func NewLoop(server *Server, win window.Window, version string, log *zap.SugaredLogger) *Loop {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Loop{
		server:       server,
		window:       win,
		version:      version,
		log:          log,
		DrainTimeout: DefaultDrainTimeout,
	}
}

// State returns the current state. Only meaningful from the Run goroutine or
// after Run returned.
func (l *Loop) State() State {
	return l.state
}

// Run starts the server and processes window events and requests until the
// window asks to close, the inbound stream ends or ctx is done. The closed
// notification is written before Run returns.
func (l *Loop) Run(ctx context.Context) error {
	l.server.Start()
	requests := l.server.Requests()
	events := l.window.Events()

	for l.state == StateRunning {
		// Window events go first so started precedes any response.
		select {
		case ev := <-events:
			l.handleEvent(ev)
			continue
		default:
		}

		select {
		case ev := <-events:
			l.handleEvent(ev)
		case <-requests.Ready():
			l.drain(ctx, requests)
			if requests.Drained() {
				l.log.Info("request stream closed")
				l.state = StateExiting
			}
		case <-ctx.Done():
			l.log.Infow("context done", "error", ctx.Err())
			l.state = StateExiting
		}
	}
	return l.exit()
}

func (l *Loop) handleEvent(ev window.Event) {
	switch ev.Kind {
	case window.EventInit:
		l.log.Infow("window initialized", "version", l.version)
		l.server.Send(protocol.Started{Version: l.version})
	case window.EventCloseRequested:
		l.log.Info("window close requested")
		l.state = StateExiting
	}
}

// drain dispatches the requests queued at this moment.
func (l *Loop) drain(ctx context.Context, requests *Queue[protocol.Request]) {
	for {
		req, ok := requests.TryPop()
		if !ok {
			return
		}
		trace := ids.NewTraceID()
		l.log.Debugw("dispatching request", "op", req.Op(), "id", req.RequestID().String(), "trace", trace)
		resp := l.server.Dispatch(ctx, req)
		if e, ok := resp.(protocol.Err); ok {
			l.log.Warnw("request failed", "op", req.Op(), "trace", trace, "error", e.Message)
		}
		l.server.Send(resp)
	}
}

func (l *Loop) exit() error {
	l.server.Send(protocol.Closed{})
	ctx, cancel := context.WithTimeout(context.Background(), l.DrainTimeout)
	defer cancel()
	return l.server.Shutdown(ctx)
}
