package client

import (
	"sync"

	"go.uber.org/zap"

	"github.com/rexliu/wvrpc/pkg/protocol"
)

// Handler receives notifications of the type it was registered for.
type Handler func(protocol.Notification)

const subscriptionBuffer = 64

// hub fans notifications out to subscribers. Each subscriber has its own
// goroutine so a handler may call back into the client.
type hub struct {
	log    *zap.SugaredLogger
	mu     sync.Mutex
	subs   map[string][]*subscription
	closed bool
}

type subscription struct {
	send chan protocol.Notification
}

func newHub(log *zap.SugaredLogger) *hub {
	return &hub{log: log, subs: make(map[string][]*subscription)}
}

func (h *hub) subscribe(typ string, handler Handler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	sub := &subscription{send: make(chan protocol.Notification, subscriptionBuffer)}
	h.subs[typ] = append(h.subs[typ], sub)
	go func() {
		for n := range sub.send {
			handler(n)
		}
	}()
}

func (h *hub) broadcast(n protocol.Notification) {
	typ := protocol.Type(n)
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	for _, sub := range h.subs[typ] {
		select {
		case sub.send <- n:
		default:
			h.log.Warnw("dropping notification for slow handler", "type", typ)
		}
	}
}

func (h *hub) close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for _, subs := range h.subs {
		for _, sub := range subs {
			close(sub.send)
		}
	}
}
