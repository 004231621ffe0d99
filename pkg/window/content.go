package window

import (
	"fmt"
	"sync"

	"github.com/rexliu/wvrpc/pkg/protocol"
)

// ContentScheme is the custom protocol inline html is served from.
const ContentScheme = "load-html"

// ContentSlot holds the pending inline html and its origin. It is shared by
// the request handlers, which replace it, and the content protocol, which
// reads it.
type ContentSlot struct {
	mu     sync.Mutex
	html   string
	origin string
}

// NewContentSlot returns an empty slot with the default origin.
func NewContentSlot() *ContentSlot {
	return &ContentSlot{origin: protocol.DefaultOrigin}
}

// Replace stores html. A nil origin keeps the current one. The effective
// origin is returned.
func (s *ContentSlot) Replace(html string, origin *string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.html = html
	if origin != nil {
		s.origin = *origin
	}
	return s.origin
}

// HTML returns the current html body.
func (s *ContentSlot) HTML() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.html
}

// Origin returns the current origin.
func (s *ContentSlot) Origin() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.origin
}

// ContentURL returns the URL that serves the slot under origin. A non-empty
// nonce forces a reload when the origin is unchanged.
func ContentURL(origin, nonce string) string {
	if nonce == "" {
		return fmt.Sprintf("%s://%s", ContentScheme, origin)
	}
	return fmt.Sprintf("%s://%s?%s", ContentScheme, origin, nonce)
}
