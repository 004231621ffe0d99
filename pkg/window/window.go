// Package window defines the surface the control loop drives and a headless
// implementation of it.
package window

import (
	"errors"

	"github.com/rexliu/wvrpc/pkg/protocol"
)

// ErrDevToolsDisabled is returned by OpenDevTools when the window was built
// without devtools.
var ErrDevToolsDisabled = errors.New("DevTools not enabled")

// EventKind enumerates window lifecycle events.
type EventKind int

const (
	// EventInit fires once when the window is ready.
	EventInit EventKind = iota
	// EventCloseRequested fires when the user or the platform asks to close.
	EventCloseRequested
)

func (k EventKind) String() string {
	switch k {
	case EventInit:
		return "init"
	case EventCloseRequested:
		return "closeRequested"
	default:
		return "unknown"
	}
}

// Event is delivered on Window.Events.
type Event struct {
	Kind EventKind
}

// Window is a top-level window with an embedded web renderer. Implementations
// are driven from a single goroutine.
type Window interface {
	Events() <-chan Event

	EvaluateScript(js string) error
	LoadURL(url string, headers map[string]string) error
	OpenDevTools() error

	SetTitle(title string)
	Title() string
	SetVisible(visible bool)
	IsVisible() bool

	InnerSize() protocol.Size
	OuterSize() protocol.Size
	ScaleFactor() float64
	SetInnerSize(size protocol.Size)

	SetFullscreen(fullscreen bool)
	IsFullscreen() bool
	SetMaximized(maximized bool)
	IsMaximized() bool
	SetMinimized(minimized bool)
	IsMinimized() bool
}
