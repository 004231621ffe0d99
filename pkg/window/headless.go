package window

import (
	"errors"
	"fmt"
	"net/url"
	"sync"

	"github.com/rexliu/wvrpc/pkg/protocol"
)

const (
	defaultWidth     = 800
	defaultHeight    = 600
	screenWidth      = 1920
	screenHeight     = 1080
	titleBarHeight   = 28
	eventChannelSize = 16
)

// Hooks connect a headless window to its host.
type Hooks struct {
	// OnIPC receives messages posted by page script. Only called when the
	// window was built with ipc enabled.
	OnIPC func(message string)
	// Content serves load-html:// URLs. A nil slot makes such loads fail.
	Content *ContentSlot
}

// Headless is an in-memory Window. It keeps the state a real window would
// report back and records what was loaded and evaluated.
type Headless struct {
	opts  protocol.Options
	hooks Hooks

	events chan Event

	mu           sync.Mutex
	title        string
	visible      bool
	inner        protocol.Size
	scale        float64
	fullscreen   bool
	maximized    bool
	minimized    bool
	devtoolsOpen bool
	url          string
	headers      map[string]string
	document     string
	scripts      []string
	closed       bool
}

// NewHeadless builds a window from startup options and queues EventInit.
func NewHeadless(opts protocol.Options, hooks Hooks) (*Headless, error) {
	w := &Headless{
		opts:    opts,
		hooks:   hooks,
		events:  make(chan Event, eventChannelSize),
		title:   opts.Title,
		visible: true,
		inner:   protocol.Size{Width: defaultWidth, Height: defaultHeight},
		scale:   1,
	}
	if size := opts.Size; size != nil {
		switch size.Mode {
		case protocol.SizeMaximized:
			w.maximized = true
		case protocol.SizeFullscreen:
			w.fullscreen = true
		default:
			w.inner = protocol.Size{Width: size.Width, Height: size.Height}
		}
	}
	switch c := opts.Load.(type) {
	case protocol.URLContent:
		if err := w.LoadURL(c.URL, c.Headers); err != nil {
			return nil, err
		}
	case protocol.HTMLContent:
		if hooks.Content == nil {
			return nil, errors.New("html content requires a content slot")
		}
		origin := hooks.Content.Replace(c.HTML, &c.Origin)
		if err := w.LoadURL(ContentURL(origin, ""), nil); err != nil {
			return nil, err
		}
	}
	w.events <- Event{Kind: EventInit}
	return w, nil
}

func (w *Headless) Events() <-chan Event {
	return w.events
}

// Close requests the window to close, as clicking the close button would.
// Only the first call queues EventCloseRequested.
func (w *Headless) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	w.closed = true
	select {
	case w.events <- Event{Kind: EventCloseRequested}:
	default:
	}
}

// PostMessage simulates page script calling window.ipc.postMessage.
func (w *Headless) PostMessage(message string) bool {
	if !w.opts.IPC || w.hooks.OnIPC == nil {
		return false
	}
	w.hooks.OnIPC(message)
	return true
}

func (w *Headless) EvaluateScript(js string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return errors.New("window closed")
	}
	w.scripts = append(w.scripts, js)
	return nil
}

// LoadURL navigates the page. load-html:// URLs are served from the content slot.
func (w *Headless) LoadURL(rawURL string, headers map[string]string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	if u.Scheme == "" {
		return fmt.Errorf("invalid url %q: relative URL without a base", rawURL)
	}
	if err := protocol.ValidateHeaders(headers); err != nil {
		return err
	}
	document := ""
	if u.Scheme == ContentScheme {
		if w.hooks.Content == nil {
			return fmt.Errorf("no handler for %s://", ContentScheme)
		}
		document = w.hooks.Content.HTML()
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.url, w.headers, w.document = rawURL, headers, document
	if w.opts.InitializationScript != "" {
		w.scripts = append(w.scripts, w.opts.InitializationScript)
	}
	return nil
}

func (w *Headless) OpenDevTools() error {
	if !w.opts.Devtools {
		return ErrDevToolsDisabled
	}
	w.mu.Lock()
	w.devtoolsOpen = true
	w.mu.Unlock()
	return nil
}

func (w *Headless) SetTitle(title string) {
	w.mu.Lock()
	w.title = title
	w.mu.Unlock()
}

func (w *Headless) Title() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.title
}

func (w *Headless) SetVisible(visible bool) {
	w.mu.Lock()
	w.visible = visible
	w.mu.Unlock()
}

func (w *Headless) IsVisible() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.visible
}

func (w *Headless) decorationHeight() float64 {
	if !w.opts.Decorations || w.fullscreen {
		return 0
	}
	return titleBarHeight
}

func (w *Headless) InnerSize() protocol.Size {
	w.mu.Lock()
	defer w.mu.Unlock()
	switch {
	case w.fullscreen:
		return protocol.Size{Width: screenWidth, Height: screenHeight}
	case w.maximized:
		return protocol.Size{Width: screenWidth, Height: screenHeight - w.decorationHeight()}
	}
	return w.inner
}

func (w *Headless) OuterSize() protocol.Size {
	inner := w.InnerSize()
	w.mu.Lock()
	defer w.mu.Unlock()
	return protocol.Size{Width: inner.Width, Height: inner.Height + w.decorationHeight()}
}

func (w *Headless) ScaleFactor() float64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.scale
}

// SetScaleFactor emulates moving the window to a display with another scale.
func (w *Headless) SetScaleFactor(scale float64) {
	w.mu.Lock()
	w.scale = scale
	w.mu.Unlock()
}

func (w *Headless) SetInnerSize(size protocol.Size) {
	w.mu.Lock()
	w.inner = size
	w.mu.Unlock()
}

func (w *Headless) SetFullscreen(fullscreen bool) {
	w.mu.Lock()
	w.fullscreen = fullscreen
	w.mu.Unlock()
}

func (w *Headless) IsFullscreen() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.fullscreen
}

func (w *Headless) SetMaximized(maximized bool) {
	w.mu.Lock()
	w.maximized = maximized
	w.mu.Unlock()
}

func (w *Headless) IsMaximized() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.maximized
}

func (w *Headless) SetMinimized(minimized bool) {
	w.mu.Lock()
	w.minimized = minimized
	w.mu.Unlock()
}

func (w *Headless) IsMinimized() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.minimized
}

// DevToolsOpen reports whether OpenDevTools succeeded.
func (w *Headless) DevToolsOpen() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.devtoolsOpen
}

// URL returns the last loaded URL and its request headers.
func (w *Headless) URL() (string, map[string]string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.url, w.headers
}

// Document returns the html served for the current load-html:// URL.
func (w *Headless) Document() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.document
}

// Scripts returns every script evaluated so far, initialization scripts included.
func (w *Headless) Scripts() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.scripts...)
}

var _ Window = (*Headless)(nil)
