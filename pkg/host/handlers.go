package host

import (
	"context"
	"fmt"

	"github.com/rexliu/wvrpc/pkg/ipc"
	"github.com/rexliu/wvrpc/pkg/protocol"
	"github.com/rexliu/wvrpc/pkg/window"
)

// Host answers requests against one window.
type Host struct {
	window  window.Window
	content *window.ContentSlot
	version string
}

func New(win window.Window, content *window.ContentSlot, version string) *Host {
	return &Host{window: win, content: content, version: version}
}

// RegisterHandlers installs a handler for every request op.
func (h *Host) RegisterHandlers(srv *ipc.Server) {
	srv.Register(protocol.OpGetVersion, h.handleGetVersion)
	srv.Register(protocol.OpEval, h.handleEval)
	srv.Register(protocol.OpSetTitle, h.handleSetTitle)
	srv.Register(protocol.OpGetTitle, h.handleGetTitle)
	srv.Register(protocol.OpSetVisibility, h.handleSetVisibility)
	srv.Register(protocol.OpIsVisible, h.handleIsVisible)
	srv.Register(protocol.OpOpenDevTools, h.handleOpenDevTools)
	srv.Register(protocol.OpGetSize, h.handleGetSize)
	srv.Register(protocol.OpSetSize, h.handleSetSize)
	srv.Register(protocol.OpFullscreen, h.handleFullscreen)
	srv.Register(protocol.OpMaximize, h.handleMaximize)
	srv.Register(protocol.OpMinimize, h.handleMinimize)
	srv.Register(protocol.OpLoadHTML, h.handleLoadHTML)
	srv.Register(protocol.OpLoadURL, h.handleLoadURL)
}

func (h *Host) handleGetVersion(context.Context, protocol.Request) (protocol.Value, error) {
	return protocol.StringValue(h.version), nil
}

func (h *Host) handleEval(_ context.Context, req protocol.Request) (protocol.Value, error) {
	return nil, h.window.EvaluateScript(req.(protocol.Eval).JS)
}

func (h *Host) handleSetTitle(_ context.Context, req protocol.Request) (protocol.Value, error) {
	h.window.SetTitle(req.(protocol.SetTitle).Title)
	return nil, nil
}

func (h *Host) handleGetTitle(context.Context, protocol.Request) (protocol.Value, error) {
	return protocol.StringValue(h.window.Title()), nil
}

func (h *Host) handleSetVisibility(_ context.Context, req protocol.Request) (protocol.Value, error) {
	h.window.SetVisible(req.(protocol.SetVisibility).Visible)
	return nil, nil
}

func (h *Host) handleIsVisible(context.Context, protocol.Request) (protocol.Value, error) {
	return protocol.BoolValue(h.window.IsVisible()), nil
}

func (h *Host) handleOpenDevTools(context.Context, protocol.Request) (protocol.Value, error) {
	return nil, h.window.OpenDevTools()
}

func (h *Host) handleGetSize(_ context.Context, req protocol.Request) (protocol.Value, error) {
	size := h.window.InnerSize()
	if inc := req.(protocol.GetSize).IncludeDecorations; inc != nil && *inc {
		size = h.window.OuterSize()
	}
	return protocol.SizeValue{
		Width:       size.Width,
		Height:      size.Height,
		ScaleFactor: h.window.ScaleFactor(),
	}, nil
}

func (h *Host) handleSetSize(_ context.Context, req protocol.Request) (protocol.Value, error) {
	size := req.(protocol.SetSize).Size
	if size.Width < 0 || size.Height < 0 {
		return nil, fmt.Errorf("invalid size %gx%g", size.Width, size.Height)
	}
	h.window.SetInnerSize(size)
	return nil, nil
}

// toggle resolves an optional flag against the current state.
func toggle(flag *bool, current bool) bool {
	if flag != nil {
		return *flag
	}
	return !current
}

func (h *Host) handleFullscreen(_ context.Context, req protocol.Request) (protocol.Value, error) {
	h.window.SetFullscreen(toggle(req.(protocol.Fullscreen).Fullscreen, h.window.IsFullscreen()))
	return nil, nil
}

func (h *Host) handleMaximize(_ context.Context, req protocol.Request) (protocol.Value, error) {
	h.window.SetMaximized(toggle(req.(protocol.Maximize).Maximized, h.window.IsMaximized()))
	return nil, nil
}

func (h *Host) handleMinimize(_ context.Context, req protocol.Request) (protocol.Value, error) {
	h.window.SetMinimized(toggle(req.(protocol.Minimize).Minimized, h.window.IsMinimized()))
	return nil, nil
}

func (h *Host) handleLoadHTML(_ context.Context, req protocol.Request) (protocol.Value, error) {
	r := req.(protocol.LoadHTML)
	origin := h.content.Replace(r.HTML, r.Origin)
	return nil, h.window.LoadURL(window.ContentURL(origin, r.ID.String()), nil)
}

func (h *Host) handleLoadURL(_ context.Context, req protocol.Request) (protocol.Value, error) {
	r := req.(protocol.LoadURL)
	return nil, h.window.LoadURL(r.URL, r.Headers)
}
