package window

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rexliu/wvrpc/pkg/protocol"
)

func mustHeadless(t *testing.T, opts protocol.Options, hooks Hooks) *Headless {
	t.Helper()
	w, err := NewHeadless(opts, hooks)
	require.NoError(t, err)
	return w
}

func TestHeadlessEmitsInitThenCloseRequested(t *testing.T) {
	w := mustHeadless(t, protocol.Options{Title: "t", Decorations: true}, Hooks{})
	assert.Equal(t, Event{Kind: EventInit}, <-w.Events())
	w.Close()
	w.Close()
	assert.Equal(t, Event{Kind: EventCloseRequested}, <-w.Events())
	select {
	case ev := <-w.Events():
		t.Fatalf("unexpected event %v", ev.Kind)
	default:
	}
	assert.Error(t, w.EvaluateScript("1"))
}

func TestHeadlessStartupContent(t *testing.T) {
	t.Run("html", func(t *testing.T) {
		slot := NewContentSlot()
		w := mustHeadless(t, protocol.Options{
			Title: "t",
			Load:  protocol.HTMLContent{HTML: "<h1>hi</h1>", Origin: "app"},
		}, Hooks{Content: slot})
		u, _ := w.URL()
		assert.Equal(t, "load-html://app", u)
		assert.Equal(t, "<h1>hi</h1>", w.Document())
		assert.Equal(t, "app", slot.Origin())
	})

	t.Run("html without slot", func(t *testing.T) {
		_, err := NewHeadless(protocol.Options{Load: protocol.HTMLContent{HTML: "x"}}, Hooks{})
		assert.Error(t, err)
	})

	t.Run("url", func(t *testing.T) {
		w := mustHeadless(t, protocol.Options{
			Title:                "t",
			Load:                 protocol.URLContent{URL: "https://example.com", Headers: map[string]string{"X-A": "1"}},
			InitializationScript: "window.ready = true",
		}, Hooks{})
		u, headers := w.URL()
		assert.Equal(t, "https://example.com", u)
		assert.Equal(t, map[string]string{"X-A": "1"}, headers)
		assert.Equal(t, []string{"window.ready = true"}, w.Scripts())
	})

	t.Run("bad url", func(t *testing.T) {
		_, err := NewHeadless(protocol.Options{Load: protocol.URLContent{URL: "not a url"}}, Hooks{})
		assert.Error(t, err)
	})
}

func TestHeadlessSizes(t *testing.T) {
	w := mustHeadless(t, protocol.Options{
		Title:       "t",
		Decorations: true,
		Size:        &protocol.WindowSize{Mode: protocol.SizeLogical, Width: 640, Height: 480},
	}, Hooks{})
	assert.Equal(t, protocol.Size{Width: 640, Height: 480}, w.InnerSize())
	assert.Equal(t, protocol.Size{Width: 640, Height: 480 + titleBarHeight}, w.OuterSize())

	w.SetMaximized(true)
	assert.Equal(t, protocol.Size{Width: screenWidth, Height: screenHeight - titleBarHeight}, w.InnerSize())
	w.SetFullscreen(true)
	assert.Equal(t, protocol.Size{Width: screenWidth, Height: screenHeight}, w.OuterSize())
	w.SetFullscreen(false)
	w.SetMaximized(false)
	assert.Equal(t, protocol.Size{Width: 640, Height: 480}, w.InnerSize())

	undecorated := mustHeadless(t, protocol.Options{Title: "t"}, Hooks{})
	assert.Equal(t, undecorated.InnerSize(), undecorated.OuterSize())
}

func TestHeadlessStartupSizeModes(t *testing.T) {
	w := mustHeadless(t, protocol.Options{Size: &protocol.WindowSize{Mode: protocol.SizeFullscreen}}, Hooks{})
	assert.True(t, w.IsFullscreen())
	w = mustHeadless(t, protocol.Options{Size: &protocol.WindowSize{Mode: protocol.SizeMaximized}}, Hooks{})
	assert.True(t, w.IsMaximized())
}

func TestHeadlessDevTools(t *testing.T) {
	w := mustHeadless(t, protocol.Options{}, Hooks{})
	assert.ErrorIs(t, w.OpenDevTools(), ErrDevToolsDisabled)
	assert.False(t, w.DevToolsOpen())

	w = mustHeadless(t, protocol.Options{Devtools: true}, Hooks{})
	require.NoError(t, w.OpenDevTools())
	assert.True(t, w.DevToolsOpen())
}

func TestHeadlessPostMessage(t *testing.T) {
	var got []string
	hooks := Hooks{OnIPC: func(m string) { got = append(got, m) }}

	w := mustHeadless(t, protocol.Options{}, hooks)
	assert.False(t, w.PostMessage("ignored"))

	w = mustHeadless(t, protocol.Options{IPC: true}, hooks)
	assert.True(t, w.PostMessage("hello"))
	assert.Equal(t, []string{"hello"}, got)
}

func TestContentSlot(t *testing.T) {
	slot := NewContentSlot()
	assert.Equal(t, protocol.DefaultOrigin, slot.Origin())

	origin := "app"
	assert.Equal(t, "app", slot.Replace("<a/>", &origin))
	assert.Equal(t, "app", slot.Replace("<b/>", nil))
	assert.Equal(t, "<b/>", slot.HTML())

	assert.Equal(t, "load-html://app?7", ContentURL("app", "7"))
	assert.Equal(t, "load-html://init", ContentURL("init", ""))
}

func TestLoadURLRejectsBadHeaders(t *testing.T) {
	w := mustHeadless(t, protocol.Options{}, Hooks{})
	assert.Error(t, w.LoadURL("https://example.com", map[string]string{"Bad Name": "x"}))
}
