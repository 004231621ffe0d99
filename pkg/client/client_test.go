package client

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rexliu/wvrpc/pkg/frame"
	"github.com/rexliu/wvrpc/pkg/host"
	"github.com/rexliu/wvrpc/pkg/protocol"
	"github.com/rexliu/wvrpc/pkg/window"
)

type session struct {
	client *Client
	window *window.Headless
	done   chan error
}

// startHost runs a host in-process and connects a client to it over pipes.
func startHost(t *testing.T, opts protocol.Options) *session {
	t.Helper()
	toHostR, toHostW := io.Pipe()
	fromHostR, fromHostW := io.Pipe()
	winCh := make(chan *window.Headless, 1)
	done := make(chan error, 1)
	go func() {
		err := host.Run(context.Background(), host.Config{
			Options:  opts,
			Framing:  frame.NDJSON,
			Version:  "2.0.0",
			In:       toHostR,
			Out:      fromHostW,
			OnWindow: func(w *window.Headless) { winCh <- w },
		})
		fromHostW.Close()
		done <- err
	}()
	s := &session{
		client: Connect(fromHostR, toHostW, frame.NDJSON, nil),
		window: <-winCh,
		done:   done,
	}
	t.Cleanup(func() { toHostW.Close() })
	select {
	case <-s.client.Started():
	case <-time.After(5 * time.Second):
		t.Fatal("host did not start")
	}
	return s
}

func (s *session) close(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.client.Close(ctx))
	require.NoError(t, <-s.done)
}

func TestClientTypedCalls(t *testing.T) {
	s := startHost(t, protocol.Options{Title: "first", Decorations: true})
	ctx := context.Background()
	c := s.client

	assert.Equal(t, "2.0.0", c.Version())

	version, err := c.GetVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2.0.0", version)

	require.NoError(t, c.SetTitle(ctx, "second"))
	title, err := c.GetTitle(ctx)
	require.NoError(t, err)
	assert.Equal(t, "second", title)

	require.NoError(t, c.SetVisibility(ctx, false))
	visible, err := c.IsVisible(ctx)
	require.NoError(t, err)
	assert.False(t, visible)

	require.NoError(t, c.SetSize(ctx, 500, 400))
	size, err := c.GetSize(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, protocol.SizeValue{Width: 500, Height: 400, ScaleFactor: 1}, size)
	outer, err := c.GetSize(ctx, true)
	require.NoError(t, err)
	assert.Greater(t, outer.Height, size.Height)

	require.NoError(t, c.Fullscreen(ctx, nil))
	require.NoError(t, c.Maximize(ctx, nil))
	off := false
	require.NoError(t, c.Minimize(ctx, &off))
	assert.True(t, s.window.IsFullscreen())
	assert.True(t, s.window.IsMaximized())
	assert.False(t, s.window.IsMinimized())

	require.NoError(t, c.Eval(ctx, "1+1"))
	origin := "docs"
	require.NoError(t, c.LoadHTML(ctx, "<p>hi</p>", &origin))
	assert.Equal(t, "<p>hi</p>", s.window.Document())
	require.NoError(t, c.LoadURL(ctx, "https://example.com", nil))

	err = c.OpenDevTools(ctx)
	var respErr *ResponseError
	require.ErrorAs(t, err, &respErr)
	assert.Equal(t, window.ErrDevToolsDisabled.Error(), respErr.Message)

	s.close(t)
}

func TestClientConcurrentCalls(t *testing.T) {
	s := startHost(t, protocol.Options{Title: "t"})
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			title := fmt.Sprintf("t%d", i)
			if err := s.client.SetTitle(ctx, title); err != nil {
				errs <- err
				return
			}
			if _, err := s.client.GetVersion(ctx); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
	s.close(t)
}

func TestClientNotifications(t *testing.T) {
	s := startHost(t, protocol.Options{Title: "t", IPC: true})

	ipcCh := make(chan protocol.Notification, 1)
	closedCh := make(chan protocol.Notification, 1)
	s.client.On("ipc", func(n protocol.Notification) { ipcCh <- n })
	s.client.On("closed", func(n protocol.Notification) { closedCh <- n })

	require.True(t, s.window.PostMessage("clicked"))
	select {
	case n := <-ipcCh:
		assert.Equal(t, protocol.Ipc{Message: "clicked"}, n)
	case <-time.After(5 * time.Second):
		t.Fatal("no ipc notification")
	}

	s.window.Close()
	select {
	case n := <-closedCh:
		assert.Equal(t, protocol.Closed{}, n)
	case <-time.After(5 * time.Second):
		t.Fatal("no closed notification")
	}
	require.NoError(t, <-s.done)
	<-s.client.Done()

	_, err := s.client.GetVersion(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
}

func TestClientCallHonoursContext(t *testing.T) {
	// A host that never answers.
	r, w := io.Pipe()
	defer w.Close()
	c := Connect(r, nopWriteCloser{io.Discard}, frame.NDJSON, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := c.GetVersion(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestClientRejectsDuplicateInFlightID(t *testing.T) {
	r, w := io.Pipe()
	defer w.Close()
	c := Connect(r, nopWriteCloser{io.Discard}, frame.NDJSON, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Call(ctx, protocol.GetVersion{ID: protocol.StringID("same")})
	require.Eventually(t, func() bool {
		c.mu.Lock()
		defer c.mu.Unlock()
		return len(c.pending) == 1
	}, time.Second, 5*time.Millisecond)
	_, err := c.Call(ctx, protocol.GetVersion{ID: protocol.StringID("same")})
	assert.ErrorContains(t, err, "already in flight")
}

func TestSpawn(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses sh")
	}
	script := `printf '%s\n' '{"$type":"notification","data":{"$type":"started","version":"9.9"}}'; cat >/dev/null`
	c, err := Spawn(context.Background(), SpawnConfig{
		Binary:  "sh",
		Args:    []string{"-c", script},
		Options: protocol.Options{Title: "t"},
	})
	require.NoError(t, err)
	select {
	case <-c.Started():
	case <-time.After(5 * time.Second):
		t.Fatal("not started")
	}
	assert.Equal(t, "9.9", c.Version())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, c.Close(ctx))
	require.NoError(t, c.Wait())
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }
