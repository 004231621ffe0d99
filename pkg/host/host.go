// Package host runs a window behind the stdin/stdout request protocol.
package host

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/rexliu/wvrpc/pkg/frame"
	"github.com/rexliu/wvrpc/pkg/ipc"
	"github.com/rexliu/wvrpc/pkg/protocol"
	"github.com/rexliu/wvrpc/pkg/window"
)

// Version is reported by getVersion and the started notification.
var Version = "0.3.0"

// Config wires a host session.
type Config struct {
	Options protocol.Options
	Framing frame.Framing
	Version string
	In      io.Reader
	Out     io.Writer
	Log     *zap.SugaredLogger

	// OnWindow, if set, sees the window before the loop starts.
	OnWindow func(*window.Headless)
}

// Run creates the window and serves requests until the session ends.
func Run(ctx context.Context, cfg Config) error {
	log := cfg.Log
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	version := cfg.Version
	if version == "" {
		version = Version
	}

	srv := ipc.NewServer(cfg.In, cfg.Out, cfg.Framing, log.Named("server"))
	content := window.NewContentSlot()
	win, err := window.NewHeadless(cfg.Options, window.Hooks{
		Content: content,
		OnIPC: func(message string) {
			srv.Send(protocol.Ipc{Message: message})
		},
	})
	if err != nil {
		return fmt.Errorf("create window: %w", err)
	}
	if cfg.OnWindow != nil {
		cfg.OnWindow(win)
	}

	New(win, content, version).RegisterHandlers(srv)
	log.Infow("starting webview", "title", cfg.Options.Title, "framing", cfg.Framing, "version", version)
	if err := ipc.NewLoop(srv, win, version, log.Named("loop")).Run(ctx); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}
	return nil
}
