package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"

	"go.uber.org/zap"

	"github.com/rexliu/wvrpc/pkg/frame"
	"github.com/rexliu/wvrpc/pkg/protocol"
)

// EnvBinary overrides the host binary used by Spawn.
const EnvBinary = "WEBVIEW_BIN"

// SpawnConfig describes how to start a host process.
type SpawnConfig struct {
	// Binary defaults to $WEBVIEW_BIN, then "webview" on PATH.
	Binary string
	// Args go before the options document.
	Args    []string
	Options protocol.Options
	Framing frame.Framing
	Stderr  io.Writer
	Log     *zap.SugaredLogger
}

// Spawn starts a host process with the given options and connects to it.
func Spawn(ctx context.Context, cfg SpawnConfig) (*Client, error) {
	binary := cfg.Binary
	if binary == "" {
		binary = os.Getenv(EnvBinary)
	}
	if binary == "" {
		binary = "webview"
	}
	opts, err := json.Marshal(cfg.Options)
	if err != nil {
		return nil, fmt.Errorf("marshal options: %w", err)
	}
	args := append(append([]string(nil), cfg.Args...), string(opts))
	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.Stderr = cfg.Stderr
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", binary, err)
	}

	c := Connect(stdout, stdin, cfg.Framing, cfg.Log)
	c.wait = sync.OnceValue(func() error {
		err := cmd.Wait()
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return fmt.Errorf("host exited with code %d", exitErr.ExitCode())
		}
		return err
	})
	return c, nil
}
