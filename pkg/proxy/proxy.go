// Package proxy relays framed JSON between a parent and a spawned child,
// teeing what the parent sends to a side file.
package proxy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rexliu/wvrpc/pkg/frame"
	"github.com/rexliu/wvrpc/pkg/ids"
	"github.com/rexliu/wvrpc/pkg/ipc"
	"github.com/rexliu/wvrpc/pkg/journal"
)

// Config describes one proxy run.
type Config struct {
	// Command is run through the platform shell.
	Command string
	// OutputFile receives every frame read from the parent, one per line.
	// It is truncated at start. Empty disables the tee.
	OutputFile string
	Framing    frame.Framing
	// Journal, if set, records frames in both directions.
	Journal *journal.Store
	// Stderr receives the child's stderr. Defaults to os.Stderr.
	Stderr io.Writer
	Log    *zap.SugaredLogger
}

// Outcome reports how the child ended.
type Outcome struct {
	ExitCode int
	Duration time.Duration
	Session  string
}

// shellCommand runs command through sh -c, or cmd /C on Windows.
func shellCommand(ctx context.Context, command string) *exec.Cmd {
	if runtime.GOOS == "windows" {
		return exec.CommandContext(ctx, "cmd", "/C", command)
	}
	return exec.CommandContext(ctx, "sh", "-c", command)
}

// Run spawns the child and relays frames until it exits. Frames from stdin
// go to the child; frames from the child go to stdout. A non-zero exit code
// is reported in the Outcome, not as an error.
func Run(ctx context.Context, cfg Config, stdin io.Reader, stdout io.Writer) (Outcome, error) {
	if cfg.Command == "" {
		return Outcome{}, errors.New("proxy: command required")
	}
	log := cfg.Log
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	stderr := cfg.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}

	var tee *frame.Writer
	if cfg.OutputFile != "" {
		file, err := os.Create(cfg.OutputFile)
		if err != nil {
			return Outcome{}, fmt.Errorf("create output file: %w", err)
		}
		defer file.Close()
		tee = frame.NewWriter(file, frame.NDJSON)
	}

	cmd := shellCommand(ctx, cfg.Command)
	cmd.Stderr = stderr
	childIn, err := cmd.StdinPipe()
	if err != nil {
		return Outcome{}, fmt.Errorf("stdin pipe: %w", err)
	}
	childOut, err := cmd.StdoutPipe()
	if err != nil {
		return Outcome{}, fmt.Errorf("stdout pipe: %w", err)
	}

	started := time.Now()
	if err := cmd.Start(); err != nil {
		return Outcome{}, fmt.Errorf("start %q: %w", cfg.Command, err)
	}
	session := ids.NewSessionID()
	log = log.With("session", session)
	log.Infow("child started", "command", cfg.Command, "pid", cmd.Process.Pid)

	rec := recorder{store: cfg.Journal, session: session, log: log}
	rec.begin(ctx, cfg.Command)

	// Parent stdin may never end, so this direction is not waited for.
	inbound := direction{
		name:   "inbound",
		reader: frame.NewReader(stdin, cfg.Framing),
		writer: frame.NewWriter(childIn, cfg.Framing),
		closer: childIn,
		observe: func(data []byte) {
			if tee != nil {
				if err := tee.WriteFrame(data); err != nil {
					log.Warnw("tee write failed", "error", err)
				}
			}
			rec.record(ctx, journal.Inbound, data)
		},
		log: log,
	}
	inboundDone := make(chan struct{})
	go func() {
		defer close(inboundDone)
		if err := inbound.run(); err != nil {
			log.Warnw("inbound direction ended", "error", err)
		}
	}()

	outbound := direction{
		name:   "outbound",
		reader: frame.NewReader(childOut, cfg.Framing),
		writer: frame.NewWriter(stdout, cfg.Framing),
		observe: func(data []byte) {
			rec.record(ctx, journal.Outbound, data)
		},
		log: log,
	}
	if err := outbound.run(); err != nil {
		log.Warnw("outbound direction ended", "error", err)
	}

	// The child's stdout must be fully read before Wait.
	waitErr := cmd.Wait()
	outcome := Outcome{Duration: time.Since(started), Session: session}
	var exitErr *exec.ExitError
	switch {
	case waitErr == nil:
		outcome.ExitCode = cmd.ProcessState.ExitCode()
	case errors.As(waitErr, &exitErr):
		outcome.ExitCode = exitErr.ExitCode()
	default:
		return outcome, fmt.Errorf("wait for child: %w", waitErr)
	}
	rec.end(outcome.ExitCode)
	log.Infow("child exited", "exitCode", outcome.ExitCode, "duration", outcome.Duration)

	// Give the inbound side a moment to finish teeing what it already read.
	select {
	case <-inboundDone:
	case <-time.After(50 * time.Millisecond):
	}
	return outcome, nil
}

// direction moves frames from one stream to another through a queue so a
// slow writer never stalls the decoder.
type direction struct {
	name    string
	reader  frame.Reader
	writer  *frame.Writer
	closer  io.Closer
	observe func([]byte)
	log     *zap.SugaredLogger
}

func (d direction) run() error {
	queue := ipc.NewQueue[[]byte]()
	var g errgroup.Group
	g.Go(func() error {
		defer queue.Close()
		for {
			data, err := d.reader.Next()
			if errors.Is(err, io.EOF) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("%s read: %w", d.name, err)
			}
			d.observe(data)
			queue.Push(data)
		}
	})
	g.Go(func() error {
		if d.closer != nil {
			defer d.closer.Close()
		}
		for {
			data, err := queue.Pop(context.Background())
			if err != nil {
				return nil
			}
			if err := d.writer.WriteFrame(data); err != nil {
				queue.Close()
				return fmt.Errorf("%s write: %w", d.name, err)
			}
		}
	})
	return g.Wait()
}

// recorder writes frames to the optional journal. Journal failures are
// logged and never interrupt the relay.
type recorder struct {
	store   *journal.Store
	session string
	log     *zap.SugaredLogger
}

func (r recorder) begin(ctx context.Context, command string) {
	if r.store == nil {
		return
	}
	if err := r.store.BeginSession(ctx, r.session, command); err != nil {
		r.log.Warnw("journal begin failed", "error", err)
	}
}

func (r recorder) record(ctx context.Context, dir journal.Direction, data []byte) {
	if r.store == nil {
		return
	}
	if err := r.store.Record(ctx, r.session, dir, data); err != nil {
		r.log.Warnw("journal record failed", "direction", dir, "error", err)
	}
}

func (r recorder) end(exitCode int) {
	if r.store == nil {
		return
	}
	if err := r.store.EndSession(context.Background(), r.session, exitCode); err != nil {
		r.log.Warnw("journal end failed", "error", err)
	}
}
