package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/rexliu/wvrpc/pkg/client"
	"github.com/rexliu/wvrpc/pkg/config"
	"github.com/rexliu/wvrpc/pkg/frame"
	"github.com/rexliu/wvrpc/pkg/host"
	"github.com/rexliu/wvrpc/pkg/journal"
	"github.com/rexliu/wvrpc/pkg/logging"
	"github.com/rexliu/wvrpc/pkg/protocol"
)

func main() {
	logger := logging.New("wvctl")
	app := &cli.App{
		Name:  "wvctl",
		Usage: "drive a webview host and inspect proxy journals",
		Commands: []*cli.Command{
			initCommand(),
			callCommand(logger),
			journalCommand(),
			{
				Name:  "version",
				Usage: "print the protocol version",
				Action: func(*cli.Context) error {
					fmt.Println(host.Version)
					return nil
				},
			},
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "wvctl: %v\n", err)
		logger.Close()
		os.Exit(1)
	}
	logger.Close()
}

func initCommand() *cli.Command {
	return &cli.Command{
		Name:  "init",
		Usage: "write a default config.toml",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Value: "config.toml", Usage: "Where to write the config."},
			&cli.BoolFlag{Name: "force", Usage: "Overwrite existing config if present."},
		},
		Action: func(c *cli.Context) error {
			path := c.String("path")
			if _, err := os.Stat(path); err == nil && !c.Bool("force") {
				return fmt.Errorf("config already exists at %s (use --force to overwrite)", path)
			}
			if err := config.Save(path, config.Default()); err != nil {
				return err
			}
			fmt.Printf("wrote %s\n", path)
			return nil
		},
	}
}

func callCommand(logger *logging.Logger) *cli.Command {
	return &cli.Command{
		Name:      "call",
		Usage:     "start a host, send one request and print the response",
		ArgsUsage: "<request-json>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bin", Usage: "Host binary.", EnvVars: []string{client.EnvBinary}},
			&cli.StringFlag{Name: "options", Value: `{"title":"wvctl"}`, Usage: "Options JSON passed to the host."},
			&cli.StringFlag{Name: "framing", Value: "ndjson", Usage: "One of [ndjson,null]."},
			&cli.DurationFlag{Name: "timeout", Value: 10 * time.Second, Usage: "Give up after this long."},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return errors.New("expected exactly one argument: the request JSON")
			}
			req, err := protocol.DecodeRequest([]byte(c.Args().First()))
			if err != nil {
				return err
			}
			opts, err := protocol.ParseOptions([]byte(c.String("options")))
			if err != nil {
				return err
			}
			framing, err := frame.ParseFraming(c.String("framing"))
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			ctx, cancelTimeout := context.WithTimeout(ctx, c.Duration("timeout"))
			defer cancelTimeout()

			cl, err := client.Spawn(ctx, client.SpawnConfig{
				Binary:  c.String("bin"),
				Options: opts,
				Framing: framing,
				Log:     logger.Named("client"),
			})
			if err != nil {
				return err
			}
			defer cl.Close(context.Background())

			select {
			case <-cl.Started():
			case <-cl.Done():
				return errors.New("host exited before it started")
			case <-ctx.Done():
				return ctx.Err()
			}

			resp, err := cl.Call(ctx, req)
			if err != nil {
				return err
			}
			out, err := protocol.EncodeMessage(resp)
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}
}

func journalCommand() *cli.Command {
	dbFlag := &cli.StringFlag{Name: "db", Required: true, Usage: "Journal database path."}
	return &cli.Command{
		Name:  "journal",
		Usage: "inspect frames recorded by proxy-json",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "list sessions, or the frames of one session",
				Flags: []cli.Flag{
					dbFlag,
					&cli.StringFlag{Name: "session", Usage: "Show frames of this session."},
					&cli.IntFlag{Name: "limit", Value: 50, Usage: "Maximum frames to show (0 for all)."},
				},
				Action: func(c *cli.Context) error {
					store, err := openJournal(c)
					if err != nil {
						return err
					}
					defer store.Close()
					w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
					defer w.Flush()
					if id := c.String("session"); id != "" {
						entries, err := store.List(c.Context, id, c.Int("limit"))
						if err != nil {
							return err
						}
						for _, e := range entries {
							fmt.Fprintf(w, "%d\t%s\t%s\n", e.Seq, e.Direction, e.Frame)
						}
						return nil
					}
					sessions, err := store.Sessions(c.Context)
					if err != nil {
						return err
					}
					fmt.Fprintln(w, "SESSION\tSTARTED\tFRAMES\tEXIT\tCOMMAND")
					for _, s := range sessions {
						exit := "-"
						if s.ExitCode != nil {
							exit = fmt.Sprint(*s.ExitCode)
						}
						started := time.UnixMilli(s.StartedAt).Format(time.RFC3339)
						fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n", s.ID, started, s.Frames, exit, s.Command)
					}
					return nil
				},
			},
			{
				Name:  "export",
				Usage: "write one session and its frames as JSON",
				Flags: []cli.Flag{
					dbFlag,
					&cli.StringFlag{Name: "session", Required: true},
					&cli.StringFlag{Name: "out", Required: true, Usage: "Output file."},
				},
				Action: func(c *cli.Context) error {
					store, err := openJournal(c)
					if err != nil {
						return err
					}
					defer store.Close()
					snap, err := store.Snapshot(c.Context, c.String("session"))
					if err != nil {
						return err
					}
					if err := journal.Export(c.String("out"), snap); err != nil {
						return err
					}
					data, _ := json.Marshal(map[string]any{"session": snap.Session.ID, "frames": len(snap.Frames), "out": c.String("out")})
					fmt.Println(string(data))
					return nil
				},
			},
		},
	}
}

func openJournal(c *cli.Context) (*journal.Store, error) {
	store, err := journal.Open(c.String("db"), journal.Options{})
	if err != nil {
		return nil, err
	}
	if err := store.Init(c.Context); err != nil {
		store.Close()
		return nil, err
	}
	return store, nil
}
