package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/rexliu/wvrpc/pkg/config"
	"github.com/rexliu/wvrpc/pkg/journal"
	"github.com/rexliu/wvrpc/pkg/logging"
	"github.com/rexliu/wvrpc/pkg/proxy"
)

func main() {
	logger := logging.New("proxy-json")
	exitCode := 0
	app := &cli.App{
		Name:  "proxy-json",
		Usage: "relay JSON frames between stdin/stdout and $PROXY_TO, teeing input to $OUTPUT_FILE",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "Path to a config.toml file.",
			},
			&cli.StringFlag{
				Name:    "command",
				Usage:   "Shell command to run.",
				EnvVars: []string{config.EnvProxyTo},
			},
			&cli.StringFlag{
				Name:    "output-file",
				Usage:   "File receiving every frame read from stdin.",
				EnvVars: []string{config.EnvOutputFile},
			},
			&cli.StringFlag{
				Name:  "journal",
				Usage: "Record frames in this SQLite journal (overrides journal.dbPath).",
			},
		},
		Action: func(c *cli.Context) error {
			code, err := run(c, logger)
			exitCode = code
			return err
		},
	}
	if err := app.Run(os.Args); err != nil {
		logger.Errorw("proxy failed", "error", err)
		logger.Close()
		os.Exit(1)
	}
	logger.Close()
	os.Exit(exitCode)
}

func run(c *cli.Context, logger *logging.Logger) (int, error) {
	cfg, err := config.LoadOrDefault(c.String("config"))
	if err != nil {
		return 0, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return 0, fmt.Errorf("environment: %w", err)
	}
	if v := c.String("command"); v != "" {
		cfg.Proxy.Command = v
	}
	if v := c.String("output-file"); v != "" {
		cfg.Proxy.OutputFile = v
	}
	if v := c.String("journal"); v != "" {
		cfg.Journal.Enabled = true
		cfg.Journal.DBPath = v
	}
	if err := logger.Configure(cfg.Logging); err != nil {
		return 0, fmt.Errorf("configure logging: %w", err)
	}
	if cfg.Proxy.Command == "" {
		return 0, errors.New(config.EnvProxyTo + " environment variable must be set")
	}
	if cfg.Proxy.OutputFile == "" {
		return 0, errors.New(config.EnvOutputFile + " environment variable must be set")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	pcfg := proxy.Config{
		Command:    cfg.Proxy.Command,
		OutputFile: cfg.Proxy.OutputFile,
		Framing:    cfg.Framing(),
		Log:        logger.SugaredLogger,
	}
	if cfg.Journal.Enabled {
		store, err := journal.Open(cfg.Journal.DBPath, journal.Options{
			JournalMode: cfg.Journal.JournalMode,
			Synchronous: cfg.Journal.Synchronous,
		})
		if err != nil {
			return 0, fmt.Errorf("open journal: %w", err)
		}
		defer store.Close()
		if err := store.Init(ctx); err != nil {
			return 0, fmt.Errorf("init journal: %w", err)
		}
		pcfg.Journal = store
	}

	outcome, err := proxy.Run(ctx, pcfg, os.Stdin, os.Stdout)
	if err != nil {
		return 0, err
	}
	return outcome.ExitCode, nil
}
