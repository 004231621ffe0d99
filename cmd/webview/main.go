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
	"github.com/rexliu/wvrpc/pkg/frame"
	"github.com/rexliu/wvrpc/pkg/host"
	"github.com/rexliu/wvrpc/pkg/logging"
	"github.com/rexliu/wvrpc/pkg/protocol"
)

func main() {
	logger := logging.New("webview")
	app := &cli.App{
		Name:      "webview",
		Usage:     "open a window controlled over stdin/stdout",
		ArgsUsage: "<options-json>",
		Version:   host.Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "Path to a config.toml file.",
			},
			&cli.StringFlag{
				Name:  "framing",
				Usage: "Message framing on stdin/stdout. One of [ndjson,null].",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "One of [trace,debug,info,warn,error]. Overrides LOG_LEVEL.",
			},
			&cli.BoolFlag{
				Name:  "print-schema",
				Usage: "Print the options JSON Schema and exit.",
			},
		},
		Action: func(c *cli.Context) error {
			if c.Bool("print-schema") {
				fmt.Println(protocol.OptionsSchema())
				return nil
			}
			return run(c, logger)
		},
	}
	if err := app.Run(os.Args); err != nil {
		logger.Errorw("webview failed", "error", err)
		logger.Close()
		os.Exit(1)
	}
	logger.Close()
}

func run(c *cli.Context, logger *logging.Logger) error {
	cfg, err := config.LoadOrDefault(c.String("config"))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return fmt.Errorf("environment: %w", err)
	}
	if lvl := c.String("log-level"); lvl != "" {
		cfg.Logging.Level = lvl
	}
	if err := logger.Configure(cfg.Logging); err != nil {
		return fmt.Errorf("configure logging: %w", err)
	}
	framing := cfg.Framing()
	if f := c.String("framing"); f != "" {
		if framing, err = frame.ParseFraming(f); err != nil {
			return err
		}
	}

	if c.NArg() != 1 {
		return errors.New("expected exactly one argument: the options JSON")
	}
	opts, err := protocol.ParseOptions([]byte(c.Args().First()))
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return host.Run(ctx, host.Config{
		Options: opts,
		Framing: framing,
		In:      os.Stdin,
		Out:     os.Stdout,
		Log:     logger.SugaredLogger,
	})
}
