// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// duphash computes duplicate hashes for crash reports.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli"

	"github.com/wingedpig/duphash/internal/config"
)

var version = "0.90"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args, os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// env carries what the commands share once global flags are processed.
type env struct {
	ctx    context.Context
	cfg    *config.Config
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	e := &env{ctx: ctx, stdin: stdin, stdout: stdout, stderr: stderr}

	app := cli.NewApp()
	app.Name = "duphash"
	app.Usage = "compute duplicate hashes for crash reports"
	app.Version = version
	app.Writer = stdout
	app.ErrWriter = stderr
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "config, c",
			Usage: "path to an hjson configuration file (default: ./duphash.hjson or ./duphash.json if present)",
		},
		cli.StringFlag{
			Name:  "log-level",
			Usage: "debug, info, warn or error",
		},
		cli.StringFlag{
			Name:  "log-format",
			Usage: "text or json",
		},
	}
	app.Before = e.setup
	app.Commands = []cli.Command{
		hashCommand(e),
		watchCommand(e),
	}

	return app.Run(args)
}

// setup loads configuration, applies global flag overrides and configures
// logging.
func (e *env) setup(c *cli.Context) error {
	cfg, err := loadConfig(e.ctx, c.GlobalString("config"))
	if err != nil {
		return err
	}
	if v := c.GlobalString("log-level"); v != "" {
		cfg.Logging.Level = v
	}
	if v := c.GlobalString("log-format"); v != "" {
		cfg.Logging.Format = v
	}
	if err := config.NewValidator().Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if err := setupLogging(e.stderr, cfg.Logging); err != nil {
		return err
	}
	e.cfg = cfg
	return nil
}

func loadConfig(ctx context.Context, path string) (*config.Config, error) {
	loader := config.NewLoader()
	if path == "" {
		found, err := loader.FindConfig(".")
		if err != nil {
			return config.Default(), nil
		}
		path = found
	}

	cfg, err := loader.LoadWithDefaults(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, nil
}

func setupLogging(w io.Writer, lc config.LoggingConfig) error {
	level, err := log.ParseLevel(lc.Level)
	if err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	log.SetLevel(level)
	log.SetOutput(w)
	if lc.Format == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{DisableColors: true})
	}
	return nil
}
