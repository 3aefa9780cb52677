// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"io"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli"

	"github.com/wingedpig/duphash/internal/batch"
	"github.com/wingedpig/duphash/internal/config"
	"github.com/wingedpig/duphash/internal/watcher"
)

func hashFlags() []cli.Flag {
	return []cli.Flag{
		cli.IntFlag{
			Name:  "frames, n",
			Usage: "hash at most N frames of the crash thread (0 = all)",
		},
		cli.StringSliceFlag{
			Name:  "flag, f",
			Usage: "duphash flag: normal, nohash, nonormalize or koops_compat (repeatable)",
		},
		cli.StringFlag{
			Name:  "prefix, p",
			Usage: "text prepended to the canonical form before hashing",
		},
		cli.StringFlag{
			Name:  "format, o",
			Usage: "output format: text, json or yaml",
		},
	}
}

func hashCommand(e *env) cli.Command {
	return cli.Command{
		Name:      "hash",
		Usage:     "print the duphash of each report file ('-' reads stdin)",
		ArgsUsage: "FILE...",
		Flags: append(hashFlags(),
			cli.IntFlag{
				Name:  "workers, j",
				Usage: "number of reports hashed concurrently (0 = one per CPU)",
			},
		),
		Action: e.hash,
	}
}

func watchCommand(e *env) cli.Command {
	return cli.Command{
		Name:      "watch",
		Usage:     "hash report files as they appear in a spool directory",
		ArgsUsage: "[DIR]",
		Flags: append(hashFlags(),
			cli.StringFlag{
				Name:  "pattern",
				Usage: "glob matched against file names (default: *.json)",
			},
			cli.StringFlag{
				Name:  "debounce",
				Usage: "quiet period before a file is hashed (default: 250ms)",
			},
			cli.BoolFlag{
				Name:  "existing",
				Usage: "also hash matching files already in the directory",
			},
		),
		Action: e.watch,
	}
}

// commandConfig returns a copy of the loaded configuration with command
// flags applied on top.
func (e *env) commandConfig(c *cli.Context) (config.Config, error) {
	cfg := *e.cfg
	cfg.Duphash.Flags = append([]string(nil), e.cfg.Duphash.Flags...)

	if c.IsSet("frames") {
		cfg.Duphash.Frames = c.Int("frames")
	}
	if c.IsSet("flag") {
		cfg.Duphash.Flags = c.StringSlice("flag")
	}
	if c.IsSet("prefix") {
		cfg.Duphash.Prefix = c.String("prefix")
	}
	if c.IsSet("format") {
		cfg.Output.Format = c.String("format")
	}
	if c.IsSet("workers") {
		cfg.Workers = c.Int("workers")
	}
	if c.IsSet("pattern") {
		cfg.Watch.Pattern = c.String("pattern")
	}
	if c.IsSet("debounce") {
		cfg.Watch.Debounce = c.String("debounce")
	}

	if err := config.NewValidator().Validate(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (e *env) newHasher(cfg config.Config) (*batch.Hasher, *Formatter, error) {
	opts, err := cfg.Duphash.HashOptions()
	if err != nil {
		return nil, nil, err
	}
	hasher, err := batch.NewHasher(opts, cfg.Workers)
	if err != nil {
		return nil, nil, err
	}
	formatter, err := NewFormatter(e.stdout, e.stderr, cfg.Output.Format)
	if err != nil {
		return nil, nil, err
	}
	return hasher, formatter, nil
}

func (e *env) hash(c *cli.Context) error {
	cfg, err := e.commandConfig(c)
	if err != nil {
		return err
	}
	if c.NArg() == 0 {
		return fmt.Errorf("no report files given")
	}
	hasher, formatter, err := e.newHasher(cfg)
	if err != nil {
		return err
	}

	var stdinData []byte
	jobs := make([]batch.Job, 0, c.NArg())
	for _, arg := range c.Args() {
		if arg != "-" {
			jobs = append(jobs, batch.Job{Name: arg})
			continue
		}
		if stdinData == nil {
			data, err := io.ReadAll(e.stdin)
			if err != nil {
				return fmt.Errorf("read stdin: %w", err)
			}
			stdinData = append([]byte{}, data...)
		}
		jobs = append(jobs, batch.Job{Name: "-", Data: stdinData})
	}

	results, err := hasher.Run(e.ctx, jobs)
	if err != nil {
		return err
	}
	if err := formatter.FormatResults(results); err != nil {
		return err
	}

	failed := 0
	for _, r := range results {
		if r.Failed() {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d reports failed", failed, len(results))
	}
	return nil
}

func (e *env) watch(c *cli.Context) error {
	cfg, err := e.commandConfig(c)
	if err != nil {
		return err
	}
	dir := cfg.Watch.Dir
	if c.NArg() > 0 {
		dir = c.Args().First()
	}
	if dir == "" {
		return fmt.Errorf("no spool directory given")
	}
	hasher, formatter, err := e.newHasher(cfg)
	if err != nil {
		return err
	}

	w, err := watcher.NewSpoolWatcher(dir, cfg.Watch.Pattern, cfg.Watch.DebounceDuration(), func(path string) {
		if err := formatter.FormatResult(hasher.Hash(batch.Job{Name: path})); err != nil {
			log.WithError(err).Error("Failed to write result")
		}
	})
	if err != nil {
		return err
	}
	defer w.Close()

	if c.Bool("existing") {
		n, err := w.Scan()
		if err != nil {
			return err
		}
		log.WithField("reports", n).Info("Queued existing reports")
	}

	log.WithFields(log.Fields{
		"dir":      w.Dir(),
		"pattern":  cfg.Watch.Pattern,
		"debounce": cfg.Watch.DebounceDuration().String(),
	}).Info("Watching spool directory")

	<-e.ctx.Done()
	log.Info("Stopping watcher")
	return nil
}
