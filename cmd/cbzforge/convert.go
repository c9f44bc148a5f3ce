package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/cbzforge/cbzforge/internal/engine"
	"github.com/cbzforge/cbzforge/internal/runner"
	"github.com/urfave/cli/v3"
)

var convertCommand = &cli.Command{
	Name:  "convert",
	Usage: "Convert every supported comic archive in a directory to CBZ",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Options file (YAML)",
		},
		&cli.IntFlag{
			Name:    "workers",
			Aliases: []string{"w"},
			Usage:   "Number of books processed concurrently",
		},
		&cli.IntFlag{
			Name:  "pad-width",
			Usage: "Minimum zero-pad width for page names",
		},
		&cli.BoolFlag{
			Name:  "strict",
			Usage: "Fail a file entirely when any page cannot be recovered",
		},
		&cli.StringFlag{
			Name:  "rar-engine",
			Usage: "CBR extraction engine (unrar, library)",
		},
		&cli.StringFlag{
			Name:  "unrar-binary",
			Usage: "Path to the unrar binary",
		},
		&cli.StringFlag{
			Name:  "tool-timeout",
			Usage: "Timeout for external tool invocations (Go duration, e.g. 90s)",
		},
		&cli.StringFlag{
			Name:  "compression",
			Usage: "CBZ entry compression (store, deflate)",
		},
	},
	Arguments: []cli.Argument{
		&cli.StringArg{
			Name:      "dir",
			UsageText: "The working directory to convert (default: current directory)",
		},
	},
	Action: func(ctx context.Context, command *cli.Command) error {
		logger := getLogger(ctx)

		dir := command.StringArg("dir")
		if dir == "" {
			cwd, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("failed to resolve working directory: %w", err)
			}
			dir = cwd
		}

		opts := runner.DefaultOptions()
		if cfgPath := command.String("config"); cfgPath != "" {
			data, err := os.ReadFile(cfgPath)
			if err != nil {
				return fmt.Errorf("failed to read options file: %w", err)
			}
			opts, err = runner.ParseOptions(data)
			if err != nil {
				return fmt.Errorf("failed to parse options file '%s': %w", cfgPath, err)
			}
		}
		applyFlags(command, &opts)

		rep := &consoleReporter{w: os.Stdout}

		r, err := runner.New(logger.Named("runner"), opts, rep.report)
		if err != nil {
			return fmt.Errorf("failed to create runner: %w", err)
		}

		summary, err := r.Run(ctx, dir)
		if summary != nil {
			rep.printSummary(summary)
		}
		if err != nil {
			return fmt.Errorf("batch aborted: %w", err)
		}

		return nil
	},
}

func applyFlags(command *cli.Command, opts *runner.Options) {
	if command.IsSet("workers") {
		opts.Workers = int(command.Int("workers"))
	}
	if command.IsSet("pad-width") {
		opts.PadWidth = int(command.Int("pad-width"))
	}
	if command.IsSet("strict") {
		opts.Strict = command.Bool("strict")
	}
	if command.IsSet("rar-engine") {
		opts.RarEngine = command.String("rar-engine")
	}
	if command.IsSet("unrar-binary") {
		opts.UnrarBinary = command.String("unrar-binary")
	}
	if command.IsSet("tool-timeout") {
		opts.ToolTimeout = command.String("tool-timeout")
	}
	if command.IsSet("compression") {
		opts.Compression = command.String("compression")
	}
}

// consoleReporter renders pipeline events as line-oriented progress text.
// Workers call it concurrently.
type consoleReporter struct {
	mu sync.Mutex
	w  io.Writer
}

func (c *consoleReporter) report(ev engine.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch ev.Kind {
	case engine.EventBatchStarted:
		fmt.Fprintf(c.w, "Found %d file(s) in working directory\n", ev.Total)
	case engine.EventFileStarted:
		fmt.Fprintf(c.w, "[%d/%d] Processing: %s\n", ev.Index, ev.Total, ev.File)
	case engine.EventFileSkipped:
		fmt.Fprintf(c.w, "[%d/%d] Skipped: %s (%s)\n", ev.Index, ev.Total, ev.File, ev.Message)
	case engine.EventFileFinished:
		fmt.Fprintf(c.w, "  ✓ %s: %d page(s)\n", ev.File, ev.Pages)
	case engine.EventFileFailed:
		fmt.Fprintf(c.w, "  ✗ %s: %v\n", ev.File, ev.Err)
	}
}

func (c *consoleReporter) printSummary(s *engine.BatchSummary) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprintf(c.w, "\nConversion finished: %d converted, %d skipped, %d failed\n", s.Done, s.Skipped, s.Failed)
	for _, o := range s.Outcomes {
		switch {
		case o.Status == engine.StatusFailed:
			fmt.Fprintf(c.w, "  failed: %s: %s\n", o.File, o.Reason)
		case o.Partial:
			fmt.Fprintf(c.w, "  partial: %s (%d page(s) recovered)\n", o.File, o.Pages)
		}
	}
}
