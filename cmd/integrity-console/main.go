// integrity-console is a terminal view of recent integrity events for a set
// of exams. It polls the backend every few seconds and ranks events by
// severity.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/pflag"

	"examguard/internal/integrity/console"
	s "examguard/pkg/string"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	api      string
	exams    string
	token    string
	interval time.Duration
	logFile  string
}

func parseFlags(args []string) (options, error) {
	var o options
	fs := pflag.NewFlagSet("integrity-console", pflag.ContinueOnError)
	fs.StringVar(&o.api, "api", "http://localhost:8080", "examguard API base URL")
	fs.StringVar(&o.exams, "exams", "", "comma separated exam ids to watch")
	fs.StringVar(&o.token, "token", os.Getenv("EXAMGUARD_TOKEN"), "bearer token for the API")
	fs.DurationVar(&o.interval, "interval", console.DefaultInterval, "poll interval")
	fs.StringVar(&o.logFile, "log-file", "", "write JSON logs to this file")
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	if len(s.SplitCSV(o.exams)) == 0 {
		return o, errors.New("--exams is required")
	}
	if o.interval <= 0 {
		return o, errors.New("--interval must be positive")
	}
	return o, nil
}

func run(args []string) error {
	o, err := parseFlags(args)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	// the alt screen owns stdout, so logs go to a file or nowhere
	logger := slog.New(slog.DiscardHandler)
	if o.logFile != "" {
		f, err := os.OpenFile(o.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer f.Close()
		logger = slog.New(slog.NewJSONHandler(f, nil))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fetcher := console.NewHTTPFetcher(console.FetcherConfig{BaseURL: o.api, Token: o.token})
	c := console.New(fetcher, s.SplitCSV(o.exams),
		console.WithInterval(o.interval),
		console.WithLogger(logger),
	)

	program := tea.NewProgram(newModel(c, cancel), tea.WithAltScreen(), tea.WithContext(ctx))
	unsubscribe := c.Subscribe(func(snap console.Snapshot) { program.Send(snapshotMsg(snap)) })
	defer unsubscribe()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = c.Run(ctx)
	}()

	_, err = program.Run()
	cancel()
	<-done
	if errors.Is(err, tea.ErrProgramKilled) || errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
