package main

import (
	"fmt"
	"log/slog"

	viewer "github.com/foxfirecodes/datadog-viewer"
	"github.com/foxfirecodes/datadog-viewer/internal/config"
	"github.com/foxfirecodes/datadog-viewer/internal/logger"
)

type command struct {
	flags *GlobalFlags
}

func loadOrDefault(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return viewer.LoadConfig(path)
}

func setDefaultLogger(lc *logger.Config) {
	slog.SetDefault(lc.NewSlogger())
}

// openTracker builds a tracker from the global flags for one-shot commands.
func (c *command) openTracker() (*viewer.Tracker, error) {
	cfg, err := loadOrDefault(c.flags.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("error loading config: %w", err)
	}
	if c.flags.CSVPath != "" {
		cfg.CSVFile = c.flags.CSVPath
	}
	return viewer.New(viewer.Options{
		CSVPath:  cfg.CSVFile,
		State:    cfg.State,
		PageSize: cfg.PageSize,
	})
}

// Stats prints triage progress for the configured CSV and state store.
func (c *command) Stats(f StatsFlags) error {
	tr, err := c.openTracker()
	if err != nil {
		return err
	}
	defer func() { _ = tr.Close() }()

	st := tr.Stats()
	if f.JSON {
		printJSON(st)
		return nil
	}
	fmt.Printf("total:       %d\n", st.Total)
	fmt.Printf("addressed:   %d\n", st.Addressed)
	fmt.Printf("unaddressed: %d\n", st.Unaddressed)
	fmt.Printf("progress:    %.1f%%\n", st.ProgressPercent)
	return nil
}

// Validate parses the CSV and reports every skipped row.
func (c *command) Validate(f ValidateFlags) error {
	tr, err := c.openTracker()
	if err != nil {
		return err
	}
	defer func() { _ = tr.Close() }()

	skips := tr.Skips()
	if !f.Quiet {
		for _, s := range skips {
			fmt.Printf("line %d: %s\n", s.Line, s.Reason)
		}
		fmt.Printf("%d record(s), %d skipped\n", tr.Len(), len(skips))
	}
	if len(skips) > 0 {
		return fmt.Errorf("%d row(s) skipped", len(skips))
	}
	return nil
}

// Toggle flips the addressed flag of one record in the local store.
func (c *command) Toggle(f ToggleFlags) error {
	tr, err := c.openTracker()
	if err != nil {
		return err
	}
	defer func() { _ = tr.Close() }()

	addressed, err := tr.Toggle(f.ID)
	if err != nil {
		return err
	}
	state := "unaddressed"
	if addressed {
		state = "addressed"
	}
	fmt.Printf("%s is now %s\n", f.ID, state)
	return nil
}
