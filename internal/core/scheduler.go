package core

// scheduler.go runs background maintenance of the staging directory.
//
// Workspaces are removed when their request finishes. A crash or a kill
// between creation and cleanup leaves directories behind, so the sweeper
// periodically removes run directories older than MaxAge. Failures are logged
// and never stop the loop.

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// SweepConfig holds configuration for the staging sweeper.
type SweepConfig struct {
	Dir      string        // Staging root to scan
	Interval time.Duration // How often to run (default: 1h)
	MaxAge   time.Duration // Remove run directories older than this (default: 24h)
}

func (c SweepConfig) withDefaults() SweepConfig {
	if c.Interval <= 0 {
		c.Interval = time.Hour
	}
	if c.MaxAge <= 0 {
		c.MaxAge = 24 * time.Hour
	}
	return c
}

// StartStagingSweeper sweeps immediately, then every Interval, until ctx is
// cancelled. It blocks; run it in its own goroutine.
func StartStagingSweeper(ctx context.Context, cfg SweepConfig) {
	cfg = cfg.withDefaults()
	slog.Info("staging sweeper started",
		"dir", cfg.Dir,
		"interval", cfg.Interval.String(),
		"max_age", cfg.MaxAge.String(),
	)

	runSweepJob(cfg)

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("staging sweeper stopped")
			return
		case <-ticker.C:
			runSweepJob(cfg)
		}
	}
}

func runSweepJob(cfg SweepConfig) {
	start := time.Now()
	removed, err := SweepStaging(cfg.Dir, cfg.MaxAge, start)
	if err != nil {
		slog.Error("staging sweep failed", "error", err)
		return
	}
	slog.Info("staging sweep completed",
		"removed", removed,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}

// SweepStaging removes direct subdirectories of dir last modified before
// now-maxAge and returns how many were removed. A missing dir is not an error.
func SweepStaging(dir string, maxAge time.Duration, now time.Time) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}

	cutoff := now.Add(-maxAge)
	removed := 0
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		if err := os.RemoveAll(path); err != nil {
			slog.Warn("failed to remove stale workspace", "path", path, "error", err)
			continue
		}
		removed++
	}
	return removed, nil
}
