// Package spool manages the private files uploads are staged in while a model
// runs. Request handling removes each file itself; the Sweeper only clears
// what a crashed or killed process left behind.
package spool

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Prefix marks spool files so sweeping never touches anything else in a
// shared temp directory.
const Prefix = "scribe-"

// Sweeper evicts spool files older than the retention window.
type Sweeper struct {
	dir       string
	retention time.Duration
	interval  time.Duration
	log       zerolog.Logger
	stop      chan struct{}
	stopOnce  sync.Once
	done      chan struct{}
}

// NewSweeper creates a sweeper for dir ("" = os.TempDir()). Retention must be
// longer than any transcription can run.
func NewSweeper(dir string, retention, interval time.Duration, log zerolog.Logger) *Sweeper {
	if dir == "" {
		dir = os.TempDir()
	}
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &Sweeper{
		dir:       dir,
		retention: retention,
		interval:  interval,
		log:       log.With().Str("component", "spool-sweeper").Logger(),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

func (s *Sweeper) Start() {
	go s.loop()
}

// Stop halts the sweeper and waits for an in-progress sweep to finish.
func (s *Sweeper) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
	<-s.done
}

func (s *Sweeper) loop() {
	defer close(s.done)

	// Run once on startup to clear leftovers from the last run
	s.Sweep(time.Now())

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case now := <-ticker.C:
			s.Sweep(now)
		case <-s.stop:
			return
		}
	}
}

// Sweep removes spool files last modified before now minus the retention
// window and returns how many it removed. A zero retention disables sweeping.
func (s *Sweeper) Sweep(now time.Time) int {
	if s.retention <= 0 {
		return 0
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		s.log.Warn().Err(err).Str("dir", s.dir).Msg("cannot read spool directory")
		return 0
	}

	cutoff := now.Add(-s.retention)
	var removed int
	var freed int64
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), Prefix) {
			continue
		}
		info, err := e.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, e.Name())); err != nil {
			s.log.Warn().Err(err).Str("file", e.Name()).Msg("failed to remove stale spool file")
			continue
		}
		removed++
		freed += info.Size()
	}

	if removed > 0 {
		s.log.Info().
			Int("removed", removed).
			Str("freed", humanizeBytes(freed)).
			Msg("spool sweep complete")
	}
	return removed
}

func humanizeBytes(b int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)
	switch {
	case b >= GB:
		return fmt.Sprintf("%.1f GB", float64(b)/float64(GB))
	case b >= MB:
		return fmt.Sprintf("%.1f MB", float64(b)/float64(MB))
	case b >= KB:
		return fmt.Sprintf("%.1f KB", float64(b)/float64(KB))
	default:
		return fmt.Sprintf("%d B", b)
	}
}
