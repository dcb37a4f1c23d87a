package cues

import (
	"context"
	"time"
)

// WatchOptions tunes the reload loop.
type WatchOptions struct {
	// Interval is the polling frequency. Default: 1s.
	Interval time.Duration
	// Debounce is the quiet period after a change before the reload
	// fires. Further changes reset the window. Default: 300ms.
	Debounce time.Duration
}

func (o *WatchOptions) defaults() {
	if o.Interval <= 0 {
		o.Interval = time.Second
	}
	if o.Debounce <= 0 {
		o.Debounce = 300 * time.Millisecond
	}
}

// Watch blocks until ctx is cancelled, polling the store for edits.
// When a change settles past the debounce window, the fresh phrase
// list is loaded and handed to apply. If apply returns an error the
// version token is not advanced, so the reload is retried on the next
// poll cycle.
func (s *Store) Watch(ctx context.Context, opts WatchOptions, apply func([]string) error) {
	opts.defaults()
	log := s.logger

	seen, err := s.version(ctx)
	if err != nil {
		log.Warn("cues: initial version check failed", "error", err)
	}

	ticker := time.NewTicker(opts.Interval)
	defer ticker.Stop()

	var debounceTimer *time.Timer
	var debounceC <-chan time.Time
	pending := int64(-1)

	log.Info("cues: watching", "interval", opts.Interval, "debounce", opts.Debounce)

	reload := func(ver int64) {
		phrases, err := s.Phrases(ctx)
		if err != nil {
			log.Error("cues: reload failed", "error", err)
			return
		}
		if len(phrases) == 0 {
			// An emptied sheet cannot drive the typewriter. Keep the
			// last good list and stop re-checking this version.
			log.Warn("cues: sheet emptied, keeping current phrases")
			seen = ver
			return
		}
		if err := apply(phrases); err != nil {
			log.Error("cues: apply failed", "error", err)
			return
		}
		seen = ver
		log.Info("cues: reloaded", "phrases", len(phrases))
	}

	for {
		select {
		case <-ctx.Done():
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			log.Info("cues: watch stopped")
			return

		case <-ticker.C:
			cur, err := s.version(ctx)
			if err != nil {
				log.Warn("cues: version check failed", "error", err)
				continue
			}
			if cur == seen || cur == pending {
				continue
			}
			pending = cur
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.NewTimer(opts.Debounce)
			debounceC = debounceTimer.C
			log.Debug("cues: change detected, debouncing", "version", cur)

		case <-debounceC:
			debounceC = nil
			if pending >= 0 {
				reload(pending)
				pending = -1
			}
		}
	}
}
