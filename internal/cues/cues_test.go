package cues_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	_ "modernc.org/sqlite" // register "sqlite" driver

	"github.com/hazyhaar/domstage/dbopen"
	"github.com/hazyhaar/domstage/internal/cues"
)

func TestReplaceAndPhrases(t *testing.T) {
	db := dbopen.OpenMemory(t)
	s := cues.New(db, nil)
	ctx := context.Background()

	want := []string{"Web Developer", "Freelancer", "Photographer"}
	if err := s.Replace(ctx, want); err != nil {
		t.Fatalf("Replace: %v", err)
	}

	got, err := s.Phrases(ctx)
	if err != nil {
		t.Fatalf("Phrases: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("Phrases: got %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("phrase %d: got %q, want %q", i, got[i], want[i])
		}
	}
}

func TestReplace_OverwritesPreviousSheet(t *testing.T) {
	db := dbopen.OpenMemory(t)
	s := cues.New(db, nil)
	ctx := context.Background()

	if err := s.Replace(ctx, []string{"one", "two", "three"}); err != nil {
		t.Fatalf("Replace: %v", err)
	}
	if err := s.Replace(ctx, []string{"solo"}); err != nil {
		t.Fatalf("Replace: %v", err)
	}

	got, err := s.Phrases(ctx)
	if err != nil {
		t.Fatalf("Phrases: %v", err)
	}
	if len(got) != 1 || got[0] != "solo" {
		t.Errorf("Phrases: got %v, want [solo]", got)
	}
}

func TestReplace_RejectsInvalid(t *testing.T) {
	db := dbopen.OpenMemory(t)
	s := cues.New(db, nil)
	ctx := context.Background()

	if err := s.Replace(ctx, nil); err == nil {
		t.Errorf("Replace(nil): got nil error")
	}
	if err := s.Replace(ctx, []string{"ok", ""}); err == nil {
		t.Errorf("Replace with empty phrase: got nil error")
	}
}

func TestSeed_OnlyFillsEmptyStore(t *testing.T) {
	db := dbopen.OpenMemory(t)
	s := cues.New(db, nil)
	ctx := context.Background()

	if err := s.Seed(ctx, []string{"default"}); err != nil {
		t.Fatalf("Seed: %v", err)
	}
	if err := s.Seed(ctx, []string{"other"}); err != nil {
		t.Fatalf("Seed: %v", err)
	}

	got, err := s.Phrases(ctx)
	if err != nil {
		t.Fatalf("Phrases: %v", err)
	}
	if len(got) != 1 || got[0] != "default" {
		t.Errorf("Phrases: got %v, want [default]", got)
	}
}

func TestWatch_ReloadsAfterReplace(t *testing.T) {
	db := dbopen.OpenMemory(t)
	s := cues.New(db, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := s.Replace(ctx, []string{"initial"}); err != nil {
		t.Fatalf("Replace: %v", err)
	}

	var mu sync.Mutex
	var got []string
	var reloads atomic.Int32
	go s.Watch(ctx, cues.WatchOptions{
		Interval: 20 * time.Millisecond,
		Debounce: 30 * time.Millisecond,
	}, func(phrases []string) error {
		mu.Lock()
		got = phrases
		mu.Unlock()
		reloads.Add(1)
		return nil
	})

	// Let the watcher seed its version before editing.
	time.Sleep(60 * time.Millisecond)

	if err := s.Replace(ctx, []string{"edited", "sheet"}); err != nil {
		t.Fatalf("Replace: %v", err)
	}
	time.Sleep(200 * time.Millisecond)

	if n := reloads.Load(); n != 1 {
		t.Fatalf("reloads: got %d, want 1", n)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(got) != 2 || got[0] != "edited" {
		t.Errorf("reloaded phrases: got %v, want [edited sheet]", got)
	}
}

func TestWatch_DebouncesRapidEdits(t *testing.T) {
	db := dbopen.OpenMemory(t)
	s := cues.New(db, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := s.Replace(ctx, []string{"initial"}); err != nil {
		t.Fatalf("Replace: %v", err)
	}

	var reloads atomic.Int32
	go s.Watch(ctx, cues.WatchOptions{
		Interval: 15 * time.Millisecond,
		Debounce: 120 * time.Millisecond,
	}, func([]string) error {
		reloads.Add(1)
		return nil
	})

	time.Sleep(50 * time.Millisecond)

	// Rapid edits inside the debounce window collapse into one reload.
	for i := range 4 {
		if err := s.Replace(ctx, []string{"edit", string(rune('a' + i))}); err != nil {
			t.Fatalf("Replace: %v", err)
		}
		time.Sleep(20 * time.Millisecond)
	}
	if n := reloads.Load(); n != 0 {
		t.Fatalf("reloads during debounce: got %d, want 0", n)
	}

	time.Sleep(300 * time.Millisecond)
	if n := reloads.Load(); n != 1 {
		t.Fatalf("reloads after settle: got %d, want 1", n)
	}
}

func TestWatch_RetriesWhenApplyFails(t *testing.T) {
	db := dbopen.OpenMemory(t)
	s := cues.New(db, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := s.Replace(ctx, []string{"initial"}); err != nil {
		t.Fatalf("Replace: %v", err)
	}

	var calls atomic.Int32
	go s.Watch(ctx, cues.WatchOptions{
		Interval: 15 * time.Millisecond,
		Debounce: 20 * time.Millisecond,
	}, func([]string) error {
		if calls.Add(1) == 1 {
			return context.DeadlineExceeded
		}
		return nil
	})

	time.Sleep(50 * time.Millisecond)

	if err := s.Replace(ctx, []string{"retry me"}); err != nil {
		t.Fatalf("Replace: %v", err)
	}
	time.Sleep(300 * time.Millisecond)

	if n := calls.Load(); n < 2 {
		t.Fatalf("apply calls: got %d, want at least 2 (fail then retry)", n)
	}
}
