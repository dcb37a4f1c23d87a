package script

import (
	"testing"
	"time"
)

func newTestTypewriter(t *testing.T, phrases ...string) *Typewriter {
	t.Helper()
	tw, err := NewTypewriter(phrases, Timing{})
	if err != nil {
		t.Fatalf("NewTypewriter: %v", err)
	}
	return tw
}

func TestTypewriter_TypesOneCharPerTick(t *testing.T) {
	tw := newTestTypewriter(t, "Web Developer")

	want := []string{"W", "We", "Web", "Web ", "Web D"}
	for i, w := range want {
		text, completed := tw.Tick()
		if text != w {
			t.Errorf("tick %d: got %q, want %q", i+1, text, w)
		}
		if completed {
			t.Errorf("tick %d: completed early", i+1)
		}
	}
}

func TestTypewriter_CompletesAfterLengthTicks(t *testing.T) {
	phrase := "Freelancer"
	tw := newTestTypewriter(t, phrase)

	ticks := 0
	for {
		ticks++
		text, completed := tw.Tick()
		if completed {
			if text != phrase {
				t.Errorf("completion text: got %q, want %q", text, phrase)
			}
			break
		}
		if ticks > len(phrase) {
			t.Fatalf("no completion after %d ticks, want %d", ticks, len(phrase))
		}
	}
	if ticks != len(phrase) {
		t.Errorf("completion ticks: got %d, want %d", ticks, len(phrase))
	}
}

func TestTypewriter_CompletionReportedOnce(t *testing.T) {
	tw := newTestTypewriter(t, "Go")

	tw.Tick()
	_, completed := tw.Tick()
	if !completed {
		t.Fatalf("second tick: completed = false, want true")
	}

	// Ticks during the hold keep rewriting the full phrase without
	// reporting completion again.
	for i := 0; i < 3; i++ {
		text, completed := tw.Tick()
		if text != "Go" {
			t.Errorf("hold tick %d: got %q, want %q", i, text, "Go")
		}
		if completed {
			t.Errorf("hold tick %d: completed reported twice", i)
		}
	}
}

func TestTypewriter_DeletesOneCharPerTick(t *testing.T) {
	tw := newTestTypewriter(t, "abc", "next")
	typeOut(t, tw)
	tw.StartDeleting()

	want := []string{"ab", "a", ""}
	for i, w := range want {
		text, completed := tw.Tick()
		if text != w {
			t.Errorf("delete tick %d: got %q, want %q", i+1, text, w)
		}
		if completed {
			t.Errorf("delete tick %d: completed during deletion", i+1)
		}
	}
}

func TestTypewriter_AdvancesAndWraps(t *testing.T) {
	tw := newTestTypewriter(t, "ab", "cd")

	cycle := func(wantNext string) {
		t.Helper()
		typeOut(t, tw)
		tw.StartDeleting()
		for tw.Mode() == ModeDeleting {
			tw.Tick()
		}
		if tw.Phrase() != wantNext {
			t.Errorf("next phrase: got %q, want %q", tw.Phrase(), wantNext)
		}
	}

	cycle("cd")
	cycle("ab") // wraps past the end of the list
}

func TestTypewriter_IntervalTracksMode(t *testing.T) {
	tw := newTestTypewriter(t, "ab", "cd")

	if got := tw.Interval(); got != DefaultTypeInterval {
		t.Errorf("typing interval: got %v, want %v", got, DefaultTypeInterval)
	}

	typeOut(t, tw)
	// Hold pending: still typing cadence.
	if got := tw.Interval(); got != DefaultTypeInterval {
		t.Errorf("hold interval: got %v, want %v", got, DefaultTypeInterval)
	}

	tw.StartDeleting()
	if got := tw.Interval(); got != DefaultDeleteInterval {
		t.Errorf("deleting interval: got %v, want %v", got, DefaultDeleteInterval)
	}

	// The tick that empties the display returns to Typing, so the next
	// delay is a typing interval again.
	tw.Tick()
	tw.Tick()
	if tw.Mode() != ModeTyping {
		t.Fatalf("mode after emptying: got %v, want %v", tw.Mode(), ModeTyping)
	}
	if got := tw.Interval(); got != DefaultTypeInterval {
		t.Errorf("interval after emptying: got %v, want %v", got, DefaultTypeInterval)
	}
}

func TestTypewriter_CustomTiming(t *testing.T) {
	tw, err := NewTypewriter([]string{"x"}, Timing{
		TypeInterval:   5 * time.Millisecond,
		DeleteInterval: 3 * time.Millisecond,
		HoldDelay:      7 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewTypewriter: %v", err)
	}
	if got := tw.Interval(); got != 5*time.Millisecond {
		t.Errorf("Interval: got %v, want 5ms", got)
	}
	if got := tw.HoldDelay(); got != 7*time.Millisecond {
		t.Errorf("HoldDelay: got %v, want 7ms", got)
	}
}

func TestTypewriter_StartDeletingWithoutCompletionIgnored(t *testing.T) {
	tw := newTestTypewriter(t, "abc")

	tw.Tick() // "a", mid-phrase
	tw.StartDeleting()
	if tw.Mode() != ModeTyping {
		t.Errorf("mode: got %v, want %v", tw.Mode(), ModeTyping)
	}
	text, _ := tw.Tick()
	if text != "ab" {
		t.Errorf("tick after ignored StartDeleting: got %q, want %q", text, "ab")
	}
}

func TestTypewriter_UnicodePhrases(t *testing.T) {
	phrase := "Développeur"
	tw := newTestTypewriter(t, phrase)

	text, _ := tw.Tick()
	if text != "D" {
		t.Errorf("tick 1: got %q, want %q", text, "D")
	}
	text, _ = tw.Tick()
	if text != "Dé" {
		t.Errorf("tick 2: got %q, want %q", text, "Dé")
	}

	ticks := 2
	for {
		_, completed := tw.Tick()
		ticks++
		if completed {
			break
		}
		if ticks > 20 {
			t.Fatalf("no completion after %d ticks", ticks)
		}
	}
	if want := len([]rune(phrase)); ticks != want {
		t.Errorf("completion ticks: got %d, want %d", ticks, want)
	}
}

func TestTypewriter_SetPhrasesRestarts(t *testing.T) {
	tw := newTestTypewriter(t, "old phrase")
	typeOut(t, tw)

	if err := tw.SetPhrases([]string{"new", "list"}); err != nil {
		t.Fatalf("SetPhrases: %v", err)
	}
	if tw.Text() != "" {
		t.Errorf("Text after SetPhrases: got %q, want empty", tw.Text())
	}
	if tw.Mode() != ModeTyping {
		t.Errorf("Mode after SetPhrases: got %v, want %v", tw.Mode(), ModeTyping)
	}

	// Any hold pending before the swap is forgotten.
	tw.StartDeleting()
	text, _ := tw.Tick()
	if text != "n" {
		t.Errorf("first tick after SetPhrases: got %q, want %q", text, "n")
	}
}

func TestTypewriter_SetPhrasesRejectsInvalid(t *testing.T) {
	tw := newTestTypewriter(t, "keep me")

	if err := tw.SetPhrases(nil); err == nil {
		t.Errorf("SetPhrases(nil): got nil error")
	}
	if err := tw.SetPhrases([]string{"ok", ""}); err == nil {
		t.Errorf("SetPhrases with empty phrase: got nil error")
	}
	if tw.Phrase() != "keep me" {
		t.Errorf("phrase after rejected SetPhrases: got %q, want %q", tw.Phrase(), "keep me")
	}
}

func TestNewTypewriter_RejectsEmpty(t *testing.T) {
	if _, err := NewTypewriter(nil, Timing{}); err == nil {
		t.Errorf("empty list: got nil error")
	}
	if _, err := NewTypewriter([]string{""}, Timing{}); err == nil {
		t.Errorf("empty phrase: got nil error")
	}
}

// typeOut ticks until the current phrase completes.
func typeOut(t *testing.T, tw *Typewriter) {
	t.Helper()
	for i := 0; i < 1000; i++ {
		if _, completed := tw.Tick(); completed {
			return
		}
	}
	t.Fatalf("phrase never completed")
}
