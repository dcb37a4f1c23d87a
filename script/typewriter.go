// Package script implements the presentation state machines domstage
// performs against a live page: the typewriter phrase cycle and the
// scroll-position navigation rules. The package is pure state, no
// timers, no DOM. The stage owns the clock and the document and calls
// in here to decide what to show next.
package script

import (
	"fmt"
	"time"
)

// Mode is the typewriter's current direction of travel.
type Mode int

const (
	ModeTyping Mode = iota
	ModeDeleting
)

func (m Mode) String() string {
	if m == ModeDeleting {
		return "deleting"
	}
	return "typing"
}

// Cadence defaults. Typing is deliberately slower than deleting, and a
// completed phrase holds on screen before deletion begins.
const (
	DefaultTypeInterval   = 150 * time.Millisecond
	DefaultDeleteInterval = 100 * time.Millisecond
	DefaultHoldDelay      = 2000 * time.Millisecond
)

// Timing groups the typewriter delays. Zero values fall back to the
// defaults above.
type Timing struct {
	TypeInterval   time.Duration
	DeleteInterval time.Duration
	HoldDelay      time.Duration
}

func (t *Timing) defaults() {
	if t.TypeInterval <= 0 {
		t.TypeInterval = DefaultTypeInterval
	}
	if t.DeleteInterval <= 0 {
		t.DeleteInterval = DefaultDeleteInterval
	}
	if t.HoldDelay <= 0 {
		t.HoldDelay = DefaultHoldDelay
	}
}

// Typewriter cycles through a fixed phrase list, one character per tick.
// It types a phrase out, reports completion so the caller can arm the
// hold delay, keeps rewriting the full phrase until StartDeleting is
// called, then deletes one character per tick and advances to the next
// phrase (wrapping after the last).
//
// The zero value is not usable; construct with NewTypewriter. A
// Typewriter is not safe for concurrent use; it is owned by a single
// stage loop.
type Typewriter struct {
	phrases []string
	timing  Timing

	index  int // current phrase, always in [0, len(phrases))
	cursor int // runes of the current phrase on display, in [0, rune length]
	mode   Mode

	// holdPending is set on the tick that completes a phrase and cleared
	// by StartDeleting, so a completion is reported exactly once.
	holdPending bool
}

// NewTypewriter validates the phrase list and returns a machine at the
// start of the first phrase. The list must be non-empty and contain no
// empty phrase; both are caller contract, not runtime conditions.
func NewTypewriter(phrases []string, timing Timing) (*Typewriter, error) {
	if err := validatePhrases(phrases); err != nil {
		return nil, err
	}
	timing.defaults()
	return &Typewriter{
		phrases: append([]string(nil), phrases...),
		timing:  timing,
	}, nil
}

func validatePhrases(phrases []string) error {
	if len(phrases) == 0 {
		return fmt.Errorf("script: phrase list is empty")
	}
	for i, p := range phrases {
		if p == "" {
			return fmt.Errorf("script: phrase %d is empty", i)
		}
	}
	return nil
}

// Tick advances the machine one step and returns the text to display.
// completed is true exactly once per phrase, on the tick that types its
// final character; the caller arms the hold delay then. Until
// StartDeleting is called the machine keeps returning the full phrase
// at the typing cadence, mirroring the idempotent rewrites of the
// original effect.
func (t *Typewriter) Tick() (text string, completed bool) {
	runes := []rune(t.phrases[t.index])

	switch t.mode {
	case ModeDeleting:
		if t.cursor > 0 {
			t.cursor--
		}
		text = string(runes[:t.cursor])
		if t.cursor == 0 {
			t.mode = ModeTyping
			t.index = (t.index + 1) % len(t.phrases)
		}
		return text, false

	default: // ModeTyping
		if t.cursor < len(runes) {
			t.cursor++
		}
		text = string(runes[:t.cursor])
		if t.cursor == len(runes) && !t.holdPending {
			t.holdPending = true
			return text, true
		}
		return text, false
	}
}

// StartDeleting switches the machine into Deleting mode. It is the
// delayed transition the hold timer fires; a call with no completed
// phrase pending is ignored.
func (t *Typewriter) StartDeleting() {
	if !t.holdPending {
		return
	}
	t.holdPending = false
	t.mode = ModeDeleting
}

// Interval returns the delay before the next tick, decided by the mode
// the machine is in now: DeleteInterval while deleting, TypeInterval
// otherwise. The tick that empties a phrase returns to Typing, so the
// first character of the next phrase arrives after a typing interval.
func (t *Typewriter) Interval() time.Duration {
	if t.mode == ModeDeleting {
		return t.timing.DeleteInterval
	}
	return t.timing.TypeInterval
}

// HoldDelay returns how long a completed phrase stays on screen before
// deletion starts.
func (t *Typewriter) HoldDelay() time.Duration {
	return t.timing.HoldDelay
}

// SetPhrases swaps the phrase list between ticks: the machine restarts
// at the first new phrase, typing from an empty display, any pending
// hold forgotten. The caller is responsible for disarming an armed hold
// timer. The same validation as NewTypewriter applies; on error the
// current list is kept.
func (t *Typewriter) SetPhrases(phrases []string) error {
	if err := validatePhrases(phrases); err != nil {
		return err
	}
	t.phrases = append([]string(nil), phrases...)
	t.index = 0
	t.cursor = 0
	t.mode = ModeTyping
	t.holdPending = false
	return nil
}

// Text returns the portion of the current phrase on display.
func (t *Typewriter) Text() string {
	return string([]rune(t.phrases[t.index])[:t.cursor])
}

// Phrase returns the phrase the cursor is moving through.
func (t *Typewriter) Phrase() string {
	return t.phrases[t.index]
}

// Index returns the current phrase index.
func (t *Typewriter) Index() int {
	return t.index
}

// Mode returns the current mode.
func (t *Typewriter) Mode() Mode {
	return t.mode
}
