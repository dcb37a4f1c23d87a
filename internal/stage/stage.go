// Package stage runs the presentation loop for a single page: the
// typewriter cadence, scroll-driven navigation styling, and smooth
// scrolling. Every mutation the page receives is decided in one
// goroutine; timers, user interactions and runtime commands are all
// serialised through its select.
package stage

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hazyhaar/domstage/event"
	"github.com/hazyhaar/domstage/idgen"
	"github.com/hazyhaar/domstage/internal/dom"
	"github.com/hazyhaar/domstage/internal/sink"
	"github.com/hazyhaar/domstage/script"
)

// Config for creating a Stage.
type Config struct {
	SessionID string
	PageURL   string
	Phrases   []string
	Timing    script.Timing
	Reveal    script.RevealConfig

	// NavbarThreshold is the scroll depth past which the navbar takes
	// its scrolled styling. Default: script.DefaultNavbarThreshold.
	NavbarThreshold float64
	// SectionMargin is subtracted from section tops for active-link
	// tracking. Default: script.DefaultSectionMargin.
	SectionMargin float64

	Sink   sink.Sink
	IDGen  idgen.Generator
	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.NavbarThreshold <= 0 {
		c.NavbarThreshold = script.DefaultNavbarThreshold
	}
	if c.SectionMargin <= 0 {
		c.SectionMargin = script.DefaultSectionMargin
	}
	if c.Reveal == (script.RevealConfig{}) {
		c.Reveal = script.DefaultReveal()
	}
	if c.Sink == nil {
		c.Sink = sink.NewCallback(nil)
	}
	if c.IDGen == nil {
		c.IDGen = idgen.Default
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Status is a point-in-time snapshot of a running stage.
type Status struct {
	SessionID     string    `json:"session_id"`
	PageURL       string    `json:"page_url"`
	Title         string    `json:"title,omitempty"`
	StartedAt     time.Time `json:"started_at"`
	Phrase        string    `json:"phrase"`
	PhraseIndex   int       `json:"phrase_index"`
	Text          string    `json:"text"`
	Mode          string    `json:"mode"`
	Navbar        string    `json:"navbar"`
	ActiveSection string    `json:"active_section,omitempty"`
	Offset        float64   `json:"offset"`
	Events        uint64    `json:"events"`
}

type command struct {
	fn    func() error
	reply chan error
}

// Stage performs against a single Document. Create with New, run with
// Start, detach with Stop.
type Stage struct {
	cfg    Config
	doc    dom.Document
	tw     *script.Typewriter
	logger *slog.Logger

	ctx     context.Context
	cancel  context.CancelFunc
	started atomic.Bool
	done    chan struct{}
	cmds    chan command

	seq atomic.Uint64

	mu      sync.Mutex
	status  Status
	phrases []string

	// Loop-owned state; never touched outside the loop goroutine.
	navbar script.NavbarState
	active string
	tick   *time.Timer
	hold   *time.Timer
}

// New validates the configuration and returns a Stage ready to Start.
func New(doc dom.Document, cfg Config) (*Stage, error) {
	cfg.defaults()
	if cfg.SessionID == "" {
		return nil, fmt.Errorf("stage: session id required")
	}
	tw, err := script.NewTypewriter(cfg.Phrases, cfg.Timing)
	if err != nil {
		return nil, fmt.Errorf("stage: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Stage{
		cfg:     cfg,
		doc:     doc,
		tw:      tw,
		logger:  cfg.Logger,
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
		cmds:    make(chan command),
		phrases: append([]string(nil), cfg.Phrases...),
	}, nil
}

// Start attaches the state machines to the document and begins the
// loop. The stage stops when parent is cancelled or Stop is called.
func (s *Stage) Start(parent context.Context) {
	go func() {
		select {
		case <-parent.Done():
			s.cancel()
		case <-s.ctx.Done():
		}
	}()

	title, err := s.doc.Title()
	if err != nil {
		s.logger.Warn("stage: read title", "error", err)
	}

	s.mu.Lock()
	s.status = Status{
		SessionID: s.cfg.SessionID,
		PageURL:   s.cfg.PageURL,
		Title:     title,
		StartedAt: time.Now(),
		Phrase:    s.tw.Phrase(),
		Mode:      s.tw.Mode().String(),
		Navbar:    script.NavbarTop.String(),
	}
	s.mu.Unlock()

	if err := s.doc.InitReveal(s.cfg.Reveal); err != nil {
		s.logger.Warn("stage: init reveal", "error", err)
	}

	// Align page and state machines before the first tick; a restarted
	// stage may attach to a page that is already scrolled.
	if offset, err := s.doc.ScrollOffset(); err != nil {
		s.logger.Warn("stage: read scroll offset", "error", err)
	} else {
		s.applyScroll(offset)
	}

	s.emit(event.Event{Kind: event.KindSessionStarted, Title: title})
	s.logger.Info("stage: session started",
		"session", s.cfg.SessionID, "url", s.cfg.PageURL, "phrases", len(s.cfg.Phrases))

	s.tick = time.NewTimer(s.tw.Interval())
	s.started.Store(true)
	go s.loop()
}

// Stop detaches the stage and waits for the final event to flush.
func (s *Stage) Stop() {
	s.cancel()
	if s.started.Load() {
		<-s.done
	}
}

// Done is closed when the loop has exited.
func (s *Stage) Done() <-chan struct{} {
	return s.done
}

// Status returns a snapshot of the running stage.
func (s *Stage) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.status
	st.Events = s.seq.Load()
	return st
}

// Phrases returns a copy of the phrase list currently in rotation.
func (s *Stage) Phrases() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.phrases...)
}

// SetPhrases swaps the running phrase list between ticks. The display
// restarts from an empty string; a pending hold is disarmed.
func (s *Stage) SetPhrases(phrases []string) error {
	return s.swapPhrases(phrases, event.KindPhrasesUpdated)
}

// ReloadCues is SetPhrases for cue-store reloads. Same swap, but the
// event stream records where the new list came from.
func (s *Stage) ReloadCues(phrases []string) error {
	return s.swapPhrases(phrases, event.KindCuesReloaded)
}

func (s *Stage) swapPhrases(phrases []string, kind event.Kind) error {
	return s.do(func() error {
		if err := s.tw.SetPhrases(phrases); err != nil {
			return err
		}
		if s.hold != nil {
			s.hold.Stop()
			s.hold = nil
		}
		s.mu.Lock()
		s.phrases = append([]string(nil), phrases...)
		s.mu.Unlock()
		s.emit(event.Event{Kind: kind, Count: len(phrases)})
		s.updateTypingStatus()
		return nil
	})
}

// ScrollTop performs the back-to-top scroll, as if the page control had
// been clicked.
func (s *Stage) ScrollTop() error {
	return s.do(func() error {
		s.scrollTop()
		return nil
	})
}

// do runs fn inside the loop goroutine and returns its error.
func (s *Stage) do(fn func() error) error {
	reply := make(chan error, 1)
	select {
	case s.cmds <- command{fn: fn, reply: reply}:
	case <-s.ctx.Done():
		return fmt.Errorf("stage: stopped")
	}
	select {
	case err := <-reply:
		return err
	case <-s.ctx.Done():
		return fmt.Errorf("stage: stopped")
	}
}

// loop is the only goroutine that mutates the document.
func (s *Stage) loop() {
	defer close(s.done)
	defer s.tick.Stop()

	signals := s.doc.Signals()
	for {
		select {
		case <-s.ctx.Done():
			s.finish("stopped")
			return

		case <-s.tick.C:
			s.handleTick()
			// Cadence follows the mode the machine is in now.
			s.tick.Reset(s.tw.Interval())

		case <-s.holdC():
			s.hold = nil
			s.tw.StartDeleting()

		case sig, ok := <-signals:
			if !ok {
				s.finish("document closed")
				return
			}
			s.handleSignal(sig, signals)

		case cmd := <-s.cmds:
			cmd.reply <- cmd.fn()
		}
	}
}

func (s *Stage) handleTick() {
	prevIndex := s.tw.Index()
	prevPhrase := s.tw.Phrase()
	prevMode := s.tw.Mode()

	text, completed := s.tw.Tick()
	if err := s.doc.WriteText(text); err != nil {
		s.logger.Warn("stage: write text", "error", err)
	}

	if completed {
		s.armHold()
		s.emit(event.Event{Kind: event.KindPhraseTyped, Text: text, PhraseIndex: prevIndex})
	}
	if prevMode == script.ModeDeleting && s.tw.Mode() == script.ModeTyping {
		s.emit(event.Event{Kind: event.KindPhraseDeleted, Text: prevPhrase, PhraseIndex: prevIndex})
	}
	s.updateTypingStatus()
}

func (s *Stage) armHold() {
	if s.hold != nil {
		s.hold.Stop()
	}
	s.hold = time.NewTimer(s.tw.HoldDelay())
}

// holdC returns the hold timer channel, or nil when no hold is armed so
// the select arm stays dormant.
func (s *Stage) holdC() <-chan time.Time {
	if s.hold == nil {
		return nil
	}
	return s.hold.C
}

// handleSignal dispatches one interaction. Scroll reports arrive faster
// than CDP writes go out, so a queued run of them collapses to the
// latest offset before anything is applied.
func (s *Stage) handleSignal(sig dom.Signal, signals <-chan dom.Signal) {
	if sig.Kind == dom.SignalScroll {
		latest := sig
	drain:
		for {
			select {
			case next, ok := <-signals:
				if !ok {
					break drain
				}
				if next.Kind == dom.SignalScroll {
					latest = next
					continue
				}
				// A click queued behind the scrolls: settle the scroll
				// state first, then handle the click in order.
				s.applyScroll(latest.Offset)
				s.handleSignal(next, signals)
				return
			default:
				break drain
			}
		}
		s.applyScroll(latest.Offset)
		return
	}

	switch sig.Kind {
	case dom.SignalAnchor:
		s.handleAnchor(sig.Fragment)
	case dom.SignalScrollTop:
		s.scrollTop()
	}
}

// applyScroll recomputes navbar styling and the active link for an
// offset. Section tops are re-measured on every pass; the page may have
// reflowed since the last one. DOM writes are applied unconditionally
// (they are idempotent), events fire only on change.
func (s *Stage) applyScroll(offset float64) {
	state := script.NavbarStateFor(offset, s.cfg.NavbarThreshold)
	if err := s.doc.SetNavbarScrolled(state == script.NavbarScrolled); err != nil {
		s.logger.Warn("stage: navbar class", "error", err)
	}
	if state != s.navbar {
		s.navbar = state
		s.emit(event.Event{Kind: event.KindNavbarChanged, State: state.String(), Offset: offset})
	}

	sections, err := s.doc.Sections()
	if err != nil {
		s.logger.Warn("stage: read sections", "error", err)
	} else {
		id, _ := script.ActiveSection(sections, offset, s.cfg.SectionMargin)
		if err := s.doc.SetActiveLink(id); err != nil {
			s.logger.Warn("stage: active link", "error", err)
		}
		if id != s.active {
			s.active = id
			if id == "" {
				s.emit(event.Event{Kind: event.KindSectionCleared, Offset: offset})
			} else {
				s.emit(event.Event{Kind: event.KindSectionActivated, SectionID: id, Offset: offset})
			}
		}
	}

	s.mu.Lock()
	s.status.Offset = offset
	s.status.Navbar = s.navbar.String()
	s.status.ActiveSection = s.active
	s.mu.Unlock()
}

// handleAnchor resolves a suppressed fragment-link click. A missing
// target means no scroll at all, only a trace that it was ignored.
func (s *Stage) handleAnchor(fragment string) {
	top, ok, err := s.doc.AnchorTop(fragment)
	if err != nil {
		s.logger.Warn("stage: anchor lookup", "fragment", fragment, "error", err)
		return
	}
	if !ok {
		s.emit(event.Event{Kind: event.KindAnchorIgnored, Target: fragment})
		return
	}
	if err := s.doc.ScrollTo(top); err != nil {
		s.logger.Warn("stage: smooth scroll", "fragment", fragment, "error", err)
		return
	}
	s.emit(event.Event{Kind: event.KindScrollTo, Target: fragment, Offset: top})
}

func (s *Stage) scrollTop() {
	if err := s.doc.ScrollTo(0); err != nil {
		s.logger.Warn("stage: scroll top", "error", err)
		return
	}
	s.emit(event.Event{Kind: event.KindScrollTo, Target: "top", Offset: 0})
}

func (s *Stage) updateTypingStatus() {
	s.mu.Lock()
	s.status.Phrase = s.tw.Phrase()
	s.status.PhraseIndex = s.tw.Index()
	s.status.Text = s.tw.Text()
	s.status.Mode = s.tw.Mode().String()
	s.mu.Unlock()
}

func (s *Stage) emit(e event.Event) {
	s.send(s.ctx, e)
}

// finish emits the terminal event on a fresh context; the stage context
// is already cancelled by the time the loop unwinds.
func (s *Stage) finish(reason string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.send(ctx, event.Event{Kind: event.KindSessionEnded, Reason: reason})
	s.logger.Info("stage: session ended", "session", s.cfg.SessionID, "reason", reason)
}

func (s *Stage) send(ctx context.Context, e event.Event) {
	e.ID = s.cfg.IDGen()
	e.SessionID = s.cfg.SessionID
	e.PageURL = s.cfg.PageURL
	e.Seq = s.seq.Add(1)
	e.Timestamp = time.Now().UnixMilli()
	if err := s.cfg.Sink.Send(ctx, e); err != nil {
		s.logger.Error("stage: send event failed", "kind", e.Kind, "error", err)
	}
}
