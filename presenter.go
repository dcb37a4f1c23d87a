// Package domstage drives the presentation layer of a portfolio page
// from the outside: a typewriter headline, scroll-aware navigation
// styling, smooth anchor scrolling, and a scroll-reveal pass, all
// decided in Go and applied to the page over CDP.
//
// domstage performs, it does not observe. The page ships as static
// markup; every animated frame it shows was written by the stage. The
// event stream goes to sinks (stdout, webhook, SQLite journal,
// callback) for whoever wants the performance record.
package domstage

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod"

	"github.com/hazyhaar/domstage/idgen"
	"github.com/hazyhaar/domstage/internal/browser"
	"github.com/hazyhaar/domstage/internal/config"
	"github.com/hazyhaar/domstage/internal/cues"
	"github.com/hazyhaar/domstage/internal/dom"
	"github.com/hazyhaar/domstage/internal/httpapi"
	"github.com/hazyhaar/domstage/internal/journal"
	"github.com/hazyhaar/domstage/internal/outline"
	"github.com/hazyhaar/domstage/internal/safeurl"
	"github.com/hazyhaar/domstage/internal/sink"
	"github.com/hazyhaar/domstage/internal/stage"
)

// retentionSweep is how often the journal retention window is enforced.
const retentionSweep = 12 * time.Hour

// Presenter is the top-level orchestrator. It manages the browser, the
// stage, the cue store and the sinks. Create one per performed page.
type Presenter struct {
	cfg       *config.Config
	sessionID string
	pageURL   string

	mgr    *browser.Manager // nil in rehearsal mode
	router *sink.Router
	jrnl   *journal.Journal // nil unless configured
	sheet  *cues.Store      // nil unless configured
	fetch  *outline.Fetcher
	logger *slog.Logger

	mu      sync.Mutex
	tab     *browser.Tab
	doc     dom.Document
	stg     *stage.Stage
	phrases []string

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a Presenter that launches a browser and performs on the
// configured page URL. Extra sinks are added to the configured ones.
func New(cfg *config.Config, logger *slog.Logger, extra ...sink.Sink) (*Presenter, error) {
	p, err := assemble(cfg, logger, extra)
	if err != nil {
		return nil, err
	}

	if cfg.Session.URL == "" {
		p.close()
		return nil, fmt.Errorf("domstage: session url required")
	}
	// The page is operator-owned and routinely served from localhost;
	// only the scheme is vetted here.
	if err := safeurl.Validate(cfg.Session.URL, safeurl.Policy{AllowPrivate: true}); err != nil {
		p.close()
		return nil, fmt.Errorf("domstage: session url: %w", err)
	}
	p.pageURL = cfg.Session.URL

	stealth, err := browser.ParseStealthLevel(cfg.Browser.Stealth)
	if err != nil {
		p.close()
		return nil, err
	}
	p.mgr = browser.NewManager(browser.Config{
		RemoteURL:       cfg.Browser.Remote,
		MemoryLimit:     cfg.Browser.MemoryLimit,
		RecycleInterval: cfg.Browser.RecycleInterval,
		BlockResources:  cfg.Browser.BlockResources,
		Stealth:         stealth,
		XvfbDisplay:     cfg.Browser.XvfbDisplay,
		Logger:          p.logger,
	})

	return p, nil
}

// NewRehearsal creates a Presenter that performs against doc instead of
// a browser page. The -rehearse CLI mode and tests run the full loop
// this way without Chrome.
func NewRehearsal(cfg *config.Config, doc dom.Document, logger *slog.Logger, extra ...sink.Sink) (*Presenter, error) {
	p, err := assemble(cfg, logger, extra)
	if err != nil {
		return nil, err
	}

	p.doc = doc
	p.pageURL = cfg.Session.URL
	if p.pageURL == "" {
		p.pageURL = "memory://rehearsal"
	}
	return p, nil
}

func assemble(cfg *config.Config, logger *slog.Logger, extra []sink.Sink) (*Presenter, error) {
	if logger == nil {
		logger = slog.Default()
	}

	p := &Presenter{
		cfg:       cfg,
		sessionID: cfg.Session.ID,
		fetch:     outline.NewFetcher(outline.FetchConfig{}),
		logger:    logger,
	}
	if p.sessionID == "" {
		p.sessionID = idgen.New()
	}

	if cfg.Journal.Path != "" {
		j, err := journal.Open(cfg.Journal.Path, logger)
		if err != nil {
			return nil, fmt.Errorf("domstage: open journal: %w", err)
		}
		p.jrnl = j
	}

	if cfg.Cues.Path != "" {
		s, err := cues.Open(cfg.Cues.Path, logger)
		if err != nil {
			if p.jrnl != nil {
				p.jrnl.Close()
			}
			return nil, fmt.Errorf("domstage: open cue store: %w", err)
		}
		p.sheet = s
	}

	sinks := buildSinks(cfg.Sinks, logger)
	if p.jrnl != nil {
		sinks = append(sinks, p.jrnl)
	}
	sinks = append(sinks, extra...)
	p.router = sink.NewRouter(logger, sinks...)

	return p, nil
}

// buildSinks assembles sinks from configuration. A misconfigured sink
// is logged and skipped, never fatal.
func buildSinks(cfgs []config.SinkConfig, logger *slog.Logger) []sink.Sink {
	var sinks []sink.Sink
	for _, sc := range cfgs {
		switch sc.Type {
		case "stdout":
			sinks = append(sinks, sink.NewStdout(nil))
		case "webhook":
			if err := safeurl.Validate(sc.URL, safeurl.Policy{AllowPrivate: true}); err != nil {
				logger.Error("domstage: webhook sink url rejected", "url", sc.URL, "error", err)
				continue
			}
			opts := []sink.WebhookOption{sink.WithWebhookLogger(logger)}
			if sc.Retries > 0 {
				opts = append(opts, sink.WithWebhookRetries(sc.Retries))
			}
			if sc.Backoff > 0 {
				opts = append(opts, sink.WithWebhookBackoff(sc.Backoff))
			}
			sinks = append(sinks, sink.NewWebhook(sc.URL, opts...))
		default:
			logger.Warn("domstage: unknown sink type", "type", sc.Type)
		}
	}
	return sinks
}

// Start opens the page and begins the performance. It returns once the
// stage is running; the loops stop when ctx is cancelled or Stop is
// called.
func (p *Presenter) Start(ctx context.Context) error {
	p.ctx, p.cancel = context.WithCancel(ctx)

	phrases := p.resolvePhrases(p.ctx)

	if p.mgr != nil {
		if _, err := p.mgr.Start(p.ctx); err != nil {
			return fmt.Errorf("domstage: start browser: %w", err)
		}
		p.mgr.SetRecycleCallback(&browser.RecycleCallback{
			BeforeRecycle: p.detachStage,
			AfterRecycle:  func(*rod.Browser) { p.reattach() },
		})
		if err := p.attach(phrases); err != nil {
			return err
		}
	} else {
		p.mu.Lock()
		doc := p.doc
		p.mu.Unlock()
		if err := p.startStage(doc, phrases); err != nil {
			return err
		}
	}

	if p.sheet != nil {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			p.sheet.Watch(p.ctx, cues.WatchOptions{
				Interval: p.cfg.Cues.PollInterval,
				Debounce: p.cfg.Cues.Debounce,
			}, p.applyCues)
		}()
	}

	if p.jrnl != nil && p.cfg.Journal.RetentionDays > 0 {
		p.wg.Add(1)
		go p.retentionLoop()
	}

	p.logger.Info("domstage: performing",
		"session", p.sessionID, "url", p.pageURL, "phrases", len(phrases))
	return nil
}

// resolvePhrases picks the opening phrase list. The cue store wins when
// configured; the config list seeds it on first run.
func (p *Presenter) resolvePhrases(ctx context.Context) []string {
	if p.sheet == nil {
		return p.cfg.Script.Phrases
	}

	if err := p.sheet.Seed(ctx, p.cfg.Script.Phrases); err != nil {
		p.logger.Warn("domstage: seed cue store", "error", err)
	}
	phrases, err := p.sheet.Phrases(ctx)
	if err != nil || len(phrases) == 0 {
		p.logger.Warn("domstage: cue store unreadable, using config phrases", "error", err)
		return p.cfg.Script.Phrases
	}
	return phrases
}

// attach opens a tab on the page and starts a stage on it. Used at
// startup and after every browser recycle.
func (p *Presenter) attach(phrases []string) error {
	tab, err := browser.OpenTab(p.ctx, p.mgr, p.pageURL, p.sessionID)
	if err != nil {
		return fmt.Errorf("domstage: open tab: %w", err)
	}

	doc, err := dom.Attach(p.ctx, tab, p.cfg.Selectors.Selectors(), p.logger)
	if err != nil {
		tab.Close()
		return fmt.Errorf("domstage: attach document: %w", err)
	}

	if err := p.startStage(doc, phrases); err != nil {
		doc.Close()
		tab.Close()
		return err
	}

	p.mu.Lock()
	p.tab = tab
	p.mu.Unlock()
	return nil
}

func (p *Presenter) startStage(doc dom.Document, phrases []string) error {
	stg, err := stage.New(doc, stage.Config{
		SessionID:       p.sessionID,
		PageURL:         p.pageURL,
		Phrases:         phrases,
		Timing:          p.cfg.Script.Timing(),
		Reveal:          p.cfg.Reveal.Reveal(),
		NavbarThreshold: p.cfg.Script.NavbarThreshold,
		SectionMargin:   p.cfg.Script.SectionMargin,
		Sink:            p.router,
		Logger:          p.logger,
	})
	if err != nil {
		return err
	}
	stg.Start(p.ctx)

	p.mu.Lock()
	p.doc = doc
	p.stg = stg
	p.phrases = append([]string(nil), phrases...)
	p.mu.Unlock()
	return nil
}

// detachStage stops the stage and releases the tab before Chrome goes
// down. The phrase list survives the recycle.
func (p *Presenter) detachStage() {
	p.mu.Lock()
	stg, doc, tab := p.stg, p.doc, p.tab
	if stg != nil {
		p.phrases = stg.Phrases()
	}
	p.stg, p.doc, p.tab = nil, nil, nil
	p.mu.Unlock()

	if stg != nil {
		stg.Stop()
	}
	if doc != nil {
		doc.Close()
	}
	if tab != nil {
		tab.Close()
	}
}

// reattach re-opens the page on the fresh browser after a recycle.
func (p *Presenter) reattach() {
	p.mu.Lock()
	phrases := append([]string(nil), p.phrases...)
	p.mu.Unlock()

	if err := p.attach(phrases); err != nil {
		p.logger.Error("domstage: reattach after recycle failed", "error", err)
	}
}

// applyCues is the cue watcher callback. An error leaves the store
// version unconsumed so the watcher retries on the next poll.
func (p *Presenter) applyCues(phrases []string) error {
	stg := p.currentStage()
	if stg == nil {
		return fmt.Errorf("domstage: stage detached")
	}
	if err := stg.ReloadCues(phrases); err != nil {
		return err
	}

	p.mu.Lock()
	p.phrases = append([]string(nil), phrases...)
	p.mu.Unlock()
	return nil
}

func (p *Presenter) retentionLoop() {
	defer p.wg.Done()

	sweep := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := p.jrnl.Cleanup(ctx, p.cfg.Journal.RetentionDays); err != nil {
			p.logger.Warn("domstage: journal cleanup", "error", err)
		}
	}

	sweep()
	ticker := time.NewTicker(retentionSweep)
	defer ticker.Stop()
	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			sweep()
		}
	}
}

// Stop ends the performance and releases the browser, the sinks and
// the stores.
func (p *Presenter) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	p.detachStage()
	p.wg.Wait()

	p.close()
	if p.mgr != nil {
		p.mgr.Close()
	}
}

// close releases the stores and sinks. Safe on a partially assembled
// Presenter.
func (p *Presenter) close() {
	if p.router != nil {
		p.router.Close() // closes the journal sink with the rest
	}
	if p.sheet != nil {
		p.sheet.Close()
	}
}

func (p *Presenter) currentStage() *stage.Stage {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stg
}

// SessionID returns the identifier stamped on every event of this
// performance.
func (p *Presenter) SessionID() string {
	return p.sessionID
}

// Status snapshots the running stage. Between a browser recycle and the
// reattach there is no stage; the snapshot then carries only identity.
func (p *Presenter) Status() stage.Status {
	if stg := p.currentStage(); stg != nil {
		return stg.Status()
	}
	return stage.Status{SessionID: p.sessionID, PageURL: p.pageURL}
}

// Phrases returns the phrase list currently in rotation.
func (p *Presenter) Phrases() []string {
	if stg := p.currentStage(); stg != nil {
		return stg.Phrases()
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.phrases...)
}

// SetPhrases swaps the running phrase list directly on the stage. When
// a cue store is configured, prefer UpdatePhrases so the store stays
// the source of truth.
func (p *Presenter) SetPhrases(phrases []string) error {
	stg := p.currentStage()
	if stg == nil {
		return fmt.Errorf("domstage: stage detached")
	}
	if err := stg.SetPhrases(phrases); err != nil {
		return err
	}

	p.mu.Lock()
	p.phrases = append([]string(nil), phrases...)
	p.mu.Unlock()
	return nil
}

// UpdatePhrases routes a phrase change the right way: through the cue
// store when one is configured (the watcher swaps the stage), directly
// onto the stage otherwise. The returned status is "scheduled" or
// "applied".
func (p *Presenter) UpdatePhrases(ctx context.Context, phrases []string) (string, error) {
	if p.sheet != nil {
		if err := p.sheet.Replace(ctx, phrases); err != nil {
			return "", err
		}
		return "scheduled", nil
	}
	if err := p.SetPhrases(phrases); err != nil {
		return "", err
	}
	return "applied", nil
}

// ScrollTop performs the back-to-top scroll.
func (p *Presenter) ScrollTop() error {
	stg := p.currentStage()
	if stg == nil {
		return fmt.Errorf("domstage: stage detached")
	}
	return stg.ScrollTop()
}

// Journal returns the event journal, or nil when none is configured.
func (p *Presenter) Journal() *journal.Journal {
	return p.jrnl
}

// Cues returns the cue store, or nil when none is configured.
func (p *Presenter) Cues() *cues.Store {
	return p.sheet
}

// Outline fetches a URL and reports its section structure. Independent
// of the performed page; the admin surface uses it to vet a page
// before pointing a stage at it.
func (p *Presenter) Outline(ctx context.Context, rawURL string) (*outline.Outline, error) {
	return p.fetch.Outline(ctx, rawURL)
}

// PageOutline reports the section structure of the live page, read
// from the running tab rather than fetched over HTTP.
func (p *Presenter) PageOutline(ctx context.Context) (*outline.Outline, error) {
	p.mu.Lock()
	tab := p.tab
	p.mu.Unlock()
	if tab == nil {
		return nil, fmt.Errorf("domstage: no live page")
	}

	data, err := tab.HTML(ctx)
	if err != nil {
		return nil, fmt.Errorf("domstage: read page html: %w", err)
	}
	return outline.FromHTML(data, p.pageURL)
}

// ServeAPI runs the admin HTTP API until ctx is cancelled. Blocking.
func (p *Presenter) ServeAPI(ctx context.Context) error {
	srv := httpapi.New(httpapi.Config{
		Stage:        p,
		Journal:      p.jrnl,
		Cues:         p.sheet,
		Outline:      p.fetch,
		Username:     p.cfg.API.Username,
		PasswordHash: p.cfg.API.PasswordHash,
		Logger:       p.logger,
	})
	return srv.ListenAndServe(ctx, p.cfg.API.Listen)
}
