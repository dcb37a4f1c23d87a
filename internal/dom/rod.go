package dom

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/hazyhaar/domstage/internal/browser"
	"github.com/hazyhaar/domstage/script"
)

const bindingName = "__domstage_binding"

//go:embed hook.js
var hookJS []byte

// PageDocument drives a live Chrome tab through Rod. All DOM access goes
// through small page evaluations; the click and scroll hooks report back
// through a runtime binding.
type PageDocument struct {
	tab     *browser.Tab
	page    *rod.Page
	sel     Selectors
	logger  *slog.Logger
	ctx     context.Context
	cancel  context.CancelFunc
	signals chan Signal
}

// Attach installs the binding and hook script on the tab and returns the
// live Document. The context bounds every evaluation and the signal
// listener; cancelling it detaches cleanly.
func Attach(ctx context.Context, tab *browser.Tab, sel Selectors, logger *slog.Logger) (*PageDocument, error) {
	if logger == nil {
		logger = slog.Default()
	}
	sel.Defaults()

	ctx, cancel := context.WithCancel(ctx)
	d := &PageDocument{
		tab:     tab,
		page:    tab.Page.Context(ctx),
		sel:     sel,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
		signals: make(chan Signal, 256),
	}

	if err := d.installHooks(); err != nil {
		cancel()
		return nil, err
	}
	return d, nil
}

func (d *PageDocument) installHooks() error {
	err := proto.RuntimeAddBinding{Name: bindingName}.Call(d.page)
	if err != nil {
		d.logger.Warn("dom: addBinding failed (may already exist)", "error", err)
	}

	go d.listenBinding()

	// The click hook reads the scroll-top selector from the page, set
	// before injection.
	if _, err := d.page.Eval(`(sel) => { window.__domstage_scrolltop = sel; }`, d.sel.ScrollTop); err != nil {
		d.logger.Warn("dom: set scrolltop selector failed", "error", err)
	}

	if _, err := d.page.Eval(string(hookJS)); err != nil {
		return fmt.Errorf("dom: inject hook.js: %w", err)
	}

	d.logger.Debug("dom: hooks installed", "url", d.tab.PageURL)
	return nil
}

// listenBinding receives interaction reports via Runtime.bindingCalled
// and forwards them to the signal channel.
func (d *PageDocument) listenBinding() {
	d.page.EachEvent(func(e *proto.RuntimeBindingCalled) {
		if e.Name != bindingName {
			return
		}

		var sig Signal
		if err := json.Unmarshal([]byte(e.Payload), &sig); err != nil {
			d.logger.Warn("dom: parse hook payload", "error", err)
			return
		}

		select {
		case d.signals <- sig:
		case <-d.ctx.Done():
		}
	})()
}

func (d *PageDocument) Title() (string, error) {
	res, err := d.page.Eval(`() => document.title`)
	if err != nil {
		return "", fmt.Errorf("dom: title: %w", err)
	}
	return res.Value.Str(), nil
}

func (d *PageDocument) ScrollOffset() (float64, error) {
	res, err := d.page.Eval(`() => window.scrollY || 0`)
	if err != nil {
		return 0, fmt.Errorf("dom: scroll offset: %w", err)
	}
	return res.Value.Num(), nil
}

func (d *PageDocument) Sections() ([]script.Section, error) {
	res, err := d.page.Eval(`(sel) =>
		Array.from(document.querySelectorAll(sel))
			.filter((el) => el.id)
			.map((el) => ({ id: el.id, top: el.offsetTop }))`, d.sel.Sections)
	if err != nil {
		return nil, fmt.Errorf("dom: sections: %w", err)
	}

	var sections []script.Section
	for _, item := range res.Value.Arr() {
		sections = append(sections, script.Section{
			ID:  item.Get("id").Str(),
			Top: item.Get("top").Num(),
		})
	}
	return sections, nil
}

func (d *PageDocument) AnchorTop(fragment string) (float64, bool, error) {
	if fragment == "" {
		return 0, false, nil
	}
	// offsetTop is never negative, so -1 marks a missing element.
	res, err := d.page.Eval(`(id) => {
		const el = document.getElementById(id);
		return el ? el.offsetTop : -1;
	}`, fragment)
	if err != nil {
		return 0, false, fmt.Errorf("dom: anchor top: %w", err)
	}
	top := res.Value.Num()
	if top < 0 {
		return 0, false, nil
	}
	return top, true, nil
}

func (d *PageDocument) WriteText(text string) error {
	_, err := d.page.Eval(`(sel, text) => {
		const el = document.querySelector(sel);
		if (el) el.textContent = text;
	}`, d.sel.TypeTarget, text)
	if err != nil {
		return fmt.Errorf("dom: write text: %w", err)
	}
	return nil
}

func (d *PageDocument) SetNavbarScrolled(on bool) error {
	_, err := d.page.Eval(`(sel, cls, on) => {
		const el = document.querySelector(sel);
		if (el) el.classList.toggle(cls, on);
	}`, d.sel.Navbar, d.sel.ScrolledClass, on)
	if err != nil {
		return fmt.Errorf("dom: navbar class: %w", err)
	}
	return nil
}

func (d *PageDocument) SetActiveLink(id string) error {
	_, err := d.page.Eval(`(sel, cls, id) => {
		document.querySelectorAll(sel).forEach((a) => {
			a.classList.remove(cls);
			if (id && a.getAttribute('href') === '#' + id) {
				a.classList.add(cls);
			}
		});
	}`, d.sel.NavLinks, d.sel.ActiveClass, id)
	if err != nil {
		return fmt.Errorf("dom: active link: %w", err)
	}
	return nil
}

func (d *PageDocument) ScrollTo(top float64) error {
	_, err := d.page.Eval(`(top) => {
		window.scrollTo({ top: top, behavior: 'smooth' });
	}`, top)
	if err != nil {
		return fmt.Errorf("dom: scroll to: %w", err)
	}
	return nil
}

func (d *PageDocument) InitReveal(cfg script.RevealConfig) error {
	res, err := d.page.Eval(`(cfg) => {
		window.__domstage_reveal = cfg;
		if (window.AOS && typeof window.AOS.init === 'function') {
			window.AOS.init(cfg);
			return true;
		}
		return false;
	}`, cfg)
	if err != nil {
		return fmt.Errorf("dom: init reveal: %w", err)
	}
	if !res.Value.Bool() {
		d.logger.Debug("dom: no reveal library on page", "url", d.tab.PageURL)
	}
	return nil
}

func (d *PageDocument) Signals() <-chan Signal {
	return d.signals
}

// Close stops the signal listener. The tab itself belongs to the
// browser manager and is closed there.
func (d *PageDocument) Close() error {
	d.cancel()
	return nil
}
