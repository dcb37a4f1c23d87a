package dom

import (
	"sync"

	"github.com/hazyhaar/domstage/script"
)

// Memory is an in-process Document. Tests drive it to verify stage
// behaviour without a browser; rehearsal mode performs against it to
// preview cue timing. All methods are safe for concurrent use.
type Memory struct {
	mu       sync.Mutex
	title    string
	sections []script.Section
	anchors  map[string]float64
	offset   float64

	typed   []string
	navbar  []bool
	active  []string
	scrolls []float64
	reveal  *script.RevealConfig

	signals chan Signal
	closed  bool
}

// NewMemory returns a Memory document with the given sections laid out.
func NewMemory(title string, sections []script.Section) *Memory {
	return &Memory{
		title:    title,
		sections: append([]script.Section(nil), sections...),
		anchors:  make(map[string]float64),
		signals:  make(chan Signal, 64),
	}
}

func (m *Memory) Title() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.title, nil
}

func (m *Memory) ScrollOffset() (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.offset, nil
}

func (m *Memory) Sections() ([]script.Section, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]script.Section(nil), m.sections...), nil
}

func (m *Memory) AnchorTop(fragment string) (float64, bool, error) {
	if fragment == "" {
		return 0, false, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sections {
		if s.ID == fragment {
			return s.Top, true, nil
		}
	}
	if top, ok := m.anchors[fragment]; ok {
		return top, true, nil
	}
	return 0, false, nil
}

func (m *Memory) WriteText(text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.typed = append(m.typed, text)
	return nil
}

func (m *Memory) SetNavbarScrolled(on bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.navbar = append(m.navbar, on)
	return nil
}

func (m *Memory) SetActiveLink(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active = append(m.active, id)
	return nil
}

// ScrollTo records the request and moves the offset there, as if the
// smooth scroll completed instantly.
func (m *Memory) ScrollTo(top float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scrolls = append(m.scrolls, top)
	m.offset = top
	return nil
}

func (m *Memory) InitReveal(cfg script.RevealConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := cfg
	m.reveal = &c
	return nil
}

func (m *Memory) Signals() <-chan Signal {
	return m.signals
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// SetSections replaces the layout, simulating a reflow.
func (m *Memory) SetSections(sections []script.Section) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sections = append([]script.Section(nil), sections...)
}

// SetAnchor registers an anchor target that is not a section.
func (m *Memory) SetAnchor(id string, top float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.anchors[id] = top
}

// EmitScroll moves the viewport and reports the interaction.
func (m *Memory) EmitScroll(offset float64) {
	m.mu.Lock()
	m.offset = offset
	m.mu.Unlock()
	m.signals <- Signal{Kind: SignalScroll, Offset: offset}
}

// EmitAnchorClick reports a suppressed fragment-link click.
func (m *Memory) EmitAnchorClick(fragment string) {
	m.signals <- Signal{Kind: SignalAnchor, Fragment: fragment}
}

// EmitScrollTop reports a back-to-top control click.
func (m *Memory) EmitScrollTop() {
	m.signals <- Signal{Kind: SignalScrollTop}
}

// TypedTexts returns every text written so far, oldest first.
func (m *Memory) TypedTexts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.typed...)
}

// LastTyped returns the most recent text written, or "".
func (m *Memory) LastTyped() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.typed) == 0 {
		return ""
	}
	return m.typed[len(m.typed)-1]
}

// NavbarStates returns every navbar toggle applied, oldest first.
func (m *Memory) NavbarStates() []bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]bool(nil), m.navbar...)
}

// ActiveUpdates returns every active-link update, "" meaning cleared.
func (m *Memory) ActiveUpdates() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.active...)
}

// ScrollTargets returns every smooth-scroll destination requested.
func (m *Memory) ScrollTargets() []float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]float64(nil), m.scrolls...)
}

// RevealInit returns the reveal configuration handed over, if any.
func (m *Memory) RevealInit() *script.RevealConfig {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.reveal == nil {
		return nil
	}
	c := *m.reveal
	return &c
}
