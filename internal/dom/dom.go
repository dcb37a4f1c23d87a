// Package dom abstracts the page surface a stage performs against.
// Two implementations exist: a Rod-backed live Chrome tab, and an
// in-process Memory document used by tests and rehearsal runs.
package dom

import "github.com/hazyhaar/domstage/script"

// SignalKind is the type of user interaction reported by the page hooks.
type SignalKind string

const (
	SignalScroll    SignalKind = "scroll"    // viewport scrolled
	SignalAnchor    SignalKind = "anchor"    // fragment link clicked, default suppressed
	SignalScrollTop SignalKind = "scrolltop" // back-to-top control clicked
)

// Signal is a single user interaction. The hook script serialises these
// through the page binding; Memory delivers them directly.
type Signal struct {
	Kind     SignalKind `json:"kind"`
	Offset   float64    `json:"offset,omitempty"`
	Fragment string     `json:"fragment,omitempty"`
}

// Selectors names the page elements a stage performs with. Zero values
// fall back to the conventional markup of the portfolio template.
type Selectors struct {
	TypeTarget string // element whose text the typewriter rewrites
	Navbar     string // element that carries the scrolled styling
	NavLinks   string // links that track the active section
	Sections   string // sections considered for active-link tracking
	ScrollTop  string // the back-to-top control

	ScrolledClass string
	ActiveClass   string
}

func (s *Selectors) Defaults() {
	if s.TypeTarget == "" {
		s.TypeTarget = ".typed-text"
	}
	if s.Navbar == "" {
		s.Navbar = ".navbar"
	}
	if s.NavLinks == "" {
		s.NavLinks = ".navbar a.nav-link"
	}
	if s.Sections == "" {
		s.Sections = "section[id]"
	}
	if s.ScrollTop == "" {
		s.ScrollTop = ".scroll-to-top"
	}
	if s.ScrolledClass == "" {
		s.ScrolledClass = "scrolled"
	}
	if s.ActiveClass == "" {
		s.ActiveClass = "active"
	}
}

// Document is the page surface a stage drives. Write methods that
// address a missing element are silent no-ops; a returned error means
// the transport failed, not that the page lacks a part.
//
// Signals delivers user interactions until Close; the stage owns the
// receiving loop.
type Document interface {
	// Title returns the document title.
	Title() (string, error)
	// ScrollOffset returns the current vertical scroll position.
	ScrollOffset() (float64, error)
	// Sections returns the registered sections in document order with
	// their current top offsets. Offsets are re-measured on every call;
	// layout may have shifted since the last one.
	Sections() ([]script.Section, error)
	// AnchorTop returns the top offset of the element with the given id,
	// and whether it exists.
	AnchorTop(fragment string) (top float64, ok bool, err error)
	// WriteText replaces the text of the typewriter target.
	WriteText(text string) error
	// SetNavbarScrolled toggles the scrolled styling class on the navbar.
	SetNavbarScrolled(on bool) error
	// SetActiveLink clears the active class from every nav link, then
	// marks the link whose fragment equals id. An empty id only clears.
	SetActiveLink(id string) error
	// ScrollTo smooth-scrolls the viewport to the given offset.
	ScrollTo(top float64) error
	// InitReveal hands the reveal configuration to the page's animation
	// library, if one is present.
	InitReveal(cfg script.RevealConfig) error
	// Signals returns the interaction stream.
	Signals() <-chan Signal
	// Close releases the page surface.
	Close() error
}
