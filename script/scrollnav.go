package script

// NavbarState is the styling the navigation bar should carry for a
// given scroll offset.
type NavbarState int

const (
	NavbarTop NavbarState = iota
	NavbarScrolled
)

func (s NavbarState) String() string {
	if s == NavbarScrolled {
		return "scrolled"
	}
	return "top"
}

const (
	// DefaultNavbarThreshold is the scroll depth, in pixels, past which
	// the navbar switches to its scrolled styling.
	DefaultNavbarThreshold = 50.0

	// DefaultSectionMargin is subtracted from a section's top offset
	// before comparing against the scroll position, so a link lights up
	// shortly before its section reaches the viewport top.
	DefaultSectionMargin = 200.0
)

// NavbarStateFor maps a scroll offset to a navbar state. The comparison
// is strict: an offset equal to the threshold still reads as top.
func NavbarStateFor(offset, threshold float64) NavbarState {
	if offset > threshold {
		return NavbarScrolled
	}
	return NavbarTop
}

// Section pairs a section id with its current top offset in the
// document. Offsets are re-measured per scroll pass, never cached
// across layout changes.
type Section struct {
	ID  string
	Top float64
}

// ActiveSection scans sections in document order and returns the id of
// the last one whose adjusted top (Top - margin) lies at or above the
// scroll offset. Later sections win over earlier ones even when their
// tops interleave, matching how the effect behaves on a real page. A
// document at its origin (offset <= 0) highlights nothing.
func ActiveSection(sections []Section, offset, margin float64) (id string, ok bool) {
	if offset <= 0 {
		return "", false
	}
	for _, s := range sections {
		if s.Top-margin <= offset {
			id, ok = s.ID, true
		}
	}
	return id, ok
}
