package script

import "testing"

func TestNavbarStateFor_Boundary(t *testing.T) {
	cases := []struct {
		offset float64
		want   NavbarState
	}{
		{0, NavbarTop},
		{49, NavbarTop},
		{50, NavbarTop}, // threshold itself still reads as top
		{51, NavbarScrolled},
		{50.5, NavbarScrolled},
		{2000, NavbarScrolled},
	}
	for _, c := range cases {
		if got := NavbarStateFor(c.offset, DefaultNavbarThreshold); got != c.want {
			t.Errorf("NavbarStateFor(%v): got %v, want %v", c.offset, got, c.want)
		}
	}
}

func TestActiveSection_ThresholdLadder(t *testing.T) {
	// Tops 100/700/1300 adjust to -100/500/1100 with the default margin.
	sections := []Section{
		{ID: "about", Top: 100},
		{ID: "services", Top: 700},
		{ID: "portfolio", Top: 1300},
	}

	cases := []struct {
		offset float64
		wantID string
		wantOK bool
	}{
		{0, "", false}, // document origin highlights nothing
		{120, "about", true},
		{500, "services", true}, // adjusted threshold met exactly
		{900, "services", true},
		{1099, "services", true},
		{1500, "portfolio", true},
	}
	for _, c := range cases {
		id, ok := ActiveSection(sections, c.offset, DefaultSectionMargin)
		if id != c.wantID || ok != c.wantOK {
			t.Errorf("ActiveSection(%v): got (%q, %v), want (%q, %v)",
				c.offset, id, ok, c.wantID, c.wantOK)
		}
	}
}

func TestActiveSection_LastMatchWins(t *testing.T) {
	// Interleaved tops: the later entry wins even though its top is
	// smaller, because document order decides.
	sections := []Section{
		{ID: "first", Top: 300},
		{ID: "second", Top: 250},
	}
	id, ok := ActiveSection(sections, 400, DefaultSectionMargin)
	if !ok || id != "second" {
		t.Errorf("ActiveSection: got (%q, %v), want (%q, true)", id, ok, "second")
	}
}

func TestActiveSection_NoSections(t *testing.T) {
	id, ok := ActiveSection(nil, 500, DefaultSectionMargin)
	if ok || id != "" {
		t.Errorf("ActiveSection(nil): got (%q, %v), want (\"\", false)", id, ok)
	}
}

func TestDefaultReveal(t *testing.T) {
	r := DefaultReveal()
	if r.Duration != 1000 || !r.Once || r.Offset != 100 {
		t.Errorf("DefaultReveal: got %+v", r)
	}
}
