package script

// RevealConfig is the option set handed to the page's reveal-on-scroll
// library when the stage attaches. domstage only supplies the values at
// initialization; the animations themselves run inside the page.
type RevealConfig struct {
	// Duration of each reveal animation, in milliseconds.
	Duration int `json:"duration" yaml:"duration"`
	// Once makes an element animate only on its first entrance.
	Once bool `json:"once" yaml:"once"`
	// Offset, in pixels, before the trigger point of each element.
	Offset int `json:"offset" yaml:"offset"`
}

// DefaultReveal returns the reveal settings the stage applies unless
// configuration overrides them.
func DefaultReveal() RevealConfig {
	return RevealConfig{Duration: 1000, Once: true, Offset: 100}
}
