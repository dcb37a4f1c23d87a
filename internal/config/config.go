// Package config handles domstage configuration from YAML files.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hazyhaar/domstage/internal/dom"
	"github.com/hazyhaar/domstage/script"
)

// Config is the top-level domstage configuration.
type Config struct {
	Session   SessionConfig   `yaml:"session"`
	Browser   BrowserConfig   `yaml:"browser"`
	Script    ScriptConfig    `yaml:"script"`
	Selectors SelectorsConfig `yaml:"selectors"`
	Reveal    RevealConfig    `yaml:"reveal"`
	Sinks     []SinkConfig    `yaml:"sinks"`
	Journal   JournalConfig   `yaml:"journal"`
	Cues      CuesConfig      `yaml:"cues"`
	API       APIConfig       `yaml:"api"`
}

// SessionConfig identifies the page the stage performs on.
type SessionConfig struct {
	ID  string `yaml:"id"`
	URL string `yaml:"url"`
}

// BrowserConfig controls Chrome lifecycle.
type BrowserConfig struct {
	Remote          string        `yaml:"remote"`
	MemoryLimit     int64         `yaml:"memory_limit"`
	RecycleInterval time.Duration `yaml:"recycle_interval"`
	BlockResources  []string      `yaml:"block_resources"`
	Stealth         string        `yaml:"stealth"` // headless | headful
	XvfbDisplay     string        `yaml:"xvfb_display"`
}

// ScriptConfig tunes the typewriter and the scroll thresholds.
type ScriptConfig struct {
	Phrases         []string      `yaml:"phrases"`
	TypeInterval    time.Duration `yaml:"type_interval"`
	DeleteInterval  time.Duration `yaml:"delete_interval"`
	HoldDelay       time.Duration `yaml:"hold_delay"`
	NavbarThreshold float64       `yaml:"navbar_threshold"`
	SectionMargin   float64       `yaml:"section_margin"`
}

// SelectorsConfig overrides the DOM selectors the stage binds to.
// Empty fields keep the defaults.
type SelectorsConfig struct {
	TypeTarget    string `yaml:"type_target"`
	Navbar        string `yaml:"navbar"`
	NavLinks      string `yaml:"nav_links"`
	Sections      string `yaml:"sections"`
	ScrollTop     string `yaml:"scroll_top"`
	ScrolledClass string `yaml:"scrolled_class"`
	ActiveClass   string `yaml:"active_class"`
}

// RevealConfig tunes the scroll-reveal animation handed to the page.
type RevealConfig struct {
	Duration int   `yaml:"duration"`
	Once     *bool `yaml:"once"` // nil means true
	Offset   int   `yaml:"offset"`
}

// SinkConfig defines an output backend.
type SinkConfig struct {
	Type    string        `yaml:"type"` // stdout | webhook
	URL     string        `yaml:"url"`  // for webhook
	Retries int           `yaml:"retries"`
	Backoff time.Duration `yaml:"backoff"`
}

// JournalConfig enables the SQLite event journal.
type JournalConfig struct {
	Path          string `yaml:"path"`
	RetentionDays int    `yaml:"retention_days"`
}

// CuesConfig enables the live cue store.
type CuesConfig struct {
	Path         string        `yaml:"path"`
	PollInterval time.Duration `yaml:"poll_interval"`
	Debounce     time.Duration `yaml:"debounce"`
}

// APIConfig enables the admin HTTP API.
type APIConfig struct {
	Listen       string `yaml:"listen"`
	Username     string `yaml:"username"`
	PasswordHash string `yaml:"password_hash"` // bcrypt
}

// LoadFile reads a YAML configuration file.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	cfg.ApplyDefaults()
	return &cfg, nil
}

// ApplyDefaults fills unset fields with the standard values.
func (c *Config) ApplyDefaults() {
	if c.Browser.MemoryLimit <= 0 {
		c.Browser.MemoryLimit = 1 << 30
	}
	if c.Browser.RecycleInterval <= 0 {
		c.Browser.RecycleInterval = 6 * time.Hour
	}
	if c.Browser.XvfbDisplay == "" {
		c.Browser.XvfbDisplay = ":99"
	}
	if c.Browser.Stealth == "" {
		c.Browser.Stealth = "headless"
	}
	if len(c.Script.Phrases) == 0 {
		c.Script.Phrases = []string{"Web Developer", "Freelancer", "Photographer"}
	}
	if c.Script.NavbarThreshold <= 0 {
		c.Script.NavbarThreshold = script.DefaultNavbarThreshold
	}
	if c.Script.SectionMargin <= 0 {
		c.Script.SectionMargin = script.DefaultSectionMargin
	}
	if c.Reveal.Duration <= 0 {
		c.Reveal.Duration = script.DefaultReveal().Duration
	}
	if c.Reveal.Offset <= 0 {
		c.Reveal.Offset = script.DefaultReveal().Offset
	}
	if len(c.Sinks) == 0 {
		c.Sinks = []SinkConfig{{Type: "stdout"}}
	}
	if c.Cues.PollInterval <= 0 {
		c.Cues.PollInterval = time.Second
	}
	if c.Cues.Debounce <= 0 {
		c.Cues.Debounce = 300 * time.Millisecond
	}
	if c.API.Listen == "" {
		c.API.Listen = ":8460"
	}
}

// Timing converts the script section to a typewriter Timing. Zero
// fields fall back to the typewriter defaults.
func (c *ScriptConfig) Timing() script.Timing {
	return script.Timing{
		TypeInterval:   c.TypeInterval,
		DeleteInterval: c.DeleteInterval,
		HoldDelay:      c.HoldDelay,
	}
}

// Selectors converts the selectors section to dom.Selectors, keeping
// the defaults for empty fields.
func (c *SelectorsConfig) Selectors() dom.Selectors {
	var sel dom.Selectors
	sel.Defaults()
	if c.TypeTarget != "" {
		sel.TypeTarget = c.TypeTarget
	}
	if c.Navbar != "" {
		sel.Navbar = c.Navbar
	}
	if c.NavLinks != "" {
		sel.NavLinks = c.NavLinks
	}
	if c.Sections != "" {
		sel.Sections = c.Sections
	}
	if c.ScrollTop != "" {
		sel.ScrollTop = c.ScrollTop
	}
	if c.ScrolledClass != "" {
		sel.ScrolledClass = c.ScrolledClass
	}
	if c.ActiveClass != "" {
		sel.ActiveClass = c.ActiveClass
	}
	return sel
}

// Reveal converts the reveal section to a script RevealConfig.
func (c *RevealConfig) Reveal() script.RevealConfig {
	r := script.RevealConfig{Duration: c.Duration, Offset: c.Offset, Once: true}
	if c.Once != nil {
		r.Once = *c.Once
	}
	return r
}
