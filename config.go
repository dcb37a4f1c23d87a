package domstage

import (
	"github.com/hazyhaar/domstage/internal/config"
)

// Config is the top-level domstage configuration. Re-exported from internal.
type Config = config.Config

// SessionConfig identifies the performed page.
type SessionConfig = config.SessionConfig

// BrowserConfig controls Chrome lifecycle.
type BrowserConfig = config.BrowserConfig

// ScriptConfig tunes the typewriter and the scroll thresholds.
type ScriptConfig = config.ScriptConfig

// SelectorsConfig overrides the DOM selectors the stage binds to.
type SelectorsConfig = config.SelectorsConfig

// RevealConfig tunes the scroll-reveal animation.
type RevealConfig = config.RevealConfig

// SinkConfig defines an output backend.
type SinkConfig = config.SinkConfig

// JournalConfig enables the SQLite event journal.
type JournalConfig = config.JournalConfig

// CuesConfig enables the live cue store.
type CuesConfig = config.CuesConfig

// APIConfig enables the admin HTTP API.
type APIConfig = config.APIConfig

// LoadConfigFile reads a YAML configuration file.
func LoadConfigFile(path string) (*Config, error) {
	return config.LoadFile(path)
}
