// Package event defines the structured types emitted by domstage.
// These are the public API contract: any consumer (sinks, journals,
// custom pipelines) imports this package to receive and process what a
// stage did to its page.
package event

// Kind is the type of stage event emitted.
type Kind string

const (
	KindSessionStarted   Kind = "session_started"   // stage attached to a page and hooks installed
	KindSessionEnded     Kind = "session_ended"     // stage detached (stop, error, context cancel)
	KindPhraseTyped      Kind = "phrase_typed"      // typewriter finished typing a phrase
	KindPhraseDeleted    Kind = "phrase_deleted"    // typewriter erased a phrase and moved on
	KindPhrasesUpdated   Kind = "phrases_updated"   // phrase list swapped at runtime
	KindNavbarChanged    Kind = "navbar_changed"    // navbar styling crossed the scroll threshold
	KindSectionActivated Kind = "section_activated" // a navigation link became the active one
	KindSectionCleared   Kind = "section_cleared"   // no section threshold satisfied any more
	KindScrollTo         Kind = "scroll_to"         // smooth scroll performed (anchor target or top)
	KindAnchorIgnored    Kind = "anchor_ignored"    // anchor click suppressed, target not in document
	KindCuesReloaded     Kind = "cues_reloaded"     // cue store changed on disk and was re-read
)

// Event is a single stage occurrence. Fields beyond the envelope are
// populated per kind and omitted otherwise.
type Event struct {
	ID        string `json:"id"`         // UUIDv7
	SessionID string `json:"session_id"` // stable identifier provided by caller
	PageURL   string `json:"page_url"`
	Seq       uint64 `json:"seq"`       // monotonically increasing per session (gap detection)
	Kind      Kind   `json:"kind"`
	Timestamp int64  `json:"timestamp"` // epoch milliseconds at emit

	Text        string  `json:"text,omitempty"`         // phrase for phrase_typed/phrase_deleted
	PhraseIndex int     `json:"phrase_index,omitempty"` // position in the phrase list
	State       string  `json:"state,omitempty"`        // navbar state for navbar_changed
	SectionID   string  `json:"section_id,omitempty"`   // active section for section_activated
	Target      string  `json:"target,omitempty"`       // fragment for scroll_to/anchor_ignored, or "top"
	Offset      float64 `json:"offset,omitempty"`       // scroll offset in pixels, where relevant
	Count       int     `json:"count,omitempty"`        // list size for phrases_updated/cues_reloaded
	Reason      string  `json:"reason,omitempty"`       // why a session ended
	Title       string  `json:"title,omitempty"`        // document title for session_started
}
