package sink

import (
	"context"

	"github.com/hazyhaar/domstage/event"
)

// EventFunc is called for each event (in-process, zero serialisation).
type EventFunc func(ctx context.Context, e event.Event) error

// Callback delivers events via a Go function call. When the embedding
// program wants the stream without any transport, events arrive as
// in-memory calls.
type Callback struct {
	fn EventFunc
}

// NewCallback creates a Callback sink. A nil handler drops everything.
func NewCallback(fn EventFunc) *Callback {
	return &Callback{fn: fn}
}

func (c *Callback) Send(ctx context.Context, e event.Event) error {
	if c.fn != nil {
		return c.fn(ctx, e)
	}
	return nil
}

func (c *Callback) Close() error { return nil }
