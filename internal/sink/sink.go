// Package sink defines output backends for stage events.
package sink

import (
	"context"

	"github.com/hazyhaar/domstage/event"
)

// Sink is the output interface. Implementations deliver events to
// different backends (stdout, webhook, SQLite journal, in-process
// callback).
type Sink interface {
	Send(ctx context.Context, e event.Event) error
	Close() error
}
