package domstage

import (
	"context"
	"io"
	"log/slog"

	"github.com/hazyhaar/domstage/event"
	"github.com/hazyhaar/domstage/internal/journal"
	"github.com/hazyhaar/domstage/internal/sink"
)

// Sink is the output interface for stage events.
type Sink = sink.Sink

// NewStdoutSink creates a stdout JSON-lines sink.
func NewStdoutSink(w io.Writer) Sink {
	return sink.NewStdout(w)
}

// NewWebhookSink creates a webhook POST sink with retry.
func NewWebhookSink(url string, logger *slog.Logger) Sink {
	return sink.NewWebhook(url, sink.WithWebhookLogger(logger))
}

// EventFunc is called for each event.
type EventFunc = sink.EventFunc

// NewCallbackSink creates an in-process callback sink for embedding
// programs that want the stream without any transport.
func NewCallbackSink(fn func(ctx context.Context, e event.Event) error) Sink {
	return sink.NewCallback(fn)
}

// NewJournalSink opens a SQLite journal at path and returns it as a
// sink. A Presenter configured with a journal path wires one
// automatically and also serves queries from it; this constructor is
// for embedding programs that only want the persistence.
func NewJournalSink(path string, logger *slog.Logger) (Sink, error) {
	return journal.Open(path, logger)
}
