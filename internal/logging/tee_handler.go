package logging

import (
	"context"
	"errors"
	"log/slog"
)

// teeHandler mirrors records to a console handler and the systemd journal so
// interactive runs and service runs read the same stream. Each sink keeps its
// own level gate.
type teeHandler struct {
	console slog.Handler
	journal slog.Handler
}

func newTeeHandler(console, journal slog.Handler) *teeHandler {
	return &teeHandler{console: console, journal: journal}
}

func (t *teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return t.console.Enabled(ctx, level) || t.journal.Enabled(ctx, level)
}

func (t *teeHandler) Handle(ctx context.Context, r slog.Record) error {
	var consoleErr, journalErr error
	if t.console.Enabled(ctx, r.Level) {
		consoleErr = t.console.Handle(ctx, r.Clone())
	}
	if t.journal.Enabled(ctx, r.Level) {
		journalErr = t.journal.Handle(ctx, r.Clone())
	}
	return errors.Join(consoleErr, journalErr)
}

func (t *teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &teeHandler{console: t.console.WithAttrs(attrs), journal: t.journal.WithAttrs(attrs)}
}

func (t *teeHandler) WithGroup(name string) slog.Handler {
	return &teeHandler{console: t.console.WithGroup(name), journal: t.journal.WithGroup(name)}
}
