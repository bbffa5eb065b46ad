// Package telemetry bridges the bootloader's log/slog calls to a console
// writer, in the same shape the teacher's SlogHandler used to bridge
// console and OTLP export. The OTLP/span/metric machinery itself is out
// of scope here — this is a bare-bones bootloader, not a long-running
// service — so only the console bridge survives, trimmed down from the
// teacher's handler.
package telemetry

import (
	"context"
	"io"
	"log/slog"
)

// SlogHandler writes every record to the console via a slog.TextHandler.
// Kept as its own type, rather than using slog.NewTextHandler directly,
// so a future export sink can be added here without touching callers.
type SlogHandler struct {
	textHandler slog.Handler
}

// NewSlogHandler creates a handler that writes text-formatted records to w.
func NewSlogHandler(w io.Writer, opts *slog.HandlerOptions) *SlogHandler {
	if opts == nil {
		opts = &slog.HandlerOptions{}
	}
	return &SlogHandler{textHandler: slog.NewTextHandler(w, opts)}
}

func (h *SlogHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.textHandler.Enabled(ctx, level)
}

func (h *SlogHandler) Handle(ctx context.Context, r slog.Record) error {
	return h.textHandler.Handle(ctx, r)
}

func (h *SlogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &SlogHandler{textHandler: h.textHandler.WithAttrs(attrs)}
}

func (h *SlogHandler) WithGroup(name string) slog.Handler {
	return &SlogHandler{textHandler: h.textHandler.WithGroup(name)}
}
