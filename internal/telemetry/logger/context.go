package logger

import (
	"context"
	"log/slog"
)

type contextKey int

const (
	requestIDKey contextKey = iota
	txIDKey
	deviceKey
)

// WithRequestID returns ctx carrying an HTTP request id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestID returns the request id carried by ctx, or "".
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// WithTx returns ctx carrying a transaction id and its device.
func WithTx(ctx context.Context, txID, device string) context.Context {
	if txID != "" {
		ctx = context.WithValue(ctx, txIDKey, txID)
	}
	if device != "" {
		ctx = context.WithValue(ctx, deviceKey, device)
	}
	return ctx
}

// ContextHandler adds request_id, tx_id and device attributes found in
// the record's context.
type ContextHandler struct {
	slog.Handler
}

// NewContextHandler wraps h.
func NewContextHandler(h slog.Handler) *ContextHandler {
	return &ContextHandler{Handler: h}
}

// Handle implements slog.Handler.
func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if ctx != nil {
		if v, ok := ctx.Value(requestIDKey).(string); ok {
			r.AddAttrs(slog.String("request_id", v))
		}
		if v, ok := ctx.Value(txIDKey).(string); ok {
			r.AddAttrs(slog.String("tx_id", v))
		}
		if v, ok := ctx.Value(deviceKey).(string); ok {
			r.AddAttrs(slog.String("device", v))
		}
	}
	return h.Handler.Handle(ctx, r)
}

// WithAttrs implements slog.Handler.
func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ContextHandler{Handler: h.Handler.WithAttrs(attrs)}
}

// WithGroup implements slog.Handler.
func (h *ContextHandler) WithGroup(name string) slog.Handler {
	return &ContextHandler{Handler: h.Handler.WithGroup(name)}
}
