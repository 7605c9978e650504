package slogx

import (
	"context"
	"log/slog"
)

type ctxKey struct{}

func WithContext(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

func FromContext(ctx context.Context) *slog.Logger {
	l, ok := ctx.Value(ctxKey{}).(*slog.Logger)
	if !ok {
		return slog.Default()
	}
	return l
}

// With returns ctx carrying a logger enriched with args.
func With(ctx context.Context, args ...any) context.Context {
	return WithContext(ctx, FromContext(ctx).With(args...))
}

// Security logs an auth decision at warn level under a stable message so
// rejections can be filtered out of the request log. Token material must
// never be passed in args.
func Security(ctx context.Context, event string, args ...any) {
	FromContext(ctx).LogAttrs(ctx, slog.LevelWarn, "security_event",
		slog.String("event", event),
		slog.Group("detail", args...),
	)
}
