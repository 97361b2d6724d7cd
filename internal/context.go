package internal

import (
	"context"
	"time"
)

type ctxKey string

const ContextLocaleKey ctxKey = "locale"

// LocaleFromContext returns the negotiated response locale, "vi" when none was set.
func LocaleFromContext(ctx context.Context) string {
	if ctx == nil {
		return "vi"
	}
	if locale, ok := ctx.Value(ContextLocaleKey).(string); ok && locale != "" {
		return locale
	}
	return "vi"
}

func ContextWithLocale(ctx context.Context, locale string) context.Context {
	return context.WithValue(ctx, ContextLocaleKey, locale)
}

// WithTimeout returns a context with timeout, defaulting to 5 seconds if duration is zero or negative.
func WithTimeout(ctx context.Context, duration time.Duration) (context.Context, context.CancelFunc) {
	if duration <= 0 {
		duration = 5 * time.Second
	}
	return context.WithTimeout(ctx, duration)
}
