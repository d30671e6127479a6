package transport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/rhuss/scribe/pkg/observability"
)

// accessInfo is filled in by inner handlers and read by Logging once the
// request completes.
type accessInfo struct {
	subject string
}

type accessInfoKeyType struct{}

var accessInfoKey = accessInfoKeyType{}

// SetSubject records the authenticated subject for the access log entry of
// the current request. It is a no-op outside Logging.
func SetSubject(ctx context.Context, subject string) {
	if info, ok := ctx.Value(accessInfoKey).(*accessInfo); ok {
		info.subject = subject
	}
}

// Logging returns middleware that emits one structured log entry per
// request: method, route pattern, status, duration, request ID, and the
// authenticated subject when there is one. 5xx responses log at error
// level, 4xx at warn, everything else at info.
func Logging(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			info := &accessInfo{}
			ctx := context.WithValue(r.Context(), accessInfoKey, info)
			rec := newStatusRecorder(w)

			next.ServeHTTP(rec, r.WithContext(ctx))

			attrs := []slog.Attr{
				slog.String("method", r.Method),
				slog.String("route", observability.RoutePattern(r)),
				slog.Int("status", rec.status),
				slog.Duration("duration", time.Since(start)),
				slog.String("request_id", RequestIDFromContext(ctx)),
			}
			if info.subject != "" {
				attrs = append(attrs, slog.String("subject", info.subject))
			}

			level := slog.LevelInfo
			switch {
			case rec.status >= 500:
				level = slog.LevelError
			case rec.status >= 400:
				level = slog.LevelWarn
			}
			logger.LogAttrs(ctx, level, "request completed", attrs...)
		})
	}
}
