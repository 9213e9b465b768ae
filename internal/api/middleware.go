package solanaapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aegis-sign/solana-api/pkg/apierrors"
	"go.opentelemetry.io/otel/trace"
)

// responseRecorder 记录状态码与业务错误，供日志与指标使用。
type responseRecorder struct {
	http.ResponseWriter
	status int
	err    *apierrors.Error
}

func (r *responseRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *responseRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

func (h *HTTPHandler) instrument(route string, next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &responseRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rec, r)
		latency := time.Since(start)

		var code apierrors.Code
		level := slog.LevelDebug
		attrs := []any{
			"route", route,
			"method", r.Method,
			"status", rec.status,
			"latency", latency,
			"remote_ip", r.RemoteAddr,
		}
		if sc := trace.SpanContextFromContext(r.Context()); sc.HasTraceID() {
			attrs = append(attrs, "trace_id", sc.TraceID().String())
		}
		if rec.err != nil {
			code = rec.err.Code
			level = slog.LevelInfo
			if rec.status >= http.StatusInternalServerError {
				level = slog.LevelWarn
			}
			attrs = append(attrs, "code", string(code), "error", rec.err.Error())
			if cause := rec.err.Unwrap(); cause != nil {
				attrs = append(attrs, "cause", cause.Error())
			}
		}
		h.metrics.observe(route, rec.status, code, latency)
		h.logger.Log(r.Context(), level, "request", attrs...)
	})
}
