package http

import (
	"encoding/json"
	"net/http"
	"time"

	"restaurant-orders/internal/order/app/core"
	"restaurant-orders/internal/order/domain/dto"
	"restaurant-orders/internal/xpkg/logger"

	"github.com/go-chi/chi/v5/middleware"
)

func requestLogger(mylog logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)

			mylog.Action("request_completed").Debug("Request completed",
				"request_id", middleware.GetReqID(r.Context()),
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration_ms", time.Since(start).Milliseconds(),
			)
		})
	}
}

// limitConcurrent rejects requests beyond limit with 503 instead of queueing them.
func limitConcurrent(limit int) func(http.Handler) http.Handler {
	sem := make(chan struct{}, limit)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
				next.ServeHTTP(w, r)
			default:
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusServiceUnavailable)
				_ = json.NewEncoder(w).Encode(dto.ErrorResponse{
					Error: core.ErrMaxConcurrentExceeded.Error(),
					Code:  http.StatusServiceUnavailable,
					Kind:  core.KindMaxConcurrent,
				})
			}
		})
	}
}
