package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/veilport/veilport/internal/pkg/errors"
	"github.com/veilport/veilport/internal/pkg/logger"
	"github.com/veilport/veilport/internal/pkg/utils"
)

// Recovery returns a middleware that converts panics into 500 responses
func Recovery(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					log.WithFields(map[string]interface{}{
						"panic":      rec,
						"stack":      string(debug.Stack()),
						"path":       r.URL.Path,
						"request_id": GetRequestID(r.Context()),
					}).Error("Panic recovered")

					utils.WriteError(w, errors.New(errors.ErrCodeInternal, "Internal server error", http.StatusInternalServerError))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
