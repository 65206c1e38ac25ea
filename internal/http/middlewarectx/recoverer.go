package middlewarectx

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/go-chi/chi/middleware"

	"github.com/magabrotheeeer/h5-backend/internal/http/response"
)

// Recoverer перехватывает панику обработчика, пишет её в лог и отвечает 500.
func Recoverer(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rvr := recover()
				if rvr == nil {
					return
				}
				if rvr == http.ErrAbortHandler {
					panic(rvr)
				}
				log.Error("panic recovered",
					slog.String("panic", fmt.Sprint(rvr)),
					slog.String("path", r.URL.Path),
					slog.String("request_id", middleware.GetReqID(r.Context())),
					slog.String("stack", string(debug.Stack())),
				)
				response.WriteError(w, r, http.StatusInternalServerError, response.MsgInternal)
			}()
			next.ServeHTTP(w, r)
		})
	}
}
