package middleware

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/angelmondragon/tradeflow-backend/api/responses"
	pkgerrors "github.com/angelmondragon/tradeflow-backend/pkg/errors"
	"github.com/angelmondragon/tradeflow-backend/pkg/logger"
)

// Recoverer converts a handler panic into an INTERNAL_ERROR envelope.
// http.ErrAbortHandler is re-raised so the server drops the connection.
func Recoverer(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				switch v := recover().(type) {
				case nil:
				case error:
					if errors.Is(v, http.ErrAbortHandler) {
						panic(v)
					}
					recovered(logg, w, r, fmt.Errorf("panic: %w", v))
				default:
					recovered(logg, w, r, fmt.Errorf("panic: %v", v))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func recovered(logg *logger.Logger, w http.ResponseWriter, r *http.Request, err error) {
	ctx := logg.WithField(r.Context(), "route", r.Method+" "+r.URL.Path)
	logg.Error(ctx, "panic.recovered", err)
	responses.WriteError(ctx, nil, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "handler panicked"))
}
