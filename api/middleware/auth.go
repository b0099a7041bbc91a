package middleware

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/tradeflow-backend/api/responses"
	pkgAuth "github.com/angelmondragon/tradeflow-backend/pkg/auth"
	"github.com/angelmondragon/tradeflow-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/tradeflow-backend/pkg/errors"
	"github.com/angelmondragon/tradeflow-backend/pkg/logger"
)

// Auth validates a bearer token and seeds the request context with the caller.
func Auth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return authenticate(cfg, logg, bearerToken)
}

// QueryTokenAuth accepts the token from the "token" query parameter. Browsers
// cannot set headers on websocket upgrades.
func QueryTokenAuth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return authenticate(cfg, logg, func(r *http.Request) string {
		if token := strings.TrimSpace(r.URL.Query().Get("token")); token != "" {
			return token
		}
		return bearerToken(r)
	})
}

func authenticate(cfg config.JWTConfig, logg *logger.Logger, extract func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extract(r)
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			claims, err := pkgAuth.ParseAccessToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}

			ctx := WithCaller(r.Context(), claims.Caller())
			if logg != nil {
				ctx = logg.WithCaller(ctx, claims.UserID.String(), claims.Role.String())
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	token := strings.TrimSpace(r.Header.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(token), "bearer ") {
		token = strings.TrimSpace(token[7:])
	}
	return token
}
