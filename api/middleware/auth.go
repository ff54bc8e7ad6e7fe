package middleware

import (
	"context"
	"net/http"

	"github.com/abhishekY2401/product-service/api/responses"
	"github.com/abhishekY2401/product-service/api/validators"
	pkgAuth "github.com/abhishekY2401/product-service/pkg/auth"
	"github.com/abhishekY2401/product-service/pkg/config"
	pkgerrors "github.com/abhishekY2401/product-service/pkg/errors"
	"github.com/abhishekY2401/product-service/pkg/logger"
)

// Auth validates a bearer token and seeds the request context with its subject.
func Auth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := validators.BearerToken(r.Header.Get("Authorization"))
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			claims, err := pkgAuth.ParseAccessToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}

			ctx := context.WithValue(r.Context(), ctxSubject, claims.Subject)
			ctx = context.WithValue(ctx, ctxScope, claims.Scope)
			if logg != nil {
				ctx = logg.WithField(ctx, "subject", claims.Subject)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
