// Package middleware provides HTTP middleware for the gateway.
package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/blade-dance/gateway/internal/app/domain/identity"
	"github.com/blade-dance/gateway/internal/errors"
	"github.com/blade-dance/gateway/pkg/logger"
)

// TokenVerifier validates a raw credential and returns the identity it was
// issued for.
type TokenVerifier interface {
	Verify(rawToken string) (identity.Record, error)
}

type contextKey string

const identityKey contextKey = "identity"

// IdentityFrom extracts the authenticated identity from the request context.
func IdentityFrom(ctx context.Context) (identity.Record, bool) {
	record, ok := ctx.Value(identityKey).(identity.Record)
	return record, ok
}

// WithIdentity returns a context carrying the identity. Exposed for handler
// tests.
func WithIdentity(ctx context.Context, record identity.Record) context.Context {
	return context.WithValue(ctx, identityKey, record)
}

// Auth verifies bearer credentials and places the resolved identity in the
// request context.
type Auth struct {
	verifier  TokenVerifier
	log       *logger.Logger
	skipPaths map[string]bool
}

// NewAuth creates the authentication middleware. Requests to skipPaths pass
// through unauthenticated.
func NewAuth(verifier TokenVerifier, log *logger.Logger, skipPaths []string) *Auth {
	skip := make(map[string]bool, len(skipPaths))
	for _, p := range skipPaths {
		skip[p] = true
	}
	if log == nil {
		log = logger.NewDefault("middleware")
	}
	return &Auth{verifier: verifier, log: log, skipPaths: skip}
}

// Handler returns the middleware handler.
func (a *Auth) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.skipPaths[r.URL.Path] {
			next.ServeHTTP(w, r)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			respondError(w, errors.InvalidCredential(nil))
			return
		}
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			respondError(w, errors.InvalidCredential(nil))
			return
		}

		record, err := a.verifier.Verify(parts[1])
		if err != nil {
			a.log.WithContext(r.Context()).WithError(err).
				WithField("path", r.URL.Path).
				Warn("credential verification failed")
			respondError(w, err)
			return
		}

		ctx := WithIdentity(r.Context(), record)
		ctx = context.WithValue(ctx, logger.UserIDKey, record.WalletAddress)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func respondError(w http.ResponseWriter, err error) {
	se := errors.GetServiceError(err)
	if se == nil {
		se = errors.Internal("authentication failed", err)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(se.HTTPStatus)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"error": se.Message,
		"code":  se.Code,
	})
}
