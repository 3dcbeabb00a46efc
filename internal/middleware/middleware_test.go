package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/blade-dance/gateway/internal/app/domain/identity"
	"github.com/blade-dance/gateway/internal/errors"
)

type stubVerifier struct {
	record identity.Record
	err    error
}

func (v stubVerifier) Verify(string) (identity.Record, error) {
	return v.record, v.err
}

func okHandler(t *testing.T, wantIdentity bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := IdentityFrom(r.Context()); ok != wantIdentity {
			t.Errorf("identity in context = %v, want %v", ok, wantIdentity)
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuth_ValidCredential(t *testing.T) {
	record := identity.Record{WalletAddress: "inj1alice", Tier: identity.TierWhite}
	mw := NewAuth(stubVerifier{record: record}, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Authorization", "Bearer some-token")
	rec := httptest.NewRecorder()
	mw.Handler(okHandler(t, true)).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestAuth_RejectsMissingAndBadHeaders(t *testing.T) {
	mw := NewAuth(stubVerifier{err: errors.InvalidCredential(nil)}, nil, nil)

	for name, header := range map[string]string{
		"missing":    "",
		"not bearer": "Basic abc",
		"no token":   "Bearer",
		"bad token":  "Bearer junk",
	} {
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		mw.Handler(okHandler(t, false)).ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %d", name, rec.Code)
		}
	}
}

func TestAuth_SkipPaths(t *testing.T) {
	mw := NewAuth(stubVerifier{err: errors.InvalidCredential(nil)}, nil, []string{"/health"})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	mw.Handler(okHandler(t, false)).ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("skip path must bypass auth, got %d", rec.Code)
	}
}

func TestRateLimiter_UsesTierLimit(t *testing.T) {
	rl := NewRateLimiter(1000, nil)
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	handler := rl.Handler(next)

	record := identity.Record{
		WalletAddress: "inj1alice",
		TierDetails:   identity.TierDefinition{Limits: identity.Limits{RequestsPerMinute: 3}},
	}

	allowed, limited := 0, 0
	for i := 0; i < 6; i++ {
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req = req.WithContext(WithIdentity(req.Context(), record))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		switch rec.Code {
		case http.StatusOK:
			allowed++
		case http.StatusTooManyRequests:
			limited++
		default:
			t.Fatalf("unexpected status %d", rec.Code)
		}
	}
	if allowed != 3 || limited != 3 {
		t.Fatalf("expected burst of 3 then throttling, got allowed=%d limited=%d", allowed, limited)
	}
}

func TestRateLimiter_IndependentSubjects(t *testing.T) {
	rl := NewRateLimiter(1000, nil)
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	handler := rl.Handler(next)

	limits := identity.TierDefinition{Limits: identity.Limits{RequestsPerMinute: 1}}
	for _, wallet := range []string{"inj1alice", "inj1bob"} {
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req = req.WithContext(WithIdentity(req.Context(), identity.Record{WalletAddress: wallet, TierDetails: limits}))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: first request must pass, got %d", wallet, rec.Code)
		}
	}
}
