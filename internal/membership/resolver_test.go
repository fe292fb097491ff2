package membership

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"server/internal/analytics"
	"server/internal/domain"
)

func newTestResolver(apiURL string) *Resolver {
	return NewResolver(apiURL, analytics.Noop{}, zerolog.Nop())
}

func TestResolveWithoutTokenTrustsAssertion(t *testing.T) {
	r := newTestResolver("http://unused.invalid")

	claim, err := r.Resolve(context.Background(), "u1", true, "Pro", "")
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if claim.Source != SourceClient {
		t.Fatalf("expected client-sourced claim, got %q", claim.Source)
	}
	if !claim.LoggedIn || !claim.Subscribed || claim.Plan != "Pro" {
		t.Fatalf("asserted fields not honored: %+v", claim)
	}
}

func TestResolveWithoutTokenNoPlanIsNotSubscribed(t *testing.T) {
	r := newTestResolver("http://unused.invalid")

	claim, err := r.Resolve(context.Background(), "u1", true, "none", "")
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if claim.Subscribed {
		t.Fatal("no-plan sentinel must not count as subscribed")
	}
	if claim.Plan != domain.PlanFree {
		t.Fatalf("sentinel should normalize to Free, got %q", claim.Plan)
	}
}

func TestResolveTokenOverridesAssertedFields(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if got := req.Header.Get("Authorization"); got != "Bearer tok-1" {
			t.Errorf("missing bearer token, got %q", got)
		}
		if got := req.URL.Query().Get("user_id"); got != "u1" {
			t.Errorf("unexpected user_id %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"logged_in": true, "plan": "Starter", "user_id": "u1"}`))
	}))
	defer srv.Close()

	r := newTestResolver(srv.URL)
	// Client asserts logged-out Free; the verified answer wins.
	claim, err := r.Resolve(context.Background(), "u1", false, "Free", "tok-1")
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if claim.Source != SourceMembership {
		t.Fatalf("expected membership-sourced claim, got %q", claim.Source)
	}
	if !claim.LoggedIn || !claim.Subscribed || claim.Plan != "Starter" {
		t.Fatalf("authoritative fields not applied: %+v", claim)
	}
}

func TestResolveIdentityMismatchDowngradesToFree(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"logged_in": true, "plan": "Pro", "user_id": "someone-else"}`))
	}))
	defer srv.Close()

	r := newTestResolver(srv.URL)
	claim, err := r.Resolve(context.Background(), "u1", true, "Pro", "tok-1")
	if err != nil {
		t.Fatalf("mismatch must not be an error: %v", err)
	}
	if claim.LoggedIn || claim.Subscribed {
		t.Fatalf("mismatch must force a logged-out claim: %+v", claim)
	}
	if claim.Plan != domain.PlanFree {
		t.Fatalf("mismatch must force Free, got %q", claim.Plan)
	}
	if !claim.Mismatch {
		t.Fatal("mismatch flag should be set")
	}
}

func TestResolveVerificationFailureIsFatal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	r := newTestResolver(srv.URL)
	_, err := r.Resolve(context.Background(), "u1", true, "Pro", "tok-1")
	if !errors.Is(err, domain.ErrVerificationFailed) {
		t.Fatalf("expected ErrVerificationFailed, got %v", err)
	}
}

func TestResolveUnreachableServiceIsFatal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close() // connection refused from here on

	r := newTestResolver(srv.URL)
	_, err := r.Resolve(context.Background(), "u1", true, "Pro", "tok-1")
	if !errors.Is(err, domain.ErrVerificationFailed) {
		t.Fatalf("expected ErrVerificationFailed, got %v", err)
	}
}
