package adminsession

import (
	"testing"
	"time"
)

func TestCreateAndValidate(t *testing.T) {
	s := NewStore(time.Hour)

	token := s.Create()
	if token == "" {
		t.Fatal("empty token")
	}
	if !s.Validate(token) {
		t.Fatal("fresh token should validate")
	}
	if s.Validate("unknown-token") {
		t.Fatal("unknown token should not validate")
	}
	if s.Validate("") {
		t.Fatal("empty token should not validate")
	}
}

func TestValidateExpiresByInactivity(t *testing.T) {
	s := NewStore(time.Hour)
	current := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return current }

	token := s.Create()

	current = current.Add(30 * time.Minute)
	if !s.Validate(token) {
		t.Fatal("token should still be live")
	}

	// Validation refreshed activity; another 30 minutes stays within TTL.
	current = current.Add(30 * time.Minute)
	if !s.Validate(token) {
		t.Fatal("activity refresh should extend the session")
	}

	current = current.Add(61 * time.Minute)
	if s.Validate(token) {
		t.Fatal("token should have expired")
	}
	if s.Len() != 0 {
		t.Fatalf("expired session should be removed, %d left", s.Len())
	}
}

func TestDeleteRemovesSession(t *testing.T) {
	s := NewStore(time.Hour)
	token := s.Create()

	s.Delete(token)
	if s.Validate(token) {
		t.Fatal("deleted token should not validate")
	}
}

func TestSweepEvictsOnlyExpired(t *testing.T) {
	s := NewStore(time.Hour)
	current := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return current }

	stale := s.Create()
	current = current.Add(2 * time.Hour)
	fresh := s.Create()

	s.sweep()
	if s.Len() != 1 {
		t.Fatalf("expected 1 session after sweep, got %d", s.Len())
	}
	if s.Validate(stale) {
		t.Fatal("stale session survived sweep")
	}
	if !s.Validate(fresh) {
		t.Fatal("fresh session should survive sweep")
	}
}
