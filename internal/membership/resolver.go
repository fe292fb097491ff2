// Package membership resolves a user's login state and plan.
//
// When the caller supplies an auth token, the external membership service is
// authoritative and its answer overrides every client-asserted field. Without
// a token the resolver trusts the client's assertion outright. That weaker
// mode is deliberate (embedded clients without a token exchange) but callers
// should treat unverified claims accordingly.
package membership

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"server/internal/analytics"
	"server/internal/domain"
)

// Source tags how a claim was established.
type Source string

const (
	// SourceClient marks a claim taken from client-asserted fields.
	SourceClient Source = "client"
	// SourceMembership marks a claim confirmed by the membership service.
	SourceMembership Source = "membership"
)

// Claim is the resolved subscription state for one request.
type Claim struct {
	UserID     string
	LoggedIn   bool
	Subscribed bool
	Plan       string
	Source     Source
	// Mismatch is set when the membership service confirmed the token but
	// reported a different user than the caller claimed to be.
	Mismatch bool
}

// Resolver checks subscription state against the membership service.
type Resolver struct {
	apiURL  string
	client  *http.Client
	emitter analytics.Emitter
	logger  zerolog.Logger
}

func NewResolver(apiURL string, emitter analytics.Emitter, logger zerolog.Logger) *Resolver {
	return &Resolver{
		apiURL:  apiURL,
		client:  &http.Client{Timeout: 10 * time.Second},
		emitter: emitter,
		logger:  logger,
	}
}

type membershipStatus struct {
	LoggedIn bool   `json:"logged_in"`
	Plan     string `json:"plan"`
	UserID   string `json:"user_id"`
}

// Resolve returns the claim that gates the rest of the request.
//
// With a token, any failure to verify yields domain.ErrVerificationFailed;
// the caller must refuse the request rather than fall back to the asserted
// fields. An identity mismatch is not an error: it resolves to a logged-out
// Free claim with Mismatch set.
func (r *Resolver) Resolve(ctx context.Context, userID string, assertedLoggedIn bool, assertedPlan, authToken string) (Claim, error) {
	if authToken == "" {
		return Claim{
			UserID:     userID,
			LoggedIn:   assertedLoggedIn,
			Subscribed: assertedLoggedIn && !domain.IsNoPlan(assertedPlan),
			Plan:       domain.NormalizePlan(assertedPlan),
			Source:     SourceClient,
		}, nil
	}

	status, err := r.fetchStatus(ctx, userID, authToken)
	if err != nil {
		r.emitter.Emit(ctx, userID, "subscription_check_failed", map[string]any{"error": err.Error()})
		r.logger.Warn().Err(err).Str("user_id", userID).Msg("membership verification failed")
		return Claim{}, fmt.Errorf("%w: %v", domain.ErrVerificationFailed, err)
	}

	if status.UserID != "" && status.UserID != userID {
		r.emitter.Emit(ctx, userID, "subscription_mismatch", map[string]any{"reported_user_id": status.UserID})
		r.logger.Warn().Str("user_id", userID).Str("reported_user_id", status.UserID).Msg("membership identity mismatch")
		return Claim{
			UserID:     userID,
			LoggedIn:   false,
			Subscribed: false,
			Plan:       domain.PlanFree,
			Source:     SourceMembership,
			Mismatch:   true,
		}, nil
	}

	claim := Claim{
		UserID:     userID,
		LoggedIn:   status.LoggedIn,
		Subscribed: status.LoggedIn && !domain.IsNoPlan(status.Plan),
		Plan:       domain.NormalizePlan(status.Plan),
		Source:     SourceMembership,
	}
	r.emitter.Emit(ctx, userID, "subscription_checked", map[string]any{
		"subscribed": claim.Subscribed,
		"plan":       claim.Plan,
	})
	return claim, nil
}

func (r *Resolver) fetchStatus(ctx context.Context, userID, authToken string) (*membershipStatus, error) {
	endpoint := fmt.Sprintf("%s?user_id=%s", r.apiURL, url.QueryEscape(userID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+authToken)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("membership request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("membership status %d", resp.StatusCode)
	}

	var status membershipStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("decode membership response: %w", err)
	}
	return &status, nil
}
