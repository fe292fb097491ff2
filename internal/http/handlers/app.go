// Package handlers carries the HTTP endpoints. Every handler hangs off App,
// which holds the wired collaborators behind small interfaces so tests can
// swap in fakes.
package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"server/internal/adminsession"
	"server/internal/analytics"
	"server/internal/chatrelay"
	"server/internal/domain"
	"server/internal/infra"
	"server/internal/membership"
)

// QuotaLedger admits or rejects requests against the plan caps.
type QuotaLedger interface {
	CheckAndConsume(ctx context.Context, userID, plan string) (int, int, error)
	Snapshot(ctx context.Context, userID, plan string) (domain.UsageSnapshot, error)
	ResetToday(ctx context.Context, userID string) error
}

// MembershipResolver establishes the subscription claim for a request.
type MembershipResolver interface {
	Resolve(ctx context.Context, userID string, assertedLoggedIn bool, assertedPlan, authToken string) (membership.Claim, error)
}

// RelayClient is the upstream chat-completion client.
type RelayClient interface {
	Complete(ctx context.Context, message string) (string, error)
	CompleteStream(ctx context.Context, message string, handler chatrelay.StreamHandler) (string, error)
}

// HistoryStore persists and lists conversation exchanges.
type HistoryStore interface {
	RecordExchange(ctx context.Context, userID, message, reply, templateLabel string) error
	ListRecent(ctx context.Context, userID string, limit int) ([]domain.ConversationEntry, error)
}

type App struct {
	SQL      infra.SQLExecutor
	Logger   zerolog.Logger
	Config   *infra.Config
	Quota    QuotaLedger
	Members  MembershipResolver
	Relay    RelayClient
	History  HistoryStore
	Sessions *adminsession.Store
	Emitter  analytics.Emitter

	adminHash []byte
}

func NewApp(
	cfg *infra.Config,
	sql infra.SQLExecutor,
	logger zerolog.Logger,
	quota QuotaLedger,
	members MembershipResolver,
	relay RelayClient,
	history HistoryStore,
	sessions *adminsession.Store,
	emitter analytics.Emitter,
) (*App, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.AdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("handlers: hash admin password: %w", err)
	}
	return &App{
		SQL:       sql,
		Logger:    logger,
		Config:    cfg,
		Quota:     quota,
		Members:   members,
		Relay:     relay,
		History:   history,
		Sessions:  sessions,
		Emitter:   emitter,
		adminHash: hash,
	}, nil
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, errCode, message string) {
	a.json(w, code, map[string]string{"error": errCode, "message": message})
}
