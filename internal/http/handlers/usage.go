package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (a *App) Usage(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if userID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "user id required")
		return
	}

	q := r.URL.Query()
	claim, err := a.Members.Resolve(r.Context(), userID, q.Get("logged_in") == "true", q.Get("plan"), q.Get("auth_token"))
	if err != nil {
		a.error(w, http.StatusUnauthorized, "unauthorized", "subscription verification failed")
		return
	}

	snap, err := a.Quota.Snapshot(r.Context(), userID, claim.Plan)
	if err != nil {
		a.Logger.Error().Err(err).Str("user_id", userID).Msg("usage snapshot failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load usage")
		return
	}

	a.json(w, http.StatusOK, map[string]any{
		"user_id":         snap.UserID,
		"date":            snap.Date.Format("2006-01-02"),
		"prompt_count":    snap.PromptCount,
		"cap":             snap.Cap,
		"period":          string(snap.Period),
		"remaining_quota": snap.Remaining,
		"plan":            snap.Plan,
	})
}
