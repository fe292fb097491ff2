package handlers

import (
	"math"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	"server/internal/sqlinline"
)

const adminSessionCookie = "admin_session"

// Rough blended per-message upstream price in USD, used only for the
// dashboard estimate.
const perMessageCostUSD = 0.07

func (a *App) AdminLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid form")
		return
	}
	password := r.PostFormValue("password")
	if bcrypt.CompareHashAndPassword(a.adminHash, []byte(password)) != nil {
		a.Emitter.Emit(r.Context(), "admin", "admin_login_failed", nil)
		a.Logger.Warn().Msg("admin login rejected")
		a.error(w, http.StatusUnauthorized, "unauthorized", "invalid password")
		return
	}

	token := a.Sessions.Create()
	http.SetCookie(w, &http.Cookie{
		Name:     adminSessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(a.Config.AdminSessionTTL.Seconds()),
	})
	a.Emitter.Emit(r.Context(), "admin", "admin_login", nil)
	a.json(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *App) AdminLogout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(adminSessionCookie); err == nil {
		a.Sessions.Delete(c.Value)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     adminSessionCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
	a.json(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *App) requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	c, err := r.Cookie(adminSessionCookie)
	if err != nil || !a.Sessions.Validate(c.Value) {
		a.error(w, http.StatusUnauthorized, "unauthorized", "admin session required")
		return false
	}
	return true
}

func (a *App) AdminMetrics(w http.ResponseWriter, r *http.Request) {
	if !a.requireAdmin(w, r) {
		return
	}
	ctx := r.Context()
	now := time.Now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	var activeToday int
	if err := a.SQL.QueryRow(ctx, sqlinline.QCountActiveUsersToday, today).Scan(&activeToday); err != nil {
		a.Logger.Error().Err(err).Msg("metrics: active users query failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load metrics")
		return
	}

	var monthlyMessages int
	if err := a.SQL.QueryRow(ctx, sqlinline.QSumUsageSinceAll, monthStart).Scan(&monthlyMessages); err != nil {
		a.Logger.Error().Err(err).Msg("metrics: monthly sum query failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load metrics")
		return
	}

	rows, err := a.SQL.Query(ctx, sqlinline.QTopTemplateLabels, monthStart)
	if err != nil {
		a.Logger.Error().Err(err).Msg("metrics: top labels query failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load metrics")
		return
	}
	defer rows.Close()

	topPrompts := make([]map[string]any, 0, 5)
	for rows.Next() {
		var label string
		var count int
		if err := rows.Scan(&label, &count); err != nil {
			a.Logger.Error().Err(err).Msg("metrics: top labels scan failed")
			a.error(w, http.StatusInternalServerError, "internal", "failed to load metrics")
			return
		}
		topPrompts = append(topPrompts, map[string]any{"label": label, "count": count})
	}
	if err := rows.Err(); err != nil {
		a.Logger.Error().Err(err).Msg("metrics: top labels rows failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load metrics")
		return
	}

	cost := math.Round(float64(monthlyMessages)*perMessageCostUSD*100) / 100

	a.json(w, http.StatusOK, map[string]any{
		"active_subscribers": activeToday,
		"monthly_messages":   monthlyMessages,
		"api_cost":           cost,
		"top_prompts":        topPrompts,
		"system_status":      "operational",
		"last_updated":       now.Format(time.RFC3339),
	})
}

func (a *App) AdminUsageReset(w http.ResponseWriter, r *http.Request) {
	if !a.requireAdmin(w, r) {
		return
	}
	userID := chi.URLParam(r, "userID")
	if userID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "user id required")
		return
	}
	if err := a.Quota.ResetToday(r.Context(), userID); err != nil {
		a.Logger.Error().Err(err).Str("user_id", userID).Msg("usage reset failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to reset usage")
		return
	}
	a.Logger.Info().Str("user_id", userID).Msg("usage reset by admin")
	a.json(w, http.StatusOK, map[string]string{"status": "ok", "user_id": userID})
}
