package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"server/internal/domain"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

type historyEntryDTO struct {
	ID            int64  `json:"id"`
	Message       string `json:"message,omitempty"`
	Reply         string `json:"reply,omitempty"`
	MessageType   string `json:"message_type"`
	TemplateLabel string `json:"template_label,omitempty"`
	CreatedAt     string `json:"created_at"`
}

func (a *App) ChatHistory(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if userID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "user id required")
		return
	}

	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			a.error(w, http.StatusBadRequest, "bad_request", "limit must be a positive integer")
			return
		}
		limit = n
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	entries, err := a.History.ListRecent(r.Context(), userID, limit)
	if err != nil {
		a.Logger.Error().Err(err).Str("user_id", userID).Msg("history read failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load history")
		return
	}

	dtos := make([]historyEntryDTO, 0, len(entries))
	for _, e := range entries {
		dtos = append(dtos, toHistoryDTO(e))
	}
	a.json(w, http.StatusOK, map[string]any{
		"user_id": userID,
		"history": dtos,
	})
}

func toHistoryDTO(e domain.ConversationEntry) historyEntryDTO {
	return historyEntryDTO{
		ID:            e.ID,
		Message:       e.Message,
		Reply:         e.Reply,
		MessageType:   string(e.Kind),
		TemplateLabel: e.TemplateLabel,
		CreatedAt:     e.CreatedAt.UTC().Format(time.RFC3339),
	}
}
