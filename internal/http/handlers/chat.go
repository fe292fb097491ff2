package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"server/internal/domain"
	"server/internal/i18n"
	"server/internal/membership"
	"server/internal/middleware"
)

type chatRequest struct {
	UserID        string `json:"user_id"`
	Message       string `json:"message"`
	LoggedIn      bool   `json:"logged_in"`
	Plan          string `json:"plan"`
	TemplateLabel string `json:"template_label"`
	AuthToken     string `json:"auth_token"`
}

func (req *chatRequest) validate() error {
	if strings.TrimSpace(req.UserID) == "" {
		return errors.New("user_id required")
	}
	if strings.TrimSpace(req.Message) == "" {
		return errors.New("message required")
	}
	return nil
}

// Chat handles one non-streaming exchange. The gate order is fixed:
// membership first, then quota, then the upstream call, then persistence.
func (a *App) Chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if err := req.validate(); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	ctx := r.Context()
	locale := middleware.LocaleFromContext(ctx)

	claim, err := a.Members.Resolve(ctx, req.UserID, req.LoggedIn, req.Plan, req.AuthToken)
	if err != nil {
		a.error(w, http.StatusUnauthorized, "unauthorized", "subscription verification failed")
		return
	}
	if !claim.Subscribed {
		// Not an error from the client's point of view; the notice is the reply.
		a.json(w, http.StatusOK, map[string]string{"reply": i18n.UnsubscribedNotice(locale)})
		return
	}

	if _, _, err := a.Quota.CheckAndConsume(ctx, req.UserID, claim.Plan); err != nil {
		var qe *domain.QuotaExceededError
		if errors.As(err, &qe) {
			a.error(w, http.StatusTooManyRequests, "quota_exceeded", i18n.QuotaNotice(locale, qe.Used, qe.Cap, qe.Period))
			return
		}
		a.Logger.Error().Err(err).Str("user_id", req.UserID).Msg("quota check failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to check usage")
		return
	}

	reply, err := a.Relay.Complete(ctx, req.Message)
	if err != nil {
		a.relayError(w, req.UserID, err)
		return
	}

	if err := a.History.RecordExchange(ctx, req.UserID, req.Message, reply, req.TemplateLabel); err != nil {
		a.Logger.Error().Err(err).Str("user_id", req.UserID).Int("reply_length", len(reply)).Msg("history write failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to save conversation")
		return
	}

	a.emitChatCompleted(ctx, req, claim, len(reply), false)
	a.json(w, http.StatusOK, map[string]string{"reply": reply})
}

// ChatStream handles the SSE variant. Once the event stream is committed,
// every failure has to travel as an event; HTTP status codes are only
// available before the first write.
func (a *App) ChatStream(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if err := req.validate(); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		a.error(w, http.StatusInternalServerError, "internal", "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ctx := r.Context()
	locale := middleware.LocaleFromContext(ctx)

	claim, err := a.Members.Resolve(ctx, req.UserID, req.LoggedIn, req.Plan, req.AuthToken)
	if err != nil {
		a.sseNotice(w, flusher, "Subscription verification failed. Please try again.")
		return
	}
	if !claim.Subscribed {
		a.sseNotice(w, flusher, i18n.UnsubscribedNotice(locale))
		return
	}

	if _, _, err := a.Quota.CheckAndConsume(ctx, req.UserID, claim.Plan); err != nil {
		var qe *domain.QuotaExceededError
		if errors.As(err, &qe) {
			a.sseNotice(w, flusher, i18n.QuotaNotice(locale, qe.Used, qe.Cap, qe.Period))
			return
		}
		a.Logger.Error().Err(err).Str("user_id", req.UserID).Msg("quota check failed")
		a.sseNotice(w, flusher, "Service temporarily unavailable. Please try again.")
		return
	}

	handler := func(delta, fullText string) error {
		payload, err := json.Marshal(map[string]string{"delta": delta, "full_text": fullText})
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	}

	full, err := a.Relay.CompleteStream(ctx, req.Message, handler)
	if err != nil {
		a.Logger.Warn().Err(err).Str("user_id", req.UserID).Int("partial_length", len(full)).Msg("stream interrupted")
		if full != "" {
			// The client may be gone; persist what was delivered on a
			// detached context so the write is not cancelled with it.
			a.persistDetached(ctx, req, full)
		}
		return
	}

	if err := a.History.RecordExchange(ctx, req.UserID, req.Message, full, req.TemplateLabel); err != nil {
		a.Logger.Error().Err(err).Str("user_id", req.UserID).Int("reply_length", len(full)).Msg("history write failed")
	}

	a.emitChatCompleted(ctx, req, claim, len(full), true)
}

// sseNotice delivers a single plain-text event and ends the stream.
func (a *App) sseNotice(w http.ResponseWriter, flusher http.Flusher, notice string) {
	_, _ = fmt.Fprintf(w, "data: %s\n\n", notice)
	flusher.Flush()
}

func (a *App) persistDetached(ctx context.Context, req chatRequest, partial string) {
	dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := a.History.RecordExchange(dctx, req.UserID, req.Message, partial, req.TemplateLabel); err != nil {
		a.Logger.Warn().Err(err).Str("user_id", req.UserID).Msg("partial history write failed")
	}
}

func (a *App) relayError(w http.ResponseWriter, userID string, err error) {
	var ue *domain.UpstreamError
	switch {
	case errors.As(err, &ue):
		a.Logger.Error().Int("status", ue.Status).Str("user_id", userID).Msg("upstream rejected request")
		a.error(w, ue.Status, "upstream_error", "chat provider rejected the request")
	case errors.Is(err, domain.ErrUpstreamUnreachable):
		a.Logger.Error().Err(err).Str("user_id", userID).Msg("upstream unreachable")
		a.error(w, http.StatusBadGateway, "upstream_unreachable", "chat provider unreachable")
	case errors.Is(err, domain.ErrMalformedUpstreamResponse):
		a.Logger.Error().Err(err).Str("user_id", userID).Msg("malformed upstream response")
		a.error(w, http.StatusBadGateway, "upstream_error", "chat provider returned an invalid response")
	default:
		a.Logger.Error().Err(err).Str("user_id", userID).Msg("chat relay failed")
		a.error(w, http.StatusInternalServerError, "internal", "chat request failed")
	}
}

func (a *App) emitChatCompleted(ctx context.Context, req chatRequest, claim membership.Claim, replyLength int, stream bool) {
	props := map[string]any{
		"plan":           claim.Plan,
		"claim_source":   string(claim.Source),
		"template_label": req.TemplateLabel,
		"message_length": len(req.Message),
		"reply_length":   replyLength,
		"stream":         stream,
	}
	if country := middleware.CountryFromContext(ctx); country != "" {
		props["country"] = country
	}
	a.Emitter.Emit(ctx, req.UserID, "chat_completed", props)
}
