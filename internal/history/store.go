// Package history persists conversation exchanges.
package history

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"server/internal/analytics"
	"server/internal/domain"
	"server/internal/infra"
	"server/internal/sqlinline"
)

// Store writes and reads chat_history rows.
type Store struct {
	db      infra.SQLExecutor
	emitter analytics.Emitter
	logger  zerolog.Logger
}

func NewStore(db infra.SQLExecutor, emitter analytics.Emitter, logger zerolog.Logger) *Store {
	return &Store{db: db, emitter: emitter, logger: logger}
}

// RecordExchange stores the user prompt and the bot reply as a pair in one
// transaction. It runs exactly once per successful exchange, after the full
// reply text is known, so no prompt is ever recorded without its answer.
func (s *Store) RecordExchange(ctx context.Context, userID, message, reply, templateLabel string) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("history: begin: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	var label any
	if templateLabel != "" {
		label = templateLabel
	}

	if _, err := tx.Exec(ctx, sqlinline.QInsertUserMessage, userID, message, label); err != nil {
		return fmt.Errorf("history: insert user message: %w", err)
	}
	if _, err := tx.Exec(ctx, sqlinline.QInsertBotReply, userID, reply, label); err != nil {
		return fmt.Errorf("history: insert bot reply: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("history: commit: %w", err)
	}

	s.emitter.Emit(ctx, userID, "chat_message_saved", map[string]any{
		"message_length": len(message),
		"reply_length":   len(reply),
		"template_label": templateLabel,
	})
	return nil
}

// ListRecent returns the user's latest entries in chronological order. The
// query reads newest-first to honor the limit, then the slice is reversed
// for display.
func (s *Store) ListRecent(ctx context.Context, userID string, limit int) ([]domain.ConversationEntry, error) {
	rows, err := s.db.Query(ctx, sqlinline.QSelectRecentHistory, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("history: query: %w", err)
	}
	defer rows.Close()

	var entries []domain.ConversationEntry
	for rows.Next() {
		var e domain.ConversationEntry
		var kind string
		if err := rows.Scan(&e.ID, &e.UserID, &e.Message, &e.Reply, &kind, &e.TemplateLabel, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("history: scan: %w", err)
		}
		e.Kind = domain.EntryKind(kind)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: rows: %w", err)
	}

	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries, nil
}
