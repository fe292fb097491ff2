package infra

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Both tables are created on startup when absent. The service owns its own
// schema; there is no external migration step.
var schemaStatements = []string{
	`create table if not exists user_usage (
		id bigserial primary key,
		user_id text not null,
		date date not null,
		prompt_count integer not null default 0 check (prompt_count >= 0),
		created_at timestamptz not null default now(),
		updated_at timestamptz not null default now(),
		unique (user_id, date)
	)`,
	`create index if not exists idx_user_usage_date on user_usage (date)`,
	`create table if not exists chat_history (
		id bigserial primary key,
		user_id text not null,
		message text,
		reply text,
		message_type text not null,
		template_label text,
		created_at timestamptz not null default now()
	)`,
	`create index if not exists idx_chat_history_user_created on chat_history (user_id, created_at desc)`,
}

// EnsureSchema creates the usage and history tables if they do not exist yet.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schemaStatements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
