package domain

import "time"

// EntryKind distinguishes the two halves of an exchange.
type EntryKind string

const (
	EntryKindUser EntryKind = "user"
	EntryKindBot  EntryKind = "bot"
)

// ConversationEntry is one stored message. A user entry carries Message and
// no Reply; a bot entry carries Reply and no Message. Entries are written in
// pairs after a successful exchange and are immutable afterwards.
type ConversationEntry struct {
	ID            int64
	UserID        string
	Message       string
	Reply         string
	Kind          EntryKind
	TemplateLabel string
	CreatedAt     time.Time
}
