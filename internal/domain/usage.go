package domain

import "time"

// UsageRecord tracks one user's consumption counter for one calendar date.
// Exactly one record exists per (user, date); the counter only increases
// within a day, except for an explicit administrative reset of today.
type UsageRecord struct {
	ID          int64
	UserID      string
	Date        time.Time
	PromptCount int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// UsageSnapshot is the read-side view served by the usage endpoint.
type UsageSnapshot struct {
	UserID      string
	Date        time.Time
	PromptCount int
	Cap         int
	Period      Period
	Remaining   int
	Plan        string
}
