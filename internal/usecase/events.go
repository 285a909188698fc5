package usecase

import (
	"context"
	"time"
)

const (
	EventWagerSettled      = "wager.settled"
	EventMatchTransitioned = "match.transitioned"
	EventKickoffReminder   = "match.kickoff_reminder"
)

// Event is one domain notification; Key orders delivery per aggregate.
type Event struct {
	Type       string    `json:"type"`
	Key        string    `json:"key"`
	OccurredAt time.Time `json:"occurred_at"`
	Payload    any       `json:"payload"`
}

type SettlementEvent struct {
	WagerID    string `json:"wager_id"`
	MatchID    string `json:"match_id"`
	GroupID    string `json:"group_id"`
	UserID     string `json:"user_id"`
	Prediction string `json:"prediction"`
	Outcome    string `json:"outcome"`
	Points     int64  `json:"points"`
}

type TransitionEvent struct {
	MatchID    string `json:"match_id"`
	ExternalID int64  `json:"external_id,omitempty"`
	From       string `json:"from"`
	To         string `json:"to"`
	HomeScore  *int   `json:"home_score,omitempty"`
	AwayScore  *int   `json:"away_score,omitempty"`
	Source     string `json:"source"`
}

type ReminderEvent struct {
	MatchID   string    `json:"match_id"`
	GroupID   string    `json:"group_id"`
	HomeTeam  string    `json:"home_team"`
	AwayTeam  string    `json:"away_team"`
	KickoffAt time.Time `json:"kickoff_at"`
}

type EventPublisher interface {
	Publish(ctx context.Context, events ...Event) error
}

type noopEventPublisher struct{}

func (noopEventPublisher) Publish(context.Context, ...Event) error {
	return nil
}

func NewNoopEventPublisher() EventPublisher {
	return noopEventPublisher{}
}
