package match

import (
	"strings"
	"time"

	"github.com/riskibarqy/predictor-league/internal/domain/payout"
)

type Status string

const (
	StatusScheduled Status = "SCHEDULED"
	StatusLive      Status = "LIVE"
	StatusFinished  Status = "FINISHED"
	StatusPostponed Status = "POSTPONED"
	StatusCancelled Status = "CANCELLED"
)

func NormalizeStatus(value string) Status {
	status := Status(strings.ToUpper(strings.TrimSpace(value)))
	if status == "" {
		return StatusScheduled
	}
	return status
}

// IsVoid reports statuses that never get settled.
func (s Status) IsVoid() bool {
	return s == StatusPostponed || s == StatusCancelled
}

// Result holds the score; Outcome is set only once the match is FINISHED.
type Result struct {
	HomeScore int
	AwayScore int
	Outcome   *payout.Outcome
}

// Telemetry is live data refreshed from the fixture source on every pass.
type Telemetry struct {
	Elapsed            int
	ExtraTime          int
	ProviderStatusCode int
}

// Match is one fixture tracked by the engine, linked to one or more groups.
type Match struct {
	ID             string
	ExternalID     int64
	HomeTeam       string
	AwayTeam       string
	KickoffAt      time.Time
	Status         Status
	Result         *Result
	Telemetry      Telemetry
	Groups         map[string]struct{}
	RelativePoints map[string]payout.Multipliers
	ManualOverride bool
	FinishedAt     *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Version identifies the stored row a change was computed from.
type Version struct {
	Status    Status
	UpdatedAt time.Time
}

func (m Match) Version() Version {
	return Version{Status: m.Status, UpdatedAt: m.UpdatedAt}
}

// HasExternalSource reports whether the fixture source is authoritative for this match.
func (m Match) HasExternalSource() bool {
	return m.ExternalID > 0
}

func (m Match) InGroup(groupID string) bool {
	_, ok := m.Groups[groupID]
	return ok
}

func (m Match) GroupIDs() []string {
	out := make([]string, 0, len(m.Groups))
	for id := range m.Groups {
		out = append(out, id)
	}
	return out
}

// MultipliersFor returns the group's multipliers, or neutral ones when none were attached.
func (m Match) MultipliersFor(groupID string) payout.Multipliers {
	multipliers, ok := m.RelativePoints[groupID]
	if !ok {
		return payout.NeutralMultipliers()
	}
	return multipliers.Normalized()
}

func (m Match) Outcome() (payout.Outcome, bool) {
	if m.Status != StatusFinished || m.Result == nil || m.Result.Outcome == nil {
		return "", false
	}
	return *m.Result.Outcome, true
}

// AcceptsWagers reports whether predictions can still be placed at now.
func (m Match) AcceptsWagers(now time.Time) bool {
	return m.Status == StatusScheduled && m.KickoffAt.After(now)
}

// Snapshot is a fixture as reported by the fixture source.
type Snapshot struct {
	ExternalID int64
	Status     Status
	HomeTeam   string
	AwayTeam   string
	KickoffAt  time.Time
	HomeScore  *int
	AwayScore  *int
	Telemetry  Telemetry
}

func (s Snapshot) HasScore() bool {
	return s.HomeScore != nil && s.AwayScore != nil
}

// Score is a manual score input.
type Score struct {
	Home int
	Away int
}
