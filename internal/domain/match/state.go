package match

import (
	"errors"
	"fmt"
	"time"

	"github.com/riskibarqy/predictor-league/internal/domain/payout"
)

var (
	ErrMatchFinished     = errors.New("match already finished")
	ErrInvalidTransition = errors.New("invalid match status transition")
	ErrScoreRequired     = errors.New("match score is required")
	ErrInvalidScore      = errors.New("match score must not be negative")
)

var transitions = map[Status]map[Status]struct{}{
	StatusScheduled: {
		StatusLive:      {},
		StatusFinished:  {},
		StatusPostponed: {},
		StatusCancelled: {},
	},
	StatusLive: {
		StatusFinished: {},
	},
}

func CanTransition(from, to Status) bool {
	_, ok := transitions[from][to]
	return ok
}

// Change describes what one application did to a match.
type Change struct {
	From             Status
	To               Status
	StatusChanged    bool
	ResultChanged    bool
	TelemetryChanged bool
	OverrideChanged  bool
	// Finished is true only when this application moved the match into FINISHED.
	Finished bool
	// Conflict is set when provider data disagreed with local state and was not applied.
	Conflict string
}

func (c Change) Mutated() bool {
	return c.StatusChanged || c.ResultChanged || c.TelemetryChanged || c.OverrideChanged
}

// ApplySnapshot folds a provider snapshot into m.
//
// A FINISHED match is never touched; disagreement is only reported. Manual matches
// take telemetry only. Otherwise status follows the provider along allowed edges and
// the outcome is derived from the score at the moment of finishing.
func ApplySnapshot(m *Match, snap Snapshot, now time.Time) Change {
	change := Change{From: m.Status, To: m.Status}

	if m.Status == StatusFinished {
		if conflict := finishedConflict(m, snap); conflict != "" {
			change.Conflict = conflict
		}
		return change
	}

	if m.Telemetry != snap.Telemetry {
		m.Telemetry = snap.Telemetry
		change.TelemetryChanged = true
	}
	if m.ManualOverride {
		touch(m, change, now)
		return change
	}

	target := snap.Status
	if target == "" {
		target = m.Status
	}
	if target != m.Status && !CanTransition(m.Status, target) {
		change.Conflict = fmt.Sprintf("provider status %s is not reachable from %s", target, m.Status)
		target = m.Status
	}
	if target == StatusFinished && !snap.HasScore() {
		change.Conflict = "provider reports finished without a score"
		target = m.Status
	}

	if snap.HasScore() {
		next := Result{HomeScore: *snap.HomeScore, AwayScore: *snap.AwayScore}
		if target == StatusFinished {
			outcome := payout.OutcomeFromScores(next.HomeScore, next.AwayScore)
			next.Outcome = &outcome
		}
		if !sameResult(m.Result, &next) {
			m.Result = &next
			change.ResultChanged = true
		}
	}

	if target != m.Status {
		m.Status = target
		change.StatusChanged = true
		if target == StatusFinished {
			finishedAt := now
			m.FinishedAt = &finishedAt
			change.Finished = true
		}
	}
	change.To = m.Status
	touch(m, change, now)
	return change
}

// SetProvisionalScore records a manual in-progress score without finishing the match.
func SetProvisionalScore(m *Match, score Score, now time.Time) (Change, error) {
	if err := checkManual(m, score); err != nil {
		return Change{}, err
	}
	change := Change{From: m.Status, To: m.Status}
	next := Result{HomeScore: score.Home, AwayScore: score.Away}
	if !sameResult(m.Result, &next) {
		m.Result = &next
		change.ResultChanged = true
	}
	change.OverrideChanged = !m.ManualOverride
	m.ManualOverride = true
	touch(m, change, now)
	return change, nil
}

// MarkFinished finishes the match with score, or with the provisional score when score is nil.
func MarkFinished(m *Match, score *Score, now time.Time) (Change, error) {
	if m.Status == StatusFinished {
		return Change{}, ErrMatchFinished
	}
	if !CanTransition(m.Status, StatusFinished) {
		return Change{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, m.Status, StatusFinished)
	}

	final := score
	if final == nil && m.Result != nil {
		final = &Score{Home: m.Result.HomeScore, Away: m.Result.AwayScore}
	}
	if final == nil {
		return Change{}, ErrScoreRequired
	}
	if err := checkManual(m, *final); err != nil {
		return Change{}, err
	}

	outcome := payout.OutcomeFromScores(final.Home, final.Away)
	change := Change{From: m.Status, To: StatusFinished, StatusChanged: true, ResultChanged: true, Finished: true}
	m.Result = &Result{HomeScore: final.Home, AwayScore: final.Away, Outcome: &outcome}
	m.Status = StatusFinished
	finishedAt := now
	m.FinishedAt = &finishedAt
	m.ManualOverride = true
	m.UpdatedAt = now
	return change, nil
}

// ForceLive moves a scheduled match to LIVE by hand.
func ForceLive(m *Match, now time.Time) (Change, error) {
	if m.Status == StatusFinished {
		return Change{}, ErrMatchFinished
	}
	if m.Status == StatusLive {
		change := Change{From: m.Status, To: m.Status, OverrideChanged: !m.ManualOverride}
		m.ManualOverride = true
		touch(m, change, now)
		return change, nil
	}
	if !CanTransition(m.Status, StatusLive) {
		return Change{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, m.Status, StatusLive)
	}
	change := Change{From: m.Status, To: StatusLive, StatusChanged: true}
	m.Status = StatusLive
	m.ManualOverride = true
	m.UpdatedAt = now
	return change, nil
}

func checkManual(m *Match, score Score) error {
	if m.Status == StatusFinished {
		return ErrMatchFinished
	}
	if m.Status.IsVoid() {
		return fmt.Errorf("%w: match is %s", ErrInvalidTransition, m.Status)
	}
	if score.Home < 0 || score.Away < 0 {
		return ErrInvalidScore
	}
	return nil
}

func finishedConflict(m *Match, snap Snapshot) string {
	if snap.Status != "" && snap.Status != StatusFinished {
		return fmt.Sprintf("provider reports %s for a finished match", snap.Status)
	}
	if snap.HasScore() && m.Result != nil &&
		(*snap.HomeScore != m.Result.HomeScore || *snap.AwayScore != m.Result.AwayScore) {
		return fmt.Sprintf("provider score %d-%d differs from final %d-%d",
			*snap.HomeScore, *snap.AwayScore, m.Result.HomeScore, m.Result.AwayScore)
	}
	return ""
}

func sameResult(a, b *Result) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.HomeScore != b.HomeScore || a.AwayScore != b.AwayScore {
		return false
	}
	if a.Outcome == nil || b.Outcome == nil {
		return a.Outcome == nil && b.Outcome == nil
	}
	return *a.Outcome == *b.Outcome
}

func touch(m *Match, change Change, now time.Time) {
	if change.Mutated() {
		m.UpdatedAt = now
	}
}
