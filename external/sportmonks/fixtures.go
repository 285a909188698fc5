package sportmonks

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/riskibarqy/predictor-league/internal/domain/match"
	"github.com/riskibarqy/predictor-league/internal/domain/payout"
	"github.com/riskibarqy/predictor-league/internal/usecase"
)

func (c *Client) ListInProgress(ctx context.Context) ([]match.Snapshot, error) {
	var envelope fixtureListEnvelope
	if err := c.doJSON(ctx, "/livescores/inplay", map[string]string{"include": defaultIncludeFixture}, &envelope); err != nil {
		return nil, fmt.Errorf("list in-progress fixtures: %w", err)
	}

	out := make([]match.Snapshot, 0, len(envelope.Data))
	for _, item := range envelope.Data {
		if item.ID <= 0 {
			continue
		}
		out = append(out, toSnapshot(item))
	}
	return out, nil
}

func (c *Client) GetByID(ctx context.Context, externalID int64) (match.Snapshot, error) {
	if externalID <= 0 {
		return match.Snapshot{}, fmt.Errorf("%w: fixture id must be > 0", usecase.ErrFixtureNotFound)
	}

	var envelope fixtureEnvelope
	path := fmt.Sprintf("/fixtures/%d", externalID)
	if err := c.doJSON(ctx, path, map[string]string{"include": defaultIncludeFixture}, &envelope); err != nil {
		if stderrors.Is(err, errSportMonksNotFound) {
			return match.Snapshot{}, fmt.Errorf("%w: fixture=%d", usecase.ErrFixtureNotFound, externalID)
		}
		return match.Snapshot{}, fmt.Errorf("get fixture=%d: %w", externalID, err)
	}
	if envelope.Data.ID <= 0 {
		return match.Snapshot{}, fmt.Errorf("%w: fixture=%d", usecase.ErrFixtureNotFound, externalID)
	}
	return toSnapshot(envelope.Data), nil
}

// GetOdds reads the pre-match fulltime result market. The configured bookmaker wins;
// otherwise the first bookmaker that quotes all three outcomes is used.
func (c *Client) GetOdds(ctx context.Context, externalID int64) (payout.Multipliers, error) {
	var envelope oddsEnvelope
	path := fmt.Sprintf("/odds/pre-match/fixtures/%d/markets/%d", externalID, fulltimeResultMarket)
	if err := c.doJSON(ctx, path, nil, &envelope); err != nil {
		if stderrors.Is(err, errSportMonksNotFound) {
			return payout.Multipliers{}, fmt.Errorf("%w: odds for fixture=%d", usecase.ErrFixtureNotFound, externalID)
		}
		return payout.Multipliers{}, fmt.Errorf("get odds fixture=%d: %w", externalID, err)
	}

	byBookmaker := make(map[int64]map[payout.Outcome]string)
	order := make([]int64, 0, 4)
	for _, item := range envelope.Data {
		if item.MarketID != 0 && item.MarketID != fulltimeResultMarket {
			continue
		}
		outcome, ok := outcomeFromLabel(item.Label)
		if !ok {
			continue
		}
		quotes, seen := byBookmaker[item.BookmakerID]
		if !seen {
			quotes = make(map[payout.Outcome]string, 3)
			byBookmaker[item.BookmakerID] = quotes
			order = append(order, item.BookmakerID)
		}
		if _, exists := quotes[outcome]; !exists {
			quotes[outcome] = item.Value
		}
	}

	if c.bookmakerID > 0 {
		if quotes, ok := byBookmaker[c.bookmakerID]; ok && len(quotes) == 3 {
			return multipliersFromQuotes(quotes), nil
		}
	}
	for _, bookmakerID := range order {
		if quotes := byBookmaker[bookmakerID]; len(quotes) == 3 {
			return multipliersFromQuotes(quotes), nil
		}
	}
	return payout.Multipliers{}, fmt.Errorf("%w: no complete fulltime result odds for fixture=%d", usecase.ErrFixtureNotFound, externalID)
}

func toSnapshot(item fixtureDetails) match.Snapshot {
	stateID := item.StateID
	if stateID == 0 && item.State.Set {
		stateID = item.State.Data.ID
	}
	home, away := resolveParticipants(item.Participants)
	homeScore, awayScore := resolveScores(item.Scores, item.Participants)

	snap := match.Snapshot{
		ExternalID: item.ID,
		Status:     mapFixtureStatus(stateID, item.ResultInfo),
		HomeTeam:   home,
		AwayTeam:   away,
		HomeScore:  homeScore,
		AwayScore:  awayScore,
		Telemetry:  resolveTelemetry(item.Periods, stateID),
	}
	if kickoff := parseProviderDateTime(item.StartingAt); kickoff != nil {
		snap.KickoffAt = *kickoff
	}
	return snap
}

func resolveParticipants(participants []fixtureParticipant) (string, string) {
	var home, away string
	for _, item := range participants {
		switch strings.ToLower(strings.TrimSpace(item.Meta.Location)) {
		case "home":
			home = strings.TrimSpace(item.Name)
		case "away":
			away = strings.TrimSpace(item.Name)
		}
	}
	return home, away
}

// resolveScores keeps only the most authoritative score description present
// (CURRENT over full time over half time).
func resolveScores(scores []fixtureScoreItem, participants []fixtureParticipant) (*int, *int) {
	var homeID, awayID int64
	for _, item := range participants {
		switch strings.ToLower(strings.TrimSpace(item.Meta.Location)) {
		case "home":
			homeID = item.ID
		case "away":
			awayID = item.ID
		}
	}
	if homeID == 0 || awayID == 0 {
		return nil, nil
	}

	best := 0
	var home, away *int
	for _, score := range scores {
		goals, ok := score.goals()
		if !ok {
			continue
		}
		weight := score.weight()
		if weight > best {
			best = weight
			home, away = nil, nil
		}
		if weight < best {
			continue
		}
		value := goals
		switch score.ParticipantID {
		case homeID:
			home = &value
		case awayID:
			away = &value
		}
	}
	return home, away
}

func resolveTelemetry(periods []fixturePeriod, stateID int64) match.Telemetry {
	telemetry := match.Telemetry{ProviderStatusCode: int(stateID)}
	var current *fixturePeriod
	for i := range periods {
		period := &periods[i]
		if period.Ticking {
			current = period
			break
		}
		if current == nil || period.SortOrder > current.SortOrder {
			current = period
		}
	}
	if current != nil {
		telemetry.Elapsed = current.Minutes
		telemetry.ExtraTime = current.TimeAdded
	}
	return telemetry
}

func mapFixtureStatus(stateID int64, resultInfo string) match.Status {
	switch stateID {
	case 2, 3, 4, 6, 7, 8, 9:
		return match.StatusLive
	case 5, 13, 14:
		return match.StatusFinished
	case 10:
		return match.StatusPostponed
	case 11, 12:
		return match.StatusCancelled
	case 1:
		return match.StatusScheduled
	}

	info := strings.ToLower(strings.TrimSpace(resultInfo))
	switch {
	case strings.Contains(info, "postpon"):
		return match.StatusPostponed
	case strings.Contains(info, "cancel"), strings.Contains(info, "abandon"):
		return match.StatusCancelled
	case strings.Contains(info, "live"), strings.Contains(info, "in play"), strings.Contains(info, "half"):
		return match.StatusLive
	case strings.Contains(info, "finish"), strings.Contains(info, "full time"), strings.Contains(info, "aet"), strings.Contains(info, "pen"):
		return match.StatusFinished
	default:
		return match.StatusScheduled
	}
}

func outcomeFromLabel(label string) (payout.Outcome, bool) {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "home", "1":
		return payout.OutcomeHome, true
	case "draw", "x":
		return payout.OutcomeDraw, true
	case "away", "2":
		return payout.OutcomeAway, true
	default:
		return "", false
	}
}

func multipliersFromQuotes(quotes map[payout.Outcome]string) payout.Multipliers {
	return payout.Multipliers{
		Home: payout.ParseMultiplier(quotes[payout.OutcomeHome]),
		Draw: payout.ParseMultiplier(quotes[payout.OutcomeDraw]),
		Away: payout.ParseMultiplier(quotes[payout.OutcomeAway]),
	}
}

func parseProviderDateTime(raw string) *time.Time {
	value := strings.TrimSpace(raw)
	if value == "" {
		return nil
	}

	layouts := []string{
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05Z07:00",
		time.RFC3339,
	}
	for _, layout := range layouts {
		parsed, err := time.Parse(layout, value)
		if err == nil {
			v := parsed.UTC()
			return &v
		}
	}
	return nil
}
