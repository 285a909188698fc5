package httpapi

import (
	"sort"
	"time"

	"github.com/riskibarqy/predictor-league/internal/domain/ledger"
	"github.com/riskibarqy/predictor-league/internal/domain/match"
	"github.com/riskibarqy/predictor-league/internal/domain/wager"
	"github.com/riskibarqy/predictor-league/internal/usecase"
)

type placeWagerRequest struct {
	Prediction string `json:"prediction" validate:"required,oneof=HOME DRAW AWAY home draw away"`
	Stake      *int64 `json:"stake" validate:"omitempty,gt=0"`
}

type importMatchRequest struct {
	ExternalID int64 `json:"external_id" validate:"required,gt=0"`
}

type createManualMatchRequest struct {
	HomeTeam  string    `json:"home_team" validate:"required,max=100"`
	AwayTeam  string    `json:"away_team" validate:"required,max=100"`
	KickoffAt time.Time `json:"kickoff_at" validate:"required"`
}

type matchScoreRequest struct {
	HomeScore *int `json:"home_score" validate:"required,gte=0"`
	AwayScore *int `json:"away_score" validate:"required,gte=0"`
}

func (r matchScoreRequest) score() *match.Score {
	if r.HomeScore == nil || r.AwayScore == nil {
		return nil
	}
	return &match.Score{Home: *r.HomeScore, Away: *r.AwayScore}
}

type matchFinishRequest struct {
	HomeScore *int `json:"home_score"`
	AwayScore *int `json:"away_score"`
}

type wagerDTO struct {
	ID           string `json:"id"`
	MatchID      string `json:"match_id"`
	GroupID      string `json:"group_id"`
	Prediction   string `json:"prediction"`
	Stake        *int64 `json:"stake,omitempty"`
	Points       *int64 `json:"points,omitempty"`
	Settled      bool   `json:"settled"`
	SettledAtUTC string `json:"settled_at_utc,omitempty"`
	CreatedAtUTC string `json:"created_at_utc"`
	UpdatedAtUTC string `json:"updated_at_utc"`
}

type wagerStatsDTO struct {
	Won     int   `json:"won"`
	Lost    int   `json:"lost"`
	Pending int   `json:"pending"`
	Void    int   `json:"void"`
	Points  int64 `json:"points"`
}

type memberWagersDTO struct {
	Balance int64         `json:"balance"`
	Stats   wagerStatsDTO `json:"stats"`
	Wagers  []wagerDTO    `json:"wagers"`
}

type standingDTO struct {
	Rank     int    `json:"rank"`
	UserID   string `json:"user_id"`
	Points   int64  `json:"points"`
	IsCaller bool   `json:"is_caller"`
}

type ledgerEntryDTO struct {
	ID           string `json:"id"`
	WagerID      string `json:"wager_id"`
	MatchID      string `json:"match_id"`
	Points       int64  `json:"points"`
	CreatedAtUTC string `json:"created_at_utc"`
}

type matchResultDTO struct {
	HomeScore int    `json:"home_score"`
	AwayScore int    `json:"away_score"`
	Outcome   string `json:"outcome,omitempty"`
}

type multipliersDTO struct {
	Home string `json:"home"`
	Draw string `json:"draw"`
	Away string `json:"away"`
}

type matchDTO struct {
	ID                 string                    `json:"id"`
	ExternalID         int64                     `json:"external_id,omitempty"`
	HomeTeam           string                    `json:"home_team"`
	AwayTeam           string                    `json:"away_team"`
	KickoffAtUTC       string                    `json:"kickoff_at_utc"`
	Status             string                    `json:"status"`
	Result             *matchResultDTO           `json:"result,omitempty"`
	Elapsed            int                       `json:"elapsed"`
	ExtraTime          int                       `json:"extra_time"`
	ProviderStatusCode int                       `json:"provider_status_code,omitempty"`
	GroupIDs           []string                  `json:"group_ids"`
	RelativePoints     map[string]multipliersDTO `json:"relative_points,omitempty"`
	ManualOverride     bool                      `json:"manual_override"`
	FinishedAtUTC      string                    `json:"finished_at_utc,omitempty"`
}

type manualActionDTO struct {
	Match      matchDTO                  `json:"match"`
	Settlement *usecase.SettlementReport `json:"settlement,omitempty"`
}

func wagerToDTO(v wager.Wager) wagerDTO {
	out := wagerDTO{
		ID:           v.ID,
		MatchID:      v.MatchID,
		GroupID:      v.GroupID,
		Prediction:   string(v.Prediction),
		Stake:        v.Stake,
		Points:       v.Points,
		Settled:      v.Settled,
		CreatedAtUTC: formatTime(v.CreatedAt),
		UpdatedAtUTC: formatTime(v.UpdatedAt),
	}
	if v.SettledAt != nil {
		out.SettledAtUTC = formatTime(*v.SettledAt)
	}
	return out
}

func ledgerEntryToDTO(v ledger.Entry) ledgerEntryDTO {
	return ledgerEntryDTO{
		ID:           v.ID,
		WagerID:      v.WagerID,
		MatchID:      v.MatchID,
		Points:       v.Points,
		CreatedAtUTC: formatTime(v.CreatedAt),
	}
}

func matchToDTO(v match.Match) matchDTO {
	groupIDs := v.GroupIDs()
	sort.Strings(groupIDs)

	out := matchDTO{
		ID:                 v.ID,
		ExternalID:         v.ExternalID,
		HomeTeam:           v.HomeTeam,
		AwayTeam:           v.AwayTeam,
		KickoffAtUTC:       formatTime(v.KickoffAt),
		Status:             string(v.Status),
		Elapsed:            v.Telemetry.Elapsed,
		ExtraTime:          v.Telemetry.ExtraTime,
		ProviderStatusCode: v.Telemetry.ProviderStatusCode,
		GroupIDs:           groupIDs,
		ManualOverride:     v.ManualOverride,
	}
	if v.Result != nil {
		out.Result = &matchResultDTO{
			HomeScore: v.Result.HomeScore,
			AwayScore: v.Result.AwayScore,
		}
		if v.Result.Outcome != nil {
			out.Result.Outcome = string(*v.Result.Outcome)
		}
	}
	if len(v.RelativePoints) > 0 {
		out.RelativePoints = make(map[string]multipliersDTO, len(v.RelativePoints))
		for groupID, multipliers := range v.RelativePoints {
			out.RelativePoints[groupID] = multipliersDTO{
				Home: multipliers.Home.String(),
				Draw: multipliers.Draw.String(),
				Away: multipliers.Away.String(),
			}
		}
	}
	if v.FinishedAt != nil {
		out.FinishedAtUTC = formatTime(*v.FinishedAt)
	}
	return out
}

func formatTime(v time.Time) string {
	if v.IsZero() {
		return ""
	}
	return v.UTC().Format(time.RFC3339)
}
