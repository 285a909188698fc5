package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/riskibarqy/predictor-league/internal/domain/match"
	"github.com/riskibarqy/predictor-league/internal/usecase"
)

func (h *Handler) GetMatch(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetMatch")
	defer span.End()

	matchID := strings.TrimSpace(r.PathValue("matchID"))
	item, err := h.matchService.GetByID(ctx, matchID)
	if err != nil {
		h.logger.WarnContext(ctx, "get match failed", "match_id", matchID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, matchToDTO(item))
}

func (h *Handler) ImportMatch(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ImportMatch")
	defer span.End()

	userID, err := requirePrincipalID(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	var req importMatchRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	groupID := strings.TrimSpace(r.PathValue("groupID"))
	item, err := h.matchService.ImportFixture(ctx, usecase.ImportFixtureInput{
		ActorUserID: userID,
		ExternalID:  req.ExternalID,
		GroupIDs:    []string{groupID},
	})
	if err != nil {
		h.logger.WarnContext(ctx, "import match failed",
			"user_id", userID,
			"group_id", groupID,
			"external_id", req.ExternalID,
			"error", err,
		)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusCreated, matchToDTO(item))
}

func (h *Handler) CreateManualMatch(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.CreateManualMatch")
	defer span.End()

	userID, err := requirePrincipalID(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	var req createManualMatchRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	groupID := strings.TrimSpace(r.PathValue("groupID"))
	item, err := h.matchService.CreateManual(ctx, usecase.CreateManualMatchInput{
		ActorUserID: userID,
		GroupID:     groupID,
		HomeTeam:    req.HomeTeam,
		AwayTeam:    req.AwayTeam,
		KickoffAt:   req.KickoffAt,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "create manual match failed", "user_id", userID, "group_id", groupID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusCreated, matchToDTO(item))
}

func (h *Handler) LinkMatch(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.LinkMatch")
	defer span.End()

	userID, err := requirePrincipalID(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	groupID := strings.TrimSpace(r.PathValue("groupID"))
	matchID := strings.TrimSpace(r.PathValue("matchID"))
	if err := h.matchService.AddToGroup(ctx, userID, matchID, groupID); err != nil {
		h.logger.WarnContext(ctx, "link match failed", "user_id", userID, "group_id", groupID, "match_id", matchID, "error", err)
		writeError(ctx, w, err)
		return
	}

	item, err := h.matchService.GetByID(ctx, matchID)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeSuccess(ctx, w, http.StatusOK, matchToDTO(item))
}

func (h *Handler) SetMatchScore(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.SetMatchScore")
	defer span.End()

	var req matchScoreRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	h.runManualAction(w, r.WithContext(ctx), "set match score", req.score(), h.matchAdminService.SetScore)
}

func (h *Handler) FinishMatch(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.FinishMatch")
	defer span.End()

	var req matchFinishRequest
	if err := decodeJSON(r, &req, true); err != nil {
		writeError(ctx, w, err)
		return
	}
	if req.HomeScore != nil || req.AwayScore != nil {
		if err := h.validateRequest(ctx, matchScoreRequest{HomeScore: req.HomeScore, AwayScore: req.AwayScore}); err != nil {
			writeError(ctx, w, err)
			return
		}
	}

	var score *match.Score
	if req.HomeScore != nil && req.AwayScore != nil {
		score = &match.Score{Home: *req.HomeScore, Away: *req.AwayScore}
	}
	h.runManualAction(w, r.WithContext(ctx), "finish match", score, h.matchAdminService.MarkFinished)
}

func (h *Handler) ForceMatchLive(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ForceMatchLive")
	defer span.End()

	h.runManualAction(w, r.WithContext(ctx), "force match live", nil, h.matchAdminService.ForceLive)
}

type manualAction func(ctx context.Context, input usecase.ManualActionInput) (usecase.ManualActionResult, error)

func (h *Handler) runManualAction(
	w http.ResponseWriter,
	r *http.Request,
	name string,
	score *match.Score,
	action manualAction,
) {
	ctx := r.Context()
	annotateRoute(ctx, r)
	userID, err := requirePrincipalID(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	input := usecase.ManualActionInput{
		ActorUserID: userID,
		GroupID:     strings.TrimSpace(r.PathValue("groupID")),
		MatchID:     strings.TrimSpace(r.PathValue("matchID")),
		Score:       score,
	}
	result, err := action(ctx, input)
	if err != nil {
		h.logger.WarnContext(ctx, name+" failed",
			"user_id", userID,
			"group_id", input.GroupID,
			"match_id", input.MatchID,
			"error", err,
		)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, manualActionDTO{
		Match:      matchToDTO(result.Match),
		Settlement: result.Settlement,
	})
}
