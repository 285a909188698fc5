package httpapi

import (
	"net/http"
	"strings"

	"github.com/riskibarqy/predictor-league/internal/usecase"
)

func (h *Handler) PlaceWager(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.PlaceWager")
	defer span.End()
	annotateRoute(ctx, r)

	userID, err := requirePrincipalID(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	var req placeWagerRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	groupID := strings.TrimSpace(r.PathValue("groupID"))
	matchID := strings.TrimSpace(r.PathValue("matchID"))
	item, err := h.wagerService.PlaceWager(ctx, usecase.PlaceWagerInput{
		UserID:     userID,
		GroupID:    groupID,
		MatchID:    matchID,
		Prediction: req.Prediction,
		Stake:      req.Stake,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "place wager failed",
			"user_id", userID,
			"group_id", groupID,
			"match_id", matchID,
			"error", err,
		)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, wagerToDTO(item))
}

func (h *Handler) ListMyWagers(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListMyWagers")
	defer span.End()

	userID, err := requirePrincipalID(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	groupID := strings.TrimSpace(r.PathValue("groupID"))
	result, err := h.wagerService.ListMemberWagers(ctx, groupID, userID)
	if err != nil {
		h.logger.WarnContext(ctx, "list member wagers failed", "user_id", userID, "group_id", groupID, "error", err)
		writeError(ctx, w, err)
		return
	}

	items := make([]wagerDTO, 0, len(result.Wagers))
	for _, item := range result.Wagers {
		items = append(items, wagerToDTO(item))
	}
	writeSuccess(ctx, w, http.StatusOK, memberWagersDTO{
		Balance: result.Balance,
		Stats: wagerStatsDTO{
			Won:     result.Stats.Won,
			Lost:    result.Stats.Lost,
			Pending: result.Stats.Pending,
			Void:    result.Stats.Void,
			Points:  result.Stats.Points,
		},
		Wagers: items,
	})
}

func (h *Handler) ListStandings(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListStandings")
	defer span.End()

	userID, err := requirePrincipalID(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	groupID := strings.TrimSpace(r.PathValue("groupID"))
	standings, err := h.groupService.Standings(ctx, groupID, userID)
	if err != nil {
		h.logger.WarnContext(ctx, "list standings failed", "user_id", userID, "group_id", groupID, "error", err)
		writeError(ctx, w, err)
		return
	}

	items := make([]standingDTO, 0, len(standings))
	for _, item := range standings {
		items = append(items, standingDTO{
			Rank:     item.Rank,
			UserID:   item.UserID,
			Points:   item.Points,
			IsCaller: item.IsCaller,
		})
	}
	writeSuccess(ctx, w, http.StatusOK, items)
}

func (h *Handler) ListMyHistory(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListMyHistory")
	defer span.End()

	userID, err := requirePrincipalID(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	groupID := strings.TrimSpace(r.PathValue("groupID"))
	entries, err := h.groupService.History(ctx, groupID, userID)
	if err != nil {
		h.logger.WarnContext(ctx, "list settlement history failed", "user_id", userID, "group_id", groupID, "error", err)
		writeError(ctx, w, err)
		return
	}

	items := make([]ledgerEntryDTO, 0, len(entries))
	for _, entry := range entries {
		items = append(items, ledgerEntryToDTO(entry))
	}
	writeSuccess(ctx, w, http.StatusOK, items)
}
