package httpapi

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/riskibarqy/predictor-league/internal/domain/jobscheduler"
	"github.com/riskibarqy/predictor-league/internal/usecase"
)

func (h *Handler) RunFastPollJob(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RunFastPollJob")
	defer span.End()

	if h.jobOrchestrator == nil {
		writeError(ctx, w, fmt.Errorf("%w: job orchestrator is not configured", usecase.ErrDependencyUnavailable))
		return
	}

	var req internalJobRequest
	if err := decodeJSON(r, &req, true); err != nil {
		writeError(ctx, w, err)
		return
	}

	result, err := h.jobOrchestrator.RunFastPoll(ctx, req.input())
	if err != nil {
		h.logger.WarnContext(ctx, "run fast poll job failed", "dispatch_id", req.DispatchID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, result)
}

func (h *Handler) RunRecoverySweepJob(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RunRecoverySweepJob")
	defer span.End()

	if h.jobOrchestrator == nil {
		writeError(ctx, w, fmt.Errorf("%w: job orchestrator is not configured", usecase.ErrDependencyUnavailable))
		return
	}

	var req internalJobRequest
	if err := decodeJSON(r, &req, true); err != nil {
		writeError(ctx, w, err)
		return
	}

	result, err := h.jobOrchestrator.RunRecoverySweep(ctx, req.input())
	if err != nil {
		h.logger.WarnContext(ctx, "run recovery sweep job failed", "dispatch_id", req.DispatchID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, result)
}

func (h *Handler) RunBootstrapJob(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RunBootstrapJob")
	defer span.End()

	if h.jobOrchestrator == nil {
		writeError(ctx, w, fmt.Errorf("%w: job orchestrator is not configured", usecase.ErrDependencyUnavailable))
		return
	}

	result, err := h.jobOrchestrator.Bootstrap(ctx)
	if err != nil {
		h.logger.WarnContext(ctx, "run bootstrap job failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, result)
}

func (h *Handler) ListJobRuns(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListJobRuns")
	defer span.End()

	if h.jobRunRepo == nil {
		writeError(ctx, w, fmt.Errorf("%w: job run repository is not configured", usecase.ErrDependencyUnavailable))
		return
	}

	jobName := strings.TrimSpace(r.URL.Query().Get("job"))
	limit := 50
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > 500 {
			writeError(ctx, w, fmt.Errorf("%w: limit must be between 1 and 500", usecase.ErrInvalidInput))
			return
		}
		limit = parsed
	}

	events, err := h.jobRunRepo.ListRecent(ctx, jobName, limit)
	if err != nil {
		h.logger.WarnContext(ctx, "list job runs failed", "job", jobName, "error", err)
		writeError(ctx, w, err)
		return
	}

	items := make([]jobRunDTO, 0, len(events))
	for _, event := range events {
		items = append(items, jobRunToDTO(event))
	}
	writeSuccess(ctx, w, http.StatusOK, items)
}

type internalJobRequest struct {
	DispatchID string `json:"dispatch_id"`
	Chain      bool   `json:"chain"`
}

func (r internalJobRequest) input() usecase.JobInput {
	return usecase.JobInput{
		DispatchID: strings.TrimSpace(r.DispatchID),
		Chain:      r.Chain,
	}
}

type jobRunDTO struct {
	RunID        string         `json:"run_id"`
	JobName      string         `json:"job_name"`
	Status       string         `json:"status"`
	Scoped       int            `json:"scoped"`
	Applied      int            `json:"applied"`
	Finished     int            `json:"finished"`
	Settled      int            `json:"settled"`
	Failed       int            `json:"failed"`
	Payload      map[string]any `json:"payload,omitempty"`
	ErrorMessage string         `json:"error_message,omitempty"`
	OccurredAt   string         `json:"occurred_at"`
	TraceID      string         `json:"trace_id,omitempty"`
}

func jobRunToDTO(event jobscheduler.RunEvent) jobRunDTO {
	return jobRunDTO{
		RunID:        event.RunID,
		JobName:      event.JobName,
		Status:       string(event.Status),
		Scoped:       event.Scoped,
		Applied:      event.Applied,
		Finished:     event.Finished,
		Settled:      event.Settled,
		Failed:       event.Failed,
		Payload:      event.Payload,
		ErrorMessage: event.ErrorMessage,
		OccurredAt:   formatTime(event.OccurredAt),
		TraceID:      event.TraceID,
	}
}
