package httpapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	sonic "github.com/bytedance/sonic"
	"github.com/go-playground/validator/v10"
	"github.com/riskibarqy/predictor-league/internal/domain/jobscheduler"
	"github.com/riskibarqy/predictor-league/internal/platform/logging"
	"github.com/riskibarqy/predictor-league/internal/usecase"
)

type Handler struct {
	wagerService      *usecase.WagerService
	groupService      *usecase.GroupService
	matchService      *usecase.MatchService
	matchAdminService *usecase.MatchAdminService
	jobOrchestrator   *usecase.JobOrchestratorService
	jobRunRepo        jobscheduler.Repository
	logger            *logging.Logger
	validator         *validator.Validate
}

func NewHandler(
	wagerService *usecase.WagerService,
	groupService *usecase.GroupService,
	matchService *usecase.MatchService,
	matchAdminService *usecase.MatchAdminService,
	jobOrchestrator *usecase.JobOrchestratorService,
	jobRunRepo jobscheduler.Repository,
	logger *logging.Logger,
) *Handler {
	if logger == nil {
		logger = logging.Default()
	}

	return &Handler{
		wagerService:      wagerService,
		groupService:      groupService,
		matchService:      matchService,
		matchAdminService: matchAdminService,
		jobOrchestrator:   jobOrchestrator,
		jobRunRepo:        jobRunRepo,
		logger:            logger,
		validator:         validator.New(),
	}
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.Healthz")
	defer span.End()

	writeSuccess(ctx, w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) validateRequest(ctx context.Context, payload any) error {
	ctx, span := startSpan(ctx, "httpapi.Handler.validateRequest")
	defer span.End()

	if err := h.validator.StructCtx(ctx, payload); err != nil {
		return fmt.Errorf("%w: validation failed: %v", usecase.ErrInvalidInput, err)
	}

	return nil
}

// decodeJSON reads a strict JSON body into target. An empty body is accepted when
// allowEmpty is set.
func decodeJSON(r *http.Request, target any, allowEmpty bool) error {
	decoder := sonic.ConfigDefault.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(target); err != nil {
		if allowEmpty && errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("%w: invalid JSON payload: %v", usecase.ErrInvalidInput, err)
	}
	return nil
}
