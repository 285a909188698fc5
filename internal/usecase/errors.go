package usecase

import (
	"errors"

	"github.com/riskibarqy/predictor-league/internal/domain/group"
	"github.com/riskibarqy/predictor-league/internal/domain/match"
)

var (
	ErrInvalidInput          = errors.New("invalid input")
	ErrNotFound              = errors.New("resource not found")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrForbidden             = errors.New("forbidden")
	ErrConflict              = errors.New("conflict")
	ErrDependencyUnavailable = errors.New("dependency unavailable")

	ErrAutomaticGroup      = errors.New("group matches are managed automatically")
	ErrWagerClosed         = errors.New("wagers are closed for this match")
	ErrMatchFinished       = match.ErrMatchFinished
	ErrInsufficientBalance = group.ErrInsufficientBalance
)
