package httpapi

import (
	"context"
	"fmt"
	"strings"

	"github.com/riskibarqy/predictor-league/internal/domain/user"
	"github.com/riskibarqy/predictor-league/internal/usecase"
)

type principalKey struct{}

func withPrincipal(ctx context.Context, p user.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// principalFromContext ignores principals without a user id; every wager and
// manual match action is keyed on it.
func principalFromContext(ctx context.Context) (user.Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(user.Principal)
	if !ok || strings.TrimSpace(p.UserID) == "" {
		return user.Principal{}, false
	}
	return p, true
}

func requirePrincipalID(ctx context.Context) (string, error) {
	principal, ok := principalFromContext(ctx)
	if !ok {
		return "", fmt.Errorf("%w: principal is missing from request context", usecase.ErrUnauthorized)
	}
	return principal.UserID, nil
}
