package anubis

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/predictor-league/internal/domain/user"
	"github.com/riskibarqy/predictor-league/internal/platform/cache"
	"github.com/riskibarqy/predictor-league/internal/platform/logging"
	"github.com/riskibarqy/predictor-league/internal/platform/resilience"
	"github.com/riskibarqy/predictor-league/internal/usecase"
)

const (
	principalCacheTTL     = 30 * time.Second
	accountCacheTTL       = 5 * time.Minute
	principalCacheEntries = 10_000
)

var errAnubisTransient = crerr.New("anubis transient failure")

type CircuitBreakerConfig = resilience.CircuitBreakerConfig

func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return resilience.DefaultCircuitBreakerConfig()
}

// Client verifies access tokens and looks up accounts against the Anubis identity service.
type Client struct {
	httpClient    *http.Client
	baseURL       string
	introspectURL string
	adminKey      string
	logger        *logging.Logger
	breaker       *resilience.CircuitBreaker
	principals    *cache.Store[user.Principal]
	accounts      *cache.Store[bool]
}

var _ usecase.IdentityProvider = (*Client)(nil)

func NewClient(
	httpClient *http.Client,
	baseURL string,
	introspectPath string,
	adminKey string,
	breakerCfg CircuitBreakerConfig,
	logger *logging.Logger,
) *Client {
	if logger == nil {
		logger = logging.Default()
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 3 * time.Second}
	}

	return &Client{
		httpClient:    httpClient,
		baseURL:       strings.TrimSuffix(strings.TrimSpace(baseURL), "/"),
		introspectURL: buildURL(baseURL, introspectPath),
		adminKey:      strings.TrimSpace(adminKey),
		logger:        logger,
		breaker:       resilience.NewCircuitBreaker(breakerCfg),
		principals:    cache.NewStore[user.Principal](principalCacheTTL).WithMaxEntries(principalCacheEntries),
		accounts:      cache.NewStore[bool](accountCacheTTL).WithMaxEntries(principalCacheEntries),
	}
}

func (c *Client) VerifyAccessToken(ctx context.Context, token string) (user.Principal, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return user.Principal{}, fmt.Errorf("%w: token is required", usecase.ErrUnauthorized)
	}

	return c.principals.GetOrLoad(ctx, hashToken(token), func(ctx context.Context) (user.Principal, error) {
		return c.introspect(ctx, token)
	})
}

// AccountExists reports whether the user id is a known account. Positive and negative
// answers are both cached.
func (c *Client) AccountExists(ctx context.Context, userID string) (bool, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return false, nil
	}

	return c.accounts.GetOrLoad(ctx, userID, func(ctx context.Context) (bool, error) {
		status, _, err := c.do(ctx, http.MethodGet, c.baseURL+userPath(userID), nil)
		if err != nil {
			return false, err
		}
		switch status {
		case http.StatusOK:
			return true, nil
		case http.StatusNotFound:
			return false, nil
		default:
			return false, fmt.Errorf("%w: anubis account lookup status %d", usecase.ErrDependencyUnavailable, status)
		}
	})
}

func (c *Client) introspect(ctx context.Context, token string) (user.Principal, error) {
	encoded, err := sonic.Marshal(introspectRequest{Token: token})
	if err != nil {
		return user.Principal{}, fmt.Errorf("marshal introspect request: %w", err)
	}

	status, body, err := c.do(ctx, http.MethodPost, c.introspectURL, encoded)
	if err != nil {
		return user.Principal{}, err
	}
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		// Anubis answers 401/403 when our admin key is rejected, not when the token is.
		c.logger.ErrorContext(ctx, "anubis rejected admin key", "status_code", status)
		return user.Principal{}, fmt.Errorf("%w: anubis rejected introspection with status %d", usecase.ErrDependencyUnavailable, status)
	case status != http.StatusOK:
		c.logger.WarnContext(ctx, "anubis introspection non-200", "status_code", status)
		return user.Principal{}, fmt.Errorf("%w: anubis introspection failed with status %d", usecase.ErrDependencyUnavailable, status)
	}

	var decoded introspectResponse
	if err := sonic.Unmarshal(body, &decoded); err != nil {
		return user.Principal{}, fmt.Errorf("unmarshal introspect response: %w", err)
	}
	if !decoded.Active {
		return user.Principal{}, fmt.Errorf("%w: inactive token", usecase.ErrUnauthorized)
	}
	if strings.TrimSpace(decoded.UserID) == "" {
		return user.Principal{}, fmt.Errorf("%w: invalid introspect response: user_id is empty", usecase.ErrUnauthorized)
	}

	return user.Principal{
		UserID: decoded.UserID,
		Email:  decoded.Email,
	}, nil
}

func (c *Client) do(ctx context.Context, method, fullURL string, payload []byte) (int, []byte, error) {
	if err := c.breaker.Allow(); err != nil {
		c.logger.WarnContext(ctx, "anubis circuit breaker rejected request", "state", c.breaker.State())
		return 0, nil, fmt.Errorf("%w: identity provider is temporarily unavailable", usecase.ErrDependencyUnavailable)
	}

	status, body, err := c.send(ctx, method, fullURL, payload)
	c.breaker.Record(err, isCircuitFailure)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %v", usecase.ErrDependencyUnavailable, err)
	}
	return status, body, nil
}

func (c *Client) send(ctx context.Context, method, fullURL string, payload []byte) (int, []byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, fullURL, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("create anubis request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.adminKey != "" {
		req.Header.Set("x-admin-key", c.adminKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, crerr.Wrapf(errAnubisTransient, "request anubis: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return 0, nil, crerr.Wrapf(errAnubisTransient, "read anubis response: %v", err)
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		return 0, nil, crerr.Wrapf(errAnubisTransient, "anubis status %d", resp.StatusCode)
	}
	return resp.StatusCode, body, nil
}

type introspectRequest struct {
	Token string `json:"token"`
}

type introspectResponse struct {
	Active bool   `json:"active"`
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}
