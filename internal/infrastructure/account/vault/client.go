package vault

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/valyala/bytebufferpool"

	"github.com/riskibarqy/card-arena/internal/domain/ledger"
	"github.com/riskibarqy/card-arena/internal/domain/user"
	"github.com/riskibarqy/card-arena/internal/platform/resilience"
	"github.com/riskibarqy/card-arena/internal/usecase"
)

var errVaultTransient = crerr.New("vault transient failure")

const maxResponseBytes = 1 << 20

// ClientConfig configures the vault account-service client. Vault owns
// user identity, unit balances, and the player card collection, so this
// one client backs token verification, escrow holds, and card ownership
// checks.
type ClientConfig struct {
	HTTPClient     *http.Client
	BaseURL        string
	IntrospectPath string
	ServiceToken   string
	Timeout        time.Duration
	Logger         *slog.Logger
	CircuitBreaker resilience.CircuitBreakerConfig
}

type Client struct {
	httpClient     *http.Client
	baseURL        string
	introspectPath string
	serviceToken   string
	logger         *slog.Logger
	breaker        *resilience.CircuitBreaker
	circuitEnabled bool
}

func NewClient(cfg ClientConfig) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	introspectPath := strings.TrimSpace(cfg.IntrospectPath)
	if introspectPath == "" {
		introspectPath = "/v1/auth/introspect"
	}

	breakerCfg := resilience.NormalizeCircuitBreakerConfig(cfg.CircuitBreaker)

	return &Client{
		httpClient:     httpClient,
		baseURL:        strings.TrimSuffix(strings.TrimSpace(cfg.BaseURL), "/"),
		introspectPath: introspectPath,
		serviceToken:   strings.TrimSpace(cfg.ServiceToken),
		logger:         logger,
		breaker:        resilience.NewCircuitBreaker(breakerCfg.FailureThreshold, breakerCfg.OpenTimeout, breakerCfg.HalfOpenMaxReq),
		circuitEnabled: breakerCfg.Enabled,
	}
}

type introspectRequest struct {
	Token string `json:"token"`
}

type introspectResponse struct {
	Active   bool   `json:"active"`
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

func (c *Client) VerifyAccessToken(ctx context.Context, token string) (user.Principal, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return user.Principal{}, fmt.Errorf("%w: token is required", usecase.ErrUnauthorized)
	}

	var decoded introspectResponse
	if err := c.postJSON(ctx, c.introspectPath, introspectRequest{Token: token}, &decoded); err != nil {
		return user.Principal{}, err
	}

	if !decoded.Active {
		return user.Principal{}, fmt.Errorf("%w: inactive token", usecase.ErrUnauthorized)
	}
	if strings.TrimSpace(decoded.UserID) == "" {
		return user.Principal{}, fmt.Errorf("invalid introspect response: user_id is empty")
	}

	return user.Principal{
		UserID:   decoded.UserID,
		Username: decoded.Username,
		Email:    decoded.Email,
	}, nil
}

type holdRequest struct {
	UserID    string `json:"user_id"`
	Amount    int64  `json:"amount"`
	Reference string `json:"reference"`
}

type holdResponse struct {
	HoldID string `json:"hold_id"`
}

// Hold escrows amount units from the user's balance and returns the hold
// id. Vault deduplicates by reference, so retrying a failed call with the
// same reference cannot double-debit.
func (c *Client) Hold(ctx context.Context, userID string, amount int64, reference string) (string, error) {
	var decoded holdResponse
	err := c.postJSON(ctx, "/v1/holds", holdRequest{
		UserID:    userID,
		Amount:    amount,
		Reference: reference,
	}, &decoded)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(decoded.HoldID) == "" {
		return "", fmt.Errorf("invalid hold response: hold_id is empty")
	}

	return decoded.HoldID, nil
}

func (c *Client) Release(ctx context.Context, holdID string) error {
	holdID = strings.TrimSpace(holdID)
	if holdID == "" {
		return fmt.Errorf("%w: hold id is required", ledger.ErrHoldNotFound)
	}

	return c.postJSON(ctx, "/v1/holds/"+holdID+"/release", struct{}{}, nil)
}

type captureRequest struct {
	ToUserID string `json:"to_user_id"`
}

func (c *Client) Capture(ctx context.Context, holdID, toUserID string) error {
	holdID = strings.TrimSpace(holdID)
	if holdID == "" {
		return fmt.Errorf("%w: hold id is required", ledger.ErrHoldNotFound)
	}

	return c.postJSON(ctx, "/v1/holds/"+holdID+"/capture", captureRequest{ToUserID: toUserID}, nil)
}

type cardCheckRequest struct {
	UserID     string   `json:"user_id"`
	PlayerRefs []string `json:"player_refs"`
}

type cardCheckResponse struct {
	Missing []string `json:"missing"`
}

func (c *Client) MissingCards(ctx context.Context, userID string, playerRefs []string) ([]string, error) {
	var decoded cardCheckResponse
	err := c.postJSON(ctx, "/v1/cards/check", cardCheckRequest{
		UserID:     userID,
		PlayerRefs: playerRefs,
	}, &decoded)
	if err != nil {
		return nil, err
	}

	return decoded.Missing, nil
}

func (c *Client) postJSON(ctx context.Context, path string, payload, out any) error {
	if c.circuitEnabled {
		if err := c.breaker.Allow(); err != nil {
			c.logger.WarnContext(ctx, "vault circuit breaker rejected request",
				"path", path, "state", c.breaker.State())
			return fmt.Errorf("%w: vault circuit open", usecase.ErrDependencyUnavailable)
		}
	}

	err := c.doPostJSON(ctx, path, payload, out)
	if c.circuitEnabled {
		if err != nil && crerr.Is(err, errVaultTransient) {
			c.breaker.RecordFailure()
		} else {
			c.breaker.RecordSuccess()
		}
	}

	return err
}

func (c *Client) doPostJSON(ctx context.Context, path string, payload, out any) error {
	encoded, err := sonic.Marshal(payload)
	if err != nil {
		return crerr.Wrap(err, "marshal vault request")
	}

	requestURL := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, requestURL, bytes.NewReader(encoded))
	if err != nil {
		return crerr.Wrap(err, "create vault request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.serviceToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.serviceToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return crerr.Mark(crerr.Wrap(err, "request vault"), errVaultTransient)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return crerr.Wrap(err, "read vault response")
	}

	if err := c.mapStatus(ctx, resp.StatusCode, path, body); err != nil {
		return err
	}

	if out == nil || len(body) == 0 {
		return nil
	}
	if err := sonic.Unmarshal(body, out); err != nil {
		return crerr.Wrapf(err, "unmarshal vault response from %s", path)
	}

	return nil
}

func (c *Client) mapStatus(ctx context.Context, status int, path string, body []byte) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%w: vault denied request", usecase.ErrUnauthorized)
	case status == http.StatusPaymentRequired || status == http.StatusUnprocessableEntity:
		return fmt.Errorf("%w: %s", ledger.ErrInsufficientBalance, abbreviateBody(body))
	case status == http.StatusNotFound:
		return fmt.Errorf("%w: %s", ledger.ErrHoldNotFound, path)
	case status == http.StatusTooManyRequests || status >= 500:
		c.logger.WarnContext(ctx, "vault transient failure",
			"path", path, "status_code", status, "body", abbreviateBody(body))
		return crerr.Mark(crerr.Newf("vault returned status %d", status), errVaultTransient)
	default:
		return fmt.Errorf("vault returned status %d: %s", status, abbreviateBody(body))
	}
}

func abbreviateBody(body []byte) string {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	const limit = 240
	for _, r := range string(body) {
		if r == '\n' || r == '\r' {
			r = ' '
		}
		_, _ = buf.WriteString(string(r))
		if buf.Len() >= limit {
			_, _ = buf.WriteString("...")
			break
		}
	}

	return strings.TrimSpace(buf.String())
}
