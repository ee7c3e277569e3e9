package balldontlie

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"

	"github.com/riskibarqy/card-arena/internal/domain/arena"
	"github.com/riskibarqy/card-arena/internal/platform/logging"
	"github.com/riskibarqy/card-arena/internal/platform/resilience"
	"github.com/riskibarqy/card-arena/internal/usecase"
)

const (
	defaultBaseURL = "https://api.balldontlie.io/v1"
	pageSize       = 100
	maxPages       = 20
)

var digitsRegex = regexp.MustCompile(`\d+`)
var errBallDontLieTransient = crerr.New("balldontlie transient failure")

type ClientConfig struct {
	HTTPClient     *http.Client
	BaseURL        string
	Token          string
	Timeout        time.Duration
	MaxRetries     int
	Logger         *logging.Logger
	CircuitBreaker resilience.CircuitBreakerConfig
}

// Client reads NBA box scores and schedules from the balldontlie API.
// Upstream failures degrade to empty results so settlement can fall back
// to its conservative no-stats path instead of blocking the whole batch.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	token          string
	maxRetries     int
	logger         *logging.Logger
	breaker        *resilience.CircuitBreaker
	circuitEnabled bool
	flight         resilience.SingleFlight
	now            func() time.Time
}

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if httpClient.Timeout <= 0 {
		httpClient.Timeout = 20 * time.Second
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	breakerCfg := resilience.NormalizeCircuitBreakerConfig(cfg.CircuitBreaker)

	return &Client{
		httpClient:     httpClient,
		baseURL:        baseURL,
		token:          strings.TrimSpace(cfg.Token),
		maxRetries:     max(cfg.MaxRetries, 0),
		logger:         logger,
		breaker:        resilience.NewCircuitBreaker(breakerCfg.FailureThreshold, breakerCfg.OpenTimeout, breakerCfg.HalfOpenMaxReq),
		circuitEnabled: breakerCfg.Enabled,
		now:            time.Now,
	}
}

type metaEnvelope struct {
	NextCursor *int64 `json:"next_cursor"`
	PerPage    int    `json:"per_page"`
}

type statsEnvelope struct {
	Data []statRow    `json:"data"`
	Meta metaEnvelope `json:"meta"`
}

type statRow struct {
	Pts  int     `json:"pts"`
	Reb  int     `json:"reb"`
	Ast  int     `json:"ast"`
	Stl  int     `json:"stl"`
	Blk  int     `json:"blk"`
	Game gameRow `json:"game"`
}

type gamesEnvelope struct {
	Data []gameRow    `json:"data"`
	Meta metaEnvelope `json:"meta"`
}

type gameRow struct {
	ID     int64  `json:"id"`
	Date   string `json:"date"`
	Status string `json:"status"`
}

// FetchPlayerGameLog returns the player's box-score lines inside the
// window, one entry per game, already keyed by canonical day.
func (c *Client) FetchPlayerGameLog(ctx context.Context, playerRef string, window arena.Window) ([]arena.GameLog, error) {
	playerID, err := parseRefID(playerRef)
	if err != nil {
		return nil, fmt.Errorf("player ref %q: %w", playerRef, err)
	}

	logs := make([]arena.GameLog, 0, 8)
	var cursor *int64
	for page := 0; page < maxPages; page++ {
		values := url.Values{}
		values.Set("player_ids[]", strconv.FormatInt(playerID, 10))
		values.Set("start_date", window.StartDate)
		values.Set("end_date", window.EndDate)
		values.Set("per_page", strconv.Itoa(pageSize))
		if cursor != nil {
			values.Set("cursor", strconv.FormatInt(*cursor, 10))
		}

		var envelope statsEnvelope
		if err := c.doJSON(ctx, "/stats", values, &envelope); err != nil {
			if isContextError(err) {
				return nil, err
			}
			c.logger.WarnContext(ctx, "balldontlie stats fetch degraded to empty",
				"player_ref", playerRef, "error", err)
			return []arena.GameLog{}, nil
		}

		for _, row := range envelope.Data {
			day, ok := normalizeProviderDate(row.Game.Date)
			if !ok {
				continue
			}
			logs = append(logs, arena.GameLog{
				GameDate: day,
				Stats: map[arena.StatCategory]int{
					arena.CategoryPoints:   row.Pts,
					arena.CategoryRebounds: row.Reb,
					arena.CategoryAssists:  row.Ast,
					arena.CategorySteals:   row.Stl,
					arena.CategoryBlocks:   row.Blk,
				},
			})
		}

		if envelope.Meta.NextCursor == nil {
			break
		}
		cursor = envelope.Meta.NextCursor
	}

	return logs, nil
}

// FetchTeamSchedule returns the team's games for the current season with
// their completion status.
func (c *Client) FetchTeamSchedule(ctx context.Context, teamRef string) ([]arena.TeamGame, error) {
	teamID, err := parseRefID(teamRef)
	if err != nil {
		return nil, fmt.Errorf("team ref %q: %w", teamRef, err)
	}

	games := make([]arena.TeamGame, 0, 82)
	var cursor *int64
	for page := 0; page < maxPages; page++ {
		values := url.Values{}
		values.Set("team_ids[]", strconv.FormatInt(teamID, 10))
		values.Set("seasons[]", strconv.Itoa(currentSeasonYear(c.now())))
		values.Set("per_page", strconv.Itoa(pageSize))
		if cursor != nil {
			values.Set("cursor", strconv.FormatInt(*cursor, 10))
		}

		var envelope gamesEnvelope
		if err := c.doJSON(ctx, "/games", values, &envelope); err != nil {
			if isContextError(err) {
				return nil, err
			}
			c.logger.WarnContext(ctx, "balldontlie schedule fetch degraded to empty",
				"team_ref", teamRef, "error", err)
			return []arena.TeamGame{}, nil
		}

		for _, row := range envelope.Data {
			day, ok := normalizeProviderDate(row.Date)
			if !ok {
				continue
			}
			games = append(games, arena.TeamGame{
				GameDate: day,
				Final:    strings.EqualFold(strings.TrimSpace(row.Status), "Final"),
			})
		}

		if envelope.Meta.NextCursor == nil {
			break
		}
		cursor = envelope.Meta.NextCursor
	}

	return games, nil
}

func (c *Client) doJSON(ctx context.Context, path string, values url.Values, target any) error {
	if c.circuitEnabled {
		if err := c.breaker.Allow(); err != nil {
			c.logger.WarnContext(ctx, "balldontlie circuit breaker rejected request", "state", c.breaker.State())
			return fmt.Errorf("%w: stat provider is temporarily unavailable", usecase.ErrDependencyUnavailable)
		}
	}

	fullURL := c.baseURL + path
	if encoded := values.Encode(); encoded != "" {
		fullURL += "?" + encoded
	}

	key := path + "?" + values.Encode()
	out, err, _ := c.flight.Do(key, func() (any, error) {
		raw, reqErr := c.executeRequest(ctx, fullURL)
		if c.circuitEnabled {
			if reqErr != nil && crerr.Is(reqErr, errBallDontLieTransient) {
				c.breaker.RecordFailure()
			} else {
				c.breaker.RecordSuccess()
			}
		}
		return raw, reqErr
	})
	if err != nil {
		return err
	}

	raw, ok := out.([]byte)
	if !ok {
		return fmt.Errorf("unexpected response payload type %T", out)
	}
	if err := sonic.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("decode provider payload: %w", err)
	}

	return nil
}

func (c *Client) executeRequest(ctx context.Context, fullURL string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		if c.token != "" {
			req.Header.Set("Authorization", c.token)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("%w: send request: %s", errBallDontLieTransient, sanitizeSensitiveText(err.Error(), c.token))
		} else {
			raw, readErr := io.ReadAll(io.LimitReader(resp.Body, 6<<20))
			_ = resp.Body.Close()
			if readErr != nil {
				lastErr = fmt.Errorf("%w: read response body: %v", errBallDontLieTransient, readErr)
			} else if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				return raw, nil
			} else {
				if isRetryableStatus(resp.StatusCode) {
					lastErr = fmt.Errorf("%w: provider status=%d body=%s", errBallDontLieTransient, resp.StatusCode, abbreviateBody(raw))
				} else {
					return nil, fmt.Errorf("provider status=%d body=%s", resp.StatusCode, abbreviateBody(raw))
				}
			}
		}

		if attempt == c.maxRetries {
			break
		}
		backoff := time.Duration(attempt+1) * time.Second
		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("provider request failed")
	}
	c.logger.WarnContext(ctx, "balldontlie request failed", "url", fullURL, "error", lastErr)
	return nil, lastErr
}

func isRetryableStatus(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

func isContextError(err error) bool {
	return stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded)
}

func sanitizeSensitiveText(value, token string) string {
	value = strings.TrimSpace(value)
	if value == "" || token == "" {
		return value
	}
	return strings.ReplaceAll(value, token, "REDACTED")
}

func abbreviateBody(body []byte) string {
	text := strings.TrimSpace(string(body))
	text = strings.ReplaceAll(text, "\n", " ")
	const limit = 240
	if len(text) > limit {
		return text[:limit] + "..."
	}
	return text
}

// parseRefID extracts the provider's numeric id from an opaque ref such
// as "nba:237" or a bare "237".
func parseRefID(ref string) (int64, error) {
	match := digitsRegex.FindString(ref)
	if match == "" {
		return 0, fmt.Errorf("no numeric provider id")
	}
	id, err := strconv.ParseInt(match, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid provider id %q", match)
	}
	return id, nil
}

// normalizeProviderDate accepts both the plain day and RFC3339 forms the
// provider has shipped over time.
func normalizeProviderDate(value string) (string, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", false
	}
	if parsed, err := arena.ParseDay(value); err == nil {
		return arena.NormalizeDay(parsed), true
	}
	if parsed, err := time.Parse(time.RFC3339, value); err == nil {
		return arena.NormalizeDay(parsed), true
	}
	return "", false
}

// NBA seasons span the year boundary; balldontlie keys them by the year
// the season tips off.
func currentSeasonYear(now time.Time) int {
	year := now.UTC().Year()
	if now.UTC().Month() < time.August {
		return year - 1
	}
	return year
}
