package balldontlie

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/riskibarqy/card-arena/internal/domain/arena"
)

func newTestClient(srv *httptest.Server) *Client {
	return NewClient(ClientConfig{
		HTTPClient: srv.Client(),
		BaseURL:    srv.URL,
		Token:      "test-key",
	})
}

func TestFetchPlayerGameLogPaginates(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/stats" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "test-key" {
			t.Fatalf("unexpected authorization header: %s", got)
		}
		if got := r.URL.Query().Get("player_ids[]"); got != "237" {
			t.Fatalf("unexpected player id: %s", got)
		}
		if got := r.URL.Query().Get("start_date"); got != "2026-01-05" {
			t.Fatalf("unexpected start date: %s", got)
		}

		w.Header().Set("Content-Type", "application/json")
		if calls.Add(1) == 1 {
			_, _ = w.Write([]byte(`{
				"data": [{"pts": 35, "reb": 7, "ast": 5, "stl": 1, "blk": 0,
					"game": {"id": 1, "date": "2026-01-06", "status": "Final"}}],
				"meta": {"next_cursor": 25, "per_page": 100}
			}`))
			return
		}
		if got := r.URL.Query().Get("cursor"); got != "25" {
			t.Fatalf("unexpected cursor: %s", got)
		}
		_, _ = w.Write([]byte(`{
			"data": [{"pts": 12, "reb": 3, "ast": 9, "stl": 2, "blk": 1,
				"game": {"id": 2, "date": "2026-01-09T00:00:00Z", "status": "Final"}}],
			"meta": {"per_page": 100}
		}`))
	}))
	defer srv.Close()

	window := arena.Window{StartDate: "2026-01-05", EndDate: "2026-01-11"}
	logs, err := newTestClient(srv).FetchPlayerGameLog(context.Background(), "nba:237", window)
	if err != nil {
		t.Fatalf("fetch game log failed: %v", err)
	}
	if len(logs) != 2 {
		t.Fatalf("expected 2 logs across pages, got %d", len(logs))
	}
	if logs[0].GameDate != "2026-01-06" || logs[0].Stats[arena.CategoryPoints] != 35 {
		t.Fatalf("unexpected first log: %+v", logs[0])
	}
	if logs[1].GameDate != "2026-01-09" || logs[1].Stats[arena.CategoryAssists] != 9 {
		t.Fatalf("unexpected second log: %+v", logs[1])
	}
}

func TestFetchPlayerGameLogDegradesToEmpty(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	window := arena.Window{StartDate: "2026-01-05", EndDate: "2026-01-11"}
	logs, err := newTestClient(srv).FetchPlayerGameLog(context.Background(), "237", window)
	if err != nil {
		t.Fatalf("degraded fetch must not error, got %v", err)
	}
	if len(logs) != 0 {
		t.Fatalf("expected empty logs, got %d", len(logs))
	}
}

func TestFetchPlayerGameLogPropagatesCancellation(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"data": [], "meta": {}}`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	window := arena.Window{StartDate: "2026-01-05", EndDate: "2026-01-11"}
	if _, err := newTestClient(srv).FetchPlayerGameLog(ctx, "237", window); err == nil {
		t.Fatalf("expected context error to propagate")
	}
}

func TestFetchTeamSchedule(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/games" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("team_ids[]"); got != "14" {
			t.Fatalf("unexpected team id: %s", got)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"data": [
				{"id": 1, "date": "2026-01-06", "status": "Final"},
				{"id": 2, "date": "2026-01-08", "status": "Scheduled"}
			],
			"meta": {"per_page": 100}
		}`))
	}))
	defer srv.Close()

	games, err := newTestClient(srv).FetchTeamSchedule(context.Background(), "nba:14")
	if err != nil {
		t.Fatalf("fetch schedule failed: %v", err)
	}
	if len(games) != 2 {
		t.Fatalf("expected 2 games, got %d", len(games))
	}
	if !games[0].Final || games[0].GameDate != "2026-01-06" {
		t.Fatalf("unexpected first game: %+v", games[0])
	}
	if games[1].Final {
		t.Fatalf("scheduled game must not be final: %+v", games[1])
	}
}

func TestRetryOnServerError(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data": [], "meta": {}}`))
	}))
	defer srv.Close()

	client := NewClient(ClientConfig{
		HTTPClient: srv.Client(),
		BaseURL:    srv.URL,
		MaxRetries: 1,
	})

	window := arena.Window{StartDate: "2026-01-05", EndDate: "2026-01-11"}
	if _, err := client.FetchPlayerGameLog(context.Background(), "237", window); err != nil {
		t.Fatalf("fetch after retry failed: %v", err)
	}
	if got := calls.Load(); got != 2 {
		t.Fatalf("expected 2 attempts, got %d", got)
	}
}

func TestParseRefID(t *testing.T) {
	tests := []struct {
		ref    string
		wantID int64
		wantOK bool
	}{
		{"nba:237", 237, true},
		{"237", 237, true},
		{"player-19", 19, true},
		{"nba:lebron", 0, false},
		{"", 0, false},
	}
	for _, tc := range tests {
		id, err := parseRefID(tc.ref)
		if tc.wantOK && (err != nil || id != tc.wantID) {
			t.Fatalf("parseRefID(%q) = %d, %v; want %d", tc.ref, id, err, tc.wantID)
		}
		if !tc.wantOK && err == nil {
			t.Fatalf("parseRefID(%q) expected error", tc.ref)
		}
	}
}

func TestCurrentSeasonYear(t *testing.T) {
	january := time.Date(2026, time.January, 10, 0, 0, 0, 0, time.UTC)
	if got := currentSeasonYear(january); got != 2025 {
		t.Fatalf("currentSeasonYear(january 2026) = %d, want 2025", got)
	}
	october := time.Date(2026, time.October, 25, 0, 0, 0, 0, time.UTC)
	if got := currentSeasonYear(october); got != 2026 {
		t.Fatalf("currentSeasonYear(october 2026) = %d, want 2026", got)
	}
}
