package vault

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bytedance/sonic"

	"github.com/riskibarqy/card-arena/internal/domain/ledger"
	"github.com/riskibarqy/card-arena/internal/platform/resilience"
	"github.com/riskibarqy/card-arena/internal/usecase"
)

func newTestClient(srv *httptest.Server) *Client {
	return NewClient(ClientConfig{
		HTTPClient:   srv.Client(),
		BaseURL:      srv.URL,
		ServiceToken: "service-secret",
		Logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func TestClientVerifyAccessToken(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Fatalf("unexpected method: %s", r.Method)
		}
		if r.URL.Path != "/v1/auth/introspect" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer service-secret" {
			t.Fatalf("unexpected authorization header: %s", got)
		}

		var req map[string]string
		if err := sonic.ConfigDefault.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request body: %v", err)
		}
		if req["token"] != "token-abc" {
			t.Fatalf("unexpected token value: %s", req["token"])
		}

		w.Header().Set("Content-Type", "application/json")
		_ = sonic.ConfigDefault.NewEncoder(w).Encode(map[string]any{
			"active":   true,
			"user_id":  "user-123",
			"username": "hoops_fan",
			"email":    "hoops@example.com",
		})
	}))
	defer srv.Close()

	principal, err := newTestClient(srv).VerifyAccessToken(context.Background(), "token-abc")
	if err != nil {
		t.Fatalf("verify token failed: %v", err)
	}
	if principal.UserID != "user-123" || principal.Username != "hoops_fan" {
		t.Fatalf("unexpected principal: %+v", principal)
	}
}

func TestClientVerifyAccessTokenInactive(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = sonic.ConfigDefault.NewEncoder(w).Encode(map[string]any{"active": false})
	}))
	defer srv.Close()

	_, err := newTestClient(srv).VerifyAccessToken(context.Background(), "token-abc")
	if !errors.Is(err, usecase.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestClientHold(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/holds" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}

		var req map[string]any
		if err := sonic.ConfigDefault.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request body: %v", err)
		}
		if req["user_id"] != "alice" || req["reference"] != "arena:create:m1" {
			t.Fatalf("unexpected hold request: %v", req)
		}

		w.Header().Set("Content-Type", "application/json")
		_ = sonic.ConfigDefault.NewEncoder(w).Encode(map[string]any{"hold_id": "hold-55"})
	}))
	defer srv.Close()

	holdID, err := newTestClient(srv).Hold(context.Background(), "alice", 10, "arena:create:m1")
	if err != nil {
		t.Fatalf("hold failed: %v", err)
	}
	if holdID != "hold-55" {
		t.Fatalf("unexpected hold id: %s", holdID)
	}
}

func TestClientHoldInsufficientBalance(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		_, _ = w.Write([]byte(`{"error":"balance too low"}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv).Hold(context.Background(), "alice", 10, "ref")
	if !errors.Is(err, ledger.ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
}

func TestClientReleaseUnknownHold(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	err := newTestClient(srv).Release(context.Background(), "hold-unknown")
	if !errors.Is(err, ledger.ErrHoldNotFound) {
		t.Fatalf("expected ErrHoldNotFound, got %v", err)
	}
}

func TestClientCapture(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/holds/hold-9/capture" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}

		var req map[string]string
		if err := sonic.ConfigDefault.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request body: %v", err)
		}
		if req["to_user_id"] != "bob" {
			t.Fatalf("unexpected capture target: %v", req)
		}

		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	if err := newTestClient(srv).Capture(context.Background(), "hold-9", "bob"); err != nil {
		t.Fatalf("capture failed: %v", err)
	}
}

func TestClientMissingCards(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/cards/check" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = sonic.ConfigDefault.NewEncoder(w).Encode(map[string]any{"missing": []string{"nba:curry"}})
	}))
	defer srv.Close()

	missing, err := newTestClient(srv).MissingCards(context.Background(), "alice", []string{"nba:curry", "nba:lebron"})
	if err != nil {
		t.Fatalf("missing cards failed: %v", err)
	}
	if len(missing) != 1 || missing[0] != "nba:curry" {
		t.Fatalf("unexpected missing cards: %v", missing)
	}
}

func TestClientCircuitOpensAfterServerErrors(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient(ClientConfig{
		HTTPClient: srv.Client(),
		BaseURL:    srv.URL,
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          true,
			FailureThreshold: 2,
			OpenTimeout:      time.Minute,
			HalfOpenMaxReq:   1,
		},
	})

	for range 2 {
		if err := client.Release(context.Background(), "hold-1"); err == nil {
			t.Fatalf("expected error from 500 response")
		}
	}

	err := client.Release(context.Background(), "hold-1")
	if !errors.Is(err, usecase.ErrDependencyUnavailable) {
		t.Fatalf("expected ErrDependencyUnavailable once the circuit opened, got %v", err)
	}
}
