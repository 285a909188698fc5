package sportmonks

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/riskibarqy/predictor-league/internal/domain/match"
	"github.com/riskibarqy/predictor-league/internal/platform/resilience"
	"github.com/riskibarqy/predictor-league/internal/usecase"
)

const inplayPayload = `{
  "data": [
    {
      "id": 19135001,
      "starting_at": "2026-03-01 12:00:00",
      "state_id": 3,
      "participants": [
        {"id": 10, "name": "Persija Jakarta", "meta": {"location": "home"}},
        {"id": 20, "name": "Persib Bandung", "meta": {"location": "away"}}
      ],
      "scores": [
        {"participant_id": 10, "description": "1ST_HALF", "score": {"goals": 0}},
        {"participant_id": 20, "description": "1ST_HALF", "score": {"goals": 1}},
        {"participant_id": 10, "description": "CURRENT", "score": {"goals": 2}},
        {"participant_id": 20, "description": "CURRENT", "score": {"goals": 1}}
      ],
      "periods": [
        {"ticking": false, "minutes": 45, "time_added": 2, "sort_order": 1},
        {"ticking": true, "minutes": 67, "time_added": 0, "sort_order": 2}
      ]
    }
  ]
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(ClientConfig{
		BaseURL:      srv.URL,
		Token:        "secret-token",
		Timeout:      2 * time.Second,
		RetryBackoff: time.Millisecond,
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          true,
			FailureThreshold: 2,
			OpenTimeout:      time.Minute,
			HalfOpenMaxReq:   1,
		},
	})
}

func TestClient_ListInProgress(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/livescores/inplay" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.URL.Query().Get("api_token") != "secret-token" {
			t.Errorf("missing api token")
		}
		_, _ = w.Write([]byte(inplayPayload))
	})

	items, err := client.ListInProgress(context.Background())
	if err != nil {
		t.Fatalf("list in progress: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("unexpected item count: got=%d want=1", len(items))
	}
	snap := items[0]
	if snap.Status != match.StatusLive || snap.HomeTeam != "Persija Jakarta" || snap.AwayTeam != "Persib Bandung" {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	if snap.HomeScore == nil || snap.AwayScore == nil || *snap.HomeScore != 2 || *snap.AwayScore != 1 {
		t.Fatalf("expected CURRENT score 2-1, got %v-%v", snap.HomeScore, snap.AwayScore)
	}
	if snap.Telemetry.Elapsed != 67 || snap.Telemetry.ProviderStatusCode != 3 {
		t.Fatalf("unexpected telemetry: %+v", snap.Telemetry)
	}
	want := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	if !snap.KickoffAt.Equal(want) {
		t.Fatalf("unexpected kickoff: got=%s want=%s", snap.KickoffAt, want)
	}
}

func TestClient_GetByIDNotFound(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"No result(s) found"}`))
	})

	_, err := client.GetByID(context.Background(), 42)
	if !errors.Is(err, usecase.ErrFixtureNotFound) {
		t.Fatalf("expected ErrFixtureNotFound, got %v", err)
	}
	if client.breaker.State() != resilience.CircuitStateClosed {
		t.Fatalf("a 404 must not trip the breaker")
	}
}

func TestClient_GetByIDFinished(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/fixtures/77" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"data":{"id":77,"state":{"data":{"id":5,"state":"FT"}},
			"participants":[{"id":1,"name":"A","meta":{"location":"home"}},{"id":2,"name":"B","meta":{"location":"away"}}],
			"scores":[{"participant_id":1,"description":"CURRENT","score":{"goals":2}},{"participant_id":2,"description":"CURRENT","score":{"goals":1}}]}}`))
	})

	snap, err := client.GetByID(context.Background(), 77)
	if err != nil {
		t.Fatalf("get by id: %v", err)
	}
	if snap.Status != match.StatusFinished || !snap.HasScore() {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
}

func TestClient_RetriesThenOpensBreaker(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	})
	client.maxRetries = 1

	for i := 0; i < 2; i++ {
		if _, err := client.ListInProgress(context.Background()); err == nil {
			t.Fatalf("expected provider error on call %d", i)
		}
	}
	if got := calls.Load(); got != 4 {
		t.Fatalf("unexpected attempts: got=%d want=4", got)
	}

	_, err := client.ListInProgress(context.Background())
	if !errors.Is(err, usecase.ErrDependencyUnavailable) {
		t.Fatalf("expected open breaker to reject, got %v", err)
	}
	if got := calls.Load(); got != 4 {
		t.Fatalf("open breaker must not reach provider: got=%d want=4", got)
	}
}

func TestClient_GetOddsPrefersConfiguredBookmaker(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/odds/pre-match/fixtures/77/markets/1") {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"data":[
			{"bookmaker_id":2,"market_id":1,"label":"Home","value":"1.50"},
			{"bookmaker_id":2,"market_id":1,"label":"Draw","value":"3.80"},
			{"bookmaker_id":2,"market_id":1,"label":"Away","value":"6.00"},
			{"bookmaker_id":9,"market_id":1,"label":"1","value":"1.85"},
			{"bookmaker_id":9,"market_id":1,"label":"X","value":"3.40"},
			{"bookmaker_id":9,"market_id":1,"label":"2","value":"4.10"}
		]}`))
	})
	client.bookmakerID = 9

	odds, err := client.GetOdds(context.Background(), 77)
	if err != nil {
		t.Fatalf("get odds: %v", err)
	}
	if odds.Home.String() != "1.85" || odds.Draw.String() != "3.4" || odds.Away.String() != "4.1" {
		t.Fatalf("unexpected odds: home=%s draw=%s away=%s", odds.Home, odds.Draw, odds.Away)
	}
}

func TestClient_GetOddsIncompleteMarket(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"bookmaker_id":2,"market_id":1,"label":"Home","value":"1.50"}]}`))
	})

	if _, err := client.GetOdds(context.Background(), 77); !errors.Is(err, usecase.ErrFixtureNotFound) {
		t.Fatalf("expected ErrFixtureNotFound for incomplete market, got %v", err)
	}
}

func TestMapFixtureStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		stateID int64
		info    string
		want    match.Status
	}{
		{stateID: 1, want: match.StatusScheduled},
		{stateID: 2, want: match.StatusLive},
		{stateID: 5, want: match.StatusFinished},
		{stateID: 14, want: match.StatusFinished},
		{stateID: 10, want: match.StatusPostponed},
		{stateID: 12, want: match.StatusCancelled},
		{info: "Match abandoned", want: match.StatusCancelled},
		{info: "Game ended after penalties", want: match.StatusFinished},
		{info: "", want: match.StatusScheduled},
	}
	for _, tc := range tests {
		if got := mapFixtureStatus(tc.stateID, tc.info); got != tc.want {
			t.Fatalf("mapFixtureStatus(%d,%q)=%s want=%s", tc.stateID, tc.info, got, tc.want)
		}
	}
}

func TestSanitizeSensitiveText(t *testing.T) {
	t.Parallel()

	got := sanitizeSensitiveText(`Get "https://x/fixtures?api_token=abc123&include=state": dial tcp`, "abc123")
	if strings.Contains(got, "abc123") {
		t.Fatalf("token leaked: %s", got)
	}
}
