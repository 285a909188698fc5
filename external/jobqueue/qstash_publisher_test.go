package jobqueue

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/riskibarqy/predictor-league/internal/platform/logging"
	"github.com/riskibarqy/predictor-league/internal/platform/resilience"
	"github.com/riskibarqy/predictor-league/internal/usecase"
)

func TestQStashPublisher_EnqueueSetsUpstashHeaders(t *testing.T) {
	t.Parallel()

	var gotPath, gotBody string
	headers := http.Header{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		headers = r.Header.Clone()
		raw, _ := io.ReadAll(r.Body)
		gotBody = string(raw)
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	publisher, err := NewQStashPublisher(QStashPublisherConfig{
		BaseURL:          server.URL,
		Token:            "qstash-token",
		TargetBaseURL:    "https://predictor.example.com",
		Retries:          3,
		InternalJobToken: "job-token",
		HTTPClient:       server.Client(),
	}, logging.NewNop())
	if err != nil {
		t.Fatalf("new publisher: %v", err)
	}

	err = publisher.Enqueue(context.Background(), usecase.JobPathFastPoll, map[string]any{"chain": true}, 90*time.Second, "fast-poll-global-20260225T042500Z")
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	if want := "/v2/publish/https://predictor.example.com/v1/internal/jobs/poll"; gotPath != want {
		t.Fatalf("unexpected publish path got=%s want=%s", gotPath, want)
	}
	if gotBody != `{"chain":true}` {
		t.Fatalf("unexpected body got=%s", gotBody)
	}
	checks := map[string]string{
		"Authorization":                        "Bearer qstash-token",
		"Upstash-Delay":                        "90s",
		"Upstash-Retries":                      "3",
		"Upstash-Deduplication-Id":             "fast-poll-global-20260225T042500Z",
		"Upstash-Forward-X-Internal-Job-Token": "job-token",
	}
	for key, want := range checks {
		if got := headers.Get(key); got != want {
			t.Fatalf("unexpected header %s got=%q want=%q", key, got, want)
		}
	}
}

func TestQStashPublisher_ServerErrorsOpenBreaker(t *testing.T) {
	t.Parallel()

	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	publisher, err := NewQStashPublisher(QStashPublisherConfig{
		BaseURL:       server.URL,
		TargetBaseURL: "https://predictor.example.com",
		HTTPClient:    server.Client(),
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          true,
			FailureThreshold: 1,
			OpenTimeout:      time.Minute,
			HalfOpenMaxReq:   1,
		},
	}, logging.NewNop())
	if err != nil {
		t.Fatalf("new publisher: %v", err)
	}

	if err := publisher.Enqueue(context.Background(), "/v1/internal/jobs/sweep", nil, 0, ""); err == nil {
		t.Fatalf("expected first enqueue to fail")
	}
	err = publisher.Enqueue(context.Background(), "/v1/internal/jobs/sweep", nil, 0, "")
	if !errors.Is(err, usecase.ErrDependencyUnavailable) {
		t.Fatalf("expected dependency unavailable, got=%v", err)
	}
	if calls != 1 {
		t.Fatalf("unexpected upstream calls got=%d want=1", calls)
	}
}

func TestNewQStashPublisher_RejectsInvalidTarget(t *testing.T) {
	t.Parallel()

	_, err := NewQStashPublisher(QStashPublisherConfig{BaseURL: "https://qstash.upstash.io", TargetBaseURL: "ftp://x"}, logging.NewNop())
	if err == nil || !strings.Contains(err.Error(), "QSTASH_TARGET_BASE_URL") {
		t.Fatalf("expected target url error, got=%v", err)
	}
}

func TestNormalizeDelay(t *testing.T) {
	t.Parallel()

	cases := map[time.Duration]string{
		0:                       "0s",
		-time.Second:            "0s",
		1500 * time.Millisecond: "2s",
		time.Hour:               "3600s",
	}
	for in, want := range cases {
		if got := normalizeDelay(in); got != want {
			t.Fatalf("normalizeDelay(%s) got=%s want=%s", in, got, want)
		}
	}
}
