package wager

import (
	"testing"

	"github.com/riskibarqy/predictor-league/internal/domain/match"
)

func points(v int64) *int64 { return &v }

func TestSummarize(t *testing.T) {
	t.Parallel()

	wagers := []Wager{
		{MatchID: "m-1", Settled: true, Points: points(23)},
		{MatchID: "m-1", Settled: true, Points: points(0)},
		{MatchID: "m-2"},
		{MatchID: "m-3"},
	}
	statuses := map[string]match.Status{
		"m-1": match.StatusFinished,
		"m-2": match.StatusLive,
		"m-3": match.StatusCancelled,
	}

	got := Summarize(wagers, statuses)
	want := Stats{Won: 1, Lost: 1, Pending: 1, Void: 1, Points: 23}
	if got != want {
		t.Fatalf("unexpected stats: got=%+v want=%+v", got, want)
	}
}
