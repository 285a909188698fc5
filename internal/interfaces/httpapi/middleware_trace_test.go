package httpapi

import "testing"

func TestShouldTraceRequest(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{path: "/healthz", want: false},
		{path: " /readyz ", want: false},
		{path: "/docs/", want: false},
		{path: "/openapi.yaml", want: false},
		{path: "/v1/groups/grp-credit-demo/matches/mat-demo-3/finish", want: true},
		{path: "/v1/groups/grp-flat-demo/standings", want: true},
		{path: "/v1/internal/jobs/poll", want: true},
		{path: "/", want: true},
	}

	for _, tt := range tests {
		if got := shouldTraceRequest(tt.path); got != tt.want {
			t.Fatalf("shouldTraceRequest(%q)=%v want=%v", tt.path, got, tt.want)
		}
	}
}
