package httpapi

import (
	"context"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const handlerSpanPrefix = "httpapi.Handler."

var apiTracer = otel.Tracer("predictor-league/internal/interfaces/httpapi")
var noopSpan = trace.SpanFromContext(context.Background())

// startSpan opens a child span for handlers only. Middleware and response helpers
// share the handler span, and nothing is started without a parent (filtered routes).
func startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	if !trace.SpanFromContext(ctx).SpanContext().IsValid() || !shouldCreateHTTPAPISpan(name) {
		return ctx, noopSpan
	}
	return apiTracer.Start(ctx, name)
}

func shouldCreateHTTPAPISpan(name string) bool {
	return strings.HasPrefix(name, handlerSpanPrefix)
}

// routeAttributes lists the group and match ids of a routed request.
func routeAttributes(r *http.Request) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 2)
	if groupID := strings.TrimSpace(r.PathValue("groupID")); groupID != "" {
		attrs = append(attrs, attribute.String("predictor.group_id", groupID))
	}
	if matchID := strings.TrimSpace(r.PathValue("matchID")); matchID != "" {
		attrs = append(attrs, attribute.String("predictor.match_id", matchID))
	}
	return attrs
}

func annotateRoute(ctx context.Context, r *http.Request) {
	if span := trace.SpanFromContext(ctx); span.IsRecording() {
		span.SetAttributes(routeAttributes(r)...)
	}
}

// markSpanFailed flags the active span for server-side failures only; client
// errors stay unset.
func markSpanFailed(ctx context.Context, status int, err error) {
	if status < http.StatusInternalServerError || err == nil {
		return
	}
	span := trace.SpanFromContext(ctx)
	span.RecordError(err)
	span.SetStatus(codes.Error, http.StatusText(status))
}
