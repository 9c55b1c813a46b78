package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/yungbote/dossier-backend/internal/platform/ctxutil"
)

func newContextRouter(seen **ctxutil.TraceData, pre ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(pre...)
	r.Use(RequestContext())
	r.GET("/x", func(c *gin.Context) {
		*seen = ctxutil.GetTraceData(c.Request.Context())
		c.Status(http.StatusOK)
	})
	return r
}

func TestRequestContextKeepsClientRequestID(t *testing.T) {
	var seen *ctxutil.TraceData
	r := newContextRouter(&seen)

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("X-Request-Id", "req-42")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if seen == nil || seen.RequestID != "req-42" || seen.TraceID == "" {
		t.Fatalf("trace data not attached: %+v", seen)
	}
	if got := rec.Header().Get("X-Request-Id"); got != "req-42" {
		t.Fatalf("request id header: got=%q", got)
	}
	if rec.Header().Get("X-Trace-Id") != seen.TraceID {
		t.Fatalf("trace id header mismatch")
	}
}

func TestRequestContextReplacesUnusableRequestIDs(t *testing.T) {
	cases := map[string]string{
		"too long":  strings.Repeat("a", maxRequestIDLen+1),
		"control":   "req\x01id",
		"has space": "req id",
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			var seen *ctxutil.TraceData
			r := newContextRouter(&seen)
			req := httptest.NewRequest(http.MethodGet, "/x", nil)
			req.Header.Set("X-Request-Id", raw)
			r.ServeHTTP(httptest.NewRecorder(), req)
			if seen == nil || seen.RequestID == "" || seen.RequestID == raw {
				t.Fatalf("request id not replaced: %+v", seen)
			}
		})
	}
}

func TestRequestContextPrefersActiveSpan(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	startSpan := func(c *gin.Context) {
		ctx, span := tp.Tracer("test").Start(c.Request.Context(), "request")
		defer span.End()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
	var seen *ctxutil.TraceData
	r := newContextRouter(&seen, startSpan)

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("X-Request-Id", "req-7")
	req.Header.Set("X-Trace-Id", "client-trace")
	r.ServeHTTP(httptest.NewRecorder(), req)

	ended := sr.Ended()
	if len(ended) != 1 {
		t.Fatalf("spans: %d", len(ended))
	}
	if seen == nil || seen.TraceID != ended[0].SpanContext().TraceID().String() {
		t.Fatalf("trace id should come from the span: %+v", seen)
	}
	found := false
	for _, kv := range ended[0].Attributes() {
		if string(kv.Key) == "dossier.request_id" && kv.Value.AsString() == "req-7" {
			found = true
		}
	}
	if !found {
		t.Fatalf("request id attribute missing: %v", ended[0].Attributes())
	}
}
