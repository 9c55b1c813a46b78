package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/yungbote/dossier-backend/internal/platform/logger"
)

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     make(http.Header),
		Body:       io.NopCloser(bytes.NewBufferString(body)),
	}
}

func newTestClient(t *testing.T, fn roundTripperFunc) (*client, *[]time.Duration) {
	t.Helper()
	c, err := NewWithHTTPClient(logger.Nop(), Config{APIKey: "sk-test"}, &http.Client{Transport: fn})
	if err != nil {
		t.Fatalf("NewWithHTTPClient: %v", err)
	}
	impl := c.(*client)
	var slept []time.Duration
	impl.sleep = func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	impl.cfg.EmbedBackoff.Rand = func() float64 { return 0.5 }
	return impl, &slept
}

const embeddingBody = `{"data":[{"index":0,"embedding":[0.25,0.5,0.75]}]}`

func TestEmbedRetriesTransientFailures(t *testing.T) {
	calls := 0
	c, slept := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		calls++
		if calls < 3 {
			return jsonResponse(http.StatusTooManyRequests, `{"error":"rate"}`), nil
		}
		return jsonResponse(http.StatusOK, embeddingBody), nil
	})

	vec, err := c.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vec) != 3 || vec[2] != 0.75 {
		t.Fatalf("unexpected vector: %v", vec)
	}
	if calls != 3 || len(*slept) != 2 {
		t.Fatalf("calls=%d sleeps=%d", calls, len(*slept))
	}
	for _, d := range *slept {
		if d < time.Second || d > 60*time.Second {
			t.Fatalf("backoff out of bounds: %s", d)
		}
	}
}

func TestEmbedHonorsRetryAfter(t *testing.T) {
	calls := 0
	c, slept := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		calls++
		if calls == 1 {
			resp := jsonResponse(http.StatusTooManyRequests, `{"error":"rate"}`)
			resp.Header.Set("Retry-After", "7")
			return resp, nil
		}
		if calls == 2 {
			resp := jsonResponse(http.StatusTooManyRequests, `{"error":"rate"}`)
			resp.Header.Set("Retry-After", "600")
			return resp, nil
		}
		return jsonResponse(http.StatusOK, embeddingBody), nil
	})

	if _, err := c.Embed(context.Background(), "hello"); err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(*slept) != 2 {
		t.Fatalf("sleeps=%d", len(*slept))
	}
	if (*slept)[0] != 7*time.Second {
		t.Fatalf("first wait should follow Retry-After: %s", (*slept)[0])
	}
	if (*slept)[1] != 60*time.Second {
		t.Fatalf("second wait should clamp to backoff max: %s", (*slept)[1])
	}
}

func TestEmbedExhaustsAttempts(t *testing.T) {
	calls := 0
	c, _ := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		calls++
		return jsonResponse(http.StatusServiceUnavailable, `down`), nil
	})

	_, err := c.Embed(context.Background(), "hello")
	var tpe *TransientProviderError
	if !errors.As(err, &tpe) {
		t.Fatalf("want TransientProviderError, got %v", err)
	}
	if tpe.Attempts != 6 || calls != 6 {
		t.Fatalf("attempts=%d calls=%d", tpe.Attempts, calls)
	}
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) || httpErr.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("cause not preserved: %v", err)
	}
}

func TestEmbedDoesNotRetryClientErrors(t *testing.T) {
	calls := 0
	c, _ := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		calls++
		return jsonResponse(http.StatusBadRequest, `bad`), nil
	})
	if _, err := c.Embed(context.Background(), "hello"); err == nil {
		t.Fatalf("expected error")
	}
	if calls != 1 {
		t.Fatalf("calls: want=1 got=%d", calls)
	}
}

func TestChatFailsFast(t *testing.T) {
	calls := 0
	c, _ := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		calls++
		return jsonResponse(http.StatusServiceUnavailable, `down`), nil
	})
	_, err := c.Chat(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	if err == nil || calls != 1 {
		t.Fatalf("err=%v calls=%d", err, calls)
	}
}

func TestChatSendsModelAndMessages(t *testing.T) {
	c, _ := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Fatalf("path: %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Fatalf("authorization: %q", got)
		}
		var body chatRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if body.Model != DefaultModel || len(body.Messages) != 2 || body.Messages[0].Role != RoleSystem {
			t.Fatalf("unexpected body: %+v", body)
		}
		return jsonResponse(http.StatusOK, `{"choices":[{"message":{"role":"assistant","content":"42"}}]}`), nil
	})

	out, err := c.Chat(context.Background(), []Message{
		{Role: RoleSystem, Content: "sys"},
		{Role: RoleUser, Content: "question"},
	})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if out != "42" {
		t.Fatalf("content: %q", out)
	}
}

func TestNewRequiresKeyAndLogger(t *testing.T) {
	if _, err := New(nil, Config{APIKey: "k"}); err == nil {
		t.Fatalf("expected logger error")
	}
	if _, err := New(logger.Nop(), Config{}); err == nil {
		t.Fatalf("expected key error")
	}
}
