package pinecone

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"testing"

	"github.com/yungbote/dossier-backend/internal/platform/logger"
)

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func jsonResponse(t *testing.T, status int, body any) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(bytes.NewReader(raw)),
	}
}

func newTestClient(t *testing.T, rt roundTripperFunc) Client {
	t.Helper()
	c, err := NewWithHTTPClient(logger.Nop(), Config{APIKey: "pc-test"}, &http.Client{Transport: rt})
	if err != nil {
		t.Fatalf("NewWithHTTPClient: %v", err)
	}
	return c
}

func TestQuerySendsHeadersAndFilter(t *testing.T) {
	var captured QueryRequest
	c := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		if r.URL.String() != "https://idx-abc.svc.pinecone.io/query" {
			t.Fatalf("url: got=%s", r.URL.String())
		}
		if r.Header.Get("Api-Key") != "pc-test" {
			t.Fatalf("missing api key header")
		}
		if r.Header.Get("X-Pinecone-Api-Version") != "2025-10" {
			t.Fatalf("api version: got=%q", r.Header.Get("X-Pinecone-Api-Version"))
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode: %v", err)
		}
		return jsonResponse(t, 200, map[string]any{
			"matches": []map[string]any{
				{"id": "doc-1", "score": 0.91, "metadata": map[string]any{"title": "Policy"}},
			},
		}), nil
	})

	resp, err := c.Query(context.Background(), "idx-abc.svc.pinecone.io", QueryRequest{
		Vector:          []float32{0.1, 0.2},
		TopK:            50000,
		Filter:          map[string]any{"type": "document"},
		IncludeMetadata: true,
	})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if captured.TopK != MaxTopKWithMetadata {
		t.Fatalf("topK clamp: want=%d got=%d", MaxTopKWithMetadata, captured.TopK)
	}
	if captured.Filter["type"] != "document" {
		t.Fatalf("filter: got=%v", captured.Filter)
	}
	if len(resp.Matches) != 1 || resp.Matches[0].Metadata["title"] != "Policy" {
		t.Fatalf("matches: %+v", resp.Matches)
	}
}

func TestQueryWithoutMetadataKeepsWideCap(t *testing.T) {
	var captured QueryRequest
	c := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode: %v", err)
		}
		return jsonResponse(t, 200, map[string]any{"matches": []map[string]any{}}), nil
	})
	if _, err := c.Query(context.Background(), "idx-abc.svc.pinecone.io", QueryRequest{
		Vector: []float32{0.1, 0.2},
		TopK:   50000,
	}); err != nil {
		t.Fatalf("Query: %v", err)
	}
	if captured.TopK != MaxTopK {
		t.Fatalf("topK clamp: want=%d got=%d", MaxTopK, captured.TopK)
	}
}

func TestFetchEncodesIDsAndNamespace(t *testing.T) {
	c := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		if r.Method != http.MethodGet || r.URL.Path != "/vectors/fetch" {
			t.Fatalf("request: %s %s", r.Method, r.URL.Path)
		}
		q := r.URL.Query()
		if got := q["ids"]; len(got) != 2 || got[0] != "a" || got[1] != "b" {
			t.Fatalf("ids: %v", got)
		}
		if q.Get("namespace") != "dossier" {
			t.Fatalf("namespace: %q", q.Get("namespace"))
		}
		return jsonResponse(t, 200, map[string]any{
			"vectors": map[string]any{"a": map[string]any{"id": "a", "values": []float32{0}, "metadata": map[string]any{"type": "report"}}},
		}), nil
	})
	resp, err := c.Fetch(context.Background(), "http://localhost:5081", "dossier", []string{"a", "b"})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if _, ok := resp.Vectors["a"]; !ok {
		t.Fatalf("missing vector a")
	}
	if _, ok := resp.Vectors["b"]; ok {
		t.Fatalf("unexpected vector b")
	}
}

func TestHTTPErrorCarriesStatus(t *testing.T) {
	c := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		return jsonResponse(t, 429, map[string]any{"message": "slow down"}), nil
	})
	_, err := c.DescribeIndexStats(context.Background(), "idx-abc.svc.pinecone.io")
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("want *HTTPError, got %T %v", err, err)
	}
	if httpErr.HTTPStatusCode() != 429 || httpErr.Op != "describe_index_stats" {
		t.Fatalf("unexpected error: %+v", httpErr)
	}
}

func TestNewRequiresAPIKey(t *testing.T) {
	if _, err := New(logger.Nop(), Config{}); err == nil {
		t.Fatalf("expected missing key error")
	}
	if _, err := New(nil, Config{APIKey: "x"}); err == nil {
		t.Fatalf("expected logger required error")
	}
}

func TestVectorStoreQualifiesNamespaceAndResolvesHost(t *testing.T) {
	var calls []string
	c := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		calls = append(calls, r.URL.Host+r.URL.Path)
		switch r.URL.Path {
		case "/indexes/kb":
			return jsonResponse(t, 200, map[string]any{"name": "kb", "host": "kb-123.svc.pinecone.io", "dimension": 1536}), nil
		case "/vectors/delete":
			var body DeleteRequest
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Namespace != "dossier:acme" {
				t.Fatalf("namespace: got=%q", body.Namespace)
			}
			return jsonResponse(t, 200, map[string]any{}), nil
		}
		t.Fatalf("unexpected path %s", r.URL.Path)
		return nil, nil
	})
	vs, err := NewVectorStore(context.Background(), logger.Nop(), c, VectorStoreConfig{IndexName: "kb"})
	if err != nil {
		t.Fatalf("NewVectorStore: %v", err)
	}
	if err := vs.DeleteIDs(context.Background(), "acme", []string{"x"}); err != nil {
		t.Fatalf("DeleteIDs: %v", err)
	}
	if len(calls) != 2 || calls[1] != "kb-123.svc.pinecone.io/vectors/delete" {
		t.Fatalf("calls: %v", calls)
	}
}
