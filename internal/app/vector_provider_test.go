package app

import (
	"context"
	"errors"
	"testing"

	"github.com/yungbote/dossier-backend/internal/observability"
	"github.com/yungbote/dossier-backend/internal/platform/logger"
	"github.com/yungbote/dossier-backend/internal/platform/pinecone"
	"github.com/yungbote/dossier-backend/internal/platform/qdrant"
)

type testVectorStore struct {
	upsertCalls int
}

func (s *testVectorStore) Upsert(ctx context.Context, namespace string, vectors []pinecone.Vector) error {
	s.upsertCalls++
	return nil
}

func (s *testVectorStore) QueryMatches(ctx context.Context, namespace string, q []float32, topK int, filter map[string]any) ([]pinecone.VectorMatch, error) {
	return nil, nil
}

func (s *testVectorStore) Fetch(ctx context.Context, namespace string, ids []string) (map[string]pinecone.Vector, error) {
	return map[string]pinecone.Vector{}, nil
}

func (s *testVectorStore) DeleteIDs(ctx context.Context, namespace string, ids []string) error {
	return nil
}

func (s *testVectorStore) Ping(ctx context.Context) error { return nil }

func stubProviders(t *testing.T) {
	t.Helper()
	origQdrant := newQdrantVectorStore
	origPineconeClient := newPineconeClient
	origPineconeVectorStore := newPineconeVectorStore
	t.Cleanup(func() {
		newQdrantVectorStore = origQdrant
		newPineconeClient = origPineconeClient
		newPineconeVectorStore = origPineconeVectorStore
	})
}

func TestResolveVectorStoreQdrantSelected(t *testing.T) {
	stubProviders(t)
	stub := &testVectorStore{}
	var captured qdrant.Config
	newQdrantVectorStore = func(_ context.Context, _ *logger.Logger, cfg qdrant.Config) (pinecone.VectorStore, error) {
		captured = cfg
		return stub, nil
	}
	pineconeCalls := 0
	newPineconeClient = func(_ *logger.Logger, _ pinecone.Config) (pinecone.Client, error) {
		pineconeCalls++
		return nil, errors.New("unexpected")
	}

	metrics := observability.NewMetrics()
	vs, err := resolveVectorStore(context.Background(), logger.Nop(), Config{
		VectorProvider: "qdrant",
		VectorDim:      3,
		Qdrant:         qdrant.Config{URL: "http://qdrant:6333", Collection: "dossier"},
	}, metrics)
	if err != nil {
		t.Fatalf("resolveVectorStore: %v", err)
	}
	if err := vs.Upsert(context.Background(), "ns", []pinecone.Vector{{ID: "v1", Values: []float32{1, 2, 3}}}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if stub.upsertCalls != 1 {
		t.Fatalf("underlying store not called; upsert_calls=%d", stub.upsertCalls)
	}
	if captured.VectorDim != 3 || captured.Collection != "dossier" {
		t.Fatalf("qdrant config: %+v", captured)
	}
	if pineconeCalls != 0 {
		t.Fatalf("pinecone init should be skipped; calls=%d", pineconeCalls)
	}
	if _, ok := vs.(*instrumentedVectorStore); !ok {
		t.Fatalf("expected instrumented store, got %T", vs)
	}
}

func TestResolveVectorStoreClassifiesErrors(t *testing.T) {
	stubProviders(t)
	newQdrantVectorStore = func(_ context.Context, _ *logger.Logger, cfg qdrant.Config) (pinecone.VectorStore, error) {
		return nil, qdrant.ValidateConfig(cfg)
	}

	cases := []struct {
		name string
		cfg  Config
		want VectorProviderBootstrapErrorCode
	}{
		{"unknown provider", Config{VectorProvider: "milvus"}, VectorProviderBootstrapErrorInvalidProvider},
		{"qdrant missing url", Config{VectorProvider: "qdrant", VectorDim: 3}, VectorProviderBootstrapErrorMissingQdrantURL},
		{"qdrant missing collection", Config{VectorProvider: "qdrant", VectorDim: 3, Qdrant: qdrant.Config{URL: "http://q:6333"}}, VectorProviderBootstrapErrorMissingQdrantColl},
		{"pinecone missing key", Config{VectorProvider: "pinecone"}, VectorProviderBootstrapErrorMissingPineconeAPIKey},
		{"pinecone missing index", Config{VectorProvider: "pinecone", Pinecone: pinecone.Config{APIKey: "pc"}}, VectorProviderBootstrapErrorMissingPineconeIndex},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := resolveVectorStore(context.Background(), logger.Nop(), tc.cfg, nil)
			if got := vectorProviderBootstrapErrorCode(err); got != tc.want {
				t.Fatalf("code: want=%s got=%s (err=%v)", tc.want, got, err)
			}
		})
	}
}

func TestResolveVectorStorePineconeWiring(t *testing.T) {
	stubProviders(t)
	var gotCfg pinecone.VectorStoreConfig
	newPineconeClient = func(_ *logger.Logger, cfg pinecone.Config) (pinecone.Client, error) {
		if cfg.APIKey != "pc-key" {
			t.Fatalf("api key not passed through")
		}
		return nil, nil
	}
	newPineconeVectorStore = func(_ context.Context, _ *logger.Logger, _ pinecone.Client, cfg pinecone.VectorStoreConfig) (pinecone.VectorStore, error) {
		gotCfg = cfg
		return &testVectorStore{}, nil
	}

	vs, err := resolveVectorStore(context.Background(), logger.Nop(), Config{
		VectorProvider:          "pinecone",
		Pinecone:                pinecone.Config{APIKey: "pc-key"},
		PineconeIndexName:       "dossier",
		PineconeIndexHost:       "dossier-abc.svc.pinecone.io",
		PineconeNamespacePrefix: "dz",
	}, nil)
	if err != nil {
		t.Fatalf("resolveVectorStore: %v", err)
	}
	if _, ok := vs.(*testVectorStore); !ok {
		t.Fatalf("without metrics the store should not be wrapped, got %T", vs)
	}
	if gotCfg.IndexName != "dossier" || gotCfg.IndexHost != "dossier-abc.svc.pinecone.io" || gotCfg.NamespacePrefix != "dz" {
		t.Fatalf("vector store config: %+v", gotCfg)
	}
}
