package store

import (
	"context"
	"fmt"

	"github.com/yungbote/dossier-backend/internal/platform/pinecone"
)

type vectorIndex struct {
	vs        pinecone.VectorStore
	namespace string
	dim       int
}

// NewVectorIndex adapts a namespaced vector store to VectorIndex. All records
// live in one namespace and are told apart by their "type" metadata.
func NewVectorIndex(vs pinecone.VectorStore, namespace string, dim int) (VectorIndex, error) {
	if vs == nil {
		return nil, fmt.Errorf("vector store required")
	}
	if dim <= 0 {
		return nil, fmt.Errorf("invalid vector dimension %d", dim)
	}
	return &vectorIndex{vs: vs, namespace: namespace, dim: dim}, nil
}

func (x *vectorIndex) Dimension() int { return x.dim }

func (x *vectorIndex) Upsert(ctx context.Context, id string, vector []float32, metadata map[string]any) error {
	if len(vector) != x.dim {
		return fmt.Errorf("vector dimension mismatch: expected=%d got=%d", x.dim, len(vector))
	}
	return x.vs.Upsert(ctx, x.namespace, []pinecone.Vector{{ID: id, Values: vector, Metadata: metadata}})
}

func (x *vectorIndex) Query(ctx context.Context, vector []float32, filter map[string]any, topK int) ([]Match, error) {
	if vector == nil {
		vector = make([]float32, x.dim)
	}
	if len(vector) != x.dim {
		return nil, fmt.Errorf("vector dimension mismatch: expected=%d got=%d", x.dim, len(vector))
	}
	if topK > ListLimit {
		topK = ListLimit
	}
	matches, err := x.vs.QueryMatches(ctx, x.namespace, vector, topK, filter)
	if err != nil {
		return nil, err
	}
	out := make([]Match, 0, len(matches))
	for _, m := range matches {
		out = append(out, Match{ID: m.ID, Score: m.Score, Metadata: m.Metadata})
	}
	return out, nil
}

func (x *vectorIndex) Fetch(ctx context.Context, ids []string) (map[string]map[string]any, error) {
	vectors, err := x.vs.Fetch(ctx, x.namespace, ids)
	if err != nil {
		return nil, err
	}
	out := make(map[string]map[string]any, len(vectors))
	for id, v := range vectors {
		out[id] = v.Metadata
	}
	return out, nil
}

func (x *vectorIndex) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return x.vs.DeleteIDs(ctx, x.namespace, ids)
}

func (x *vectorIndex) Ping(ctx context.Context) error { return x.vs.Ping(ctx) }
