package retrieval

import (
	"context"
	"testing"

	"github.com/yungbote/dossier-backend/internal/platform/logger"
	"github.com/yungbote/dossier-backend/internal/store"
)

type fakeIndex struct {
	store.VectorIndex
	filter  map[string]any
	topK    int
	matches []store.Match
}

func (f *fakeIndex) Query(ctx context.Context, vector []float32, filter map[string]any, topK int) ([]store.Match, error) {
	f.filter, f.topK = filter, topK
	return f.matches, nil
}

func TestSearchFiltersDocumentsAndSkipsTextless(t *testing.T) {
	idx := &fakeIndex{matches: []store.Match{
		{ID: "a", Score: 0.9, Metadata: map[string]any{"title": "Policy", "text": "body"}},
		{ID: "b", Score: 0.5, Metadata: map[string]any{"title": "Broken"}},
	}}
	c, err := New(logger.Nop(), idx)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	docs, err := c.Search(context.Background(), []float32{1}, 0)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if idx.filter["type"] != "document" || idx.topK != 3 {
		t.Fatalf("filter=%v topK=%d", idx.filter, idx.topK)
	}
	if len(docs) != 1 || docs[0].ID != "a" || docs[0].Score != 0.9 || docs[0].Title != "Policy" {
		t.Fatalf("unexpected docs: %+v", docs)
	}
}
