// Package store defines the two persistence boundaries: a VectorIndex for
// embedding similarity search and a RecordStore for id-keyed opaque records.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/yungbote/dossier-backend/internal/domain"
	"github.com/yungbote/dossier-backend/internal/platform/pinecone"
)

var ErrNotFound = errors.New("record not found")

// ListLimit is the most matches a filter-only listing returns. Every index
// query carries metadata, so the tighter Pinecone cap applies.
const ListLimit = pinecone.MaxTopKWithMetadata

// Match is one ranked result of a VectorIndex query.
type Match struct {
	ID       string
	Score    float64
	Metadata map[string]any
}

type VectorIndex interface {
	Upsert(ctx context.Context, id string, vector []float32, metadata map[string]any) error
	// Query returns up to topK matches ordered by descending score. A nil
	// vector is a filter-only query.
	Query(ctx context.Context, vector []float32, filter map[string]any, topK int) ([]Match, error)
	Fetch(ctx context.Context, ids []string) (map[string]map[string]any, error)
	Delete(ctx context.Context, ids []string) error
	Ping(ctx context.Context) error
	Dimension() int
}

// Record is a persisted questionnaire or report. Payload is the raw JSON the
// caller saved; the store never interprets it.
type Record struct {
	ID      string
	Kind    domain.RecordKind
	Title   string
	Payload json.RawMessage
}

type RecordStore interface {
	Save(ctx context.Context, kind domain.RecordKind, title string, payload any) (string, error)
	List(ctx context.Context, kind domain.RecordKind) ([]Record, error)
	Get(ctx context.Context, kind domain.RecordKind, id string) (Record, error)
	// Delete is idempotent: removing a missing id is not an error.
	Delete(ctx context.Context, kind domain.RecordKind, id string) error
}

// PayloadKey names the metadata field a record's payload is stored under.
func PayloadKey(kind domain.RecordKind) string {
	switch kind {
	case domain.KindQuestionnaire:
		return "questions"
	case domain.KindReport:
		return "report"
	default:
		return "payload"
	}
}

// DeleteKind removes id from index only when it is stored with metadata
// type == kind. A missing id or one of another kind is left alone and
// reported as deleted=false.
func DeleteKind(ctx context.Context, index VectorIndex, kind domain.RecordKind, id string) (bool, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return false, nil
	}
	found, err := index.Fetch(ctx, []string{id})
	if err != nil {
		return false, fmt.Errorf("delete %s %s: %w", kind, id, err)
	}
	meta, ok := found[id]
	if !ok {
		return false, nil
	}
	if t, _ := meta["type"].(string); t != string(kind) {
		return false, nil
	}
	if err := index.Delete(ctx, []string{id}); err != nil {
		return false, fmt.Errorf("delete %s %s: %w", kind, id, err)
	}
	return true, nil
}
