package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/yungbote/dossier-backend/internal/domain"
	"github.com/yungbote/dossier-backend/internal/platform/logger"
)

type vectorRecordStore struct {
	log   *logger.Logger
	index VectorIndex
}

// NewVectorRecordStore keeps records as metadata on zero-vector placeholders
// in the given index. Listing is a filter-only query capped at ListLimit.
func NewVectorRecordStore(log *logger.Logger, index VectorIndex) (RecordStore, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if index == nil {
		return nil, fmt.Errorf("vector index required")
	}
	return &vectorRecordStore{log: log.With("service", "VectorRecordStore"), index: index}, nil
}

func (s *vectorRecordStore) Save(ctx context.Context, kind domain.RecordKind, title string, payload any) (string, error) {
	if !kind.Valid() {
		return "", fmt.Errorf("invalid record kind %q", kind)
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode %s payload: %w", kind, err)
	}
	id := uuid.NewString()
	metadata := map[string]any{
		"title":          title,
		"type":           string(kind),
		PayloadKey(kind): string(raw),
	}
	if err := s.index.Upsert(ctx, id, make([]float32, s.index.Dimension()), metadata); err != nil {
		return "", fmt.Errorf("save %s: %w", kind, err)
	}
	s.log.Info("Record saved", "kind", kind, "id", id, "title", title)
	return id, nil
}

func (s *vectorRecordStore) List(ctx context.Context, kind domain.RecordKind) ([]Record, error) {
	matches, err := s.index.Query(ctx, nil, map[string]any{"type": string(kind)}, ListLimit)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", kind, err)
	}
	if len(matches) >= ListLimit {
		s.log.Warn("Listing reached the query cap; some records are not shown", "kind", kind, "limit", ListLimit)
	}
	out := make([]Record, 0, len(matches))
	for _, m := range matches {
		rec, err := decodeRecord(kind, m.ID, m.Metadata)
		if err != nil {
			s.log.Warn("Skipping malformed record", "kind", kind, "id", m.ID, "error", err)
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

func (s *vectorRecordStore) Get(ctx context.Context, kind domain.RecordKind, id string) (Record, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Record{}, ErrNotFound
	}
	found, err := s.index.Fetch(ctx, []string{id})
	if err != nil {
		return Record{}, fmt.Errorf("get %s %s: %w", kind, id, err)
	}
	meta, ok := found[id]
	if !ok {
		return Record{}, ErrNotFound
	}
	if t, _ := meta["type"].(string); t != string(kind) {
		return Record{}, ErrNotFound
	}
	rec, err := decodeRecord(kind, id, meta)
	if err != nil {
		return Record{}, fmt.Errorf("get %s %s: %w", kind, id, err)
	}
	return rec, nil
}

func (s *vectorRecordStore) Delete(ctx context.Context, kind domain.RecordKind, id string) error {
	deleted, err := DeleteKind(ctx, s.index, kind, id)
	if err != nil {
		return err
	}
	s.log.Info("Record deleted", "kind", kind, "id", id, "deleted", deleted)
	return nil
}

func decodeRecord(kind domain.RecordKind, id string, meta map[string]any) (Record, error) {
	title, ok := meta["title"].(string)
	if !ok {
		return Record{}, fmt.Errorf("missing title")
	}
	raw, ok := meta[PayloadKey(kind)].(string)
	if !ok {
		return Record{}, fmt.Errorf("missing %s payload", PayloadKey(kind))
	}
	if !json.Valid([]byte(raw)) {
		return Record{}, fmt.Errorf("invalid %s payload json", PayloadKey(kind))
	}
	return Record{ID: id, Kind: kind, Title: title, Payload: json.RawMessage(raw)}, nil
}
