package knowledge

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/dossier-backend/internal/domain"
	"github.com/yungbote/dossier-backend/internal/ingestion/extractor"
	"github.com/yungbote/dossier-backend/internal/modules/gateway"
	"github.com/yungbote/dossier-backend/internal/modules/retrieval"
	"github.com/yungbote/dossier-backend/internal/platform/logger"
	"github.com/yungbote/dossier-backend/internal/store"
)

const ingestConcurrency = 4

// ErrStoreUnavailable is returned when the pre-ingest connection check fails.
var ErrStoreUnavailable = errors.New("vector store unavailable")

type File struct {
	Name string
	Data []byte
}

type IngestResult struct {
	Filename string `json:"filename"`
	ID       string `json:"id,omitempty"`
	Error    string `json:"error,omitempty"`
}

type Summary struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

type Deps struct {
	Log     *logger.Logger
	Gateway gateway.Gateway
	Index   store.VectorIndex
}

type Service struct {
	log   *logger.Logger
	gw    gateway.Gateway
	index store.VectorIndex
}

func New(deps Deps) (*Service, error) {
	if deps.Log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if deps.Gateway == nil || deps.Index == nil {
		return nil, fmt.Errorf("gateway and vector index required")
	}
	return &Service{log: deps.Log.With("service", "KnowledgeBase"), gw: deps.Gateway, index: deps.Index}, nil
}

// AddDocument embeds text and stores it as a knowledge base entry titled title.
func (s *Service) AddDocument(ctx context.Context, title, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("document %q has no text", title)
	}
	vec, err := s.gw.Embed(ctx, text)
	if err != nil {
		return "", fmt.Errorf("embed %q: %w", title, err)
	}
	id := uuid.NewString()
	doc := domain.Document{ID: id, Title: title, Text: text}
	if err := s.index.Upsert(ctx, id, vec, retrieval.DocumentMetadata(doc)); err != nil {
		return "", fmt.Errorf("store %q: %w", title, err)
	}
	s.log.Info("Document added", "id", id, "filename", title, "chars", len(text))
	return id, nil
}

// Ingest extracts, embeds and stores one uploaded file.
func (s *Service) Ingest(ctx context.Context, f File) (string, error) {
	text, err := extractor.ExtractText(f.Name, f.Data)
	if err != nil {
		return "", err
	}
	return s.AddDocument(ctx, f.Name, text)
}

// IngestFiles processes files concurrently. A failing file is reported in its
// result and never stops the others. The vector store is checked once first.
func (s *Service) IngestFiles(ctx context.Context, files []File) ([]IngestResult, error) {
	if err := s.index.Ping(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	results := make([]IngestResult, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ingestConcurrency)
	for i, f := range files {
		g.Go(func() error {
			res := IngestResult{Filename: f.Name}
			id, err := s.Ingest(gctx, f)
			if err != nil {
				s.log.Warn("Document ingest failed", "filename", f.Name, "error", err)
				res.Error = err.Error()
			} else {
				res.ID = id
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()
	return results, nil
}

// Corpus returns every stored document.
func (s *Service) Corpus(ctx context.Context) ([]domain.Document, error) {
	matches, err := s.index.Query(ctx, nil, map[string]any{"type": string(domain.KindDocument)}, store.ListLimit)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	if len(matches) >= store.ListLimit {
		s.log.Warn("Document listing reached the query cap; some documents are not included", "limit", store.ListLimit)
	}
	docs := make([]domain.Document, 0, len(matches))
	for _, m := range matches {
		doc, ok := retrieval.DocumentFromMetadata(m.ID, m.Metadata)
		if !ok {
			s.log.Warn("Skipping malformed document", "id", m.ID)
			continue
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func (s *Service) List(ctx context.Context) ([]Summary, error) {
	docs, err := s.Corpus(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Summary, 0, len(docs))
	for _, d := range docs {
		out = append(out, Summary{ID: d.ID, Title: d.Title, Snippet: domain.Snippet(d.Text)})
	}
	return out, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("document id required")
	}
	deleted, err := store.DeleteKind(ctx, s.index, domain.KindDocument, id)
	if err != nil {
		return err
	}
	s.log.Info("Document deleted", "id", id, "deleted", deleted)
	return nil
}

func (s *Service) Ping(ctx context.Context) error { return s.index.Ping(ctx) }
