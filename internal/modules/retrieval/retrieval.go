package retrieval

import (
	"context"
	"fmt"

	"github.com/yungbote/dossier-backend/internal/domain"
	"github.com/yungbote/dossier-backend/internal/platform/logger"
	"github.com/yungbote/dossier-backend/internal/store"
)

type Client struct {
	log   *logger.Logger
	index store.VectorIndex
}

func New(log *logger.Logger, index store.VectorIndex) (*Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if index == nil {
		return nil, fmt.Errorf("vector index required")
	}
	return &Client{log: log.With("service", "RetrievalClient"), index: index}, nil
}

// Search returns up to topK knowledge base documents nearest to vector, best first.
func (c *Client) Search(ctx context.Context, vector []float32, topK int) ([]domain.RetrievedDocument, error) {
	if topK <= 0 {
		topK = 3
	}
	matches, err := c.index.Query(ctx, vector, map[string]any{"type": string(domain.KindDocument)}, topK)
	if err != nil {
		return nil, fmt.Errorf("retrieval query: %w", err)
	}
	out := make([]domain.RetrievedDocument, 0, len(matches))
	for _, m := range matches {
		doc, ok := DocumentFromMetadata(m.ID, m.Metadata)
		if !ok {
			c.log.Warn("Skipping document without text", "id", m.ID)
			continue
		}
		out = append(out, domain.RetrievedDocument{Document: doc, Score: m.Score})
	}
	return out, nil
}

// DocumentFromMetadata reads the {title, text} pair a knowledge base entry is stored with.
func DocumentFromMetadata(id string, meta map[string]any) (domain.Document, bool) {
	text, ok := meta["text"].(string)
	if !ok {
		return domain.Document{}, false
	}
	title, _ := meta["title"].(string)
	return domain.Document{ID: id, Title: title, Text: text}, true
}

// DocumentMetadata is the inverse of DocumentFromMetadata.
func DocumentMetadata(doc domain.Document) map[string]any {
	return map[string]any{
		"title": doc.Title,
		"text":  doc.Text,
		"type":  string(domain.KindDocument),
	}
}
