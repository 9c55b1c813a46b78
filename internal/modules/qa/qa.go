// Package qa answers a single free-form query from the documents nearest to it.
package qa

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/yungbote/dossier-backend/internal/domain"
	"github.com/yungbote/dossier-backend/internal/modules/gateway"
	"github.com/yungbote/dossier-backend/internal/platform/logger"
)

const (
	DefaultTopK          = 3
	DefaultContextBudget = 3000
)

const NoDocumentsMessage = "No relevant documents found in the Knowledge Base."

const systemPrompt = "You are a helpful assistant that answers questions based on given context."

const userPrompt = "Based on the following context, answer the question. If the answer is not in the context, say \"I don't have enough information to answer that question.\"\n\nContext: %s\n\nQuestion: %s\nAnswer:"

var ErrEmptyQuery = errors.New("query required")

type Searcher interface {
	Search(ctx context.Context, vector []float32, topK int) ([]domain.RetrievedDocument, error)
}

type Result struct {
	Answer      string          `json:"answer"`
	Sources     []domain.Source `json:"sources"`
	NoDocuments bool            `json:"no_documents"`
}

type Deps struct {
	Log       *logger.Logger
	Gateway   gateway.Gateway
	Retrieval Searcher
	TopK      int
	Budget    int
}

type Answerer struct {
	log    *logger.Logger
	gw     gateway.Gateway
	search Searcher
	topK   int
	budget int
}

func New(deps Deps) (*Answerer, error) {
	if deps.Log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if deps.Gateway == nil || deps.Retrieval == nil {
		return nil, fmt.Errorf("gateway and retrieval client required")
	}
	a := &Answerer{
		log:    deps.Log.With("service", "QueryAnswerer"),
		gw:     deps.Gateway,
		search: deps.Retrieval,
		topK:   deps.TopK,
		budget: deps.Budget,
	}
	if a.topK <= 0 {
		a.topK = DefaultTopK
	}
	if a.budget <= 0 {
		a.budget = DefaultContextBudget
	}
	return a, nil
}

// Answer embeds query, retrieves the nearest documents and asks the model to
// answer from them only. With nothing retrieved the model is not called.
func (a *Answerer) Answer(ctx context.Context, query string) (Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Result{}, ErrEmptyQuery
	}
	start := time.Now()

	vec, err := a.gw.Embed(ctx, query)
	if err != nil {
		return Result{}, fmt.Errorf("embed query: %w", err)
	}
	docs, err := a.search.Search(ctx, vec, a.topK)
	if err != nil {
		return Result{}, err
	}
	if len(docs) == 0 {
		a.log.Info("Query matched no documents")
		return Result{Answer: NoDocumentsMessage, Sources: []domain.Source{}, NoDocuments: true}, nil
	}

	sources := make([]domain.Source, 0, len(docs))
	texts := make([]string, 0, len(docs))
	for _, d := range docs {
		texts = append(texts, d.Text)
		sources = append(sources, domain.Source{ID: d.ID, Title: d.Title, Snippet: domain.Snippet(d.Text), Score: d.Score})
	}
	docContext := domain.Truncate(strings.Join(texts, "\n"), a.budget)

	reply, err := a.gw.Complete(ctx, gateway.Messages(systemPrompt, fmt.Sprintf(userPrompt, docContext, query)))
	if err != nil {
		return Result{}, fmt.Errorf("answer query: %w", err)
	}
	a.log.Info("Query answered", "sources", len(sources), "duration", time.Since(start).String())
	return Result{Answer: strings.TrimSpace(reply), Sources: sources}, nil
}
