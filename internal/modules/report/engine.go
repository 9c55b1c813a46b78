// Package report answers every question of a questionnaire against the
// knowledge base and persists the result.
package report

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/dossier-backend/internal/domain"
	"github.com/yungbote/dossier-backend/internal/modules/gateway"
	"github.com/yungbote/dossier-backend/internal/observability"
	"github.com/yungbote/dossier-backend/internal/platform/logger"
)

const (
	DefaultContextBudget = 3000
	DefaultConcurrency   = 4
)

const systemPrompt = "You are a helpful assistant that generates detailed answers based on given questions and context."

const userPrompt = "Based on the following context, answer the given question. If the context doesn't contain relevant information for the question, state that the information is not available.\n\nContext: %s\n\nQuestion: %s\nAnswer:"

const unavailablePhrase = "information is not available"

// Progress is reported once per finished question.
type Progress struct {
	Completed int     `json:"completed"`
	Total     int     `json:"total"`
	Fraction  float64 `json:"fraction"`
}

type ProgressFunc func(Progress)

type EngineDeps struct {
	Log     *logger.Logger
	Gateway gateway.Gateway
	Metrics *observability.Metrics

	// Concurrency caps in-flight completions. Zero means DefaultConcurrency.
	Concurrency int
	// Budget bounds the context prefix in characters. Zero means DefaultContextBudget.
	Budget int
}

type Engine struct {
	log         *logger.Logger
	gw          gateway.Gateway
	metrics     *observability.Metrics
	concurrency int
	budget      int
}

func NewEngine(deps EngineDeps) (*Engine, error) {
	if deps.Log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if deps.Gateway == nil {
		return nil, fmt.Errorf("gateway required")
	}
	e := &Engine{
		log:         deps.Log.With("service", "ReportEngine"),
		gw:          deps.Gateway,
		metrics:     deps.Metrics,
		concurrency: deps.Concurrency,
		budget:      deps.Budget,
	}
	if e.concurrency <= 0 {
		e.concurrency = DefaultConcurrency
	}
	if e.budget <= 0 {
		e.budget = DefaultContextBudget
	}
	return e, nil
}

// Generate answers questions in input order. A failing question yields an
// error answer flagged for assignment; it never aborts the batch.
func (e *Engine) Generate(ctx context.Context, questions []domain.Question, corpus []domain.Document, onProgress ProgressFunc) []domain.Answer {
	ctx, span := observability.Tracer().Start(ctx, "report.generate")
	defer span.End()
	span.SetAttributes(
		attribute.Int("report.questions", len(questions)),
		attribute.Int("report.corpus_documents", len(corpus)),
	)

	answers := make([]domain.Answer, len(questions))
	if len(questions) == 0 {
		return answers
	}

	prompt := BuildContext(corpus, e.budget)
	total := len(questions)
	start := time.Now()

	var (
		mu        sync.Mutex
		completed int
		flagged   int
	)
	g := new(errgroup.Group)
	g.SetLimit(e.concurrency)
	for i := range questions {
		g.Go(func() error {
			a := e.answerOne(ctx, questions[i].Text, prompt)
			answers[i] = a

			mu.Lock()
			defer mu.Unlock()
			completed++
			if a.NeedsAssignment {
				flagged++
			}
			if onProgress != nil {
				onProgress(Progress{Completed: completed, Total: total, Fraction: float64(completed) / float64(total)})
			}
			return nil
		})
	}
	_ = g.Wait()

	span.SetAttributes(attribute.Int("report.needs_assignment", flagged))
	e.log.Info("Report generated",
		"questions", total,
		"needs_assignment", flagged,
		"duration", time.Since(start).String(),
	)
	return answers
}

func (e *Engine) answerOne(ctx context.Context, question, docs string) domain.Answer {
	ctx, span := observability.Tracer().Start(ctx, "report.question")
	defer span.End()

	reply, err := e.gw.Complete(ctx, gateway.Messages(systemPrompt, fmt.Sprintf(userPrompt, docs, question)))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		e.log.Warn("Question failed", "question", question, "error", err)
		e.metrics.IncReportQuestion("error")
		return domain.Answer{
			Question:        question,
			Answer:          fmt.Sprintf("An error occurred while generating the answer: %v", err),
			NeedsAssignment: true,
		}
	}
	text := strings.TrimSpace(reply)
	needs := NeedsAssignment(text)
	span.SetAttributes(attribute.Bool("report.needs_assignment", needs))
	if needs {
		e.metrics.IncReportQuestion("needs_assignment")
	} else {
		e.metrics.IncReportQuestion("answered")
	}
	return domain.Answer{Question: question, Answer: text, NeedsAssignment: needs}
}

// NeedsAssignment flags answers in which the model said the context was insufficient.
func NeedsAssignment(answer string) bool {
	return strings.Contains(strings.ToLower(answer), unavailablePhrase)
}

// BuildContext renders the whole corpus as "Title: ...\n<text>" blocks and
// keeps the first budget characters.
func BuildContext(corpus []domain.Document, budget int) string {
	parts := make([]string, 0, len(corpus))
	for _, d := range corpus {
		parts = append(parts, "Title: "+d.Title+"\n"+d.Text)
	}
	return domain.Truncate(strings.Join(parts, "\n"), budget)
}
