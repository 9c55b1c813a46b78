// Package gateway is the single entry point for embedding and completion
// calls. Retry lives in the provider client and applies to embeddings only.
package gateway

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/yungbote/dossier-backend/internal/observability"
	"github.com/yungbote/dossier-backend/internal/platform/logger"
	"github.com/yungbote/dossier-backend/internal/platform/openai"
)

type Message = openai.Message

type Gateway interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Complete(ctx context.Context, messages []Message) (string, error)
}

// Cache is an optional embedding memo. Misses return ok=false.
type Cache interface {
	Get(ctx context.Context, model, text string) ([]float32, bool, error)
	Set(ctx context.Context, model, text string, vec []float32) error
}

type Deps struct {
	Log *logger.Logger
	AI  openai.Client

	// Dim, when set, rejects embeddings of any other length.
	Dim int

	Cache   Cache
	Limiter *rate.Limiter
	Metrics *observability.Metrics
}

type gateway struct {
	log     *logger.Logger
	ai      openai.Client
	dim     int
	cache   Cache
	limiter *rate.Limiter
	metrics *observability.Metrics
}

func New(deps Deps) (Gateway, error) {
	if deps.Log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if deps.AI == nil {
		return nil, fmt.Errorf("openai client required")
	}
	return &gateway{
		log:     deps.Log.With("service", "ModelGateway"),
		ai:      deps.AI,
		dim:     deps.Dim,
		cache:   deps.Cache,
		limiter: deps.Limiter,
		metrics: deps.Metrics,
	}, nil
}

// NewLimiter returns nil (unlimited) when perSecond is not positive.
func NewLimiter(perSecond float64, burst int) *rate.Limiter {
	if perSecond <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(perSecond), burst)
}

// Messages builds the system + user pair every prompt in this service uses.
func Messages(system, user string) []Message {
	return []Message{
		{Role: openai.RoleSystem, Content: system},
		{Role: openai.RoleUser, Content: user},
	}
}

func (g *gateway) Embed(ctx context.Context, text string) ([]float32, error) {
	model := g.ai.EmbedModel()
	if g.cache != nil {
		vec, ok, err := g.cache.Get(ctx, model, text)
		if err != nil {
			g.log.Warn("Embedding cache read failed", "error", err)
		} else if ok && g.dimOK(vec) {
			return vec, nil
		}
	}

	start := time.Now()
	vec, err := g.ai.Embed(ctx, text)
	g.metrics.ObserveLLM("embed", err, time.Since(start))
	if err != nil {
		return nil, err
	}
	if !g.dimOK(vec) {
		return nil, fmt.Errorf("embedding dimension mismatch: expected=%d got=%d", g.dim, len(vec))
	}
	if g.cache != nil {
		if err := g.cache.Set(ctx, model, text, vec); err != nil {
			g.log.Warn("Embedding cache write failed", "error", err)
		}
	}
	return vec, nil
}

func (g *gateway) Complete(ctx context.Context, messages []Message) (string, error) {
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("completion rate limit: %w", err)
		}
	}
	start := time.Now()
	out, err := g.ai.Chat(ctx, messages)
	g.metrics.ObserveLLM("complete", err, time.Since(start))
	if err != nil {
		g.log.Warn("Completion failed", "duration", time.Since(start).String(), "error", err)
		return "", err
	}
	g.log.Debug("Completion done", "duration", time.Since(start).String(), "chars", len(out))
	return out, nil
}

func (g *gateway) dimOK(vec []float32) bool {
	return g.dim <= 0 || len(vec) == g.dim
}
