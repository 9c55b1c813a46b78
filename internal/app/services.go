package app

import (
	"context"
	"fmt"

	"github.com/yungbote/dossier-backend/internal/clients/redis"
	"github.com/yungbote/dossier-backend/internal/modules/gateway"
	"github.com/yungbote/dossier-backend/internal/modules/knowledge"
	"github.com/yungbote/dossier-backend/internal/modules/qa"
	"github.com/yungbote/dossier-backend/internal/modules/questionnaire"
	"github.com/yungbote/dossier-backend/internal/modules/report"
	"github.com/yungbote/dossier-backend/internal/modules/retrieval"
	"github.com/yungbote/dossier-backend/internal/observability"
	"github.com/yungbote/dossier-backend/internal/platform/logger"
	"github.com/yungbote/dossier-backend/internal/platform/openai"
	"github.com/yungbote/dossier-backend/internal/store"
)

type Services struct {
	Index          store.VectorIndex
	Records        store.RecordStore
	Gateway        gateway.Gateway
	Knowledge      *knowledge.Service
	Questionnaires *questionnaire.Service
	Reports        *report.Service
	QA             *qa.Answerer
}

func wireServices(ctx context.Context, log *logger.Logger, cfg Config, metrics *observability.Metrics) (Services, []func() error, error) {
	log.Info("Wiring services...")
	var closers []func() error

	ai, err := openai.New(log, cfg.OpenAI)
	if err != nil {
		return Services{}, closers, fmt.Errorf("init openai: %w", err)
	}

	var cache gateway.Cache
	if cfg.RedisAddr != "" {
		ec, err := redis.NewEmbeddingCache(log, cfg.RedisAddr, cfg.EmbedCacheTTL)
		if err != nil {
			log.Warn("Embedding cache disabled", "error", err)
		} else {
			cache = ec
			closers = append(closers, ec.Close)
		}
	}

	gw, err := gateway.New(gateway.Deps{
		Log:     log,
		AI:      ai,
		Dim:     cfg.VectorDim,
		Cache:   cache,
		Limiter: gateway.NewLimiter(cfg.CompletionRatePerSecond, cfg.CompletionBurst),
		Metrics: metrics,
	})
	if err != nil {
		return Services{}, closers, err
	}

	vs, err := resolveVectorStore(ctx, log, cfg, metrics)
	if err != nil {
		return Services{}, closers, err
	}
	index, err := store.NewVectorIndex(vs, cfg.VectorNamespace, cfg.VectorDim)
	if err != nil {
		return Services{}, closers, err
	}
	records, closeRecords, err := resolveRecordStore(log, cfg, index)
	closers = append(closers, closeRecords)
	if err != nil {
		return Services{}, closers, fmt.Errorf("init record store: %w", err)
	}

	kb, err := knowledge.New(knowledge.Deps{Log: log, Gateway: gw, Index: index})
	if err != nil {
		return Services{}, closers, err
	}
	rc, err := retrieval.New(log, index)
	if err != nil {
		return Services{}, closers, err
	}

	ext, err := questionnaire.NewExtractor(log, gw, cfg.ExtractBudget)
	if err != nil {
		return Services{}, closers, err
	}
	qs, err := questionnaire.NewService(questionnaire.Deps{Log: log, Extractor: ext, Records: records, Metrics: metrics})
	if err != nil {
		return Services{}, closers, err
	}

	engine, err := report.NewEngine(report.EngineDeps{
		Log:         log,
		Gateway:     gw,
		Metrics:     metrics,
		Concurrency: cfg.ReportConcurrency,
		Budget:      cfg.ContextBudget,
	})
	if err != nil {
		return Services{}, closers, err
	}
	reports, err := report.NewService(report.Deps{
		Log:            log,
		Engine:         engine,
		Corpus:         kb,
		Questionnaires: qs,
		Records:        records,
	})
	if err != nil {
		return Services{}, closers, err
	}

	answerer, err := qa.New(qa.Deps{Log: log, Gateway: gw, Retrieval: rc, TopK: cfg.QATopK, Budget: cfg.ContextBudget})
	if err != nil {
		return Services{}, closers, err
	}

	return Services{
		Index:          index,
		Records:        records,
		Gateway:        gw,
		Knowledge:      kb,
		Questionnaires: qs,
		Reports:        reports,
		QA:             answerer,
	}, closers, nil
}
