package report

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/yungbote/dossier-backend/internal/domain"
	"github.com/yungbote/dossier-backend/internal/platform/logger"
	"github.com/yungbote/dossier-backend/internal/store"
)

type CorpusSource interface {
	Corpus(ctx context.Context) ([]domain.Document, error)
}

type QuestionnaireSource interface {
	Get(ctx context.Context, id string) (domain.Questionnaire, error)
}

type Deps struct {
	Log            *logger.Logger
	Engine         *Engine
	Corpus         CorpusSource
	Questionnaires QuestionnaireSource
	Records        store.RecordStore
}

type Service struct {
	log            *logger.Logger
	engine         *Engine
	corpus         CorpusSource
	questionnaires QuestionnaireSource
	records        store.RecordStore
}

func NewService(deps Deps) (*Service, error) {
	if deps.Log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if deps.Engine == nil || deps.Corpus == nil || deps.Questionnaires == nil || deps.Records == nil {
		return nil, fmt.Errorf("engine, corpus, questionnaires and record store required")
	}
	return &Service{
		log:            deps.Log.With("service", "ReportService"),
		engine:         deps.Engine,
		corpus:         deps.Corpus,
		questionnaires: deps.Questionnaires,
		records:        deps.Records,
	}, nil
}

// GenerateForQuestionnaire answers the saved questionnaire id and saves the report.
func (s *Service) GenerateForQuestionnaire(ctx context.Context, id string, onProgress ProgressFunc) (domain.Report, error) {
	q, err := s.questionnaires.Get(ctx, id)
	if err != nil {
		return domain.Report{}, err
	}
	return s.Generate(ctx, q, onProgress)
}

// Generate answers every question of q, depth-first, and saves the report.
func (s *Service) Generate(ctx context.Context, q domain.Questionnaire, onProgress ProgressFunc) (domain.Report, error) {
	corpus, err := s.corpus.Corpus(ctx)
	if err != nil {
		return domain.Report{}, fmt.Errorf("load knowledge base: %w", err)
	}
	title := strings.TrimSpace(q.Title)
	if title == "" {
		title = domain.DefaultQuestionnaireTitle
	}
	answers := s.engine.Generate(ctx, domain.Flatten(q.Questions), corpus, onProgress)
	if err := ctx.Err(); err != nil {
		s.log.Warn("Report generation cancelled; nothing saved", "title", title, "error", err)
		return domain.Report{}, fmt.Errorf("generate report: %w", err)
	}
	rep := domain.Report{Title: domain.ReportTitle(title), Items: answers}
	id, err := s.records.Save(ctx, domain.KindReport, rep.Title, rep.Items)
	if err != nil {
		return domain.Report{}, fmt.Errorf("save report: %w", err)
	}
	rep.ID = id
	return rep, nil
}

func (s *Service) List(ctx context.Context) ([]domain.Report, error) {
	recs, err := s.records.List(ctx, domain.KindReport)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Report, 0, len(recs))
	for _, r := range recs {
		rep, err := decode(r)
		if err != nil {
			s.log.Warn("Skipping malformed report", "id", r.ID, "error", err)
			continue
		}
		out = append(out, rep)
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, id string) (domain.Report, error) {
	rec, err := s.records.Get(ctx, domain.KindReport, id)
	if err != nil {
		return domain.Report{}, err
	}
	return decode(rec)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.records.Delete(ctx, domain.KindReport, id)
}

// ExportByID returns the export document of a saved report.
func (s *Service) ExportByID(ctx context.Context, id string) ([]byte, error) {
	rep, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return Export(rep.Items)
}

func decode(r store.Record) (domain.Report, error) {
	var items []domain.Answer
	if err := json.Unmarshal(r.Payload, &items); err != nil {
		return domain.Report{}, fmt.Errorf("decode report %s: %w", r.ID, err)
	}
	if items == nil {
		items = []domain.Answer{}
	}
	return domain.Report{ID: r.ID, Title: r.Title, Items: items}, nil
}
