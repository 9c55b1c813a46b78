package questionnaire

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/yungbote/dossier-backend/internal/domain"
	"github.com/yungbote/dossier-backend/internal/ingestion/extractor"
	"github.com/yungbote/dossier-backend/internal/observability"
	"github.com/yungbote/dossier-backend/internal/platform/logger"
	"github.com/yungbote/dossier-backend/internal/store"
)

// Draft is an unsaved extraction result.
type Draft struct {
	Title       string            `json:"title"`
	Questions   []domain.Question `json:"questions"`
	Diagnostics []string          `json:"diagnostics,omitempty"`
}

type Deps struct {
	Log       *logger.Logger
	Extractor *Extractor
	Records   store.RecordStore
	Metrics   *observability.Metrics
}

type Service struct {
	log     *logger.Logger
	ext     *Extractor
	records store.RecordStore
	metrics *observability.Metrics
}

func NewService(deps Deps) (*Service, error) {
	if deps.Log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if deps.Extractor == nil || deps.Records == nil {
		return nil, fmt.Errorf("extractor and record store required")
	}
	return &Service{
		log:     deps.Log.With("service", "QuestionnaireService"),
		ext:     deps.Extractor,
		records: deps.Records,
		metrics: deps.Metrics,
	}, nil
}

// ExtractFile reads an uploaded form and extracts its questions. Only an
// unreadable file is an error; model problems land in Diagnostics.
func (s *Service) ExtractFile(ctx context.Context, filename string, data []byte) (Draft, error) {
	text, err := extractor.ExtractText(filename, data)
	if err != nil {
		return Draft{}, err
	}
	res := s.ext.Extract(ctx, text)
	s.metrics.IncExtraction(res.outcome())
	return Draft{Title: filename, Questions: res.Questions, Diagnostics: res.Diagnostics()}, nil
}

// Save persists q under a freshly generated id.
func (s *Service) Save(ctx context.Context, q domain.Questionnaire) (string, error) {
	title := strings.TrimSpace(q.Title)
	if title == "" {
		title = domain.DefaultQuestionnaireTitle
	}
	return s.records.Save(ctx, domain.KindQuestionnaire, title, FormatQuestions(q.Questions))
}

func (s *Service) List(ctx context.Context) ([]domain.Questionnaire, error) {
	recs, err := s.records.List(ctx, domain.KindQuestionnaire)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Questionnaire, 0, len(recs))
	for _, r := range recs {
		q, err := decode(r)
		if err != nil {
			s.log.Warn("Skipping malformed questionnaire", "id", r.ID, "error", err)
			continue
		}
		out = append(out, q)
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, id string) (domain.Questionnaire, error) {
	rec, err := s.records.Get(ctx, domain.KindQuestionnaire, id)
	if err != nil {
		return domain.Questionnaire{}, err
	}
	return decode(rec)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.records.Delete(ctx, domain.KindQuestionnaire, id)
}

func decode(r store.Record) (domain.Questionnaire, error) {
	var qs []domain.Question
	if err := json.Unmarshal(r.Payload, &qs); err != nil {
		return domain.Questionnaire{}, fmt.Errorf("decode questionnaire %s: %w", r.ID, err)
	}
	if qs == nil {
		qs = []domain.Question{}
	}
	return domain.Questionnaire{ID: r.ID, Title: r.Title, Questions: qs}, nil
}
