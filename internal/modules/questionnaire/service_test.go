package questionnaire

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"testing"

	"github.com/yungbote/dossier-backend/internal/domain"
	"github.com/yungbote/dossier-backend/internal/platform/logger"
	"github.com/yungbote/dossier-backend/internal/store"
)

type memRecords struct {
	next int
	recs map[string]store.Record
}

func (m *memRecords) Save(ctx context.Context, kind domain.RecordKind, title string, payload any) (string, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	m.next++
	id := "rec-" + strconv.Itoa(m.next)
	m.recs[id] = store.Record{ID: id, Kind: kind, Title: title, Payload: raw}
	return id, nil
}

func (m *memRecords) List(ctx context.Context, kind domain.RecordKind) ([]store.Record, error) {
	var out []store.Record
	for i := 1; i <= m.next; i++ {
		if r, ok := m.recs["rec-"+strconv.Itoa(i)]; ok && r.Kind == kind {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memRecords) Get(ctx context.Context, kind domain.RecordKind, id string) (store.Record, error) {
	r, ok := m.recs[id]
	if !ok || r.Kind != kind {
		return store.Record{}, store.ErrNotFound
	}
	return r, nil
}

func (m *memRecords) Delete(ctx context.Context, kind domain.RecordKind, id string) error {
	delete(m.recs, id)
	return nil
}

func newTestService(t *testing.T, reply string) (*Service, *memRecords) {
	t.Helper()
	ext := newTestExtractor(t, &scriptedGateway{reply: reply})
	recs := &memRecords{recs: map[string]store.Record{}}
	s, err := NewService(Deps{Log: logger.Nop(), Extractor: ext, Records: recs})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return s, recs
}

func TestServiceExtractFileTitlesDraft(t *testing.T) {
	s, _ := newTestService(t, `[{"question":"Legal name","type":"text","instructions":""}]`)
	draft, err := s.ExtractFile(context.Background(), "vendor-form.txt", []byte("1. Legal name: ____"))
	if err != nil {
		t.Fatalf("ExtractFile: %v", err)
	}
	if draft.Title != "vendor-form.txt" || len(draft.Questions) != 1 {
		t.Fatalf("unexpected draft: %+v", draft)
	}
	if _, err := s.ExtractFile(context.Background(), "old.doc", []byte("x")); err == nil {
		t.Fatalf("expected unsupported format error")
	}
}

func TestServiceSaveListGetDelete(t *testing.T) {
	s, recs := newTestService(t, `[]`)
	ctx := context.Background()

	id, err := s.Save(ctx, domain.Questionnaire{Questions: []domain.Question{{Text: "Q", Kind: domain.QuestionYesNo, Options: []string{"x"}}}})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	recs.recs["rec-99"] = store.Record{ID: "rec-99", Kind: domain.KindQuestionnaire, Title: "bad", Payload: json.RawMessage(`{}`)}
	recs.next = 99

	list, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 1 || list[0].Title != domain.DefaultQuestionnaireTitle {
		t.Fatalf("unexpected list: %+v", list)
	}

	got, err := s.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Questions[0].Options != nil {
		t.Fatalf("options should be stripped for yes/no")
	}

	if err := s.Delete(ctx, id); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get(ctx, id); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}
