package report

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

type staticCorpus []domain.Document

func (c staticCorpus) Corpus(ctx context.Context) ([]domain.Document, error) { return c, nil }

type staticQuestionnaires map[string]domain.Questionnaire

func (s staticQuestionnaires) Get(ctx context.Context, id string) (domain.Questionnaire, error) {
	q, ok := s[id]
	if !ok {
		return domain.Questionnaire{}, store.ErrNotFound
	}
	return q, nil
}

func newTestService(t *testing.T, qs staticQuestionnaires) (*Service, *memRecords) {
	t.Helper()
	gw := &funcGateway{complete: func(q string) (string, error) { return "answer: " + q, nil }}
	recs := &memRecords{recs: map[string]store.Record{}}
	s, err := NewService(Deps{
		Log:            logger.Nop(),
		Engine:         newTestEngine(t, gw, 2),
		Corpus:         staticCorpus{{ID: "d1", Title: "Profile", Text: "Acme Corp"}},
		Questionnaires: qs,
		Records:        recs,
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return s, recs
}

func TestServiceGenerateFlattensAndSaves(t *testing.T) {
	qs := staticQuestionnaires{"q1": {
		ID:    "q1",
		Title: "Vendor Form",
		Questions: []domain.Question{
			{Text: "Company", SubQuestions: []domain.Question{{Text: "Legal name"}, {Text: "DBA"}}},
			{Text: "Contact"},
		},
	}}
	s, _ := newTestService(t, qs)

	rep, err := s.GenerateForQuestionnaire(context.Background(), "q1", nil)
	if err != nil {
		t.Fatalf("GenerateForQuestionnaire: %v", err)
	}
	if rep.ID == "" || rep.Title != "Report for Vendor Form" {
		t.Fatalf("unexpected report header: %+v", rep)
	}
	want := []string{"Company", "Legal name", "DBA", "Contact"}
	if len(rep.Items) != len(want) {
		t.Fatalf("items: %+v", rep.Items)
	}
	for i, w := range want {
		if rep.Items[i].Question != w || rep.Items[i].Answer != "answer: "+w {
			t.Fatalf("item %d: %+v", i, rep.Items[i])
		}
	}

	got, err := s.Get(context.Background(), rep.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Title != rep.Title || len(got.Items) != 4 {
		t.Fatalf("stored report: %+v", got)
	}

	raw, err := s.ExportByID(context.Background(), rep.ID)
	if err != nil {
		t.Fatalf("ExportByID: %v", err)
	}
	parsed, err := ParseExport(raw)
	if err != nil || len(parsed) != 4 {
		t.Fatalf("export: %v %+v", err, parsed)
	}
}

func TestServiceGenerateCancelledSavesNothing(t *testing.T) {
	qs := staticQuestionnaires{"q1": {ID: "q1", Title: "Vendor Form", Questions: []domain.Question{{Text: "Company"}, {Text: "Contact"}}}}
	s, recs := newTestService(t, qs)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := s.GenerateForQuestionnaire(ctx, "q1", nil); !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}
	if len(recs.recs) != 0 {
		t.Fatalf("cancelled run stored records: %+v", recs.recs)
	}
}

func TestServiceMissingQuestionnaire(t *testing.T) {
	s, _ := newTestService(t, staticQuestionnaires{})
	if _, err := s.GenerateForQuestionnaire(context.Background(), "nope", nil); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestServiceListSkipsMalformed(t *testing.T) {
	s, recs := newTestService(t, staticQuestionnaires{})
	if _, err := s.Generate(context.Background(), domain.Questionnaire{Title: "A", Questions: []domain.Question{{Text: "x"}}}, nil); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	recs.next++
	bad := "rec-" + strconv.Itoa(recs.next)
	recs.recs[bad] = store.Record{ID: bad, Kind: domain.KindReport, Title: "broken", Payload: json.RawMessage(`{"not":"a list"}`)}

	list, err := s.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 1 || list[0].Title != "Report for A" {
		t.Fatalf("list: %+v", list)
	}
	if err := s.Delete(context.Background(), list[0].ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get(context.Background(), list[0].ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("want ErrNotFound after delete, got %v", err)
	}
}
