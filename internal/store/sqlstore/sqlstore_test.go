package sqlstore

import (
	"context"
	"errors"
	"testing"

	"github.com/yungbote/dossier-backend/internal/domain"
	"github.com/yungbote/dossier-backend/internal/platform/logger"
	"github.com/yungbote/dossier-backend/internal/store"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenSQLite(logger.Nop(), "file:"+t.Name()+"?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	return s
}

func TestStoreRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	qs := []domain.Question{{Text: "Name", Kind: domain.QuestionText}}
	id, err := s.Save(ctx, domain.KindQuestionnaire, "Intake", qs)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := s.Save(ctx, domain.KindReport, "Report for Intake", []domain.Answer{}); err != nil {
		t.Fatalf("Save report: %v", err)
	}

	list, err := s.List(ctx, domain.KindQuestionnaire)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 1 || list[0].ID != id || list[0].Title != "Intake" {
		t.Fatalf("unexpected list: %+v", list)
	}

	rec, err := s.Get(ctx, domain.KindQuestionnaire, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(rec.Payload) == "" {
		t.Fatalf("empty payload")
	}
	if _, err := s.Get(ctx, domain.KindReport, id); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("want ErrNotFound for kind mismatch, got %v", err)
	}

	if err := s.Delete(ctx, domain.KindQuestionnaire, id); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get(ctx, domain.KindQuestionnaire, id); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("want ErrNotFound after delete, got %v", err)
	}
}

func TestSaveRejectsUnknownKind(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Save(context.Background(), domain.RecordKind("invoice"), "x", nil); err == nil {
		t.Fatalf("expected error")
	}
}
