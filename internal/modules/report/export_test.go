package report

import (
	"reflect"
	"testing"

	"github.com/yungbote/dossier-backend/internal/domain"
)

func TestExportRoundTrip(t *testing.T) {
	in := []domain.Answer{
		{Question: "Legal name", Answer: "Acme Corp", NeedsAssignment: false},
		{Question: "DUNS number", Answer: "The information is not available.", NeedsAssignment: true},
		{Question: "Address", Answer: "1 Main St", NeedsAssignment: false},
	}
	raw, err := Export(in)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	out, err := ParseExport(raw)
	if err != nil {
		t.Fatalf("ParseExport: %v", err)
	}
	if !reflect.DeepEqual(in, out) {
		t.Fatalf("round trip mismatch:\nin=%+v\nout=%+v", in, out)
	}
}

func TestExportEmptyIsArray(t *testing.T) {
	raw, err := Export(nil)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if string(raw) != "[]" {
		t.Fatalf("got %s", raw)
	}
}

func TestParseExportRejectsObject(t *testing.T) {
	if _, err := ParseExport([]byte(`{"items":[]}`)); err == nil {
		t.Fatalf("expected error for object document")
	}
}
