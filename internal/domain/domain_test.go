package domain

import (
	"strings"
	"testing"
)

func TestNormalizeKind(t *testing.T) {
	cases := map[string]QuestionKind{
		"Text":            QuestionText,
		"YES/NO":          QuestionYesNo,
		"multiple choice": QuestionMultipleChoice,
		"Multiple-Choice": QuestionMultipleChoice,
		"essay":           QuestionText,
		"":                QuestionText,
	}
	for raw, want := range cases {
		got, _ := NormalizeKind(raw)
		if got != want {
			t.Fatalf("NormalizeKind(%q): want=%q got=%q", raw, want, got)
		}
	}
	if _, ok := NormalizeKind("essay"); ok {
		t.Fatalf("essay should report coercion")
	}
}

func TestFlattenDepthFirst(t *testing.T) {
	tree := []Question{
		{Text: "A", SubQuestions: []Question{
			{Text: "A.1", SubQuestions: []Question{{Text: "A.1.a"}}},
			{Text: "A.2"},
		}},
		{Text: "B"},
	}
	flat := Flatten(tree)
	var got []string
	for _, q := range flat {
		if len(q.SubQuestions) != 0 {
			t.Fatalf("%s kept sub-questions", q.Text)
		}
		got = append(got, q.Text)
	}
	if strings.Join(got, ",") != "A,A.1,A.1.a,A.2,B" {
		t.Fatalf("order: %v", got)
	}
	if len(tree[0].SubQuestions) != 2 {
		t.Fatalf("input tree mutated")
	}
}

func TestTruncateCountsRunes(t *testing.T) {
	if got := Truncate("héllo", 2); got != "hé" {
		t.Fatalf("got %q", got)
	}
	if got := Truncate("abc", 10); got != "abc" {
		t.Fatalf("got %q", got)
	}
	if got := Truncate("abc", 0); got != "" {
		t.Fatalf("got %q", got)
	}
}

func TestSnippet(t *testing.T) {
	long := strings.Repeat("x", 301)
	if got := Snippet(long); got != strings.Repeat("x", 300)+"..." {
		t.Fatalf("long snippet wrong, len=%d", len(got))
	}
	if got := Snippet("short"); got != "short" {
		t.Fatalf("got %q", got)
	}
}
