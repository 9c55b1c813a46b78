package questionnaire

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/yungbote/dossier-backend/internal/domain"
)

// StructureAndValidate turns decoded model output into a question tree.
//
// Each element must be an object with "question", "type" and "instructions".
// Elements that are not are dropped and reported. A "parent" naming an
// earlier root question (exact text match) nests the element under it; a
// parent that matches nothing leaves the element at the root.
func StructureAndValidate(items []any) ([]domain.Question, []ValidationError) {
	var (
		roots []domain.Question
		notes []ValidationError
	)
	for i, item := range items {
		path := strconv.Itoa(i)
		q, parent, errs := parseQuestion(path, item)
		notes = append(notes, errs...)
		if q == nil {
			continue
		}
		if parent == "" {
			roots = append(roots, *q)
			continue
		}
		attached := false
		for r := range roots {
			if roots[r].Text == parent {
				roots[r].SubQuestions = append(roots[r].SubQuestions, *q)
				attached = true
				break
			}
		}
		if !attached {
			notes = append(notes, ValidationError{Path: path, Reason: fmt.Sprintf("parent %q not found; kept as a top-level question", parent)})
			roots = append(roots, *q)
		}
	}
	if roots == nil {
		roots = []domain.Question{}
	}
	return roots, notes
}

func parseQuestion(path string, item any) (*domain.Question, string, []ValidationError) {
	obj, ok := item.(map[string]any)
	if !ok {
		return nil, "", []ValidationError{dropped(path, fmt.Sprintf("not an object (%T)", item))}
	}
	for _, key := range []string{"question", "type", "instructions"} {
		if _, ok := obj[key]; !ok {
			return nil, "", []ValidationError{dropped(path, "missing required field "+strconv.Quote(key))}
		}
	}
	text, ok := obj["question"].(string)
	if !ok || strings.TrimSpace(text) == "" {
		return nil, "", []ValidationError{dropped(path, "question must be a non-empty string")}
	}
	rawKind, ok := obj["type"].(string)
	if !ok {
		return nil, "", []ValidationError{dropped(path, "type must be a string")}
	}
	instructions, ok := stringOrEmpty(obj["instructions"])
	if !ok {
		return nil, "", []ValidationError{dropped(path, "instructions must be a string")}
	}

	var notes []ValidationError
	kind, known := domain.NormalizeKind(rawKind)
	if !known {
		notes = append(notes, ValidationError{Path: path, Reason: fmt.Sprintf("type %q unrecognised; kept as text", rawKind)})
	}

	q := &domain.Question{Text: text, Kind: kind, Instructions: instructions}
	if kind == domain.QuestionMultipleChoice {
		q.Options = parseOptions(obj["options"])
	}
	if subs, ok := obj["sub_questions"].([]any); ok {
		for j, sub := range subs {
			child, _, errs := parseQuestion(path+".sub_questions."+strconv.Itoa(j), sub)
			notes = append(notes, errs...)
			if child != nil {
				q.SubQuestions = append(q.SubQuestions, *child)
			}
		}
	}
	parent, _ := stringOrEmpty(obj["parent"])
	return q, strings.TrimSpace(parent), notes
}

func dropped(path, reason string) ValidationError {
	return ValidationError{Path: path, Reason: reason, Dropped: true}
}

func stringOrEmpty(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", true
	case string:
		return t, true
	default:
		return "", false
	}
}

func parseOptions(v any) []string {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, o := range list {
		switch t := o.(type) {
		case string:
			if s := strings.TrimSpace(t); s != "" {
				out = append(out, s)
			}
		case nil:
		default:
			out = append(out, fmt.Sprint(t))
		}
	}
	return out
}

// FormatQuestions returns the persisted shape of a tree: options survive only
// on multiple choice questions, an empty type becomes text.
func FormatQuestions(qs []domain.Question) []domain.Question {
	out := make([]domain.Question, 0, len(qs))
	for _, q := range qs {
		f := domain.Question{Text: q.Text, Kind: q.Kind, Instructions: q.Instructions}
		if f.Kind == "" {
			f.Kind = domain.QuestionText
		}
		if f.Kind == domain.QuestionMultipleChoice && len(q.Options) > 0 {
			f.Options = append([]string(nil), q.Options...)
		}
		if len(q.SubQuestions) > 0 {
			f.SubQuestions = FormatQuestions(q.SubQuestions)
		}
		out = append(out, f)
	}
	return out
}
