package domain

import "strings"

type QuestionKind string

const (
	QuestionText           QuestionKind = "text"
	QuestionNumber         QuestionKind = "number"
	QuestionDate           QuestionKind = "date"
	QuestionYesNo          QuestionKind = "yes/no"
	QuestionMultipleChoice QuestionKind = "multiple choice"
	QuestionFileUpload     QuestionKind = "file upload"
)

var questionKinds = map[QuestionKind]struct{}{
	QuestionText:           {},
	QuestionNumber:         {},
	QuestionDate:           {},
	QuestionYesNo:          {},
	QuestionMultipleChoice: {},
	QuestionFileUpload:     {},
}

// NormalizeKind lowercases raw and maps anything unrecognised to text.
// The second return is false when coercion happened.
func NormalizeKind(raw string) (QuestionKind, bool) {
	k := QuestionKind(strings.ToLower(strings.TrimSpace(raw)))
	if k == "multiple-choice" {
		k = QuestionMultipleChoice
	}
	if k == "file-upload" {
		k = QuestionFileUpload
	}
	if _, ok := questionKinds[k]; ok {
		return k, true
	}
	return QuestionText, false
}

type Question struct {
	Text         string       `json:"question"`
	Kind         QuestionKind `json:"type"`
	Instructions string       `json:"instructions"`
	Options      []string     `json:"options,omitempty"`
	SubQuestions []Question   `json:"sub_questions,omitempty"`
}

// Clone returns a deep copy.
func (q Question) Clone() Question {
	out := q
	if q.Options != nil {
		out.Options = append([]string(nil), q.Options...)
	}
	if q.SubQuestions != nil {
		out.SubQuestions = CloneQuestions(q.SubQuestions)
	}
	return out
}

func CloneQuestions(qs []Question) []Question {
	if qs == nil {
		return nil
	}
	out := make([]Question, len(qs))
	for i := range qs {
		out[i] = qs[i].Clone()
	}
	return out
}

// Flatten walks the tree depth-first, each parent before its sub-questions.
// Returned questions carry no SubQuestions.
func Flatten(qs []Question) []Question {
	out := make([]Question, 0, len(qs))
	var walk func([]Question)
	walk = func(level []Question) {
		for _, q := range level {
			flat := q.Clone()
			flat.SubQuestions = nil
			out = append(out, flat)
			walk(q.SubQuestions)
		}
	}
	walk(qs)
	return out
}

const DefaultQuestionnaireTitle = "New Questionnaire"

type Questionnaire struct {
	ID        string     `json:"id,omitempty"`
	Title     string     `json:"title"`
	Questions []Question `json:"questions"`
}

// NewQuestionnaire returns an empty, unsaved questionnaire.
func NewQuestionnaire() Questionnaire {
	return Questionnaire{Title: DefaultQuestionnaireTitle, Questions: []Question{}}
}
