package questionnaire

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/yungbote/dossier-backend/internal/domain"
	"github.com/yungbote/dossier-backend/internal/modules/gateway"
	"github.com/yungbote/dossier-backend/internal/platform/logger"
)

const DefaultExtractBudget = 3000

const extractSystemPrompt = "You are an AI assistant specialized in analyzing forms and questionnaires. Your response must be a valid JSON array of objects, nothing else."

const extractUserPrompt = `Analyze the following form or questionnaire content and extract ALL items of information being requested, including main questions, sub-questions, and any grouped questions.
For each item, provide:
1. The exact question or field name as it appears in the document.
2. The type of information requested (e.g., text, number, date, yes/no, multiple choice, file upload, etc.).
3. Any additional instructions or context provided for the question.
4. If it's a sub-question or part of a group, indicate the parent question or group name.
5. Any options provided for multiple choice questions.
Your response must be a valid JSON array of objects. Each object should represent a question or field.
Use the keys "question", "type", "instructions", "parent" and "options".
Do not include any explanatory text outside the JSON array.
Ensure the response starts with '[' and ends with ']'.
Document content:
%s`

// Result is the outcome of one extraction. Questions is never nil; when it is
// empty, Contract or Issues say why.
type Result struct {
	Questions []domain.Question
	Contract  *ModelContractError
	Issues    []ValidationError
}

func (r Result) Diagnostics() []string {
	var out []string
	if r.Contract != nil {
		out = append(out, r.Contract.Error())
	}
	for _, issue := range r.Issues {
		out = append(out, issue.Error())
	}
	if r.Contract == nil && len(r.Questions) == 0 {
		out = append(out, "no valid questions were extracted from the questionnaire")
	}
	return out
}

func (r Result) outcome() string {
	switch {
	case r.Contract != nil:
		return string(r.Contract.Reason)
	case len(r.Questions) == 0:
		return "empty"
	default:
		return "ok"
	}
}

type Extractor struct {
	log    *logger.Logger
	gw     gateway.Gateway
	budget int
}

func NewExtractor(log *logger.Logger, gw gateway.Gateway, budget int) (*Extractor, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if gw == nil {
		return nil, fmt.Errorf("gateway required")
	}
	if budget <= 0 {
		budget = DefaultExtractBudget
	}
	return &Extractor{log: log.With("service", "QuestionnaireExtractor"), gw: gw, budget: budget}, nil
}

// Extract asks the model for the questions in text. It never fails: problems
// with the model's output are reported on the Result.
func (e *Extractor) Extract(ctx context.Context, text string) Result {
	content := domain.Truncate(text, e.budget)
	reply, err := e.gw.Complete(ctx, gateway.Messages(extractSystemPrompt, fmt.Sprintf(extractUserPrompt, content)))
	if err != nil {
		return e.fail(&ModelContractError{Reason: ReasonCompletionFailed, Err: err})
	}
	e.log.Debug("Extraction response received", "chars", len(reply))

	raw, err := FindJSONArray(reply)
	if err != nil {
		var mce *ModelContractError
		if !errors.As(err, &mce) {
			mce = &ModelContractError{Reason: ReasonInvalidJSON, Err: err}
		}
		return e.fail(mce)
	}
	var items []any
	if err := json.Unmarshal(raw, &items); err != nil {
		return e.fail(&ModelContractError{Reason: ReasonInvalidJSON, Err: err})
	}

	questions, issues := StructureAndValidate(items)
	for _, issue := range issues {
		e.log.Warn("Question validation", "path", issue.Path, "reason", issue.Reason, "dropped", issue.Dropped)
	}
	e.log.Info("Questionnaire extracted", "items", len(items), "questions", len(questions), "issues", len(issues))
	return Result{Questions: questions, Issues: issues}
}

func (e *Extractor) fail(mce *ModelContractError) Result {
	e.log.Warn("Questionnaire extraction failed", "reason", mce.Reason, "error", mce.Error())
	return Result{Questions: []domain.Question{}, Contract: mce}
}
