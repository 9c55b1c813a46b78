package questionnaire

import "fmt"

type ContractReason string

const (
	ReasonEmptyResponse    ContractReason = "empty_response"
	ReasonNoArray          ContractReason = "no_array"
	ReasonInvalidJSON      ContractReason = "invalid_json"
	ReasonCompletionFailed ContractReason = "completion_failed"
)

// ModelContractError means the completion did not contain a usable JSON array.
type ModelContractError struct {
	Reason ContractReason
	Detail string
	Err    error
}

func (e *ModelContractError) Error() string {
	msg := "model output contract violated (" + string(e.Reason) + ")"
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ModelContractError) Unwrap() error { return e.Err }

// ValidationError describes a problem with one element of the model's array.
// Path is the element's position, e.g. "3" or "3.sub_questions.0". Dropped is
// false for repairs (type coercion, dangling parent) that kept the element.
type ValidationError struct {
	Path    string
	Reason  string
	Dropped bool
}

func (e ValidationError) Error() string {
	if e.Dropped {
		return fmt.Sprintf("question %s dropped: %s", e.Path, e.Reason)
	}
	return fmt.Sprintf("question %s: %s", e.Path, e.Reason)
}
