package qdrant

import (
	"fmt"
	"strings"

	"github.com/yungbote/dossier-backend/internal/platform/httpx"
)

// Operation names the vector store call that failed.
type Operation string

const (
	OpUpsert          Operation = "upsert"
	OpSearch          Operation = "search"
	OpScroll          Operation = "scroll"
	OpFetch           Operation = "fetch"
	OpDelete          Operation = "delete"
	OpPing            Operation = "ping"
	OpVerifyBootstrap Operation = "bootstrap_verify"
	OpFilterTranslate Operation = "filter_translate"
)

type OperationErrorCode string

const (
	OperationErrorValidation        OperationErrorCode = "validation_failed"
	OperationErrorUnsupportedFilter OperationErrorCode = "unsupported_filter"
	OperationErrorEncodeFailed      OperationErrorCode = "encode_failed"
	OperationErrorDecodeFailed      OperationErrorCode = "decode_failed"
	OperationErrorTransportFailed   OperationErrorCode = "transport_failed"
	OperationErrorTimeout           OperationErrorCode = "timeout"
	OperationErrorRequestFailed     OperationErrorCode = "request_failed"
)

// OperationError is returned by every qdrant call. StatusCode is zero when
// no HTTP response was received.
type OperationError struct {
	Code       OperationErrorCode
	Operation  Operation
	StatusCode int
	Message    string
	Cause      error
}

func (e *OperationError) Error() string {
	if e == nil {
		return "qdrant operation failed"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "qdrant %s failed (code=%s", e.Operation, e.Code)
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " status=%d", e.StatusCode)
	}
	b.WriteString(")")
	switch {
	case e.Message != "":
		b.WriteString(": " + e.Message)
	case e.Cause != nil:
		b.WriteString(": " + e.Cause.Error())
	}
	return b.String()
}

func (e *OperationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func (e *OperationError) HTTPStatusCode() int {
	if e == nil {
		return 0
	}
	return e.StatusCode
}

// Unreachable reports whether the call never got an answer from qdrant.
func (e *OperationError) Unreachable() bool {
	return e != nil && (e.Code == OperationErrorTransportFailed || e.Code == OperationErrorTimeout)
}

// Retryable reports whether repeating the same call could succeed.
// Filter and validation failures never are.
func (e *OperationError) Retryable() bool {
	if e == nil {
		return false
	}
	if e.Unreachable() {
		return true
	}
	return e.Code == OperationErrorRequestFailed && httpx.IsRetryableHTTPStatus(e.StatusCode)
}

func opErr(op Operation, code OperationErrorCode, msg string, cause error) error {
	return &OperationError{Code: code, Operation: op, Message: msg, Cause: cause}
}

func statusErr(op Operation, status int, msg string) error {
	return &OperationError{Code: OperationErrorRequestFailed, Operation: op, StatusCode: status, Message: msg}
}
