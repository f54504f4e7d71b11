package relayerrors

import (
	"errors"
	"fmt"
)

// ErrorCode identifies the kind of failure independent of its message.
type ErrorCode string

const (
	UnknownImage            ErrorCode = "UnknownImage"
	InvalidBackendConfig    ErrorCode = "InvalidBackendConfig"
	InvalidInput            ErrorCode = "InvalidInput"
	ExecutionFailed         ErrorCode = "ExecutionFailed"
	UploadFailed            ErrorCode = "UploadFailed"
	SubmissionFailed        ErrorCode = "SubmissionFailed"
	StatusQueryTransient    ErrorCode = "StatusQueryTransient"
	MissingReceiptLocation  ErrorCode = "MissingReceiptLocation"
	DownloadFailed          ErrorCode = "DownloadFailed"
	ReceiptDecodeFailed     ErrorCode = "ReceiptDecodeFailed"
	BadJobStatus            ErrorCode = "BadJobStatus"
	ChainSubscriptionFailed ErrorCode = "ChainSubscriptionFailed"
	TransactionFailed       ErrorCode = "TransactionFailed"
)

// Error is the error type returned across package boundaries in the relay.
// The message is what Error() reports; the wrapped cause is kept for
// errors.Is/As.
type Error struct {
	code      ErrorCode
	message   string
	hint      string
	retryable bool
	details   map[string]string
	cause     error
}

// New creates an error with the given code. The message may contain
// format verbs.
func New(code ErrorCode, format string, a ...any) *Error {
	return &Error{
		code:    code,
		message: fmt.Sprintf(format, a...),
	}
}

// Wrap creates a coded error around cause. A nil cause returns nil.
func Wrap(cause error, code ErrorCode, format string, a ...any) *Error {
	if cause == nil {
		return nil
	}
	return &Error{
		code:    code,
		message: fmt.Sprintf(format, a...),
		cause:   cause,
	}
}

func (e *Error) Error() string {
	if e.cause == nil {
		return e.message
	}
	return e.message + ": " + e.cause.Error()
}

func (e *Error) Unwrap() error {
	return e.cause
}

func (e *Error) Code() ErrorCode {
	return e.code
}

func (e *Error) Hint() string {
	return e.hint
}

func (e *Error) Retryable() bool {
	return e.retryable
}

func (e *Error) Details() map[string]string {
	return e.details
}

// WithHint adds a user facing suggestion on how to fix the error.
func (e *Error) WithHint(format string, a ...any) *Error {
	e.hint = fmt.Sprintf(format, a...)
	return e
}

// WithRetryable marks the error as one the caller may retry.
func (e *Error) WithRetryable() *Error {
	e.retryable = true
	return e
}

// WithDetails merges details into the error.
func (e *Error) WithDetails(details map[string]string) *Error {
	if e.details == nil {
		e.details = make(map[string]string, len(details))
	}
	for k, v := range details {
		e.details[k] = v
	}
	return e
}

// WithDetail adds a single detail to the error.
func (e *Error) WithDetail(key, value string) *Error {
	return e.WithDetails(map[string]string{key: value})
}

// Is matches any coded error with the same code, regardless of message.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.code == e.code
}

// Is reports whether any error in err's chain carries the given code.
func Is(err error, code ErrorCode) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}
		if e.code == code {
			return true
		}
		err = e.cause
	}
	return false
}

// CodeOf returns the code of the outermost coded error in err's chain, or
// the empty code when there is none.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.code
	}
	return ""
}
