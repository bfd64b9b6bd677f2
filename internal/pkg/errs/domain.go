package errs

import (
	"errors"
	"net/http"
)

// Kind is the closed set of domain error variants. Every error that crosses the
// usecase boundary is one of these; translation to HTTP happens only in the
// handler layer.
type Kind string

const (
	KindValidation Kind = "VALIDATION"
	KindNotFound   Kind = "NOT_FOUND"
	KindConflict   Kind = "CONFLICT"
	KindAuth       Kind = "AUTH"
	KindInvariant  Kind = "INVARIANT_VIOLATION"
)

type DomainError struct {
	kind    Kind
	status  int
	code    string
	message string
	detail  any
	err     error
}

func (e *DomainError) Error() string {
	if e.err != nil {
		return e.code + ": " + e.message + ": " + e.err.Error()
	}
	return e.code + ": " + e.message
}

func (e *DomainError) Unwrap() error { return e.err }
func (e *DomainError) Kind() Kind { return e.kind }
func (e *DomainError) Status() int { return e.status }
func (e *DomainError) Code() string { return e.code }
func (e *DomainError) Message() string { return e.message }
func (e *DomainError) Detail() any { return e.detail }

func (e *DomainError) WithDetail(detail any) *DomainError {
	clone := *e
	clone.detail = detail
	return &clone
}

func (e *DomainError) WithCause(err error) *DomainError {
	clone := *e
	clone.err = err
	return &clone
}

// Is makes sentinel comparison work across WithDetail/WithCause clones.
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if !errors.As(target, &t) {
		return false
	}
	return e.kind == t.kind && e.code == t.code
}

func Validation(code, message string) *DomainError {
	return &DomainError{kind: KindValidation, status: http.StatusBadRequest, code: code, message: message}
}

func NotFound(code, message string) *DomainError {
	return &DomainError{kind: KindNotFound, status: http.StatusNotFound, code: code, message: message}
}

func Conflict(code, message string) *DomainError {
	return &DomainError{kind: KindConflict, status: http.StatusConflict, code: code, message: message}
}

func Unauthorized(code, message string) *DomainError {
	return &DomainError{kind: KindAuth, status: http.StatusUnauthorized, code: code, message: message}
}

func Forbidden(code, message string) *DomainError {
	return &DomainError{kind: KindAuth, status: http.StatusForbidden, code: code, message: message}
}

// Invariant is reserved for post-condition failures in the completion
// transaction. Detail must carry the full diagnostic context (ids, observed
// state) because these indicate a bug, not a recoverable condition.
func Invariant(code, message string) *DomainError {
	return &DomainError{kind: KindInvariant, status: http.StatusInternalServerError, code: code, message: message}
}

func AsDomain(err error) (*DomainError, bool) {
	var de *DomainError
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}
