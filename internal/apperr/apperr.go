// Package apperr defines the error taxonomy shared by the service layer and
// the HTTP API.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure.
type Kind int

const (
	// KindInternal is an unclassified failure.
	KindInternal Kind = iota
	// KindValidation is a malformed request, rejected before any core logic runs.
	KindValidation
	// KindNotFound is an unknown tenant or file.
	KindNotFound
	// KindConflict is a create that collides with an existing tenant.
	KindConflict
	// KindPrecondition is a request the tenant's current state cannot serve.
	KindPrecondition
	// KindBuild is an index build failure; the tenant is left FAILED.
	KindBuild
	// KindProvider is an embedding or generation failure outside a build.
	KindProvider
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindPrecondition:
		return "precondition"
	case KindBuild:
		return "build"
	case KindProvider:
		return "provider"
	default:
		return "internal"
	}
}

// Error is a classified failure with a user-facing message.
type Error struct {
	Kind    Kind
	Tenant  string
	Message string
	Err     error
}

// Error returns the user-facing message, or the wrapped error's text when
// no message was set.
func (e *Error) Error() string {
	if e.Err != nil && e.Message == "" {
		return e.Err.Error()
	}
	return e.Message
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.Err
}

func newf(kind Kind, tenant string, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Tenant: tenant, Message: fmt.Sprintf(format, args...)}
}

// Validation reports a malformed request.
func Validation(tenant, format string, args ...interface{}) *Error {
	return newf(KindValidation, tenant, format, args...)
}

// NotFound reports an unknown tenant.
func NotFound(tenant string) *Error {
	return newf(KindNotFound, tenant, "App '%s' not found", tenant)
}

// FileNotFound reports an unknown file of a known tenant.
func FileNotFound(tenant, filename string) *Error {
	return newf(KindNotFound, tenant, "File '%s' not found in app '%s'", filename, tenant)
}

// Conflict reports a duplicate tenant.
func Conflict(tenant string) *Error {
	return newf(KindConflict, tenant, "App '%s' already exists", tenant)
}

// Precondition reports an operation the tenant's state does not allow.
func Precondition(tenant, format string, args ...interface{}) *Error {
	return newf(KindPrecondition, tenant, format, args...)
}

// Build wraps an index build failure.
func Build(tenant string, err error) *Error {
	return &Error{
		Kind:    KindBuild,
		Tenant:  tenant,
		Message: fmt.Sprintf("Training failed for app '%s': %v", tenant, err),
		Err:     err,
	}
}

// Provider wraps a retrieval or generation failure during chat.
func Provider(tenant string, err error) *Error {
	return &Error{
		Kind:    KindProvider,
		Tenant:  tenant,
		Message: fmt.Sprintf("Chat failed for app '%s': %v", tenant, err),
		Err:     err,
	}
}

// Internal wraps an unexpected failure.
func Internal(tenant string, err error) *Error {
	return &Error{Kind: KindInternal, Tenant: tenant, Message: err.Error(), Err: err}
}

// KindOf returns the Kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
