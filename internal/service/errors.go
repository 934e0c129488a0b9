package service

import (
	"errors"
	"fmt"

	"altenheim-avatar/internal/common/database"
)

// Kind classifies a service error; the HTTP layer maps it to a status code.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindUnauthenticated
	KindForbidden
	KindNotFound
	KindStorageUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindUnauthenticated:
		return "unauthenticated"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindStorageUnavailable:
		return "storage_unavailable"
	}
	return "internal"
}

// Error is a classified error with a message safe to show to the caller.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the kind of err, KindInternal when it is not a *Error.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindInternal
}

func validationError(msg string) error { return &Error{Kind: KindValidation, Message: msg} }
func forbiddenError(msg string) error  { return &Error{Kind: KindForbidden, Message: msg} }
func notFoundError(msg string) error   { return &Error{Kind: KindNotFound, Message: msg} }
func unauthenticated(msg string) error { return &Error{Kind: KindUnauthenticated, Message: msg} }
func internalError(err error) error {
	return &Error{Kind: KindInternal, Message: "Internal server error.", Err: err}
}
func storageUnavailable(err error) error {
	return &Error{Kind: KindStorageUnavailable, Message: "Service degraded, please try again later.", Err: err}
}

// storageError classifies a repository failure.
func storageError(err error) error {
	if database.IsUnavailable(err) {
		return storageUnavailable(err)
	}
	return internalError(err)
}

// Caller-facing messages.
const (
	msgResidentNotFound     = "Resident not found."
	msgConversationNotFound = "Conversation not found."
	msgNoResidentAccess     = "No access to this resident."
	msgNoConversationAccess = "No access to this conversation."
	msgNoPermission         = "You do not have permission for this action."
)
