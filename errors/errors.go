// Package errors centralizes the sentinel errors shared across the
// application and their mapping to wire-level error kinds.
package errors

import (
	stderrors "errors"
	"fmt"
)

var (
	ErrValidation          = fmt.Errorf("validation failed")
	ErrPeerNotFound        = fmt.Errorf("peer not found")
	ErrAlreadyBound        = fmt.Errorf("session already bound to another identity")
	ErrStorage             = fmt.Errorf("storage failure")
	ErrNotFound            = fmt.Errorf("not found")
	ErrUserAlreadyExists   = fmt.Errorf("user already exists")
	ErrContactAlreadyAdded = fmt.Errorf("contact already added")
	ErrInvalidCredentials  = fmt.Errorf("invalid credentials")
	ErrInvalidPassword     = fmt.Errorf("invalid password")
	ErrTokenGeneration     = fmt.Errorf("failed to generate token")
	ErrTokenInvalid        = fmt.Errorf("invalid token")
	ErrWorkerPanic         = fmt.Errorf("worker panicked")
	ErrEmptyWords          = fmt.Errorf("censored word list is empty")
	ErrSearchDisabled      = fmt.Errorf("search index is disabled")
)

// Wire-level error kinds. Clients branch on the kind, not on the message.
const (
	KindValidation   = "validation"
	KindPeerNotFound = "peer_not_found"
	KindAlreadyBound = "already_bound"
	KindStorage      = "storage"
	KindNotFound     = "not_found"
	KindConflict     = "conflict"
	KindUnauthorized = "unauthorized"
	KindUnavailable  = "unavailable"
	KindInternal     = "internal"
)

// KindOf maps an error chain to its wire kind. Unknown errors are reported
// as internal so that storage details never leak to clients.
func KindOf(err error) string {
	switch {
	case stderrors.Is(err, ErrValidation), stderrors.Is(err, ErrInvalidPassword):
		return KindValidation
	case stderrors.Is(err, ErrPeerNotFound):
		return KindPeerNotFound
	case stderrors.Is(err, ErrAlreadyBound):
		return KindAlreadyBound
	case stderrors.Is(err, ErrStorage):
		return KindStorage
	case stderrors.Is(err, ErrNotFound):
		return KindNotFound
	case stderrors.Is(err, ErrUserAlreadyExists), stderrors.Is(err, ErrContactAlreadyAdded):
		return KindConflict
	case stderrors.Is(err, ErrInvalidCredentials), stderrors.Is(err, ErrTokenInvalid):
		return KindUnauthorized
	case stderrors.Is(err, ErrSearchDisabled):
		return KindUnavailable
	default:
		return KindInternal
	}
}
