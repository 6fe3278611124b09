package models

import (
	"errors"
	"fmt"
)

// ErrorKind classifies an AppError so transports can map it to a status code
type ErrorKind string

const (
	KindValidation    ErrorKind = "VALIDATION_ERROR"
	KindPrecondition  ErrorKind = "PRECONDITION_ERROR"
	KindResource      ErrorKind = "RESOURCE_ERROR"
	KindAuthorization ErrorKind = "AUTHORIZATION_ERROR"
	KindNotFound      ErrorKind = "NOT_FOUND"
)

// AppError is a typed failure returned by the matching, unlock and channel services
type AppError struct {
	Kind    ErrorKind `json:"error_type"`
	Code    string    `json:"error_code"`
	Message string    `json:"message"`
	Field   string    `json:"field,omitempty"`
}

func (e *AppError) Error() string {
	return e.Message
}

// Is matches on Kind and Code so a field-annotated copy still equals its sentinel
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Code == t.Code
}

// WithField returns a copy of the error bound to a request field
func (e *AppError) WithField(field string) *AppError {
	c := *e
	c.Field = field
	return &c
}

// WithMessage returns a copy of the error carrying a more specific message
func (e *AppError) WithMessage(format string, args ...interface{}) *AppError {
	c := *e
	c.Message = fmt.Sprintf(format, args...)
	return &c
}

// Error codes
const (
	ErrorCodeInvalidField       = "INVALID_FIELD"
	ErrorCodeInvalidWeight      = "INVALID_WEIGHT"
	ErrorCodeCapacityExceeded   = "CAPACITY_EXCEEDED"
	ErrorCodeDescriptionShort   = "DESCRIPTION_TOO_SHORT"
	ErrorCodeEmptyContent       = "EMPTY_CONTENT"
	ErrorCodeUnlockRequired     = "UNLOCK_REQUIRED"
	ErrorCodeChannelLocked      = "CHANNEL_LOCKED"
	ErrorCodeInvalidTransition  = "INVALID_TRANSITION"
	ErrorCodeOfferUnavailable   = "OFFER_UNAVAILABLE"
	ErrorCodeInsufficientCredit = "INSUFFICIENT_CREDIT"
	ErrorCodeNotParticipant     = "NOT_PARTICIPANT"
	ErrorCodeNotOwner           = "NOT_OWNER"
	ErrorCodeNotFound           = "NOT_FOUND"
	ErrorCodeSlowConsumer       = "SLOW_CONSUMER"
)

var (
	ErrInvalidField       = &AppError{Kind: KindValidation, Code: ErrorCodeInvalidField, Message: "invalid field"}
	ErrInvalidWeight      = &AppError{Kind: KindValidation, Code: ErrorCodeInvalidWeight, Message: "weight must be greater than zero"}
	ErrCapacityExceeded   = &AppError{Kind: KindValidation, Code: ErrorCodeCapacityExceeded, Message: "weight exceeds available capacity"}
	ErrDescriptionShort   = &AppError{Kind: KindValidation, Code: ErrorCodeDescriptionShort, Message: "package description must be at least 10 characters"}
	ErrEmptyContent       = &AppError{Kind: KindValidation, Code: ErrorCodeEmptyContent, Message: "message content cannot be empty"}
	ErrUnlockRequired     = &AppError{Kind: KindPrecondition, Code: ErrorCodeUnlockRequired, Message: "contact must be unlocked first"}
	ErrChannelLocked      = &AppError{Kind: KindPrecondition, Code: ErrorCodeChannelLocked, Message: "chat is locked 24 hours after departure"}
	ErrInvalidTransition  = &AppError{Kind: KindPrecondition, Code: ErrorCodeInvalidTransition, Message: "match status does not allow this operation"}
	ErrOfferUnavailable   = &AppError{Kind: KindPrecondition, Code: ErrorCodeOfferUnavailable, Message: "trip is no longer accepting packages"}
	ErrInsufficientCredit = &AppError{Kind: KindResource, Code: ErrorCodeInsufficientCredit, Message: "insufficient credit balance"}
	ErrSlowConsumer       = &AppError{Kind: KindResource, Code: ErrorCodeSlowConsumer, Message: "subscription dropped: consumer too slow"}
	ErrNotParticipant     = &AppError{Kind: KindAuthorization, Code: ErrorCodeNotParticipant, Message: "caller is not a participant of this match"}
	ErrNotOwner           = &AppError{Kind: KindAuthorization, Code: ErrorCodeNotOwner, Message: "caller does not own this resource"}
	ErrNotFound           = &AppError{Kind: KindNotFound, Code: ErrorCodeNotFound, Message: "resource not found"}
)

// KindOf reports the kind of err, or KindResource for untyped infrastructure failures
func KindOf(err error) ErrorKind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindResource
}
