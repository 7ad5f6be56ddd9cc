package model

import (
	"errors"
	"fmt"
)

// ErrorKind is the closed set of domain failures.  Handlers translate a
// kind into an HTTP status; everything outside the set is internal.
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindInvalidInput
	KindUserAlreadyExists
	KindUserNotFound
	KindUserWithEmailNotFound
	KindInvalidCredentials
	KindInvalidToken
	KindRefreshTokenRevoked
	KindPasswordsDontMatch
	KindForbidden
)

var kindCodes = map[ErrorKind]string{
	KindInternal:              "INTERNAL_ERROR",
	KindInvalidInput:          "INVALID_INPUT",
	KindUserAlreadyExists:     "USER_ALREADY_EXISTS",
	KindUserNotFound:          "USER_NOT_FOUND",
	KindUserWithEmailNotFound: "USER_WITH_EMAIL_NOT_FOUND",
	KindInvalidCredentials:    "INVALID_CREDENTIALS",
	KindInvalidToken:          "INVALID_TOKEN",
	KindRefreshTokenRevoked:   "REFRESH_TOKEN_REVOKED",
	KindPasswordsDontMatch:    "PASSWORDS_DONT_MATCH",
	KindForbidden:             "FORBIDDEN",
}

// Code returns the SCREAMING_SNAKE_CASE identifier sent to clients.
func (k ErrorKind) Code() string {
	if c, ok := kindCodes[k]; ok {
		return c
	}
	return kindCodes[KindInternal]
}

func (k ErrorKind) String() string { return k.Code() }

// Error is a domain failure with a client-safe message.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string { return e.Message }

// Is matches any *Error of the same kind, so callers can write
// errors.Is(err, model.ErrInvalidCredentials) regardless of message.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

func newError(kind ErrorKind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Sentinels for kinds whose message does not depend on input.
var (
	ErrInvalidCredentials  = newError(KindInvalidCredentials, "Invalid email or password")
	ErrInvalidToken        = newError(KindInvalidToken, "Invalid token")
	ErrRefreshTokenRevoked = newError(KindRefreshTokenRevoked, "Refresh token has been revoked or expired")
	ErrPasswordsDontMatch  = newError(KindPasswordsDontMatch, "Passwords do not match")
	ErrForbidden           = newError(KindForbidden, "Insufficient permissions")
	ErrMissingUserFields   = newError(KindInvalidInput, "All fields are required to create a user")
	ErrUnknownRole         = newError(KindInvalidInput, "Unknown role")

	// Kind-only markers for errors.Is checks against message-bearing kinds.
	ErrUserAlreadyExists     = newError(KindUserAlreadyExists, "User already exists")
	ErrUserNotFound          = newError(KindUserNotFound, "User not found")
	ErrUserWithEmailNotFound = newError(KindUserWithEmailNotFound, "User with email not found")
)

// UserAlreadyExists reports a registration conflict on name or email.
func UserAlreadyExists(identifier string) error {
	return newError(KindUserAlreadyExists, fmt.Sprintf("User '%s' already exists", identifier))
}

// UserNotFound reports a missing user looked up by id.
func UserNotFound(identifier string) error {
	return newError(KindUserNotFound, fmt.Sprintf("User with identifier '%s' not found", identifier))
}

// UserWithEmailNotFound reports a missing user looked up by email.
func UserWithEmailNotFound(email string) error {
	return newError(KindUserWithEmailNotFound, fmt.Sprintf("User with email '%s' not found", email))
}

// InvalidToken returns an InvalidToken error with a custom message.
func InvalidToken(msg string) error {
	return newError(KindInvalidToken, msg)
}

// InvalidInput reports a malformed request.
func InvalidInput(msg string) error {
	return newError(KindInvalidInput, msg)
}

// KindOf returns the kind of the first *Error in err's chain, or
// KindInternal when there is none.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
