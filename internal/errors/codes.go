// Package errors provides machine-readable error codes and the user-visible
// rejection messages the bot replies with.
package errors

import stderrors "errors"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Session lifecycle errors
	CodeSessionAlreadyOpen Code = "SESSION_ALREADY_OPEN"
	CodeNoActiveSession    Code = "SESSION_NOT_ACTIVE"
	CodeLobbyNotOpen       Code = "SESSION_LOBBY_NOT_OPEN"
	CodeGameNotStarted     Code = "SESSION_GAME_NOT_STARTED"

	// Roster errors
	CodeLobbyFull      Code = "ROSTER_LOBBY_FULL"
	CodeHostCannotJoin Code = "ROSTER_HOST_CANNOT_JOIN"
	CodeAlreadyJoined  Code = "ROSTER_ALREADY_JOINED"
	CodeRosterTooSmall Code = "ROSTER_TOO_SMALL"

	// Day sequence errors
	CodeEmptyKeyword        Code = "TOPIC_EMPTY_KEYWORD"
	CodeTopicAlreadySent    Code = "TOPIC_ALREADY_SENT"
	CodeTopicNotSent        Code = "TOPIC_NOT_SENT"
	CodeDayAlreadyAnnounced Code = "DAY_ALREADY_ANNOUNCED"
	CodeDayOutOfOrder       Code = "DAY_OUT_OF_ORDER"
	CodeInvalidDay          Code = "DAY_INVALID"

	// Authorization errors
	CodeNotHost       Code = "AUTH_NOT_HOST"
	CodeNotAuthorized Code = "AUTH_NOT_AUTHORIZED"
	CodeOwnerOnly     Code = "AUTH_OWNER_ONLY"
	CodeAdminOnly     Code = "AUTH_ADMIN_ONLY"

	// Delivery errors
	CodeDeliveryFailed Code = "DELIVERY_FAILED"

	// Licensing errors
	CodeGuildNotRegistered     Code = "LICENSE_GUILD_NOT_REGISTERED"
	CodeGuildAlreadyRegistered Code = "LICENSE_GUILD_ALREADY_REGISTERED"
	CodeInvalidActivationCode  Code = "LICENSE_INVALID_CODE"
	CodeInvalidCodeCount       Code = "LICENSE_INVALID_CODE_COUNT"

	// Storage errors
	CodeNotFound Code = "NOT_FOUND"
)

// Error pairs a code with an underlying cause.
type Error struct {
	Code Code
	Err  error
}

// New creates an Error with the given code and cause.
func New(code Code, err error) *Error {
	return &Error{Code: code, Err: err}
}

// Error returns the underlying cause, or the code when no cause is set.
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Code)
}

// Unwrap exposes the underlying cause for errors.Is/As chains.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// CodeOf extracts the code from err, or CodeUnknown when none is attached.
func CodeOf(err error) Code {
	var coded *Error
	if stderrors.As(err, &coded) && coded != nil {
		return coded.Code
	}
	return CodeUnknown
}
