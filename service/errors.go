package service

import (
	"errors"
	"fmt"
)

// ErrorKind classifies engine failures so callers can react without
// parsing messages.
type ErrorKind string

const (
	KindInvalidArgument ErrorKind = "invalid_argument"
	KindInvalidState    ErrorKind = "invalid_state"
	KindNotFound        ErrorKind = "not_found"
	KindConflict        ErrorKind = "conflict"
	KindAlreadyAwarded  ErrorKind = "already_awarded"
)

// Error is a structured engine error: kind plus the offending entity,
// field or lifecycle state. Every user-visible failure carries a cause.
type Error struct {
	Kind   ErrorKind `json:"kind"`
	Entity string    `json:"entity,omitempty"`
	ID     string    `json:"id,omitempty"`
	Field  string    `json:"field,omitempty"`
	State  string    `json:"state,omitempty"`
	Msg    string    `json:"message"`
}

func (e *Error) Error() string {
	switch {
	case e.ID != "" && e.State != "":
		return fmt.Sprintf("%s: %s %s (state %s): %s", e.Kind, e.Entity, e.ID, e.State, e.Msg)
	case e.ID != "":
		return fmt.Sprintf("%s: %s %s: %s", e.Kind, e.Entity, e.ID, e.Msg)
	case e.Field != "":
		return fmt.Sprintf("%s: %s.%s: %s", e.Kind, e.Entity, e.Field, e.Msg)
	default:
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Entity, e.Msg)
	}
}

// KindOf extracts the error kind, or "" for non-engine errors
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func invalidArgument(entity, field, msg string) *Error {
	return &Error{Kind: KindInvalidArgument, Entity: entity, Field: field, Msg: msg}
}

func invalidState(entity, id, state, msg string) *Error {
	return &Error{Kind: KindInvalidState, Entity: entity, ID: id, State: state, Msg: msg}
}

func notFound(entity, id string) *Error {
	return &Error{Kind: KindNotFound, Entity: entity, ID: id, Msg: "does not exist"}
}

func conflict(entity, id, msg string) *Error {
	return &Error{Kind: KindConflict, Entity: entity, ID: id, Msg: msg}
}

func alreadyAwarded(tenderID string) *Error {
	return &Error{Kind: KindAlreadyAwarded, Entity: "tender", ID: tenderID, Msg: "tender already has a winning bid"}
}
