package form

import "errors"

var (
	// ErrInvalidRequest is returned when the request body cannot be parsed.
	ErrInvalidRequest = errors.New("form: invalid request")
	// ErrBindFailed is returned when a converted value cannot be written to the bound instance.
	ErrBindFailed = errors.New("form: failed to bind value")
)

// Validation messages attached to fields.
const (
	MsgRequired = "This value should not be blank."
	MsgTooLong  = "This value is too long. It should have %d characters or less."
	MsgInteger  = "This value should be a valid integer."
	MsgNumber   = "This value should be a valid number."
	MsgDate     = "This value is not a valid date."
	MsgDateTime = "This value is not a valid datetime."
	MsgEmail    = "This value is not a valid email address."
	MsgChoice   = "The selected choice is invalid."
)
