package server

import (
	"errors"

	"github.com/gstoney/mcserver/chat"
)

var (
	ErrVerifyTokenMismatch  = errors.New("verify token mismatch")
	ErrUnexpectedEncryption = errors.New("encryption response without a pending request")
	ErrInvalidSharedSecret  = errors.New("invalid shared secret")
	ErrInvalidUsername      = errors.New("invalid username")
	ErrDuplicateLogin       = errors.New("login already started")
	ErrServerFull           = errors.New("server is full")
)

// KickError ends a connection with a reason shown to the player. During
// login the reason is sent in a Disconnect packet first.
type KickError struct {
	Reason chat.Component
	Err    error
}

func kick(reason string, err error) *KickError {
	return &KickError{Reason: chat.Text(reason), Err: err}
}

func (e *KickError) Error() string {
	if e.Err == nil {
		return "kicked: " + e.Reason.String()
	}
	return "kicked: " + e.Reason.String() + ": " + e.Err.Error()
}

func (e *KickError) Unwrap() error {
	return e.Err
}
