package server

import (
	"errors"
	"fmt"
)

// NetworkState is the protocol phase of a connection. It decides how
// packet ids are interpreted.
type NetworkState byte

const (
	Handshaking NetworkState = iota
	Status
	Login
	Play
)

var ErrIllegalTransition = errors.New("illegal state transition")

func (s NetworkState) String() string {
	switch s {
	case Handshaking:
		return "handshaking"
	case Status:
		return "status"
	case Login:
		return "login"
	case Play:
		return "play"
	}
	return fmt.Sprintf("NetworkState(%d)", byte(s))
}

// CanTransition reports whether a connection in s may move to next.
// No state is re-entered.
func (s NetworkState) CanTransition(next NetworkState) bool {
	switch s {
	case Handshaking:
		return next == Status || next == Login
	case Login:
		return next == Play
	}
	return false
}

// stateForIntent maps the handshake next-state field to a state.
func stateForIntent(intent int32) (NetworkState, bool) {
	switch intent {
	case 1:
		return Status, true
	case 2:
		return Login, true
	}
	return Handshaking, false
}
