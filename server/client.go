package server

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gstoney/mcserver"
	"github.com/gstoney/mcserver/packet"
)

var ErrInvalidClient = errors.New("invalid client state")

// Client is the protocol state of one connection. Only the tick goroutine
// touches it.
type Client struct {
	ID    uint32
	State NetworkState

	ProtocolVersion int32
	ServerAddr      string
	ServerPort      uint16

	Username     string
	VerifyToken  []byte // set while an Encryption Request is outstanding
	SharedSecret []byte
	Compressed   bool
	UUID         uuid.UUID

	conn      *Connection
	transport *mcserver.Transport
	log       zerolog.Logger
}

func newClient(conn *Connection, cfg mcserver.TransportConfig, log zerolog.Logger) *Client {
	return &Client{
		ID:        conn.id,
		State:     Handshaking,
		conn:      conn,
		transport: mcserver.NewTransport(cfg),
		log:       log.With().Uint32("client", conn.id).Str("remote", conn.RemoteAddr().String()).Logger(),
	}
}

// Send seals p for this connection and writes it.
func (c *Client) Send(p packet.Encodable) error {
	b, err := c.transport.Seal(p)
	if err != nil {
		return fmt.Errorf("encode %T: %w", p, err)
	}
	return c.conn.Send(b)
}

func (c *Client) setState(next NetworkState) error {
	if !c.State.CanTransition(next) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, c.State, next)
	}
	c.log.Debug().Stringer("from", c.State).Stringer("to", next).Msg("state change")
	c.State = next
	return nil
}

// Validate checks that the login fields agree with the state. A verify
// token and a shared secret never coexist: the token is consumed when the
// secret is accepted.
func (c *Client) Validate(onlineMode bool) error {
	hasUser := c.Username != ""
	hasToken := c.VerifyToken != nil
	hasSecret := c.SharedSecret != nil

	switch c.State {
	case Handshaking, Status:
		if hasUser || hasToken || hasSecret {
			return fmt.Errorf("%w: %s client carries login data", ErrInvalidClient, c.State)
		}
	case Login:
		if hasToken && hasSecret {
			return fmt.Errorf("%w: verify token and shared secret both set", ErrInvalidClient)
		}
		if (hasToken || hasSecret) && !hasUser {
			return fmt.Errorf("%w: encryption started before Login Start", ErrInvalidClient)
		}
	case Play:
		if !hasUser || hasToken {
			return fmt.Errorf("%w: play client without a completed login", ErrInvalidClient)
		}
		if hasSecret != onlineMode {
			return fmt.Errorf("%w: shared secret set=%v with online mode=%v", ErrInvalidClient, hasSecret, onlineMode)
		}
	default:
		return fmt.Errorf("%w: unknown state %s", ErrInvalidClient, c.State)
	}
	return nil
}
