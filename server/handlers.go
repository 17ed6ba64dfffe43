package server

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/json"
	"fmt"

	"github.com/gstoney/mcserver"
	"github.com/gstoney/mcserver/auth"
	"github.com/gstoney/mcserver/chat"
	"github.com/gstoney/mcserver/packet"
)

const (
	verifyTokenLen  = 4
	maxUsernameLen  = 16
	maxStatusSample = 12
)

// serverbound lists the packets a client may send in each state.
var serverbound = map[NetworkState]map[int32]func() packet.Decodable{
	Handshaking: packet.HandshakeServerboundRegistry,
	Status:      packet.StatusServerboundRegistry,
	Login:       packet.LoginServerboundRegistry,
}

func (s *Server) handle(c *Client, p packet.Decodable) error {
	switch p := p.(type) {
	case *packet.Handshake:
		return s.handleHandshake(c, p)
	case *packet.StatusRequest:
		return s.handleStatusRequest(c)
	case *packet.PingRequest:
		return c.Send(packet.PongResponse{Payload: p.Payload})
	case *packet.LoginStart:
		return s.handleLoginStart(c, p)
	case *packet.EncryptionResponse:
		return s.handleEncryptionResponse(c, p)
	}
	return fmt.Errorf("no handler for %T", p)
}

func (s *Server) handleHandshake(c *Client, p *packet.Handshake) error {
	c.ProtocolVersion = p.ProtocolVersion
	c.ServerAddr = p.ServerAddr
	c.ServerPort = p.ServerPort

	next, ok := stateForIntent(p.NextState)
	if !ok {
		c.log.Warn().Int32("next_state", p.NextState).Msg("invalid next state requested")
		return nil
	}
	return c.setState(next)
}

type statusVersion struct {
	Name     string `json:"name"`
	Protocol int32  `json:"protocol"`
}

type statusPlayer struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

type statusPlayers struct {
	Max    int            `json:"max"`
	Online int            `json:"online"`
	Sample []statusPlayer `json:"sample"`
}

type statusDocument struct {
	Version     statusVersion  `json:"version"`
	Players     statusPlayers  `json:"players"`
	Description chat.Component `json:"description"`
}

func (s *Server) statusDocument() statusDocument {
	cfg := s.cfg.Status
	online := s.online()
	color, _ := chat.ParseColor(cfg.MOTDColor)

	sample := make([]statusPlayer, 0, min(len(online), maxStatusSample))
	for _, c := range online {
		if len(sample) == maxStatusSample {
			break
		}
		sample = append(sample, statusPlayer{Name: c.Username, ID: c.UUID.String()})
	}

	return statusDocument{
		Version: statusVersion{Name: cfg.VersionName, Protocol: cfg.Protocol},
		Players: statusPlayers{
			Max:    cfg.MaxPlayers,
			Online: len(online),
			Sample: sample,
		},
		Description: chat.Text(cfg.MOTD).WithColor(color),
	}
}

func (s *Server) handleStatusRequest(c *Client) error {
	b, err := json.Marshal(s.statusDocument())
	if err != nil {
		return err
	}
	return c.Send(packet.StatusResponse{Response: string(b)})
}

// reserved counts the player slots taken by clients in play and by logins
// past Login Start.
func (s *Server) reserved() int {
	n := 0
	for _, c := range s.clients {
		if c.State == Play || (c.State == Login && c.Username != "") {
			n++
		}
	}
	return n
}

func validUsername(name string) bool {
	if len(name) == 0 || len(name) > maxUsernameLen {
		return false
	}
	for _, r := range name {
		if r <= ' ' || r > '~' {
			return false
		}
	}
	return true
}

func (s *Server) handleLoginStart(c *Client, p *packet.LoginStart) error {
	if c.Username != "" {
		return kick("Login already started", ErrDuplicateLogin)
	}
	if !validUsername(p.Name) {
		return kick("Invalid username", fmt.Errorf("%w: %q", ErrInvalidUsername, p.Name))
	}
	if limit := s.cfg.Status.MaxPlayers; limit > 0 && s.reserved() >= limit {
		return kick("The server is full!", ErrServerFull)
	}
	c.Username = p.Name

	if !s.cfg.OnlineMode {
		return s.completeLogin(c, auth.OfflineProfile(p.Name))
	}

	token := make([]byte, verifyTokenLen)
	if _, err := rand.Read(token); err != nil {
		return err
	}
	c.VerifyToken = token

	return c.Send(packet.EncryptionRequest{
		ServerID:    "",
		PublicKey:   s.keys.PublicKeyDER(),
		VerifyToken: token,
	})
}

func (s *Server) handleEncryptionResponse(c *Client, p *packet.EncryptionResponse) error {
	if c.VerifyToken == nil {
		return kick("Unexpected encryption response", ErrUnexpectedEncryption)
	}

	expected := c.VerifyToken
	c.VerifyToken = nil

	token, err := s.keys.Decrypt(p.VerifyToken)
	if err != nil || subtle.ConstantTimeCompare(token, expected) != 1 {
		return kick("Invalid verify token", ErrVerifyTokenMismatch)
	}

	secret, err := s.keys.Decrypt(p.SharedSecret)
	if err != nil || len(secret) != mcserver.SharedSecretLen {
		return kick("Invalid shared secret", ErrInvalidSharedSecret)
	}

	if err := c.transport.EnableEncryption(secret); err != nil {
		return err
	}
	c.SharedSecret = secret

	hash := auth.ServerHash("", secret, s.keys.PublicKeyDER())
	if _, err := s.auth.Submit(c.ID, c.Username, hash); err != nil {
		return kick("Authentication servers are busy, try again later", err)
	}
	c.log.Debug().Str("username", c.Username).Msg("session lookup submitted")
	return nil
}

func (s *Server) finishAuth(c *Client, res auth.Result) error {
	if res.Err != nil {
		return kick("Failed to verify username!", res.Err)
	}
	return s.completeLogin(c, res.Profile)
}

// completeLogin enables compression when configured, sends Login Success
// and moves the client to play.
func (s *Server) completeLogin(c *Client, profile auth.Profile) error {
	id, err := profile.UUID()
	if err != nil {
		return kick("Failed to verify username!", fmt.Errorf("profile id %q: %w", profile.ID, err))
	}

	if threshold := s.cfg.CompressionThreshold; threshold >= 0 {
		if err := c.Send(packet.SetCompression{Threshold: int32(threshold)}); err != nil {
			return err
		}
		c.transport.CompressionThreshold = threshold
		c.Compressed = true
	}

	if err := c.Send(packet.LoginSuccess{UUID: id.String(), Username: profile.Name}); err != nil {
		return err
	}

	c.UUID = id
	c.Username = profile.Name
	if err := c.setState(Play); err != nil {
		return err
	}

	c.log.Info().
		Str("username", c.Username).
		Stringer("uuid", c.UUID).
		Bool("encrypted", c.transport.Encrypted()).
		Msg("player logged in")
	s.recordLogin(id, profile.Name)
	return nil
}
