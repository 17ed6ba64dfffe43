// Package server runs the listener and the single tick loop that owns
// every client's protocol state.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/gstoney/mcserver"
	"github.com/gstoney/mcserver/auth"
	"github.com/gstoney/mcserver/config"
	"github.com/gstoney/mcserver/packet"
)

// PlayerRecorder is notified of every completed login. Calls happen off the
// tick goroutine.
type PlayerRecorder interface {
	RecordLogin(ctx context.Context, id uuid.UUID, name string, at time.Time) error
}

type Option func(*Server)

func WithLogger(l zerolog.Logger) Option {
	return func(s *Server) { s.log = l }
}

func WithSessionChecker(c auth.SessionChecker) Option {
	return func(s *Server) { s.checker = c }
}

func WithPlayerRecorder(r PlayerRecorder) Option {
	return func(s *Server) { s.players = r }
}

// WithKeyPair reuses an existing key instead of generating one.
func WithKeyPair(k *KeyPair) Option {
	return func(s *Server) { s.keys = k }
}

// A Server accepts connections and drives them through handshake, status
// and login. All client state lives on the tick goroutine: the accept loop
// and per-connection readers only hand it sockets and raw bytes.
type Server struct {
	cfg          config.Config
	transportCfg mcserver.TransportConfig

	keys     *KeyPair
	checker  auth.SessionChecker
	auth     *auth.Poller
	players  PlayerRecorder
	throttle *cache.Cache
	log      zerolog.Logger

	nextID   atomic.Uint32
	accepted chan *Connection
	clients  map[uint32]*Client

	now func() time.Time
}

// New builds a Server. Key generation failure is returned and is meant to
// be fatal.
func New(cfg config.Config, opts ...Option) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Server{
		cfg: cfg,
		transportCfg: mcserver.TransportConfig{
			MaxPacketLen:       cfg.MaxPacketLen,
			MaxDecompressedLen: cfg.MaxDecompressedLen,
		},
		log:      zerolog.Nop(),
		accepted: make(chan *Connection, cfg.InboundQueue),
		clients:  make(map[uint32]*Client),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.keys == nil {
		keys, err := GenerateKeyPair(cfg.KeyBits)
		if err != nil {
			return nil, err
		}
		s.keys = keys
	}
	if s.checker == nil {
		s.checker = auth.NewSessionClient(cfg.Auth.SessionURL, cfg.Auth.Timeout.Duration)
	}
	s.auth = auth.NewPoller(s.checker, cfg.Auth.Timeout.Duration, cfg.Auth.MaxPending)

	if d := cfg.ConnectionThrottle.Duration; d > 0 {
		s.throttle = cache.New(d, 2*d)
	}
	return s, nil
}

// Run listens on the configured address and serves until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	l, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, l)
}

// Serve accepts connections on l and runs the tick loop until ctx is done
// or either loop fails. l is closed on return, as are all connections.
func (s *Server) Serve(ctx context.Context, l net.Listener) error {
	s.log.Info().
		Str("addr", l.Addr().String()).
		Bool("online_mode", s.cfg.OnlineMode).
		Int("compression_threshold", s.cfg.CompressionThreshold).
		Msg("server listening")

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-ctx.Done()
		return l.Close()
	})
	g.Go(func() error {
		return s.acceptLoop(ctx, l)
	})
	g.Go(func() error {
		return s.tickLoop(ctx)
	})

	err := g.Wait()
	s.shutdown()

	if errors.Is(err, net.ErrClosed) || errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

const (
	minAcceptDelay = 5 * time.Millisecond
	maxAcceptDelay = time.Second
)

func (s *Server) acceptLoop(ctx context.Context, l net.Listener) error {
	var delay time.Duration
	for {
		c, err := l.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return err
			}

			if delay == 0 {
				delay = minAcceptDelay
			} else {
				delay = min(2*delay, maxAcceptDelay)
			}
			s.log.Warn().Err(err).Dur("retry_in", delay).Msg("accept failed")

			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil
			}
			continue
		}
		delay = 0

		if s.throttled(c.RemoteAddr()) {
			s.log.Debug().Stringer("remote", c.RemoteAddr()).Msg("connection throttled")
			c.Close()
			continue
		}

		conn := s.admit(c)
		select {
		case s.accepted <- conn:
		case <-ctx.Done():
			conn.Close()
			return nil
		}
	}
}

// admit wraps an accepted socket and starts its reader.
func (s *Server) admit(c net.Conn) *Connection {
	conn := newConnection(s.nextID.Add(1), c, s.cfg.InboundQueue, s.cfg.ReadBuffer, s.cfg.WriteTimeout.Duration)
	go conn.readLoop()
	return conn
}

func (s *Server) throttled(addr net.Addr) bool {
	if s.throttle == nil {
		return false
	}
	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		host = addr.String()
	}
	if _, found := s.throttle.Get(host); found {
		return true
	}
	s.throttle.SetDefault(host, struct{}{})
	return false
}

func (s *Server) tickLoop(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.TickInterval.Duration)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.Tick()
		}
	}
}

// Tick runs one iteration of the server loop: it registers new
// connections, processes every buffered frame of every client and applies
// finished session lookups. Tick must only be called from one goroutine.
func (s *Server) Tick() {
	s.registerAccepted()

	for _, c := range s.clients {
		s.process(c)
	}

	for _, res := range s.auth.PollOnce(s.now()) {
		c, ok := s.clients[res.ClientID]
		if !ok {
			continue
		}
		if err := s.finishAuth(c, res); err != nil {
			s.fail(c, err)
		}
	}
}

func (s *Server) registerAccepted() {
	for {
		select {
		case conn := <-s.accepted:
			c := newClient(conn, s.transportCfg, s.log)
			s.clients[c.ID] = c
			c.log.Debug().Msg("connection accepted")
		default:
			return
		}
	}
}

func (s *Server) process(c *Client) {
	c.conn.Drain(c.transport.Feed)

	for f, err := range c.transport.Frames() {
		if err != nil {
			s.fail(c, fmt.Errorf("malformed frame: %w", err))
			return
		}
		if err := s.dispatch(c, &f); err != nil {
			s.fail(c, err)
			return
		}
		if !c.conn.Alive() {
			break
		}
	}

	if !c.conn.Alive() || c.conn.PeerClosed() {
		s.drop(c)
	}
}

// dispatch decodes f with the packet registered for the client's state and
// runs its handler. Unknown packets are dropped.
func (s *Server) dispatch(c *Client, f *mcserver.Frame) error {
	factory, ok := serverbound[c.State][f.ID]
	if !ok {
		c.log.Debug().Stringer("state", c.State).Int32("id", f.ID).Msg("ignoring unknown packet")
		return nil
	}

	p := factory()
	if err := p.Decode(&f.Payload); err != nil {
		return fmt.Errorf("decode %T: %w", p, err)
	}
	if n := f.Payload.Remaining(); n > 0 {
		c.log.Debug().Int("bytes", n).Msgf("trailing bytes after %T", p)
	}

	if err := s.handle(c, p); err != nil {
		return err
	}
	return c.Validate(s.cfg.OnlineMode)
}

// fail ends the connection. Kicks during login tell the player why.
func (s *Server) fail(c *Client, err error) {
	var ke *KickError
	if errors.As(err, &ke) {
		c.log.Info().Err(err).Str("username", c.Username).Msg("disconnecting client")
		if c.State == Login {
			if sendErr := c.Send(packet.LoginDisconnect{Reason: ke.Reason.JSON()}); sendErr != nil {
				c.log.Debug().Err(sendErr).Msg("failed to send disconnect")
			}
		}
	} else {
		c.log.Warn().Err(err).Msg("closing connection")
	}
	s.drop(c)
}

func (s *Server) drop(c *Client) {
	c.conn.Close()
	s.auth.Discard(c.ID)
	delete(s.clients, c.ID)
	c.log.Debug().Stringer("state", c.State).Msg("connection removed")
}

func (s *Server) shutdown() {
	for _, c := range s.clients {
		s.drop(c)
	}
	for {
		select {
		case conn := <-s.accepted:
			conn.Close()
		default:
			return
		}
	}
}

// online returns the clients that finished login.
func (s *Server) online() []*Client {
	var players []*Client
	for _, c := range s.clients {
		if c.State == Play {
			players = append(players, c)
		}
	}
	return players
}

func (s *Server) recordLogin(id uuid.UUID, name string) {
	if s.players == nil {
		return
	}
	at := s.now()
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.players.RecordLogin(ctx, id, name, at); err != nil {
			s.log.Warn().Err(err).Str("username", name).Msg("failed to record login")
		}
	}()
}
