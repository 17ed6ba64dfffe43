package server

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"errors"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/gstoney/mcserver"
	"github.com/gstoney/mcserver/auth"
	"github.com/gstoney/mcserver/config"
	"github.com/gstoney/mcserver/packet"
)

const notchUUID = "069a79f4-44e9-4726-a5be-fca90e38aaf5"

var testKeys = sync.OnceValue(func() *KeyPair {
	k, err := GenerateKeyPair(1024)
	if err != nil {
		panic(err)
	}
	return k
})

// fakeChecker answers session lookups locally. A non-nil gate holds every
// lookup until it is closed.
type fakeChecker struct {
	mu     sync.Mutex
	hashes []string
	gate   chan struct{}
	err    error
}

func (f *fakeChecker) HasJoined(ctx context.Context, username, serverHash string) (auth.Profile, error) {
	f.mu.Lock()
	f.hashes = append(f.hashes, serverHash)
	gate, err := f.gate, f.err
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return auth.Profile{}, ctx.Err()
		}
	}
	if err != nil {
		return auth.Profile{}, err
	}
	return auth.Profile{ID: strings.ReplaceAll(notchUUID, "-", ""), Name: username}, nil
}

func (f *fakeChecker) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.hashes...)
}

type fakeRecorder struct {
	mu     sync.Mutex
	logins map[uuid.UUID]string
}

func (r *fakeRecorder) RecordLogin(ctx context.Context, id uuid.UUID, name string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.logins == nil {
		r.logins = make(map[uuid.UUID]string)
	}
	r.logins[id] = name
	return nil
}

func (r *fakeRecorder) get(id uuid.UUID) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	name, ok := r.logins[id]
	return name, ok
}

func testConfig() config.Config {
	cfg := config.Default()
	cfg.Addr = "127.0.0.1:0"
	cfg.CompressionThreshold = -1
	cfg.TickInterval = config.Duration{Duration: 2 * time.Millisecond}
	cfg.Auth.Timeout = config.Duration{Duration: 5 * time.Second}
	return cfg
}

func newTestServer(t *testing.T, cfg config.Config, opts ...Option) *Server {
	t.Helper()
	opts = append([]Option{WithKeyPair(testKeys()), WithLogger(zerolog.Nop())}, opts...)
	s, err := New(cfg, opts...)
	require.NoError(t, err)
	return s
}

// connect hands one end of a loopback TCP connection to s, as the accept
// loop would, and returns the client end with the server side id.
func connect(t *testing.T, s *Server) (*testClient, uint32) {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()

	accepted := make(chan net.Conn, 1)
	go func() {
		c, err := l.Accept()
		if err != nil {
			close(accepted)
			return
		}
		accepted <- c
	}()

	client, err := net.Dial("tcp", l.Addr().String())
	require.NoError(t, err)
	serverSide, ok := <-accepted
	require.True(t, ok, "accept failed")

	conn := s.admit(serverSide)
	s.accepted <- conn
	t.Cleanup(func() {
		client.Close()
		conn.Close()
	})
	return newTestClient(t, client), conn.id
}

// pump ticks s until cond holds.
func pump(t *testing.T, s *Server, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		s.Tick()
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not reached before deadline")
}

// testClient speaks the client side of the protocol over a socket.
type testClient struct {
	t    *testing.T
	conn net.Conn
	tr   *mcserver.Transport
}

func newTestClient(t *testing.T, conn net.Conn) *testClient {
	return &testClient{
		t:    t,
		conn: conn,
		tr: mcserver.NewTransport(mcserver.TransportConfig{
			MaxPacketLen:       1 << 21,
			MaxDecompressedLen: 1 << 23,
		}),
	}
}

// send writes all packets in a single write.
func (tc *testClient) send(ps ...packet.Encodable) {
	tc.t.Helper()
	var batch []byte
	for _, p := range ps {
		b, err := tc.tr.Seal(p)
		require.NoError(tc.t, err)
		batch = append(batch, b...)
	}
	_, err := tc.conn.Write(batch)
	require.NoError(tc.t, err)
}

func (tc *testClient) sendRaw(b []byte) {
	tc.t.Helper()
	_, err := tc.conn.Write(b)
	require.NoError(tc.t, err)
}

// next returns the first buffered packet, if any.
func (tc *testClient) next(registry map[int32]func() packet.Decodable) (packet.Decodable, bool) {
	tc.t.Helper()
	for f, err := range tc.tr.Frames() {
		require.NoError(tc.t, err)
		factory, ok := registry[f.ID]
		require.True(tc.t, ok, "unexpected packet id 0x%02x", f.ID)

		p := factory()
		require.NoError(tc.t, p.Decode(&f.Payload))
		return p, true
	}
	return nil, false
}

// recv reads until one whole packet from registry arrives.
func (tc *testClient) recv(registry map[int32]func() packet.Decodable) packet.Decodable {
	tc.t.Helper()
	buf := make([]byte, 4096)
	require.NoError(tc.t, tc.conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	for {
		if p, ok := tc.next(registry); ok {
			return p
		}
		n, err := tc.conn.Read(buf)
		require.NoError(tc.t, err)
		tc.tr.Feed(buf[:n])
	}
}

// await ticks s until a packet from registry arrives.
func (tc *testClient) await(s *Server, registry map[int32]func() packet.Decodable) packet.Decodable {
	tc.t.Helper()
	buf := make([]byte, 4096)
	deadline := time.Now().Add(2 * time.Second)

	for time.Now().Before(deadline) {
		if p, ok := tc.next(registry); ok {
			return p
		}
		s.Tick()

		require.NoError(tc.t, tc.conn.SetReadDeadline(time.Now().Add(5*time.Millisecond)))
		n, err := tc.conn.Read(buf)
		if n > 0 {
			tc.tr.Feed(buf[:n])
		}
		var ne net.Error
		if err != nil && !(errors.As(err, &ne) && ne.Timeout()) {
			tc.t.Fatalf("read: %v", err)
		}
	}
	tc.t.Fatal("no packet before deadline")
	return nil
}

// expectClosed waits for the server to close the socket.
func (tc *testClient) expectClosed() {
	tc.t.Helper()
	require.NoError(tc.t, tc.conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	buf := make([]byte, 512)
	for {
		_, err := tc.conn.Read(buf)
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				tc.t.Fatal("connection still open")
			}
			return
		}
	}
}

// encryptionResponse answers req with a fresh shared secret. A non-nil
// token replaces the one the server sent.
func (tc *testClient) encryptionResponse(req *packet.EncryptionRequest, token []byte) ([]byte, packet.EncryptionResponse) {
	tc.t.Helper()

	pub, err := x509.ParsePKIXPublicKey(req.PublicKey)
	require.NoError(tc.t, err)
	rsaPub, ok := pub.(*rsa.PublicKey)
	require.True(tc.t, ok)

	if token == nil {
		token = req.VerifyToken
	}
	secret := make([]byte, mcserver.SharedSecretLen)
	_, err = rand.Read(secret)
	require.NoError(tc.t, err)

	encSecret, err := rsa.EncryptPKCS1v15(rand.Reader, rsaPub, secret)
	require.NoError(tc.t, err)
	encToken, err := rsa.EncryptPKCS1v15(rand.Reader, rsaPub, token)
	require.NoError(tc.t, err)

	return secret, packet.EncryptionResponse{SharedSecret: encSecret, VerifyToken: encToken}
}

func loginHandshake() packet.Handshake {
	return packet.Handshake{ProtocolVersion: 578, ServerAddr: "localhost", ServerPort: 25566, NextState: 2}
}

func statusHandshake() packet.Handshake {
	return packet.Handshake{ProtocolVersion: 578, ServerAddr: "localhost", ServerPort: 25566, NextState: 1}
}
