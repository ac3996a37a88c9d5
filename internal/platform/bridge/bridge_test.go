package bridge

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osse101/DropTracker_Go/internal/event"
	"github.com/osse101/DropTracker_Go/internal/platform"
	"github.com/osse101/DropTracker_Go/internal/testing/leaktest"
)

const (
	testSalt      = "c2FsdA=="
	testChallenge = "Y2hhbGxlbmdl"
)

// fakeBridge is a scripted bridge process. handle runs on the server
// goroutine for every request after the greeting.
type fakeBridge struct {
	t        *testing.T
	srv      *httptest.Server
	password string
	handle   func(fb *fakeBridge, req Request)

	writeMu   sync.Mutex
	mu        sync.Mutex
	ws        *websocket.Conn
	seen      []Request
	helloGate chan struct{}
}

func newFakeBridge(t *testing.T, password string, handle func(fb *fakeBridge, req Request)) *fakeBridge {
	t.Helper()
	fb := &fakeBridge{t: t, password: password, handle: handle}
	fb.srv = httptest.NewServer(http.HandlerFunc(fb.serve))
	t.Cleanup(fb.srv.Close)
	return fb
}

func (fb *fakeBridge) url() string {
	return "ws" + strings.TrimPrefix(fb.srv.URL, "http")
}

func (fb *fakeBridge) serve(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{}
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer ws.Close()

	fb.mu.Lock()
	fb.ws = ws
	gate := fb.helloGate
	fb.mu.Unlock()

	if gate != nil {
		<-gate
	}

	hello := map[string]any{"event": EventHello, "info": map[string]any{}}
	if fb.password != "" {
		hello["info"] = map[string]any{
			"authentication": map[string]string{"challenge": testChallenge, "salt": testSalt},
		}
	}
	if err := fb.write(hello); err != nil {
		return
	}

	if fb.password != "" {
		var req Request
		if err := ws.ReadJSON(&req); err != nil {
			return
		}
		if req.Authentication != GenerateAuthHash(fb.password, testSalt, testChallenge) {
			_ = fb.write(Message{ID: req.ID, Status: StatusError, Error: "bad secret"})
			return
		}
		if err := fb.write(Message{ID: req.ID, Status: StatusOK}); err != nil {
			return
		}
	}

	for {
		var req Request
		if err := ws.ReadJSON(&req); err != nil {
			return
		}
		fb.mu.Lock()
		fb.seen = append(fb.seen, req)
		fb.mu.Unlock()
		if fb.handle != nil {
			fb.handle(fb, req)
		}
	}
}

func (fb *fakeBridge) write(v any) error {
	fb.mu.Lock()
	ws := fb.ws
	fb.mu.Unlock()
	fb.writeMu.Lock()
	defer fb.writeMu.Unlock()
	return ws.WriteJSON(v)
}

func (fb *fakeBridge) ok(req Request, data any) {
	m := Message{ID: req.ID, Status: StatusOK}
	if data != nil {
		raw, err := json.Marshal(data)
		assert.NoError(fb.t, err)
		m.Data = raw
	}
	_ = fb.write(m)
}

func (fb *fakeBridge) fail(req Request, code, msg string) {
	_ = fb.write(Message{ID: req.ID, Status: StatusError, Code: code, Error: msg})
}

func (fb *fakeBridge) push(name string, data any) {
	raw, err := json.Marshal(data)
	assert.NoError(fb.t, err)
	_ = fb.write(Message{Event: name, Data: raw})
}

func (fb *fakeBridge) drop() {
	fb.mu.Lock()
	ws := fb.ws
	fb.mu.Unlock()
	_ = ws.Close()
}

// holdHello delays the greeting until the returned channel is closed.
func (fb *fakeBridge) holdHello() chan struct{} {
	gate := make(chan struct{})
	fb.mu.Lock()
	fb.helloGate = gate
	fb.mu.Unlock()
	return gate
}

func (fb *fakeBridge) upgraded() bool {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return fb.ws != nil
}

func (fb *fakeBridge) requests() []Request {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return append([]Request(nil), fb.seen...)
}

// connectingBridge answers Connect with an ok and a connected event.
func connectingBridge(next func(fb *fakeBridge, req Request)) func(fb *fakeBridge, req Request) {
	return func(fb *fakeBridge, req Request) {
		if req.Request == RequestConnect {
			fb.ok(req, nil)
			fb.push(EventConnected, struct{}{})
			return
		}
		if next != nil {
			next(fb, req)
		}
	}
}

func dialConnected(t *testing.T, fb *fakeBridge, password string) *Conn {
	t.Helper()
	d := NewDialer(Config{URL: fb.url(), Password: password, PollInterval: 10 * time.Millisecond})
	pc, err := d.Dial("alice")
	require.NoError(t, err)
	conn := pc.(*Conn)
	t.Cleanup(func() { _ = conn.Close() })

	connected := make(chan struct{}, 1)
	unsub := conn.Subscribe(event.Connected, func(context.Context, event.Event) error {
		connected <- struct{}{}
		return nil
	})
	defer unsub()

	require.NoError(t, conn.Connect(context.Background()))
	select {
	case <-connected:
	case <-time.After(2 * time.Second):
		t.Fatal("connected event not delivered")
	}
	return conn
}

func TestGenerateAuthHash(t *testing.T) {
	secret := sha256.Sum256([]byte("hunter2" + "salt"))
	auth := sha256.Sum256(append(secret[:], "challenge"...))
	want := base64.StdEncoding.EncodeToString(auth[:])

	assert.Equal(t, want, GenerateAuthHash("hunter2", "salt", "challenge"))
	assert.NotEqual(t, want, GenerateAuthHash("hunter3", "salt", "challenge"))
}

func TestDialer_DialIsLazy(t *testing.T) {
	d := NewDialer(Config{})
	pc, err := d.Dial("alice")
	require.NoError(t, err)

	assert.False(t, pc.IsConnected())
	assert.Zero(t, pc.SessionID())
	assert.ErrorIs(t, pc.LogOn(context.Background(), platform.LogOnDetails{Username: "alice"}), platform.ErrNotConnected)
	_, err = pc.WalletDetails(context.Background())
	assert.ErrorIs(t, err, platform.ErrNotConnected)
	assert.NoError(t, pc.Close())
}

func TestConn_ConnectAndLogOn(t *testing.T) {
	fb := newFakeBridge(t, "", connectingBridge(func(fb *fakeBridge, req Request) {
		if req.Request != RequestLogOn {
			return
		}
		fb.ok(req, nil)
		fb.push(EventLoggedOn, map[string]any{
			"result":     int(platform.ResultOK),
			"steam_id":   uint64(76561198000000001),
			"session_id": 7,
			"parental":   map[string]any{"enabled": true, "raw": map[string]int{"flags": 3}},
		})
		fb.push(EventAccountInfo, map[string]string{"persona_name": "Alice"})
	}))
	conn := dialConnected(t, fb, "")
	assert.True(t, conn.IsConnected())

	loggedOn := make(chan event.LoggedOnPayloadV1, 1)
	persona := make(chan string, 1)
	conn.Subscribe(event.LoggedOn, func(_ context.Context, e event.Event) error {
		loggedOn <- e.Payload.(event.LoggedOnPayloadV1)
		return nil
	})
	conn.Subscribe(event.AccountInfo, func(_ context.Context, e event.Event) error {
		persona <- e.Payload.(event.AccountInfoPayloadV1).PersonaName
		return nil
	})

	err := conn.LogOn(context.Background(), platform.LogOnDetails{Username: "alice", AccessToken: "tok"})
	require.NoError(t, err)

	select {
	case p := <-loggedOn:
		assert.Equal(t, int(platform.ResultOK), p.Result)
		assert.Equal(t, int32(7), p.SessionID)
		require.NotNil(t, p.Parental)
		assert.True(t, p.Parental.Enabled)
		assert.JSONEq(t, `{"flags":3}`, p.Parental.Raw)
	case <-time.After(2 * time.Second):
		t.Fatal("loggedOn event not delivered")
	}
	select {
	case name := <-persona:
		assert.Equal(t, "Alice", name)
	case <-time.After(2 * time.Second):
		t.Fatal("accountInfo event not delivered")
	}

	// State is applied before handlers run.
	assert.Equal(t, int32(7), conn.SessionID())
	assert.Equal(t, uint64(76561198000000001), conn.SteamID())

	reqs := fb.requests()
	require.Len(t, reqs, 2)
	args, ok := reqs[1].Args.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "alice", args["account_name"])
	assert.Equal(t, "tok", args["access_token"])
}

func TestConn_FailedLogOnLeavesNoSession(t *testing.T) {
	fb := newFakeBridge(t, "", connectingBridge(func(fb *fakeBridge, req Request) {
		fb.ok(req, nil)
		fb.push(EventLoggedOn, map[string]any{"result": int(platform.ResultInvalidPassword), "session_id": 0})
	}))
	conn := dialConnected(t, fb, "")

	got := make(chan struct{}, 1)
	conn.Subscribe(event.LoggedOn, func(context.Context, event.Event) error {
		got <- struct{}{}
		return nil
	})
	require.NoError(t, conn.LogOn(context.Background(), platform.LogOnDetails{Username: "alice"}))

	select {
	case <-got:
	case <-time.After(2 * time.Second):
		t.Fatal("loggedOn event not delivered")
	}
	assert.Zero(t, conn.SessionID())
}

func TestConn_PasswordProtectedBridge(t *testing.T) {
	t.Run("correct password", func(t *testing.T) {
		fb := newFakeBridge(t, "secret", connectingBridge(nil))
		conn := dialConnected(t, fb, "secret")
		assert.True(t, conn.IsConnected())
	})

	t.Run("wrong password", func(t *testing.T) {
		fb := newFakeBridge(t, "secret", nil)
		pc, err := NewDialer(Config{URL: fb.url(), Password: "nope"}).Dial("alice")
		require.NoError(t, err)

		err = pc.Connect(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "authentication failed")
		assert.False(t, pc.IsConnected())
	})

	t.Run("missing password", func(t *testing.T) {
		fb := newFakeBridge(t, "secret", nil)
		pc, err := NewDialer(Config{URL: fb.url()}).Dial("alice")
		require.NoError(t, err)

		err = pc.Connect(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "password required")
	})
}

func TestConn_WalletDetails(t *testing.T) {
	fb := newFakeBridge(t, "", connectingBridge(func(fb *fakeBridge, req Request) {
		fb.ok(req, map[string]any{"has_wallet": true, "currency_code": "EUR"})
	}))
	conn := dialConnected(t, fb, "")

	w, err := conn.WalletDetails(context.Background())
	require.NoError(t, err)
	assert.Equal(t, platform.WalletDetails{HasWallet: true, CurrencyCode: "EUR"}, w)
}

func TestConn_RenewAccessToken(t *testing.T) {
	fb := newFakeBridge(t, "", connectingBridge(func(fb *fakeBridge, req Request) {
		args := req.Args.(map[string]any)
		if args["refresh_token"] != "refresh-1" {
			fb.fail(req, CodeAccessDenied, "refresh token expired")
			return
		}
		fb.ok(req, map[string]string{"access_token": "access-2", "refresh_token": "refresh-2"})
	}))
	conn := dialConnected(t, fb, "")

	tokens, err := conn.RenewAccessToken(context.Background(), 76561198000000001, "refresh-1")
	require.NoError(t, err)
	assert.Equal(t, platform.RenewedTokens{AccessToken: "access-2", RefreshToken: "refresh-2"}, tokens)

	_, err = conn.RenewAccessToken(context.Background(), 76561198000000001, "stale")
	assert.ErrorIs(t, err, platform.ErrAccessDenied)
}

func TestConn_ErrorCodes(t *testing.T) {
	tests := []struct {
		code string
		want error
	}{
		{CodeInvalidPassword, platform.ErrInvalidPassword},
		{CodeUserCancelled, platform.ErrUserCancelled},
		{CodeAccessDenied, platform.ErrAccessDenied},
		{CodeNotConnected, platform.ErrNotConnected},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			fb := newFakeBridge(t, "", connectingBridge(func(fb *fakeBridge, req Request) {
				fb.fail(req, tt.code, "nope")
			}))
			conn := dialConnected(t, fb, "")

			_, err := conn.BeginAuthViaCredentials(context.Background(), "alice", "pw")
			assert.ErrorIs(t, err, tt.want)
		})
	}

	t.Run("unknown code", func(t *testing.T) {
		fb := newFakeBridge(t, "", connectingBridge(func(fb *fakeBridge, req Request) {
			fb.fail(req, "RateLimitExceeded", "slow down")
		}))
		conn := dialConnected(t, fb, "")

		_, err := conn.WalletDetails(context.Background())
		var jobErr *platform.JobFailedError
		require.True(t, errors.As(err, &jobErr))
		assert.Equal(t, RequestGetWalletDetails, jobErr.Job)
		assert.Contains(t, err.Error(), "slow down")
	})
}

func TestConn_CredentialsHandshake(t *testing.T) {
	var mu sync.Mutex
	polls := 0
	fb := newFakeBridge(t, "", connectingBridge(func(fb *fakeBridge, req Request) {
		switch req.Request {
		case RequestBeginAuthViaCredentials:
			fb.ok(req, map[string]string{"handshake_id": "h1"})
		case RequestPollAuth:
			assert.Equal(t, "h1", req.Args.(map[string]any)["handshake_id"])
			mu.Lock()
			polls++
			n := polls
			mu.Unlock()
			if n < 3 {
				fb.ok(req, map[string]any{"done": false})
				return
			}
			fb.ok(req, map[string]any{
				"done":          true,
				"steam_id":      uint64(76561198000000001),
				"account_name":  "alice",
				"access_token":  "access",
				"refresh_token": "refresh",
			})
		}
	}))
	conn := dialConnected(t, fb, "")

	h, err := conn.BeginAuthViaCredentials(context.Background(), "alice", "pw")
	require.NoError(t, err)

	creds, err := h.PollResult(context.Background())
	require.NoError(t, err)
	assert.Equal(t, platform.Credentials{
		SteamID:      76561198000000001,
		AccountName:  "alice",
		AccessToken:  "access",
		RefreshToken: "refresh",
	}, creds)

	mu.Lock()
	assert.Equal(t, 3, polls)
	mu.Unlock()
}

func TestConn_HandshakeRejected(t *testing.T) {
	fb := newFakeBridge(t, "", connectingBridge(func(fb *fakeBridge, req Request) {
		switch req.Request {
		case RequestBeginAuthViaCredentials:
			fb.ok(req, map[string]string{"handshake_id": "h1"})
		case RequestPollAuth:
			fb.fail(req, CodeInvalidPassword, "invalid password")
		}
	}))
	conn := dialConnected(t, fb, "")

	h, err := conn.BeginAuthViaCredentials(context.Background(), "alice", "bad")
	require.NoError(t, err)
	_, err = h.PollResult(context.Background())
	assert.ErrorIs(t, err, platform.ErrInvalidPassword)
}

func TestConn_HandshakeCancelled(t *testing.T) {
	fb := newFakeBridge(t, "", connectingBridge(func(fb *fakeBridge, req Request) {
		switch req.Request {
		case RequestBeginAuthViaCredentials:
			fb.ok(req, map[string]string{"handshake_id": "h1"})
		case RequestPollAuth:
			fb.ok(req, map[string]any{"done": false})
		}
	}))
	conn := dialConnected(t, fb, "")

	h, err := conn.BeginAuthViaCredentials(context.Background(), "alice", "pw")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = h.PollResult(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestConn_QRHandshake(t *testing.T) {
	release := make(chan struct{})
	fb := newFakeBridge(t, "", connectingBridge(func(fb *fakeBridge, req Request) {
		switch req.Request {
		case RequestBeginAuthViaQR:
			fb.ok(req, map[string]string{"handshake_id": "q1", "challenge_url": "https://s.team/q/1/1"})
		case RequestPollAuth:
			select {
			case <-release:
				fb.ok(req, map[string]any{"done": true, "account_name": "alice", "refresh_token": "r"})
			default:
				fb.ok(req, map[string]any{"done": false})
			}
		}
	}))
	conn := dialConnected(t, fb, "")

	h, err := conn.BeginAuthViaQR(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "https://s.team/q/1/1", h.ChallengeURL())

	rotated := make(chan string, 1)
	h.OnChallengeRotated(func(url string) { rotated <- url })

	fb.push(EventChallengeRotated, map[string]string{"handshake_id": "other", "challenge_url": "https://s.team/q/9/9"})
	fb.push(EventChallengeRotated, map[string]string{"handshake_id": "q1", "challenge_url": "https://s.team/q/1/2"})

	select {
	case url := <-rotated:
		assert.Equal(t, "https://s.team/q/1/2", url)
	case <-time.After(2 * time.Second):
		t.Fatal("challenge rotation not delivered")
	}
	assert.Equal(t, "https://s.team/q/1/2", h.ChallengeURL())

	close(release)
	creds, err := h.PollResult(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "alice", creds.AccountName)

	conn.mu.Lock()
	assert.Empty(t, conn.qr)
	conn.mu.Unlock()
}

func TestConn_LinkLost(t *testing.T) {
	fb := newFakeBridge(t, "", connectingBridge(func(fb *fakeBridge, req Request) {
		if req.Request == RequestGetWalletDetails {
			fb.drop()
		}
	}))
	conn := dialConnected(t, fb, "")

	disconnected := make(chan event.DisconnectedPayloadV1, 1)
	conn.Subscribe(event.Disconnected, func(_ context.Context, e event.Event) error {
		disconnected <- e.Payload.(event.DisconnectedPayloadV1)
		return nil
	})

	_, err := conn.WalletDetails(context.Background())
	assert.ErrorIs(t, err, platform.ErrNotConnected)

	select {
	case p := <-disconnected:
		assert.False(t, p.UserInitiated)
	case <-time.After(2 * time.Second):
		t.Fatal("disconnected event not delivered")
	}
	assert.False(t, conn.IsConnected())
	assert.ErrorIs(t, conn.LogOn(context.Background(), platform.LogOnDetails{}), platform.ErrNotConnected)
}

func TestConn_CloseIsUserInitiated(t *testing.T) {
	leaktest.Verify(t)

	fb := newFakeBridge(t, "", connectingBridge(nil))
	conn := dialConnected(t, fb, "")

	disconnected := make(chan event.DisconnectedPayloadV1, 1)
	conn.Subscribe(event.Disconnected, func(_ context.Context, e event.Event) error {
		disconnected <- e.Payload.(event.DisconnectedPayloadV1)
		return nil
	})

	require.NoError(t, conn.Close())
	select {
	case p := <-disconnected:
		assert.True(t, p.UserInitiated)
	default:
		t.Fatal("disconnected event not published by Close")
	}
	assert.False(t, conn.IsConnected())
	assert.NoError(t, conn.Close())
}

func TestConn_DisconnectedEvent(t *testing.T) {
	fb := newFakeBridge(t, "", connectingBridge(func(fb *fakeBridge, req Request) {
		if req.Request == RequestDisconnect {
			fb.push(EventDisconnected, map[string]bool{"user_initiated": true})
		}
	}))
	conn := dialConnected(t, fb, "")

	disconnected := make(chan event.DisconnectedPayloadV1, 1)
	conn.Subscribe(event.Disconnected, func(_ context.Context, e event.Event) error {
		disconnected <- e.Payload.(event.DisconnectedPayloadV1)
		return nil
	})

	conn.Disconnect()
	select {
	case p := <-disconnected:
		assert.True(t, p.UserInitiated)
	case <-time.After(2 * time.Second):
		t.Fatal("disconnected event not delivered")
	}
	assert.False(t, conn.IsConnected())
}

func TestConn_RequestTimeout(t *testing.T) {
	fb := newFakeBridge(t, "", connectingBridge(nil))
	conn := dialConnected(t, fb, "")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := conn.WalletDetails(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestConn_StateReadableWhileDialing(t *testing.T) {
	fb := newFakeBridge(t, "", connectingBridge(nil))
	gate := fb.holdHello()

	pc, err := NewDialer(Config{URL: fb.url()}).Dial("alice")
	require.NoError(t, err)
	conn := pc.(*Conn)
	t.Cleanup(func() { _ = conn.Close() })

	done := make(chan error, 1)
	go func() { done <- conn.Connect(context.Background()) }()
	require.Eventually(t, fb.upgraded, time.Second, 5*time.Millisecond)

	read := make(chan struct{})
	go func() {
		_ = conn.IsConnected()
		_ = conn.SteamID()
		_ = conn.SessionID()
		close(read)
	}()
	select {
	case <-read:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("state accessors blocked behind the dial")
	}

	close(gate)
	require.NoError(t, <-done)
	assert.Eventually(t, conn.IsConnected, time.Second, 5*time.Millisecond)
}

func TestConn_CloseDuringDialFailsConnect(t *testing.T) {
	fb := newFakeBridge(t, "", connectingBridge(nil))
	gate := fb.holdHello()

	pc, err := NewDialer(Config{URL: fb.url()}).Dial("alice")
	require.NoError(t, err)
	conn := pc.(*Conn)

	done := make(chan error, 1)
	go func() { done <- conn.Connect(context.Background()) }()
	require.Eventually(t, fb.upgraded, time.Second, 5*time.Millisecond)

	require.NoError(t, conn.Close())
	close(gate)

	assert.ErrorIs(t, <-done, platform.ErrNotConnected)
	assert.False(t, conn.IsConnected())
	_, err = conn.current()
	assert.ErrorIs(t, err, platform.ErrNotConnected)
}
