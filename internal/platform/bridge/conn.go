// Package bridge implements platform.Connection over a WebSocket link to a
// local bridge process that holds the actual platform client.
package bridge

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/osse101/DropTracker_Go/internal/event"
	"github.com/osse101/DropTracker_Go/internal/logger"
	"github.com/osse101/DropTracker_Go/internal/platform"
)

// Config configures the bridge connections.
type Config struct {
	URL          string
	Password     string
	PollInterval time.Duration
}

// Dialer creates bridge connections. It implements platform.Dialer.
type Dialer struct {
	cfg Config
}

// NewDialer creates a Dialer. Zero values fall back to the defaults.
func NewDialer(cfg Config) *Dialer {
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	return &Dialer{cfg: cfg}
}

// Dial implements platform.Dialer. No network I/O happens until Connect.
func (d *Dialer) Dial(label string) (platform.Connection, error) {
	return &Conn{
		cfg:   d.cfg,
		label: label,
		bus:   event.NewMemoryBus(),
		qr:    make(map[string]*qrHandshake),
	}, nil
}

// Conn is one platform connection hosted by the bridge.
type Conn struct {
	cfg   Config
	label string
	bus   *event.MemoryBus

	mu        sync.Mutex
	client    *client
	connected bool
	closing   bool
	closeGen  uint64
	sessionID int32
	steamID   uint64
	qr        map[string]*qrHandshake
}

type disconnectedData struct {
	UserInitiated bool `json:"user_initiated"`
}

type loggedOnData struct {
	Result         int    `json:"result"`
	ExtendedResult int    `json:"extended_result"`
	SteamID        uint64 `json:"steam_id"`
	SessionID      int32  `json:"session_id"`
	Parental       *struct {
		Enabled bool            `json:"enabled"`
		Raw     json.RawMessage `json:"raw"`
	} `json:"parental,omitempty"`
}

type accountInfoData struct {
	PersonaName string `json:"persona_name"`
}

type challengeData struct {
	HandshakeID string `json:"handshake_id"`
	URL         string `json:"challenge_url"`
}

// Connect opens the bridge link if needed and asks the bridge to connect to the platform.
func (c *Conn) Connect(ctx context.Context) error {
	cl, err := c.ensureClient(ctx)
	if err != nil {
		return err
	}
	return cl.call(ctx, RequestConnect, nil, nil)
}

// ensureClient dials without holding mu. When two callers race, the first to
// install its client wins and the other one is dropped; a Close during the dial
// fails the call.
func (c *Conn) ensureClient(ctx context.Context) (*client, error) {
	c.mu.Lock()
	if c.client != nil {
		cl := c.client
		c.mu.Unlock()
		return cl, nil
	}
	gen := c.closeGen
	c.mu.Unlock()

	cl, err := dial(ctx, c.cfg.URL, c.cfg.Password)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if c.closeGen != gen {
		c.mu.Unlock()
		cl.discard()
		return nil, platform.ErrNotConnected
	}
	if winner := c.client; winner != nil {
		c.mu.Unlock()
		cl.discard()
		return winner, nil
	}
	cl.onEvent = c.handleEvent
	cl.onClose = func(ctx context.Context, err error) { c.handleClose(ctx, cl, err) }
	c.client = cl
	c.mu.Unlock()

	// Events outlive the Connect call.
	cl.start(logger.WithAccount(context.WithoutCancel(ctx), c.label))
	return cl, nil
}

func (c *Conn) current() (*client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client == nil {
		return nil, platform.ErrNotConnected
	}
	return c.client, nil
}

// Disconnect asks the bridge to drop the platform connection.
func (c *Conn) Disconnect() {
	cl, err := c.current()
	if err != nil {
		return
	}
	if err := cl.notify(RequestDisconnect, nil); err != nil {
		logger.FromContext(context.Background()).Debug(LogMsgDisconnectFailed, "label", c.label, "error", err)
	}
}

func (c *Conn) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *Conn) SessionID() int32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

func (c *Conn) SteamID() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.steamID
}

func (c *Conn) Subscribe(eventType event.Type, handler event.Handler) event.Unsubscribe {
	return c.bus.Subscribe(eventType, handler)
}

func (c *Conn) LogOn(ctx context.Context, details platform.LogOnDetails) error {
	cl, err := c.current()
	if err != nil {
		return err
	}
	args := map[string]string{"account_name": details.Username, "access_token": details.AccessToken}
	return cl.call(ctx, RequestLogOn, args, nil)
}

func (c *Conn) BeginAuthViaCredentials(ctx context.Context, username, password string) (platform.Handshake, error) {
	cl, err := c.current()
	if err != nil {
		return nil, err
	}
	var started challengeData
	args := map[string]string{"account_name": username, "password": password}
	if err := cl.call(ctx, RequestBeginAuthViaCredentials, args, &started); err != nil {
		return nil, err
	}
	return &handshake{client: cl, id: started.HandshakeID, interval: c.cfg.PollInterval}, nil
}

func (c *Conn) BeginAuthViaQR(ctx context.Context) (platform.QRHandshake, error) {
	cl, err := c.current()
	if err != nil {
		return nil, err
	}
	var started challengeData
	if err := cl.call(ctx, RequestBeginAuthViaQR, nil, &started); err != nil {
		return nil, err
	}

	h := &qrHandshake{
		handshake: handshake{client: cl, id: started.HandshakeID, interval: c.cfg.PollInterval},
		url:       started.URL,
	}
	h.release = func() {
		c.mu.Lock()
		delete(c.qr, h.id)
		c.mu.Unlock()
	}
	c.mu.Lock()
	c.qr[h.id] = h
	c.mu.Unlock()
	return h, nil
}

func (c *Conn) RenewAccessToken(ctx context.Context, steamID uint64, refreshToken string) (platform.RenewedTokens, error) {
	cl, err := c.current()
	if err != nil {
		return platform.RenewedTokens{}, err
	}
	var out struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	args := map[string]any{"steam_id": steamID, "refresh_token": refreshToken}
	if err := cl.call(ctx, RequestRenewAccessToken, args, &out); err != nil {
		return platform.RenewedTokens{}, err
	}
	return platform.RenewedTokens{AccessToken: out.AccessToken, RefreshToken: out.RefreshToken}, nil
}

func (c *Conn) WalletDetails(ctx context.Context) (platform.WalletDetails, error) {
	cl, err := c.current()
	if err != nil {
		return platform.WalletDetails{}, err
	}
	var out struct {
		HasWallet    bool   `json:"has_wallet"`
		CurrencyCode string `json:"currency_code"`
	}
	if err := cl.call(ctx, RequestGetWalletDetails, nil, &out); err != nil {
		return platform.WalletDetails{}, err
	}
	return platform.WalletDetails{HasWallet: out.HasWallet, CurrencyCode: out.CurrencyCode}, nil
}

// Close closes the bridge link. The bridge drops the platform connection with it.
func (c *Conn) Close() error {
	c.mu.Lock()
	cl := c.client
	c.client = nil
	c.closing = cl != nil
	c.closeGen++
	c.mu.Unlock()
	if cl == nil {
		return nil
	}
	err := cl.close()

	c.mu.Lock()
	c.closing = false
	c.mu.Unlock()
	return err
}

// handleEvent applies an event to the connection state, then publishes it.
// It runs on the read goroutine, so handlers see events one at a time.
func (c *Conn) handleEvent(ctx context.Context, m *Message) {
	log := logger.FromContext(ctx)

	var evt event.Event
	switch m.Event {
	case EventConnected:
		c.mu.Lock()
		c.connected = true
		c.mu.Unlock()
		evt = event.NewConnectedEvent()

	case EventDisconnected:
		var d disconnectedData
		_ = json.Unmarshal(m.Data, &d)
		c.setDisconnected()
		evt = event.NewDisconnectedEvent(d.UserInitiated)

	case EventLoggedOn:
		var d loggedOnData
		if err := json.Unmarshal(m.Data, &d); err != nil {
			log.Debug(LogMsgBadMessage, "event", m.Event, "error", err)
			return
		}
		payload := event.LoggedOnPayloadV1{
			Result:         d.Result,
			ExtendedResult: d.ExtendedResult,
			SteamID:        d.SteamID,
			SessionID:      d.SessionID,
		}
		if d.Parental != nil {
			payload.Parental = &event.ParentalSettings{Enabled: d.Parental.Enabled, Raw: string(d.Parental.Raw)}
		}
		if platform.EResult(d.Result) == platform.ResultOK {
			c.mu.Lock()
			c.sessionID = d.SessionID
			c.steamID = d.SteamID
			c.mu.Unlock()
		}
		evt = event.NewLoggedOnEvent(payload)

	case EventAccountInfo:
		var d accountInfoData
		_ = json.Unmarshal(m.Data, &d)
		evt = event.NewAccountInfoEvent(d.PersonaName)

	case EventChallengeRotated:
		var d challengeData
		_ = json.Unmarshal(m.Data, &d)
		c.mu.Lock()
		h := c.qr[d.HandshakeID]
		c.mu.Unlock()
		if h != nil {
			h.rotate(d.URL)
		}
		return

	default:
		log.Debug(LogMsgUnknownEvent, "event", m.Event)
		return
	}

	if err := c.bus.Publish(ctx, evt); err != nil {
		log.Warn(LogMsgHandlerFailed, "type", evt.Type, "error", err)
	}
}

// handleClose reports a lost bridge link as a platform disconnect. A clean
// close of an already disconnected link publishes nothing.
func (c *Conn) handleClose(ctx context.Context, cl *client, err error) {
	c.mu.Lock()
	if c.client == cl {
		c.client = nil
	}
	wasConnected := c.connected
	userInitiated := c.closing
	c.mu.Unlock()
	c.setDisconnected()

	if err != nil && !userInitiated {
		logger.FromContext(ctx).Warn(LogMsgLinkLost, "error", err)
	} else if !wasConnected {
		return
	}
	_ = c.bus.Publish(ctx, event.NewDisconnectedEvent(userInitiated))
}

func (c *Conn) setDisconnected() {
	c.mu.Lock()
	c.connected = false
	c.sessionID = 0
	c.mu.Unlock()
}
