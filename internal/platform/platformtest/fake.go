// Package platformtest provides a scripted in-memory platform.Connection for tests.
package platformtest

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/osse101/DropTracker_Go/internal/event"
	"github.com/osse101/DropTracker_Go/internal/platform"
)

// ConnectStep scripts the outcome of one Connect call.
type ConnectStep int

const (
	StepConnect ConnectStep = iota
	StepDisconnect
	StepSilent
)

// Conn is a fake connection. Configure the exported fields before use.
// Events are delivered in order on a dedicated goroutine, like a real dispatch loop.
type Conn struct {
	Label string

	// ConnectScript is consumed one step per Connect call; once exhausted StepConnect is used.
	ConnectScript []ConnectStep
	ConnectErr    error

	// LogOnEvents returns the events emitted after LogOn. Nil emits LoggedOnOK + AccountInfo.
	LogOnEvents func(details platform.LogOnDetails) []event.Event
	LogOnSteamID uint64
	PersonaName  string

	RenewFunc func(steamID uint64, refreshToken string) (platform.RenewedTokens, error)

	CredentialHandshake *Handshake
	QR                  *QRHandshake
	BeginErr            error

	Wallet    platform.WalletDetails
	WalletErr error

	bus      *event.MemoryBus
	queue    chan event.Event
	done     chan struct{}
	stopOnce sync.Once

	mu        sync.Mutex
	connected bool
	sessionID int32
	steamID   uint64
	closed    bool

	connectCalls atomic.Int32
	logOnCalls   atomic.Int32
	renewCalls   atomic.Int32
	walletCalls  atomic.Int32
	beginCalls   atomic.Int32
	lastLogOn    atomic.Pointer[platform.LogOnDetails]
}

// NewConn returns a fake connection with its dispatch goroutine running.
func NewConn(label string) *Conn {
	c := &Conn{
		Label: label,
		bus:   event.NewMemoryBus(),
		queue: make(chan event.Event, 64),
		done:  make(chan struct{}),
	}
	go c.dispatch()
	return c
}

func (c *Conn) dispatch() {
	for {
		select {
		case e := <-c.queue:
			c.apply(e)
			_ = c.bus.Publish(context.Background(), e)
		case <-c.done:
			return
		}
	}
}

// apply updates connection state before subscribers observe the event.
func (c *Conn) apply(e event.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch e.Type {
	case event.Connected:
		c.connected = true
	case event.Disconnected:
		c.connected = false
		c.sessionID = 0
	case event.LoggedOn:
		p, err := event.DecodePayload[event.LoggedOnPayloadV1](e.Payload)
		if err == nil && platform.EResult(p.Result) == platform.ResultOK {
			c.sessionID = p.SessionID
			if c.sessionID == 0 {
				c.sessionID = 1
			}
			if p.SteamID != 0 {
				c.steamID = p.SteamID
			}
		}
	}
}

// Emit queues an event for delivery.
func (c *Conn) Emit(events ...event.Event) {
	for _, e := range events {
		select {
		case c.queue <- e:
		case <-c.done:
			return
		}
	}
}

func (c *Conn) Connect(ctx context.Context) error {
	n := int(c.connectCalls.Add(1))
	if c.ConnectErr != nil {
		return c.ConnectErr
	}

	step := StepConnect
	if n <= len(c.ConnectScript) {
		step = c.ConnectScript[n-1]
	}
	switch step {
	case StepConnect:
		c.Emit(event.NewConnectedEvent())
	case StepDisconnect:
		c.Emit(event.NewDisconnectedEvent(false))
	}
	return nil
}

func (c *Conn) Disconnect() {
	c.mu.Lock()
	wasConnected := c.connected
	c.mu.Unlock()
	if wasConnected {
		c.Emit(event.NewDisconnectedEvent(true))
	}
}

func (c *Conn) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected && !c.closed
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

// SetLoggedOn marks the connection as already authenticated.
func (c *Conn) SetLoggedOn(steamID uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = true
	c.sessionID = 1
	c.steamID = steamID
}

// Drop simulates the remote end closing the connection.
func (c *Conn) Drop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
	c.sessionID = 0
}

func (c *Conn) Subscribe(eventType event.Type, handler event.Handler) event.Unsubscribe {
	return c.bus.Subscribe(eventType, handler)
}

func (c *Conn) LogOn(ctx context.Context, details platform.LogOnDetails) error {
	c.logOnCalls.Add(1)
	c.lastLogOn.Store(&details)

	if c.LogOnEvents != nil {
		c.Emit(c.LogOnEvents(details)...)
		return nil
	}
	c.Emit(LoggedOnOK(c.LogOnSteamID), event.NewAccountInfoEvent(c.PersonaName))
	return nil
}

func (c *Conn) BeginAuthViaCredentials(ctx context.Context, username, password string) (platform.Handshake, error) {
	c.beginCalls.Add(1)
	if c.BeginErr != nil {
		return nil, c.BeginErr
	}
	if c.CredentialHandshake == nil {
		return &Handshake{Creds: platform.Credentials{AccountName: username}}, nil
	}
	return c.CredentialHandshake, nil
}

func (c *Conn) BeginAuthViaQR(ctx context.Context) (platform.QRHandshake, error) {
	c.beginCalls.Add(1)
	if c.BeginErr != nil {
		return nil, c.BeginErr
	}
	if c.QR == nil {
		return &QRHandshake{URLs: []string{"https://s.team/q/1/1"}}, nil
	}
	return c.QR, nil
}

func (c *Conn) RenewAccessToken(ctx context.Context, steamID uint64, refreshToken string) (platform.RenewedTokens, error) {
	c.renewCalls.Add(1)
	if c.RenewFunc == nil {
		return platform.RenewedTokens{}, platform.ErrAccessDenied
	}
	return c.RenewFunc(steamID, refreshToken)
}

func (c *Conn) WalletDetails(ctx context.Context) (platform.WalletDetails, error) {
	c.walletCalls.Add(1)
	return c.Wallet, c.WalletErr
}

func (c *Conn) Close() error {
	c.mu.Lock()
	c.closed = true
	c.connected = false
	c.mu.Unlock()
	c.stopOnce.Do(func() { close(c.done) })
	return nil
}

// Closed reports whether Close was called.
func (c *Conn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Call counters.
func (c *Conn) ConnectCalls() int { return int(c.connectCalls.Load()) }
func (c *Conn) LogOnCalls() int   { return int(c.logOnCalls.Load()) }
func (c *Conn) RenewCalls() int   { return int(c.renewCalls.Load()) }
func (c *Conn) WalletCalls() int  { return int(c.walletCalls.Load()) }
func (c *Conn) BeginCalls() int   { return int(c.beginCalls.Load()) }

// NetworkCalls is the number of calls that would have touched the network.
func (c *Conn) NetworkCalls() int {
	return c.ConnectCalls() + c.LogOnCalls() + c.RenewCalls() + c.WalletCalls() + c.BeginCalls()
}

// LastLogOn returns the details of the most recent LogOn call.
func (c *Conn) LastLogOn() (platform.LogOnDetails, bool) {
	if d := c.lastLogOn.Load(); d != nil {
		return *d, true
	}
	return platform.LogOnDetails{}, false
}

// SubscriberCount reports the live subscriptions for eventType.
func (c *Conn) SubscriberCount(eventType event.Type) int {
	return c.bus.SubscriberCount(eventType)
}

// LoggedOnOK builds a successful logon event.
func LoggedOnOK(steamID uint64) event.Event {
	return event.NewLoggedOnEvent(event.LoggedOnPayloadV1{
		Result:    int(platform.ResultOK),
		SteamID:   steamID,
		SessionID: 1,
	})
}

// LoggedOnResult builds a logon event with the given result code.
func LoggedOnResult(result platform.EResult) event.Event {
	return event.NewLoggedOnEvent(event.LoggedOnPayloadV1{Result: int(result)})
}

// Handshake is a fake credential handshake.
type Handshake struct {
	Creds platform.Credentials
	Err   error
	Delay time.Duration
}

func (h *Handshake) PollResult(ctx context.Context) (platform.Credentials, error) {
	if h.Delay > 0 {
		select {
		case <-time.After(h.Delay):
		case <-ctx.Done():
			return platform.Credentials{}, ctx.Err()
		}
	}
	if h.Err != nil {
		return platform.Credentials{}, h.Err
	}
	return h.Creds, nil
}

// QRHandshake is a fake QR handshake. URLs[0] is the initial challenge; the
// remaining URLs are announced as rotations while polling.
type QRHandshake struct {
	Handshake
	URLs []string

	mu        sync.Mutex
	onRotated func(url string)
}

func (q *QRHandshake) ChallengeURL() string {
	if len(q.URLs) == 0 {
		return ""
	}
	return q.URLs[0]
}

func (q *QRHandshake) OnChallengeRotated(fn func(url string)) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.onRotated = fn
}

func (q *QRHandshake) PollResult(ctx context.Context) (platform.Credentials, error) {
	q.mu.Lock()
	fn := q.onRotated
	q.mu.Unlock()

	if fn != nil && len(q.URLs) > 1 {
		for _, url := range q.URLs[1:] {
			fn(url)
		}
	}
	return q.Handshake.PollResult(ctx)
}

// Dialer hands out fake connections and remembers them.
type Dialer struct {
	// New builds the connection for a Dial call. Nil uses NewConn.
	New func(label string) *Conn
	Err error

	mu    sync.Mutex
	conns []*Conn
}

func (d *Dialer) Dial(label string) (platform.Connection, error) {
	if d.Err != nil {
		return nil, d.Err
	}
	var c *Conn
	if d.New != nil {
		c = d.New(label)
	} else {
		c = NewConn(label)
	}
	d.mu.Lock()
	d.conns = append(d.conns, c)
	d.mu.Unlock()
	return c, nil
}

// Conns returns every connection dialled so far.
func (d *Dialer) Conns() []*Conn {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*Conn(nil), d.conns...)
}
