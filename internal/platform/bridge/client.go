package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/osse101/DropTracker_Go/internal/logger"
	"github.com/osse101/DropTracker_Go/internal/platform"
)

// Request is a bridge WebSocket request
type Request struct {
	Request        string `json:"request"`
	ID             string `json:"id"`
	Args           any    `json:"args,omitempty"`
	Authentication string `json:"authentication,omitempty"`
}

// Message is anything the bridge sends: a response when ID is set, an event when Event is set.
type Message struct {
	ID     string          `json:"id,omitempty"`
	Status string          `json:"status,omitempty"`
	Error  string          `json:"error,omitempty"`
	Code   string          `json:"code,omitempty"`
	Event  string          `json:"event,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// Hello is the first message on every connection. Authentication is empty
// unless the bridge is password protected.
type Hello struct {
	Event string `json:"event"`
	Info  struct {
		Authentication struct {
			Challenge string `json:"challenge"`
			Salt      string `json:"salt"`
		} `json:"authentication"`
	} `json:"info"`
}

// client is one WebSocket link to the bridge. Responses are routed to their
// callers by request id; events go to onEvent on the read goroutine, in order.
type client struct {
	ws      *websocket.Conn
	writeMu sync.Mutex

	respMu    sync.Mutex
	responses map[string]chan *Message
	closed    bool

	onEvent func(ctx context.Context, m *Message)
	onClose func(ctx context.Context, err error)

	done chan struct{}
}

func dial(ctx context.Context, url, password string) (*client, error) {
	log := logger.FromContext(ctx)
	log.Info(LogMsgConnecting, "url", url)

	dialer := websocket.Dialer{
		ReadBufferSize:  ReadBufferSize,
		WriteBufferSize: WriteBufferSize,
	}
	ws, resp, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("failed to connect: %w (status: %s, code: %d)", err, resp.Status, resp.StatusCode)
		}
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	// The bridge greets every connection; the greeting carries a challenge when a password is set.
	_ = ws.SetReadDeadline(time.Now().Add(HelloTimeout))
	var hello Hello
	err = ws.ReadJSON(&hello)
	_ = ws.SetReadDeadline(time.Time{})
	if err != nil {
		_ = ws.Close()
		return nil, fmt.Errorf("failed to read hello: %w", err)
	}
	if hello.Info.Authentication.Challenge != "" {
		log.Info(LogMsgAuthRequired)
		if err := authenticate(ws, password, hello); err != nil {
			_ = ws.Close()
			return nil, fmt.Errorf("authentication failed: %w", err)
		}
		log.Info(LogMsgAuthSuccess)
	}

	log.Info(LogMsgConnected, "url", url)
	return &client{
		ws:        ws,
		responses: make(map[string]chan *Message),
		done:      make(chan struct{}),
	}, nil
}

func authenticate(ws *websocket.Conn, password string, challenge Hello) error {
	if password == "" {
		return errors.New("password required but not configured")
	}

	req := Request{
		Request: RequestAuthenticate,
		ID:      uuid.New().String(),
		Authentication: GenerateAuthHash(
			password,
			challenge.Info.Authentication.Salt,
			challenge.Info.Authentication.Challenge,
		),
	}
	_ = ws.SetWriteDeadline(time.Now().Add(WriteTimeout))
	if err := ws.WriteJSON(req); err != nil {
		return fmt.Errorf("failed to send auth request: %w", err)
	}

	var resp Message
	if err := ws.ReadJSON(&resp); err != nil {
		return fmt.Errorf("failed to read auth response: %w", err)
	}
	if resp.Status != StatusOK {
		return fmt.Errorf("auth rejected: %s", resp.Error)
	}
	return nil
}

// start runs the read loop until the socket closes.
func (c *client) start(ctx context.Context) {
	go c.readLoop(ctx)
}

func (c *client) readLoop(ctx context.Context) {
	log := logger.FromContext(ctx)
	defer close(c.done)

	var readErr error
	for {
		_, raw, err := c.ws.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				readErr = err
				log.Debug(LogMsgReadError, "error", err)
			}
			break
		}

		var m Message
		if err := json.Unmarshal(raw, &m); err != nil {
			log.Debug(LogMsgBadMessage, "error", err)
			continue
		}

		switch {
		case m.ID != "":
			c.respMu.Lock()
			ch, ok := c.responses[m.ID]
			delete(c.responses, m.ID)
			c.respMu.Unlock()
			if ok {
				ch <- &m
			}
		case m.Event != "" && c.onEvent != nil:
			c.onEvent(ctx, &m)
		}
	}

	c.respMu.Lock()
	c.closed = true
	for id, ch := range c.responses {
		close(ch)
		delete(c.responses, id)
	}
	c.respMu.Unlock()

	log.Info(LogMsgClosed)
	if c.onClose != nil {
		c.onClose(ctx, readErr)
	}
}

// call sends a request and waits for its response, decoding data into out when non-nil.
func (c *client) call(ctx context.Context, request string, args, out any) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultRequestTimeout)
		defer cancel()
	}

	id := uuid.New().String()
	ch := make(chan *Message, 1)

	c.respMu.Lock()
	if c.closed {
		c.respMu.Unlock()
		return platform.ErrNotConnected
	}
	c.responses[id] = ch
	c.respMu.Unlock()

	if err := c.send(Request{Request: request, ID: id, Args: args}); err != nil {
		c.forget(id)
		return fmt.Errorf("send %s: %w", request, err)
	}

	select {
	case m, ok := <-ch:
		if !ok {
			return platform.ErrNotConnected
		}
		if m.Status != StatusOK {
			return responseError(request, m)
		}
		if out != nil && len(m.Data) > 0 {
			if err := json.Unmarshal(m.Data, out); err != nil {
				return fmt.Errorf("decode %s response: %w", request, err)
			}
		}
		return nil
	case <-ctx.Done():
		c.forget(id)
		return ctx.Err()
	}
}

// notify sends a request without waiting for the response.
func (c *client) notify(request string, args any) error {
	return c.send(Request{Request: request, ID: uuid.New().String(), Args: args})
}

func (c *client) send(req Request) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(WriteTimeout))
	return c.ws.WriteJSON(req)
}

func (c *client) forget(id string) {
	c.respMu.Lock()
	delete(c.responses, id)
	c.respMu.Unlock()
}

// discard drops a client that was never started.
func (c *client) discard() {
	_ = c.ws.Close()
}

func (c *client) close() error {
	c.writeMu.Lock()
	_ = c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(WriteTimeout))
	c.writeMu.Unlock()

	err := c.ws.Close()
	<-c.done
	return err
}

func responseError(request string, m *Message) error {
	switch m.Code {
	case CodeInvalidPassword:
		return platform.ErrInvalidPassword
	case CodeUserCancelled:
		return platform.ErrUserCancelled
	case CodeAccessDenied:
		return platform.ErrAccessDenied
	case CodeNotConnected:
		return platform.ErrNotConnected
	}
	msg := m.Error
	if msg == "" {
		msg = "unknown error"
	}
	return &platform.JobFailedError{Job: request, Cause: errors.New(msg)}
}
