package bridge

import (
	"context"
	"sync"
	"time"

	"github.com/osse101/DropTracker_Go/internal/logger"
	"github.com/osse101/DropTracker_Go/internal/platform"
)

type pollResult struct {
	Done         bool   `json:"done"`
	SteamID      uint64 `json:"steam_id"`
	AccountName  string `json:"account_name"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// handshake polls the bridge until the platform approves or rejects the login.
type handshake struct {
	client   *client
	id       string
	interval time.Duration
	release  func()
}

func (h *handshake) PollResult(ctx context.Context) (platform.Credentials, error) {
	if h.release != nil {
		defer h.release()
	}

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	args := map[string]string{"handshake_id": h.id}
	for {
		var res pollResult
		if err := h.client.call(ctx, RequestPollAuth, args, &res); err != nil {
			logger.FromContext(ctx).Debug(LogMsgPollFailed, "handshake_id", h.id, "error", err)
			return platform.Credentials{}, err
		}
		if res.Done {
			return platform.Credentials{
				SteamID:      res.SteamID,
				AccountName:  res.AccountName,
				AccessToken:  res.AccessToken,
				RefreshToken: res.RefreshToken,
			}, nil
		}

		select {
		case <-ctx.Done():
			return platform.Credentials{}, ctx.Err()
		case <-ticker.C:
		}
	}
}

// qrHandshake is a handshake whose challenge URL the bridge rotates.
type qrHandshake struct {
	handshake

	mu        sync.Mutex
	url       string
	onRotated []func(url string)
}

func (h *qrHandshake) ChallengeURL() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.url
}

func (h *qrHandshake) OnChallengeRotated(fn func(url string)) {
	h.mu.Lock()
	h.onRotated = append(h.onRotated, fn)
	h.mu.Unlock()
}

func (h *qrHandshake) rotate(url string) {
	h.mu.Lock()
	h.url = url
	fns := append([]func(string){}, h.onRotated...)
	h.mu.Unlock()

	for _, fn := range fns {
		fn(url)
	}
}
