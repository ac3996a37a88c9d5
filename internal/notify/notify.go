// Package notify posts run reports to a Discord webhook.
package notify

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/osse101/DropTracker_Go/internal/event"
	"github.com/osse101/DropTracker_Go/internal/logger"
)

const (
	embedDescriptionLimit = 4096
	colorSuccess          = 0x2ecc71
	colorPartial          = 0xe67e22
	colorFailure          = 0xe74c3c
	webhookUsername       = "Drop Tracker"

	LogMsgReportSent   = "Run report sent to Discord"
	LogMsgReportFailed = "Failed to send run report to Discord"
)

// ErrInvalidWebhookURL is returned for URLs not of the form .../api/webhooks/{id}/{token}.
var ErrInvalidWebhookURL = errors.New("invalid discord webhook url")

// Webhook sends run reports through a Discord webhook.
type Webhook struct {
	session *discordgo.Session
	id      string
	token   string
}

// NewWebhook creates a Webhook from its full URL.
func NewWebhook(webhookURL string) (*Webhook, error) {
	id, token, err := parseWebhookURL(webhookURL)
	if err != nil {
		return nil, err
	}
	// Webhook execution needs no bot token.
	s, err := discordgo.New("")
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	return &Webhook{session: s, id: id, token: token}, nil
}

func parseWebhookURL(raw string) (id, token string, err error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrInvalidWebhookURL, err)
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i := 0; i+2 < len(parts); i++ {
		if parts[i] == "webhooks" && parts[i+1] != "" && parts[i+2] != "" {
			return parts[i+1], parts[i+2], nil
		}
	}
	return "", "", fmt.Errorf("%w: %s", ErrInvalidWebhookURL, u.Redacted())
}

// Register subscribes the webhook to run completion events.
func (w *Webhook) Register(bus event.Bus) event.Unsubscribe {
	return bus.Subscribe(event.RunCompleted, w.HandleEvent)
}

// HandleEvent sends the report carried by a run completion event.
func (w *Webhook) HandleEvent(ctx context.Context, evt event.Event) error {
	payload, err := event.DecodePayload[event.RunCompletedPayloadV1](evt.Payload)
	if err != nil {
		return err
	}
	return w.Send(ctx, payload)
}

// Send posts one run report.
func (w *Webhook) Send(ctx context.Context, run event.RunCompletedPayloadV1) error {
	log := logger.FromContext(ctx)

	params := &discordgo.WebhookParams{
		Username: webhookUsername,
		Embeds:   []*discordgo.MessageEmbed{buildEmbed(run)},
	}
	if _, err := w.session.WebhookExecute(w.id, w.token, false, params, discordgo.WithContext(ctx)); err != nil {
		log.Error(LogMsgReportFailed, "error", err)
		return fmt.Errorf("send discord report: %w", err)
	}
	log.Info(LogMsgReportSent, "run_id", run.RunID)
	return nil
}

func buildEmbed(run event.RunCompletedPayloadV1) *discordgo.MessageEmbed {
	color := colorSuccess
	switch {
	case run.Succeeded == 0 && run.Failed > 0:
		color = colorFailure
	case run.Failed > 0:
		color = colorPartial
	}

	description := "```\n" + run.Report + "\n```"
	if len(description) > embedDescriptionLimit {
		keep := embedDescriptionLimit - len("```\n…\n```")
		description = "```\n" + strings.ToValidUTF8(run.Report[:keep], "") + "…\n```"
	}

	embed := &discordgo.MessageEmbed{
		Title:       "Weekly drop check",
		Description: description,
		Color:       color,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Succeeded", Value: fmt.Sprint(run.Succeeded), Inline: true},
			{Name: "Failed", Value: fmt.Sprint(run.Failed), Inline: true},
		},
		Footer: &discordgo.MessageEmbedFooter{Text: "run " + run.RunID},
	}
	if !run.Finished.IsZero() {
		embed.Timestamp = run.Finished.UTC().Format(time.RFC3339)
	}
	return embed
}
