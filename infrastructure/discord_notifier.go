package infrastructure

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"goldennest/events"
	"goldennest/models"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"
)

// ChannelDiscord names the notifier in side-channel failure metrics
const ChannelDiscord = "discord"

const (
	colorPending   = 0xFFD700 // Gold
	colorVote      = 0x3498DB // Blue
	colorApproved  = 0x2ECC71 // Green
	colorRejected  = 0xE74C3C // Red
	colorCancelled = 0x95A5A6 // Grey
)

// WebhookExecutor posts a message through a Discord webhook
type WebhookExecutor interface {
	WebhookExecute(webhookID, token string, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// DiscordNotifier posts approval workflow updates to a household webhook
type DiscordNotifier struct {
	executor  WebhookExecutor
	webhookID string
	token     string
	failures  FailureRecorder
	now       func() time.Time
}

// NewDiscordNotifier creates a notifier for a webhook URL of the form
// https://discord.com/api/webhooks/{id}/{token}. failures may be nil.
func NewDiscordNotifier(webhookURL string, failures FailureRecorder) (*DiscordNotifier, error) {
	webhookID, token, err := ParseWebhookURL(webhookURL)
	if err != nil {
		return nil, err
	}

	session, err := discordgo.New("")
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}

	return newDiscordNotifier(session, webhookID, token, failures), nil
}

func newDiscordNotifier(executor WebhookExecutor, webhookID, token string, failures FailureRecorder) *DiscordNotifier {
	return &DiscordNotifier{
		executor:  executor,
		webhookID: webhookID,
		token:     token,
		failures:  failures,
		now:       time.Now,
	}
}

// ParseWebhookURL extracts the webhook id and token from a webhook URL
func ParseWebhookURL(raw string) (string, string, error) {
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", "", fmt.Errorf("invalid webhook url: %w", err)
	}

	parts := strings.Split(strings.Trim(parsed.Path, "/"), "/")
	for i := 0; i+2 < len(parts); i++ {
		if parts[i] == "webhooks" && parts[i+1] != "" && parts[i+2] != "" {
			return parts[i+1], parts[i+2], nil
		}
	}

	return "", "", fmt.Errorf("webhook url %q has no webhook id and token", parsed.Redacted())
}

// Attach subscribes the notifier to the approval lifecycle events
func (n *DiscordNotifier) Attach(bus *events.Bus) {
	for _, eventType := range []events.EventType{
		events.EventTypeApprovalRequestCreated,
		events.EventTypeApprovalVoteCast,
		events.EventTypeApprovalRequestCompleted,
		events.EventTypeApprovalRequestCancelled,
	} {
		bus.Subscribe(eventType, n.handle)
	}
}

func (n *DiscordNotifier) handle(ctx context.Context, event events.Event) {
	if err := n.Notify(event); err != nil {
		log.WithFields(log.Fields{
			"eventType": event.Type(),
			"error":     err,
		}).Warn("Failed to send Discord notification")
		if n.failures != nil {
			n.failures.RecordSideChannelFailure(ctx, ChannelDiscord)
		}
	}
}

// Notify posts the embed of an event. Households with a single member get no notifications.
func (n *DiscordNotifier) Notify(event events.Event) error {
	embed := n.buildEmbed(event)
	if embed == nil {
		return nil
	}

	params := &discordgo.WebhookParams{
		Username: "GoldenNest",
		Embeds:   []*discordgo.MessageEmbed{embed},
	}

	if _, err := n.executor.WebhookExecute(n.webhookID, n.token, false, params); err != nil {
		return fmt.Errorf("failed to execute webhook: %w", err)
	}

	log.WithField("eventType", event.Type()).Debug("Sent Discord notification")
	return nil
}

// buildEmbed returns nil for events that should not notify anyone
func (n *DiscordNotifier) buildEmbed(event events.Event) *discordgo.MessageEmbed {
	var embed *discordgo.MessageEmbed

	switch e := event.(type) {
	case events.ApprovalRequestCreatedEvent:
		if e.MemberCount <= 1 {
			return nil
		}
		embed = &discordgo.MessageEmbed{
			Title:       fmt.Sprintf("New request: %s", e.Title),
			Description: fmt.Sprintf("%s request for **%s** is waiting for votes", describeType(e.RequestType), e.Amount.StringFixed(2)),
			Color:       colorPending,
			Footer:      requestFooter(e.RequestID),
		}

	case events.ApprovalVoteCastEvent:
		if e.MemberCount <= 1 {
			return nil
		}
		verdict := "approved"
		color := colorVote
		if !e.Approved {
			verdict = "rejected"
			color = colorRejected
		}
		embed = &discordgo.MessageEmbed{
			Title:       fmt.Sprintf("Vote on: %s", e.Title),
			Description: fmt.Sprintf("Member %d %s the request", e.ApproverID, verdict),
			Color:       color,
			Footer:      requestFooter(e.RequestID),
		}
		if e.Comment != "" {
			embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
				Name:  "Comment",
				Value: truncateField(e.Comment),
			})
		}

	case events.ApprovalRequestCompletedEvent:
		if e.MemberCount <= 1 {
			return nil
		}
		color := colorApproved
		if e.Status == models.RequestStatusRejected {
			color = colorRejected
		}
		embed = &discordgo.MessageEmbed{
			Title:       fmt.Sprintf("Request %s: %s", e.Status, e.Title),
			Description: fmt.Sprintf("%s request is now **%s**", describeType(e.RequestType), strings.ToUpper(string(e.Status))),
			Color:       color,
			Footer:      requestFooter(e.RequestID),
		}

	case events.ApprovalRequestCancelledEvent:
		if e.MemberCount <= 1 {
			return nil
		}
		embed = &discordgo.MessageEmbed{
			Title:       fmt.Sprintf("Request cancelled: %s", e.Title),
			Description: fmt.Sprintf("Member %d withdrew the request", e.RequesterID),
			Color:       colorCancelled,
			Footer:      requestFooter(e.RequestID),
		}

	default:
		return nil
	}

	embed.Timestamp = n.now().UTC().Format(time.RFC3339)
	return embed
}

func requestFooter(requestID int64) *discordgo.MessageEmbedFooter {
	return &discordgo.MessageEmbedFooter{Text: fmt.Sprintf("Request ID: %d", requestID)}
}

func describeType(t models.RequestType) string {
	words := strings.Split(string(t), "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

// truncateField keeps a value within Discord's embed field limit
func truncateField(value string) string {
	if len(value) > 1024 {
		return value[:1021] + "..."
	}
	return value
}
