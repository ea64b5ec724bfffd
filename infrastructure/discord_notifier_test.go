package infrastructure

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"goldennest/events"
	"goldennest/models"

	"github.com/bwmarrin/discordgo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestNotifier() (*DiscordNotifier, *MockWebhookExecutor, *MockFailureRecorder) {
	executor := new(MockWebhookExecutor)
	failures := new(MockFailureRecorder)
	notifier := newDiscordNotifier(executor, "123", "secret", failures)
	notifier.now = func() time.Time { return time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC) }
	return notifier, executor, failures
}

func TestParseWebhookURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		id      string
		token   string
		wantErr bool
	}{
		{"discord.com", "https://discord.com/api/webhooks/123/abc", "123", "abc", false},
		{"versioned api", "https://discord.com/api/v10/webhooks/456/def/", "456", "def", false},
		{"missing token", "https://discord.com/api/webhooks/123", "", "", true},
		{"not a webhook", "https://example.com/hooks", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, token, err := ParseWebhookURL(tt.url)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.id, id)
			assert.Equal(t, tt.token, token)
		})
	}
}

func TestDiscordNotifier_Notify(t *testing.T) {
	t.Run("request created", func(t *testing.T) {
		notifier, executor, _ := newTestNotifier()

		var params *discordgo.WebhookParams
		executor.On("WebhookExecute", "123", "secret", false, mock.Anything).
			Run(func(args mock.Arguments) { params = args.Get(3).(*discordgo.WebhookParams) }).
			Return(nil, nil)

		err := notifier.Notify(events.ApprovalRequestCreatedEvent{
			RequestID:   9,
			RequestType: models.RequestTypeInvestmentCreate,
			Title:       "Bond fund",
			Amount:      decimal.NewFromInt(1000),
			MemberCount: 3,
		})
		require.NoError(t, err)

		require.Len(t, params.Embeds, 1)
		embed := params.Embeds[0]
		assert.Equal(t, "New request: Bond fund", embed.Title)
		assert.Contains(t, embed.Description, "Investment Create request for **1000.00**")
		assert.Equal(t, colorPending, embed.Color)
		assert.Equal(t, "Request ID: 9", embed.Footer.Text)
		assert.Equal(t, "2024-03-01T09:00:00Z", embed.Timestamp)
	})

	t.Run("rejection vote carries comment", func(t *testing.T) {
		notifier, executor, _ := newTestNotifier()

		var params *discordgo.WebhookParams
		executor.On("WebhookExecute", "123", "secret", false, mock.Anything).
			Run(func(args mock.Arguments) { params = args.Get(3).(*discordgo.WebhookParams) }).
			Return(nil, nil)

		err := notifier.Notify(events.ApprovalVoteCastEvent{
			RequestID:   9,
			ApproverID:  200,
			Approved:    false,
			Comment:     strings.Repeat("x", 2000),
			Title:       "Bond fund",
			MemberCount: 2,
		})
		require.NoError(t, err)

		embed := params.Embeds[0]
		assert.Equal(t, colorRejected, embed.Color)
		assert.Contains(t, embed.Description, "rejected")
		require.Len(t, embed.Fields, 1)
		assert.Len(t, embed.Fields[0].Value, 1024)
	})

	t.Run("completed rejected request", func(t *testing.T) {
		notifier, executor, _ := newTestNotifier()

		var params *discordgo.WebhookParams
		executor.On("WebhookExecute", "123", "secret", false, mock.Anything).
			Run(func(args mock.Arguments) { params = args.Get(3).(*discordgo.WebhookParams) }).
			Return(nil, nil)

		err := notifier.Notify(events.ApprovalRequestCompletedEvent{
			RequestID:   9,
			RequestType: models.RequestTypeExpense,
			Title:       "New fridge",
			Status:      models.RequestStatusRejected,
			MemberCount: 2,
		})
		require.NoError(t, err)
		assert.Equal(t, colorRejected, params.Embeds[0].Color)
		assert.Contains(t, params.Embeds[0].Description, "REJECTED")
	})

	t.Run("single member household is silent", func(t *testing.T) {
		notifier, executor, _ := newTestNotifier()

		for _, event := range []events.Event{
			events.ApprovalRequestCreatedEvent{MemberCount: 1},
			events.ApprovalVoteCastEvent{MemberCount: 1},
			events.ApprovalRequestCompletedEvent{MemberCount: 1},
			events.ApprovalRequestCancelledEvent{MemberCount: 1},
		} {
			require.NoError(t, notifier.Notify(event))
		}
		executor.AssertNotCalled(t, "WebhookExecute", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("other events are ignored", func(t *testing.T) {
		notifier, executor, _ := newTestNotifier()

		require.NoError(t, notifier.Notify(events.ApprovalRequestExecutedEvent{RequestID: 1}))
		executor.AssertNotCalled(t, "WebhookExecute", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestDiscordNotifier_AttachCountsFailures(t *testing.T) {
	notifier, executor, failures := newTestNotifier()
	bus := events.NewBus()
	notifier.Attach(bus)

	executor.On("WebhookExecute", "123", "secret", false, mock.Anything).Return(nil, errors.New("HTTP 429"))
	failures.On("RecordSideChannelFailure", mock.Anything, ChannelDiscord).Return()

	bus.Emit(context.Background(), events.ApprovalRequestCancelledEvent{RequestID: 5, Title: "Trip", MemberCount: 2})
	bus.Wait()

	executor.AssertNumberOfCalls(t, "WebhookExecute", 1)
	failures.AssertNumberOfCalls(t, "RecordSideChannelFailure", 1)
}
