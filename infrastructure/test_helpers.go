package infrastructure

import (
	"context"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/mock"
)

// MockMessagePublisher is a mock implementation of MessagePublisher
type MockMessagePublisher struct {
	mock.Mock
}

func (m *MockMessagePublisher) Publish(ctx context.Context, subject string, data []byte) error {
	args := m.Called(ctx, subject, data)
	return args.Error(0)
}

// MockFailureRecorder is a mock implementation of FailureRecorder
type MockFailureRecorder struct {
	mock.Mock
}

func (m *MockFailureRecorder) RecordSideChannelFailure(ctx context.Context, channel string) {
	m.Called(ctx, channel)
}

// MockWebhookExecutor is a mock implementation of WebhookExecutor
type MockWebhookExecutor struct {
	mock.Mock
}

func (m *MockWebhookExecutor) WebhookExecute(webhookID, token string, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	args := m.Called(webhookID, token, wait, data)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*discordgo.Message), args.Error(1)
}
