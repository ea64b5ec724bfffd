package infrastructure

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"goldennest/events"
	"goldennest/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestEventSubjectMapper(t *testing.T) {
	mapper := NewEventSubjectMapper()

	tests := []struct {
		name    string
		event   events.Event
		subject string
		mapped  bool
	}{
		{"created", events.ApprovalRequestCreatedEvent{}, SubjectApprovalCreated, true},
		{"voted", events.ApprovalVoteCastEvent{}, SubjectApprovalVoted, true},
		{"completed", events.ApprovalRequestCompletedEvent{}, SubjectApprovalCompleted, true},
		{"cancelled", events.ApprovalRequestCancelledEvent{}, SubjectApprovalCancelled, true},
		{"executed", events.ApprovalRequestExecutedEvent{}, SubjectApprovalExecuted, true},
		{"achievement", events.AchievementTriggerEvent{}, SubjectAchievement, true},
		{"ledger stays in process", events.LedgerTransactionEvent{}, "goldennest.internal.ledger_transaction_recorded", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			subject, mapped := mapper.MapEventToSubject(tt.event)
			assert.Equal(t, tt.subject, subject)
			assert.Equal(t, tt.mapped, mapped)
		})
	}

	assert.Equal(t, []string{"goldennest.approval.*", "goldennest.achievement.*"}, mapper.GetAllSubjects())
}

func TestNATSEventPublisher_Publish(t *testing.T) {
	ctx := context.Background()
	client := new(MockMessagePublisher)
	publisher := NewNATSEventPublisher(client, NewEventSubjectMapper(), nil)
	publisher.now = func() time.Time { return time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC) }

	event := events.ApprovalRequestCreatedEvent{
		RequestID:   42,
		FamilyID:    7,
		RequesterID: 100,
		RequestType: models.RequestTypeDeposit,
		Title:       "March savings",
		Amount:      decimal.NewFromInt(500),
		MemberCount: 2,
	}

	var sent []byte
	client.On("Publish", ctx, SubjectApprovalCreated, mock.Anything).
		Run(func(args mock.Arguments) { sent = args.Get(2).([]byte) }).
		Return(nil)

	require.NoError(t, publisher.Publish(ctx, event))
	client.AssertExpectations(t)

	var envelope EventEnvelope
	require.NoError(t, json.Unmarshal(sent, &envelope))
	_, err := uuid.Parse(envelope.EventID)
	assert.NoError(t, err)
	assert.Equal(t, "approval_request_created", envelope.EventType)
	assert.Equal(t, "goldennest", envelope.SourceService)
	assert.True(t, envelope.Timestamp.Equal(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)))

	var payload events.ApprovalRequestCreatedEvent
	require.NoError(t, json.Unmarshal(envelope.Payload, &payload))
	assert.Equal(t, int64(42), payload.RequestID)
	assert.Equal(t, "March savings", payload.Title)
	assert.True(t, payload.Amount.Equal(decimal.NewFromInt(500)))
}

func TestNATSEventPublisher_SkipsInternalEvents(t *testing.T) {
	client := new(MockMessagePublisher)
	publisher := NewNATSEventPublisher(client, NewEventSubjectMapper(), nil)

	require.NoError(t, publisher.Publish(context.Background(), events.LedgerTransactionEvent{TransactionID: 1}))
	client.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
}

func TestNATSEventPublisher_PublishErrors(t *testing.T) {
	t.Run("missing stream is returned", func(t *testing.T) {
		client := new(MockMessagePublisher)
		publisher := NewNATSEventPublisher(client, NewEventSubjectMapper(), nil)
		client.On("Publish", mock.Anything, SubjectApprovalVoted, mock.Anything).
			Return(errors.New("nats: no response from stream"))

		err := publisher.Publish(context.Background(), events.ApprovalVoteCastEvent{RequestID: 1})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no response from stream")
	})

	t.Run("other errors are returned", func(t *testing.T) {
		client := new(MockMessagePublisher)
		publisher := NewNATSEventPublisher(client, NewEventSubjectMapper(), nil)
		client.On("Publish", mock.Anything, SubjectApprovalVoted, mock.Anything).
			Return(errors.New("connection closed"))

		err := publisher.Publish(context.Background(), events.ApprovalVoteCastEvent{RequestID: 1})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "connection closed")
	})
}

func TestNATSEventPublisher_AttachCountsFailures(t *testing.T) {
	bus := events.NewBus()
	client := new(MockMessagePublisher)
	failures := new(MockFailureRecorder)
	publisher := NewNATSEventPublisher(client, NewEventSubjectMapper(), failures)
	publisher.Attach(bus)

	client.On("Publish", mock.Anything, SubjectApprovalCancelled, mock.Anything).Return(errors.New("timeout"))
	failures.On("RecordSideChannelFailure", mock.Anything, ChannelNATS).Return()

	bus.Emit(context.Background(), events.ApprovalRequestCancelledEvent{RequestID: 3, FamilyID: 1})
	bus.Wait()

	client.AssertExpectations(t)
	failures.AssertNumberOfCalls(t, "RecordSideChannelFailure", 1)
}

func TestNATSEventPublisher_AttachCountsMissingStream(t *testing.T) {
	bus := events.NewBus()
	client := new(MockMessagePublisher)
	failures := new(MockFailureRecorder)
	NewNATSEventPublisher(client, NewEventSubjectMapper(), failures).Attach(bus)

	client.On("Publish", mock.Anything, SubjectApprovalCreated, mock.Anything).
		Return(errors.New("nats: no response from stream"))
	failures.On("RecordSideChannelFailure", mock.Anything, ChannelNATS).Return()

	bus.Emit(context.Background(), events.ApprovalRequestCreatedEvent{RequestID: 4, FamilyID: 1})
	bus.Wait()

	failures.AssertNumberOfCalls(t, "RecordSideChannelFailure", 1)
}
