package infrastructure

import (
	"fmt"

	"goldennest/events"
)

// Subjects the forwarder publishes to
const (
	SubjectApprovalCreated   = "goldennest.approval.created"
	SubjectApprovalVoted     = "goldennest.approval.voted"
	SubjectApprovalCompleted = "goldennest.approval.completed"
	SubjectApprovalCancelled = "goldennest.approval.cancelled"
	SubjectApprovalExecuted  = "goldennest.approval.executed"
	SubjectAchievement       = "goldennest.achievement.triggered"
)

// EventSubjectMapper maps domain events to NATS subjects
type EventSubjectMapper struct{}

// NewEventSubjectMapper creates a new event subject mapper
func NewEventSubjectMapper() *EventSubjectMapper {
	return &EventSubjectMapper{}
}

// MapEventToSubject returns the subject of an event and false for events that stay in process
func (m *EventSubjectMapper) MapEventToSubject(event events.Event) (string, bool) {
	switch event.Type() {
	case events.EventTypeApprovalRequestCreated:
		return SubjectApprovalCreated, true
	case events.EventTypeApprovalVoteCast:
		return SubjectApprovalVoted, true
	case events.EventTypeApprovalRequestCompleted:
		return SubjectApprovalCompleted, true
	case events.EventTypeApprovalRequestCancelled:
		return SubjectApprovalCancelled, true
	case events.EventTypeApprovalRequestExecuted:
		return SubjectApprovalExecuted, true
	case events.EventTypeAchievementTrigger:
		return SubjectAchievement, true
	default:
		return fmt.Sprintf("goldennest.internal.%s", event.Type()), false
	}
}

// GetAllSubjects returns the subject filters of the stream
func (m *EventSubjectMapper) GetAllSubjects() []string {
	return []string{
		"goldennest.approval.*",
		"goldennest.achievement.*",
	}
}
