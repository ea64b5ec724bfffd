package infrastructure

import (
	"context"

	"goldennest/events"
	"goldennest/models"

	log "github.com/sirupsen/logrus"
)

// achievementTriggers lists the executions that can unlock an achievement
var achievementTriggers = map[models.RequestType]bool{
	models.RequestTypeDeposit:          true,
	models.RequestTypeExpense:          true,
	models.RequestTypeInvestmentIncome: true,
	models.RequestTypeMemberJoin:       true,
}

// AchievementHook turns executed requests into achievement checks for the requester
type AchievementHook struct {
	bus *events.Bus
}

// NewAchievementHook creates a hook re-emitting triggers on bus
func NewAchievementHook(bus *events.Bus) *AchievementHook {
	return &AchievementHook{bus: bus}
}

// Attach subscribes the hook to executed requests
func (h *AchievementHook) Attach() {
	h.bus.Subscribe(events.EventTypeApprovalRequestExecuted, h.handle)
}

func (h *AchievementHook) handle(ctx context.Context, event events.Event) {
	executed, ok := event.(events.ApprovalRequestExecutedEvent)
	if !ok || !achievementTriggers[executed.RequestType] {
		return
	}

	log.WithFields(log.Fields{
		"requestID": executed.RequestID,
		"userID":    executed.RequesterID,
		"trigger":   executed.RequestType,
	}).Debug("Emitting achievement trigger")

	h.bus.Emit(ctx, events.AchievementTriggerEvent{
		UserID:    executed.RequesterID,
		FamilyID:  executed.FamilyID,
		Trigger:   executed.RequestType,
		RequestID: executed.RequestID,
		Amount:    executed.Amount,
	})
}
