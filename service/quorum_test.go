package service

import (
	"errors"
	"testing"

	"goldennest/models"

	"github.com/stretchr/testify/assert"
)

func member(userID int64, role models.MemberRole) *models.FamilyMember {
	return &models.FamilyMember{FamilyID: 1, UserID: userID, Role: role}
}

func vote(approverID int64, approved bool) *models.ApprovalRecord {
	return &models.ApprovalRecord{ApproverID: approverID, IsApproved: approved}
}

func int64Ptr(v int64) *int64 {
	return &v
}

func TestEvaluateQuorum(t *testing.T) {
	admin := member(1, models.MemberRoleAdmin)
	alice := member(2, models.MemberRoleMember)
	bob := member(3, models.MemberRoleMember)
	three := []*models.FamilyMember{admin, alice, bob}

	tests := []struct {
		name     string
		request  *models.ApprovalRequest
		members  []*models.FamilyMember
		records  []*models.ApprovalRecord
		expected models.RequestStatus
	}{
		{
			name:     "single member approval approves",
			request:  &models.ApprovalRequest{Type: models.RequestTypeDeposit, RequesterID: 1},
			members:  []*models.FamilyMember{admin},
			records:  []*models.ApprovalRecord{vote(1, true)},
			expected: models.RequestStatusApproved,
		},
		{
			name:     "single member without vote stays pending",
			request:  &models.ApprovalRequest{Type: models.RequestTypeDeposit, RequesterID: 1},
			members:  []*models.FamilyMember{admin},
			expected: models.RequestStatusPending,
		},
		{
			name:     "default rule waits for every non requester",
			request:  &models.ApprovalRequest{Type: models.RequestTypeExpense, RequesterID: 1},
			members:  three,
			records:  []*models.ApprovalRecord{vote(2, true)},
			expected: models.RequestStatusPending,
		},
		{
			name:     "default rule approves when all non requesters approve",
			request:  &models.ApprovalRequest{Type: models.RequestTypeExpense, RequesterID: 1},
			members:  three,
			records:  []*models.ApprovalRecord{vote(2, true), vote(3, true)},
			expected: models.RequestStatusApproved,
		},
		{
			name:     "default rule rejects on any rejection",
			request:  &models.ApprovalRequest{Type: models.RequestTypeExpense, RequesterID: 1},
			members:  three,
			records:  []*models.ApprovalRecord{vote(2, true), vote(3, false)},
			expected: models.RequestStatusRejected,
		},
		{
			name:     "rejection first rejects regardless of order",
			request:  &models.ApprovalRequest{Type: models.RequestTypeExpense, RequesterID: 1},
			members:  three,
			records:  []*models.ApprovalRecord{vote(3, false)},
			expected: models.RequestStatusRejected,
		},
		{
			name:     "requester vote is ignored",
			request:  &models.ApprovalRequest{Type: models.RequestTypeDeposit, RequesterID: 2},
			members:  []*models.FamilyMember{admin, alice},
			records:  []*models.ApprovalRecord{vote(2, true)},
			expected: models.RequestStatusPending,
		},
		{
			name:     "join approved by any approval",
			request:  &models.ApprovalRequest{Type: models.RequestTypeMemberJoin, RequesterID: 9, TargetUserID: int64Ptr(9)},
			members:  three,
			records:  []*models.ApprovalRecord{vote(3, true)},
			expected: models.RequestStatusApproved,
		},
		{
			name:     "join survives a single rejection",
			request:  &models.ApprovalRequest{Type: models.RequestTypeMemberJoin, RequesterID: 9, TargetUserID: int64Ptr(9)},
			members:  three,
			records:  []*models.ApprovalRecord{vote(2, false)},
			expected: models.RequestStatusPending,
		},
		{
			name:     "join rejected when every member rejects",
			request:  &models.ApprovalRequest{Type: models.RequestTypeMemberJoin, RequesterID: 9, TargetUserID: int64Ptr(9)},
			members:  three,
			records:  []*models.ApprovalRecord{vote(1, false), vote(2, false), vote(3, false)},
			expected: models.RequestStatusRejected,
		},
		{
			name:     "join into single member household needs the lone member",
			request:  &models.ApprovalRequest{Type: models.RequestTypeMemberJoin, RequesterID: 9, TargetUserID: int64Ptr(9)},
			members:  []*models.FamilyMember{admin},
			records:  []*models.ApprovalRecord{vote(1, true)},
			expected: models.RequestStatusApproved,
		},
		{
			name:     "remove approved by an admin",
			request:  &models.ApprovalRequest{Type: models.RequestTypeMemberRemove, RequesterID: 2, TargetUserID: int64Ptr(3)},
			members:  three,
			records:  []*models.ApprovalRecord{vote(1, true)},
			expected: models.RequestStatusApproved,
		},
		{
			name:     "remove ignores non admin votes",
			request:  &models.ApprovalRequest{Type: models.RequestTypeMemberRemove, RequesterID: 2, TargetUserID: int64Ptr(3)},
			members:  three,
			records:  []*models.ApprovalRecord{vote(2, true)},
			expected: models.RequestStatusPending,
		},
		{
			name:     "remove rejected when every admin rejects",
			request:  &models.ApprovalRequest{Type: models.RequestTypeMemberRemove, RequesterID: 2, TargetUserID: int64Ptr(3)},
			members:  three,
			records:  []*models.ApprovalRecord{vote(1, false)},
			expected: models.RequestStatusRejected,
		},
		{
			name:     "dividend claim waits for the claimant",
			request:  &models.ApprovalRequest{Type: models.RequestTypeDividendClaim, RequesterID: 1, TargetUserID: int64Ptr(1)},
			members:  []*models.FamilyMember{admin, alice},
			records:  []*models.ApprovalRecord{vote(2, true)},
			expected: models.RequestStatusPending,
		},
		{
			name:     "dividend claim approved by claimant and others",
			request:  &models.ApprovalRequest{Type: models.RequestTypeDividendClaim, RequesterID: 1, TargetUserID: int64Ptr(1)},
			members:  []*models.FamilyMember{admin, alice},
			records:  []*models.ApprovalRecord{vote(2, true), vote(1, true)},
			expected: models.RequestStatusApproved,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, evaluateQuorum(tt.request, tt.members, tt.records))
		})
	}
}

func TestEvaluateQuorum_OrderIndependent(t *testing.T) {
	members := []*models.FamilyMember{
		member(1, models.MemberRoleAdmin),
		member(2, models.MemberRoleMember),
		member(3, models.MemberRoleMember),
	}
	request := &models.ApprovalRequest{Type: models.RequestTypeDeposit, RequesterID: 1}

	forward := []*models.ApprovalRecord{vote(2, true), vote(3, false)}
	backward := []*models.ApprovalRecord{vote(3, false), vote(2, true)}

	assert.Equal(t, evaluateQuorum(request, members, forward), evaluateQuorum(request, members, backward))
}

func TestPendingApprovers(t *testing.T) {
	members := []*models.FamilyMember{
		member(1, models.MemberRoleAdmin),
		member(2, models.MemberRoleMember),
		member(3, models.MemberRoleMember),
	}

	t.Run("lists voters that have not voted", func(t *testing.T) {
		request := &models.ApprovalRequest{Type: models.RequestTypeExpense, RequesterID: 1, Status: models.RequestStatusPending}
		pending := pendingApprovers(request, members, []*models.ApprovalRecord{vote(2, true)})
		assert.Equal(t, []int64{3}, pending)
	})

	t.Run("remove lists only admins other than the target", func(t *testing.T) {
		request := &models.ApprovalRequest{Type: models.RequestTypeMemberRemove, RequesterID: 2, TargetUserID: int64Ptr(3), Status: models.RequestStatusPending}
		assert.Equal(t, []int64{1}, pendingApprovers(request, members, nil))
	})

	t.Run("empty once the request is closed", func(t *testing.T) {
		request := &models.ApprovalRequest{Type: models.RequestTypeExpense, RequesterID: 1, Status: models.RequestStatusApproved}
		assert.Empty(t, pendingApprovers(request, members, nil))
	})
}

func TestCheckVoteAllowed(t *testing.T) {
	admin := member(1, models.MemberRoleAdmin)
	alice := member(2, models.MemberRoleMember)
	bob := member(3, models.MemberRoleMember)

	tests := []struct {
		name        string
		request     *models.ApprovalRequest
		voter       *models.FamilyMember
		memberCount int
		forbidden   bool
	}{
		{
			name:        "lone member votes on own request",
			request:     &models.ApprovalRequest{Type: models.RequestTypeDeposit, RequesterID: 1},
			voter:       admin,
			memberCount: 1,
		},
		{
			name:        "requester may not vote",
			request:     &models.ApprovalRequest{Type: models.RequestTypeDeposit, RequesterID: 2},
			voter:       alice,
			memberCount: 3,
			forbidden:   true,
		},
		{
			name:        "other member may vote",
			request:     &models.ApprovalRequest{Type: models.RequestTypeDeposit, RequesterID: 2},
			voter:       bob,
			memberCount: 3,
		},
		{
			name:        "non admin may not vote on removal",
			request:     &models.ApprovalRequest{Type: models.RequestTypeMemberRemove, RequesterID: 1, TargetUserID: int64Ptr(3)},
			voter:       alice,
			memberCount: 3,
			forbidden:   true,
		},
		{
			name:        "admin requester may vote on removal",
			request:     &models.ApprovalRequest{Type: models.RequestTypeMemberRemove, RequesterID: 1, TargetUserID: int64Ptr(3)},
			voter:       admin,
			memberCount: 3,
		},
		{
			name:        "target may not vote on own removal",
			request:     &models.ApprovalRequest{Type: models.RequestTypeMemberRemove, RequesterID: 2, TargetUserID: int64Ptr(1)},
			voter:       admin,
			memberCount: 3,
			forbidden:   true,
		},
		{
			name:        "dividend claimant votes on own claim",
			request:     &models.ApprovalRequest{Type: models.RequestTypeDividendClaim, RequesterID: 1, TargetUserID: int64Ptr(1)},
			voter:       admin,
			memberCount: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkVoteAllowed(tt.request, tt.voter, tt.memberCount)
			if tt.forbidden {
				assert.True(t, errors.Is(err, ErrForbidden))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
