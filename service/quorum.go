package service

import (
	"goldennest/models"
)

// voteTally indexes the votes cast on one request
type voteTally map[int64]bool

func tallyVotes(records []*models.ApprovalRecord) voteTally {
	tally := make(voteTally, len(records))
	for _, record := range records {
		tally[record.ApproverID] = record.IsApproved
	}
	return tally
}

// requiredVoters returns the members whose votes count toward the quorum of request
func requiredVoters(request *models.ApprovalRequest, members []*models.FamilyMember) []*models.FamilyMember {
	if len(members) == 1 {
		return members
	}

	var voters []*models.FamilyMember
	switch request.Type {
	case models.RequestTypeMemberJoin:
		voters = members
	case models.RequestTypeMemberRemove:
		for _, member := range members {
			if !member.IsAdmin() {
				continue
			}
			if request.TargetUserID != nil && *request.TargetUserID == member.UserID {
				continue
			}
			voters = append(voters, member)
		}
	default:
		for _, member := range members {
			if member.UserID != request.RequesterID {
				voters = append(voters, member)
			}
		}
		// A requester that is not a member (or has been removed) is voted on by everyone
		if len(voters) == 0 {
			voters = members
		}
		// The claimant always decides on their own dividend share
		if request.Type == models.RequestTypeDividendClaim && request.TargetUserID != nil {
			if target := findMember(members, *request.TargetUserID); target != nil && findMember(voters, target.UserID) == nil {
				voters = append(voters, target)
			}
		}
	}
	return voters
}

// evaluateQuorum derives the outcome of a request from the full set of recorded
// votes. The result depends only on which votes exist, never on their order.
func evaluateQuorum(request *models.ApprovalRequest, members []*models.FamilyMember, records []*models.ApprovalRecord) models.RequestStatus {
	voters := requiredVoters(request, members)
	if len(voters) == 0 {
		return models.RequestStatusPending
	}

	tally := tallyVotes(records)
	approvals, rejections := 0, 0
	for _, voter := range voters {
		approved, voted := tally[voter.UserID]
		if !voted {
			continue
		}
		if approved {
			approvals++
		} else {
			rejections++
		}
	}

	switch request.Type {
	case models.RequestTypeMemberJoin, models.RequestTypeMemberRemove:
		if len(members) > 1 {
			if approvals > 0 {
				return models.RequestStatusApproved
			}
			if rejections == len(voters) {
				return models.RequestStatusRejected
			}
			return models.RequestStatusPending
		}
	}

	if rejections > 0 {
		return models.RequestStatusRejected
	}
	if approvals == len(voters) {
		return models.RequestStatusApproved
	}
	return models.RequestStatusPending
}

// pendingApprovers lists the required voters that have not voted yet
func pendingApprovers(request *models.ApprovalRequest, members []*models.FamilyMember, records []*models.ApprovalRecord) []int64 {
	pending := []int64{}
	if !request.IsPending() {
		return pending
	}

	tally := tallyVotes(records)
	for _, voter := range requiredVoters(request, members) {
		if _, voted := tally[voter.UserID]; !voted {
			pending = append(pending, voter.UserID)
		}
	}
	return pending
}

// checkVoteAllowed verifies that member may vote on request
func checkVoteAllowed(request *models.ApprovalRequest, member *models.FamilyMember, memberCount int) error {
	if memberCount == 1 {
		return nil
	}

	switch request.Type {
	case models.RequestTypeMemberRemove:
		if !member.IsAdmin() {
			return forbiddenf("only admins may vote on removing a member")
		}
		if request.TargetUserID != nil && *request.TargetUserID == member.UserID {
			return forbiddenf("members may not vote on their own removal")
		}
		return nil
	case models.RequestTypeMemberJoin:
		return nil
	case models.RequestTypeDividendClaim:
		if request.TargetUserID != nil && *request.TargetUserID == member.UserID {
			return nil
		}
	}

	if request.RequesterID == member.UserID {
		return forbiddenf("requesters may not vote on their own request")
	}
	return nil
}
