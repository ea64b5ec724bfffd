package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RequestType identifies which execution handler and quorum rule a request uses
type RequestType string

const (
	RequestTypeDeposit            RequestType = "deposit"
	RequestTypeExpense            RequestType = "expense"
	RequestTypeInvestmentCreate   RequestType = "investment_create"
	RequestTypeInvestmentUpdate   RequestType = "investment_update"
	RequestTypeInvestmentIncome   RequestType = "investment_income"
	RequestTypeInvestmentIncrease RequestType = "investment_increase"
	RequestTypeInvestmentDecrease RequestType = "investment_decrease"
	RequestTypeInvestmentDelete   RequestType = "investment_delete"
	RequestTypeMemberJoin         RequestType = "member_join"
	RequestTypeMemberRemove       RequestType = "member_remove"
	RequestTypeDividendClaim      RequestType = "dividend_claim"
)

// AllRequestTypes lists every supported request type
var AllRequestTypes = []RequestType{
	RequestTypeDeposit,
	RequestTypeExpense,
	RequestTypeInvestmentCreate,
	RequestTypeInvestmentUpdate,
	RequestTypeInvestmentIncome,
	RequestTypeInvestmentIncrease,
	RequestTypeInvestmentDecrease,
	RequestTypeInvestmentDelete,
	RequestTypeMemberJoin,
	RequestTypeMemberRemove,
	RequestTypeDividendClaim,
}

// IsValid reports whether t is a known request type
func (t RequestType) IsValid() bool {
	for _, known := range AllRequestTypes {
		if t == known {
			return true
		}
	}
	return false
}

// RequestStatus represents the state of an approval request
type RequestStatus string

const (
	RequestStatusPending   RequestStatus = "pending"
	RequestStatusApproved  RequestStatus = "approved"
	RequestStatusRejected  RequestStatus = "rejected"
	RequestStatusCancelled RequestStatus = "cancelled"
)

// IsValid reports whether s is a known request status
func (s RequestStatus) IsValid() bool {
	switch s {
	case RequestStatusPending, RequestStatusApproved, RequestStatusRejected, RequestStatusCancelled:
		return true
	}
	return false
}

// ApprovalRequest is an action that needs household consensus before it moves money
type ApprovalRequest struct {
	ID           int64           `db:"id" json:"id"`
	FamilyID     int64           `db:"family_id" json:"family_id"`
	RequesterID  int64           `db:"requester_id" json:"requester_id"`
	TargetUserID *int64          `db:"target_user_id" json:"target_user_id,omitempty"`
	Type         RequestType     `db:"request_type" json:"request_type"`
	Title        string          `db:"title" json:"title"`
	Description  string          `db:"description" json:"description"`
	Amount       decimal.Decimal `db:"amount" json:"amount"`
	Data         RequestData     `db:"request_data" json:"request_data"`
	Status       RequestStatus   `db:"status" json:"status"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updated_at"`
	ExecutedAt   *time.Time      `db:"executed_at" json:"executed_at,omitempty"`
}

// IsPending checks if the request still accepts votes
func (r *ApprovalRequest) IsPending() bool {
	return r.Status == RequestStatusPending
}

// IsExecuted checks if the side effects of the request have been applied
func (r *ApprovalRequest) IsExecuted() bool {
	return r.ExecutedAt != nil
}

// CanBeCancelledBy checks if userID may cancel the request
func (r *ApprovalRequest) CanBeCancelledBy(userID int64) bool {
	return r.IsPending() && r.RequesterID == userID
}

// ApprovalRecord is one immutable vote on a request
type ApprovalRecord struct {
	ID         int64     `db:"id" json:"id"`
	RequestID  int64     `db:"request_id" json:"request_id"`
	ApproverID int64     `db:"approver_id" json:"approver_id"`
	IsApproved bool      `db:"is_approved" json:"is_approved"`
	Comment    *string   `db:"comment" json:"comment,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// ApprovalRequestView is a request together with its votes and who still has to vote
type ApprovalRequestView struct {
	Request          *ApprovalRequest  `json:"request"`
	RequesterName    string            `json:"requester_name"`
	Records          []*ApprovalRecord `json:"records"`
	ApprovedCount    int               `json:"approved_count"`
	RejectedCount    int               `json:"rejected_count"`
	PendingApprovers []int64           `json:"pending_approvers"`
}
