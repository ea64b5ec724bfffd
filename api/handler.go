package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"goldennest/models"
	"goldennest/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// Pinger reports whether a backing store is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler serves the household finance API
type Handler struct {
	approvals service.ApprovalService
	equity    service.EquityService
	families  service.FamilyService
	dividends service.DividendService
	db        Pinger
}

// NewHandler creates a new API handler. db may be nil.
func NewHandler(approvals service.ApprovalService, equity service.EquityService, families service.FamilyService, dividends service.DividendService, db Pinger) *Handler {
	return &Handler{
		approvals: approvals,
		equity:    equity,
		families:  families,
		dividends: dividends,
		db:        db,
	}
}

type registerUserRequest struct {
	Username string `json:"username" binding:"required"`
	Nickname string `json:"nickname"`
}

type createFamilyRequest struct {
	Name          string           `json:"name" binding:"required"`
	SavingsTarget *decimal.Decimal `json:"savings_target"`
}

type savingsTargetRequest struct {
	SavingsTarget decimal.Decimal `json:"savings_target"`
}

type joinFamilyRequest struct {
	InviteCode string `json:"invite_code" binding:"required"`
}

type createApprovalRequest struct {
	Type         models.RequestType `json:"type" binding:"required"`
	Title        string             `json:"title" binding:"required"`
	Description  string             `json:"description"`
	Amount       decimal.Decimal    `json:"amount"`
	TargetUserID *int64             `json:"target_user_id"`
	Data         json.RawMessage    `json:"data"`
}

type voteRequest struct {
	Approved *bool  `json:"approved" binding:"required"`
	Comment  string `json:"comment"`
}

type dividendClaimRequest struct {
	Reinvest bool `json:"reinvest"`
}

type proposeDividendRequest struct {
	Type   models.DividendType `json:"type" binding:"required"`
	Amount decimal.Decimal     `json:"amount"`
}

type resolveDividendRequest struct {
	Approved *bool `json:"approved" binding:"required"`
}

// Health reports liveness and database reachability
func (h *Handler) Health(c *gin.Context) {
	if h.db != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "time": time.Now().UTC().Format(time.RFC3339)})
}

// RegisterUser creates a user
func (h *Handler) RegisterUser(c *gin.Context) {
	var req registerUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	user, err := h.families.RegisterUser(c.Request.Context(), req.Username, req.Nickname)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

// CreateFamily creates a household with the caller as admin
func (h *Handler) CreateFamily(c *gin.Context) {
	var req createFamilyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	family, err := h.families.CreateFamily(c.Request.Context(), GetUserID(c), req.Name, req.SavingsTarget)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, family)
}

// GetFamily returns a household
func (h *Handler) GetFamily(c *gin.Context) {
	familyID, ok := pathID(c, "id")
	if !ok {
		return
	}

	family, err := h.families.GetFamily(c.Request.Context(), familyID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, family)
}

// ListMembers returns the members of a household
func (h *Handler) ListMembers(c *gin.Context) {
	familyID, ok := pathID(c, "id")
	if !ok {
		return
	}

	members, err := h.families.ListMembers(c.Request.Context(), familyID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"members": members})
}

// UpdateSavingsTarget changes the savings goal of a household
func (h *Handler) UpdateSavingsTarget(c *gin.Context) {
	familyID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req savingsTargetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	family, err := h.families.UpdateSavingsTarget(c.Request.Context(), familyID, GetUserID(c), req.SavingsTarget)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, family)
}

// JoinFamily files a member_join request through an invite code
func (h *Handler) JoinFamily(c *gin.Context) {
	var req joinFamilyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	request, err := h.families.RequestToJoin(c.Request.Context(), req.InviteCode, GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, request)
}

// GetEquity returns the equity summary of a household
func (h *Handler) GetEquity(c *gin.Context) {
	familyID, ok := pathID(c, "id")
	if !ok {
		return
	}

	summary, err := h.equity.GetEquitySummary(c.Request.Context(), familyID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// CreateApproval files a new approval request
func (h *Handler) CreateApproval(c *gin.Context) {
	familyID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req createApprovalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	data, err := models.DecodeRequestData(req.Type, req.Data)
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	request, err := h.approvals.CreateRequest(c.Request.Context(), service.CreateRequestParams{
		FamilyID:     familyID,
		RequesterID:  GetUserID(c),
		TargetUserID: req.TargetUserID,
		Type:         req.Type,
		Title:        req.Title,
		Description:  req.Description,
		Amount:       req.Amount,
		Data:         data,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, request)
}

// ListApprovals lists the requests of a household, newest first
func (h *Handler) ListApprovals(c *gin.Context) {
	familyID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var status *models.RequestStatus
	if raw := c.Query("status"); raw != "" {
		s := models.RequestStatus(raw)
		status = &s
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			badRequest(c, "limit must be a number")
			return
		}
		limit = parsed
	}

	requests, err := h.approvals.ListRequests(c.Request.Context(), familyID, status, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"requests": requests})
}

// ListPendingApprovals lists the requests still waiting on the caller
func (h *Handler) ListPendingApprovals(c *gin.Context) {
	familyID, ok := pathID(c, "id")
	if !ok {
		return
	}

	requests, err := h.approvals.ListPendingForApprover(c.Request.Context(), familyID, GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"requests": requests})
}

// GetApproval returns a request with its votes
func (h *Handler) GetApproval(c *gin.Context) {
	requestID, ok := pathID(c, "id")
	if !ok {
		return
	}

	view, err := h.approvals.GetRequestView(c.Request.Context(), requestID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// Vote records the caller's vote on a request
func (h *Handler) Vote(c *gin.Context) {
	requestID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req voteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	request, err := h.approvals.CastVote(c.Request.Context(), requestID, GetUserID(c), *req.Approved, req.Comment)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, request)
}

// CancelApproval withdraws the caller's pending request
func (h *Handler) CancelApproval(c *gin.Context) {
	requestID, ok := pathID(c, "id")
	if !ok {
		return
	}

	request, err := h.approvals.CancelRequest(c.Request.Context(), requestID, GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, request)
}

// ClaimDividend records the caller's reinvest or withdraw decision
func (h *Handler) ClaimDividend(c *gin.Context) {
	requestID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req dividendClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	request, err := h.approvals.ClaimDividend(c.Request.Context(), requestID, GetUserID(c), req.Reinvest)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, request)
}

// ProposeDividend records a dividend for the household to vote on
func (h *Handler) ProposeDividend(c *gin.Context) {
	familyID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req proposeDividendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	dividend, err := h.dividends.ProposeDividend(c.Request.Context(), familyID, GetUserID(c), req.Type, req.Amount)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dividend)
}

// GetDividend returns a dividend
func (h *Handler) GetDividend(c *gin.Context) {
	dividendID, ok := pathID(c, "id")
	if !ok {
		return
	}

	dividend, err := h.dividends.GetDividend(c.Request.Context(), dividendID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dividend)
}

// ResolveDividend applies the outcome of the household's dividend vote
func (h *Handler) ResolveDividend(c *gin.Context) {
	dividendID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req resolveDividendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	dividend, err := h.dividends.ResolveDividend(c.Request.Context(), dividendID, GetUserID(c), *req.Approved)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dividend)
}

// pathID parses a positive numeric path parameter, answering 400 when it is not one
func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return id, true
}
