package service

import (
	"context"
	"fmt"
	"strings"

	"goldennest/config"
	"goldennest/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

const inviteCodeLength = 8

type familyService struct {
	uowFactory UnitOfWorkFactory
	approvals  ApprovalService
	config     *config.Config
}

// NewFamilyService creates a new household service. Join requests are filed through approvals.
func NewFamilyService(uowFactory UnitOfWorkFactory, approvals ApprovalService, cfg *config.Config) FamilyService {
	return &familyService{
		uowFactory: uowFactory,
		approvals:  approvals,
		config:     cfg,
	}
}

// RegisterUser creates a user account
func (s *familyService) RegisterUser(ctx context.Context, username, nickname string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, validationf("username is required")
	}
	if len(username) > 64 {
		return nil, validationf("username must be at most 64 characters")
	}
	nickname = strings.TrimSpace(nickname)
	if nickname == "" {
		nickname = username
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	existing, err := uow.UserRepository().GetByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}
	if existing != nil {
		return nil, invalidStatef("username %q is already taken", username)
	}

	user := &models.User{Username: username, Nickname: nickname}
	if err := uow.UserRepository().Create(ctx, user); err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"userID":   user.ID,
		"username": user.Username,
	}).Info("User registered")

	return user, nil
}

// CreateFamily creates a household with the creator as its admin
func (s *familyService) CreateFamily(ctx context.Context, creatorID int64, name string, savingsTarget *decimal.Decimal) (*models.Family, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, validationf("family name is required")
	}
	target := s.config.DefaultSavingsTarget
	if savingsTarget != nil {
		if savingsTarget.IsNegative() {
			return nil, validationf("savings target must not be negative")
		}
		target = *savingsTarget
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	creator, err := uow.UserRepository().GetByID(ctx, creatorID)
	if err != nil {
		return nil, fmt.Errorf("failed to get creator: %w", err)
	}
	if creator == nil {
		return nil, notFoundf("user %d", creatorID)
	}

	membership, err := uow.FamilyMemberRepository().GetByUser(ctx, creatorID)
	if err != nil {
		return nil, fmt.Errorf("failed to check membership: %w", err)
	}
	if membership != nil {
		return nil, invalidStatef("user %d already belongs to family %d", creatorID, membership.FamilyID)
	}

	family := &models.Family{
		Name:          name,
		SavingsTarget: target,
		EquityRate:    s.config.DefaultEquityRate,
		InviteCode:    newInviteCode(),
	}
	if err := uow.FamilyRepository().Create(ctx, family); err != nil {
		return nil, err
	}

	admin := &models.FamilyMember{
		FamilyID: family.ID,
		UserID:   creatorID,
		Role:     models.MemberRoleAdmin,
	}
	if err := uow.FamilyMemberRepository().Add(ctx, admin); err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"familyID":  family.ID,
		"creatorID": creatorID,
	}).Info("Family created")

	return family, nil
}

// GetFamily retrieves a household
func (s *familyService) GetFamily(ctx context.Context, familyID int64) (*models.Family, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	family, err := uow.FamilyRepository().GetByID(ctx, familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get family: %w", err)
	}
	if family == nil {
		return nil, notFoundf("family %d", familyID)
	}

	return family, nil
}

// GetFamilyByInviteCode resolves an invite code, ignoring case
func (s *familyService) GetFamilyByInviteCode(ctx context.Context, inviteCode string) (*models.Family, error) {
	code := strings.ToUpper(strings.TrimSpace(inviteCode))
	if code == "" {
		return nil, validationf("invite code is required")
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	family, err := uow.FamilyRepository().GetByInviteCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to get family: %w", err)
	}
	if family == nil {
		return nil, notFoundf("invite code %s", code)
	}

	return family, nil
}

// ListMembers returns the members of a household
func (s *familyService) ListMembers(ctx context.Context, familyID int64) ([]*models.FamilyMember, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	family, err := uow.FamilyRepository().GetByID(ctx, familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get family: %w", err)
	}
	if family == nil {
		return nil, notFoundf("family %d", familyID)
	}

	members, err := uow.FamilyMemberRepository().ListByFamily(ctx, familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}

	return members, nil
}

// UpdateSavingsTarget changes the savings goal. Only admins may do this.
func (s *familyService) UpdateSavingsTarget(ctx context.Context, familyID, userID int64, target decimal.Decimal) (*models.Family, error) {
	if target.IsNegative() {
		return nil, validationf("savings target must not be negative")
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	family, err := uow.FamilyRepository().GetByIDForUpdate(ctx, familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock family: %w", err)
	}
	if family == nil {
		return nil, notFoundf("family %d", familyID)
	}

	member, err := uow.FamilyMemberRepository().Get(ctx, familyID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get membership: %w", err)
	}
	if member == nil || !member.IsAdmin() {
		return nil, forbiddenf("only admins may change the savings target")
	}

	if err := uow.FamilyRepository().UpdateSavingsTarget(ctx, familyID, target); err != nil {
		return nil, err
	}
	family.SavingsTarget = target

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return family, nil
}

// RequestToJoin files a member_join request on behalf of userID
func (s *familyService) RequestToJoin(ctx context.Context, inviteCode string, userID int64) (*models.ApprovalRequest, error) {
	family, err := s.GetFamilyByInviteCode(ctx, inviteCode)
	if err != nil {
		return nil, err
	}

	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	return s.approvals.CreateRequest(ctx, CreateRequestParams{
		FamilyID:     family.ID,
		RequesterID:  user.ID,
		TargetUserID: &user.ID,
		Type:         models.RequestTypeMemberJoin,
		Title:        fmt.Sprintf("%s asks to join %s", user.DisplayName(), family.Name),
		Data: &models.MemberJoinData{
			UserID:     user.ID,
			Username:   user.Username,
			Nickname:   user.Nickname,
			FamilyName: family.Name,
		},
	})
}

func (s *familyService) getUser(ctx context.Context, userID int64) (*models.User, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	user, err := uow.UserRepository().GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, notFoundf("user %d", userID)
	}
	return user, nil
}

func newInviteCode() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:inviteCodeLength])
}
