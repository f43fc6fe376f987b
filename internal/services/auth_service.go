package services

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"schoolpay/internal/models/request_models"
	resp "schoolpay/internal/models/response_models"
	"schoolpay/internal/repositories"
	"schoolpay/pkg/utils"
)

type AuthService interface {
	LoginParent(ctx context.Context, req request_models.LoginRequest) (*resp.LoginResponse, error)
	LoginStaff(ctx context.Context, req request_models.LoginRequest) (*resp.LoginResponse, error)
}

type authService struct {
	parentRepo repositories.ParentRepository
	staffRepo  repositories.StaffRepository
	issuer     *utils.TokenIssuer
	log        *zap.Logger
}

func NewAuthService(
	parentRepo repositories.ParentRepository,
	staffRepo repositories.StaffRepository,
	issuer *utils.TokenIssuer,
	log *zap.Logger,
) AuthService {
	return &authService{
		parentRepo: parentRepo,
		staffRepo:  staffRepo,
		issuer:     issuer,
		log:        log.Named("auth"),
	}
}

type credentials struct {
	id   uuid.UUID
	hash string
}

func (s *authService) LoginParent(ctx context.Context, req request_models.LoginRequest) (*resp.LoginResponse, error) {
	return s.login(ctx, req, utils.RoleParent, func(accountID uuid.UUID, email string) (*credentials, error) {
		p, err := s.parentRepo.FindByEmail(ctx, accountID, email)
		if err != nil || p == nil {
			return nil, err
		}
		return &credentials{id: p.ID, hash: p.PasswordHash}, nil
	})
}

func (s *authService) LoginStaff(ctx context.Context, req request_models.LoginRequest) (*resp.LoginResponse, error) {
	return s.login(ctx, req, utils.RoleStaff, func(accountID uuid.UUID, email string) (*credentials, error) {
		st, err := s.staffRepo.FindByEmail(ctx, accountID, email)
		if err != nil || st == nil {
			return nil, err
		}
		return &credentials{id: st.ID, hash: st.PasswordHash}, nil
	})
}

func (s *authService) login(
	ctx context.Context,
	req request_models.LoginRequest,
	role utils.Role,
	lookup func(accountID uuid.UUID, email string) (*credentials, error),
) (*resp.LoginResponse, error) {
	accountID, err := uuid.Parse(req.AccountID)
	if err != nil {
		return nil, utils.ErrInvalidInput
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	creds, err := lookup(accountID, email)
	if err != nil {
		return nil, utils.ErrDatabaseError
	}
	// Unknown user and wrong password look the same to the caller.
	if creds == nil || utils.ComparePasswords(creds.hash, req.Password) != nil {
		s.log.Info("login rejected", zap.String("tenant_id", accountID.String()), zap.String("role", string(role)))
		return nil, utils.ErrInvalidCredentials
	}

	token, err := s.issuer.CreateToken(creds.id.String(), email, role, accountID.String())
	if err != nil {
		s.log.Error("token signing failed", zap.Error(err))
		return nil, utils.ErrUnauthorized
	}
	return &resp.LoginResponse{
		UserID:    creds.id.String(),
		Email:     email,
		Role:      string(role),
		TenantID:  accountID.String(),
		Token:     token,
		ExpiresIn: int64(s.issuer.TTL().Seconds()),
	}, nil
}
