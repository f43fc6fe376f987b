package services

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	dbm "schoolpay/internal/models/db_models"
	"schoolpay/internal/models/request_models"
	resp "schoolpay/internal/models/response_models"
	"schoolpay/internal/repositories"
	"schoolpay/pkg/utils"
)

const (
	populateTimeout = 10 * time.Minute
	releaseTimeout  = 10 * time.Second
)

type AccountService interface {
	Provision(ctx context.Context, req request_models.ProvisionAccountRequest) (*resp.ProvisionAccountResponse, error)
	Get(ctx context.Context, accountID uuid.UUID) (*resp.AccountResponse, error)
	// CompleteOnboardingReturn re-reads the remote account after the hosted onboarding flow.
	CompleteOnboardingReturn(ctx context.Context, accountID uuid.UUID) (*resp.AccountResponse, error)
	RefreshOnboardingLink(ctx context.Context, accountID uuid.UUID) (string, error)
	// SyncRemoteAccount applies a pushed remote account state to the matching tenant.
	SyncRemoteAccount(ctx context.Context, remote *ConnectedAccount) (*dbm.Account, error)
	SyncOnboarding(ctx context.Context, acct *dbm.Account, remote *ConnectedAccount) (*dbm.Account, error)
	PopulateCatalog(ctx context.Context, accountID uuid.UUID) (*resp.PopulateResult, error)
}

type AccountConfig struct {
	AppBaseURL string
	APIBaseURL string
	Country    string
}

type accountService struct {
	accountRepo repositories.AccountRepository
	staffRepo   repositories.StaffRepository
	catalog     CatalogService
	processor   PaymentProcessor
	mail        MailService
	cfg         AccountConfig
	log         *zap.Logger

	// spawn runs background work with a context detached from the request.
	spawn func(task func(ctx context.Context))
}

func NewAccountService(
	accountRepo repositories.AccountRepository,
	staffRepo repositories.StaffRepository,
	catalog CatalogService,
	processor PaymentProcessor,
	mail MailService,
	cfg AccountConfig,
	log *zap.Logger,
) AccountService {
	return &accountService{
		accountRepo: accountRepo,
		staffRepo:   staffRepo,
		catalog:     catalog,
		processor:   processor,
		mail:        mail,
		cfg:         cfg,
		log:         log.Named("accounts"),
		spawn: func(task func(ctx context.Context)) {
			go func() {
				ctx, cancel := context.WithTimeout(context.Background(), populateTimeout)
				defer cancel()
				task(ctx)
			}()
		},
	}
}

func (s *accountService) onboardingURLs(accountID uuid.UUID) (refresh, ret string) {
	base := strings.TrimRight(s.cfg.APIBaseURL, "/")
	q := url.Values{"accountId": {accountID.String()}}.Encode()
	return base + "/accounts/onboarding/refresh?" + q, base + "/accounts/onboarding/return?" + q
}

func (s *accountService) Provision(ctx context.Context, req request_models.ProvisionAccountRequest) (*resp.ProvisionAccountResponse, error) {
	country := strings.ToUpper(req.Country)
	if country == "" {
		country = s.cfg.Country
	}

	remote, err := s.processor.CreateConnectedAccount(ctx, ConnectedAccountParams{
		Country:      country,
		Email:        req.Email,
		BusinessName: req.SchoolName,
		BusinessType: "company",
	})
	if err != nil {
		return nil, err
	}
	logger := s.log.With(zap.String("stripe_account_id", remote.ID))

	portalID, err := s.processor.CreatePortalConfiguration(ctx, remote.ID, strings.TrimRight(s.cfg.AppBaseURL, "/")+"/parent")
	if err != nil {
		logger.Error("connected account created but portal configuration failed", zap.Error(err))
		return nil, err
	}

	acct := &dbm.Account{
		Name:                  req.SchoolName,
		Email:                 strings.ToLower(req.Email),
		LogoURL:               req.LogoURL,
		Country:               country,
		StripeAccountID:       remote.ID,
		PortalConfigurationID: portalID,
	}
	if err := s.accountRepo.Insert(ctx, acct); err != nil {
		logger.Error("connected account created but tenant not stored",
			zap.String("portal_configuration_id", portalID),
			zap.Error(err))
		return nil, utils.ErrDatabaseError
	}
	logger = logger.With(zap.String("tenant_id", acct.ID.String()))

	tempPassword, err := utils.GenerateTempPassword()
	if err != nil {
		return nil, err
	}
	hashed, err := utils.HashPassword(tempPassword)
	if err != nil {
		return nil, err
	}
	staff := &dbm.Staff{
		AccountID:    acct.ID,
		Email:        strings.ToLower(strings.TrimSpace(req.Staff.Email)),
		FirstName:    req.Staff.FirstName,
		LastName:     req.Staff.LastName,
		Emoji:        req.Staff.Emoji,
		PasswordHash: hashed,
	}
	if err := s.staffRepo.Insert(ctx, staff); err != nil {
		logger.Error("tenant stored but staff user not created", zap.Error(err))
		return nil, utils.ErrDatabaseError
	}

	refreshURL, returnURL := s.onboardingURLs(acct.ID)
	link, err := s.processor.CreateAccountLink(ctx, remote.ID, refreshURL, returnURL)
	if err != nil {
		logger.Error("tenant provisioned but onboarding link failed", zap.Error(err))
		return nil, err
	}

	loginURL := fmt.Sprintf("%s/staff/login?accountId=%s", strings.TrimRight(s.cfg.AppBaseURL, "/"), acct.ID)
	if err := s.mail.SendOnboardingLink(ctx, acct.Email, acct.Name, link); err != nil {
		logger.Warn("onboarding mail not sent", zap.Error(err))
	}
	if err := s.mail.SendStaffCredentials(ctx, staff.Email, acct.Name, loginURL, tempPassword); err != nil {
		logger.Warn("staff credentials mail not sent", zap.Error(err))
	}

	logger.Info("tenant provisioned")
	return &resp.ProvisionAccountResponse{
		AccountID:         acct.ID.String(),
		StripeAccountID:   remote.ID,
		OnboardingURL:     link,
		StaffEmail:        staff.Email,
		TemporaryPassword: tempPassword,
	}, nil
}

func (s *accountService) Get(ctx context.Context, accountID uuid.UUID) (*resp.AccountResponse, error) {
	acct, err := loadAccount(ctx, s.accountRepo, accountID)
	if err != nil {
		return nil, err
	}
	out := toAccountResponse(acct)
	return &out, nil
}

func (s *accountService) CompleteOnboardingReturn(ctx context.Context, accountID uuid.UUID) (*resp.AccountResponse, error) {
	acct, err := loadAccount(ctx, s.accountRepo, accountID)
	if err != nil {
		return nil, err
	}
	remote, err := s.processor.GetConnectedAccount(ctx, acct.StripeAccountID)
	if err != nil {
		return nil, err
	}
	acct, err = s.SyncOnboarding(ctx, acct, remote)
	if err != nil {
		return nil, err
	}
	out := toAccountResponse(acct)
	return &out, nil
}

func (s *accountService) RefreshOnboardingLink(ctx context.Context, accountID uuid.UUID) (string, error) {
	acct, err := loadAccount(ctx, s.accountRepo, accountID)
	if err != nil {
		return "", err
	}
	refreshURL, returnURL := s.onboardingURLs(acct.ID)
	return s.processor.CreateAccountLink(ctx, acct.StripeAccountID, refreshURL, returnURL)
}

func (s *accountService) SyncRemoteAccount(ctx context.Context, remote *ConnectedAccount) (*dbm.Account, error) {
	acct, err := s.accountRepo.FindByStripeAccountID(ctx, remote.ID)
	if err != nil {
		return nil, utils.ErrDatabaseError
	}
	if acct == nil {
		return nil, utils.ErrAccountNotFound
	}
	return s.SyncOnboarding(ctx, acct, remote)
}

// SyncOnboarding stores the remote onboarding flags and, the first time the tenant is
// ready, starts catalog population in the background. The claim on CatalogPopulated
// makes repeated calls a no-op.
func (s *accountService) SyncOnboarding(ctx context.Context, acct *dbm.Account, remote *ConnectedAccount) (*dbm.Account, error) {
	logger := s.log.With(
		zap.String("tenant_id", acct.ID.String()),
		zap.String("stripe_account_id", acct.StripeAccountID))

	err := s.accountRepo.UpdateOnboardingState(ctx, acct.ID, repositories.OnboardingState{
		ChargesEnabled:   remote.ChargesEnabled,
		DetailsSubmitted: remote.DetailsSubmitted,
		PayoutsEnabled:   remote.PayoutsEnabled,
		Capabilities:     remote.Capabilities,
	})
	if err != nil {
		return nil, utils.ErrDatabaseError
	}
	updated, err := loadAccount(ctx, s.accountRepo, acct.ID)
	if err != nil {
		return nil, err
	}
	if !updated.OnboardingComplete {
		logger.Info("onboarding still pending",
			zap.Bool("charges_enabled", remote.ChargesEnabled),
			zap.Bool("details_submitted", remote.DetailsSubmitted))
		return updated, nil
	}

	claimed, err := s.accountRepo.ClaimCatalogPopulation(ctx, acct.ID)
	if err != nil {
		return nil, utils.ErrDatabaseError
	}
	if !claimed {
		return updated, nil
	}

	logger.Info("onboarding complete; populating catalog")
	target := *updated
	s.spawn(func(ctx context.Context) {
		if _, err := s.catalog.Populate(ctx, &target); err != nil {
			logger.Error("catalog population failed; claim released", zap.Error(err))
			// ctx may already be past populateTimeout
			relCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
			defer cancel()
			if rerr := s.accountRepo.ReleaseCatalogPopulation(relCtx, target.ID); rerr != nil {
				logger.Error("release catalog claim", zap.Error(rerr))
			}
		}
	})
	return updated, nil
}

// PopulateCatalog is the manual retry path; existing entries are skipped.
func (s *accountService) PopulateCatalog(ctx context.Context, accountID uuid.UUID) (*resp.PopulateResult, error) {
	acct, err := loadAccount(ctx, s.accountRepo, accountID)
	if err != nil {
		return nil, err
	}
	if !acct.OnboardingComplete {
		return nil, utils.ErrAccountNotOnboarded
	}

	result, err := s.catalog.Populate(ctx, acct)
	if err != nil {
		return result, err
	}
	if _, err := s.accountRepo.ClaimCatalogPopulation(ctx, acct.ID); err != nil {
		s.log.Warn("catalog populated but flag not set", zap.String("tenant_id", acct.ID.String()), zap.Error(err))
	}
	return result, nil
}
