package repositories

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"schoolpay/internal/models/db_models"
)

// OnboardingState is the remote account status projected onto the Account row.
type OnboardingState struct {
	ChargesEnabled   bool
	DetailsSubmitted bool
	PayoutsEnabled   bool
	Capabilities     map[string]string
}

type AccountRepository interface {
	Insert(ctx context.Context, account *db_models.Account) error
	FindById(ctx context.Context, id uuid.UUID) (*db_models.Account, error)
	FindByStripeAccountID(ctx context.Context, stripeAccountID string) (*db_models.Account, error)
	ListOnboarded(ctx context.Context) ([]db_models.Account, error)
	UpdateOnboardingState(ctx context.Context, id uuid.UUID, state OnboardingState) error
	// ClaimCatalogPopulation flips CatalogPopulated false -> true and reports whether this caller won.
	ClaimCatalogPopulation(ctx context.Context, id uuid.UUID) (bool, error)
	ReleaseCatalogPopulation(ctx context.Context, id uuid.UUID) error
}

type accountRepository struct {
	db *gorm.DB
}

func NewAccountRepository(db *gorm.DB) AccountRepository {
	return &accountRepository{
		db: db,
	}
}

func (a *accountRepository) Insert(ctx context.Context, account *db_models.Account) error {
	return a.db.WithContext(ctx).Create(account).Error
}

func (a *accountRepository) FindById(ctx context.Context, id uuid.UUID) (*db_models.Account, error) {
	var account db_models.Account
	err := a.db.WithContext(ctx).First(&account, "id = ?", id).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &account, nil
}

func (a *accountRepository) FindByStripeAccountID(ctx context.Context, stripeAccountID string) (*db_models.Account, error) {
	var account db_models.Account
	err := a.db.WithContext(ctx).First(&account, "stripe_account_id = ?", stripeAccountID).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &account, nil
}

func (a *accountRepository) ListOnboarded(ctx context.Context) ([]db_models.Account, error) {
	var accounts []db_models.Account
	err := a.db.WithContext(ctx).
		Where("onboarding_complete = ?", true).
		Order("created_at ASC").
		Find(&accounts).Error
	return accounts, err
}

func (a *accountRepository) UpdateOnboardingState(ctx context.Context, id uuid.UUID, state OnboardingState) error {
	caps := datatypes.JSONMap{}
	for k, v := range state.Capabilities {
		caps[k] = v
	}

	return a.db.WithContext(ctx).
		Model(&db_models.Account{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"charges_enabled":     state.ChargesEnabled,
			"details_submitted":   state.DetailsSubmitted,
			"payouts_enabled":     state.PayoutsEnabled,
			"onboarding_complete": db_models.OnboardingReady(state.ChargesEnabled, state.DetailsSubmitted),
			"capabilities":        caps,
		}).Error
}

func (a *accountRepository) ClaimCatalogPopulation(ctx context.Context, id uuid.UUID) (bool, error) {
	res := a.db.WithContext(ctx).
		Model(&db_models.Account{}).
		Where("id = ? AND catalog_populated = ? AND onboarding_complete = ?", id, false, true).
		Update("catalog_populated", true)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (a *accountRepository) ReleaseCatalogPopulation(ctx context.Context, id uuid.UUID) error {
	return a.db.WithContext(ctx).
		Model(&db_models.Account{}).
		Where("id = ?", id).
		Update("catalog_populated", false).Error
}
