package repositories

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"schoolpay/internal/models/db_models"
)

type CatalogRepository interface {
	// CreateSubscription inserts the tuition entry with its prices.
	CreateSubscription(ctx context.Context, sub *db_models.Subscription) error
	CreateProduct(ctx context.Context, product *db_models.Product) error
	ListSubscriptions(ctx context.Context, accountID uuid.UUID) ([]db_models.Subscription, error)
	ListProducts(ctx context.Context, accountID uuid.UUID) ([]db_models.Product, error)
	FindProduct(ctx context.Context, accountID, id uuid.UUID) (*db_models.Product, error)
	FindProducts(ctx context.Context, accountID uuid.UUID, ids []uuid.UUID) ([]db_models.Product, error)
	// FindPrice resolves the newest tuition price for a year level and period.
	FindPrice(ctx context.Context, accountID uuid.UUID, yearLevel int, period db_models.BillingPeriod) (*db_models.SubscriptionPrice, error)
}

type catalogRepository struct {
	db *gorm.DB
}

func NewCatalogRepository(db *gorm.DB) CatalogRepository {
	return &catalogRepository{db: db}
}

func (c *catalogRepository) CreateSubscription(ctx context.Context, sub *db_models.Subscription) error {
	return c.db.WithContext(ctx).Create(sub).Error
}

func (c *catalogRepository) CreateProduct(ctx context.Context, product *db_models.Product) error {
	return c.db.WithContext(ctx).Create(product).Error
}

func (c *catalogRepository) ListSubscriptions(ctx context.Context, accountID uuid.UUID) ([]db_models.Subscription, error) {
	var subs []db_models.Subscription
	err := c.db.WithContext(ctx).
		Preload("Prices").
		Where("account_id = ?", accountID).
		Order("year_level ASC, created_at ASC").
		Find(&subs).Error
	return subs, err
}

func (c *catalogRepository) ListProducts(ctx context.Context, accountID uuid.UUID) ([]db_models.Product, error) {
	var products []db_models.Product
	err := c.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("name ASC").
		Find(&products).Error
	return products, err
}

func (c *catalogRepository) FindProduct(ctx context.Context, accountID, id uuid.UUID) (*db_models.Product, error) {
	var product db_models.Product
	err := c.db.WithContext(ctx).First(&product, "account_id = ? AND id = ?", accountID, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &product, nil
}

func (c *catalogRepository) FindProducts(ctx context.Context, accountID uuid.UUID, ids []uuid.UUID) ([]db_models.Product, error) {
	var products []db_models.Product
	err := c.db.WithContext(ctx).
		Where("account_id = ? AND id IN ?", accountID, ids).
		Find(&products).Error
	return products, err
}

func (c *catalogRepository) FindPrice(ctx context.Context, accountID uuid.UUID, yearLevel int, period db_models.BillingPeriod) (*db_models.SubscriptionPrice, error) {
	var price db_models.SubscriptionPrice
	err := c.db.WithContext(ctx).
		Preload("Subscription").
		Joins("JOIN subscriptions ON subscriptions.id = subscription_prices.subscription_id AND subscriptions.deleted_at IS NULL").
		Where("subscriptions.account_id = ? AND subscriptions.year_level = ? AND subscription_prices.period = ?", accountID, yearLevel, period).
		Order("subscriptions.created_at DESC").
		Take(&price).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &price, nil
}
