package repositories

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"schoolpay/internal/models/db_models"
)

type BillingRepository interface {
	// RecordSubscription writes the link rows, sets the parent's current subscription
	// and marks parent and students onboarded, all in one transaction.
	RecordSubscription(ctx context.Context, parentID uuid.UUID, stripeSubscriptionID string, links []db_models.ParentSubscription) error
	CreatePurchases(ctx context.Context, purchases []db_models.ParentPurchase) error
	ListSubscriptionLinks(ctx context.Context, parentID uuid.UUID) ([]db_models.ParentSubscription, error)
	ListPurchases(ctx context.Context, parentID uuid.UUID) ([]db_models.ParentPurchase, error)
	LinkedSubscriptionIDs(ctx context.Context, parentID uuid.UUID) ([]string, error)
	PurchasedInvoiceIDs(ctx context.Context, parentID uuid.UUID) ([]string, error)
}

type billingRepository struct {
	db *gorm.DB
}

func NewBillingRepository(db *gorm.DB) BillingRepository {
	return &billingRepository{db: db}
}

func (b *billingRepository) RecordSubscription(ctx context.Context, parentID uuid.UUID, stripeSubscriptionID string, links []db_models.ParentSubscription) error {
	return b.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(links) > 0 {
			if err := tx.Create(&links).Error; err != nil {
				return err
			}
		}

		if err := tx.Model(&db_models.Parent{}).
			Where("id = ?", parentID).
			Updates(map[string]interface{}{
				"current_subscription_id": stripeSubscriptionID,
				"onboarded":               true,
			}).Error; err != nil {
			return err
		}

		var studentIDs []uuid.UUID
		for _, l := range links {
			if l.StudentID != nil {
				studentIDs = append(studentIDs, *l.StudentID)
			}
		}
		if len(studentIDs) == 0 {
			return nil
		}
		return tx.Model(&db_models.Student{}).
			Where("parent_id = ? AND id IN ?", parentID, studentIDs).
			Update("onboarded", true).Error
	})
}

func (b *billingRepository) CreatePurchases(ctx context.Context, purchases []db_models.ParentPurchase) error {
	if len(purchases) == 0 {
		return nil
	}
	return b.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&purchases).Error
	})
}

func (b *billingRepository) ListSubscriptionLinks(ctx context.Context, parentID uuid.UUID) ([]db_models.ParentSubscription, error) {
	var links []db_models.ParentSubscription
	err := b.db.WithContext(ctx).
		Where("parent_id = ?", parentID).
		Order("created_at ASC").
		Find(&links).Error
	return links, err
}

func (b *billingRepository) ListPurchases(ctx context.Context, parentID uuid.UUID) ([]db_models.ParentPurchase, error) {
	var purchases []db_models.ParentPurchase
	err := b.db.WithContext(ctx).
		Where("parent_id = ?", parentID).
		Order("created_at ASC").
		Find(&purchases).Error
	return purchases, err
}

func (b *billingRepository) LinkedSubscriptionIDs(ctx context.Context, parentID uuid.UUID) ([]string, error) {
	var ids []string
	err := b.db.WithContext(ctx).
		Model(&db_models.ParentSubscription{}).
		Where("parent_id = ?", parentID).
		Distinct().
		Pluck("stripe_subscription_id", &ids).Error
	return ids, err
}

func (b *billingRepository) PurchasedInvoiceIDs(ctx context.Context, parentID uuid.UUID) ([]string, error) {
	var ids []string
	err := b.db.WithContext(ctx).
		Model(&db_models.ParentPurchase{}).
		Where("parent_id = ? AND stripe_invoice_id <> ''", parentID).
		Distinct().
		Pluck("stripe_invoice_id", &ids).Error
	return ids, err
}
