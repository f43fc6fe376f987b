package repositories

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbm "schoolpay/internal/models/db_models"
)

type DashboardRepository interface {
	CountParents(ctx context.Context, accountID uuid.UUID) (int64, error)
	CountStudents(ctx context.Context, accountID uuid.UUID) (int64, error)
	CountSubscribedParents(ctx context.Context, accountID uuid.UUID) (int64, error)
	CountParentsWithPaymentMethod(ctx context.Context, accountID uuid.UUID) (int64, error)
	PurchaseTotals(ctx context.Context, accountID uuid.UUID) (*PurchaseTotals, error)
	RecentPurchases(ctx context.Context, accountID uuid.UUID, limit int) ([]RecentPurchaseRow, error)
}

type dashboardRepository struct {
	db *gorm.DB
}

func NewDashboardRepository(db *gorm.DB) DashboardRepository {
	return &dashboardRepository{db: db}
}

// ---------- Row helpers ----------
type PurchaseTotals struct {
	Count       int64 `gorm:"column:count"`
	AmountMinor int64 `gorm:"column:amount_minor"`
}

type RecentPurchaseRow struct {
	ParentID    string `gorm:"column:parent_id"`
	ParentName  string `gorm:"column:parent_name"`
	ProductName string `gorm:"column:product_name"`
	Quantity    int64  `gorm:"column:quantity"`
	AmountMinor int64  `gorm:"column:amount_minor"`
	CreatedAt   int64  `gorm:"column:created_at"`
}

func (r *dashboardRepository) CountParents(ctx context.Context, accountID uuid.UUID) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&dbm.Parent{}).Where("account_id = ?", accountID).Count(&n).Error
	return n, err
}

func (r *dashboardRepository) CountStudents(ctx context.Context, accountID uuid.UUID) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&dbm.Student{}).Where("account_id = ?", accountID).Count(&n).Error
	return n, err
}

func (r *dashboardRepository) CountSubscribedParents(ctx context.Context, accountID uuid.UUID) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&dbm.Parent{}).
		Where("account_id = ? AND current_subscription_id <> ''", accountID).
		Count(&n).Error
	return n, err
}

func (r *dashboardRepository) CountParentsWithPaymentMethod(ctx context.Context, accountID uuid.UUID) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&dbm.Parent{}).
		Where("account_id = ? AND has_payment_method = ?", accountID, true).
		Count(&n).Error
	return n, err
}

func (r *dashboardRepository) PurchaseTotals(ctx context.Context, accountID uuid.UUID) (*PurchaseTotals, error) {
	var out PurchaseTotals
	err := r.db.WithContext(ctx).
		Table("parent_purchases AS pp").
		Select("COUNT(*) AS count, COALESCE(SUM(pp.quantity * pp.unit_amount), 0) AS amount_minor").
		Joins("JOIN parents p ON p.id = pp.parent_id").
		Where("p.account_id = ? AND pp.deleted_at IS NULL", accountID).
		Scan(&out).Error
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *dashboardRepository) RecentPurchases(ctx context.Context, accountID uuid.UUID, limit int) ([]RecentPurchaseRow, error) {
	if limit <= 0 {
		limit = 10
	}
	var rows []RecentPurchaseRow
	err := r.db.WithContext(ctx).
		Table("parent_purchases AS pp").
		Select(`pp.parent_id AS parent_id,
			p.first_name || ' ' || p.last_name AS parent_name,
			pr.name AS product_name,
			pp.quantity AS quantity,
			pp.quantity * pp.unit_amount AS amount_minor,
			pp.created_at AS created_at`).
		Joins("JOIN parents p ON p.id = pp.parent_id").
		Joins("JOIN products pr ON pr.id = pp.product_id").
		Where("p.account_id = ? AND pp.deleted_at IS NULL", accountID).
		Order("pp.created_at DESC").
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}
