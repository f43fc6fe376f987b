package repositories

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"schoolpay/internal/models/db_models"
)

type StaffRepository interface {
	Insert(ctx context.Context, staff *db_models.Staff) error
	FindById(ctx context.Context, accountID, id uuid.UUID) (*db_models.Staff, error)
	FindByEmail(ctx context.Context, accountID uuid.UUID, email string) (*db_models.Staff, error)
}

type staffRepository struct {
	db *gorm.DB
}

func NewStaffRepository(db *gorm.DB) StaffRepository {
	return &staffRepository{db: db}
}

func (s *staffRepository) Insert(ctx context.Context, staff *db_models.Staff) error {
	return s.db.WithContext(ctx).Create(staff).Error
}

func (s *staffRepository) FindById(ctx context.Context, accountID, id uuid.UUID) (*db_models.Staff, error) {
	var staff db_models.Staff
	err := s.db.WithContext(ctx).First(&staff, "account_id = ? AND id = ?", accountID, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &staff, nil
}

func (s *staffRepository) FindByEmail(ctx context.Context, accountID uuid.UUID, email string) (*db_models.Staff, error) {
	var staff db_models.Staff
	err := s.db.WithContext(ctx).First(&staff, "account_id = ? AND email = ?", accountID, email).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &staff, nil
}
