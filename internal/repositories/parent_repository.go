package repositories

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"schoolpay/internal/models/db_models"
	"schoolpay/pkg/utils"
)

type ParentRepository interface {
	// Create inserts the parent and its students in one transaction.
	Create(ctx context.Context, parent *db_models.Parent, students []db_models.Student) error
	FindById(ctx context.Context, accountID, id uuid.UUID) (*db_models.Parent, error)
	FindByEmail(ctx context.Context, accountID uuid.UUID, email string) (*db_models.Parent, error)
	FindByCustomerID(ctx context.Context, accountID uuid.UUID, customerID string) (*db_models.Parent, error)
	List(ctx context.Context, accountID uuid.UUID) ([]db_models.Parent, error)
	ListWithCustomer(ctx context.Context, accountID uuid.UUID) ([]db_models.Parent, error)
	// SetCustomerID stores customerID only when none is set yet and reports whether it was written.
	SetCustomerID(ctx context.Context, id uuid.UUID, customerID string) (bool, error)
	SavePaymentMethod(ctx context.Context, id uuid.UUID, paymentMethodID string) error

	ListStudents(ctx context.Context, parentID uuid.UUID) ([]db_models.Student, error)
	FindStudents(ctx context.Context, parentID uuid.UUID, ids []uuid.UUID) ([]db_models.Student, error)
	AddStudent(ctx context.Context, student *db_models.Student) error
	// RemoveStudent soft-deletes the student unless it is the parent's last one.
	RemoveStudent(ctx context.Context, parentID, studentID uuid.UUID) error
}

type parentRepository struct {
	db *gorm.DB
}

func NewParentRepository(db *gorm.DB) ParentRepository {
	return &parentRepository{db: db}
}

func (p *parentRepository) Create(ctx context.Context, parent *db_models.Parent, students []db_models.Student) error {
	return p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Students").Create(parent).Error; err != nil {
			return err
		}
		for i := range students {
			students[i].ParentID = parent.ID
			students[i].AccountID = parent.AccountID
		}
		if len(students) > 0 {
			if err := tx.Create(&students).Error; err != nil {
				return err
			}
		}
		parent.Students = students
		return nil
	})
}

func (p *parentRepository) FindById(ctx context.Context, accountID, id uuid.UUID) (*db_models.Parent, error) {
	var parent db_models.Parent
	err := p.db.WithContext(ctx).First(&parent, "account_id = ? AND id = ?", accountID, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &parent, nil
}

func (p *parentRepository) FindByEmail(ctx context.Context, accountID uuid.UUID, email string) (*db_models.Parent, error) {
	var parent db_models.Parent
	err := p.db.WithContext(ctx).First(&parent, "account_id = ? AND email = ?", accountID, email).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &parent, nil
}

func (p *parentRepository) FindByCustomerID(ctx context.Context, accountID uuid.UUID, customerID string) (*db_models.Parent, error) {
	var parent db_models.Parent
	err := p.db.WithContext(ctx).First(&parent, "account_id = ? AND stripe_customer_id = ?", accountID, customerID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &parent, nil
}

func (p *parentRepository) List(ctx context.Context, accountID uuid.UUID) ([]db_models.Parent, error) {
	var parents []db_models.Parent
	err := p.db.WithContext(ctx).
		Preload("Students").
		Where("account_id = ?", accountID).
		Order("last_name ASC, first_name ASC").
		Find(&parents).Error
	return parents, err
}

func (p *parentRepository) ListWithCustomer(ctx context.Context, accountID uuid.UUID) ([]db_models.Parent, error) {
	var parents []db_models.Parent
	err := p.db.WithContext(ctx).
		Where("account_id = ? AND stripe_customer_id IS NOT NULL", accountID).
		Find(&parents).Error
	return parents, err
}

func (p *parentRepository) SetCustomerID(ctx context.Context, id uuid.UUID, customerID string) (bool, error) {
	res := p.db.WithContext(ctx).
		Model(&db_models.Parent{}).
		Where("id = ? AND stripe_customer_id IS NULL", id).
		Update("stripe_customer_id", customerID)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (p *parentRepository) SavePaymentMethod(ctx context.Context, id uuid.UUID, paymentMethodID string) error {
	return p.db.WithContext(ctx).
		Model(&db_models.Parent{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"default_payment_method_id": paymentMethodID,
			"has_payment_method":        true,
		}).Error
}

func (p *parentRepository) ListStudents(ctx context.Context, parentID uuid.UUID) ([]db_models.Student, error) {
	var students []db_models.Student
	err := p.db.WithContext(ctx).
		Where("parent_id = ?", parentID).
		Order("year_level ASC, first_name ASC").
		Find(&students).Error
	return students, err
}

func (p *parentRepository) FindStudents(ctx context.Context, parentID uuid.UUID, ids []uuid.UUID) ([]db_models.Student, error) {
	var students []db_models.Student
	err := p.db.WithContext(ctx).
		Where("parent_id = ? AND id IN ?", parentID, ids).
		Find(&students).Error
	return students, err
}

func (p *parentRepository) AddStudent(ctx context.Context, student *db_models.Student) error {
	return p.db.WithContext(ctx).Create(student).Error
}

func (p *parentRepository) RemoveStudent(ctx context.Context, parentID, studentID uuid.UUID) error {
	return p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&db_models.Student{}).Where("parent_id = ?", parentID).Count(&count).Error; err != nil {
			return err
		}

		res := tx.Where("parent_id = ? AND id = ?", parentID, studentID).Delete(&db_models.Student{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return utils.ErrStudentNotFound
		}
		if count <= 1 {
			return utils.ErrLastStudent
		}
		return nil
	})
}
