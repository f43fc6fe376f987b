package services

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	dbm "schoolpay/internal/models/db_models"
	"schoolpay/internal/models/request_models"
	resp "schoolpay/internal/models/response_models"
	"schoolpay/internal/repositories"
	"schoolpay/pkg/utils"
)

type ParentService interface {
	Signup(ctx context.Context, req request_models.ParentSignupRequest) (*resp.ParentResponse, error)
	CreateByStaff(ctx context.Context, accountID uuid.UUID, req request_models.CreateParentRequest) (*resp.CreatedParentResponse, error)
	List(ctx context.Context, accountID uuid.UUID) ([]resp.ParentResponse, error)
	// EnsureCustomer returns the parent's processor customer, creating it on first use.
	EnsureCustomer(ctx context.Context, acct *dbm.Account, parent *dbm.Parent) (string, error)
	CreateSetupIntent(ctx context.Context, accountID, parentID uuid.UUID) (*resp.SetupIntentResponse, error)
	AddStudent(ctx context.Context, accountID, parentID uuid.UUID, req request_models.StudentRequest) (*resp.StudentResponse, error)
	RemoveStudent(ctx context.Context, accountID, parentID, studentID uuid.UUID) error
}

type parentService struct {
	accountRepo repositories.AccountRepository
	parentRepo  repositories.ParentRepository
	processor   PaymentProcessor
	log         *zap.Logger
}

func NewParentService(
	accountRepo repositories.AccountRepository,
	parentRepo repositories.ParentRepository,
	processor PaymentProcessor,
	log *zap.Logger,
) ParentService {
	return &parentService{
		accountRepo: accountRepo,
		parentRepo:  parentRepo,
		processor:   processor,
		log:         log.Named("parents"),
	}
}

type newParent struct {
	firstName string
	lastName  string
	email     string
	password  string
	emoji     string
	address   request_models.AddressRequest
	students  []request_models.StudentRequest
}

func (s *parentService) Signup(ctx context.Context, req request_models.ParentSignupRequest) (*resp.ParentResponse, error) {
	accountID, err := uuid.Parse(req.AccountID)
	if err != nil {
		return nil, utils.ErrInvalidInput
	}

	parent, err := s.create(ctx, accountID, newParent{
		firstName: req.FirstName,
		lastName:  req.LastName,
		email:     req.Email,
		password:  req.Password,
		emoji:     req.Emoji,
		address:   req.Address,
		students:  req.Students,
	})
	if err != nil {
		return nil, err
	}
	out := toParentResponse(parent, parent.Students)
	return &out, nil
}

func (s *parentService) CreateByStaff(ctx context.Context, accountID uuid.UUID, req request_models.CreateParentRequest) (*resp.CreatedParentResponse, error) {
	password := req.Password
	var temp string
	if password == "" {
		generated, err := utils.GenerateTempPassword()
		if err != nil {
			return nil, err
		}
		password, temp = generated, generated
	}

	parent, err := s.create(ctx, accountID, newParent{
		firstName: req.FirstName,
		lastName:  req.LastName,
		email:     req.Email,
		password:  password,
		emoji:     req.Emoji,
		address:   req.Address,
		students:  req.Students,
	})
	if err != nil {
		return nil, err
	}

	return &resp.CreatedParentResponse{
		Parent:            toParentResponse(parent, parent.Students),
		TemporaryPassword: temp,
	}, nil
}

func (s *parentService) create(ctx context.Context, accountID uuid.UUID, in newParent) (*dbm.Parent, error) {
	if len(in.students) == 0 {
		return nil, utils.ErrInvalidInput
	}

	acct, err := loadAccount(ctx, s.accountRepo, accountID)
	if err != nil {
		return nil, err
	}

	email := strings.ToLower(strings.TrimSpace(in.email))
	existing, err := s.parentRepo.FindByEmail(ctx, acct.ID, email)
	if err != nil {
		return nil, utils.ErrDatabaseError
	}
	if existing != nil {
		return nil, utils.ErrEmailAlreadyExists
	}

	hashed, err := utils.HashPassword(in.password)
	if err != nil {
		return nil, err
	}

	parent := &dbm.Parent{
		AccountID:    acct.ID,
		Email:        email,
		FirstName:    in.firstName,
		LastName:     in.lastName,
		Emoji:        in.emoji,
		PasswordHash: hashed,
		AddressLine1: in.address.Line1,
		AddressLine2: in.address.Line2,
		City:         in.address.City,
		State:        in.address.State,
		PostalCode:   in.address.PostalCode,
		Country:      in.address.Country,
	}
	students := make([]dbm.Student, 0, len(in.students))
	for _, st := range in.students {
		students = append(students, dbm.Student{
			FirstName: st.FirstName,
			LastName:  st.LastName,
			YearLevel: st.YearLevel,
		})
	}

	if err := s.parentRepo.Create(ctx, parent, students); err != nil {
		return nil, utils.ErrDatabaseError
	}

	// The customer is created lazily again on first billing use if this fails.
	if _, err := s.EnsureCustomer(ctx, acct, parent); err != nil {
		s.log.Warn("customer creation deferred",
			zap.String("tenant_id", acct.ID.String()),
			zap.String("parent_id", parent.ID.String()),
			zap.Error(err))
	}
	return parent, nil
}

func (s *parentService) List(ctx context.Context, accountID uuid.UUID) ([]resp.ParentResponse, error) {
	parents, err := s.parentRepo.List(ctx, accountID)
	if err != nil {
		return nil, utils.ErrDatabaseError
	}
	out := make([]resp.ParentResponse, 0, len(parents))
	for i := range parents {
		out = append(out, toParentResponse(&parents[i], parents[i].Students))
	}
	return out, nil
}

func (s *parentService) EnsureCustomer(ctx context.Context, acct *dbm.Account, parent *dbm.Parent) (string, error) {
	if id := parent.CustomerID(); id != "" {
		return id, nil
	}

	params := CustomerParams{
		Email: parent.Email,
		Name:  parent.FullName(),
		Metadata: map[string]string{
			"parent_id": parent.ID.String(),
			"tenant_id": acct.ID.String(),
		},
	}
	if parent.AddressLine1 != "" {
		params.Address = &Address{
			Line1:      parent.AddressLine1,
			Line2:      parent.AddressLine2,
			City:       parent.City,
			State:      parent.State,
			PostalCode: parent.PostalCode,
			Country:    parent.Country,
		}
	}

	customer, err := s.processor.CreateCustomer(ctx, acct.StripeAccountID, params)
	if err != nil {
		return "", err
	}

	written, err := s.parentRepo.SetCustomerID(ctx, parent.ID, customer.ID)
	if err != nil {
		s.log.Error("customer created but not stored",
			zap.String("tenant_id", acct.ID.String()),
			zap.String("parent_id", parent.ID.String()),
			zap.String("customer_id", customer.ID),
			zap.Error(err))
		return "", utils.ErrDatabaseError
	}
	if !written {
		// A concurrent request stored a customer first; keep theirs.
		current, err := loadParent(ctx, s.parentRepo, acct.ID, parent.ID)
		if err != nil {
			return "", err
		}
		s.log.Warn("orphaned duplicate customer",
			zap.String("tenant_id", acct.ID.String()),
			zap.String("parent_id", parent.ID.String()),
			zap.String("customer_id", customer.ID),
			zap.String("kept_customer_id", current.CustomerID()))
		parent.StripeCustomerID = current.StripeCustomerID
		return current.CustomerID(), nil
	}

	parent.StripeCustomerID = &customer.ID
	return customer.ID, nil
}

func (s *parentService) CreateSetupIntent(ctx context.Context, accountID, parentID uuid.UUID) (*resp.SetupIntentResponse, error) {
	acct, err := loadAccount(ctx, s.accountRepo, accountID)
	if err != nil {
		return nil, err
	}
	parent, err := loadParent(ctx, s.parentRepo, accountID, parentID)
	if err != nil {
		return nil, err
	}

	customerID, err := s.EnsureCustomer(ctx, acct, parent)
	if err != nil {
		return nil, err
	}

	si, err := s.processor.CreateSetupIntent(ctx, acct.StripeAccountID, customerID)
	if err != nil {
		return nil, err
	}
	return &resp.SetupIntentResponse{SetupIntentID: si.ID, ClientSecret: si.ClientSecret}, nil
}

func (s *parentService) AddStudent(ctx context.Context, accountID, parentID uuid.UUID, req request_models.StudentRequest) (*resp.StudentResponse, error) {
	parent, err := loadParent(ctx, s.parentRepo, accountID, parentID)
	if err != nil {
		return nil, err
	}

	student := &dbm.Student{
		AccountID: parent.AccountID,
		ParentID:  parent.ID,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		YearLevel: req.YearLevel,
	}
	if err := s.parentRepo.AddStudent(ctx, student); err != nil {
		return nil, utils.ErrDatabaseError
	}
	out := toStudentResponse(student)
	return &out, nil
}

func (s *parentService) RemoveStudent(ctx context.Context, accountID, parentID, studentID uuid.UUID) error {
	if _, err := loadParent(ctx, s.parentRepo, accountID, parentID); err != nil {
		return err
	}

	err := s.parentRepo.RemoveStudent(ctx, parentID, studentID)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, utils.ErrLastStudent), errors.Is(err, utils.ErrStudentNotFound):
		return err
	default:
		return utils.ErrDatabaseError
	}
}
