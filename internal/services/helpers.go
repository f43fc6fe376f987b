package services

import (
	"context"

	"github.com/google/uuid"

	dbm "schoolpay/internal/models/db_models"
	resp "schoolpay/internal/models/response_models"
	"schoolpay/internal/repositories"
	"schoolpay/pkg/utils"
)

func loadAccount(ctx context.Context, repo repositories.AccountRepository, id uuid.UUID) (*dbm.Account, error) {
	acct, err := repo.FindById(ctx, id)
	if err != nil {
		return nil, utils.ErrDatabaseError
	}
	if acct == nil {
		return nil, utils.ErrAccountNotFound
	}
	return acct, nil
}

func loadParent(ctx context.Context, repo repositories.ParentRepository, accountID, parentID uuid.UUID) (*dbm.Parent, error) {
	parent, err := repo.FindById(ctx, accountID, parentID)
	if err != nil {
		return nil, utils.ErrDatabaseError
	}
	if parent == nil {
		return nil, utils.ErrParentNotFound
	}
	return parent, nil
}

func parseIDs(raw []string) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(raw))
	for _, r := range raw {
		id, err := uuid.Parse(r)
		if err != nil {
			return nil, utils.ErrInvalidInput
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func optionalID(id *uuid.UUID) string {
	if id == nil {
		return ""
	}
	return id.String()
}

// ------------------- Response mapping -------------------

func toAccountResponse(a *dbm.Account) resp.AccountResponse {
	out := resp.AccountResponse{
		ID:                 a.ID.String(),
		Name:               a.Name,
		Email:              a.Email,
		LogoURL:            a.LogoURL,
		OnboardingComplete: a.OnboardingComplete,
		ChargesEnabled:     a.ChargesEnabled,
		DetailsSubmitted:   a.DetailsSubmitted,
		PayoutsEnabled:     a.PayoutsEnabled,
		CatalogPopulated:   a.CatalogPopulated,
	}
	if len(a.Capabilities) > 0 {
		out.Capabilities = make(map[string]string, len(a.Capabilities))
		for k, v := range a.Capabilities {
			if s, ok := v.(string); ok {
				out.Capabilities[k] = s
			}
		}
	}
	return out
}

func toStudentResponse(s *dbm.Student) resp.StudentResponse {
	return resp.StudentResponse{
		ID:        s.ID.String(),
		FirstName: s.FirstName,
		LastName:  s.LastName,
		YearLevel: s.YearLevel,
		Onboarded: s.Onboarded,
	}
}

func toParentResponse(p *dbm.Parent, students []dbm.Student) resp.ParentResponse {
	out := resp.ParentResponse{
		ID:                    p.ID.String(),
		FirstName:             p.FirstName,
		LastName:              p.LastName,
		Email:                 p.Email,
		Emoji:                 p.Emoji,
		HasPaymentMethod:      p.HasPaymentMethod,
		Onboarded:             p.Onboarded,
		CurrentSubscriptionID: p.CurrentSubscriptionID,
	}
	for i := range students {
		out.Students = append(out.Students, toStudentResponse(&students[i]))
	}
	return out
}

func toPurchaseResponse(p *dbm.ParentPurchase) resp.PurchaseResponse {
	return resp.PurchaseResponse{
		ID:                  p.ID.String(),
		ProductID:           p.ProductID.String(),
		StudentID:           optionalID(p.StudentID),
		StripeInvoiceID:     p.StripeInvoiceID,
		StripeInvoiceItemID: p.StripeInvoiceItemID,
		Quantity:            p.Quantity,
		UnitAmount:          p.UnitAmount,
		Description:         p.Description,
	}
}

func toPurchaseResponses(rows []dbm.ParentPurchase) []resp.PurchaseResponse {
	out := make([]resp.PurchaseResponse, 0, len(rows))
	for i := range rows {
		out = append(out, toPurchaseResponse(&rows[i]))
	}
	return out
}

func toTuitionResponse(s *dbm.Subscription) resp.TuitionResponse {
	out := resp.TuitionResponse{
		ID:              s.ID.String(),
		Name:            s.Name,
		YearLevel:       s.YearLevel,
		StripeProductID: s.StripeProductID,
		Prices:          make([]resp.PriceResponse, 0, len(s.Prices)),
	}
	for _, p := range s.Prices {
		out.Prices = append(out.Prices, resp.PriceResponse{
			ID:            p.ID.String(),
			Period:        string(p.Period),
			UnitAmount:    p.UnitAmount,
			StripePriceID: p.StripePriceID,
		})
	}
	return out
}

func toProductResponse(p *dbm.Product) resp.ProductResponse {
	return resp.ProductResponse{
		ID:              p.ID.String(),
		Name:            p.Name,
		Type:            string(p.Type),
		UnitAmount:      p.UnitAmount,
		StripeProductID: p.StripeProductID,
		StripePriceID:   p.StripePriceID,
	}
}
