package response_models

type ProvisionAccountResponse struct {
	AccountID         string `json:"account_id"`
	StripeAccountID   string `json:"stripe_account_id"`
	OnboardingURL     string `json:"onboarding_url"`
	StaffEmail        string `json:"staff_email"`
	TemporaryPassword string `json:"temporary_password"`
}

type AccountResponse struct {
	ID                 string            `json:"id"`
	Name               string            `json:"name"`
	Email              string            `json:"email"`
	LogoURL            string            `json:"logo_url,omitempty"`
	OnboardingComplete bool              `json:"onboarding_complete"`
	ChargesEnabled     bool              `json:"charges_enabled"`
	DetailsSubmitted   bool              `json:"details_submitted"`
	PayoutsEnabled     bool              `json:"payouts_enabled"`
	CatalogPopulated   bool              `json:"catalog_populated"`
	Capabilities       map[string]string `json:"capabilities,omitempty"`
}

type LoginResponse struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	TenantID  string `json:"tenant_id"`
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expires_in"`
}
