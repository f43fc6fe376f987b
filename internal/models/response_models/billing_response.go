package response_models

type SubscriptionLineResponse struct {
	PriceID     string   `json:"price_id"`
	Quantity    int64    `json:"quantity"`
	UnitAmount  int64    `json:"unit_amount"`
	Description string   `json:"description"`
	StudentIDs  []string `json:"student_ids"`
}

type SubscribeResponse struct {
	StripeSubscriptionID string                     `json:"stripe_subscription_id"`
	Status               string                     `json:"status"`
	Lines                []SubscriptionLineResponse `json:"lines"`
	SkippedStudentIDs    []string                   `json:"skipped_student_ids,omitempty"`
}

type PortalResponse struct {
	URL string `json:"url"`
}

type PurchaseResponse struct {
	ID                  string `json:"id"`
	ProductID           string `json:"product_id"`
	StudentID           string `json:"student_id,omitempty"`
	StripeInvoiceID     string `json:"stripe_invoice_id,omitempty"`
	StripeInvoiceItemID string `json:"stripe_invoice_item_id,omitempty"`
	Quantity            int64  `json:"quantity"`
	UnitAmount          int64  `json:"unit_amount"`
	Description         string `json:"description,omitempty"`
}

type InvoiceResponse struct {
	StripeInvoiceID string             `json:"stripe_invoice_id"`
	Status          string             `json:"status"`
	AmountPaid      int64              `json:"amount_paid"`
	HostedURL       string             `json:"hosted_url,omitempty"`
	Purchases       []PurchaseResponse `json:"purchases"`
}

type AddPurchasesResponse struct {
	Mode      string             `json:"mode"`
	Invoice   *InvoiceResponse   `json:"invoice,omitempty"`
	Purchases []PurchaseResponse `json:"purchases"`
}
