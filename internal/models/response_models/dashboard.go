package response_models

type KPIBlock struct {
	Parents                  int64 `json:"parents"`
	Students                 int64 `json:"students"`
	SubscribedParents        int64 `json:"subscribed_parents"`
	ParentsWithPaymentMethod int64 `json:"parents_with_payment_method"`
	Purchases                int64 `json:"purchases"`
	PurchaseAmountMinor      int64 `json:"purchase_amount_minor"`
}

type RecentPurchase struct {
	ParentID    string `json:"parent_id"`
	ParentName  string `json:"parent_name"`
	ProductName string `json:"product_name"`
	Quantity    int64  `json:"quantity"`
	AmountMinor int64  `json:"amount_minor"`
	CreatedAt   int64  `json:"created_at"`
}

type DashboardReport struct {
	Account         AccountResponse  `json:"account"`
	KPIs            KPIBlock         `json:"kpis"`
	RecentPurchases []RecentPurchase `json:"recent_purchases"`
}

type SubscriptionLinkResponse struct {
	ID                   string `json:"id"`
	StudentID            string `json:"student_id,omitempty"`
	SubscriptionID       string `json:"subscription_id"`
	StripeSubscriptionID string `json:"stripe_subscription_id"`
	Description          string `json:"description,omitempty"`
}

type ParentOverview struct {
	Parent        ParentResponse             `json:"parent"`
	Subscriptions []SubscriptionLinkResponse `json:"subscriptions"`
	Purchases     []PurchaseResponse         `json:"purchases"`
}

type ReconcileAnomaly struct {
	Kind     string `json:"kind"`
	ParentID string `json:"parent_id"`
	RemoteID string `json:"remote_id"`
	Detail   string `json:"detail,omitempty"`
}

type ReconcileReport struct {
	AccountID      string             `json:"account_id"`
	ParentsChecked int                `json:"parents_checked"`
	Anomalies      []ReconcileAnomaly `json:"anomalies"`
	Errors         []string           `json:"errors,omitempty"`
}
