package request_models

const (
	PurchaseModeSubscription = "subscription"
	PurchaseModeInvoice      = "invoice"
)

// AddPurchasesRequest carries sparse quantities keyed by
// student_<studentId>_<productId> or parent_<productId>.
type AddPurchasesRequest struct {
	Items       map[string]int64 `json:"items" binding:"required,dive,min=0,max=50"`
	Mode        string           `json:"mode" binding:"required,oneof=subscription invoice"`
	Description string           `json:"description" binding:"omitempty,max=500"`
}

type InvoiceLineRequest struct {
	ProductID string `json:"product_id" binding:"required,uuid"`
	StudentID string `json:"student_id" binding:"omitempty,uuid"`
	Quantity  int64  `json:"quantity" binding:"required,min=1,max=50"`
}

type CreateInvoiceRequest struct {
	Lines       []InvoiceLineRequest `json:"lines" binding:"required,min=1,dive"`
	Description string               `json:"description" binding:"omitempty,max=500"`
}

// AddItemRequest adds a single pending item to the parent's current subscription.
type AddItemRequest struct {
	ProductID string `json:"product_id" binding:"required,uuid"`
	StudentID string `json:"student_id" binding:"omitempty,uuid"`
}
