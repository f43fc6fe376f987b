package request_models

type SubscribeRequest struct {
	// PaymentMethodID falls back to the parent's saved default when empty.
	PaymentMethodID string   `json:"payment_method_id"`
	StudentIDs      []string `json:"student_ids" binding:"omitempty,dive,uuid"`
	Frequency       string   `json:"frequency" binding:"required,oneof=weekly monthly yearly"`
}

type PortalRequest struct {
	ReturnURL string `json:"return_url" binding:"omitempty,url"`
}
