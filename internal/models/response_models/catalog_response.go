package response_models

type PriceResponse struct {
	ID            string `json:"id"`
	Period        string `json:"period"`
	UnitAmount    int64  `json:"unit_amount"`
	StripePriceID string `json:"stripe_price_id"`
}

type TuitionResponse struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	YearLevel       int             `json:"year_level"`
	StripeProductID string          `json:"stripe_product_id"`
	Prices          []PriceResponse `json:"prices"`
}

type ProductResponse struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Type            string `json:"type"`
	UnitAmount      int64  `json:"unit_amount"`
	StripeProductID string `json:"stripe_product_id"`
	StripePriceID   string `json:"stripe_price_id"`
}

type CatalogResponse struct {
	Tuition  []TuitionResponse `json:"tuition"`
	Products []ProductResponse `json:"products"`
}

type PopulateResult struct {
	Created int `json:"created"`
	Skipped int `json:"skipped"`
}
