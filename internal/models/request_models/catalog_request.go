package request_models

type CreateTuitionRequest struct {
	Name         string `json:"name" binding:"required,max=200"`
	YearLevel    int    `json:"year_level" binding:"required,min=1,max=12"`
	YearlyAmount int64  `json:"yearly_amount" binding:"min=0"`
}

type CreateProductRequest struct {
	Name       string `json:"name" binding:"required,max=200"`
	Type       string `json:"type" binding:"required,oneof=studentItem parentItem"`
	UnitAmount int64  `json:"unit_amount" binding:"min=0"`
}
