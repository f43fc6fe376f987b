package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"schoolpay/internal/models/request_models"
	"schoolpay/internal/services"
	"schoolpay/pkg/utils"
)

type CatalogController struct {
	catalogService services.CatalogService
	accountService services.AccountService
}

func NewCatalogController(catalogService services.CatalogService, accountService services.AccountService) *CatalogController {
	return &CatalogController{
		catalogService: catalogService,
		accountService: accountService,
	}
}

// GetCatalog godoc
// @Summary School catalog
// @Description Tuition entries with their three prices, and one-off products
// @Tags Catalog
// @Produce json
// @Success 200 {object} utils.APIResponse
// @Security BearerAuth
// @Router /staff/catalog [get]
func (ct *CatalogController) GetCatalog(c *gin.Context) {
	tenantID, _, ok := sessionIDs(c)
	if !ok {
		return
	}

	out, err := ct.catalogService.GetCatalog(c.Request.Context(), tenantID)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, out, "Catalog fetched successfully")
}

// CreateTuition godoc
// @Summary Create a tuition entry
// @Description Creates the product with yearly, monthly and weekly prices derived from the yearly amount
// @Tags Catalog
// @Accept json
// @Produce json
// @Param request body request_models.CreateTuitionRequest true "Tuition"
// @Success 201 {object} utils.APIResponse
// @Failure 409 {object} utils.APIResponse
// @Security BearerAuth
// @Router /staff/catalog/tuition [post]
func (ct *CatalogController) CreateTuition(c *gin.Context) {
	tenantID, _, ok := sessionIDs(c)
	if !ok {
		return
	}

	var req request_models.CreateTuitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid request format")
		return
	}

	out, err := ct.catalogService.CreateTuition(c.Request.Context(), tenantID, req)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondStatus(c, http.StatusCreated, out, "Tuition created")
}

// CreateProduct godoc
// @Summary Create a one-off product
// @Tags Catalog
// @Accept json
// @Produce json
// @Param request body request_models.CreateProductRequest true "Product"
// @Success 201 {object} utils.APIResponse
// @Security BearerAuth
// @Router /staff/catalog/products [post]
func (ct *CatalogController) CreateProduct(c *gin.Context) {
	tenantID, _, ok := sessionIDs(c)
	if !ok {
		return
	}

	var req request_models.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid request format")
		return
	}

	out, err := ct.catalogService.CreateProduct(c.Request.Context(), tenantID, req)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondStatus(c, http.StatusCreated, out, "Product created")
}

// Populate godoc
// @Summary Populate the default catalog
// @Description Re-runs default catalog population; existing entries are skipped
// @Tags Catalog
// @Produce json
// @Success 200 {object} utils.APIResponse
// @Failure 409 {object} utils.APIResponse
// @Security BearerAuth
// @Router /staff/catalog/populate [post]
func (ct *CatalogController) Populate(c *gin.Context) {
	tenantID, _, ok := sessionIDs(c)
	if !ok {
		return
	}

	out, err := ct.accountService.PopulateCatalog(c.Request.Context(), tenantID)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, out, "Catalog populated")
}
