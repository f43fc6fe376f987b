package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"schoolpay/internal/models/request_models"
	"schoolpay/internal/services"
	"schoolpay/pkg/utils"
)

// StaffController serves the staff-facing parent management routes.
type StaffController struct {
	parentService    services.ParentService
	purchaseService  services.PurchaseService
	dashboardService services.DashboardService
}

func NewStaffController(
	parentService services.ParentService,
	purchaseService services.PurchaseService,
	dashboardService services.DashboardService,
) *StaffController {
	return &StaffController{
		parentService:    parentService,
		purchaseService:  purchaseService,
		dashboardService: dashboardService,
	}
}

// ListParents godoc
// @Summary List the school's parents
// @Tags Staff
// @Produce json
// @Success 200 {object} utils.APIResponse
// @Security BearerAuth
// @Router /staff/parents [get]
func (s *StaffController) ListParents(c *gin.Context) {
	tenantID, _, ok := sessionIDs(c)
	if !ok {
		return
	}

	parents, err := s.parentService.List(c.Request.Context(), tenantID)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, parents, "Parents fetched successfully")
}

// CreateParent godoc
// @Summary Create a parent on their behalf
// @Description A temporary password is generated and returned once when none is given
// @Tags Staff
// @Accept json
// @Produce json
// @Param request body request_models.CreateParentRequest true "Parent and students"
// @Success 201 {object} utils.APIResponse
// @Failure 409 {object} utils.APIResponse
// @Security BearerAuth
// @Router /staff/parents [post]
func (s *StaffController) CreateParent(c *gin.Context) {
	tenantID, _, ok := sessionIDs(c)
	if !ok {
		return
	}

	var req request_models.CreateParentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid request format")
		return
	}

	out, err := s.parentService.CreateByStaff(c.Request.Context(), tenantID, req)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondStatus(c, http.StatusCreated, out, "Parent created")
}

// ParentOverview godoc
// @Summary One parent's overview
// @Tags Staff
// @Produce json
// @Param parentId path string true "Parent ID"
// @Success 200 {object} utils.APIResponse
// @Failure 404 {object} utils.APIResponse
// @Security BearerAuth
// @Router /staff/parents/{parentId}/overview [get]
func (s *StaffController) ParentOverview(c *gin.Context) {
	tenantID, parentID, ok := s.parentScope(c)
	if !ok {
		return
	}

	out, err := s.dashboardService.ParentOverview(c.Request.Context(), tenantID, parentID)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, out, "Overview fetched successfully")
}

// AddPurchases godoc
// @Summary Bill items to a parent
// @Description Quantities keyed by student_<studentId>_<productId> or parent_<productId>; mode subscription adds pending items, mode invoice charges now
// @Tags Staff
// @Accept json
// @Produce json
// @Param parentId path string true "Parent ID"
// @Param request body request_models.AddPurchasesRequest true "Item quantities"
// @Success 201 {object} utils.APIResponse
// @Failure 400 {object} utils.APIResponse
// @Failure 409 {object} utils.APIResponse
// @Failure 502 {object} utils.APIResponse
// @Security BearerAuth
// @Router /staff/parents/{parentId}/purchases [post]
func (s *StaffController) AddPurchases(c *gin.Context) {
	tenantID, parentID, ok := s.parentScope(c)
	if !ok {
		return
	}

	var req request_models.AddPurchasesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid request format")
		return
	}

	out, err := s.purchaseService.AddPurchases(c.Request.Context(), tenantID, parentID, req)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondStatus(c, http.StatusCreated, out, "Purchases recorded")
}

// AddItem godoc
// @Summary Add one item to a parent's subscription
// @Tags Staff
// @Accept json
// @Produce json
// @Param parentId path string true "Parent ID"
// @Param request body request_models.AddItemRequest true "Product and optional student"
// @Success 201 {object} utils.APIResponse
// @Security BearerAuth
// @Router /staff/parents/{parentId}/items [post]
func (s *StaffController) AddItem(c *gin.Context) {
	tenantID, parentID, ok := s.parentScope(c)
	if !ok {
		return
	}

	var req request_models.AddItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid request format")
		return
	}
	productID := uuid.MustParse(req.ProductID)
	var studentID *uuid.UUID
	if req.StudentID != "" {
		id := uuid.MustParse(req.StudentID)
		studentID = &id
	}

	out, err := s.purchaseService.AddProductToParent(c.Request.Context(), tenantID, parentID, productID, studentID)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondStatus(c, http.StatusCreated, out, "Item added")
}

// CreateInvoice godoc
// @Summary Invoice a parent now
// @Description Adds the lines to a new invoice, finalizes it and charges the saved payment method
// @Tags Staff
// @Accept json
// @Produce json
// @Param parentId path string true "Parent ID"
// @Param request body request_models.CreateInvoiceRequest true "Invoice lines"
// @Success 201 {object} utils.APIResponse
// @Failure 502 {object} utils.APIResponse
// @Security BearerAuth
// @Router /staff/parents/{parentId}/invoices [post]
func (s *StaffController) CreateInvoice(c *gin.Context) {
	tenantID, parentID, ok := s.parentScope(c)
	if !ok {
		return
	}

	var req request_models.CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid request format")
		return
	}

	out, err := s.purchaseService.CreateParentInvoice(c.Request.Context(), tenantID, parentID, req)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondStatus(c, http.StatusCreated, out, "Invoice paid")
}

func (s *StaffController) parentScope(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	tenantID, _, ok := sessionIDs(c)
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}
	parentID, ok := pathUUID(c, "parentId")
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}
	return tenantID, parentID, true
}
