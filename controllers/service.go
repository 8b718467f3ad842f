// controllers/service.go
package controllers

import (
	"net/http"
	"strings"

	"bookingdesk-backend/middleware"
	"bookingdesk-backend/models"
	"bookingdesk-backend/utils"

	"github.com/gin-gonic/gin"
)

// CreateServiceInput defines the expected JSON structure for creating a service
type CreateServiceInput struct {
	Name            string `json:"name" binding:"required"`
	Description     string `json:"description"`
	DurationMinutes int    `json:"durationMinutes" binding:"required,gt=0"`
	PriceCents      int64  `json:"priceCents" binding:"min=0"`
	Currency        string `json:"currency" binding:"omitempty,len=3"`
}

// UpdateServiceInput defines the expected JSON structure for updating a service
type UpdateServiceInput struct {
	Name            *string `json:"name"`
	Description     *string `json:"description"`
	DurationMinutes *int    `json:"durationMinutes"`
	PriceCents      *int64  `json:"priceCents"`
	Currency        *string `json:"currency"`
	IsActive        *bool   `json:"isActive"`
}

type VariantInput struct {
	Name            string `json:"name" binding:"required"`
	DurationMinutes int    `json:"durationMinutes" binding:"required,gt=0"`
	PriceCents      int64  `json:"priceCents" binding:"min=0"`
}

type ServiceController struct {
	*Deps
}

// CreateService creates a new service for the workspace
func (sc *ServiceController) CreateService(c *gin.Context) {
	var input CreateServiceInput
	if !bindJSON(c, &input) {
		return
	}

	ctx := c.Request.Context()
	wsID := middleware.WorkspaceID(c)
	if err := sc.Entitlements.CheckService(ctx, wsID); err != nil {
		sc.respondError(c, err, "")
		return
	}

	service := models.Service{
		WorkspaceID:     wsID,
		Name:            strings.TrimSpace(input.Name),
		Description:     input.Description,
		DurationMinutes: input.DurationMinutes,
		PriceCents:      input.PriceCents,
		Currency:        currencyOrDefault(input.Currency),
		IsActive:        true,
		Variants:        []models.ServiceVariant{},
	}
	if err := sc.Store.Services.Create(ctx, &service); err != nil {
		sc.respondError(c, err, "")
		return
	}

	c.JSON(http.StatusCreated, service)
}

// GetServices retrieves the workspace's services with their variants
func (sc *ServiceController) GetServices(c *gin.Context) {
	activeOnly := c.Query("active") == "true"
	services, err := sc.Store.Services.List(c.Request.Context(), middleware.WorkspaceID(c), activeOnly)
	if err != nil {
		sc.respondError(c, err, "")
		return
	}
	if services == nil {
		services = []models.Service{}
	}
	c.JSON(http.StatusOK, services)
}

func (sc *ServiceController) GetService(c *gin.Context) {
	id, ok := utils.ParamUUID(c, "id")
	if !ok {
		return
	}
	service, err := sc.Store.Services.Find(c.Request.Context(), middleware.WorkspaceID(c), id)
	if err != nil {
		sc.respondError(c, err, "Service not found")
		return
	}
	c.JSON(http.StatusOK, service)
}

func (sc *ServiceController) UpdateService(c *gin.Context) {
	id, ok := utils.ParamUUID(c, "id")
	if !ok {
		return
	}
	var input UpdateServiceInput
	if !bindJSON(c, &input) {
		return
	}

	ctx := c.Request.Context()
	service, err := sc.Store.Services.Find(ctx, middleware.WorkspaceID(c), id)
	if err != nil {
		sc.respondError(c, err, "Service not found")
		return
	}

	if input.Name != nil {
		if strings.TrimSpace(*input.Name) == "" {
			utils.RespondWithError(c, http.StatusBadRequest, "Name cannot be empty")
			return
		}
		service.Name = strings.TrimSpace(*input.Name)
	}
	if input.Description != nil {
		service.Description = *input.Description
	}
	if input.DurationMinutes != nil {
		if *input.DurationMinutes <= 0 {
			utils.RespondWithError(c, http.StatusBadRequest, "Duration must be positive")
			return
		}
		service.DurationMinutes = *input.DurationMinutes
	}
	if input.PriceCents != nil {
		if *input.PriceCents < 0 {
			utils.RespondWithError(c, http.StatusBadRequest, "Price cannot be negative")
			return
		}
		service.PriceCents = *input.PriceCents
	}
	if input.Currency != nil {
		if len(*input.Currency) != 3 {
			utils.RespondWithError(c, http.StatusBadRequest, "Currency must be a 3-letter code")
			return
		}
		service.Currency = currencyOrDefault(*input.Currency)
	}
	if input.IsActive != nil {
		service.IsActive = *input.IsActive
	}

	if err := sc.Store.Services.Update(ctx, service); err != nil {
		sc.respondError(c, err, "Service not found")
		return
	}
	c.JSON(http.StatusOK, service)
}

func (sc *ServiceController) DeleteService(c *gin.Context) {
	id, ok := utils.ParamUUID(c, "id")
	if !ok {
		return
	}
	if err := sc.Store.Services.Delete(c.Request.Context(), middleware.WorkspaceID(c), id); err != nil {
		sc.respondError(c, err, "Service not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Service deleted successfully"})
}

func (sc *ServiceController) CreateVariant(c *gin.Context) {
	service, ok := sc.service(c)
	if !ok {
		return
	}
	var input VariantInput
	if !bindJSON(c, &input) {
		return
	}

	v := models.ServiceVariant{
		ServiceID:       service.ID,
		Name:            strings.TrimSpace(input.Name),
		DurationMinutes: input.DurationMinutes,
		PriceCents:      input.PriceCents,
	}
	if err := sc.Store.Services.CreateVariant(c.Request.Context(), &v); err != nil {
		sc.respondError(c, err, "")
		return
	}
	c.JSON(http.StatusCreated, v)
}

func (sc *ServiceController) UpdateVariant(c *gin.Context) {
	service, ok := sc.service(c)
	if !ok {
		return
	}
	variantID, ok := utils.ParamUUID(c, "variantId")
	if !ok {
		return
	}
	var input VariantInput
	if !bindJSON(c, &input) {
		return
	}

	existing, found := service.Variant(variantID)
	if !found {
		utils.RespondWithError(c, http.StatusNotFound, "Variant not found")
		return
	}
	existing.Name = strings.TrimSpace(input.Name)
	existing.DurationMinutes = input.DurationMinutes
	existing.PriceCents = input.PriceCents

	if err := sc.Store.Services.UpdateVariant(c.Request.Context(), existing); err != nil {
		sc.respondError(c, err, "Variant not found")
		return
	}
	c.JSON(http.StatusOK, existing)
}

func (sc *ServiceController) DeleteVariant(c *gin.Context) {
	service, ok := sc.service(c)
	if !ok {
		return
	}
	variantID, ok := utils.ParamUUID(c, "variantId")
	if !ok {
		return
	}
	if err := sc.Store.Services.DeleteVariant(c.Request.Context(), service.ID, variantID); err != nil {
		sc.respondError(c, err, "Variant not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Variant deleted successfully"})
}

// service loads the :id service of the current workspace.
func (sc *ServiceController) service(c *gin.Context) (*models.Service, bool) {
	id, ok := utils.ParamUUID(c, "id")
	if !ok {
		return nil, false
	}
	service, err := sc.Store.Services.Find(c.Request.Context(), middleware.WorkspaceID(c), id)
	if err != nil {
		sc.respondError(c, err, "Service not found")
		return nil, false
	}
	return service, true
}

func currencyOrDefault(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		return "usd"
	}
	return code
}
