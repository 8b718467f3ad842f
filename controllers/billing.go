package controllers

import (
	"errors"
	"io"
	"net/http"
	"time"

	"bookingdesk-backend/billing"
	"bookingdesk-backend/metrics"
	"bookingdesk-backend/middleware"
	"bookingdesk-backend/models"
	"bookingdesk-backend/repository"
	"bookingdesk-backend/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const maxWebhookBody = 1 << 20

type CheckoutInput struct {
	Plan string `json:"plan" binding:"required"`
}

type BillingController struct {
	*Deps
}

func (bc *BillingController) ListPlans(c *gin.Context) {
	plans, err := bc.Store.Billing.ListPlans(c.Request.Context())
	if err != nil {
		bc.respondError(c, err, "")
		return
	}
	if plans == nil {
		plans = []models.SubscriptionPlan{}
	}
	c.JSON(http.StatusOK, plans)
}

// GetSubscription returns the subscription, the limits that apply and this
// month's usage.
func (bc *BillingController) GetSubscription(c *gin.Context) {
	ctx := c.Request.Context()
	wsID := middleware.WorkspaceID(c)
	plan, sub, err := bc.Entitlements.Plan(ctx, wsID)
	if err != nil {
		bc.respondError(c, err, "")
		return
	}
	usage, err := bc.Entitlements.Usage(ctx, wsID)
	if err != nil {
		bc.respondError(c, err, "")
		return
	}
	c.JSON(http.StatusOK, gin.H{"subscription": sub, "plan": plan, "usage": usage})
}

func (bc *BillingController) Checkout(c *gin.Context) {
	var input CheckoutInput
	if !bindJSON(c, &input) {
		return
	}
	ctx := c.Request.Context()
	wsID := middleware.WorkspaceID(c)

	plan, err := bc.Store.Billing.FindPlan(ctx, input.Plan)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && plan.Code == models.PlanFree) {
		utils.RespondWithError(c, http.StatusBadRequest, "Unknown plan")
		return
	}
	if err != nil {
		bc.respondError(c, err, "")
		return
	}
	if plan.StripePriceID == "" {
		utils.RespondWithError(c, http.StatusNotImplemented, "Billing is not configured for this plan")
		return
	}

	req := billing.CheckoutRequest{WorkspaceID: wsID, Plan: plan.Code, PriceID: plan.StripePriceID}
	if user, err := bc.Store.Users.FindByID(ctx, utils.CurrentUserID(c)); err == nil {
		req.CustomerEmail = user.Email
	}
	if sub, err := bc.Store.Billing.FindSubscription(ctx, wsID); err == nil {
		req.CustomerID = sub.StripeCustomerID
	}

	session, err := bc.Billing.CreateCheckoutSession(ctx, req)
	if errors.Is(err, billing.ErrNotConfigured) {
		utils.RespondWithError(c, http.StatusNotImplemented, "Billing is not configured")
		return
	}
	if err != nil {
		bc.Logger.Error("stripe checkout failed", zap.String("workspace_id", wsID.String()), zap.Error(err))
		utils.RespondWithError(c, http.StatusBadGateway, "Payment provider error")
		return
	}
	c.JSON(http.StatusOK, session)
}

func (bc *BillingController) CancelSubscription(c *gin.Context) {
	ctx := c.Request.Context()
	wsID := middleware.WorkspaceID(c)

	sub, err := bc.Store.Billing.FindSubscription(ctx, wsID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		bc.respondError(c, err, "")
		return
	}
	if sub == nil || sub.StripeSubscriptionID == "" {
		utils.RespondWithError(c, http.StatusConflict, "No paid subscription to cancel")
		return
	}

	err = bc.Billing.CancelSubscription(ctx, sub.StripeSubscriptionID)
	if errors.Is(err, billing.ErrNotConfigured) {
		utils.RespondWithError(c, http.StatusNotImplemented, "Billing is not configured")
		return
	}
	if err != nil {
		bc.Logger.Error("stripe cancel failed", zap.String("workspace_id", wsID.String()), zap.Error(err))
		utils.RespondWithError(c, http.StatusBadGateway, "Payment provider error")
		return
	}

	now := time.Now().UTC()
	sub.PlanCode = models.PlanFree
	sub.Status = models.SubscriptionCanceled
	sub.CanceledAt = &now
	if err := bc.Store.Billing.SaveSubscription(ctx, sub); err != nil {
		bc.respondError(c, err, "")
		return
	}
	c.JSON(http.StatusOK, sub)
}

// StripeWebhook acknowledges every verified event, including replays.
func (bc *BillingController) StripeWebhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Could not read body")
		return
	}
	signature := c.GetHeader("Stripe-Signature")
	if signature == "" {
		utils.RespondWithError(c, http.StatusBadRequest, "Missing Stripe-Signature header")
		return
	}

	evtType, result, err := bc.Webhooks.Handle(c.Request.Context(), payload, signature)
	switch {
	case errors.Is(err, billing.ErrNotConfigured):
		utils.RespondWithError(c, http.StatusServiceUnavailable, "Webhook secret is not configured")
		return
	case errors.Is(err, billing.ErrInvalidSignature):
		metrics.RecordWebhookEvent("unknown", "rejected")
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid signature")
		return
	case err != nil:
		metrics.RecordWebhookEvent(evtType, "error")
		bc.Logger.Error("stripe webhook failed", zap.String("event_type", evtType), zap.Error(err))
		utils.RespondWithError(c, http.StatusInternalServerError, "Webhook processing failed")
		return
	}

	metrics.RecordWebhookEvent(evtType, result)
	status := "ok"
	if result == billing.ResultDuplicate {
		status = "duplicate"
	}
	c.JSON(http.StatusOK, gin.H{"status": status})
}
