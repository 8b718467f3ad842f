package billing

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"bookingdesk-backend/models"
	"bookingdesk-backend/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v79"
	"go.uber.org/zap"
)

const whsec = "whsec_test"

func signedEvent(t *testing.T, id, typ string, object map[string]interface{}) ([]byte, string) {
	t.Helper()
	payload, err := json.Marshal(map[string]interface{}{
		"id":          id,
		"object":      "event",
		"type":        typ,
		"created":     time.Now().Unix(),
		"api_version": stripe.APIVersion,
		"data":        map[string]interface{}{"object": object},
	})
	require.NoError(t, err)
	return payload, sign(payload, time.Now())
}

func sign(payload []byte, at time.Time) string {
	ts := at.Unix()
	mac := hmac.New(sha256.New, []byte(whsec))
	mac.Write([]byte(fmt.Sprintf("%d.%s", ts, payload)))
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func newProcessor(t *testing.T) (*WebhookProcessor, *repository.Store) {
	t.Helper()
	store := repository.NewMemoryStore()
	require.NoError(t, store.Billing.SeedPlans(context.Background(), models.DefaultPlans()))
	return NewWebhookProcessor(store.Billing, whsec, 5*time.Minute, zap.NewNop()), store
}

func TestCheckoutCompletedActivatesPlan(t *testing.T) {
	p, store := newProcessor(t)
	ctx := context.Background()
	wsID := uuid.New()

	payload, sig := signedEvent(t, "evt_checkout", "checkout.session.completed", map[string]interface{}{
		"id":           "cs_1",
		"object":       "checkout.session",
		"customer":     "cus_1",
		"subscription": "sub_1",
		"metadata":     map[string]string{MetaWorkspaceID: wsID.String(), MetaPlan: "pro"},
	})

	typ, result, err := p.Handle(ctx, payload, sig)
	require.NoError(t, err)
	assert.Equal(t, "checkout.session.completed", typ)
	assert.Equal(t, ResultProcessed, result)

	sub, err := store.Billing.FindSubscription(ctx, wsID)
	require.NoError(t, err)
	assert.Equal(t, models.PlanPro, sub.PlanCode)
	assert.Equal(t, models.SubscriptionActive, sub.Status)
	assert.Equal(t, "cus_1", sub.StripeCustomerID)
	assert.Equal(t, "sub_1", sub.StripeSubscriptionID)

	_, result, err = p.Handle(ctx, payload, sig)
	require.NoError(t, err)
	assert.Equal(t, ResultDuplicate, result)
}

func TestSubscriptionLifecycle(t *testing.T) {
	p, store := newProcessor(t)
	ctx := context.Background()
	wsID := uuid.New()
	require.NoError(t, store.Billing.SaveSubscription(ctx, &models.Subscription{
		WorkspaceID: wsID, PlanCode: models.PlanStarter, Status: models.SubscriptionActive,
		StripeSubscriptionID: "sub_9",
	}))

	payload, sig := signedEvent(t, "evt_fail", "invoice.payment_failed", map[string]interface{}{
		"id": "in_1", "object": "invoice", "subscription": "sub_9",
	})
	_, result, err := p.Handle(ctx, payload, sig)
	require.NoError(t, err)
	assert.Equal(t, ResultProcessed, result)
	sub, err := store.Billing.FindSubscription(ctx, wsID)
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionPastDue, sub.Status)

	periodEnd := time.Now().Add(30 * 24 * time.Hour).Unix()
	payload, sig = signedEvent(t, "evt_upd", "customer.subscription.updated", map[string]interface{}{
		"id": "sub_9", "object": "subscription", "status": "active",
		"current_period_start": time.Now().Unix(), "current_period_end": periodEnd,
	})
	_, result, err = p.Handle(ctx, payload, sig)
	require.NoError(t, err)
	assert.Equal(t, ResultProcessed, result)
	sub, err = store.Billing.FindSubscription(ctx, wsID)
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionActive, sub.Status)
	assert.Equal(t, models.PlanStarter, sub.PlanCode, "plan kept when metadata is absent")
	require.NotNil(t, sub.CurrentPeriodEnd)
	assert.Equal(t, periodEnd, sub.CurrentPeriodEnd.Unix())

	payload, sig = signedEvent(t, "evt_del", "customer.subscription.deleted", map[string]interface{}{
		"id": "sub_9", "object": "subscription", "status": "canceled",
	})
	_, _, err = p.Handle(ctx, payload, sig)
	require.NoError(t, err)
	sub, err = store.Billing.FindSubscription(ctx, wsID)
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionCanceled, sub.Status)
	assert.Equal(t, models.PlanFree, sub.PlanCode)
	assert.NotNil(t, sub.CanceledAt)
}

func TestUnhandledEventIsRecordedAndIgnored(t *testing.T) {
	p, _ := newProcessor(t)
	payload, sig := signedEvent(t, "evt_other", "charge.refunded", map[string]interface{}{"id": "ch_1", "object": "charge"})

	_, result, err := p.Handle(context.Background(), payload, sig)
	require.NoError(t, err)
	assert.Equal(t, ResultIgnored, result)

	_, result, err = p.Handle(context.Background(), payload, sig)
	require.NoError(t, err)
	assert.Equal(t, ResultDuplicate, result)
}

func TestSignatureChecks(t *testing.T) {
	p, _ := newProcessor(t)
	payload, _ := signedEvent(t, "evt_sig", "charge.refunded", map[string]interface{}{"id": "ch_1"})

	_, _, err := p.Handle(context.Background(), payload, "t=1,v1=deadbeef")
	assert.ErrorIs(t, err, ErrInvalidSignature)

	stale := sign(payload, time.Now().Add(-time.Hour))
	_, _, err = p.Handle(context.Background(), payload, stale)
	assert.ErrorIs(t, err, ErrInvalidSignature)

	unconfigured := NewWebhookProcessor(repository.NewMemoryStore().Billing, "", 0, zap.NewNop())
	_, _, err = unconfigured.Handle(context.Background(), payload, sign(payload, time.Now()))
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestDisabledClient(t *testing.T) {
	var c Client = Disabled{}
	_, err := c.CreateCheckoutSession(context.Background(), CheckoutRequest{Plan: "pro"})
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.ErrorIs(t, c.CancelSubscription(context.Background(), "sub_1"), ErrNotConfigured)
}
