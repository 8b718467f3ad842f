package billing

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"bookingdesk-backend/models"
	"bookingdesk-backend/repository"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/webhook"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

const provider = "stripe"

var ErrInvalidSignature = errors.New("invalid webhook signature")

// Webhook outcomes.
const (
	ResultProcessed = "processed"
	ResultDuplicate = "duplicate"
	ResultIgnored   = "ignored"
)

// WebhookProcessor verifies Stripe events and applies them to local
// subscriptions. Each event id is applied at most once.
type WebhookProcessor struct {
	billing   repository.BillingRepository
	secret    string
	tolerance time.Duration
	logger    *zap.Logger
}

func NewWebhookProcessor(billing repository.BillingRepository, secret string, tolerance time.Duration, logger *zap.Logger) *WebhookProcessor {
	if tolerance <= 0 {
		tolerance = webhook.DefaultTolerance
	}
	return &WebhookProcessor{billing: billing, secret: secret, tolerance: tolerance, logger: logger}
}

func (p *WebhookProcessor) Configured() bool {
	return strings.TrimSpace(p.secret) != ""
}

// Handle verifies payload against the Stripe-Signature header and applies it.
// It returns the event type and one of the Result constants.
func (p *WebhookProcessor) Handle(ctx context.Context, payload []byte, signature string) (string, string, error) {
	if !p.Configured() {
		return "", "", ErrNotConfigured
	}
	evt, err := webhook.ConstructEventWithTolerance(payload, signature, p.secret, p.tolerance)
	if err != nil {
		p.logger.Warn("stripe webhook rejected", zap.Error(err))
		return "", "", ErrInvalidSignature
	}
	evtType := string(evt.Type)
	occurredAt := time.Unix(evt.Created, 0).UTC()

	p.logger.Info("billing provider event received",
		zap.String("provider", provider),
		zap.String("provider_event_id", evt.ID),
		zap.String("event_type", evtType),
		zap.Time("occurred_at", occurredAt))

	result := ResultIgnored
	err = p.billing.InTx(ctx, func(tx repository.BillingRepository) error {
		if err := tx.RecordWebhookEvent(ctx, &models.WebhookEvent{
			Provider:    provider,
			EventID:     evt.ID,
			EventType:   evtType,
			Payload:     datatypes.JSON(payload),
			ProcessedAt: time.Now().UTC(),
		}); err != nil {
			return err
		}
		applied, err := p.apply(ctx, tx, evt, occurredAt)
		if err != nil {
			return err
		}
		if applied {
			result = ResultProcessed
		}
		return nil
	})
	if errors.Is(err, repository.ErrDuplicate) {
		p.logger.Info("billing provider event duplicate ignored", zap.String("provider_event_id", evt.ID))
		return evtType, ResultDuplicate, nil
	}
	if err != nil {
		return evtType, "", err
	}
	return evtType, result, nil
}

func (p *WebhookProcessor) apply(ctx context.Context, tx repository.BillingRepository, evt stripe.Event, at time.Time) (bool, error) {
	switch evt.Type {
	case "checkout.session.completed":
		var session stripe.CheckoutSession
		if err := json.Unmarshal(evt.Data.Raw, &session); err != nil {
			p.logger.Error("stripe: invalid checkout session payload", zap.Error(err))
			return false, nil
		}
		wsID, plan, ok := p.metadata(session.Metadata)
		if !ok {
			return false, nil
		}
		sub, err := p.current(ctx, tx, wsID)
		if err != nil {
			return false, err
		}
		if session.Customer != nil {
			sub.StripeCustomerID = session.Customer.ID
		}
		if session.Subscription != nil {
			sub.StripeSubscriptionID = session.Subscription.ID
		}
		return p.activate(ctx, tx, sub, plan, nil, nil)

	case "customer.subscription.created", "customer.subscription.updated":
		var ss stripe.Subscription
		if err := json.Unmarshal(evt.Data.Raw, &ss); err != nil {
			p.logger.Error("stripe: invalid subscription payload", zap.Error(err))
			return false, nil
		}
		sub, err := p.forStripeSubscription(ctx, tx, &ss)
		if err != nil || sub == nil {
			return false, err
		}
		start, end := periods(&ss)
		switch ss.Status {
		case stripe.SubscriptionStatusActive, stripe.SubscriptionStatusTrialing:
			plan := strings.ToLower(strings.TrimSpace(ss.Metadata[MetaPlan]))
			if plan == "" {
				plan = sub.PlanCode
			}
			if _, err := p.activate(ctx, tx, sub, plan, start, end); err != nil {
				return false, err
			}
			if ss.Status == stripe.SubscriptionStatusTrialing {
				sub.Status = models.SubscriptionTrialing
				return true, tx.SaveSubscription(ctx, sub)
			}
			return true, nil
		case stripe.SubscriptionStatusPastDue:
			sub.Status = models.SubscriptionPastDue
			sub.CurrentPeriodStart, sub.CurrentPeriodEnd = start, end
			return true, tx.SaveSubscription(ctx, sub)
		case stripe.SubscriptionStatusCanceled, stripe.SubscriptionStatusUnpaid:
			return true, p.cancel(ctx, tx, sub, at)
		}
		return false, nil

	case "customer.subscription.deleted":
		var ss stripe.Subscription
		if err := json.Unmarshal(evt.Data.Raw, &ss); err != nil {
			p.logger.Error("stripe: invalid subscription payload", zap.Error(err))
			return false, nil
		}
		sub, err := p.forStripeSubscription(ctx, tx, &ss)
		if err != nil || sub == nil {
			return false, err
		}
		return true, p.cancel(ctx, tx, sub, at)

	case "invoice.payment_failed":
		var inv stripe.Invoice
		if err := json.Unmarshal(evt.Data.Raw, &inv); err != nil {
			p.logger.Error("stripe: invalid invoice payload", zap.Error(err))
			return false, nil
		}
		if inv.Subscription == nil || inv.Subscription.ID == "" {
			return false, nil
		}
		sub, err := tx.FindSubscriptionByStripeID(ctx, inv.Subscription.ID)
		if errors.Is(err, repository.ErrNotFound) {
			p.logger.Warn("stripe: payment failure for unknown subscription", zap.String("subscription_id", inv.Subscription.ID))
			return false, nil
		}
		if err != nil {
			return false, err
		}
		sub.Status = models.SubscriptionPastDue
		return true, tx.SaveSubscription(ctx, sub)
	}
	return false, nil
}

func (p *WebhookProcessor) metadata(meta map[string]string) (uuid.UUID, string, bool) {
	wsID, err := uuid.Parse(strings.TrimSpace(meta[MetaWorkspaceID]))
	plan := strings.ToLower(strings.TrimSpace(meta[MetaPlan]))
	if err != nil || plan == "" {
		p.logger.Warn("stripe: missing metadata (workspace_id/plan)")
		return uuid.Nil, "", false
	}
	return wsID, plan, true
}

// current loads the workspace subscription or starts a fresh one.
func (p *WebhookProcessor) current(ctx context.Context, tx repository.BillingRepository, wsID uuid.UUID) (*models.Subscription, error) {
	sub, err := tx.FindSubscription(ctx, wsID)
	if errors.Is(err, repository.ErrNotFound) {
		return &models.Subscription{WorkspaceID: wsID, PlanCode: models.PlanFree, Status: models.SubscriptionActive}, nil
	}
	return sub, err
}

// forStripeSubscription resolves the local row by workspace metadata first,
// then by the Stripe subscription id. A nil result means the event is unknown.
func (p *WebhookProcessor) forStripeSubscription(ctx context.Context, tx repository.BillingRepository, ss *stripe.Subscription) (*models.Subscription, error) {
	var sub *models.Subscription
	if wsID, err := uuid.Parse(strings.TrimSpace(ss.Metadata[MetaWorkspaceID])); err == nil {
		s, err := p.current(ctx, tx, wsID)
		if err != nil {
			return nil, err
		}
		sub = s
	} else {
		s, err := tx.FindSubscriptionByStripeID(ctx, ss.ID)
		if errors.Is(err, repository.ErrNotFound) {
			p.logger.Warn("stripe: subscription without workspace metadata", zap.String("subscription_id", ss.ID))
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		sub = s
	}
	sub.StripeSubscriptionID = ss.ID
	if ss.Customer != nil && ss.Customer.ID != "" {
		sub.StripeCustomerID = ss.Customer.ID
	}
	return sub, nil
}

func (p *WebhookProcessor) activate(ctx context.Context, tx repository.BillingRepository, sub *models.Subscription, plan string, start, end *time.Time) (bool, error) {
	if _, err := tx.FindPlan(ctx, plan); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			p.logger.Warn("stripe: unknown plan in metadata", zap.String("plan", plan))
			return false, nil
		}
		return false, err
	}
	sub.PlanCode = plan
	sub.Status = models.SubscriptionActive
	sub.CanceledAt = nil
	if start != nil {
		sub.CurrentPeriodStart = start
	}
	if end != nil {
		sub.CurrentPeriodEnd = end
	}
	return true, tx.SaveSubscription(ctx, sub)
}

func (p *WebhookProcessor) cancel(ctx context.Context, tx repository.BillingRepository, sub *models.Subscription, at time.Time) error {
	sub.PlanCode = models.PlanFree
	sub.Status = models.SubscriptionCanceled
	sub.CanceledAt = &at
	return tx.SaveSubscription(ctx, sub)
}

func periods(ss *stripe.Subscription) (*time.Time, *time.Time) {
	var start, end *time.Time
	if ss.CurrentPeriodStart > 0 {
		t := time.Unix(ss.CurrentPeriodStart, 0).UTC()
		start = &t
	}
	if ss.CurrentPeriodEnd > 0 {
		t := time.Unix(ss.CurrentPeriodEnd, 0).UTC()
		end = &t
	}
	return start, end
}
