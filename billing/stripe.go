// Package billing talks to Stripe: checkout, cancellation and webhook events.
package billing

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
)

var ErrNotConfigured = errors.New("stripe is not configured")

// Metadata keys stamped on checkout sessions and subscriptions.
const (
	MetaWorkspaceID = "workspace_id"
	MetaPlan        = "plan"
)

type CheckoutRequest struct {
	WorkspaceID   uuid.UUID
	Plan          string
	PriceID       string
	CustomerEmail string
	CustomerID    string
}

type CheckoutSession struct {
	ID  string `json:"sessionId"`
	URL string `json:"url"`
}

// Client is the subset of the Stripe API the service uses.
type Client interface {
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error)
	CancelSubscription(ctx context.Context, subscriptionID string) error
}

// Disabled is used when no Stripe key is configured.
type Disabled struct{}

func (Disabled) CreateCheckoutSession(context.Context, CheckoutRequest) (*CheckoutSession, error) {
	return nil, ErrNotConfigured
}

func (Disabled) CancelSubscription(context.Context, string) error {
	return ErrNotConfigured
}

type StripeClient struct {
	api        *client.API
	successURL string
	cancelURL  string
}

func NewStripeClient(secretKey, successURL, cancelURL string) *StripeClient {
	return &StripeClient{
		api:        client.New(strings.TrimSpace(secretKey), nil),
		successURL: successURL,
		cancelURL:  cancelURL,
	}
}

func (s *StripeClient) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	if req.PriceID == "" {
		return nil, ErrNotConfigured
	}
	meta := map[string]string{
		MetaWorkspaceID: req.WorkspaceID.String(),
		MetaPlan:        req.Plan,
	}
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		SuccessURL:        stripe.String(s.successURL),
		CancelURL:         stripe.String(s.cancelURL),
		ClientReferenceID: stripe.String(req.WorkspaceID.String()),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(req.PriceID),
				Quantity: stripe.Int64(1),
			},
		},
		Metadata: meta,
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: meta,
		},
	}
	if req.CustomerID != "" {
		params.Customer = stripe.String(req.CustomerID)
	} else if req.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(req.CustomerEmail)
	}
	params.Context = ctx

	sess, err := s.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, err
	}
	return &CheckoutSession{ID: sess.ID, URL: sess.URL}, nil
}

func (s *StripeClient) CancelSubscription(ctx context.Context, subscriptionID string) error {
	params := &stripe.SubscriptionCancelParams{}
	params.Context = ctx
	_, err := s.api.Subscriptions.Cancel(subscriptionID, params)
	return err
}
