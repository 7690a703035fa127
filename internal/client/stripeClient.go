package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"elearning-backend/internal/config"

	"github.com/stripe/stripe-go/v81"
	stripeapi "github.com/stripe/stripe-go/v81/client"
	"github.com/stripe/stripe-go/v81/webhook"
)

type stripeGatewayImpl struct {
	api           *stripeapi.API
	webhookSecret string
}

// NewStripeGateway builds a gateway on a private API client. backends may be
// nil to talk to the real Stripe API.
func NewStripeGateway(cfg *config.Stripe, backends *stripe.Backends) PaymentGateway {
	api := &stripeapi.API{}
	api.Init(cfg.SecretKey, backends)

	return &stripeGatewayImpl{
		api:           api,
		webhookSecret: cfg.WebhookSecret,
	}
}

func (g *stripeGatewayImpl) CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:      stripe.Int64(req.AmountMinorUnits),
		Currency:    stripe.String(strings.ToLower(req.Currency)),
		Description: stripe.String(req.Description),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}
	if req.CustomerName != "" {
		params.Shipping = &stripe.ShippingDetailsParams{
			Name: stripe.String(req.CustomerName),
			Address: &stripe.AddressParams{
				Line1:      stripe.String("Digital Service"),
				City:       stripe.String("N/A"),
				PostalCode: stripe.String("000000"),
				Country:    stripe.String("IN"),
			},
		}
	}

	pi, err := g.api.PaymentIntents.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe create payment intent: %w", err)
	}

	intent := intentFromStripe(pi)
	if err := validateIntent(intent); err != nil {
		return nil, err
	}
	return intent, nil
}

func (g *stripeGatewayImpl) RetrieveIntent(ctx context.Context, intentID string) (*Intent, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	pi, err := g.api.PaymentIntents.Get(intentID, params)
	if err != nil {
		return nil, fmt.Errorf("stripe retrieve payment intent: %w", err)
	}

	intent := intentFromStripe(pi)
	if err := validateIntent(intent); err != nil {
		return nil, err
	}
	return intent, nil
}

func (g *stripeGatewayImpl) ParseWebhook(ctx context.Context, headers http.Header, payload []byte) (*WebhookEvent, error) {
	event, err := webhook.ConstructEventWithOptions(payload, headers.Get("Stripe-Signature"), g.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, fmt.Errorf("verify stripe webhook: %w", err)
	}

	out := &WebhookEvent{
		ID:   event.ID,
		Type: string(event.Type),
	}
	if !strings.HasPrefix(out.Type, "payment_intent.") || event.Data == nil {
		return out, nil
	}

	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		return nil, fmt.Errorf("decode stripe payment intent: %w", err)
	}
	out.IntentID = pi.ID
	out.Succeeded = event.Type == stripe.EventTypePaymentIntentSucceeded

	return out, nil
}

func intentFromStripe(pi *stripe.PaymentIntent) *Intent {
	if pi == nil {
		return nil
	}
	return &Intent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       stripeIntentStatus(pi.Status),
		RawStatus:    string(pi.Status),
		Amount:       pi.Amount,
		Currency:     string(pi.Currency),
	}
}

func stripeIntentStatus(status stripe.PaymentIntentStatus) IntentStatus {
	switch status {
	case stripe.PaymentIntentStatusSucceeded:
		return IntentStatusSucceeded
	case stripe.PaymentIntentStatusCanceled:
		return IntentStatusFailed
	case stripe.PaymentIntentStatusRequiresPaymentMethod,
		stripe.PaymentIntentStatusRequiresConfirmation,
		stripe.PaymentIntentStatusRequiresAction,
		stripe.PaymentIntentStatusRequiresCapture,
		stripe.PaymentIntentStatusProcessing:
		return IntentStatusPending
	default:
		return IntentStatus("")
	}
}
