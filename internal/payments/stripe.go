package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"studiobook/internal/domain"
	"studiobook/internal/models"

	"github.com/rs/zerolog"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
	"github.com/stripe/stripe-go/v82/webhook"
)

// metadataDraftKey carries the serialized booking draft on the hosted
// session so the webhook can reconstruct the booking without a second
// round-trip.
const metadataDraftKey = "bookingData"

// StripeGateway implements domain.PaymentGateway and domain.WebhookParser
// against the Stripe API.
type StripeGateway struct {
	api           *client.API
	webhookSecret string
	logger        *zerolog.Logger
}

func NewStripeGateway(secretKey, webhookSecret string, timeout time.Duration, logger *zerolog.Logger) *StripeGateway {
	var backends *stripe.Backends
	if timeout > 0 {
		backends = stripe.NewBackends(&http.Client{Timeout: timeout})
	}
	api := &client.API{}
	api.Init(secretKey, backends)
	return &StripeGateway{api: api, webhookSecret: webhookSecret, logger: logger}
}

func (g *StripeGateway) CreateHostedSession(ctx context.Context, req domain.HostedSessionRequest) (*models.CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(req.Currency),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name:        stripe.String(req.ProductName),
						Description: stripe.String(req.Description),
					},
					UnitAmount: stripe.Int64(req.AmountCents),
				},
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(req.SuccessURL),
		CancelURL:  stripe.String(req.CancelURL),
	}
	params.Context = ctx
	if req.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(req.CustomerEmail)
	}
	for key, value := range req.Metadata {
		params.AddMetadata(key, value)
	}

	sess, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrPaymentSession, err)
	}

	return &models.CheckoutSession{SessionID: sess.ID, RedirectURL: sess.URL}, nil
}

func (g *StripeGateway) RetrieveSession(ctx context.Context, sessionID string) (*domain.SessionStatus, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx

	sess, err := g.api.CheckoutSessions.Get(sessionID, params)
	if err != nil {
		return nil, fmt.Errorf("%w: retrieve session %s: %v", domain.ErrNotFound, sessionID, err)
	}

	status := &domain.SessionStatus{
		SessionID:     sess.ID,
		PaymentStatus: string(sess.PaymentStatus),
		Metadata:      sess.Metadata,
	}
	if sess.PaymentIntent != nil {
		status.PaymentReference = sess.PaymentIntent.ID
	}
	if sess.CustomerDetails != nil {
		status.CustomerEmail = sess.CustomerDetails.Email
	}
	return status, nil
}

func (g *StripeGateway) CreateRefund(ctx context.Context, req domain.RefundRequest) (*domain.RefundResult, error) {
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(req.PaymentReference),
		Amount:        stripe.Int64(req.AmountCents),
		Reason:        stripe.String(string(stripe.RefundReasonRequestedByCustomer)),
	}
	params.Context = ctx
	for key, value := range req.Metadata {
		params.AddMetadata(key, value)
	}

	refund, err := g.api.Refunds.New(params)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrPaymentProcessing, err)
	}

	return &domain.RefundResult{
		RefundID:    refund.ID,
		AmountCents: refund.Amount,
		Status:      string(refund.Status),
	}, nil
}

// ParseEvent verifies the webhook signature against the shared secret and
// normalizes the event. Event types outside the reconciliation set yield
// (nil, nil) so the webhook can acknowledge them without processing.
func (g *StripeGateway) ParseEvent(payload []byte, signature string) (*domain.PaymentEvent, error) {
	event, err := webhook.ConstructEvent(payload, signature, g.webhookSecret)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSignature, err)
	}

	switch string(event.Type) {
	case domain.EventCheckoutCompleted:
		return normalizeCheckoutCompleted(event.Data.Raw, g.logger)
	case domain.EventPaymentSucceeded, domain.EventPaymentFailed:
		return normalizePaymentIntent(string(event.Type), event.Data.Raw)
	case domain.EventChargeRefunded:
		return normalizeChargeRefunded(event.Data.Raw)
	default:
		g.logger.Debug().Str("type", string(event.Type)).Msg("ignoring unhandled webhook event type")
		return nil, nil
	}
}

func normalizeCheckoutCompleted(raw json.RawMessage, logger *zerolog.Logger) (*domain.PaymentEvent, error) {
	var sess stripe.CheckoutSession
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, fmt.Errorf("decode checkout session: %w", err)
	}

	ev := &domain.PaymentEvent{
		Kind:      domain.EventCheckoutCompleted,
		SessionID: sess.ID,
		Amount:    float64(sess.AmountTotal) / 100,
		Currency:  string(sess.Currency),
	}
	if sess.PaymentIntent != nil {
		ev.PaymentReference = sess.PaymentIntent.ID
	}
	if sess.CustomerDetails != nil {
		ev.CustomerName = sess.CustomerDetails.Name
		ev.CustomerEmail = sess.CustomerDetails.Email
		ev.CustomerPhone = sess.CustomerDetails.Phone
	}

	if rawDraft, ok := sess.Metadata[metadataDraftKey]; ok {
		var draft models.BookingDraft
		if err := json.Unmarshal([]byte(rawDraft), &draft); err != nil {
			logger.Warn().Err(err).Str("session_id", sess.ID).Msg("unreadable booking draft in session metadata")
		} else {
			ev.Draft = &draft
		}
	}
	return ev, nil
}

func normalizePaymentIntent(kind string, raw json.RawMessage) (*domain.PaymentEvent, error) {
	var intent stripe.PaymentIntent
	if err := json.Unmarshal(raw, &intent); err != nil {
		return nil, fmt.Errorf("decode payment intent: %w", err)
	}

	return &domain.PaymentEvent{
		Kind:             kind,
		PaymentReference: intent.ID,
		Amount:           float64(intent.Amount) / 100,
		Currency:         string(intent.Currency),
	}, nil
}

func normalizeChargeRefunded(raw json.RawMessage) (*domain.PaymentEvent, error) {
	var charge stripe.Charge
	if err := json.Unmarshal(raw, &charge); err != nil {
		return nil, fmt.Errorf("decode charge: %w", err)
	}

	ev := &domain.PaymentEvent{
		Kind:     domain.EventChargeRefunded,
		Amount:   float64(charge.AmountRefunded) / 100,
		Currency: string(charge.Currency),
	}
	if charge.PaymentIntent != nil {
		ev.PaymentReference = charge.PaymentIntent.ID
	}
	return ev, nil
}

// DraftMetadata serializes a booking draft for session metadata.
func DraftMetadata(draft models.BookingDraft) (map[string]string, error) {
	raw, err := json.Marshal(draft)
	if err != nil {
		return nil, fmt.Errorf("marshal booking draft: %w", err)
	}
	return map[string]string{metadataDraftKey: string(raw)}, nil
}
