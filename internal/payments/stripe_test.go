package payments

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"
	"time"

	"studiobook/internal/domain"
	"studiobook/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testWebhookSecret = "whsec_test_secret"

func signPayload(t *testing.T, payload []byte, secret string) string {
	t.Helper()
	ts := time.Now().Unix()
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", ts, payload)
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func testGateway() *StripeGateway {
	logger := zerolog.Nop()
	return NewStripeGateway("sk_test_key", testWebhookSecret, 0, &logger)
}

func TestParseEvent_CheckoutCompleted(t *testing.T) {
	payload := []byte(`{
		"id": "evt_1",
		"api_version": "2025-07-30.basil",
		"type": "checkout.session.completed",
		"data": {
			"object": {
				"id": "cs_test_123",
				"object": "checkout.session",
				"amount_total": 39900,
				"currency": "usd",
				"payment_intent": "pi_test_456",
				"customer_details": {
					"name": "Ada Lovelace",
					"email": "ada@example.com",
					"phone": "+15550001111"
				},
				"metadata": {
					"bookingData": "{\"serviceName\":\"Indie\",\"date\":\"2026-09-14\",\"time\":\"10:00\",\"customerName\":\"Ada Lovelace\",\"customerEmail\":\"ada@example.com\",\"price\":399}"
				}
			}
		}
	}`)

	ev, err := testGateway().ParseEvent(payload, signPayload(t, payload, testWebhookSecret))
	require.NoError(t, err)
	require.NotNil(t, ev)

	assert.Equal(t, domain.EventCheckoutCompleted, ev.Kind)
	assert.Equal(t, "cs_test_123", ev.SessionID)
	assert.Equal(t, "pi_test_456", ev.PaymentReference)
	assert.Equal(t, 399.0, ev.Amount)
	assert.Equal(t, "usd", ev.Currency)
	assert.Equal(t, "ada@example.com", ev.CustomerEmail)

	require.NotNil(t, ev.Draft)
	assert.Equal(t, "Indie", ev.Draft.ServiceName)
	assert.Equal(t, "2026-09-14", ev.Draft.Date)
	assert.Equal(t, "10:00", ev.Draft.Time)
	assert.Equal(t, 399.0, ev.Draft.Price)
}

func TestParseEvent_PaymentIntentSucceeded(t *testing.T) {
	payload := []byte(`{
		"id": "evt_2",
		"api_version": "2025-07-30.basil",
		"type": "payment_intent.succeeded",
		"data": {
			"object": {
				"id": "pi_test_456",
				"object": "payment_intent",
				"amount": 39900,
				"currency": "usd"
			}
		}
	}`)

	ev, err := testGateway().ParseEvent(payload, signPayload(t, payload, testWebhookSecret))
	require.NoError(t, err)
	require.NotNil(t, ev)

	assert.Equal(t, domain.EventPaymentSucceeded, ev.Kind)
	assert.Equal(t, "pi_test_456", ev.PaymentReference)
	assert.Equal(t, 399.0, ev.Amount)
}

func TestParseEvent_ChargeRefunded(t *testing.T) {
	payload := []byte(`{
		"id": "evt_3",
		"api_version": "2025-07-30.basil",
		"type": "charge.refunded",
		"data": {
			"object": {
				"id": "ch_test_789",
				"object": "charge",
				"amount_refunded": 19950,
				"currency": "usd",
				"payment_intent": "pi_test_456"
			}
		}
	}`)

	ev, err := testGateway().ParseEvent(payload, signPayload(t, payload, testWebhookSecret))
	require.NoError(t, err)
	require.NotNil(t, ev)

	assert.Equal(t, domain.EventChargeRefunded, ev.Kind)
	assert.Equal(t, "pi_test_456", ev.PaymentReference)
	assert.Equal(t, 199.50, ev.Amount)
}

func TestParseEvent_UnhandledTypeIgnored(t *testing.T) {
	payload := []byte(`{
		"id": "evt_4",
		"api_version": "2025-07-30.basil",
		"type": "invoice.paid",
		"data": {"object": {"id": "in_test_1", "object": "invoice"}}
	}`)

	ev, err := testGateway().ParseEvent(payload, signPayload(t, payload, testWebhookSecret))
	require.NoError(t, err)
	assert.Nil(t, ev)
}

func TestParseEvent_BadSignature(t *testing.T) {
	payload := []byte(`{"id": "evt_5", "type": "payment_intent.succeeded", "data": {"object": {}}}`)

	ev, err := testGateway().ParseEvent(payload, signPayload(t, payload, "whsec_wrong"))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrSignature)
	assert.Nil(t, ev)
}

func TestParseEvent_CorruptDraftMetadataStillYieldsEvent(t *testing.T) {
	payload := []byte(`{
		"id": "evt_6",
		"api_version": "2025-07-30.basil",
		"type": "checkout.session.completed",
		"data": {
			"object": {
				"id": "cs_test_999",
				"object": "checkout.session",
				"amount_total": 10000,
				"currency": "usd",
				"metadata": {"bookingData": "{not json"}
			}
		}
	}`)

	ev, err := testGateway().ParseEvent(payload, signPayload(t, payload, testWebhookSecret))
	require.NoError(t, err)
	require.NotNil(t, ev)
	assert.Nil(t, ev.Draft)
	assert.Equal(t, "cs_test_999", ev.SessionID)
}

func TestDraftMetadata_RoundTrip(t *testing.T) {
	meta, err := DraftMetadata(models.BookingDraft{
		ServiceName:   "Indie",
		Date:          "2026-09-14",
		Time:          "10:00",
		CustomerName:  "Ada Lovelace",
		CustomerEmail: "ada@example.com",
		Price:         399,
	})
	require.NoError(t, err)
	assert.Contains(t, meta[metadataDraftKey], `"serviceName":"Indie"`)
	assert.Contains(t, meta[metadataDraftKey], `"price":399`)
}
