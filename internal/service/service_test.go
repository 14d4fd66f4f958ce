package service

import (
	"context"
	"sync"
	"testing"

	"studiobook/internal/database"
	"studiobook/internal/domain"
	"studiobook/internal/events"
	"studiobook/internal/models"
	"studiobook/internal/repository"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) CreateHostedSession(ctx context.Context, req domain.HostedSessionRequest) (*models.CheckoutSession, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CheckoutSession), args.Error(1)
}

func (m *mockGateway) RetrieveSession(ctx context.Context, sessionID string) (*domain.SessionStatus, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SessionStatus), args.Error(1)
}

func (m *mockGateway) CreateRefund(ctx context.Context, req domain.RefundRequest) (*domain.RefundResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RefundResult), args.Error(1)
}

// recordingMail captures enqueued emails in place of the mail worker.
type recordingMail struct {
	mu     sync.Mutex
	emails []domain.Email
}

func (m *recordingMail) Enqueue(email domain.Email) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.emails = append(m.emails, email)
	return true
}

func (m *recordingMail) sent() []domain.Email {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Email(nil), m.emails...)
}

func (m *recordingMail) byKind(kind string) []domain.Email {
	var out []domain.Email
	for _, email := range m.sent() {
		if email.Kind == kind {
			out = append(out, email)
		}
	}
	return out
}

func newTestStore(t *testing.T) *database.DB {
	t.Helper()
	logger := zerolog.Nop()
	db, err := database.NewDB(":memory:", &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func newTestReconciler(t *testing.T, store domain.Store) (*ReconcilerService, *recordingMail) {
	t.Helper()
	logger := zerolog.Nop()
	mail := &recordingMail{}
	svc := NewReconcilerService(store, repository.NewMemorySessionLocker(), mail, events.NewEventBus(), &logger)
	return svc, mail
}

func checkoutEvent(sessionID, paymentRef string) *domain.PaymentEvent {
	return &domain.PaymentEvent{
		Kind:             domain.EventCheckoutCompleted,
		SessionID:        sessionID,
		PaymentReference: paymentRef,
		Amount:           399,
		Currency:         "usd",
		CustomerName:     "Ada Lovelace",
		CustomerEmail:    "ada@example.com",
		Draft: &models.BookingDraft{
			ServiceName:   "Indie",
			Date:          "2026-09-14",
			Time:          "10:00",
			CustomerName:  "Ada Lovelace",
			CustomerEmail: "ada@example.com",
			Price:         399,
		},
	}
}
