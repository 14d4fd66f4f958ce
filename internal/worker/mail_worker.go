package worker

import (
	"context"
	"time"

	"studiobook/internal/domain"
	"studiobook/internal/metrics"
	"studiobook/internal/models"

	"github.com/rs/zerolog"
)

// MailWorker drains queued customer emails and delivers them through the
// configured notifier with exponential backoff. Delivery is best effort;
// a dropped email never blocks or fails reconciliation.
type MailWorker struct {
	notifier    domain.Notifier
	retryPolicy RetryPolicy
	queue       chan domain.Email
	logger      *zerolog.Logger
}

func NewMailWorker(notifier domain.Notifier, retry RetryPolicy, logger *zerolog.Logger) *MailWorker {
	return &MailWorker{
		notifier:    notifier,
		retryPolicy: retry.withDefaults(),
		queue:       make(chan domain.Email, models.MailQueueSize),
		logger:      logger,
	}
}

// Enqueue schedules an email for delivery. It never blocks; when the queue
// is full the email is dropped and false returned.
func (w *MailWorker) Enqueue(email domain.Email) bool {
	select {
	case w.queue <- email:
		return true
	default:
		w.logger.Warn().
			Str("kind", email.Kind).
			Str("to", email.To).
			Msg("mail queue full, email dropped")
		metrics.IncEmail(email.Kind, "dropped")
		return false
	}
}

// Start runs the delivery loop until ctx is done. Emails already queued
// when the context is cancelled are abandoned.
func (w *MailWorker) Start(ctx context.Context) {
	w.logger.Info().Msg("mail worker started")
	defer w.logger.Info().Msg("mail worker stopped")

	for {
		select {
		case <-ctx.Done():
			return
		case email := <-w.queue:
			w.deliver(ctx, email)
		}
	}
}

func (w *MailWorker) deliver(ctx context.Context, email domain.Email) {
	var lastErr error
	for attempt := 1; attempt <= w.retryPolicy.MaxRetries; attempt++ {
		if err := w.notifier.Send(ctx, email); err != nil {
			lastErr = err
			delay := w.retryPolicy.NextDelay(attempt)
			w.logger.Warn().Err(err).
				Str("kind", email.Kind).
				Str("to", email.To).
				Int("attempt", attempt).
				Dur("next_delay", delay).
				Msg("email delivery failed")

			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}
			continue
		}

		metrics.IncEmail(email.Kind, "sent")
		return
	}

	w.logger.Error().Err(lastErr).
		Str("kind", email.Kind).
		Str("to", email.To).
		Msg("email delivery abandoned after retries")
	metrics.IncEmail(email.Kind, "failed")
}
