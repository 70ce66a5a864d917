// Package reconcile keeps local subscription state in sync with the payment
// provider by processing its webhook events.
package reconcile

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/osoriolabs/lawdesk/internal/lib/sl"
	"github.com/osoriolabs/lawdesk/internal/metrics"
	"github.com/osoriolabs/lawdesk/internal/models"
	"github.com/osoriolabs/lawdesk/internal/paymentprovider"
)

// SubscriptionStore persists subscription status changes.
type SubscriptionStore interface {
	UpdateUserSubscriptionStatus(ctx context.Context, userUID, status, customerID, subscriptionID string) error
	GetUser(ctx context.Context, userUID string) (*models.User, error)
}

// ProviderClient re-fetches provider objects when an event payload does not
// carry the tenant metadata.
type ProviderClient interface {
	GetSubscription(ctx context.Context, subscriptionID string) (*paymentprovider.Subscription, error)
}

// Notifier delivers user-facing notifications. Delivery is best effort, a
// failed notification never fails the event.
type Notifier interface {
	SendWelcome(ctx context.Context, n models.WelcomeNotification) error
}

// CacheInvalidator drops cached subscription snapshots after a change.
type CacheInvalidator interface {
	InvalidateSubscription(userUID string)
}

// ReconcileService maps provider webhook events to subscription status
// updates. Events are idempotent: replaying one re-applies the same status.
type ReconcileService struct {
	store    SubscriptionStore
	provider ProviderClient
	notifier Notifier
	cache    CacheInvalidator
	log      *slog.Logger
}

func New(log *slog.Logger, store SubscriptionStore, provider ProviderClient, notifier Notifier, cache CacheInvalidator) *ReconcileService {
	return &ReconcileService{
		store:    store,
		provider: provider,
		notifier: notifier,
		cache:    cache,
		log:      log,
	}
}

// ProcessEvent applies a single webhook event and records its outcome.
//
// Events without a resolvable tenant id are dropped with a log line and a
// nil error: replying non-2xx would only make the provider redeliver a
// payload that can never be attributed. Storage failures are returned so the
// handler replies 500 and the provider retries.
func (s *ReconcileService) ProcessEvent(ctx context.Context, event *paymentprovider.Event) error {
	const op = "reconcile.ProcessEvent"
	log := s.log.With(slog.String("op", op), slog.String("event_id", event.ID), slog.String("event_type", event.Type))

	outcome, err := s.applyEvent(ctx, log, event)
	if err != nil {
		metrics.RecordWebhookEvent(event.Type, metrics.OutcomeFailed)
		return err
	}
	metrics.RecordWebhookEvent(event.Type, outcome)
	return nil
}

// applyEvent dispatches on the event type. A created subscription is
// recorded active and a deleted one inactive regardless of the provider's
// own status field; only updates consult it.
func (s *ReconcileService) applyEvent(ctx context.Context, log *slog.Logger, event *paymentprovider.Event) (string, error) {
	switch event.Type {
	case paymentprovider.EventCheckoutCompleted:
		return s.handleCheckoutCompleted(ctx, log, event)
	case paymentprovider.EventSubscriptionCreated:
		return s.applySubscriptionStatus(ctx, log, event, models.SubscriptionStatusActive)
	case paymentprovider.EventSubscriptionUpdated:
		return s.handleSubscriptionChanged(ctx, log, event)
	case paymentprovider.EventSubscriptionDeleted:
		return s.applySubscriptionStatus(ctx, log, event, models.SubscriptionStatusInactive)
	case paymentprovider.EventInvoicePaySucceeded:
		return s.handleInvoice(ctx, log, event, models.SubscriptionStatusActive)
	case paymentprovider.EventInvoicePayFailed:
		return s.handleInvoice(ctx, log, event, models.SubscriptionStatusInactive)
	default:
		log.Info("ignored webhook event")
		return metrics.OutcomeIgnored, nil
	}
}

func (s *ReconcileService) handleCheckoutCompleted(ctx context.Context, log *slog.Logger, event *paymentprovider.Event) (string, error) {
	const op = "reconcile.handleCheckoutCompleted"

	var session paymentprovider.CheckoutSession
	if err := json.Unmarshal(event.Data.Object, &session); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	userUID := session.Metadata[paymentprovider.MetadataUserUID]
	if userUID == "" {
		log.Warn("checkout session without tenant metadata, dropping event",
			slog.String("session_id", session.ID))
		return metrics.OutcomeDropped, nil
	}

	if err := s.store.UpdateUserSubscriptionStatus(ctx, userUID,
		models.SubscriptionStatusActive, session.Customer, session.Subscription); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	s.cache.InvalidateSubscription(userUID)

	s.sendWelcome(ctx, log, userUID)
	return metrics.OutcomeProcessed, nil
}

// applySubscriptionStatus writes a status implied by the event type itself,
// ignoring the status field of the payload.
func (s *ReconcileService) applySubscriptionStatus(ctx context.Context, log *slog.Logger, event *paymentprovider.Event, status string) (string, error) {
	const op = "reconcile.applySubscriptionStatus"

	var sub paymentprovider.Subscription
	if err := json.Unmarshal(event.Data.Object, &sub); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	userUID := sub.Metadata[paymentprovider.MetadataUserUID]
	if userUID == "" {
		log.Warn("subscription event without tenant metadata, dropping event",
			slog.String("subscription_id", sub.ID))
		return metrics.OutcomeDropped, nil
	}

	if err := s.store.UpdateUserSubscriptionStatus(ctx, userUID, status, sub.Customer, sub.ID); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	s.cache.InvalidateSubscription(userUID)
	return metrics.OutcomeProcessed, nil
}

func (s *ReconcileService) handleSubscriptionChanged(ctx context.Context, log *slog.Logger, event *paymentprovider.Event) (string, error) {
	const op = "reconcile.handleSubscriptionChanged"

	var sub paymentprovider.Subscription
	if err := json.Unmarshal(event.Data.Object, &sub); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	userUID := sub.Metadata[paymentprovider.MetadataUserUID]
	if userUID == "" {
		log.Warn("subscription event without tenant metadata, dropping event",
			slog.String("subscription_id", sub.ID))
		return metrics.OutcomeDropped, nil
	}

	status := mapProviderStatus(sub.Status)
	if err := s.store.UpdateUserSubscriptionStatus(ctx, userUID, status, sub.Customer, sub.ID); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	s.cache.InvalidateSubscription(userUID)
	return metrics.OutcomeProcessed, nil
}

// handleInvoice resolves the tenant by re-fetching the subscription, since
// invoice payloads carry no metadata of their own.
func (s *ReconcileService) handleInvoice(ctx context.Context, log *slog.Logger, event *paymentprovider.Event, status string) (string, error) {
	const op = "reconcile.handleInvoice"

	var invoice paymentprovider.Invoice
	if err := json.Unmarshal(event.Data.Object, &invoice); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	if invoice.Subscription == "" {
		log.Warn("invoice without subscription reference, dropping event",
			slog.String("invoice_id", invoice.ID))
		return metrics.OutcomeDropped, nil
	}

	sub, err := s.provider.GetSubscription(ctx, invoice.Subscription)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	userUID := sub.Metadata[paymentprovider.MetadataUserUID]
	if userUID == "" {
		log.Warn("subscription without tenant metadata, dropping event",
			slog.String("subscription_id", sub.ID))
		return metrics.OutcomeDropped, nil
	}

	if err := s.store.UpdateUserSubscriptionStatus(ctx, userUID, status, invoice.Customer, invoice.Subscription); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	s.cache.InvalidateSubscription(userUID)
	return metrics.OutcomeProcessed, nil
}

func (s *ReconcileService) sendWelcome(ctx context.Context, log *slog.Logger, userUID string) {
	user, err := s.store.GetUser(ctx, userUID)
	if err != nil {
		log.Warn("failed to load user for welcome notification", sl.Err(err))
		return
	}
	n := models.WelcomeNotification{
		Email:    user.Email,
		Username: user.Username,
		Plan:     user.Plan,
	}
	if err := s.notifier.SendWelcome(ctx, n); err != nil {
		log.Warn("failed to send welcome notification", sl.Err(err))
	}
}

// mapProviderStatus folds the provider's subscription statuses onto the
// local ones.
func mapProviderStatus(providerStatus string) string {
	switch providerStatus {
	case "active", "trialing":
		return models.SubscriptionStatusActive
	case "past_due", "canceled", "unpaid", "incomplete", "incomplete_expired", "paused":
		return models.SubscriptionStatusInactive
	default:
		return models.SubscriptionStatusInactive
	}
}
