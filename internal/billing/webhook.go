package billing

import (
	"context"
	"encoding/json"
	"time"

	"dartsight/internal/common/errors"
	"dartsight/internal/common/logger"
	"dartsight/internal/common/metrics"
	"dartsight/internal/profile"

	"github.com/redis/go-redis/v9"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"
)

// Notifier delivers user-facing payment notifications. Kept as an interface
// so the webhook dispatcher does not depend on the email transport.
type Notifier interface {
	PaymentFailed(ctx context.Context, email string) error
}

// dedupTTL bounds how long processed event IDs are remembered. Stripe
// retries failed deliveries for up to three days, but replays of an already
// acknowledged event arrive within minutes.
const dedupTTL = 24 * time.Hour

// WebhookDispatcher verifies Stripe webhook signatures and applies each
// event type's profile update. Events Stripe redelivers are acknowledged
// without being re-applied, tracked by event ID in Redis.
type WebhookDispatcher struct {
	secret     string
	planLimits map[string]int
	profiles   profile.Store
	redis      *redis.Client
	notifier   Notifier
	logger     logger.Logger
}

func NewWebhookDispatcher(secret string, planLimits map[string]int, profiles profile.Store, rdb *redis.Client, notifier Notifier, log logger.Logger) *WebhookDispatcher {
	return &WebhookDispatcher{
		secret:     secret,
		planLimits: planLimits,
		profiles:   profiles,
		redis:      rdb,
		notifier:   notifier,
		logger:     log.WithFields(map[string]interface{}{"component": "billing-webhook"}),
	}
}

// HandleEvent verifies the signature, deduplicates, and dispatches. A nil
// return means the event may be acknowledged with 200.
func (d *WebhookDispatcher) HandleEvent(ctx context.Context, payload []byte, signature string) error {
	event, err := webhook.ConstructEvent(payload, signature, d.secret)
	if err != nil {
		metrics.WebhookEventsTotal.WithLabelValues("unknown", "bad_signature").Inc()
		return errors.NewWebhookSignatureInvalidError(err)
	}

	eventType := string(event.Type)

	fresh, err := d.redis.SetNX(ctx, "stripe:event:"+event.ID, 1, dedupTTL).Result()
	if err != nil {
		// Redis being down must not drop billing updates; process anyway and
		// rely on the updates being idempotent.
		d.logger.Warn("webhook dedup check failed", map[string]interface{}{
			"eventId": event.ID,
			"error":   err.Error(),
		})
	} else if !fresh {
		metrics.WebhookEventsTotal.WithLabelValues(eventType, "duplicate").Inc()
		d.logger.Info("duplicate webhook delivery ignored", map[string]interface{}{
			"eventId":   event.ID,
			"eventType": eventType,
		})
		return nil
	}

	if err := d.dispatch(ctx, &event); err != nil {
		metrics.WebhookEventsTotal.WithLabelValues(eventType, "error").Inc()
		return err
	}

	metrics.WebhookEventsTotal.WithLabelValues(eventType, "processed").Inc()
	return nil
}

func (d *WebhookDispatcher) dispatch(ctx context.Context, event *stripe.Event) error {
	switch string(event.Type) {
	case "checkout.session.completed":
		return d.handleCheckoutCompleted(ctx, event)
	case "customer.subscription.deleted":
		return d.handleSubscriptionDeleted(ctx, event)
	case "invoice.payment_succeeded":
		return d.handlePaymentSucceeded(ctx, event)
	case "invoice.payment_failed":
		return d.handlePaymentFailed(ctx, event)
	default:
		d.logger.Debug("unhandled webhook event type", map[string]interface{}{
			"eventType": string(event.Type),
		})
		return nil
	}
}

func (d *WebhookDispatcher) handleCheckoutCompleted(ctx context.Context, event *stripe.Event) error {
	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return errors.NewValidationFailedError("malformed checkout.session.completed payload: " + err.Error())
	}

	userID := session.ClientReferenceID
	if userID == "" {
		userID = session.Metadata["user_id"]
	}
	if userID == "" {
		return errors.NewValidationFailedError("checkout session carries no user reference")
	}

	plan := profile.PlanType(session.Metadata["plan"])
	if plan != profile.PlanStarter && plan != profile.PlanMonthly {
		return errors.NewValidationFailedError("checkout session carries unknown plan: " + string(plan))
	}

	var customerID, subscriptionID string
	if session.Customer != nil {
		customerID = session.Customer.ID
	}
	if session.Subscription != nil {
		subscriptionID = session.Subscription.ID
	}

	limit := d.planLimits[string(plan)]
	if limit == 0 {
		return errors.NewConfigurationMissingError("stripe.plan_limits." + string(plan))
	}

	d.logger.Info("checkout completed", map[string]interface{}{
		"userId":     userID,
		"plan":       string(plan),
		"customerId": customerID,
	})
	return d.profiles.ActivateSubscription(ctx, userID, plan, customerID, subscriptionID, limit)
}

func (d *WebhookDispatcher) handleSubscriptionDeleted(ctx context.Context, event *stripe.Event) error {
	var sub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		return errors.NewValidationFailedError("malformed customer.subscription.deleted payload: " + err.Error())
	}
	if sub.Customer == nil || sub.Customer.ID == "" {
		return errors.NewValidationFailedError("subscription event carries no customer")
	}
	return d.profiles.DeactivateSubscription(ctx, sub.Customer.ID)
}

func (d *WebhookDispatcher) handlePaymentSucceeded(ctx context.Context, event *stripe.Event) error {
	var invoice stripe.Invoice
	if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
		return errors.NewValidationFailedError("malformed invoice.payment_succeeded payload: " + err.Error())
	}
	if invoice.Customer == nil || invoice.Customer.ID == "" {
		return errors.NewValidationFailedError("invoice event carries no customer")
	}

	limit := d.planLimits[string(profile.PlanMonthly)]
	return d.profiles.RecordPaymentSucceeded(ctx, invoice.Customer.ID, limit)
}

func (d *WebhookDispatcher) handlePaymentFailed(ctx context.Context, event *stripe.Event) error {
	var invoice stripe.Invoice
	if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
		return errors.NewValidationFailedError("malformed invoice.payment_failed payload: " + err.Error())
	}
	if invoice.Customer == nil || invoice.Customer.ID == "" {
		return errors.NewValidationFailedError("invoice event carries no customer")
	}

	if err := d.profiles.MarkPaymentFailed(ctx, invoice.Customer.ID); err != nil {
		return err
	}

	if d.notifier != nil && invoice.CustomerEmail != "" {
		if err := d.notifier.PaymentFailed(ctx, invoice.CustomerEmail); err != nil {
			// The profile update already happened; a failed email is logged,
			// not bubbled up, so Stripe does not redeliver the event.
			d.logger.Error("payment-failed notification not delivered", map[string]interface{}{
				"email": invoice.CustomerEmail,
				"error": err.Error(),
			})
		}
	}

	return nil
}
