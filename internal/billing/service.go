package billing

import (
	"context"

	"dartsight/internal/common/config"
	"dartsight/internal/common/errors"
	"dartsight/internal/common/logger"
	"dartsight/internal/profile"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

// Service creates Stripe Checkout and Customer Portal sessions. All payment
// state lives in Stripe; this service only maps plans to price IDs and
// builds redirect URLs.
type Service struct {
	api        *client.API
	cfg        config.StripeConfig
	appBaseURL string
	profiles   profile.Store
	logger     logger.Logger
}

func NewService(cfg config.StripeConfig, appBaseURL string, profiles profile.Store, log logger.Logger) *Service {
	api := &client.API{}
	api.Init(cfg.SecretKey, nil)

	return &Service{
		api:        api,
		cfg:        cfg,
		appBaseURL: appBaseURL,
		profiles:   profiles,
		logger:     log.WithFields(map[string]interface{}{"component": "billing"}),
	}
}

// PlanLimit returns the analyses granted per cycle for a plan.
func (s *Service) PlanLimit(plan profile.PlanType) int {
	return s.cfg.PlanLimits[string(plan)]
}

// CreateCheckoutSession starts a Stripe Checkout flow for the given plan.
// Starter is a one-time payment, monthly a subscription. The user ID rides
// along as client_reference_id and metadata so the webhook can link the
// completed session back to a profile.
func (s *Service) CreateCheckoutSession(ctx context.Context, userID, email, plan string) (string, error) {
	if plan != string(profile.PlanStarter) && plan != string(profile.PlanMonthly) {
		return "", errors.NewValidationFailedError("unknown plan: " + plan)
	}

	priceID := s.cfg.PriceIDs[plan]
	if priceID == "" {
		return "", errors.NewConfigurationMissingError("stripe.price_ids." + plan)
	}

	mode := stripe.CheckoutSessionModePayment
	if plan == string(profile.PlanMonthly) {
		mode = stripe.CheckoutSessionModeSubscription
	}

	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(mode)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(priceID),
				Quantity: stripe.Int64(1),
			},
		},
		CustomerEmail:     stripe.String(email),
		ClientReferenceID: stripe.String(userID),
		SuccessURL:        stripe.String(s.appBaseURL + "/dashboard?checkout=success"),
		CancelURL:         stripe.String(s.appBaseURL + "/pricing?checkout=canceled"),
	}
	params.Context = ctx
	params.AddMetadata("user_id", userID)
	params.AddMetadata("plan", plan)

	session, err := s.api.CheckoutSessions.New(params)
	if err != nil {
		return "", errors.NewExternalServiceError("stripe", err)
	}

	s.logger.Info("checkout session created", map[string]interface{}{
		"userId": userID,
		"plan":   plan,
	})
	return session.URL, nil
}

// CreatePortalSession opens the Stripe Customer Portal for a subscriber.
// Profiles without a customer linkage have never completed checkout.
func (s *Service) CreatePortalSession(ctx context.Context, userID string) (string, error) {
	p, err := s.profiles.GetByID(ctx, userID)
	if err != nil {
		return "", err
	}
	if p.StripeCustomerID == "" {
		return "", errors.NewCustomerNotFoundError(userID)
	}

	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(p.StripeCustomerID),
		ReturnURL: stripe.String(s.appBaseURL + "/dashboard"),
	}
	params.Context = ctx

	session, err := s.api.BillingPortalSessions.New(params)
	if err != nil {
		return "", errors.NewExternalServiceError("stripe", err)
	}

	return session.URL, nil
}
