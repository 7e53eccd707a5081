package profile

import (
	"context"
	"database/sql"
	stderrors "errors"
	"time"

	"dartsight/internal/common/errors"
	"dartsight/internal/common/logger"
	"dartsight/internal/common/metrics"
)

// Store is the profiles-table access layer used by handlers and the webhook
// dispatcher.
type Store interface {
	GetByID(ctx context.Context, userID string) (*Profile, error)
	GetByCustomerID(ctx context.Context, customerID string) (*Profile, error)
	IncrementUsage(ctx context.Context, userID string) (*Profile, error)
	ActivateSubscription(ctx context.Context, userID string, plan PlanType, customerID, subscriptionID string, limit int) error
	RecordPaymentSucceeded(ctx context.Context, customerID string, limit int) error
	DeactivateSubscription(ctx context.Context, customerID string) error
	MarkPaymentFailed(ctx context.Context, customerID string) error
}

type PostgresStore struct {
	db     *sql.DB
	logger logger.Logger
}

func NewPostgresStore(db *sql.DB, log logger.Logger) *PostgresStore {
	return &PostgresStore{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "profile-store"}),
	}
}

const profileColumns = `id, email, is_paid, stripe_customer_id, stripe_subscription_id,
       analysis_count, analysis_limit, last_analysis_reset, plan_type, plan_purchased_at, updated_at`

func (s *PostgresStore) GetByID(ctx context.Context, userID string) (*Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE id = $1`
	return s.scanProfile(s.db.QueryRowContext(ctx, query, userID), userID)
}

func (s *PostgresStore) GetByCustomerID(ctx context.Context, customerID string) (*Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE stripe_customer_id = $1`
	return s.scanProfile(s.db.QueryRowContext(ctx, query, customerID), customerID)
}

func (s *PostgresStore) scanProfile(row *sql.Row, key string) (*Profile, error) {
	var (
		p              Profile
		customerID     sql.NullString
		subscriptionID sql.NullString
		lastReset      sql.NullTime
		purchasedAt    sql.NullTime
		planType       sql.NullString
	)

	err := row.Scan(
		&p.ID, &p.Email, &p.IsPaid, &customerID, &subscriptionID,
		&p.AnalysisCount, &p.AnalysisLimit, &lastReset, &planType, &purchasedAt, &p.UpdatedAt,
	)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.NewProfileNotFoundError(key)
		}
		return nil, errors.NewQueryExecutionFailedError("get-profile", err)
	}

	p.StripeCustomerID = customerID.String
	p.StripeSubscriptionID = subscriptionID.String
	p.PlanType = PlanType(planType.String)
	if p.PlanType == "" {
		p.PlanType = PlanFree
	}
	if lastReset.Valid {
		t := lastReset.Time
		p.LastAnalysisReset = &t
	}
	if purchasedAt.Valid {
		t := purchasedAt.Time
		p.PlanPurchasedAt = &t
	}

	return &p, nil
}

// incrementUsageQuery performs check-and-increment as one conditional UPDATE
// so two concurrent calls cannot both pass the limit check. A due monthly
// reset rolls the counter to 1 (reset to zero, then this increment) and
// stamps last_analysis_reset inside the same statement.
const incrementUsageQuery = `
UPDATE profiles
SET analysis_count = CASE
        WHEN plan_type = 'monthly' AND last_analysis_reset IS NOT NULL
             AND last_analysis_reset <= NOW() - INTERVAL '30 days'
        THEN 1
        ELSE analysis_count + 1
    END,
    last_analysis_reset = CASE
        WHEN plan_type = 'monthly' AND last_analysis_reset IS NOT NULL
             AND last_analysis_reset <= NOW() - INTERVAL '30 days'
        THEN NOW()
        ELSE last_analysis_reset
    END,
    updated_at = NOW()
WHERE id = $1
  AND is_paid = TRUE
  AND analysis_limit > 0
  AND (analysis_count < analysis_limit
       OR (plan_type = 'monthly' AND last_analysis_reset IS NOT NULL
           AND last_analysis_reset <= NOW() - INTERVAL '30 days'))`

// IncrementUsage consumes one analysis from the caller's quota. When the
// conditional update matches no row, the profile is re-read to produce the
// plan-specific denial message.
func (s *PostgresStore) IncrementUsage(ctx context.Context, userID string) (*Profile, error) {
	res, err := s.db.ExecContext(ctx, incrementUsageQuery, userID)
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("increment-usage", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("increment-usage", err)
	}

	if affected == 0 {
		p, err := s.GetByID(ctx, userID)
		if err != nil {
			return nil, err
		}
		decision := CanAnalyze(p, time.Now().UTC())
		metrics.QuotaDenialsTotal.WithLabelValues(decision.Reason).Inc()
		s.logger.Info("analysis denied by quota", map[string]interface{}{
			"userId": userID,
			"reason": decision.Reason,
		})
		return nil, errors.NewLimitReachedError(decision.Message)
	}

	return s.GetByID(ctx, userID)
}

func (s *PostgresStore) ActivateSubscription(ctx context.Context, userID string, plan PlanType, customerID, subscriptionID string, limit int) error {
	query := `
UPDATE profiles
SET is_paid = TRUE,
    plan_type = $2,
    stripe_customer_id = $3,
    stripe_subscription_id = NULLIF($4, ''),
    analysis_count = 0,
    analysis_limit = $5,
    last_analysis_reset = NOW(),
    plan_purchased_at = NOW(),
    updated_at = NOW()
WHERE id = $1`

	res, err := s.db.ExecContext(ctx, query, userID, string(plan), customerID, subscriptionID, limit)
	if err != nil {
		return errors.NewQueryExecutionFailedError("activate-subscription", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return errors.NewProfileNotFoundError(userID)
	}

	s.logger.Info("subscription activated", map[string]interface{}{
		"userId": userID,
		"plan":   string(plan),
		"limit":  limit,
	})
	return nil
}

// RecordPaymentSucceeded refreshes a monthly subscriber's cycle on invoice
// payment: counter back to zero, reset stamp to now, limit re-applied.
func (s *PostgresStore) RecordPaymentSucceeded(ctx context.Context, customerID string, limit int) error {
	query := `
UPDATE profiles
SET is_paid = TRUE,
    analysis_count = 0,
    analysis_limit = $2,
    last_analysis_reset = NOW(),
    updated_at = NOW()
WHERE stripe_customer_id = $1 AND plan_type = 'monthly'`

	if _, err := s.db.ExecContext(ctx, query, customerID, limit); err != nil {
		return errors.NewQueryExecutionFailedError("record-payment-succeeded", err)
	}
	return nil
}

func (s *PostgresStore) DeactivateSubscription(ctx context.Context, customerID string) error {
	query := `
UPDATE profiles
SET is_paid = FALSE,
    stripe_subscription_id = NULL,
    updated_at = NOW()
WHERE stripe_customer_id = $1`

	res, err := s.db.ExecContext(ctx, query, customerID)
	if err != nil {
		return errors.NewQueryExecutionFailedError("deactivate-subscription", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return errors.NewProfileNotFoundError(customerID)
	}

	s.logger.Info("subscription deactivated", map[string]interface{}{
		"customerId": customerID,
	})
	return nil
}

func (s *PostgresStore) MarkPaymentFailed(ctx context.Context, customerID string) error {
	query := `
UPDATE profiles
SET is_paid = FALSE,
    updated_at = NOW()
WHERE stripe_customer_id = $1`

	if _, err := s.db.ExecContext(ctx, query, customerID); err != nil {
		return errors.NewQueryExecutionFailedError("mark-payment-failed", err)
	}
	return nil
}
