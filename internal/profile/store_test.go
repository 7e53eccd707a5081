package profile

import (
	"context"
	"testing"
	"time"

	"dartsight/internal/common/errors"
	"dartsight/internal/common/logger"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

var profileRows = []string{
	"id", "email", "is_paid", "stripe_customer_id", "stripe_subscription_id",
	"analysis_count", "analysis_limit", "last_analysis_reset", "plan_type", "plan_purchased_at", "updated_at",
}

func createTestStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewPostgresStore(db, logger.NewTestLogger(t)), mock
}

func profileRow(count, limit int, plan string, lastReset interface{}) *sqlmock.Rows {
	return sqlmock.NewRows(profileRows).AddRow(
		"user-123", "player@example.com", true, "cus_abc", "sub_def",
		count, limit, lastReset, plan, time.Now(), time.Now(),
	)
}

// ==========================
// GetByID Tests
// ==========================

func TestGetByID_Success(t *testing.T) {
	store, mock := createTestStore(t)

	mock.ExpectQuery(`SELECT (.+) FROM profiles WHERE id = \$1`).
		WithArgs("user-123").
		WillReturnRows(profileRow(5, 12, "monthly", time.Now()))

	p, err := store.GetByID(context.Background(), "user-123")
	require.NoError(t, err)

	assert.Equal(t, "user-123", p.ID)
	assert.Equal(t, "player@example.com", p.Email)
	assert.True(t, p.IsPaid)
	assert.Equal(t, PlanMonthly, p.PlanType)
	assert.Equal(t, 5, p.AnalysisCount)
	assert.Equal(t, 12, p.AnalysisLimit)
	assert.Equal(t, "cus_abc", p.StripeCustomerID)
	assert.NotNil(t, p.LastAnalysisReset)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByID_NotFound(t *testing.T) {
	store, mock := createTestStore(t)

	mock.ExpectQuery(`SELECT (.+) FROM profiles WHERE id = \$1`).
		WithArgs("missing-user").
		WillReturnRows(sqlmock.NewRows(profileRows))

	_, err := store.GetByID(context.Background(), "missing-user")
	require.Error(t, err)

	stdErr, ok := err.(*errors.StandardError)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeProfileNotFound, stdErr.Code)
}

func TestGetByID_NullableColumns(t *testing.T) {
	store, mock := createTestStore(t)

	// Fresh signup row: no billing linkage, no plan, no reset stamp.
	rows := sqlmock.NewRows(profileRows).AddRow(
		"user-456", "new@example.com", false, nil, nil,
		0, 0, nil, nil, nil, time.Now(),
	)
	mock.ExpectQuery(`SELECT (.+) FROM profiles WHERE id = \$1`).
		WithArgs("user-456").
		WillReturnRows(rows)

	p, err := store.GetByID(context.Background(), "user-456")
	require.NoError(t, err)

	assert.False(t, p.IsPaid)
	assert.Empty(t, p.StripeCustomerID)
	assert.Equal(t, PlanFree, p.PlanType)
	assert.Nil(t, p.LastAnalysisReset)
	assert.Nil(t, p.PlanPurchasedAt)
}

func TestGetByCustomerID_Success(t *testing.T) {
	store, mock := createTestStore(t)

	mock.ExpectQuery(`SELECT (.+) FROM profiles WHERE stripe_customer_id = \$1`).
		WithArgs("cus_abc").
		WillReturnRows(profileRow(0, 12, "monthly", time.Now()))

	p, err := store.GetByCustomerID(context.Background(), "cus_abc")
	require.NoError(t, err)
	assert.Equal(t, "cus_abc", p.StripeCustomerID)
}

// ==========================
// IncrementUsage Tests
// ==========================

func TestIncrementUsage_Success(t *testing.T) {
	store, mock := createTestStore(t)

	mock.ExpectExec(`UPDATE profiles`).
		WithArgs("user-123").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT (.+) FROM profiles WHERE id = \$1`).
		WithArgs("user-123").
		WillReturnRows(profileRow(6, 12, "monthly", time.Now()))

	p, err := store.IncrementUsage(context.Background(), "user-123")
	require.NoError(t, err)

	assert.Equal(t, 6, p.AnalysisCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIncrementUsage_LimitReached_Starter(t *testing.T) {
	store, mock := createTestStore(t)

	// The conditional update matches no row, so the store re-reads the
	// profile to build the plan-specific message.
	mock.ExpectExec(`UPDATE profiles`).
		WithArgs("user-123").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT (.+) FROM profiles WHERE id = \$1`).
		WithArgs("user-123").
		WillReturnRows(profileRow(3, 3, "starter", nil))

	_, err := store.IncrementUsage(context.Background(), "user-123")
	require.Error(t, err)

	stdErr, ok := err.(*errors.StandardError)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeLimitReached, stdErr.Code)
	assert.Contains(t, stdErr.Message, "Upgrade")
}

func TestIncrementUsage_LimitReached_Monthly(t *testing.T) {
	store, mock := createTestStore(t)

	mock.ExpectExec(`UPDATE profiles`).
		WithArgs("user-123").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT (.+) FROM profiles WHERE id = \$1`).
		WithArgs("user-123").
		WillReturnRows(profileRow(12, 12, "monthly", time.Now()))

	_, err := store.IncrementUsage(context.Background(), "user-123")
	require.Error(t, err)

	stdErr, ok := err.(*errors.StandardError)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeLimitReached, stdErr.Code)
	assert.Contains(t, stdErr.Message, "next cycle")
}

func TestIncrementUsage_NotFound(t *testing.T) {
	store, mock := createTestStore(t)

	mock.ExpectExec(`UPDATE profiles`).
		WithArgs("missing-user").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT (.+) FROM profiles WHERE id = \$1`).
		WithArgs("missing-user").
		WillReturnRows(sqlmock.NewRows(profileRows))

	_, err := store.IncrementUsage(context.Background(), "missing-user")
	require.Error(t, err)

	stdErr, ok := err.(*errors.StandardError)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeProfileNotFound, stdErr.Code)
}

func TestIncrementUsage_QueryContainsResetRollover(t *testing.T) {
	// The reset rollover and the limit check must live in the same
	// statement; two round trips would reintroduce the increment race.
	assert.Contains(t, incrementUsageQuery, "INTERVAL '30 days'")
	assert.Contains(t, incrementUsageQuery, "analysis_count < analysis_limit")
	assert.Contains(t, incrementUsageQuery, "THEN 1")
}

// ==========================
// Webhook-driven Update Tests
// ==========================

func TestActivateSubscription_Success(t *testing.T) {
	store, mock := createTestStore(t)

	mock.ExpectExec(`UPDATE profiles`).
		WithArgs("user-123", "monthly", "cus_abc", "sub_def", 12).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.ActivateSubscription(context.Background(), "user-123", PlanMonthly, "cus_abc", "sub_def", 12)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActivateSubscription_ProfileMissing(t *testing.T) {
	store, mock := createTestStore(t)

	mock.ExpectExec(`UPDATE profiles`).
		WithArgs("ghost", "starter", "cus_x", "", 3).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.ActivateSubscription(context.Background(), "ghost", PlanStarter, "cus_x", "", 3)
	require.Error(t, err)

	stdErr, ok := err.(*errors.StandardError)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeProfileNotFound, stdErr.Code)
}

func TestDeactivateSubscription_Success(t *testing.T) {
	store, mock := createTestStore(t)

	mock.ExpectExec(`UPDATE profiles`).
		WithArgs("cus_abc").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.DeactivateSubscription(context.Background(), "cus_abc")
	require.NoError(t, err)
}

func TestRecordPaymentSucceeded_Success(t *testing.T) {
	store, mock := createTestStore(t)

	mock.ExpectExec(`UPDATE profiles`).
		WithArgs("cus_abc", 12).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.RecordPaymentSucceeded(context.Background(), "cus_abc", 12)
	require.NoError(t, err)
}

func TestMarkPaymentFailed_Success(t *testing.T) {
	store, mock := createTestStore(t)

	mock.ExpectExec(`UPDATE profiles`).
		WithArgs("cus_abc").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.MarkPaymentFailed(context.Background(), "cus_abc")
	require.NoError(t, err)
}
