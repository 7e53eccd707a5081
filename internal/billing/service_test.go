package billing

import (
	"context"
	"testing"

	"dartsight/internal/common/config"
	"dartsight/internal/common/errors"
	"dartsight/internal/common/logger"
	"dartsight/internal/profile"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProfileReader struct {
	profile.Store

	profile *profile.Profile
	err     error
}

func (s *stubProfileReader) GetByID(context.Context, string) (*profile.Profile, error) {
	return s.profile, s.err
}

func createTestService(t *testing.T, profiles profile.Store) *Service {
	return NewService(config.StripeConfig{
		SecretKey: "sk_test_fake",
		PriceIDs: map[string]string{
			"starter": "price_starter",
			"monthly": "price_monthly",
		},
		PlanLimits: map[string]int{"starter": 3, "monthly": 12},
	}, "https://app.example.com", profiles, logger.NewTestLogger(t))
}

func TestCreateCheckoutSession_UnknownPlan(t *testing.T) {
	service := createTestService(t, &stubProfileReader{})

	_, err := service.CreateCheckoutSession(context.Background(), "user-1", "player@example.com", "platinum")
	require.Error(t, err)

	stdErr, ok := err.(*errors.StandardError)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeValidationFailed, stdErr.Code)
}

func TestCreateCheckoutSession_MissingPriceID(t *testing.T) {
	service := createTestService(t, &stubProfileReader{})
	service.cfg.PriceIDs = map[string]string{}

	_, err := service.CreateCheckoutSession(context.Background(), "user-1", "player@example.com", "starter")
	require.Error(t, err)

	stdErr, ok := err.(*errors.StandardError)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeConfigurationMissing, stdErr.Code)
}

func TestCreatePortalSession_NoCustomerLinkage(t *testing.T) {
	service := createTestService(t, &stubProfileReader{
		profile: &profile.Profile{ID: "user-1"},
	})

	_, err := service.CreatePortalSession(context.Background(), "user-1")
	require.Error(t, err)

	stdErr, ok := err.(*errors.StandardError)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeCustomerNotFound, stdErr.Code)
}

func TestCreatePortalSession_ProfileLookupErrorPropagates(t *testing.T) {
	service := createTestService(t, &stubProfileReader{
		err: errors.NewProfileNotFoundError("user-1"),
	})

	_, err := service.CreatePortalSession(context.Background(), "user-1")
	require.Error(t, err)

	stdErr, ok := err.(*errors.StandardError)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeProfileNotFound, stdErr.Code)
}

func TestPlanLimit(t *testing.T) {
	service := createTestService(t, &stubProfileReader{})

	assert.Equal(t, 3, service.PlanLimit(profile.PlanStarter))
	assert.Equal(t, 12, service.PlanLimit(profile.PlanMonthly))
	assert.Equal(t, 0, service.PlanLimit(profile.PlanFree))
}
