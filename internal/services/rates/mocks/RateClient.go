package mocks

import (
	"context"
	"time"

	"github.com/BearBump/SkyRush/internal/integrations/shipstation"
	"github.com/BearBump/SkyRush/internal/models"
	"github.com/stretchr/testify/mock"
)

type MockRateClient struct {
	mock.Mock
}

func (m *MockRateClient) GetRates(ctx context.Context, in shipstation.RateRequest) ([]models.RateQuote, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).([]models.RateQuote)
	return out, args.Error(1)
}

type MockLimiter struct {
	mock.Mock
}

func (m *MockLimiter) Allow(ctx context.Context, key string, limit int64, window time.Duration) (bool, int64, error) {
	args := m.Called(ctx, key, limit, window)
	return args.Bool(0), args.Get(1).(int64), args.Error(2)
}
