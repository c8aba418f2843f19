package mocks

import (
	"context"

	"github.com/BearBump/SkyRush/internal/models"
	"github.com/BearBump/SkyRush/internal/storage/pgskyrush"
	"github.com/stretchr/testify/mock"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) CreatePackage(ctx context.Context, p *models.Package) (*models.Package, error) {
	args := m.Called(ctx, p)
	if fn, ok := args.Get(0).(func(context.Context, *models.Package) (*models.Package, error)); ok {
		return fn(ctx, p)
	}
	out, _ := args.Get(0).(*models.Package)
	return out, args.Error(1)
}

func (m *MockRepository) ListPackagesByOwner(ctx context.Context, userID string) ([]*models.Package, error) {
	args := m.Called(ctx, userID)
	out, _ := args.Get(0).([]*models.Package)
	return out, args.Error(1)
}

func (m *MockRepository) GetPackageByTrackingNumber(ctx context.Context, trackingNumber string) (*models.Package, error) {
	args := m.Called(ctx, trackingNumber)
	out, _ := args.Get(0).(*models.Package)
	return out, args.Error(1)
}

func (m *MockRepository) AppendStatus(ctx context.Context, packageID string, ev models.StatusEvent, check pgskyrush.TransitionCheck) (*models.Package, error) {
	args := m.Called(ctx, packageID, ev, check)
	if fn, ok := args.Get(0).(func(context.Context, string, models.StatusEvent, pgskyrush.TransitionCheck) (*models.Package, error)); ok {
		return fn(ctx, packageID, ev, check)
	}
	out, _ := args.Get(0).(*models.Package)
	return out, args.Error(1)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, topic string, key, value []byte) error {
	return m.Called(ctx, topic, key, value).Error(0)
}
