package mocks

import (
	"context"

	"github.com/BearBump/SkyRush/internal/models"
	"github.com/stretchr/testify/mock"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) CreateUser(ctx context.Context, u *models.User) (*models.User, error) {
	args := m.Called(ctx, u)
	out, _ := args.Get(0).(*models.User)
	return out, args.Error(1)
}

func (m *MockRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	out, _ := args.Get(0).(*models.User)
	return out, args.Error(1)
}

func (m *MockRepository) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	args := m.Called(ctx, id)
	out, _ := args.Get(0).(*models.User)
	return out, args.Error(1)
}
