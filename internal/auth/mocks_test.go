package auth

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/osse101/DropTracker_Go/internal/domain"
)

// MockAccountSaver is a mock implementation of AccountSaver
type MockAccountSaver struct {
	mock.Mock
}

func (m *MockAccountSaver) SaveAccount(ctx context.Context, acc *domain.Account) error {
	args := m.Called(ctx, acc)
	return args.Error(0)
}
