package pricing

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockBatchSource is a mock implementation of BatchSource
type MockBatchSource struct {
	mock.Mock
}

func (m *MockBatchSource) Prices(ctx context.Context, names []string, currency string) (map[string]float64, error) {
	args := m.Called(ctx, names, currency)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]float64), args.Error(1)
}

// MockItemSource is a mock implementation of ItemSource
type MockItemSource struct {
	mock.Mock
}

func (m *MockItemSource) Price(ctx context.Context, name, currency string) (float64, bool, error) {
	args := m.Called(ctx, name, currency)
	return args.Get(0).(float64), args.Bool(1), args.Error(2)
}

// MockRateLookup is a mock implementation of RateLookup
type MockRateLookup struct {
	mock.Mock
}

func (m *MockRateLookup) Rate(ctx context.Context, from, to string) (float64, bool) {
	args := m.Called(ctx, from, to)
	return args.Get(0).(float64), args.Bool(1)
}

// MockRateSource is a mock implementation of RateSource
type MockRateSource struct {
	mock.Mock
	name string
}

func (m *MockRateSource) Name() string { return m.name }

func (m *MockRateSource) Rate(ctx context.Context, from, to string) (float64, bool, error) {
	args := m.Called(ctx, from, to)
	return args.Get(0).(float64), args.Bool(1), args.Error(2)
}
