package http

import (
	"context"

	"github.com/stretchr/testify/mock"

	"fnopulse/internal/dataprocessing"
	"fnopulse/internal/services"
	"fnopulse/pkg/contracts/domain"
)

// MockDataService is a mock implementation of DataServiceInterface
type MockDataService struct {
	mock.Mock
}

var _ DataServiceInterface = (*MockDataService)(nil)

func (m *MockDataService) Status() services.DatasetStatus {
	args := m.Called()
	return args.Get(0).(services.DatasetStatus)
}

func (m *MockDataService) Reload(ctx context.Context) error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockDataService) Dates(ctx context.Context) (services.DatesResult, error) {
	args := m.Called()
	return args.Get(0).(services.DatesResult), args.Error(1)
}

func (m *MockDataService) Symbols(ctx context.Context) ([]string, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockDataService) Snapshot(ctx context.Context, date string) (domain.Snapshot, error) {
	args := m.Called(date)
	return args.Get(0).(domain.Snapshot), args.Error(1)
}

func (m *MockDataService) Summary(ctx context.Context, date string) (*domain.DerivedSnapshot, error) {
	args := m.Called(date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.DerivedSnapshot), args.Error(1)
}

func (m *MockDataService) Record(ctx context.Context, symbol, date string) (*domain.MarketRecord, error) {
	args := m.Called(symbol, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.MarketRecord), args.Error(1)
}

func (m *MockDataService) History(ctx context.Context, symbol string) ([]domain.MarketRecord, error) {
	args := m.Called(symbol)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.MarketRecord), args.Error(1)
}

func (m *MockDataService) Detail(ctx context.Context, symbol, date string) (*dataprocessing.SymbolDetail, error) {
	args := m.Called(symbol, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dataprocessing.SymbolDetail), args.Error(1)
}

func (m *MockDataService) Table(ctx context.Context, date string, q dataprocessing.TableQuery) (domain.Snapshot, error) {
	args := m.Called(date, q)
	return args.Get(0).(domain.Snapshot), args.Error(1)
}

func (m *MockDataService) Diagnostics(ctx context.Context) (services.Diagnostics, error) {
	args := m.Called()
	return args.Get(0).(services.Diagnostics), args.Error(1)
}
