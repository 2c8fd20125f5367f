package http

import (
	"context"

	"fnopulse/internal/dataprocessing"
	"fnopulse/internal/services"
	"fnopulse/pkg/contracts/domain"
)

// DataServiceInterface is the dataset query surface the handlers depend on.
type DataServiceInterface interface {
	Status() services.DatasetStatus
	Reload(ctx context.Context) error

	Dates(ctx context.Context) (services.DatesResult, error)
	Symbols(ctx context.Context) ([]string, error)
	Snapshot(ctx context.Context, date string) (domain.Snapshot, error)
	Summary(ctx context.Context, date string) (*domain.DerivedSnapshot, error)
	History(ctx context.Context, symbol string) ([]domain.MarketRecord, error)
	Detail(ctx context.Context, symbol, date string) (*dataprocessing.SymbolDetail, error)
	Record(ctx context.Context, symbol, date string) (*domain.MarketRecord, error)
	Table(ctx context.Context, date string, q dataprocessing.TableQuery) (domain.Snapshot, error)
	Diagnostics(ctx context.Context) (services.Diagnostics, error)
}

var _ DataServiceInterface = (*services.DatasetService)(nil)
