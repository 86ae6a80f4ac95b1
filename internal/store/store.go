// Package store provides bar persistence for replay and analysis.
package store

import (
	"context"

	"github.com/plife507/TRADE-sub002/internal/models"
)

// BarStore defines the interface for bar persistence. Bars are keyed by
// symbol and timeframe and ordered by their index within the series.
type BarStore interface {
	SaveBars(ctx context.Context, symbol, timeframe string, bars []models.Bar) error
	LoadBars(ctx context.Context, symbol, timeframe string) ([]models.Bar, error)
	LoadBarRange(ctx context.Context, symbol, timeframe string, fromIdx, toIdx int) ([]models.Bar, error)
	BarCount(ctx context.Context, symbol, timeframe string) (int, error)
	ListSeries(ctx context.Context) ([]Series, error)
	Close() error
}

// Series identifies one stored bar series.
type Series struct {
	Symbol    string
	Timeframe string
	Bars      int
}
