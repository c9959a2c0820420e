// Package backtest talks to the external backtest service.
package backtest

import (
	"context"
	"errors"

	"github.com/anjaninandan001/algo-tinker/internal/results"
	"github.com/anjaninandan001/algo-tinker/internal/strategy"
)

// ErrServiceUnavailable is returned when the service cannot be reached.
var ErrServiceUnavailable = errors.New("backtest service unavailable")

// Request is the body sent to the backtest service.
type Request struct {
	Blocks    strategy.Request `json:"blocks"`
	Symbol    string           `json:"symbol"`
	StartDate string           `json:"startDate"`
	EndDate   string           `json:"endDate"`
	Capital   float64          `json:"capital"`
}

// Backtester runs a strategy against historical data. A service-side
// failure reported as an {error} payload comes back as Response.Error with
// a nil error; transport failures are returned as errors.
type Backtester interface {
	Run(ctx context.Context, req Request) (*results.Response, error)
	Ping(ctx context.Context) error
	Close() error
}
