// Package engine is the workbench use-case layer. The API talks to editor
// sessions, the backtest service, strategy persistence and paper trading
// only through Service.
package engine

import (
	"context"
	"io"

	"github.com/anjaninandan001/algo-tinker/internal/blocks"
	"github.com/anjaninandan001/algo-tinker/internal/papertrade"
	"github.com/anjaninandan001/algo-tinker/internal/persist"
	"github.com/anjaninandan001/algo-tinker/internal/results"
	"github.com/anjaninandan001/algo-tinker/internal/strategy"
)

// Service defines the workbench operations.
type Service interface {
	// Palette
	Palette() []blocks.PaletteItem

	// Sessions
	CreateSession(ctx context.Context) *SessionView
	GetSession(ctx context.Context, id string) (*SessionView, error)
	CloseSession(ctx context.Context, id string) error
	UpdateSettings(ctx context.Context, id string, s Settings) (*SessionView, error)

	// Canvas editing
	AddBlock(ctx context.Context, id string, t blocks.Type, indicatorType string, x, y float64) (*BlockView, error)
	RemoveBlock(ctx context.Context, id, blockID string) error
	SelectBlock(ctx context.Context, id, blockID string) (*EditState, error)
	CommitBlock(ctx context.Context, id string, fields map[string]string) (*CommitResult, error)
	CancelEdit(ctx context.Context, id string) (*EditState, error)
	ClearStrategy(ctx context.Context, id string) error

	// Serialization
	BuildRequest(ctx context.Context, id string) (*strategy.Request, error)
	References(ctx context.Context, id string) (*ReferenceSet, error)

	// Backtest
	RunBacktest(ctx context.Context, id string) (*BacktestOutcome, error)
	LastReport(ctx context.Context, id string) (*results.Report, error)
	RenderEquityChart(ctx context.Context, id string, w io.Writer) error

	// Saved strategies
	SaveStrategy(ctx context.Context, id, userID, username, name string) (string, error)
	LoadStrategy(ctx context.Context, id, userID, name string) (*SessionView, error)
	ListStrategies(ctx context.Context, userID string) ([]persist.Summary, error)
	GetStrategy(ctx context.Context, userID, name string) (*persist.Record, error)
	DeleteStrategy(ctx context.Context, userID, name string) error
	SyncTemplates(ctx context.Context, templates []strategy.Template) error

	// Paper trading
	PaperTrade(ctx context.Context, userID, sessionID string, o papertrade.Order) (*papertrade.Fill, error)
	Portfolio(ctx context.Context, userID string) (*papertrade.Portfolio, error)

	// System
	GetSystemStatus(ctx context.Context) *SystemStatus
	Ping(ctx context.Context) map[string]error
}
