package engine

import (
	"time"

	"github.com/anjaninandan001/algo-tinker/internal/blocks"
	"github.com/anjaninandan001/algo-tinker/internal/editor"
	"github.com/anjaninandan001/algo-tinker/internal/results"
	"github.com/anjaninandan001/algo-tinker/internal/strategy"
)

// BlockView is a block as shown on the canvas.
type BlockView struct {
	ID            string             `json:"id"`
	Type          blocks.Type        `json:"type"`
	X             float64            `json:"x"`
	Y             float64            `json:"y"`
	IndicatorType string             `json:"indicator_type,omitempty"`
	Params        map[string]int     `json:"params,omitempty"`
	Conditions    []blocks.Condition `json:"conditions"`
	Title         string             `json:"title"`
	Summary       string             `json:"summary"`
	Known         bool               `json:"known"`
}

// Settings is the wire form of editor.Settings with calendar dates.
type Settings struct {
	Symbol    string  `json:"symbol"`
	StartDate string  `json:"start_date"`
	EndDate   string  `json:"end_date"`
	Capital   float64 `json:"capital"`
}

// SessionView is a consistent view of one editor session.
type SessionView struct {
	ID         string       `json:"id"`
	Generation uint64       `json:"generation"`
	Blocks     []BlockView  `json:"blocks"`
	Settings   Settings     `json:"settings"`
	State      editor.State `json:"state"`
	Selected   string       `json:"selected,omitempty"`
	HasReport  bool         `json:"has_report"`
	UpdatedAt  time.Time    `json:"updated_at"`
}

// EditState describes the selection after select, commit or cancel.
type EditState struct {
	State    editor.State   `json:"state"`
	Selected string         `json:"selected,omitempty"`
	Block    *BlockView     `json:"block,omitempty"`
	Fields   []blocks.Field `json:"fields,omitempty"`
	// References are the options for a rule's indicator field.
	References []string `json:"references,omitempty"`
}

// CommitResult is the outcome of saving a block's configuration.
type CommitResult struct {
	Committed bool                       `json:"committed"`
	Block     *BlockView                 `json:"block,omitempty"`
	Warnings  []blocks.DanglingReference `json:"warnings"`
}

// ReferenceSet lists what rule conditions may refer to and what they refer
// to that no longer exists.
type ReferenceSet struct {
	Available []string                   `json:"available"`
	Dangling  []blocks.DanglingReference `json:"dangling"`
}

// BacktestOutcome is the applied result of a backtest run.
type BacktestOutcome struct {
	Generation uint64                     `json:"generation"`
	Request    strategy.Request           `json:"request"`
	Report     *results.Report            `json:"report"`
	Warnings   []blocks.DanglingReference `json:"warnings"`
	Duration   time.Duration              `json:"duration_ns"`
}

// SystemStatus represents the system runtime status.
type SystemStatus struct {
	Version           string    `json:"version"`
	InstanceID        string    `json:"instance_id"`
	StrategyBackend   string    `json:"strategy_backend"`
	BacktestTransport string    `json:"backtest_transport"`
	MarketSource      string    `json:"market_source"`
	AutoCompleteRules bool      `json:"auto_complete_rules"`
	ActiveSessions    int       `json:"active_sessions"`
	StartedAt         time.Time `json:"started_at"`
	ServerTime        time.Time `json:"server_time"`
}

func blockView(b *blocks.Block) BlockView {
	entry := blocks.LookupBlock(b)
	conds := b.Conditions
	if conds == nil {
		conds = []blocks.Condition{}
	}
	return BlockView{
		ID:            b.ID,
		Type:          b.Type,
		X:             b.X,
		Y:             b.Y,
		IndicatorType: b.IndicatorType,
		Params:        b.Params,
		Conditions:    conds,
		Title:         entry.Title,
		Summary:       blocks.Summary(b),
		Known:         entry.Known,
	}
}

func settingsView(s editor.Settings) Settings {
	return Settings{
		Symbol:    s.Symbol,
		StartDate: s.StartDate.Format(editor.DateLayout),
		EndDate:   s.EndDate.Format(editor.DateLayout),
		Capital:   s.Capital,
	}
}

func sessionView(snap editor.Snapshot, hasReport bool) *SessionView {
	v := &SessionView{
		ID:         snap.ID,
		Generation: snap.Ticket.Generation,
		Blocks:     make([]BlockView, 0, len(snap.Blocks)),
		Settings:   settingsView(snap.Settings),
		State:      snap.State,
		Selected:   snap.Selected,
		HasReport:  hasReport,
		UpdatedAt:  snap.UpdatedAt,
	}
	for _, b := range snap.Blocks {
		v.Blocks = append(v.Blocks, blockView(b))
	}
	return v
}
