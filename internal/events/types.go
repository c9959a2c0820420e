package events

import "time"

// Event enumerates high-level topics inside the workbench.
type Event string

const (
	// EventAll subscribes to every topic.
	EventAll Event = "*"

	EventBlockCreated      Event = "block.created"
	EventBlockRemoved      Event = "block.removed"
	EventBlockConfigured   Event = "block.configured"
	EventSelectionChanged  Event = "selection.changed"
	EventStrategyCleared   Event = "strategy.cleared"
	EventStrategyLoaded    Event = "strategy.loaded"
	EventSettingsChanged   Event = "settings.changed"
	EventBacktestStarted   Event = "backtest.started"
	EventBacktestCompleted Event = "backtest.completed"
	EventBacktestDiscarded Event = "backtest.discarded"
	EventPaperTrade        Event = "paper.trade"
)

// SessionEvent is the payload published for editor session changes.
type SessionEvent struct {
	Type       Event     `json:"type"`
	SessionID  string    `json:"session_id"`
	Generation uint64    `json:"generation"`
	BlockID    string    `json:"block_id,omitempty"`
	Data       any       `json:"data,omitempty"`
	At         time.Time `json:"at"`
}
