// Package editor holds per-session editing state: the block store, the
// selection state machine, backtest settings and the request generation
// used to drop late responses.
package editor

import "github.com/anjaninandan001/algo-tinker/internal/blocks"

// State is the selection state of an editor.
type State string

const (
	StateIdle    State = "idle"
	StateEditing State = "editing"
)

// Selection tracks which block is open for configuration.
type Selection struct {
	store    *blocks.Store
	selected string
}

// NewSelection returns an idle selection over store.
func NewSelection(store *blocks.Store) *Selection {
	return &Selection{store: store}
}

// State returns the current state and, when editing, the selected block id.
func (s *Selection) State() (State, string) {
	if s.selected == "" {
		return StateIdle, ""
	}
	return StateEditing, s.selected
}

// Select opens the block with the given id for editing. An id that does not
// resolve leaves the state unchanged. Selecting while already editing
// switches to the new block.
func (s *Selection) Select(id string) bool {
	if _, ok := s.store.Find(id); !ok {
		return false
	}
	s.selected = id
	return true
}

// Selected returns the block currently open for editing.
func (s *Selection) Selected() (*blocks.Block, bool) {
	if s.selected == "" {
		return nil, false
	}
	return s.store.Find(s.selected)
}

// Commit coerces fields against the registry schema of the selected block,
// writes them in place and returns to idle. It is a no-op while idle. When
// the selected block has been removed meanwhile the selection is dropped
// without effect.
func (s *Selection) Commit(fields map[string]string) (*blocks.Block, bool) {
	if s.selected == "" {
		return nil, false
	}
	b, ok := s.store.Find(s.selected)
	s.selected = ""
	if !ok {
		return nil, false
	}
	blocks.Configure(b, fields)
	return b, true
}

// Cancel returns to idle without touching the block.
func (s *Selection) Cancel() {
	s.selected = ""
}
