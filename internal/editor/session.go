package editor

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/anjaninandan001/algo-tinker/internal/blocks"
	"github.com/anjaninandan001/algo-tinker/internal/results"
)

var (
	// ErrStale is returned when a response arrives for a generation that has
	// since been superseded by an edit, a clear or a load.
	ErrStale = errors.New("stale response discarded")
	// ErrInvalidBlockType is returned for a placement outside the closed set.
	ErrInvalidBlockType = errors.New("invalid block type")
)

// DateLayout is the calendar date format used by settings and requests.
const DateLayout = "2006-01-02"

// Settings are the backtest inputs kept alongside the canvas.
type Settings struct {
	Symbol    string    `json:"symbol"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	Capital   float64   `json:"capital"`
}

// DefaultSettings covers the year leading up to now.
func DefaultSettings(now time.Time, symbol string, capital float64) Settings {
	end := now.UTC().Truncate(24 * time.Hour)
	return Settings{
		Symbol:    strings.ToUpper(symbol),
		StartDate: end.AddDate(-1, 0, 0),
		EndDate:   end,
		Capital:   capital,
	}
}

// Validate checks settings before they are sent to a backtest.
func (s Settings) Validate() error {
	if strings.TrimSpace(s.Symbol) == "" {
		return errors.New("symbol is required")
	}
	if !s.EndDate.After(s.StartDate) {
		return fmt.Errorf("end date %s must be after start date %s",
			s.EndDate.Format(DateLayout), s.StartDate.Format(DateLayout))
	}
	if s.Capital <= 0 {
		return errors.New("capital must be > 0")
	}
	return nil
}

// Ticket captures the generation a request was issued against.
type Ticket struct {
	SessionID  string
	Generation uint64
}

// Snapshot is a consistent copy of a session taken under its lock.
type Snapshot struct {
	ID        string
	Blocks    []*blocks.Block
	Settings  Settings
	State     State
	Selected  string
	Ticket    Ticket
	UpdatedAt time.Time
}

// Session is one editor: a block store, its selection and settings.
// All methods are safe for concurrent use. Blocks handed out are clones.
type Session struct {
	ID string

	mu         sync.Mutex
	store      *blocks.Store
	sel        *Selection
	settings   Settings
	generation uint64
	report     *results.Report
	updatedAt  time.Time
}

// NewSession returns an empty session with the given settings.
func NewSession(id string, settings Settings) *Session {
	store := blocks.NewStore()
	return &Session{
		ID:        id,
		store:     store,
		sel:       NewSelection(store),
		settings:  settings,
		updatedAt: time.Now(),
	}
}

// bump must be called with mu held after every change of the block graph.
func (s *Session) bump() {
	s.generation++
	s.updatedAt = time.Now()
}

// AddBlock places a new block with registry defaults.
func (s *Session) AddBlock(t blocks.Type, indicatorType string, x, y float64) (*blocks.Block, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBlockType, t)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.store.Create(t, indicatorType, x, y)
	s.bump()
	return b.Clone(), nil
}

// RemoveBlock deletes a block. Unknown ids are ignored.
func (s *Session) RemoveBlock(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.store.Remove(id) {
		return false
	}
	s.bump()
	return true
}

// Block returns a copy of one block.
func (s *Session) Block(id string) (*blocks.Block, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.store.Find(id)
	if !ok {
		return nil, false
	}
	return b.Clone(), true
}

// Blocks returns copies of all blocks in display order.
func (s *Session) Blocks() []*blocks.Block {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneAll(s.store.All())
}

// Len returns the number of placed blocks.
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Len()
}

// Select opens a block for editing.
func (s *Session) Select(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sel.Select(id)
}

// Commit applies fields to the selected block and returns to idle.
func (s *Session) Commit(fields map[string]string) (*blocks.Block, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.sel.Commit(fields)
	if !ok {
		return nil, false
	}
	s.bump()
	return b.Clone(), true
}

// Cancel closes the editor without changes.
func (s *Session) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sel.Cancel()
}

// SelectionState reports the selection state machine.
func (s *Session) SelectionState() (State, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sel.State()
}

// Clear removes every block and drops the last report.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store.Clear()
	s.sel.Cancel()
	s.report = nil
	s.bump()
}

// Replace swaps in a loaded strategy. Ids are reassigned by the store.
func (s *Session) Replace(loaded []*blocks.Block, symbol string) []*blocks.Block {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneAll(s.replace(loaded, symbol))
}

// ReplaceIf swaps in a loaded strategy only if t is still current, so a
// slow load cannot overwrite later edits. adjust, if set, rewrites the
// settings in the same step.
func (s *Session) ReplaceIf(t Ticket, loaded []*blocks.Block, symbol string, adjust func(Settings) Settings) ([]*blocks.Block, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.current(t) {
		return nil, fmt.Errorf("session %s generation %d (now %d): %w", s.ID, t.Generation, s.generation, ErrStale)
	}
	restored := s.replace(loaded, symbol)
	if adjust != nil {
		s.settings = adjust(s.settings)
	}
	return cloneAll(restored), nil
}

func (s *Session) replace(loaded []*blocks.Block, symbol string) []*blocks.Block {
	restored := s.store.Restore(loaded)
	s.sel.Cancel()
	s.report = nil
	if sym := strings.TrimSpace(symbol); sym != "" {
		s.settings.Symbol = strings.ToUpper(sym)
	}
	s.bump()
	return restored
}

// Settings returns the current backtest settings.
func (s *Session) Settings() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

// SetSettings replaces the backtest settings. Settings are not part of the
// block graph, so in-flight requests stay current.
func (s *Session) SetSettings(settings Settings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	settings.Symbol = strings.ToUpper(strings.TrimSpace(settings.Symbol))
	s.settings = settings
	s.updatedAt = time.Now()
}

// Ticket captures the current generation before an outbound call.
func (s *Session) Ticket() Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Ticket{SessionID: s.ID, Generation: s.generation}
}

// Current reports whether t still matches the session generation.
func (s *Session) Current(t Ticket) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current(t)
}

func (s *Session) current(t Ticket) bool {
	return t.SessionID == s.ID && t.Generation == s.generation
}

// Snapshot copies blocks, settings and the generation ticket atomically.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, selected := s.sel.State()
	return Snapshot{
		ID:        s.ID,
		Blocks:    cloneAll(s.store.All()),
		Settings:  s.settings,
		State:     state,
		Selected:  selected,
		Ticket:    Ticket{SessionID: s.ID, Generation: s.generation},
		UpdatedAt: s.updatedAt,
	}
}

// ApplyReport stores a projected backtest result if t is still current.
func (s *Session) ApplyReport(t Ticket, r *results.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.current(t) {
		return fmt.Errorf("session %s generation %d (now %d): %w", s.ID, t.Generation, s.generation, ErrStale)
	}
	s.report = r
	return nil
}

// Report returns the last applied backtest result, if any.
func (s *Session) Report() (*results.Report, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.report, s.report != nil
}

func cloneAll(in []*blocks.Block) []*blocks.Block {
	out := make([]*blocks.Block, len(in))
	for i, b := range in {
		out[i] = b.Clone()
	}
	return out
}
