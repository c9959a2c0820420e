package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/anjaninandan001/algo-tinker/internal/backtest"
	"github.com/anjaninandan001/algo-tinker/internal/blocks"
	"github.com/anjaninandan001/algo-tinker/internal/editor"
	"github.com/anjaninandan001/algo-tinker/internal/events"
	"github.com/anjaninandan001/algo-tinker/internal/market"
	"github.com/anjaninandan001/algo-tinker/internal/monitor"
	"github.com/anjaninandan001/algo-tinker/internal/papertrade"
	"github.com/anjaninandan001/algo-tinker/internal/persist"
	"github.com/anjaninandan001/algo-tinker/internal/results"
	"github.com/anjaninandan001/algo-tinker/internal/strategy"

	log "github.com/sirupsen/logrus"
)

var (
	// ErrEmptyStrategy is returned when run, save or paper trade is asked of
	// an empty canvas.
	ErrEmptyStrategy = errors.New("Please add at least one block to create a strategy.")
	ErrBlockNotFound = errors.New("block not found")
	ErrNoReport      = errors.New("no backtest results")
	ErrInvalidInput  = errors.New("invalid input")
	ErrUnavailable   = errors.New("service not available")
)

// Impl implements the Service interface by composing the workbench modules.
type Impl struct {
	sessions   *editor.Manager
	backtester backtest.Backtester
	store      persist.Store
	paper      *papertrade.Service
	market     market.Provider
	bus        *events.Bus
	metrics    *monitor.SystemMetrics

	autoComplete bool
	meta         SystemStatus
	now          func() time.Time
}

// Config holds the configuration for creating an engine implementation.
type Config struct {
	Sessions   *editor.Manager
	Backtester backtest.Backtester
	Store      persist.Store
	Paper      *papertrade.Service
	Market     market.Provider
	Bus        *events.Bus
	Metrics    *monitor.SystemMetrics

	// AutoCompleteRules fills a default indicator and entry/exit rules into
	// incomplete requests before they are sent.
	AutoCompleteRules bool
	Meta              SystemStatus
}

// NewImpl creates a new engine implementation.
func NewImpl(cfg Config) *Impl {
	sessions := cfg.Sessions
	if sessions == nil {
		sessions = editor.NewManager(0, nil)
	}
	meta := cfg.Meta
	meta.AutoCompleteRules = cfg.AutoCompleteRules
	if meta.StartedAt.IsZero() {
		meta.StartedAt = time.Now().UTC()
	}
	return &Impl{
		sessions:     sessions,
		backtester:   cfg.Backtester,
		store:        cfg.Store,
		paper:        cfg.Paper,
		market:       cfg.Market,
		bus:          cfg.Bus,
		metrics:      cfg.Metrics,
		autoComplete: cfg.AutoCompleteRules,
		meta:         meta,
		now:          time.Now,
	}
}

// Market exposes the market data provider for read-only lookups.
func (e *Impl) Market() market.Provider { return e.market }

// Sessions exposes the session registry for background sweeping.
func (e *Impl) Sessions() *editor.Manager { return e.sessions }

func (e *Impl) publish(t events.Event, s *editor.Session, blockID string, data any) {
	if e.bus == nil {
		return
	}
	e.bus.Publish(t, events.SessionEvent{
		Type:       t,
		SessionID:  s.ID,
		Generation: s.Ticket().Generation,
		BlockID:    blockID,
		Data:       data,
		At:         e.now().UTC(),
	})
}

func (e *Impl) session(id string) (*editor.Session, error) {
	return e.sessions.Get(id)
}

// --- Palette ---

func (e *Impl) Palette() []blocks.PaletteItem {
	return blocks.Palette()
}

// --- Sessions ---

func (e *Impl) CreateSession(ctx context.Context) *SessionView {
	s := e.sessions.Create()
	e.updateSessionGauge()
	return sessionView(s.Snapshot(), false)
}

func (e *Impl) GetSession(ctx context.Context, id string) (*SessionView, error) {
	s, err := e.session(id)
	if err != nil {
		return nil, err
	}
	_, has := s.Report()
	return sessionView(s.Snapshot(), has), nil
}

func (e *Impl) CloseSession(ctx context.Context, id string) error {
	if err := e.sessions.Delete(id); err != nil {
		return err
	}
	e.updateSessionGauge()
	return nil
}

func (e *Impl) UpdateSettings(ctx context.Context, id string, in Settings) (*SessionView, error) {
	s, err := e.session(id)
	if err != nil {
		return nil, err
	}
	next := s.Settings()
	if sym := strings.TrimSpace(in.Symbol); sym != "" {
		next.Symbol = sym
	}
	if in.StartDate != "" {
		d, err := time.Parse(editor.DateLayout, in.StartDate)
		if err != nil {
			return nil, fmt.Errorf("%w: start_date: %v", ErrInvalidInput, err)
		}
		next.StartDate = d
	}
	if in.EndDate != "" {
		d, err := time.Parse(editor.DateLayout, in.EndDate)
		if err != nil {
			return nil, fmt.Errorf("%w: end_date: %v", ErrInvalidInput, err)
		}
		next.EndDate = d
	}
	if in.Capital != 0 {
		next.Capital = in.Capital
	}
	if err := next.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	s.SetSettings(next)
	e.publish(events.EventSettingsChanged, s, "", settingsView(s.Settings()))

	_, has := s.Report()
	return sessionView(s.Snapshot(), has), nil
}

// timer starts a latency timer on the histogram pick selects, or an
// unrecorded one when metrics are off.
func (e *Impl) timer(pick func(*monitor.SystemMetrics) *monitor.LatencyHistogram) *monitor.Timer {
	if e.metrics == nil {
		return monitor.NewTimer(nil)
	}
	return monitor.NewTimer(pick(e.metrics))
}

func (e *Impl) dbTimer() *monitor.Timer {
	return e.timer(func(m *monitor.SystemMetrics) *monitor.LatencyHistogram { return m.DBLatency })
}

func (e *Impl) updateSessionGauge() {
	if e.metrics != nil {
		e.metrics.SetActiveSessions(e.sessions.Len())
	}
}

// --- Canvas editing ---

func (e *Impl) AddBlock(ctx context.Context, id string, t blocks.Type, indicatorType string, x, y float64) (*BlockView, error) {
	s, err := e.session(id)
	if err != nil {
		return nil, err
	}
	b, err := s.AddBlock(t, indicatorType, x, y)
	if err != nil {
		return nil, err
	}
	v := blockView(b)
	e.publish(events.EventBlockCreated, s, b.ID, v)
	return &v, nil
}

func (e *Impl) RemoveBlock(ctx context.Context, id, blockID string) error {
	s, err := e.session(id)
	if err != nil {
		return err
	}
	if !s.RemoveBlock(blockID) {
		return ErrBlockNotFound
	}
	e.publish(events.EventBlockRemoved, s, blockID, nil)
	return nil
}

func (e *Impl) SelectBlock(ctx context.Context, id, blockID string) (*EditState, error) {
	s, err := e.session(id)
	if err != nil {
		return nil, err
	}
	if !s.Select(blockID) {
		return nil, ErrBlockNotFound
	}
	e.publish(events.EventSelectionChanged, s, blockID, nil)
	return e.editState(s), nil
}

func (e *Impl) CommitBlock(ctx context.Context, id string, fields map[string]string) (*CommitResult, error) {
	s, err := e.session(id)
	if err != nil {
		return nil, err
	}
	b, ok := s.Commit(fields)
	if !ok {
		return &CommitResult{Committed: false, Warnings: []blocks.DanglingReference{}}, nil
	}
	v := blockView(b)
	e.publish(events.EventBlockConfigured, s, b.ID, v)
	return &CommitResult{Committed: true, Block: &v, Warnings: dangling(s.Blocks())}, nil
}

func (e *Impl) CancelEdit(ctx context.Context, id string) (*EditState, error) {
	s, err := e.session(id)
	if err != nil {
		return nil, err
	}
	s.Cancel()
	e.publish(events.EventSelectionChanged, s, "", nil)
	return e.editState(s), nil
}

func (e *Impl) editState(s *editor.Session) *EditState {
	state, selected := s.SelectionState()
	es := &EditState{State: state, Selected: selected}
	if state != editor.StateEditing {
		return es
	}
	b, ok := s.Block(selected)
	if !ok {
		return es
	}
	v := blockView(b)
	es.Block = &v
	es.Fields = blocks.LookupBlock(b).Fields
	if b.Type.IsRule() {
		es.References = blocks.AvailableReferences(s.Blocks())
	}
	return es
}

func (e *Impl) ClearStrategy(ctx context.Context, id string) error {
	s, err := e.session(id)
	if err != nil {
		return err
	}
	s.Clear()
	e.publish(events.EventStrategyCleared, s, "", nil)
	return nil
}

// --- Serialization ---

func (e *Impl) BuildRequest(ctx context.Context, id string) (*strategy.Request, error) {
	s, err := e.session(id)
	if err != nil {
		return nil, err
	}
	req := strategy.ToRequest(s.Blocks())
	return &req, nil
}

func (e *Impl) References(ctx context.Context, id string) (*ReferenceSet, error) {
	s, err := e.session(id)
	if err != nil {
		return nil, err
	}
	all := s.Blocks()
	return &ReferenceSet{Available: blocks.AvailableReferences(all), Dangling: dangling(all)}, nil
}

func dangling(bs []*blocks.Block) []blocks.DanglingReference {
	out := blocks.DanglingReferences(bs)
	if out == nil {
		out = []blocks.DanglingReference{}
	}
	return out
}

// --- Backtest ---

// RunBacktest sends the session's strategy to the backtest service. The
// result is applied only if the canvas has not changed since the request
// was built; otherwise it is dropped and editor.ErrStale returned.
func (e *Impl) RunBacktest(ctx context.Context, id string) (*BacktestOutcome, error) {
	if e.backtester == nil {
		return nil, fmt.Errorf("%w: backtest", ErrUnavailable)
	}
	s, err := e.session(id)
	if err != nil {
		return nil, err
	}
	snap := s.Snapshot()
	if len(snap.Blocks) == 0 {
		return nil, ErrEmptyStrategy
	}
	if err := snap.Settings.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	req := strategy.ToRequest(snap.Blocks)
	if e.autoComplete {
		req = strategy.Complete(req)
	}
	btReq := backtest.Request{
		Blocks:    req,
		Symbol:    snap.Settings.Symbol,
		StartDate: snap.Settings.StartDate.Format(editor.DateLayout),
		EndDate:   snap.Settings.EndDate.Format(editor.DateLayout),
		Capital:   snap.Settings.Capital,
	}

	e.publish(events.EventBacktestStarted, s, "", nil)
	timer := e.timer(func(m *monitor.SystemMetrics) *monitor.LatencyHistogram { return m.BacktestLatency })
	resp, err := e.backtester.Run(ctx, btReq)
	elapsed := timer.Stop()
	if err != nil {
		if e.metrics != nil {
			e.metrics.IncrementBacktests(true)
		}
		log.Errorf("[BACKTEST] session %s: %v", s.ID, err)
		return nil, err
	}
	if e.metrics != nil {
		e.metrics.IncrementBacktests(resp.Error != "")
	}

	report := results.Project(*resp, snap.Settings.StartDate)
	if err := s.ApplyReport(snap.Ticket, &report); err != nil {
		if e.metrics != nil {
			e.metrics.IncrementStaleDiscards()
		}
		e.publish(events.EventBacktestDiscarded, s, "", nil)
		log.Infof("[BACKTEST] %v", err)
		return nil, err
	}
	e.publish(events.EventBacktestCompleted, s, "", report.Error)

	return &BacktestOutcome{
		Generation: snap.Ticket.Generation,
		Request:    req,
		Report:     &report,
		Warnings:   dangling(snap.Blocks),
		Duration:   elapsed,
	}, nil
}

func (e *Impl) LastReport(ctx context.Context, id string) (*results.Report, error) {
	s, err := e.session(id)
	if err != nil {
		return nil, err
	}
	r, ok := s.Report()
	if !ok {
		return nil, ErrNoReport
	}
	return r, nil
}

func (e *Impl) RenderEquityChart(ctx context.Context, id string, w io.Writer) error {
	s, err := e.session(id)
	if err != nil {
		return err
	}
	r, ok := s.Report()
	if !ok {
		return ErrNoReport
	}
	st := s.Settings()
	title := fmt.Sprintf("%s %s to %s", st.Symbol, st.StartDate.Format(editor.DateLayout), st.EndDate.Format(editor.DateLayout))
	return results.RenderEquityChart(w, r, title)
}

// --- Saved strategies ---

func (e *Impl) SaveStrategy(ctx context.Context, id, userID, username, name string) (string, error) {
	if e.store == nil {
		return "", fmt.Errorf("%w: strategy store", ErrUnavailable)
	}
	s, err := e.session(id)
	if err != nil {
		return "", err
	}
	snap := s.Snapshot()
	if len(snap.Blocks) == 0 {
		return "", ErrEmptyStrategy
	}
	rec := persist.Record{
		Name:      name,
		Symbol:    snap.Settings.Symbol,
		StartDate: snap.Settings.StartDate.Format(editor.DateLayout),
		EndDate:   snap.Settings.EndDate.Format(editor.DateLayout),
		Capital:   snap.Settings.Capital,
		Blocks:    strategy.Dump(snap.Blocks),
		Username:  username,
	}
	t := e.dbTimer()
	saved, err := e.store.Save(ctx, userID, rec)
	t.Stop()
	if err != nil {
		return "", err
	}
	log.Infof("[STRATEGY] %s saved %q (%d blocks)", userID, saved, len(snap.Blocks))
	return saved, nil
}

// LoadStrategy replaces the session's canvas with a saved strategy. The
// session is untouched when the lookup fails, and a record that arrives
// after the canvas was edited is dropped with editor.ErrStale.
func (e *Impl) LoadStrategy(ctx context.Context, id, userID, name string) (*SessionView, error) {
	if e.store == nil {
		return nil, fmt.Errorf("%w: strategy store", ErrUnavailable)
	}
	s, err := e.session(id)
	if err != nil {
		return nil, err
	}
	ticket := s.Ticket()
	t := e.dbTimer()
	rec, err := e.store.Load(ctx, userID, name)
	t.Stop()
	if err != nil {
		return nil, err
	}

	loaded := strategy.ToBlocks(rec.Blocks)
	_, err = s.ReplaceIf(ticket, loaded, rec.Symbol, func(cur editor.Settings) editor.Settings {
		next, _ := recordSettings(cur, rec)
		return next
	})
	if err != nil {
		if e.metrics != nil {
			e.metrics.IncrementStaleDiscards()
		}
		log.Warnf("[STRATEGY] load of %q into session %s discarded: %v", rec.Name, id, err)
		return nil, err
	}
	e.publish(events.EventStrategyLoaded, s, "", rec.Name)

	_, has := s.Report()
	return sessionView(s.Snapshot(), has), nil
}

// recordSettings overlays the dates and capital saved with rec, keeping the
// current values for anything missing or unparsable.
func recordSettings(cur editor.Settings, rec *persist.Record) (editor.Settings, bool) {
	next := cur
	if d, err := time.Parse(editor.DateLayout, rec.StartDate); err == nil {
		next.StartDate = d
	}
	if d, err := time.Parse(editor.DateLayout, rec.EndDate); err == nil {
		next.EndDate = d
	}
	if rec.Capital > 0 {
		next.Capital = rec.Capital
	}
	if next == cur || next.Validate() != nil {
		return cur, false
	}
	return next, true
}

func (e *Impl) ListStrategies(ctx context.Context, userID string) ([]persist.Summary, error) {
	if e.store == nil {
		return nil, fmt.Errorf("%w: strategy store", ErrUnavailable)
	}
	defer e.dbTimer().Stop()
	return e.store.List(ctx, userID)
}

func (e *Impl) GetStrategy(ctx context.Context, userID, name string) (*persist.Record, error) {
	if e.store == nil {
		return nil, fmt.Errorf("%w: strategy store", ErrUnavailable)
	}
	return e.store.Load(ctx, userID, name)
}

func (e *Impl) DeleteStrategy(ctx context.Context, userID, name string) error {
	if e.store == nil {
		return fmt.Errorf("%w: strategy store", ErrUnavailable)
	}
	return e.store.Delete(ctx, userID, name)
}

// SyncTemplates publishes the templates as shared strategies.
func (e *Impl) SyncTemplates(ctx context.Context, templates []strategy.Template) error {
	if e.store == nil {
		return fmt.Errorf("%w: strategy store", ErrUnavailable)
	}
	recs := make([]persist.Record, 0, len(templates))
	for _, t := range templates {
		recs = append(recs, persist.Record{Name: t.Name, Symbol: t.Symbol, Blocks: t.Blocks, Username: "templates"})
	}
	return e.store.SyncShared(ctx, recs)
}

// --- Paper trading ---

// PaperTrade executes o for userID. With a session id the canvas must not
// be empty and a missing symbol defaults to the session's.
func (e *Impl) PaperTrade(ctx context.Context, userID, sessionID string, o papertrade.Order) (*papertrade.Fill, error) {
	if e.paper == nil {
		return nil, fmt.Errorf("%w: paper trading", ErrUnavailable)
	}
	var s *editor.Session
	if sessionID != "" {
		var err error
		if s, err = e.session(sessionID); err != nil {
			return nil, err
		}
		if s.Len() == 0 {
			return nil, ErrEmptyStrategy
		}
		if strings.TrimSpace(o.Symbol) == "" {
			o.Symbol = s.Settings().Symbol
		}
	}

	t := e.dbTimer()
	fill, err := e.paper.Execute(ctx, userID, o)
	t.Stop()
	if err != nil {
		return nil, err
	}
	if e.metrics != nil {
		e.metrics.IncrementPaperTrades()
	}
	if s != nil {
		e.publish(events.EventPaperTrade, s, "", fill)
	}
	return fill, nil
}

func (e *Impl) Portfolio(ctx context.Context, userID string) (*papertrade.Portfolio, error) {
	if e.paper == nil {
		return nil, fmt.Errorf("%w: paper trading", ErrUnavailable)
	}
	return e.paper.Portfolio(ctx, userID)
}

// --- System ---

func (e *Impl) GetSystemStatus(ctx context.Context) *SystemStatus {
	status := e.meta
	status.ActiveSessions = e.sessions.Len()
	status.ServerTime = e.now().UTC()
	return &status
}

// Ping probes the external dependencies. A nil entry is healthy.
func (e *Impl) Ping(ctx context.Context) map[string]error {
	out := map[string]error{}
	if e.backtester != nil {
		out["backtest"] = e.backtester.Ping(ctx)
	}
	if e.market != nil {
		_, err := e.market.Status(ctx)
		out["market"] = err
	}
	if e.store != nil {
		_, err := e.store.List(ctx, "healthcheck")
		out["strategy_store"] = err
	}
	return out
}
