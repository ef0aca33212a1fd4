package account

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"posbook/internal/instrument"
	"posbook/internal/ledger"
	"posbook/internal/logger"
	"posbook/internal/position"
	ptypes "posbook/internal/types"
)

// Actor owns one account: its ledger and every position referencing it.
// All mutation flows through a single event loop, so the non-atomic
// read-then-write sequences against the shared ledger never interleave.
// Reads go through the published snapshot, never through actor internals.
type Actor struct {
	accountID  string
	tradingDay string

	ledger    *ledger.Ledger
	positions map[string]position.Position
	registry  *instrument.Registry

	journal Journal
	store   SnapshotStore

	eventRegistry *HandlerRegistry

	msgCh  chan EventEnvelope
	stopCh chan struct{}
	wg     sync.WaitGroup

	snapshot atomic.Value
}

// Config assembles an actor.
type Config struct {
	AccountID  string
	TradingDay string
	Ledger     *ledger.Ledger
	Registry   *instrument.Registry
	Journal    Journal
	Store      SnapshotStore
}

func NewActor(cfg Config) (*Actor, error) {
	if cfg.AccountID == "" {
		return nil, fmt.Errorf("account actor requires an account id")
	}
	if cfg.Ledger == nil {
		return nil, fmt.Errorf("account actor requires a ledger")
	}
	if cfg.Registry == nil {
		return nil, fmt.Errorf("account actor requires an instrument registry")
	}
	eventReg := NewHandlerRegistry()
	eventReg.RegisterDefaultHandlers()

	a := &Actor{
		accountID:     cfg.AccountID,
		tradingDay:    cfg.TradingDay,
		ledger:        cfg.Ledger,
		positions:     make(map[string]position.Position),
		registry:      cfg.Registry,
		journal:       cfg.Journal,
		store:         cfg.Store,
		eventRegistry: eventReg,
		msgCh:         make(chan EventEnvelope, 256),
		stopCh:        make(chan struct{}),
	}
	a.refreshSnapshot()
	return a, nil
}

func (a *Actor) AccountID() string { return a.accountID }

// Restore seeds a position rebuilt from persistence. Must be called before
// Start; the actor loop owns the map afterwards.
func (a *Actor) Restore(pos position.Position) {
	a.positions[pos.SymbolID()] = pos
	a.refreshSnapshot()
}

func (a *Actor) Start() {
	a.wg.Add(1)
	go a.runLoop()
}

func (a *Actor) Stop() {
	close(a.stopCh)
	a.wg.Wait()
}

// Send queues an event without waiting for the result.
func (a *Actor) Send(evt EventEnvelope) error {
	select {
	case a.msgCh <- evt:
		return nil
	case <-a.stopCh:
		return fmt.Errorf("account %s actor is stopped", a.accountID)
	}
}

// SendSync queues an event and waits for the handler result.
func (a *Actor) SendSync(ctx context.Context, evt EventEnvelope) error {
	if evt.ReplyCh == nil {
		evt.ReplyCh = make(chan error, 1)
	}
	if err := a.Send(evt); err != nil {
		return err
	}
	select {
	case err := <-evt.ReplyCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-a.stopCh:
		return fmt.Errorf("account %s actor stopped during sync call", a.accountID)
	}
}

// Snapshot returns the last published account view. Safe from any goroutine.
func (a *Actor) Snapshot() ptypes.AccountSnapshot {
	val := a.snapshot.Load()
	if val == nil {
		return ptypes.AccountSnapshot{AccountID: a.accountID}
	}
	return val.(ptypes.AccountSnapshot)
}

func (a *Actor) runLoop() {
	defer a.wg.Done()
	logger.Infof("account %s: actor started", a.accountID)

	for {
		select {
		case evt := <-a.msgCh:
			a.handleEvent(evt)
		case <-a.stopCh:
			logger.Infof("account %s: actor stopping", a.accountID)
			return
		}
	}
}

// handleEvent journals, dispatches, and republishes the snapshot. A panic in
// a handler is contained to the event that caused it.
func (a *Actor) handleEvent(evt EventEnvelope) {
	var err error
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("account %s: panic handling %s: %v", a.accountID, evt.Type, r)
			debug.PrintStack()
			err = fmt.Errorf("panic: %v", r)
		}
		if evt.ReplyCh != nil {
			evt.ReplyCh <- err
			close(evt.ReplyCh)
		}
		if dur := time.Since(start); dur > 100*time.Millisecond {
			logger.Warnf("account %s: slow event %s took %v", a.accountID, evt.Type, dur)
		}
	}()

	if a.journal != nil {
		if jerr := a.journal.Append(a.journalRecord(evt)); jerr != nil {
			logger.Errorf("account %s: journal append failed for %s: %v", a.accountID, evt.Type, jerr)
		}
	}

	handler, ok := a.eventRegistry.Get(evt.Type)
	if !ok {
		logger.Warnf("account %s: no handler for event type %s", a.accountID, evt.Type)
		return
	}

	err = handler.Handle(NewHandlerContext(a), evt.Payload, evt.ID)
	if err != nil {
		logger.Errorf("account %s: %s failed: %v", a.accountID, evt.Type, err)
	}

	a.refreshSnapshot()
	a.persistSnapshot()
}

// positionFor returns the position owning a symbol, creating the matching
// variant from the resolver on first touch.
func (a *Actor) positionFor(instrumentID, exchangeID string) (position.Position, error) {
	symbolID := instrument.SymbolID(instrumentID, exchangeID)
	if pos, ok := a.positions[symbolID]; ok {
		return pos, nil
	}
	spec, err := a.registry.Resolver().Resolve(instrumentID, exchangeID)
	if err != nil {
		return nil, err
	}
	pos := position.New(spec, a.ledger, a.tradingDay)
	a.positions[symbolID] = pos
	logger.Infof("account %s: opened %s position book for %s", a.accountID, spec.InstrumentType, symbolID)
	return pos, nil
}

func (a *Actor) refreshSnapshot() {
	snap := ptypes.AccountSnapshot{
		AccountID:  a.accountID,
		TradingDay: a.tradingDay,
		Ledger:     a.ledger.Snapshot(),
		UpdatedAt:  time.Now(),
	}
	for _, pos := range a.positions {
		snap.Positions = append(snap.Positions, pos.Snapshot())
	}
	sort.Slice(snap.Positions, func(i, j int) bool {
		return snap.Positions[i].SymbolID < snap.Positions[j].SymbolID
	})
	a.snapshot.Store(snap)
}

func (a *Actor) persistSnapshot() {
	if a.store == nil {
		return
	}
	if err := a.store.SaveAccount(a.Snapshot()); err != nil {
		logger.Errorf("account %s: snapshot persist failed: %v", a.accountID, err)
	}
}

func (a *Actor) journalRecord(evt EventEnvelope) JournalRecord {
	payload, err := json.Marshal(evt.Payload)
	if err != nil {
		payload = []byte(fmt.Sprintf(`{"marshal_error":%q}`, err.Error()))
	}
	return JournalRecord{
		EventID:   evt.ID,
		AccountID: a.accountID,
		Type:      string(evt.Type),
		Payload:   payload,
		CreatedAt: evt.CreatedAt,
	}
}
