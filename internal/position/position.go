package position

import (
	"posbook/internal/instrument"
	"posbook/internal/ledger"
	"posbook/internal/types"

	"github.com/shopspring/decimal"
)

// Position is the accounting contract implemented by both concrete variants.
// The set of variants is closed: stocks are accounted as cash positions,
// futures as margined positions with per-lot detail.
//
// All mutating operations assume single-writer discipline: the owning account
// actor serializes them together with every other mutation of the shared
// ledger. No operation blocks or performs I/O.
type Position interface {
	InstrumentID() string
	ExchangeID() string
	InstrumentType() types.InstrumentType
	SymbolID() string
	LastPrice() decimal.Decimal

	// ApplyTrade mutates position and ledger state for one executed trade.
	// Trades with non-positive price or volume fail with ErrInvalidTrade and
	// leave the ledger untouched.
	ApplyTrade(trade types.Trade) error

	// ApplyQuote updates the valuation price. Never touches the ledger.
	ApplyQuote(quote types.Quote)

	// ApplySettlement marks the position to a settlement price. The margined
	// variant also revalues margin and moves the aggregate delta to the
	// ledger in a single step.
	ApplySettlement(price decimal.Decimal) error

	// SwitchDay rolls per-day price bookkeeping forward. Called exactly once
	// per trading-day boundary, strictly after that day's settlement.
	SwitchDay(tradingDay string)

	Margin() decimal.Decimal
	MarketValue() decimal.Decimal
	RealizedPnL() decimal.Decimal
	UnrealizedPnL() decimal.Decimal

	Snapshot() types.PositionSnapshot
}

// New builds the variant matching the instrument spec. Unknown types are the
// resolver's problem; by the time a spec exists the variant is decided.
func New(spec instrument.Spec, led *ledger.Ledger, tradingDay string) Position {
	if spec.InstrumentType == types.InstrumentFuture {
		return NewMargined(spec, led, tradingDay)
	}
	return NewCash(spec, led)
}

// base carries the identity and valuation state shared by both variants.
// symbolID is always derived from instrument and exchange, never set
// independently.
type base struct {
	instrumentID   string
	exchangeID     string
	instrumentType types.InstrumentType
	symbolID       string
	lastPrice      decimal.Decimal
	ledger         *ledger.Ledger
}

func newBase(spec instrument.Spec, led *ledger.Ledger) base {
	return base{
		instrumentID:   spec.InstrumentID,
		exchangeID:     spec.ExchangeID,
		instrumentType: spec.InstrumentType,
		symbolID:       instrument.SymbolID(spec.InstrumentID, spec.ExchangeID),
		ledger:         led,
	}
}

func (b *base) InstrumentID() string                 { return b.instrumentID }
func (b *base) ExchangeID() string                   { return b.exchangeID }
func (b *base) InstrumentType() types.InstrumentType { return b.instrumentType }
func (b *base) SymbolID() string                     { return b.symbolID }
func (b *base) LastPrice() decimal.Decimal           { return b.lastPrice }

// ApplyQuote is shared by both variants: quotes only refresh the derived
// valuation price. A zero price means "unknown" and is stored as-is; negative
// prices are dropped.
func (b *base) ApplyQuote(quote types.Quote) {
	if quote.LastPrice.IsNegative() {
		return
	}
	b.lastPrice = quote.LastPrice
}

func (b *base) identitySnapshot() types.PositionSnapshot {
	last, _ := b.lastPrice.Float64()
	return types.PositionSnapshot{
		InstrumentID:   b.instrumentID,
		ExchangeID:     b.exchangeID,
		SymbolID:       b.symbolID,
		InstrumentType: string(b.instrumentType),
		LastPrice:      last,
	}
}

func toFloat(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}
