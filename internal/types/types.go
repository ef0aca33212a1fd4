package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Side is the execution side of a trade.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

func (s Side) Valid() bool { return s == SideBuy || s == SideSell }

// Direction is the exposure direction of a derivative lot.
type Direction string

const (
	DirectionLong  Direction = "long"
	DirectionShort Direction = "short"
)

func (d Direction) Valid() bool { return d == DirectionLong || d == DirectionShort }

// Sign returns +1 for long exposure and -1 for short, the factor applied to
// price moves when computing realized PnL.
func (d Direction) Sign() decimal.Decimal {
	if d == DirectionShort {
		return decimal.NewFromInt(-1)
	}
	return decimal.NewFromInt(1)
}

// Offset tells whether a derivative trade opens new exposure or closes
// existing exposure. Cash instruments ignore it.
type Offset string

const (
	OffsetOpen  Offset = "open"
	OffsetClose Offset = "close"
)

// InstrumentType classifies an instrument for position-variant dispatch.
// The set is closed: every instrument is accounted either as a cash position
// or as a margined position.
type InstrumentType string

const (
	InstrumentUnknown InstrumentType = "unknown"
	InstrumentStock   InstrumentType = "stock"
	InstrumentFuture  InstrumentType = "future"
)

// Trade is one executed fill delivered by the execution feed.
type Trade struct {
	TradeID      string
	InstrumentID string
	ExchangeID   string
	Side         Side
	Offset       Offset
	Price        decimal.Decimal
	Volume       decimal.Decimal
	TradingDay   string
	TradeTime    time.Time
}

// Valid reports whether price and volume are strictly positive.
func (t Trade) Valid() bool {
	return t.Price.IsPositive() && t.Volume.IsPositive() && t.Side.Valid()
}

// ClosingDirection maps the trade's side to the exposure direction it closes:
// selling closes long exposure, buying back closes short exposure.
func (t Trade) ClosingDirection() Direction {
	if t.Side == SideBuy {
		return DirectionShort
	}
	return DirectionLong
}

// OpeningDirection maps the trade's side to the exposure direction it opens.
func (t Trade) OpeningDirection() Direction {
	if t.Side == SideBuy {
		return DirectionLong
	}
	return DirectionShort
}

// Quote is a market-data tick. LastPrice zero means no quote is known yet;
// valuation falls back to cost basis in that case.
type Quote struct {
	InstrumentID string
	ExchangeID   string
	LastPrice    decimal.Decimal
	QuoteTime    time.Time
}
