package position

import (
	"posbook/internal/instrument"
	"posbook/internal/ledger"
	"posbook/internal/types"

	"github.com/shopspring/decimal"
)

// MarginedPosition accounts a futures-style instrument with per-lot detail.
// Open trades append lots to the direction's FIFO queue and reserve margin;
// closing trades consume the oldest lots of the opposite exposure first.
// Margin is summed across both queues and never netted between directions.
type MarginedPosition struct {
	base

	spec       instrument.Spec
	tradingDay string

	longLots    lotQueue
	shortLots   lotQueue
	realizedPnL decimal.Decimal
}

func NewMargined(spec instrument.Spec, led *ledger.Ledger, tradingDay string) *MarginedPosition {
	return &MarginedPosition{
		base:       newBase(spec, led),
		spec:       spec,
		tradingDay: tradingDay,
	}
}

// RestoreMargined rebuilds a margined position from persisted lots.
func RestoreMargined(spec instrument.Spec, led *ledger.Ledger, tradingDay string, lots []*Lot, realizedPnL, lastPrice decimal.Decimal) *MarginedPosition {
	p := NewMargined(spec, led, tradingDay)
	for _, l := range lots {
		p.queueFor(l.Direction).PushBack(l)
	}
	p.realizedPnL = realizedPnL
	p.lastPrice = lastPrice
	return p
}

func (p *MarginedPosition) TradingDay() string           { return p.tradingDay }
func (p *MarginedPosition) RealizedPnL() decimal.Decimal { return p.realizedPnL }
func (p *MarginedPosition) LongVolume() decimal.Decimal  { return p.longLots.TotalVolume() }
func (p *MarginedPosition) ShortVolume() decimal.Decimal { return p.shortLots.TotalVolume() }

var _ Position = (*MarginedPosition)(nil)

func (p *MarginedPosition) queueFor(d types.Direction) *lotQueue {
	if d == types.DirectionShort {
		return &p.shortLots
	}
	return &p.longLots
}

// Margin sums the requirement over every open lot of both queues.
func (p *MarginedPosition) Margin() decimal.Decimal {
	total := decimal.Zero
	for _, q := range []*lotQueue{&p.longLots, &p.shortLots} {
		for _, l := range q.lots {
			total = total.Add(l.Margin())
		}
	}
	return total
}

// MarketValue is the notional value of all open lots, valued at the last
// quote with a per-lot fallback to the open price.
func (p *MarginedPosition) MarketValue() decimal.Decimal {
	total := decimal.Zero
	for _, q := range []*lotQueue{&p.longLots, &p.shortLots} {
		for _, l := range q.lots {
			price := p.lastPrice
			if !price.IsPositive() {
				price = l.OpenPrice
			}
			total = total.Add(l.ContractMultiplier.Mul(price).Mul(l.Volume))
		}
	}
	return total
}

// UnrealizedPnL marks every open lot against the last quote; without a quote
// it reports zero rather than a spurious number off a zero price.
func (p *MarginedPosition) UnrealizedPnL() decimal.Decimal {
	if !p.lastPrice.IsPositive() {
		return decimal.Zero
	}
	total := decimal.Zero
	for _, q := range []*lotQueue{&p.longLots, &p.shortLots} {
		for _, l := range q.lots {
			move := p.lastPrice.Sub(l.OpenPrice).Mul(l.Volume).Mul(l.ContractMultiplier).Mul(l.Direction.Sign())
			total = total.Add(move)
		}
	}
	return total
}

func (p *MarginedPosition) ApplyTrade(trade types.Trade) error {
	if !trade.Valid() {
		return ErrInvalidTrade
	}
	switch trade.Offset {
	case types.OffsetOpen:
		p.applyOpen(trade)
		return nil
	case types.OffsetClose:
		return p.applyClose(trade)
	default:
		return ErrInvalidTrade
	}
}

// applyOpen builds a lot from the fill and the current trading-day context,
// appends it to the tail of its direction queue, and reserves its margin.
func (p *MarginedPosition) applyOpen(trade types.Trade) {
	lot := &Lot{
		OpenPrice:          trade.Price,
		OpenDate:           p.tradingDay,
		TradingDay:         p.tradingDay,
		Direction:          trade.OpeningDirection(),
		Volume:             trade.Volume,
		ContractMultiplier: p.spec.ContractMultiplier,
		MarginRatio:        p.spec.MarginRatio,
	}
	p.ledger.SubAvail(lot.Margin())
	p.queueFor(lot.Direction).PushBack(lot)
}

// applyClose consumes lots from the front of the queue matching the trade's
// stated closing side: a sell closes long lots, a buy-back closes short
// lots. The whole requested volume is checked against the queue up front so
// an oversized close rejects before any lot or ledger mutation.
func (p *MarginedPosition) applyClose(trade types.Trade) error {
	queue := p.queueFor(trade.ClosingDirection())
	if trade.Volume.GreaterThan(queue.TotalVolume()) {
		return ErrInsufficientPosition
	}
	left := trade.Volume
	for left.IsPositive() && queue.Len() > 0 {
		lot := queue.PeekFront()
		closed, realized, marginDelta := lot.ApplyClose(trade.Price, left)
		lot.Volume = lot.Volume.Sub(closed)
		left = left.Sub(closed)
		p.realizedPnL = p.realizedPnL.Add(realized)
		p.ledger.AddRealizedPnL(realized)
		p.ledger.AddAvail(realized.Sub(marginDelta))
		if !lot.Volume.IsPositive() {
			queue.PopFront()
		}
	}
	return nil
}

// ApplySettlement revalues every lot of both queues to the settlement price,
// sums the per-lot deltas, and applies the aggregate to the ledger exactly
// once.
func (p *MarginedPosition) ApplySettlement(price decimal.Decimal) error {
	totalDelta := decimal.Zero
	for _, q := range []*lotQueue{&p.longLots, &p.shortLots} {
		for _, l := range q.lots {
			totalDelta = totalDelta.Add(l.ApplySettlement(price))
		}
	}
	p.ledger.SubAvail(totalDelta)
	return nil
}

// SwitchDay rolls every lot's settlement bookkeeping forward one step and
// adopts the new trading day for subsequent opens.
func (p *MarginedPosition) SwitchDay(tradingDay string) {
	for _, q := range []*lotQueue{&p.longLots, &p.shortLots} {
		for _, l := range q.lots {
			l.SwitchDay(tradingDay)
		}
	}
	p.tradingDay = tradingDay
}

// Lots returns all open lots, long queue first, oldest first within each
// queue. Used by persistence.
func (p *MarginedPosition) Lots() []*Lot {
	out := make([]*Lot, 0, p.longLots.Len()+p.shortLots.Len())
	out = append(out, p.longLots.lots...)
	out = append(out, p.shortLots.lots...)
	return out
}

func (p *MarginedPosition) Snapshot() types.PositionSnapshot {
	snap := p.identitySnapshot()
	snap.Margin = toFloat(p.Margin())
	snap.MarketValue = toFloat(p.MarketValue())
	snap.RealizedPnL = toFloat(p.realizedPnL)
	snap.UnrealizedPnL = toFloat(p.UnrealizedPnL())
	for _, l := range p.longLots.lots {
		snap.LongLots = append(snap.LongLots, l.snapshot())
	}
	for _, l := range p.shortLots.lots {
		snap.ShortLots = append(snap.ShortLots, l.snapshot())
	}
	return snap
}
