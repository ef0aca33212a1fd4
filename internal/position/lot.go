package position

import (
	"posbook/internal/types"

	"github.com/shopspring/decimal"
)

// Lot is one opened-and-not-yet-closed quantity block of a margined
// position. It carries its own open price and date so closing trades and
// settlement revaluation price against the correct basis. A lot is created by
// an opening trade and discarded by its queue once fully closed.
type Lot struct {
	OpenPrice          decimal.Decimal
	OpenDate           string
	TradingDay         string // the position's current trading day, rolled by SwitchDay
	Direction          types.Direction
	Volume             decimal.Decimal
	ContractMultiplier decimal.Decimal
	MarginRatio        decimal.Decimal
	SettlementPrice    decimal.Decimal
	PreSettlementPrice decimal.Decimal
}

// marginPrice selects the reference price for the margin requirement: the
// current settlement price for lots opened today, the prior settlement price
// for carried lots, and the open price until any settlement exists.
func (l *Lot) marginPrice() decimal.Decimal {
	price := l.PreSettlementPrice
	if l.TradingDay == l.OpenDate {
		price = l.SettlementPrice
	}
	if !price.IsPositive() {
		price = l.OpenPrice
	}
	return price
}

// Margin is the collateral requirement currently held against the lot.
func (l *Lot) Margin() decimal.Decimal {
	return l.calculateMargin(l.marginPrice(), l.Volume)
}

// ApplyClose closes min(l.Volume, want) units at price. It returns the
// closed volume, the signed realized PnL, and the margin delta: the negative
// of the margin freed by the closed quantity. The caller decrements Volume
// and discards the lot once it reaches zero; ApplyClose itself mutates
// nothing.
func (l *Lot) ApplyClose(price, want decimal.Decimal) (closed, realized, marginDelta decimal.Decimal) {
	closed = decimal.Min(l.Volume, want)
	realized = l.calculateRealizedPnL(price, closed)
	marginDelta = l.calculateMargin(price, closed).Neg()
	return closed, realized, marginDelta
}

// ApplySettlement revalues the lot to a new settlement price and returns the
// margin delta pre-versus-post: positive when margin is released, negative
// when more margin is consumed. Applying the same price twice yields a zero
// delta on the second call.
func (l *Lot) ApplySettlement(settlementPrice decimal.Decimal) decimal.Decimal {
	preMargin := l.Margin()
	l.SettlementPrice = settlementPrice
	return preMargin.Sub(l.Margin())
}

// SwitchDay rolls the settlement bookkeeping one step and adopts the new
// trading day, so the margin price selection stops treating the lot as
// opened today.
func (l *Lot) SwitchDay(tradingDay string) {
	l.PreSettlementPrice = l.SettlementPrice
	l.SettlementPrice = decimal.Zero
	l.TradingDay = tradingDay
}

func (l *Lot) calculateRealizedPnL(price, volume decimal.Decimal) decimal.Decimal {
	return price.Sub(l.OpenPrice).Mul(volume).Mul(l.ContractMultiplier).Mul(l.Direction.Sign())
}

func (l *Lot) calculateMargin(price, volume decimal.Decimal) decimal.Decimal {
	return l.ContractMultiplier.Mul(price).Mul(volume).Mul(l.MarginRatio)
}

func (l *Lot) snapshot() types.LotSnapshot {
	return types.LotSnapshot{
		OpenPrice:          toFloat(l.OpenPrice),
		OpenDate:           l.OpenDate,
		TradingDay:         l.TradingDay,
		Direction:          string(l.Direction),
		Volume:             toFloat(l.Volume),
		ContractMultiplier: toFloat(l.ContractMultiplier),
		MarginRatio:        toFloat(l.MarginRatio),
		SettlementPrice:    toFloat(l.SettlementPrice),
		PreSettlementPrice: toFloat(l.PreSettlementPrice),
		Margin:             toFloat(l.Margin()),
	}
}

// lotQueue is an explicit FIFO deque of open lots, oldest first. Closing
// consumes from the front; opening appends to the back. Mutation never
// happens during traversal: consumers peek, consume, then pop.
type lotQueue struct {
	lots []*Lot
}

func (q *lotQueue) Len() int { return len(q.lots) }

func (q *lotQueue) PushBack(l *Lot) { q.lots = append(q.lots, l) }

func (q *lotQueue) PeekFront() *Lot {
	if len(q.lots) == 0 {
		return nil
	}
	return q.lots[0]
}

func (q *lotQueue) PopFront() {
	if len(q.lots) == 0 {
		return
	}
	q.lots[0] = nil
	q.lots = q.lots[1:]
}

// TotalVolume sums the remaining open volume across the queue.
func (q *lotQueue) TotalVolume() decimal.Decimal {
	total := decimal.Zero
	for _, l := range q.lots {
		total = total.Add(l.Volume)
	}
	return total
}
