package position

import (
	"posbook/internal/instrument"
	"posbook/internal/ledger"
	"posbook/internal/types"

	"github.com/shopspring/decimal"
)

// CashPosition accounts a spot-style instrument with a single blended cost
// basis. Buys move the weighted average; sells realize PnL against it and
// never move it. There is no margin concept: Margin reports zero.
type CashPosition struct {
	base

	volume          decimal.Decimal
	yesterdayVolume decimal.Decimal
	avgOpenPrice    decimal.Decimal
	closePrice      decimal.Decimal
	preClosePrice   decimal.Decimal
	realizedPnL     decimal.Decimal
}

// CashState restores a cash position from persisted state.
type CashState struct {
	Volume          decimal.Decimal
	YesterdayVolume decimal.Decimal
	AvgOpenPrice    decimal.Decimal
	ClosePrice      decimal.Decimal
	PreClosePrice   decimal.Decimal
	RealizedPnL     decimal.Decimal
	LastPrice       decimal.Decimal
}

func NewCash(spec instrument.Spec, led *ledger.Ledger) *CashPosition {
	return &CashPosition{base: newBase(spec, led)}
}

// RestoreCash rebuilds a cash position from a persisted snapshot.
func RestoreCash(spec instrument.Spec, led *ledger.Ledger, st CashState) *CashPosition {
	p := NewCash(spec, led)
	p.volume = st.Volume
	p.yesterdayVolume = st.YesterdayVolume
	p.avgOpenPrice = st.AvgOpenPrice
	p.closePrice = st.ClosePrice
	p.preClosePrice = st.PreClosePrice
	p.realizedPnL = st.RealizedPnL
	p.lastPrice = st.LastPrice
	return p
}

func (p *CashPosition) Volume() decimal.Decimal          { return p.volume }
func (p *CashPosition) YesterdayVolume() decimal.Decimal { return p.yesterdayVolume }
func (p *CashPosition) AvgOpenPrice() decimal.Decimal    { return p.avgOpenPrice }
func (p *CashPosition) ClosePrice() decimal.Decimal      { return p.closePrice }
func (p *CashPosition) PreClosePrice() decimal.Decimal   { return p.preClosePrice }
func (p *CashPosition) RealizedPnL() decimal.Decimal     { return p.realizedPnL }

var _ Position = (*CashPosition)(nil)

// Margin is zero by definition for cash instruments.
func (p *CashPosition) Margin() decimal.Decimal { return decimal.Zero }

// MarketValue values held quantity at the last quote, falling back to cost
// basis when no quote has arrived, so valuation is always defined once any
// quantity is held.
func (p *CashPosition) MarketValue() decimal.Decimal {
	price := p.lastPrice
	if !price.IsPositive() {
		price = p.avgOpenPrice
	}
	return p.volume.Mul(price)
}

// UnrealizedPnL is zero without a live quote: a stale zero price must never
// produce a spurious gain or loss.
func (p *CashPosition) UnrealizedPnL() decimal.Decimal {
	if !p.lastPrice.IsPositive() {
		return decimal.Zero
	}
	return p.lastPrice.Sub(p.avgOpenPrice).Mul(p.volume)
}

func (p *CashPosition) ApplyTrade(trade types.Trade) error {
	if !trade.Valid() {
		return ErrInvalidTrade
	}
	if trade.Side == types.SideBuy {
		p.applyBuy(trade.Price, trade.Volume)
		return nil
	}
	return p.applySell(trade.Price, trade.Volume)
}

// applyBuy folds the fill into the weighted-average cost. The vol==0 case is
// covered by the same formula: avg collapses to the fill price.
func (p *CashPosition) applyBuy(price, volume decimal.Decimal) {
	total := p.volume.Add(volume)
	p.avgOpenPrice = p.avgOpenPrice.Mul(p.volume).Add(price.Mul(volume)).Div(total)
	p.volume = total
	p.ledger.SubAvail(price.Mul(volume))
}

// applySell realizes PnL against the average cost and shrinks the held
// quantity. Everything is computed before any state or ledger mutation so a
// rejected sell leaves no partial effects.
func (p *CashPosition) applySell(price, volume decimal.Decimal) error {
	if volume.GreaterThan(p.volume) {
		return ErrInsufficientPosition
	}
	realized := price.Sub(p.avgOpenPrice).Mul(volume)
	p.volume = p.volume.Sub(volume)
	p.realizedPnL = p.realizedPnL.Add(realized)
	p.ledger.AddRealizedPnL(realized)
	p.ledger.AddAvail(realized.Add(price.Mul(volume)))
	return nil
}

func (p *CashPosition) ApplySettlement(price decimal.Decimal) error {
	p.closePrice = price
	return nil
}

func (p *CashPosition) SwitchDay(tradingDay string) {
	p.preClosePrice = p.closePrice
	p.closePrice = decimal.Zero
}

func (p *CashPosition) Snapshot() types.PositionSnapshot {
	snap := p.identitySnapshot()
	snap.Volume = toFloat(p.volume)
	snap.YesterdayVol = toFloat(p.yesterdayVolume)
	snap.AvgOpenPrice = toFloat(p.avgOpenPrice)
	snap.ClosePrice = toFloat(p.closePrice)
	snap.PreClosePrice = toFloat(p.preClosePrice)
	snap.MarketValue = toFloat(p.MarketValue())
	snap.RealizedPnL = toFloat(p.realizedPnL)
	snap.UnrealizedPnL = toFloat(p.UnrealizedPnL())
	return snap
}
