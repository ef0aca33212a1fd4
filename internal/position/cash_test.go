package position

import (
	"testing"

	"posbook/internal/instrument"
	"posbook/internal/ledger"
	"posbook/internal/types"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCashFixture(t *testing.T, startingAvail int64) (*CashPosition, *ledger.Ledger) {
	t.Helper()
	led := ledger.New("acc-1", decimal.NewFromInt(startingAvail))
	spec := instrument.Spec{
		InstrumentID:   "600000",
		ExchangeID:     "SSE",
		InstrumentType: types.InstrumentStock,
	}
	return NewCash(spec, led), led
}

func buy(price float64, volume int64) types.Trade {
	return types.Trade{
		InstrumentID: "600000",
		ExchangeID:   "SSE",
		Side:         types.SideBuy,
		Price:        decimal.NewFromFloat(price),
		Volume:       decimal.NewFromInt(volume),
	}
}

func sell(price float64, volume int64) types.Trade {
	tr := buy(price, volume)
	tr.Side = types.SideSell
	return tr
}

func TestCashPosition_Identity(t *testing.T) {
	pos, _ := newCashFixture(t, 0)
	assert.Equal(t, "600000.sse", pos.SymbolID())
	assert.Equal(t, types.InstrumentStock, pos.InstrumentType())
	assert.True(t, pos.Margin().IsZero(), "cash positions report zero margin")
}

func TestCashPosition_WeightedAverageAcrossBuys(t *testing.T) {
	pos, led := newCashFixture(t, 1_000_000)

	fills := []struct {
		price  float64
		volume int64
	}{
		{10, 100},
		{12, 200},
		{11.5, 300},
		{9.8, 50},
	}

	var totalCost, totalVolume float64
	for _, f := range fills {
		require.NoError(t, pos.ApplyTrade(buy(f.price, f.volume)))
		totalCost += f.price * float64(f.volume)
		totalVolume += float64(f.volume)
		assert.InDelta(t, totalCost/totalVolume, pos.AvgOpenPrice().InexactFloat64(), 1e-9)
	}
	assert.InDelta(t, totalVolume, pos.Volume().InexactFloat64(), 1e-9)
	assert.InDelta(t, 1_000_000-totalCost, led.Avail().InexactFloat64(), 1e-9)
}

func TestCashPosition_BuyFromZeroVolume(t *testing.T) {
	pos, _ := newCashFixture(t, 10_000)
	require.NoError(t, pos.ApplyTrade(buy(25, 10)))
	assert.InDelta(t, 25, pos.AvgOpenPrice().InexactFloat64(), 1e-9)
}

func TestCashPosition_FullRoundTripAtSamePrice(t *testing.T) {
	pos, led := newCashFixture(t, 10_000)

	require.NoError(t, pos.ApplyTrade(buy(100, 50)))
	require.NoError(t, pos.ApplyTrade(sell(100, 50)))

	assert.True(t, pos.RealizedPnL().IsZero(), "same-price round trip realizes nothing")
	assert.True(t, pos.Volume().IsZero())
	assert.InDelta(t, 10_000, led.Avail().InexactFloat64(), 1e-9, "the two cash legs cancel")
	assert.True(t, led.RealizedPnL().IsZero())
}

func TestCashPosition_SellRealizesAgainstAverageCost(t *testing.T) {
	pos, led := newCashFixture(t, 100_000)

	require.NoError(t, pos.ApplyTrade(buy(10, 100)))
	require.NoError(t, pos.ApplyTrade(buy(20, 100)))
	// avg = 15
	require.NoError(t, pos.ApplyTrade(sell(18, 50)))

	assert.InDelta(t, (18-15.0)*50, pos.RealizedPnL().InexactFloat64(), 1e-9)
	assert.InDelta(t, 150, pos.Volume().InexactFloat64(), 1e-9)
	// Average cost is untouched by sells.
	assert.InDelta(t, 15, pos.AvgOpenPrice().InexactFloat64(), 1e-9)
	assert.InDelta(t, (18-15.0)*50, led.RealizedPnL().InexactFloat64(), 1e-9)
	// avail = 100000 - 1000 - 2000 + realized + 18*50
	assert.InDelta(t, 100_000-3000+150+900, led.Avail().InexactFloat64(), 1e-9)
}

func TestCashPosition_OversellRejectsWithoutMutation(t *testing.T) {
	pos, led := newCashFixture(t, 10_000)
	require.NoError(t, pos.ApplyTrade(buy(10, 100)))

	availBefore := led.Avail()
	err := pos.ApplyTrade(sell(12, 101))
	require.ErrorIs(t, err, ErrInsufficientPosition)

	assert.InDelta(t, 100, pos.Volume().InexactFloat64(), 1e-9)
	assert.True(t, pos.RealizedPnL().IsZero())
	assert.True(t, led.Avail().Equal(availBefore), "rejected sell must not touch the ledger")
	assert.True(t, led.RealizedPnL().IsZero())
}

func TestCashPosition_InvalidTradeRejected(t *testing.T) {
	pos, led := newCashFixture(t, 10_000)
	availBefore := led.Avail()

	for _, tr := range []types.Trade{buy(0, 10), buy(10, 0), buy(-5, 10), sell(10, -1)} {
		err := pos.ApplyTrade(tr)
		assert.ErrorIs(t, err, ErrInvalidTrade)
	}
	assert.True(t, led.Avail().Equal(availBefore))
	assert.True(t, pos.Volume().IsZero())
}

func TestCashPosition_MarketValueFallsBackToCost(t *testing.T) {
	pos, _ := newCashFixture(t, 100_000)
	require.NoError(t, pos.ApplyTrade(buy(10, 100)))

	// No quote yet: valued at cost basis.
	assert.InDelta(t, 1000, pos.MarketValue().InexactFloat64(), 1e-9)
	assert.True(t, pos.UnrealizedPnL().IsZero(), "no quote means no unrealized view")

	pos.ApplyQuote(types.Quote{LastPrice: decimal.NewFromInt(12)})
	assert.InDelta(t, 1200, pos.MarketValue().InexactFloat64(), 1e-9)
	assert.InDelta(t, (12-10.0)*100, pos.UnrealizedPnL().InexactFloat64(), 1e-9)

	// A zero quote means unknown again.
	pos.ApplyQuote(types.Quote{LastPrice: decimal.Zero})
	assert.InDelta(t, 1000, pos.MarketValue().InexactFloat64(), 1e-9)
	assert.True(t, pos.UnrealizedPnL().IsZero())
}

func TestCashPosition_QuoteHasNoLedgerEffect(t *testing.T) {
	pos, led := newCashFixture(t, 10_000)
	before := led.Avail()
	pos.ApplyQuote(types.Quote{LastPrice: decimal.NewFromInt(42)})
	assert.True(t, led.Avail().Equal(before))
}

func TestCashPosition_SettlementAndSwitchDayRoll(t *testing.T) {
	pos, _ := newCashFixture(t, 10_000)

	require.NoError(t, pos.ApplySettlement(decimal.NewFromInt(101)))
	assert.InDelta(t, 101, pos.ClosePrice().InexactFloat64(), 1e-9)

	pos.SwitchDay("2026-01-05")
	assert.InDelta(t, 101, pos.PreClosePrice().InexactFloat64(), 1e-9)
	assert.True(t, pos.ClosePrice().IsZero())

	require.NoError(t, pos.ApplySettlement(decimal.NewFromInt(102)))
	pos.SwitchDay("2026-01-06")
	assert.InDelta(t, 102, pos.PreClosePrice().InexactFloat64(), 1e-9)
	assert.True(t, pos.ClosePrice().IsZero())
}
