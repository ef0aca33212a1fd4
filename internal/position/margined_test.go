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

func futureSpec() instrument.Spec {
	return instrument.Spec{
		InstrumentID:       "rb2610",
		ExchangeID:         "SHFE",
		InstrumentType:     types.InstrumentFuture,
		ContractMultiplier: decimal.NewFromInt(10),
		MarginRatio:        decimal.NewFromFloat(0.1),
	}
}

func newMarginedFixture(t *testing.T, startingAvail int64) (*MarginedPosition, *ledger.Ledger) {
	t.Helper()
	led := ledger.New("acc-1", decimal.NewFromInt(startingAvail))
	return NewMargined(futureSpec(), led, "2026-01-05"), led
}

func futTrade(side types.Side, offset types.Offset, price float64, volume int64) types.Trade {
	return types.Trade{
		InstrumentID: "rb2610",
		ExchangeID:   "SHFE",
		Side:         side,
		Offset:       offset,
		Price:        decimal.NewFromFloat(price),
		Volume:       decimal.NewFromInt(volume),
	}
}

func TestLot_MarginExample(t *testing.T) {
	lot := &Lot{
		OpenPrice:          decimal.NewFromInt(100),
		OpenDate:           "2026-01-05",
		TradingDay:         "2026-01-05",
		Direction:          types.DirectionLong,
		Volume:             decimal.NewFromInt(10),
		ContractMultiplier: decimal.NewFromInt(10),
		MarginRatio:        decimal.NewFromFloat(0.1),
	}
	// No settlement yet: margin prices off the open price.
	assert.InDelta(t, 1000, lot.Margin().InexactFloat64(), 1e-9)

	closed, realized, marginDelta := lot.ApplyClose(decimal.NewFromInt(110), decimal.NewFromInt(4))
	assert.InDelta(t, 4, closed.InexactFloat64(), 1e-9)
	assert.InDelta(t, (110-100.0)*4*10, realized.InexactFloat64(), 1e-9)
	// Margin freed for the closed quantity, priced at the close price.
	assert.InDelta(t, -(10 * 110 * 4 * 0.1), marginDelta.InexactFloat64(), 1e-9)

	// The caller owns the volume decrement.
	lot.Volume = lot.Volume.Sub(closed)
	assert.InDelta(t, 6, lot.Volume.InexactFloat64(), 1e-9)
}

func TestLot_ShortRealizedPnLSign(t *testing.T) {
	lot := &Lot{
		OpenPrice:          decimal.NewFromInt(100),
		Direction:          types.DirectionShort,
		Volume:             decimal.NewFromInt(5),
		ContractMultiplier: decimal.NewFromInt(10),
		MarginRatio:        decimal.NewFromFloat(0.1),
	}
	_, realized, _ := lot.ApplyClose(decimal.NewFromInt(90), decimal.NewFromInt(5))
	// Short gains when bought back below the open price.
	assert.InDelta(t, (90-100.0)*5*10*-1, realized.InexactFloat64(), 1e-9)
}

func TestLot_SettlementIdempotence(t *testing.T) {
	lot := &Lot{
		OpenPrice:          decimal.NewFromInt(100),
		OpenDate:           "2026-01-05",
		TradingDay:         "2026-01-05",
		Direction:          types.DirectionLong,
		Volume:             decimal.NewFromInt(10),
		ContractMultiplier: decimal.NewFromInt(10),
		MarginRatio:        decimal.NewFromFloat(0.1),
	}
	first := lot.ApplySettlement(decimal.NewFromInt(105))
	assert.False(t, first.IsZero())
	second := lot.ApplySettlement(decimal.NewFromInt(105))
	assert.True(t, second.IsZero(), "re-settling at the same price must be a no-op")
}

func TestMarginedPosition_OpenReservesMargin(t *testing.T) {
	pos, led := newMarginedFixture(t, 100_000)

	require.NoError(t, pos.ApplyTrade(futTrade(types.SideBuy, types.OffsetOpen, 100, 10)))
	assert.InDelta(t, 1000, pos.Margin().InexactFloat64(), 1e-9)
	assert.InDelta(t, 100_000-1000, led.Avail().InexactFloat64(), 1e-9)
	assert.InDelta(t, 10, pos.LongVolume().InexactFloat64(), 1e-9)
}

func TestMarginedPosition_FIFOCloseOrder(t *testing.T) {
	pos, _ := newMarginedFixture(t, 100_000)

	require.NoError(t, pos.ApplyTrade(futTrade(types.SideBuy, types.OffsetOpen, 100, 5)))
	require.NoError(t, pos.ApplyTrade(futTrade(types.SideBuy, types.OffsetOpen, 110, 5)))

	require.NoError(t, pos.ApplyTrade(futTrade(types.SideSell, types.OffsetClose, 120, 7)))

	lots := pos.Lots()
	require.Len(t, lots, 1, "the oldest lot must be fully consumed")
	assert.InDelta(t, 110, lots[0].OpenPrice.InexactFloat64(), 1e-9)
	assert.InDelta(t, 3, lots[0].Volume.InexactFloat64(), 1e-9)

	// 5 @ 100 and 2 @ 110 closed at 120, multiplier 10.
	want := (120-100.0)*5*10 + (120-110.0)*2*10
	assert.InDelta(t, want, pos.RealizedPnL().InexactFloat64(), 1e-9)
}

func TestMarginedPosition_CloseSelectsQueueByClosingSide(t *testing.T) {
	pos, _ := newMarginedFixture(t, 100_000)

	require.NoError(t, pos.ApplyTrade(futTrade(types.SideBuy, types.OffsetOpen, 100, 5)))
	require.NoError(t, pos.ApplyTrade(futTrade(types.SideSell, types.OffsetOpen, 100, 4)))
	assert.InDelta(t, 5, pos.LongVolume().InexactFloat64(), 1e-9)
	assert.InDelta(t, 4, pos.ShortVolume().InexactFloat64(), 1e-9)

	// Buying back closes short exposure, leaving the long queue alone.
	require.NoError(t, pos.ApplyTrade(futTrade(types.SideBuy, types.OffsetClose, 95, 4)))
	assert.InDelta(t, 5, pos.LongVolume().InexactFloat64(), 1e-9)
	assert.True(t, pos.ShortVolume().IsZero())

	// Selling closes long exposure.
	require.NoError(t, pos.ApplyTrade(futTrade(types.SideSell, types.OffsetClose, 105, 5)))
	assert.True(t, pos.LongVolume().IsZero())
}

func TestMarginedPosition_MarginNeverNetted(t *testing.T) {
	pos, _ := newMarginedFixture(t, 100_000)

	require.NoError(t, pos.ApplyTrade(futTrade(types.SideBuy, types.OffsetOpen, 100, 5)))
	require.NoError(t, pos.ApplyTrade(futTrade(types.SideSell, types.OffsetOpen, 100, 5)))

	// 5*100*10*0.1 per direction; opposite exposure does not cancel.
	assert.InDelta(t, 1000, pos.Margin().InexactFloat64(), 1e-9)
}

func TestMarginedPosition_OversizedCloseRejectsWithoutMutation(t *testing.T) {
	pos, led := newMarginedFixture(t, 100_000)
	require.NoError(t, pos.ApplyTrade(futTrade(types.SideBuy, types.OffsetOpen, 100, 5)))

	availBefore := led.Avail()
	err := pos.ApplyTrade(futTrade(types.SideSell, types.OffsetClose, 120, 6))
	require.ErrorIs(t, err, ErrInsufficientPosition)

	assert.InDelta(t, 5, pos.LongVolume().InexactFloat64(), 1e-9)
	assert.True(t, pos.RealizedPnL().IsZero())
	assert.True(t, led.Avail().Equal(availBefore), "a rejected close must not under-close or touch cash")
}

func TestMarginedPosition_CloseCashEffect(t *testing.T) {
	pos, led := newMarginedFixture(t, 100_000)
	require.NoError(t, pos.ApplyTrade(futTrade(types.SideBuy, types.OffsetOpen, 100, 10)))
	// avail = 100000 - 1000

	require.NoError(t, pos.ApplyTrade(futTrade(types.SideSell, types.OffsetClose, 110, 4)))
	// realized = 400, margin freed at close price = 10*110*4*0.1 = 440
	assert.InDelta(t, 100_000-1000+400+440, led.Avail().InexactFloat64(), 1e-9)
	assert.InDelta(t, 400, led.RealizedPnL().InexactFloat64(), 1e-9)
}

func TestMarginedPosition_SettlementAppliesToEveryLotOnce(t *testing.T) {
	pos, led := newMarginedFixture(t, 100_000)

	require.NoError(t, pos.ApplyTrade(futTrade(types.SideBuy, types.OffsetOpen, 100, 5)))
	require.NoError(t, pos.ApplyTrade(futTrade(types.SideSell, types.OffsetOpen, 100, 5)))
	availAfterOpens := led.Avail()

	require.NoError(t, pos.ApplySettlement(decimal.NewFromInt(110)))

	// Every lot revalues from open-price margin (100) to settlement margin
	// (110): per-lot delta = 500 - 550 = -50, two lots, applied once.
	assert.InDelta(t, availAfterOpens.InexactFloat64()+100, led.Avail().InexactFloat64(), 1e-9)
	assert.InDelta(t, 1100, pos.Margin().InexactFloat64(), 1e-9)

	// Settling again at the same price moves nothing.
	availBefore := led.Avail()
	require.NoError(t, pos.ApplySettlement(decimal.NewFromInt(110)))
	assert.True(t, led.Avail().Equal(availBefore))
}

func TestMarginedPosition_SwitchDayRollsSettlementPrices(t *testing.T) {
	pos, _ := newMarginedFixture(t, 100_000)
	require.NoError(t, pos.ApplyTrade(futTrade(types.SideBuy, types.OffsetOpen, 100, 5)))

	require.NoError(t, pos.ApplySettlement(decimal.NewFromInt(105)))
	pos.SwitchDay("2026-01-06")

	lots := pos.Lots()
	require.Len(t, lots, 1)
	assert.InDelta(t, 105, lots[0].PreSettlementPrice.InexactFloat64(), 1e-9)
	assert.True(t, lots[0].SettlementPrice.IsZero())
	assert.Equal(t, "2026-01-06", lots[0].TradingDay)
	// The carried lot now margins off the prior settlement price.
	assert.InDelta(t, 5*105*10*0.1, pos.Margin().InexactFloat64(), 1e-9)

	require.NoError(t, pos.ApplySettlement(decimal.NewFromInt(108)))
	pos.SwitchDay("2026-01-07")
	assert.InDelta(t, 108, lots[0].PreSettlementPrice.InexactFloat64(), 1e-9)
	assert.True(t, lots[0].SettlementPrice.IsZero())
}

func TestMarginedPosition_TradeWithoutOffsetRejected(t *testing.T) {
	pos, led := newMarginedFixture(t, 100_000)
	before := led.Avail()

	tr := futTrade(types.SideBuy, "", 100, 5)
	require.ErrorIs(t, pos.ApplyTrade(tr), ErrInvalidTrade)
	assert.True(t, led.Avail().Equal(before))
}

func TestMarginedPosition_UnrealizedNeedsQuote(t *testing.T) {
	pos, _ := newMarginedFixture(t, 100_000)
	require.NoError(t, pos.ApplyTrade(futTrade(types.SideBuy, types.OffsetOpen, 100, 5)))

	assert.True(t, pos.UnrealizedPnL().IsZero())
	pos.ApplyQuote(types.Quote{LastPrice: decimal.NewFromInt(103)})
	assert.InDelta(t, (103-100.0)*5*10, pos.UnrealizedPnL().InexactFloat64(), 1e-9)
}
