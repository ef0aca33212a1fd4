package account

import (
	"fmt"

	"posbook/internal/logger"
	"posbook/internal/position"
	ptypes "posbook/internal/types"

	"github.com/shopspring/decimal"
)

// RestoreFromSnapshot rebuilds the actor's positions from a persisted
// account snapshot. Must run before Start. The ledger itself is restored by
// the caller (its aggregates live on the same snapshot).
func (a *Actor) RestoreFromSnapshot(snap ptypes.AccountSnapshot) error {
	for _, ps := range snap.Positions {
		spec, err := a.registry.Resolver().Resolve(ps.InstrumentID, ps.ExchangeID)
		if err != nil {
			return fmt.Errorf("restore %s failed: %w", ps.SymbolID, err)
		}
		switch ptypes.InstrumentType(ps.InstrumentType) {
		case ptypes.InstrumentFuture:
			lots := make([]*position.Lot, 0, len(ps.LongLots)+len(ps.ShortLots))
			for _, ls := range append(append([]ptypes.LotSnapshot{}, ps.LongLots...), ps.ShortLots...) {
				lots = append(lots, lotFromSnapshot(ls))
			}
			a.Restore(position.RestoreMargined(
				spec, a.ledger, snap.TradingDay, lots,
				decimal.NewFromFloat(ps.RealizedPnL),
				decimal.NewFromFloat(ps.LastPrice),
			))
		default:
			a.Restore(position.RestoreCash(spec, a.ledger, position.CashState{
				Volume:          decimal.NewFromFloat(ps.Volume),
				YesterdayVolume: decimal.NewFromFloat(ps.YesterdayVol),
				AvgOpenPrice:    decimal.NewFromFloat(ps.AvgOpenPrice),
				ClosePrice:      decimal.NewFromFloat(ps.ClosePrice),
				PreClosePrice:   decimal.NewFromFloat(ps.PreClosePrice),
				RealizedPnL:     decimal.NewFromFloat(ps.RealizedPnL),
				LastPrice:       decimal.NewFromFloat(ps.LastPrice),
			}))
		}
	}
	if snap.TradingDay != "" {
		a.tradingDay = snap.TradingDay
	}
	a.refreshSnapshot()
	logger.Infof("account %s: restored %d positions for trading day %s",
		a.accountID, len(snap.Positions), snap.TradingDay)
	return nil
}

func lotFromSnapshot(ls ptypes.LotSnapshot) *position.Lot {
	return &position.Lot{
		OpenPrice:          decimal.NewFromFloat(ls.OpenPrice),
		OpenDate:           ls.OpenDate,
		TradingDay:         ls.TradingDay,
		Direction:          ptypes.Direction(ls.Direction),
		Volume:             decimal.NewFromFloat(ls.Volume),
		ContractMultiplier: decimal.NewFromFloat(ls.ContractMultiplier),
		MarginRatio:        decimal.NewFromFloat(ls.MarginRatio),
		SettlementPrice:    decimal.NewFromFloat(ls.SettlementPrice),
		PreSettlementPrice: decimal.NewFromFloat(ls.PreSettlementPrice),
	}
}
