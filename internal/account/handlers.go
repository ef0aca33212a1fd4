package account

import (
	"fmt"

	"posbook/internal/instrument"
	"posbook/internal/logger"
	"posbook/internal/types"
)

// TradeHandler routes an executed trade to its position, creating the
// position lazily from the instrument resolver on first touch.
type TradeHandler struct{}

func (h *TradeHandler) Type() EventType { return EventTrade }

func (h *TradeHandler) Handle(ctx *HandlerContext, payload any, eventID string) error {
	trade, ok := payload.(types.Trade)
	if !ok {
		return fmt.Errorf("trade event %s: unexpected payload %T", eventID, payload)
	}
	a := ctx.Actor()
	pos, err := a.positionFor(trade.InstrumentID, trade.ExchangeID)
	if err != nil {
		return fmt.Errorf("trade %s rejected: %w", trade.TradeID, err)
	}
	if err := pos.ApplyTrade(trade); err != nil {
		return fmt.Errorf("trade %s rejected: %w", trade.TradeID, err)
	}
	logger.Debugf("account %s: applied trade %s %s %s vol=%s px=%s",
		a.accountID, trade.TradeID, trade.Side, pos.SymbolID(), trade.Volume, trade.Price)
	return nil
}

// QuoteHandler refreshes valuation prices. Quotes for instruments without an
// open position are dropped; they carry no authoritative state.
type QuoteHandler struct{}

func (h *QuoteHandler) Type() EventType { return EventQuote }

func (h *QuoteHandler) Handle(ctx *HandlerContext, payload any, eventID string) error {
	quote, ok := payload.(types.Quote)
	if !ok {
		return fmt.Errorf("quote event %s: unexpected payload %T", eventID, payload)
	}
	a := ctx.Actor()
	symbolID := instrument.SymbolID(quote.InstrumentID, quote.ExchangeID)
	if pos, ok := a.positions[symbolID]; ok {
		pos.ApplyQuote(quote)
	}
	return nil
}

// SettlementHandler marks one instrument's position to the settlement price.
type SettlementHandler struct{}

func (h *SettlementHandler) Type() EventType { return EventSettlement }

func (h *SettlementHandler) Handle(ctx *HandlerContext, payload any, eventID string) error {
	settle, ok := payload.(SettlementPayload)
	if !ok {
		return fmt.Errorf("settlement event %s: unexpected payload %T", eventID, payload)
	}
	a := ctx.Actor()
	symbolID := instrument.SymbolID(settle.InstrumentID, settle.ExchangeID)
	pos, ok := a.positions[symbolID]
	if !ok {
		logger.Debugf("account %s: settlement for %s ignored, no position", a.accountID, symbolID)
		return nil
	}
	return pos.ApplySettlement(settle.Price)
}

// SwitchDayHandler rolls every position and the actor's trading-day context.
type SwitchDayHandler struct{}

func (h *SwitchDayHandler) Type() EventType { return EventSwitchDay }

func (h *SwitchDayHandler) Handle(ctx *HandlerContext, payload any, eventID string) error {
	sw, ok := payload.(SwitchDayPayload)
	if !ok {
		return fmt.Errorf("switch_day event %s: unexpected payload %T", eventID, payload)
	}
	a := ctx.Actor()
	for _, pos := range a.positions {
		pos.SwitchDay(sw.TradingDay)
	}
	a.tradingDay = sw.TradingDay
	logger.Infof("account %s: switched to trading day %s", a.accountID, sw.TradingDay)
	return nil
}
