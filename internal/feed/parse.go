package feed

import (
	"fmt"
	"time"

	"posbook/internal/account"
	"posbook/internal/types"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
)

// parseLine turns one validated feed line into an actor envelope. Prices and
// volumes are parsed from the raw JSON number text so the decimal state
// never goes through a float64 round trip.
func parseLine(line string) (accountID string, evt account.EventEnvelope, err error) {
	root := gjson.Parse(line)
	accountID = root.Get("account").String()
	eventType := root.Get("type").String()
	data := root.Get("data")

	var payload any
	switch eventType {
	case "trade":
		payload, err = parseTrade(data)
	case "quote":
		payload, err = parseQuote(data)
	case "settlement":
		payload, err = parseSettlement(data)
	case "switch_day":
		payload = account.SwitchDayPayload{TradingDay: data.Get("trading_day").String()}
	default:
		err = fmt.Errorf("unknown event type %q", eventType)
	}
	if err != nil {
		return "", account.EventEnvelope{}, err
	}
	return accountID, account.NewEnvelope(account.EventType(eventType), payload), nil
}

func parseTrade(data gjson.Result) (types.Trade, error) {
	price, err := decimalField(data, "price")
	if err != nil {
		return types.Trade{}, err
	}
	volume, err := decimalField(data, "volume")
	if err != nil {
		return types.Trade{}, err
	}
	tradeID := data.Get("trade_id").String()
	if tradeID == "" {
		tradeID = uuid.NewString()
	}
	tradeTime := time.Now()
	if ts := data.Get("trade_time").String(); ts != "" {
		if parsed, perr := time.Parse(time.RFC3339, ts); perr == nil {
			tradeTime = parsed
		}
	}
	return types.Trade{
		TradeID:      tradeID,
		InstrumentID: data.Get("instrument_id").String(),
		ExchangeID:   data.Get("exchange_id").String(),
		Side:         types.Side(data.Get("side").String()),
		Offset:       types.Offset(data.Get("offset").String()),
		Price:        price,
		Volume:       volume,
		TradingDay:   data.Get("trading_day").String(),
		TradeTime:    tradeTime,
	}, nil
}

func parseQuote(data gjson.Result) (types.Quote, error) {
	last, err := decimalField(data, "last_price")
	if err != nil {
		return types.Quote{}, err
	}
	return types.Quote{
		InstrumentID: data.Get("instrument_id").String(),
		ExchangeID:   data.Get("exchange_id").String(),
		LastPrice:    last,
		QuoteTime:    time.Now(),
	}, nil
}

func parseSettlement(data gjson.Result) (account.SettlementPayload, error) {
	price, err := decimalField(data, "price")
	if err != nil {
		return account.SettlementPayload{}, err
	}
	return account.SettlementPayload{
		InstrumentID: data.Get("instrument_id").String(),
		ExchangeID:   data.Get("exchange_id").String(),
		Price:        price,
	}, nil
}

func decimalField(data gjson.Result, field string) (decimal.Decimal, error) {
	raw := data.Get(field)
	if !raw.Exists() {
		return decimal.Decimal{}, fmt.Errorf("missing field %q", field)
	}
	d, err := decimal.NewFromString(raw.Raw)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("field %q is not a decimal number: %w", field, err)
	}
	return d, nil
}
