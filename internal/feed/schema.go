package feed

import "github.com/santhosh-tekuri/jsonschema/v5"

// eventSchema validates one feed line before any field extraction. The data
// shape varies by event type, so the type-specific requirements live in the
// allOf branches.
const eventSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["type", "account", "data"],
  "properties": {
    "type": {"enum": ["trade", "quote", "settlement", "switch_day"]},
    "account": {"type": "string", "minLength": 1},
    "data": {"type": "object"}
  },
  "allOf": [
    {
      "if": {"properties": {"type": {"const": "trade"}}},
      "then": {
        "properties": {
          "data": {
            "required": ["instrument_id", "exchange_id", "side", "price", "volume"],
            "properties": {
              "instrument_id": {"type": "string", "minLength": 1},
              "exchange_id": {"type": "string", "minLength": 1},
              "side": {"enum": ["buy", "sell"]},
              "offset": {"enum": ["open", "close"]},
              "price": {"type": "number", "exclusiveMinimum": 0},
              "volume": {"type": "number", "exclusiveMinimum": 0}
            }
          }
        }
      }
    },
    {
      "if": {"properties": {"type": {"const": "quote"}}},
      "then": {
        "properties": {
          "data": {
            "required": ["instrument_id", "exchange_id", "last_price"],
            "properties": {
              "last_price": {"type": "number", "minimum": 0}
            }
          }
        }
      }
    },
    {
      "if": {"properties": {"type": {"const": "settlement"}}},
      "then": {
        "properties": {
          "data": {
            "required": ["instrument_id", "exchange_id", "price"],
            "properties": {
              "price": {"type": "number", "exclusiveMinimum": 0}
            }
          }
        }
      }
    },
    {
      "if": {"properties": {"type": {"const": "switch_day"}}},
      "then": {
        "properties": {
          "data": {
            "required": ["trading_day"],
            "properties": {
              "trading_day": {"type": "string", "minLength": 1}
            }
          }
        }
      }
    }
  ]
}`

func compileEventSchema() (*jsonschema.Schema, error) {
	return jsonschema.CompileString("posbook://feed/event.schema.json", eventSchema)
}
