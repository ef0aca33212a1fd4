package account

import "posbook/internal/logger"

// HandlerRegistry maps event types to their handlers.
type HandlerRegistry struct {
	handlers map[EventType]EventHandler
}

func NewHandlerRegistry() *HandlerRegistry {
	return &HandlerRegistry{
		handlers: make(map[EventType]EventHandler),
	}
}

// Register adds a handler, replacing any existing one for the same type.
func (r *HandlerRegistry) Register(h EventHandler) {
	if h == nil {
		return
	}
	r.handlers[h.Type()] = h
}

// Get returns the handler for the given event type.
func (r *HandlerRegistry) Get(t EventType) (EventHandler, bool) {
	h, ok := r.handlers[t]
	return h, ok
}

// RegisterDefaultHandlers registers the built-in accounting handlers.
func (r *HandlerRegistry) RegisterDefaultHandlers() {
	r.Register(&TradeHandler{})
	r.Register(&QuoteHandler{})
	r.Register(&SettlementHandler{})
	r.Register(&SwitchDayHandler{})
	logger.Debugf("account: registered %d event handlers", len(r.handlers))
}
