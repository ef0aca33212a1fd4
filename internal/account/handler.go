package account

// EventHandler processes one event type inside the actor loop.
type EventHandler interface {
	// Type returns the event type this handler processes.
	Type() EventType

	// Handle applies the event to the account. Runs on the actor goroutine,
	// so it may mutate positions and the ledger freely.
	Handle(ctx *HandlerContext, payload any, eventID string) error
}

// HandlerContext gives handlers access to actor internals without exposing
// the whole Actor surface.
type HandlerContext struct {
	actor *Actor
}

func NewHandlerContext(a *Actor) *HandlerContext {
	return &HandlerContext{actor: a}
}

func (c *HandlerContext) Actor() *Actor { return c.actor }
