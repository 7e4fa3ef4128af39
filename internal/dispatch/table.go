// Package dispatch routes decoded transactions to their domain handlers.
// Every request produces exactly one reply, and the compatibility hooks run
// exactly once around each handler invocation.
package dispatch

import (
	"context"
	"fmt"

	"hubbub/internal/protocol"
	"hubbub/internal/protocol/frame"
	"hubbub/internal/protocol/param"
	"hubbub/internal/session"
)

// Handler serves one transaction type. Implementations receive the decoded
// parameter block and return the reply parameters.
type Handler interface {
	Handle(ctx context.Context, sess *session.Session, req *frame.Transaction, params []param.Param) ([]param.Param, error)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, sess *session.Session, req *frame.Transaction, params []param.Param) ([]param.Param, error)

func (f HandlerFunc) Handle(ctx context.Context, sess *session.Session, req *frame.Transaction, params []param.Param) ([]param.Param, error) {
	return f(ctx, sess, req, params)
}

// Table is an immutable transaction-type to handler mapping.
type Table struct {
	handlers map[uint16]Handler
}

// Builder accumulates handler registrations before the table is frozen.
type Builder struct {
	handlers map[uint16]Handler
}

// NewBuilder returns an empty table builder.
func NewBuilder() *Builder {
	return &Builder{handlers: make(map[uint16]Handler)}
}

// Register binds a handler to a transaction type. Registering the same type
// twice panics: routing is wired once at startup and a collision there is a
// programming error.
func (b *Builder) Register(typ uint16, h Handler) *Builder {
	if _, dup := b.handlers[typ]; dup {
		panic(fmt.Sprintf("dispatch: duplicate handler for type %d (%s)", typ, protocol.TypeName(typ)))
	}
	b.handlers[typ] = h
	return b
}

// Build freezes the registrations into a table.
func (b *Builder) Build() *Table {
	handlers := make(map[uint16]Handler, len(b.handlers))
	for typ, h := range b.handlers {
		handlers[typ] = h
	}
	return &Table{handlers: handlers}
}

// Lookup returns the handler for a transaction type.
func (t *Table) Lookup(typ uint16) (Handler, bool) {
	h, ok := t.handlers[typ]
	return h, ok
}

// Types returns the number of registered transaction types.
func (t *Table) Types() int { return len(t.handlers) }
