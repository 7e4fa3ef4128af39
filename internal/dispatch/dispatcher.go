package dispatch

import (
	"context"

	"github.com/rs/zerolog"

	"hubbub/internal/compat"
	"hubbub/internal/protocol"
	"hubbub/internal/protocol/frame"
	"hubbub/internal/protocol/param"
	"hubbub/internal/session"
)

// Transaction outcomes reported to the observer.
const (
	OutcomeOK          = "ok"
	OutcomeUnknownType = "unknown_type"
	OutcomeBadPayload  = "bad_payload"
	OutcomeHandlerErr  = "handler_error"
	OutcomeInternal    = "internal"
)

// Observer receives one event per dispatched transaction.
type Observer interface {
	ObserveTransaction(typ uint16, outcome string)
}

type nopObserver struct{}

func (nopObserver) ObserveTransaction(uint16, string) {}

// Dispatcher turns requests into replies. It owns the request lifecycle:
// compatibility decode, routing, handler invocation, reply construction,
// compatibility encode. It never returns an error to the connection loop;
// every failure becomes a coded error reply.
type Dispatcher struct {
	table    *Table
	layer    *compat.Layer
	log      zerolog.Logger
	observer Observer
}

// NewDispatcher wires a frozen table to the compatibility layer.
func NewDispatcher(table *Table, layer *compat.Layer, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		table:    table,
		layer:    layer,
		log:      log.With().Str("component", "dispatch").Logger(),
		observer: nopObserver{},
	}
}

// WithObserver installs a transaction observer. Call before serving.
func (d *Dispatcher) WithObserver(o Observer) *Dispatcher {
	d.observer = o
	return d
}

// Dispatch serves one request and returns its reply.
func (d *Dispatcher) Dispatch(ctx context.Context, sess *session.Session, req *frame.Transaction) *frame.Transaction {
	sess.Touch()
	typ := req.Header.Type
	log := d.log.With().
		Uint64("session", sess.ID()).
		Uint32("txn", req.Header.ID).
		Str("type", protocol.TypeName(typ)).
		Logger()

	if err := d.layer.OnRequest(sess.Compat(), req); err != nil {
		log.Warn().Err(err).Msg("request rejected by compatibility layer")
		d.observer.ObserveTransaction(typ, OutcomeBadPayload)
		return d.finish(sess, errorReply(req, protocol.ErrCodeInvalidPayload), log)
	}

	handler, ok := d.table.Lookup(typ)
	if !ok {
		log.Warn().Uint16("raw_type", typ).Msg("no handler for transaction type")
		d.observer.ObserveTransaction(typ, OutcomeUnknownType)
		return d.finish(sess, errorReply(req, protocol.ErrCodeUnknownType), log)
	}

	params, err := param.Decode(req.Payload)
	if err != nil {
		log.Warn().Err(err).Msg("malformed parameter block")
		d.observer.ObserveTransaction(typ, OutcomeBadPayload)
		return d.finish(sess, errorReply(req, protocol.ErrCodeInvalidPayload), log)
	}

	d.layer.RecordHandler(req.Header.ID)
	replyParams, err := handler.Handle(ctx, sess, req, params)
	if err != nil {
		code := codeFor(err)
		if code == protocol.ErrCodeInternal {
			log.Error().Err(err).Msg("handler failed")
		} else {
			log.Warn().Err(err).Uint32("code", code).Msg("handler rejected request")
		}
		d.observer.ObserveTransaction(typ, OutcomeHandlerErr)
		return d.finish(sess, errorReply(req, code), log)
	}

	payload, err := param.Encode(replyParams)
	if err != nil {
		log.Error().Err(err).Msg("reply encoding failed")
		d.observer.ObserveTransaction(typ, OutcomeInternal)
		return d.finish(sess, errorReply(req, protocol.ErrCodeInternal), log)
	}
	reply := &frame.Transaction{
		Header:  frame.ReplyHeader(req.Header, 0, len(payload)),
		Payload: payload,
	}
	d.observer.ObserveTransaction(typ, OutcomeOK)
	return d.finish(sess, reply, log)
}

// finish runs the reply-side compatibility hook. A failure there degrades
// to an unaugmented internal-error reply rather than dropping the request.
func (d *Dispatcher) finish(sess *session.Session, reply *frame.Transaction, log zerolog.Logger) *frame.Transaction {
	if err := d.layer.OnReply(sess.Compat(), reply); err != nil {
		log.Error().Err(err).Msg("reply hook failed")
		fallback := &frame.Transaction{Header: reply.Header}
		fallback.Header.Error = protocol.ErrCodeInternal
		fallback.Header.TotalSize = 0
		fallback.Header.DataSize = 0
		fallback.Payload = nil
		return fallback
	}
	return reply
}

func errorReply(req *frame.Transaction, code uint32) *frame.Transaction {
	return &frame.Transaction{Header: frame.ReplyHeader(req.Header, code, 0)}
}
