package compat

import (
	"errors"

	"hubbub/internal/protocol"
	"hubbub/internal/protocol/frame"
	"hubbub/internal/protocol/param"
)

// Hook stages observable through a Recorder.
const (
	StageRequest = "on_request"
	StageHandler = "handler"
	StageReply   = "on_reply"
)

// ErrPayloadTooLarge is returned when an augmented reply no longer fits a
// 32-bit size field.
var ErrPayloadTooLarge = errors.New("compat: augmented payload too large")

// AuthStrategy prepares a login request before the domain handler sees it.
// Strategies run in registration order and must be safe for concurrent use
// across connections.
type AuthStrategy interface {
	Name() string
	PrepareLogin(p *Profile, params []param.Param) error
}

// ReplyAugmenter reshapes a successful login reply for the target client.
// Augmenters run in registration order after the domain handler.
type ReplyAugmenter interface {
	Name() string
	Augment(p *Profile, reply *frame.Transaction) (bool, error)
}

// Recorder observes hook invocations. The dispatcher records the handler
// stage so tests can verify ordering end to end.
type Recorder interface {
	Record(stage string, txnID uint32)
}

// Layer holds the ordered strategy and augmenter lists for every
// connection. Immutable after construction; shared across connections.
type Layer struct {
	strategies []AuthStrategy
	augmenters []ReplyAugmenter
	recorder   Recorder
}

// NewLayer builds the default compatibility layer: login-version capture
// plus login-reply extras for clients that expect them.
func NewLayer(serverName string, bannerID uint32) *Layer {
	return &Layer{
		strategies: []AuthStrategy{&loginVersionStrategy{}},
		augmenters: []ReplyAugmenter{&loginExtrasAugmenter{serverName: serverName, bannerID: bannerID}},
	}
}

// WithStrategy appends an authentication strategy. Call before serving.
func (l *Layer) WithStrategy(s AuthStrategy) *Layer {
	l.strategies = append(l.strategies, s)
	return l
}

// WithAugmenter appends a reply augmenter. Call before serving.
func (l *Layer) WithAugmenter(a ReplyAugmenter) *Layer {
	l.augmenters = append(l.augmenters, a)
	return l
}

// WithRecorder installs a hook-order recorder.
func (l *Layer) WithRecorder(r Recorder) *Layer {
	l.recorder = r
	return l
}

// RecordHandler marks the handler stage for a transaction. Called by the
// dispatcher between the two hooks.
func (l *Layer) RecordHandler(txnID uint32) {
	if l.recorder != nil {
		l.recorder.Record(StageHandler, txnID)
	}
}

// OnRequest runs before the domain handler: text fields are transparently
// decoded to canonical form and, for login requests, each authentication
// strategy is consulted in order.
func (l *Layer) OnRequest(p *Profile, tx *frame.Transaction) error {
	if l.recorder != nil {
		l.recorder.Record(StageRequest, tx.Header.ID)
	}
	decoded, err := decodeTextFields(p, tx.Payload)
	if err != nil {
		return err
	}
	if err := setPayload(tx, decoded); err != nil {
		return err
	}
	if tx.Header.Type != protocol.TypeLogin {
		return nil
	}
	params, err := param.Decode(tx.Payload)
	if err != nil {
		return err
	}
	for _, s := range l.strategies {
		if err := s.PrepareLogin(p, params); err != nil {
			return err
		}
	}
	return nil
}

// OnReply runs after the domain handler: successful login replies pass
// through each augmenter in order, then text fields are re-encoded for
// clients in XOR mode.
func (l *Layer) OnReply(p *Profile, reply *frame.Transaction) error {
	if reply.Header.Error == 0 && reply.Header.Type == protocol.TypeLogin && reply.Header.IsReply == 1 {
		for _, a := range l.augmenters {
			if _, err := a.Augment(p, reply); err != nil {
				return err
			}
		}
	}
	encoded, err := encodeTextFields(p, reply.Payload)
	if err != nil {
		return err
	}
	if err := setPayload(reply, encoded); err != nil {
		return err
	}
	if l.recorder != nil {
		l.recorder.Record(StageReply, reply.Header.ID)
	}
	return nil
}

func setPayload(tx *frame.Transaction, payload []byte) error {
	if len(payload) > int(^uint32(0)) {
		return ErrPayloadTooLarge
	}
	tx.Payload = payload
	tx.Header.TotalSize = uint32(len(payload))
	tx.Header.DataSize = uint32(len(payload))
	return nil
}

// loginVersionStrategy captures the client version field from the login
// request so the profile can classify the client line.
type loginVersionStrategy struct{}

func (*loginVersionStrategy) Name() string { return "login_version" }

func (*loginVersionStrategy) PrepareLogin(p *Profile, params []param.Param) error {
	if v, ok := param.FirstUint16(params, protocol.FieldVersion); ok {
		p.RecordLoginVersion(v)
	}
	return nil
}

// loginExtrasAugmenter adds the banner-id and server-name fields to
// successful login replies for client lines that expect them.
type loginExtrasAugmenter struct {
	serverName string
	bannerID   uint32
}

func (*loginExtrasAugmenter) Name() string { return "login_extras" }

func (a *loginExtrasAugmenter) Augment(p *Profile, reply *frame.Transaction) (bool, error) {
	if !p.WantsLoginExtras() {
		return false, nil
	}
	params, err := param.Decode(reply.Payload)
	if err != nil {
		return false, err
	}
	_, hasBanner := param.First(params, protocol.FieldBannerID)
	_, hasName := param.First(params, protocol.FieldServerName)
	if hasBanner && hasName {
		return false, nil
	}
	if !hasBanner {
		params = append(params, param.Uint32(protocol.FieldBannerID, a.bannerID))
	}
	if !hasName {
		params = append(params, param.String(protocol.FieldServerName, a.serverName))
	}
	payload, err := param.Encode(params)
	if err != nil {
		return false, err
	}
	return true, setPayload(reply, payload)
}
