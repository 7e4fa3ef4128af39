package handlers

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"hubbub/internal/dispatch"
	"hubbub/internal/protocol"
	"hubbub/internal/protocol/frame"
	"hubbub/internal/protocol/param"
	"hubbub/internal/session"
	"hubbub/internal/store"
)

// loginHandler authenticates the session. Failed credentials and corrupt
// password hashes both produce the same wire error, so probing cannot tell
// them apart.
type loginHandler struct {
	accounts *store.AccountStore
	log      zerolog.Logger
}

func (h *loginHandler) Handle(_ context.Context, sess *session.Session, _ *frame.Transaction, params []param.Param) ([]param.Param, error) {
	login, err := param.RequiredString(params, protocol.FieldLogin)
	if err != nil {
		return nil, err
	}
	password, err := param.RequiredString(params, protocol.FieldPassword)
	if err != nil {
		return nil, err
	}

	account, err := h.accounts.Authenticate(login, password)
	if err != nil {
		if !errors.Is(err, store.ErrBadCredentials) {
			h.log.Error().Err(err).Str("login", login).Msg("credential check failed")
		}
		h.log.Warn().Str("login", login).Str("peer", sess.RemoteAddr()).Msg("authentication failed")
		return nil, dispatch.Errorf(dispatch.ErrDenied, "login %q", login)
	}

	sess.Authenticate(account.Login, session.DefaultUserPrivileges())
	h.log.Info().Str("login", login).Str("peer", sess.RemoteAddr()).Msg("authenticated")
	return []param.Param{param.Uint16(protocol.FieldVersion, protocol.ClientVersion)}, nil
}

// agreedHandler acknowledges the client's acceptance of the agreement.
type agreedHandler struct {
	log zerolog.Logger
}

func (h *agreedHandler) Handle(_ context.Context, sess *session.Session, _ *frame.Transaction, _ []param.Param) ([]param.Param, error) {
	if !sess.Authenticated() {
		return nil, dispatch.ErrDenied
	}
	h.log.Debug().Uint64("session", sess.ID()).Msg("agreement accepted")
	return nil, nil
}

// agreementHandler serves the agreement text on request.
type agreementHandler struct {
	agreement *store.Agreement
}

func (h *agreementHandler) Handle(context.Context, *session.Session, *frame.Transaction, []param.Param) ([]param.Param, error) {
	return []param.Param{param.String(protocol.FieldData, h.agreement.Text())}, nil
}
