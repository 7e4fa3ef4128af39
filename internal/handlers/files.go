package handlers

import (
	"context"

	"hubbub/internal/dispatch"
	"hubbub/internal/protocol"
	"hubbub/internal/protocol/frame"
	"hubbub/internal/protocol/param"
	"hubbub/internal/session"
	"hubbub/internal/store"
)

// fileListHandler returns the names in the served file root, one repeated
// file-name field per entry. Login is required; the listing itself needs no
// further privilege.
type fileListHandler struct {
	files *store.FileStore
}

func (h *fileListHandler) Handle(_ context.Context, sess *session.Session, _ *frame.Transaction, _ []param.Param) ([]param.Param, error) {
	if !sess.Authenticated() {
		return nil, dispatch.ErrDenied
	}
	entries, err := h.files.List()
	if err != nil {
		return nil, err
	}
	out := make([]param.Param, 0, len(entries))
	for _, e := range entries {
		out = append(out, param.String(protocol.FieldFileName, e.Name))
	}
	return out, nil
}
