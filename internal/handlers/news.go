package handlers

import (
	"context"
	"encoding/binary"
	"errors"

	"hubbub/internal/dispatch"
	"hubbub/internal/protocol"
	"hubbub/internal/protocol/frame"
	"hubbub/internal/protocol/param"
	"hubbub/internal/session"
	"hubbub/internal/store"
)

// newsErr maps store failures to wire-visible errors. Unsupported paths and
// missing articles are both reported as unsupported, matching how clients
// expect news lookups to fail.
func newsErr(err error) error {
	switch {
	case errors.Is(err, store.ErrPathUnsupported), errors.Is(err, store.ErrNotFound):
		return dispatch.Errorf(dispatch.ErrUnsupported, "news: %v", err)
	case errors.Is(err, store.ErrEmptyTitle):
		return dispatch.Errorf(dispatch.ErrInvalidPayload, "news: %v", err)
	default:
		return err
	}
}

func requireNews(sess *session.Session, want session.Privileges) error {
	switch err := sess.RequirePrivilege(want); {
	case errors.Is(err, session.ErrNotAuthenticated):
		return dispatch.Errorf(dispatch.ErrDenied, "news")
	case errors.Is(err, session.ErrInsufficientPrivileges):
		return dispatch.Errorf(dispatch.ErrForbidden, "news")
	default:
		return err
	}
}

// categoryListHandler lists category names. Without a path field it lists
// the board root; the board is flat, so any valid category path has no
// sub-categories.
type categoryListHandler struct {
	board *store.Board
}

func (h *categoryListHandler) Handle(_ context.Context, sess *session.Session, _ *frame.Transaction, params []param.Param) ([]param.Param, error) {
	if err := requireNews(sess, session.PrivNewsReadArticle); err != nil {
		return nil, err
	}
	path, ok := param.FirstString(params, protocol.FieldNewsPath)
	if !ok || path == "" || path == "/" {
		names := h.board.Categories()
		out := make([]param.Param, 0, len(names))
		for _, name := range names {
			out = append(out, param.String(protocol.FieldNewsCategory, name))
		}
		return out, nil
	}
	if _, err := h.board.Articles(path); err != nil {
		return nil, newsErr(err)
	}
	return nil, nil
}

// articleListHandler lists the article titles in a category.
type articleListHandler struct {
	board *store.Board
}

func (h *articleListHandler) Handle(_ context.Context, sess *session.Session, _ *frame.Transaction, params []param.Param) ([]param.Param, error) {
	if err := requireNews(sess, session.PrivNewsReadArticle); err != nil {
		return nil, err
	}
	path, err := param.RequiredString(params, protocol.FieldNewsPath)
	if err != nil {
		return nil, err
	}
	articles, err := h.board.Articles(path)
	if err != nil {
		return nil, newsErr(err)
	}
	out := make([]param.Param, 0, len(articles))
	for _, a := range articles {
		out = append(out, param.String(protocol.FieldNewsArticle, a.Title))
	}
	return out, nil
}

// articleDataHandler returns one article's full record.
type articleDataHandler struct {
	board *store.Board
}

func (h *articleDataHandler) Handle(_ context.Context, sess *session.Session, _ *frame.Transaction, params []param.Param) ([]param.Param, error) {
	if err := requireNews(sess, session.PrivNewsReadArticle); err != nil {
		return nil, err
	}
	path, err := param.RequiredString(params, protocol.FieldNewsPath)
	if err != nil {
		return nil, err
	}
	id, ok := param.FirstUint32(params, protocol.FieldNewsArticleID)
	if !ok {
		return nil, dispatch.Errorf(dispatch.ErrInvalidPayload, "missing article id")
	}
	article, err := h.board.Article(path, id)
	if err != nil {
		return nil, newsErr(err)
	}
	return articleParams(article), nil
}

// articleParams lays out an article record. Optional fields are omitted
// rather than sent empty; the date is a big-endian millisecond timestamp.
func articleParams(a store.Article) []param.Param {
	out := []param.Param{param.String(protocol.FieldNewsTitle, a.Title)}
	if a.Poster != "" {
		out = append(out, param.String(protocol.FieldNewsPoster, a.Poster))
	}
	date := make([]byte, 8)
	binary.BigEndian.PutUint64(date, uint64(a.Date.UnixMilli()))
	out = append(out, param.Param{ID: protocol.FieldNewsDate, Value: date})
	if a.PrevID != 0 {
		out = append(out, param.Uint32(protocol.FieldNewsPrevID, a.PrevID))
	}
	if a.NextID != 0 {
		out = append(out, param.Uint32(protocol.FieldNewsNextID, a.NextID))
	}
	if a.ParentID != 0 {
		out = append(out, param.Uint32(protocol.FieldNewsParentID, a.ParentID))
	}
	if a.FirstChildID != 0 {
		out = append(out, param.Uint32(protocol.FieldNewsFirstChild, a.FirstChildID))
	}
	out = append(out,
		param.Uint32(protocol.FieldNewsArticleFlags, a.Flags),
		param.String(protocol.FieldNewsDataFlavor, a.DataFlavor),
	)
	if a.Data != "" {
		out = append(out, param.String(protocol.FieldNewsArticleData, a.Data))
	}
	return out
}

// postArticleHandler creates an article. A parent id field threads the post
// as a reply; without one it starts a new thread.
type postArticleHandler struct {
	board *store.Board
}

func (h *postArticleHandler) Handle(_ context.Context, sess *session.Session, _ *frame.Transaction, params []param.Param) ([]param.Param, error) {
	if err := requireNews(sess, session.PrivNewsPostArticle); err != nil {
		return nil, err
	}
	path, err := param.RequiredString(params, protocol.FieldNewsPath)
	if err != nil {
		return nil, err
	}
	title, err := param.RequiredString(params, protocol.FieldNewsTitle)
	if err != nil {
		return nil, err
	}
	flavor, err := param.RequiredString(params, protocol.FieldNewsDataFlavor)
	if err != nil {
		return nil, err
	}
	data, err := param.RequiredString(params, protocol.FieldNewsArticleData)
	if err != nil {
		return nil, err
	}
	flags, _ := param.FirstUint32(params, protocol.FieldNewsArticleFlags)
	parentID, _ := param.FirstUint32(params, protocol.FieldNewsParentID)

	article, err := h.board.Post(path, title, sess.User(), flavor, data, flags, parentID)
	if err != nil {
		return nil, newsErr(err)
	}
	return []param.Param{param.Uint32(protocol.FieldNewsArticleID, article.ID)}, nil
}
