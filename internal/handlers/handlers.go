// Package handlers implements the domain side of the protocol: login, file
// listing, the news board, and the agreement text.
package handlers

import (
	"github.com/rs/zerolog"

	"hubbub/internal/dispatch"
	"hubbub/internal/protocol"
	"hubbub/internal/store"
)

// Deps are the collaborators shared by every handler.
type Deps struct {
	Accounts  *store.AccountStore
	Board     *store.Board
	Files     *store.FileStore
	Agreement *store.Agreement
	Log       zerolog.Logger
}

// Register binds every domain handler to its transaction type.
func Register(b *dispatch.Builder, deps Deps) *dispatch.Builder {
	log := deps.Log.With().Str("component", "handlers").Logger()
	return b.
		Register(protocol.TypeLogin, &loginHandler{accounts: deps.Accounts, log: log}).
		Register(protocol.TypeAgreed, &agreedHandler{log: log}).
		Register(protocol.TypeAgreement, &agreementHandler{agreement: deps.Agreement}).
		Register(protocol.TypeGetFileNameList, &fileListHandler{files: deps.Files}).
		Register(protocol.TypeNewsCategoryList, &categoryListHandler{board: deps.Board}).
		Register(protocol.TypeNewsArticleList, &articleListHandler{board: deps.Board}).
		Register(protocol.TypeNewsArticleData, &articleDataHandler{board: deps.Board}).
		Register(protocol.TypePostNewsArticle, &postArticleHandler{board: deps.Board})
}
