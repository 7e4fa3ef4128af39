package protocol

// Transaction type identifiers.
const (
	TypeError            uint16 = 100
	TypeLogin            uint16 = 107
	TypeAgreement        uint16 = 109
	TypeDisconnectNotice uint16 = 111
	TypeAgreed           uint16 = 121
	TypeGetFileNameList  uint16 = 200
	TypeUserAccess       uint16 = 354
	TypeNewsCategoryList uint16 = 370
	TypeNewsArticleList  uint16 = 371
	TypeNewsArticleData  uint16 = 400
	TypePostNewsArticle  uint16 = 410
)

// Parameter field identifiers.
const (
	FieldData             uint16 = 101
	FieldLogin            uint16 = 105
	FieldPassword         uint16 = 106
	FieldUserAccess       uint16 = 110
	FieldVersion          uint16 = 160
	FieldBannerID         uint16 = 161
	FieldServerName       uint16 = 162
	FieldFileName         uint16 = 201
	FieldNewsCategory     uint16 = 320
	FieldNewsArticle      uint16 = 321
	FieldNewsArticleID    uint16 = 322
	FieldNewsArticleFlags uint16 = 323
	FieldNewsPath         uint16 = 325
	FieldNewsTitle        uint16 = 326
	FieldNewsPoster       uint16 = 327
	FieldNewsDate         uint16 = 328
	FieldNewsPrevID       uint16 = 330
	FieldNewsNextID       uint16 = 331
	FieldNewsParentID     uint16 = 332
	FieldNewsFirstChild   uint16 = 333
	FieldNewsArticleData  uint16 = 334
	FieldNewsDataFlavor   uint16 = 402
)

// Reply error codes carried in the frame header of non-fatal error replies.
const (
	ErrCodeUnknownType    uint32 = 1
	ErrCodeInvalidPayload uint32 = 2
	ErrCodeInternal       uint32 = 3
	ErrCodeInsufficient   uint32 = 4
)

// ClientVersion is the version code the server reports in login replies.
const ClientVersion uint16 = 0x0097

// IsTextField reports whether a field carries client-visible text. Text
// fields are subject to the legacy XOR obfuscation some clients apply.
func IsTextField(id uint16) bool {
	switch id {
	case FieldLogin, FieldPassword, FieldData, FieldFileName,
		FieldNewsCategory, FieldNewsArticle, FieldNewsPath,
		FieldNewsTitle, FieldNewsPoster, FieldNewsDataFlavor,
		FieldNewsArticleData:
		return true
	}
	return false
}

// RepeatableField reports whether duplicate instances of a field id are
// permitted within one parameter block. List replies repeat these ids once
// per entry.
func RepeatableField(id uint16) bool {
	switch id {
	case FieldNewsCategory, FieldNewsArticle, FieldFileName:
		return true
	}
	return false
}

// TypeName returns a human-readable name for known transaction types,
// used in logs and metrics labels.
func TypeName(ty uint16) string {
	switch ty {
	case TypeError:
		return "error"
	case TypeLogin:
		return "login"
	case TypeAgreement:
		return "agreement"
	case TypeDisconnectNotice:
		return "disconnect_notice"
	case TypeAgreed:
		return "agreed"
	case TypeGetFileNameList:
		return "file_name_list"
	case TypeUserAccess:
		return "user_access"
	case TypeNewsCategoryList:
		return "news_category_list"
	case TypeNewsArticleList:
		return "news_article_list"
	case TypeNewsArticleData:
		return "news_article_data"
	case TypePostNewsArticle:
		return "post_news_article"
	}
	return "unknown"
}
