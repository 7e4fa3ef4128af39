package session

// Privileges is the access bitmap carried in the user-access field. Each
// bit grants one operation.
type Privileges uint64

const (
	PrivDeleteFile Privileges = 1 << iota
	PrivUploadFile
	PrivDownloadFile
	PrivRenameFile
	PrivMoveFile
	PrivCreateFolder
	PrivDeleteFolder
	PrivRenameFolder
	PrivMoveFolder
	PrivReadChat
	PrivSendChat
	PrivOpenChat
	PrivCloseChat
	PrivShowInList
	PrivCreateUser
	PrivDeleteUser
	PrivOpenUser
	PrivModifyUser
	PrivChangeOwnPassword
	PrivSendPrivateMessage
	PrivNewsReadArticle
	PrivNewsPostArticle
	PrivDisconnectUser
	PrivCannotBeDisconnected
	PrivGetClientInfo
	PrivUploadAnywhere
	PrivAnyName
	PrivNoAgreement
	PrivSetFileComment
	PrivSetFolderComment
	PrivViewDropBoxes
	PrivMakeAlias
	PrivBroadcast
	PrivNewsDeleteArticle
	PrivNewsCreateCategory
	PrivNewsDeleteCategory
	PrivNewsCreateFolder
	PrivNewsDeleteFolder
)

// Has reports whether every bit in p is granted.
func (p Privileges) Has(want Privileges) bool { return p&want == want }

// DefaultUserPrivileges is the grant for a freshly authenticated regular
// account: read and post access without administrative bits.
func DefaultUserPrivileges() Privileges {
	return PrivDownloadFile |
		PrivReadChat |
		PrivSendChat |
		PrivShowInList |
		PrivSendPrivateMessage |
		PrivNewsReadArticle |
		PrivNewsPostArticle |
		PrivGetClientInfo |
		PrivChangeOwnPassword
}

// AdminPrivileges grants every defined bit.
func AdminPrivileges() Privileges {
	return 1<<38 - 1
}
