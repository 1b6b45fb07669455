// Package models defines server-side data models persisted in the database.
package models

import "time"

// DocType classifies a stored document.
type DocType string

const (
	DocTypeCV       DocType = "CV"
	DocTypePassport DocType = "Passport"
	DocTypeID       DocType = "ID"
	DocTypeOther    DocType = "Other"
)

// ValidDocType reports whether t is one of the known document types.
func ValidDocType(t DocType) bool {
	switch t {
	case DocTypeCV, DocTypePassport, DocTypeID, DocTypeOther:
		return true
	}
	return false
}

// Document describes one vaulted file. Title and Description are plaintext
// at this layer; the repository encrypts them before they reach the
// database and decrypts them on read. The file content itself lives in
// object storage under BlobRef, always as ciphertext.
type Document struct {
	ID      string
	OwnerID string

	Title       string
	Description string
	DocType     DocType

	// FileName is the original upload name, used as the download
	// attachment name. Independent of the storage key scheme.
	FileName string

	// BlobRef is the object-storage key of the encrypted content.
	BlobRef string

	UploadedAt time.Time

	// Downloads only ever grows, and only via the download path.
	Downloads int64
}
