package models

import "time"

// DocumentShare is a time-bounded grant letting SharedWith download the
// referenced document. The token is plaintext at this layer and ciphertext
// at rest. Expiry is a query-time predicate; expired rows stay in place
// and are simply inert.
type DocumentShare struct {
	ID         string
	DocumentID string
	SharedWith string

	Token string

	// CanDownload gates the download capability independently of expiry.
	CanDownload bool

	ExpiresAt time.Time
	CreatedAt time.Time
}

// Active reports whether the share is still within its validity window at
// the given instant. The boundary is strict: a share expiring exactly at
// now is no longer active.
func (s *DocumentShare) Active(now time.Time) bool {
	return now.Before(s.ExpiresAt)
}
