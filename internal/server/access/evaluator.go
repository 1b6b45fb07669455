// Package access decides whether a user may download a document. The
// decision takes the evaluation instant as an explicit argument, so policy
// is deterministic and testable without touching the wall clock.
package access

import (
	"context"
	"time"

	"docvault/internal/server/models"
)

// ShareFinder is the slice of the share registry the evaluator consults.
type ShareFinder interface {
	FindActive(ctx context.Context, documentID, userID string, now time.Time) (*models.DocumentShare, error)
}

// Evaluator applies the download policy: owners always may; everyone else
// needs an active share with the download capability.
type Evaluator struct {
	shares ShareFinder
}

func NewEvaluator(shares ShareFinder) *Evaluator {
	return &Evaluator{shares: shares}
}

// CanDownload evaluates the policy at the given instant. Policy order,
// short-circuiting: owner, then active downloadable share, then deny.
func (e *Evaluator) CanDownload(ctx context.Context, doc *models.Document, userID string, now time.Time) (bool, error) {
	if userID == doc.OwnerID {
		return true, nil
	}
	share, err := e.shares.FindActive(ctx, doc.ID, userID, now)
	if err != nil {
		return false, err
	}
	return Allowed(share, now), nil
}

// Allowed is the pure capability check over an already-fetched share.
// A nil share denies; an expired share denies; a share that is active in
// expiry terms but lacks the download capability denies too.
func Allowed(share *models.DocumentShare, now time.Time) bool {
	return share != nil && share.Active(now) && share.CanDownload
}
