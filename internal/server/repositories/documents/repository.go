package documents

import (
	"context"

	"docvault/internal/server/models"
)

// Repository owns Document records. Implementations encrypt title and
// description on write and decrypt them on read; the storage engine only
// ever sees ciphertext for those fields.
type Repository interface {
	Create(ctx context.Context, doc *models.Document) error
	GetByID(ctx context.Context, id string) (*models.Document, error)
	SelectByOwner(ctx context.Context, ownerID string) ([]*models.Document, error)
	IncrementDownloads(ctx context.Context, id string) (int64, error)
	Delete(ctx context.Context, id string) error
}
