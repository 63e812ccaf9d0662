// Package links provides the PostgreSQL-backed link repository. Links carry
// no owner column; callers authorize through the parent folder.
package links

import (
	"context"

	"github.com/dmitrijs2005/linkkeeper/internal/server/models"
)

type Repository interface {
	ListByFolder(ctx context.Context, folderID string) ([]*models.Link, error)
	GetByID(ctx context.Context, id string) (*models.Link, error)
	Create(ctx context.Context, link *models.Link) (*models.Link, error)
	Update(ctx context.Context, link *models.Link) (*models.Link, error)
	Delete(ctx context.Context, id string) error

	// DeleteByFolder removes every link of a folder and reports how many went.
	DeleteByFolder(ctx context.Context, folderID string) (int64, error)
}
