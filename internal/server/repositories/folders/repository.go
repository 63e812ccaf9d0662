// Package folders provides the PostgreSQL-backed folder repository. Every
// query that reads or writes a single folder on behalf of a user is scoped by
// user_id, so a foreign folder looks exactly like a missing one.
package folders

import (
	"context"

	"github.com/dmitrijs2005/linkkeeper/internal/server/models"
)

type Repository interface {
	ListByUser(ctx context.Context, userID string) ([]*models.Folder, error)
	GetOwned(ctx context.Context, userID, id string) (*models.Folder, error)
	GetByID(ctx context.Context, id string) (*models.Folder, error)
	NameTaken(ctx context.Context, userID, name, excludeID string) (bool, error)
	Create(ctx context.Context, folder *models.Folder) (*models.Folder, error)
	Update(ctx context.Context, folder *models.Folder) (*models.Folder, error)
	Delete(ctx context.Context, userID, id string) error
}
