package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/linkkeeper/internal/common"
	"github.com/dmitrijs2005/linkkeeper/internal/dbx"
	"github.com/dmitrijs2005/linkkeeper/internal/server/models"
	"github.com/dmitrijs2005/linkkeeper/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// FolderService manages a user's folders. A folder that belongs to someone
// else is reported exactly like a folder that does not exist:
// common.ErrNotFoundOrForbidden.
type FolderService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

func NewFolderService(db *sql.DB, m repomanager.RepositoryManager) *FolderService {
	return &FolderService{db: db, repomanager: m}
}

func (s *FolderService) List(ctx context.Context, userID string) ([]*models.Folder, error) {
	const op = "services.FolderService.List"

	folders, err := s.repomanager.Folders(s.db).ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return folders, nil
}

func (s *FolderService) Get(ctx context.Context, userID, folderID string) (*models.Folder, error) {
	return s.getOwned(ctx, "services.FolderService.Get", s.db, userID, folderID)
}

// Create adds a folder. The trimmed name must be non-empty and unique among
// the user's folders.
func (s *FolderService) Create(ctx context.Context, userID, name, description string) (*models.Folder, error) {
	const op = "services.FolderService.Create"

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, validationError("name", "is required")
	}

	repo := s.repomanager.Folders(s.db)

	taken, err := repo.NameTaken(ctx, userID, name, "")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if taken {
		return nil, common.ErrDuplicateName
	}

	folder, err := repo.Create(ctx, &models.Folder{
		ID:          uuid.NewString(),
		UserID:      userID,
		Name:        name,
		Description: description,
	})
	if err != nil {
		if errors.Is(err, common.ErrDuplicateName) {
			return nil, common.ErrDuplicateName
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return folder, nil
}

// Update renames and/or re-describes a folder. An empty (after trimming)
// name or an empty description keeps the stored value. The new name may
// equal the folder's own current name.
func (s *FolderService) Update(ctx context.Context, userID, folderID, name, description string) (*models.Folder, error) {
	const op = "services.FolderService.Update"

	folder, err := s.getOwned(ctx, op, s.db, userID, folderID)
	if err != nil {
		return nil, err
	}

	repo := s.repomanager.Folders(s.db)

	if name = strings.TrimSpace(name); name != "" {
		taken, err := repo.NameTaken(ctx, userID, name, folder.ID)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if taken {
			return nil, common.ErrDuplicateName
		}
		folder.Name = name
	}
	if description != "" {
		folder.Description = description
	}

	updated, err := repo.Update(ctx, folder)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrDuplicateName):
			return nil, common.ErrDuplicateName
		case errors.Is(err, common.ErrorNotFound):
			return nil, common.ErrNotFoundOrForbidden
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return updated, nil
}

// Delete removes a folder together with all of its links in one
// transaction. It returns the number of links that went with it.
func (s *FolderService) Delete(ctx context.Context, userID, folderID string) (int64, error) {
	const op = "services.FolderService.Delete"

	if !isID(folderID) {
		return 0, common.ErrNotFoundOrForbidden
	}

	var removed int64
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		folder, err := s.getOwned(ctx, op, tx, userID, folderID)
		if err != nil {
			return err
		}

		removed, err = s.repomanager.Links(tx).DeleteByFolder(ctx, folder.ID)
		if err != nil {
			return fmt.Errorf("%s: deleting links: %w", op, err)
		}

		if err := s.repomanager.Folders(tx).Delete(ctx, userID, folder.ID); err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrNotFoundOrForbidden
			}
			return fmt.Errorf("%s: %w", op, err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, common.ErrNotFoundOrForbidden) {
			return 0, common.ErrNotFoundOrForbidden
		}
		if !errors.Is(err, common.ErrServiceUnavailable) && dbx.IsUnavailable(err) {
			return 0, fmt.Errorf("%s: %w", op, dbx.WrapError(err))
		}
		return 0, err
	}
	return removed, nil
}

func (s *FolderService) getOwned(ctx context.Context, op string, db dbx.DBTX, userID, folderID string) (*models.Folder, error) {
	if !isID(folderID) {
		return nil, common.ErrNotFoundOrForbidden
	}
	folder, err := s.repomanager.Folders(db).GetOwned(ctx, userID, folderID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrNotFoundOrForbidden
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return folder, nil
}
