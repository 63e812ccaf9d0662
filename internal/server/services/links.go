package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/linkkeeper/internal/common"
	"github.com/dmitrijs2005/linkkeeper/internal/server/models"
	"github.com/google/uuid"
)

// LinkService manages links inside folders. Links have no owner of their
// own; access follows the parent folder.
//
// Listing and creating go through the folder first, so a foreign folder is
// common.ErrNotFoundOrForbidden. Updating and deleting start from the link:
// a missing link is common.ErrLinkNotFound, a link in someone else's folder
// is common.ErrForbidden.
type LinkService struct {
	folders *FolderService
}

// NewLinkService builds a LinkService on top of folders, sharing its
// database handle and repository manager.
func NewLinkService(folders *FolderService) *LinkService {
	return &LinkService{folders: folders}
}

func (s *LinkService) ListByFolder(ctx context.Context, userID, folderID string) ([]*models.Link, error) {
	const op = "services.LinkService.ListByFolder"

	folder, err := s.folders.Get(ctx, userID, folderID)
	if err != nil {
		return nil, err
	}

	links, err := s.folders.repomanager.Links(s.folders.db).ListByFolder(ctx, folder.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return links, nil
}

// Create adds a link to one of the user's folders. Title is required.
func (s *LinkService) Create(ctx context.Context, userID, folderID, title, url, note string) (*models.Link, error) {
	const op = "services.LinkService.Create"

	title = strings.TrimSpace(title)
	if title == "" {
		return nil, validationError("title", "is required")
	}

	folder, err := s.folders.Get(ctx, userID, folderID)
	if err != nil {
		return nil, err
	}

	link, err := s.folders.repomanager.Links(s.folders.db).Create(ctx, &models.Link{
		ID:       uuid.NewString(),
		FolderID: folder.ID,
		Title:    title,
		URL:      strings.TrimSpace(url),
		Note:     note,
	})
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrNotFoundOrForbidden
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return link, nil
}

// Update overwrites title, url and note of a link in one of the user's
// folders. Title is required; empty url and note clear the stored values.
// The link is resolved first, so a missing or foreign link is reported as
// such whatever the payload.
func (s *LinkService) Update(ctx context.Context, userID, linkID, title, url, note string) (*models.Link, error) {
	const op = "services.LinkService.Update"

	link, err := s.resolve(ctx, op, userID, linkID)
	if err != nil {
		return nil, err
	}

	title = strings.TrimSpace(title)
	if title == "" {
		return nil, validationError("title", "is required")
	}

	link.Title = title
	link.URL = strings.TrimSpace(url)
	link.Note = note

	updated, err := s.folders.repomanager.Links(s.folders.db).Update(ctx, link)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrLinkNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return updated, nil
}

func (s *LinkService) Delete(ctx context.Context, userID, linkID string) error {
	const op = "services.LinkService.Delete"

	link, err := s.resolve(ctx, op, userID, linkID)
	if err != nil {
		return err
	}

	if err := s.folders.repomanager.Links(s.folders.db).Delete(ctx, link.ID); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrLinkNotFound
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// resolve loads a link and checks that its folder belongs to userID.
func (s *LinkService) resolve(ctx context.Context, op, userID, linkID string) (*models.Link, error) {
	if !isID(linkID) {
		return nil, common.ErrLinkNotFound
	}

	rm, db := s.folders.repomanager, s.folders.db

	link, err := rm.Links(db).GetByID(ctx, linkID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrLinkNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	folder, err := rm.Folders(db).GetByID(ctx, link.FolderID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrForbidden
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if folder.UserID != userID {
		return nil, common.ErrForbidden
	}
	return link, nil
}
