package models

import "time"

// Link belongs to a folder. It has no owner of its own: access is decided by
// the owner of FolderID.
type Link struct {
	ID        string    `json:"id"`
	FolderID  string    `json:"folderId"`
	Title     string    `json:"title"`
	URL       string    `json:"url"`
	Note      string    `json:"note"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
