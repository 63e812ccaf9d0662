package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/linkkeeper/internal/dbx"
	"github.com/dmitrijs2005/linkkeeper/internal/server/repositories/folders"
	"github.com/dmitrijs2005/linkkeeper/internal/server/repositories/links"
	"github.com/dmitrijs2005/linkkeeper/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to a DBTX, so services can
// run the same repository code on the pool or inside a transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Folders(db dbx.DBTX) folders.Repository
	Links(db dbx.DBTX) links.Repository
}
