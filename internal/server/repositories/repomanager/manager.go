package repomanager

import (
	"context"
	"database/sql"

	"github.com/profiledoc/profiledoc/internal/dbx"
	"github.com/profiledoc/profiledoc/internal/server/repositories/refreshtokens"
	"github.com/profiledoc/profiledoc/internal/server/repositories/users"
)

// RepositoryManager vends repository implementations bound to a DBTX handle,
// so services can use the same repositories against *sql.DB or inside a
// transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
}
