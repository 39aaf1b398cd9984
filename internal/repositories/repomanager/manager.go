package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/acctmgr/internal/dbx"
	"github.com/dmitrijs2005/acctmgr/internal/repositories/attributes"
	"github.com/dmitrijs2005/acctmgr/internal/repositories/permissions"
	"github.com/dmitrijs2005/acctmgr/internal/repositories/sessions"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Dialect() dbx.Dialect
	Sessions(db dbx.DBTX) sessions.Repository
	Attributes(db dbx.DBTX) attributes.Repository
	Permissions(db dbx.DBTX) permissions.Repository
}
