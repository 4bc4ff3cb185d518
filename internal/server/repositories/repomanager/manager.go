package repomanager

import (
	"context"
	"database/sql"

	"webshop/server/internal/dbx"
	"webshop/server/internal/server/repositories/credentials"
	"webshop/server/internal/server/repositories/goods"
	"webshop/server/internal/server/repositories/sessions"
	"webshop/server/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Sessions(db dbx.DBTX) sessions.Repository
	Users(db dbx.DBTX) users.Repository
	Goods(db dbx.DBTX) goods.Repository
	Credentials(db dbx.DBTX) credentials.Repository
}
