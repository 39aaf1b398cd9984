// Package sessions stores authenticated session rows and purges everything
// keyed by a session id when an account goes away.
package sessions

import (
	"context"

	"github.com/dmitrijs2005/acctmgr/internal/models"
)

type Repository interface {
	// Prime inserts an authenticated session with last_visit 0 unless one exists.
	Prime(ctx context.Context, sid string) error
	Exists(ctx context.Context, sid string) (bool, error)
	// LastVisit returns common.ErrorNotFound when the session is absent.
	LastVisit(ctx context.Context, sid string) (int64, error)
	Create(ctx context.Context, sid string, lastVisit int64) error
	Touch(ctx context.Context, sid string, lastVisit int64) error
	Delete(ctx context.Context, sid string) (int64, error)
	// List returns authenticated sessions ordered by sid; an empty sid lists all.
	List(ctx context.Context, sid string) ([]models.Session, error)
	// Purge removes auth cookies, attributes and the session row for sid.
	Purge(ctx context.Context, sid string) error
}
