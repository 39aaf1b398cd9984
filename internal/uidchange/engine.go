// Package uidchange renames a user id across sessions, attributes,
// permissions and every table a registered changer knows about, inside one
// transaction.
package uidchange

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"github.com/dmitrijs2005/acctmgr/internal/common"
	"github.com/dmitrijs2005/acctmgr/internal/dbx"
	"github.com/dmitrijs2005/acctmgr/internal/logging"
	"github.com/dmitrijs2005/acctmgr/internal/repositories/repomanager"
	"github.com/google/uuid"
)

var (
	sessionKey   = Key{Table: "session", Column: "sid"}
	attributeKey = Key{Table: "session_attribute", Column: "sid"}
)

type Engine struct {
	db          *sql.DB
	repoManager repomanager.RepositoryManager
	changers    []Changer
	log         logging.Logger
}

func NewEngine(db *sql.DB, rm repomanager.RepositoryManager, changers []Changer, log logging.Logger) *Engine {
	return &Engine{db: db, repoManager: rm, changers: changers, log: log}
}

func (e *Engine) Changers() []Changer { return e.changers }

// Rename runs ChangeUID in its own transaction. Any failure rolls back every
// step and is returned as a *StepError.
func (e *Engine) Rename(ctx context.Context, oldUID, newUID string, overwrite bool) (Report, error) {
	if oldUID == "" || newUID == "" || oldUID == newUID {
		return nil, fmt.Errorf("invalid rename %q -> %q", oldUID, newUID)
	}

	log := e.log.With("rename_id", uuid.NewString(), "old_uid", oldUID, "new_uid", newUID)
	var report Report
	err := dbx.WithTx(ctx, e.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		report, err = e.changeUID(ctx, tx, oldUID, newUID, overwrite, log)
		return err
	})
	if err != nil {
		log.Error(ctx, "rename rolled back", "error", err)
		return nil, err
	}
	log.Info(ctx, "user id changed", "steps", len(report))
	return report, nil
}

// ChangeUID performs the rename on tx without committing.
func (e *Engine) ChangeUID(ctx context.Context, tx dbx.DBTX, oldUID, newUID string, overwrite bool) (Report, error) {
	return e.changeUID(ctx, tx, oldUID, newUID, overwrite, e.log)
}

func (e *Engine) changeUID(ctx context.Context, tx dbx.DBTX, oldUID, newUID string, overwrite bool, log logging.Logger) (Report, error) {
	sessions := e.repoManager.Sessions(tx)
	attrs := e.repoManager.Attributes(tx)

	if _, err := sessions.Delete(ctx, newUID); err != nil {
		return nil, stepError(sessionKey, err)
	}
	lastVisit, err := sessions.LastVisit(ctx, oldUID)
	if err != nil && !errors.Is(err, common.ErrorNotFound) {
		return nil, stepError(sessionKey, err)
	}
	if err := sessions.Create(ctx, newUID, lastVisit); err != nil {
		return nil, stepError(sessionKey, err)
	}

	copied, err := e.copyAttributes(ctx, tx, oldUID, newUID, overwrite)
	if err != nil {
		return nil, stepError(attributeKey, err)
	}
	if overwrite {
		if _, err := attrs.DeleteAll(ctx, oldUID); err != nil {
			return nil, stepError(attributeKey, err)
		}
	}

	report := Report{attributeKey: copied}
	changerTx := dbx.WithDialect(tx, e.repoManager.Dialect())
	for _, c := range e.changers {
		r, err := c.Replace(ctx, changerTx, oldUID, newUID)
		if err != nil {
			log.Debug(ctx, "changer failed", "changer", c.Name(), "error", err)
			return nil, err
		}
		for _, k := range r.Keys() {
			log.Debug(ctx, "replaced user id", "table", k.Table, "column", k.Column,
				"constraint", k.Constraint, "count", r[k])
		}
		report.Merge(r)
	}

	if _, err := sessions.Delete(ctx, oldUID); err != nil {
		return nil, stepError(sessionKey, err)
	}
	report[sessionKey] = 1
	return report, nil
}

// copyAttributes inserts attributes newUID lacks and, with overwrite,
// updates the ones it has. It returns the number of rows written.
func (e *Engine) copyAttributes(ctx context.Context, tx dbx.DBTX, oldUID, newUID string, overwrite bool) (int64, error) {
	attrs := e.repoManager.Attributes(tx)

	src, err := attrs.List(ctx, oldUID)
	if err != nil {
		return 0, err
	}
	dst, err := attrs.List(ctx, newUID)
	if err != nil {
		return 0, err
	}

	names := make([]string, 0, len(src))
	for n := range src {
		names = append(names, n)
	}
	sort.Strings(names)

	var count int64
	for _, name := range names {
		if _, exists := dst[name]; !exists {
			if err := attrs.Insert(ctx, newUID, name, src[name]); err != nil {
				return 0, err
			}
			count++
		} else if overwrite {
			if _, err := attrs.Update(ctx, newUID, name, src[name]); err != nil {
				return 0, err
			}
			count++
		}
	}
	return count, nil
}
