package sessions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/acctmgr/internal/common"
	"github.com/dmitrijs2005/acctmgr/internal/dbx"
	"github.com/dmitrijs2005/acctmgr/internal/models"
)

type SQLRepository struct {
	db dbx.DBTX
}

func NewSQLRepository(db dbx.DBTX) *SQLRepository {
	return &SQLRepository{db: db}
}

func (r *SQLRepository) Prime(ctx context.Context, sid string) error {
	exists, err := r.Exists(ctx, sid)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return r.Create(ctx, sid, 0)
}

func (r *SQLRepository) Exists(ctx context.Context, sid string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM session WHERE sid = ? AND authenticated = 1`, sid).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return n > 0, nil
}

func (r *SQLRepository) LastVisit(ctx context.Context, sid string) (int64, error) {
	var lastVisit int64
	err := r.db.QueryRowContext(ctx,
		`SELECT last_visit FROM session WHERE sid = ? AND authenticated = 1`, sid).Scan(&lastVisit)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, common.ErrorNotFound
		}
		return 0, fmt.Errorf("db error: %w", err)
	}
	return lastVisit, nil
}

func (r *SQLRepository) Create(ctx context.Context, sid string, lastVisit int64) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO session (sid, authenticated, last_visit) VALUES (?, 1, ?)`, sid, lastVisit)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *SQLRepository) Touch(ctx context.Context, sid string, lastVisit int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE session SET last_visit = ? WHERE sid = ? AND authenticated = 1`, lastVisit, sid)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *SQLRepository) Delete(ctx context.Context, sid string) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM session WHERE sid = ? AND authenticated = 1`, sid)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return res.RowsAffected()
}

func (r *SQLRepository) List(ctx context.Context, sid string) ([]models.Session, error) {
	query := `SELECT sid, last_visit FROM session WHERE authenticated = 1`
	args := []any{}
	if sid != "" {
		query += ` AND sid = ?`
		args = append(args, sid)
	}
	query += ` ORDER BY sid`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []models.Session
	for rows.Next() {
		var s models.Session
		if err := rows.Scan(&s.SID, &s.LastVisit); err != nil {
			return nil, fmt.Errorf("failed to scan session row: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate session rows: %w", err)
	}
	return out, nil
}

var purgeQueries = []struct {
	table string
	query string
}{
	{"auth_cookie", `DELETE FROM auth_cookie WHERE name = ?`},
	{"session_attribute", `DELETE FROM session_attribute WHERE sid = ? AND authenticated = 1`},
	{"session", `DELETE FROM session WHERE sid = ? AND authenticated = 1`},
}

func (r *SQLRepository) Purge(ctx context.Context, sid string) error {
	for _, q := range purgeQueries {
		if _, err := r.db.ExecContext(ctx, q.query, sid); err != nil {
			return fmt.Errorf("failed to purge %s[%s]: %w", q.table, sid, err)
		}
	}
	return nil
}
