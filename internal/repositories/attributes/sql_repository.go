package attributes

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/acctmgr/internal/common"
	"github.com/dmitrijs2005/acctmgr/internal/dbx"
)

type SQLRepository struct {
	db dbx.DBTX
}

func NewSQLRepository(db dbx.DBTX) *SQLRepository {
	return &SQLRepository{db: db}
}

func (r *SQLRepository) Get(ctx context.Context, sid, name string) (string, error) {
	var value sql.NullString
	err := r.db.QueryRowContext(ctx,
		`SELECT value FROM session_attribute WHERE sid = ? AND authenticated = 1 AND name = ?`,
		sid, name).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", common.ErrorNotFound
		}
		return "", fmt.Errorf("failed to get attribute[%s.%s]: %w", sid, name, err)
	}
	return value.String, nil
}

func (r *SQLRepository) List(ctx context.Context, sid string) (map[string]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT name, value FROM session_attribute WHERE sid = ? AND authenticated = 1`, sid)
	if err != nil {
		return nil, fmt.Errorf("failed to list attributes[%s]: %w", sid, err)
	}
	defer rows.Close()

	result := make(map[string]string)
	for rows.Next() {
		var name string
		var value sql.NullString
		if err := rows.Scan(&name, &value); err != nil {
			return nil, fmt.Errorf("failed to scan attribute row: %w", err)
		}
		result[name] = value.String
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate attribute rows: %w", err)
	}
	return result, nil
}

func (r *SQLRepository) Set(ctx context.Context, sid, name, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO session_attribute (sid, authenticated, name, value) VALUES (?, 1, ?, ?)
		ON CONFLICT(sid, authenticated, name) DO UPDATE SET value = excluded.value
	`, sid, name, value)
	if err != nil {
		return fmt.Errorf("failed to set attribute[%s.%s]: %w", sid, name, err)
	}
	return nil
}

func (r *SQLRepository) Insert(ctx context.Context, sid, name, value string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO session_attribute (sid, authenticated, name, value) VALUES (?, 1, ?, ?)`,
		sid, name, value)
	if err != nil {
		return fmt.Errorf("failed to insert attribute[%s.%s]: %w", sid, name, err)
	}
	return nil
}

func (r *SQLRepository) Update(ctx context.Context, sid, name, value string) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE session_attribute SET value = ? WHERE sid = ? AND authenticated = 1 AND name = ?`,
		value, sid, name)
	if err != nil {
		return 0, fmt.Errorf("failed to update attribute[%s.%s]: %w", sid, name, err)
	}
	return res.RowsAffected()
}

func (r *SQLRepository) Delete(ctx context.Context, sid, name string) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM session_attribute WHERE sid = ? AND authenticated = 1 AND name = ?`, sid, name)
	if err != nil {
		return 0, fmt.Errorf("failed to delete attribute[%s.%s]: %w", sid, name, err)
	}
	return res.RowsAffected()
}

func (r *SQLRepository) DeleteAll(ctx context.Context, sid string) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM session_attribute WHERE sid = ? AND authenticated = 1`, sid)
	if err != nil {
		return 0, fmt.Errorf("failed to delete attributes[%s]: %w", sid, err)
	}
	return res.RowsAffected()
}

func (r *SQLRepository) SIDsWithName(ctx context.Context, name string) ([]string, error) {
	return r.sids(ctx,
		`SELECT sid FROM session_attribute WHERE authenticated = 1 AND name = ? ORDER BY sid`, name)
}

func (r *SQLRepository) SIDsWithValue(ctx context.Context, name, value string) ([]string, error) {
	return r.sids(ctx,
		`SELECT sid FROM session_attribute WHERE authenticated = 1 AND name = ? AND value = ? ORDER BY sid`,
		name, value)
}

func (r *SQLRepository) sids(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list attribute owners: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var sid string
		if err := rows.Scan(&sid); err != nil {
			return nil, fmt.Errorf("failed to scan attribute row: %w", err)
		}
		out = append(out, sid)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate attribute rows: %w", err)
	}
	return out, nil
}
