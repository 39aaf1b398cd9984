package permissions

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/acctmgr/internal/dbx"
)

type SQLRepository struct {
	db dbx.DBTX
}

func NewSQLRepository(db dbx.DBTX) *SQLRepository {
	return &SQLRepository{db: db}
}

func (r *SQLRepository) Grant(ctx context.Context, username, action string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO permission (username, action) VALUES (?, ?)
		ON CONFLICT(username, action) DO NOTHING
	`, username, action)
	if err != nil {
		return fmt.Errorf("failed to grant %s to %s: %w", action, username, err)
	}
	return nil
}

func (r *SQLRepository) Actions(ctx context.Context, username string) ([]string, error) {
	return r.strings(ctx, `SELECT action FROM permission WHERE username = ? ORDER BY action`, username)
}

func (r *SQLRepository) Subjects(ctx context.Context) ([]string, error) {
	return r.strings(ctx, `SELECT DISTINCT username FROM permission ORDER BY username`)
}

func (r *SQLRepository) DeleteUser(ctx context.Context, username string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM permission WHERE username = ?`, username)
	if err != nil {
		return 0, fmt.Errorf("failed to delete permissions[%s]: %w", username, err)
	}
	return res.RowsAffected()
}

func (r *SQLRepository) strings(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("failed to scan permission row: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate permission rows: %w", err)
	}
	return out, nil
}
