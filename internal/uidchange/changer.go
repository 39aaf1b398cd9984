package uidchange

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	"github.com/dmitrijs2005/acctmgr/internal/dbx"
)

// Changer rewrites every reference to a user id in its part of the schema.
// Replace runs inside the rename transaction and must report each step it
// executed, even when zero rows changed.
type Changer interface {
	Name() string
	Replace(ctx context.Context, tx dbx.DBTX, oldUID, newUID string) (Report, error)
}

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func validIdentifiers(names ...string) error {
	for _, n := range names {
		if !identifier.MatchString(n) {
			return fmt.Errorf("invalid sql identifier %q", n)
		}
	}
	return nil
}

// Primitive is "UPDATE table SET column = new WHERE column = old", with an
// optional extra condition.
type Primitive struct {
	Table  string
	Column string
	// Where is appended with AND. It must be a constant SQL expression.
	Where      string
	Constraint string
}

func NewPrimitive(table, column string) (*Primitive, error) {
	if err := validIdentifiers(table, column); err != nil {
		return nil, err
	}
	return &Primitive{Table: table, Column: column}, nil
}

func (p *Primitive) Name() string { return p.Table + "." + p.Column }

func (p *Primitive) key() Key { return Key{Table: p.Table, Column: p.Column, Constraint: p.Constraint} }

func (p *Primitive) where() string {
	if p.Where == "" {
		return ""
	}
	return " AND (" + p.Where + ")"
}

func (p *Primitive) Replace(ctx context.Context, tx dbx.DBTX, oldUID, newUID string) (Report, error) {
	query := fmt.Sprintf(`UPDATE %s SET %s = ? WHERE %s = ?%s`, p.Table, p.Column, p.Column, p.where())
	res, err := tx.ExecContext(ctx, query, newUID, oldUID)
	if err != nil {
		return nil, stepError(p.key(), err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, stepError(p.key(), err)
	}
	return Report{p.key(): n}, nil
}

// Unique handles columns that are part of a unique key: rows already keyed
// by the new id are removed before the update.
type Unique struct {
	Primitive
}

func NewUnique(table, column string) (*Unique, error) {
	p, err := NewPrimitive(table, column)
	if err != nil {
		return nil, err
	}
	return &Unique{Primitive: *p}, nil
}

func (u *Unique) Name() string { return u.Table + "." + u.Column + "!" }

func (u *Unique) Replace(ctx context.Context, tx dbx.DBTX, oldUID, newUID string) (Report, error) {
	query := fmt.Sprintf(`DELETE FROM %s WHERE %s = ?%s`, u.Table, u.Column, u.where())
	if _, err := tx.ExecContext(ctx, query, newUID); err != nil {
		return nil, stepError(u.key(), err)
	}
	return u.Primitive.Replace(ctx, tx, oldUID, newUID)
}

// List replaces a user id inside free-text cc lists. Rows are addressed by
// KeyColumns, narrowed by Where in both the scan and the update. The count
// is the number of rows rewritten.
type List struct {
	Table      string
	Column     string
	KeyColumns []string
	Where      string
	Constraint string
}

func (l *List) Name() string { return l.Table + "." + l.Column + "[]" }

func (l *List) key() Key { return Key{Table: l.Table, Column: l.Column, Constraint: l.Constraint} }

type listRow struct {
	keys  []any
	value string
}

func (l *List) Replace(ctx context.Context, tx dbx.DBTX, oldUID, newUID string) (Report, error) {
	where := ""
	if l.Where != "" {
		where = " AND (" + l.Where + ")"
	}
	query := fmt.Sprintf(`SELECT %s, %s FROM %s WHERE %s LIKE ? ESCAPE '\'%s`,
		strings.Join(l.KeyColumns, ", "), l.Column, l.Table, l.Column, where)

	rows, err := l.matching(ctx, tx, query, oldUID)
	if err != nil {
		return nil, stepError(l.key(), err)
	}

	conds := make([]string, len(l.KeyColumns))
	for i, c := range l.KeyColumns {
		conds[i] = c + " = ?"
	}
	update := fmt.Sprintf(`UPDATE %s SET %s = ? WHERE %s%s`, l.Table, l.Column, strings.Join(conds, " AND "), where)

	var n int64
	for _, r := range rows {
		cc, found := ParseCCList(r.value).Replace(oldUID, newUID)
		if !found {
			continue
		}
		args := append([]any{cc.String()}, r.keys...)
		if _, err := tx.ExecContext(ctx, update, args...); err != nil {
			return nil, stepError(l.key(), err)
		}
		n++
	}
	return Report{l.key(): n}, nil
}

// matching reads all candidate rows before any update is issued; some
// drivers refuse a statement while a result set is open on the connection.
func (l *List) matching(ctx context.Context, tx dbx.DBTX, query, oldUID string) ([]listRow, error) {
	rs, err := tx.QueryContext(ctx, query, likePattern(oldUID))
	if err != nil {
		return nil, err
	}
	defer rs.Close()

	var out []listRow
	for rs.Next() {
		keys := make([]any, len(l.KeyColumns))
		dest := make([]any, len(l.KeyColumns)+1)
		for i := range keys {
			dest[i] = &keys[i]
		}
		var value sql.NullString
		dest[len(keys)] = &value
		if err := rs.Scan(dest...); err != nil {
			return nil, err
		}
		out = append(out, listRow{keys: keys, value: value.String})
	}
	return out, rs.Err()
}

// Multi runs several changers as one named unit and stops at the first
// failure.
type Multi struct {
	name  string
	steps []Changer
}

func NewMulti(name string, steps ...Changer) *Multi {
	return &Multi{name: name, steps: steps}
}

func (m *Multi) Name() string { return m.name }

func (m *Multi) Replace(ctx context.Context, tx dbx.DBTX, oldUID, newUID string) (Report, error) {
	report := Report{}
	for _, s := range m.steps {
		r, err := s.Replace(ctx, tx, oldUID, newUID)
		if err != nil {
			return nil, err
		}
		report.Merge(r)
	}
	return report, nil
}
