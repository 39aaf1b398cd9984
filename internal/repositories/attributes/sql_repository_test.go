package attributes

import (
	"context"
	"database/sql"
	"testing"

	"github.com/dmitrijs2005/acctmgr/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
CREATE TABLE session_attribute (
  sid           TEXT    NOT NULL,
  authenticated INTEGER NOT NULL,
  name          TEXT    NOT NULL,
  value         TEXT,
  PRIMARY KEY (sid, authenticated, name)
);`)
	require.NoError(t, err)
	return db
}

func TestSetAndGet(t *testing.T) {
	r := NewSQLRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, "alice", "email", "alice@example.org"))

	v, err := r.Get(ctx, "alice", "email")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.org", v)
}

func TestGet_Absent(t *testing.T) {
	r := NewSQLRepository(setupDB(t))

	_, err := r.Get(context.Background(), "alice", "email")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestSet_UpsertOverwritesValue(t *testing.T) {
	r := NewSQLRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, "alice", "password_refreshed", "0"))
	require.NoError(t, r.Set(ctx, "alice", "password_refreshed", "1"))

	v, err := r.Get(ctx, "alice", "password_refreshed")
	require.NoError(t, err)
	assert.Equal(t, "1", v)
}

func TestInsert_DuplicateFails(t *testing.T) {
	r := NewSQLRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Insert(ctx, "alice", "name", "Alice"))
	require.Error(t, r.Insert(ctx, "alice", "name", "Alice again"))
}

func TestUpdateAndDelete(t *testing.T) {
	r := NewSQLRepository(setupDB(t))
	ctx := context.Background()

	n, err := r.Update(ctx, "alice", "name", "nobody")
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, r.Insert(ctx, "alice", "name", "Alice"))
	n, err = r.Update(ctx, "alice", "name", "Alice L.")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = r.Delete(ctx, "alice", "name")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = r.Delete(ctx, "alice", "name")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestListAndDeleteAll(t *testing.T) {
	r := NewSQLRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, "alice", "email", "a@example.org"))
	require.NoError(t, r.Set(ctx, "alice", "force_change_passwd", "1"))
	require.NoError(t, r.Set(ctx, "bob", "email", "b@example.org"))

	m, err := r.List(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"email": "a@example.org", "force_change_passwd": "1"}, m)

	n, err := r.DeleteAll(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	m, err = r.List(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, m)
}

func TestSIDsWithNameAndValue(t *testing.T) {
	r := NewSQLRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, "carol", "password", "h3"))
	require.NoError(t, r.Set(ctx, "alice", "password", "h1"))
	require.NoError(t, r.Set(ctx, "bob", "email", "shared@example.org"))
	require.NoError(t, r.Set(ctx, "alice", "email", "shared@example.org"))

	sids, err := r.SIDsWithName(ctx, "password")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "carol"}, sids)

	sids, err = r.SIDsWithValue(ctx, "email", "shared@example.org")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, sids)

	sids, err = r.SIDsWithValue(ctx, "email", "none@example.org")
	require.NoError(t, err)
	assert.Empty(t, sids)
}
