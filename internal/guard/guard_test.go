package guard

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/dmitrijs2005/acctmgr/internal/dbx"
	"github.com/dmitrijs2005/acctmgr/internal/logging"
	"github.com/dmitrijs2005/acctmgr/internal/repositories/repomanager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newGuard(t *testing.T, s Settings) (*Guard, *clock) {
	t.Helper()
	db, rm, err := repomanager.Open(context.Background(), dbx.SQLite, filepath.Join(t.TempDir(), "guard.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	c := &clock{t: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
	g := New(db, rm, s, logging.NewNop())
	g.now = c.now
	return g, c
}

func TestUserLocked_Disabled(t *testing.T) {
	g, _ := newGuard(t, Settings{})
	ctx := context.Background()

	_, err := g.RecordFailure(ctx, "alice", "127.0.0.1")
	require.NoError(t, err)

	state, err := g.UserLocked(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, LockingDisabled, state)
}

func TestRecordFailure_CountsAndTruncatesLog(t *testing.T) {
	g, c := newGuard(t, Settings{MaxAttempts: 2, LockTime: time.Minute})
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		c.t = c.t.Add(time.Second)
		n, err := g.RecordFailure(ctx, "alice", "10.0.0.1")
		require.NoError(t, err)
		assert.Equal(t, i, n)
	}

	log, err := g.FailedLog(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, log, 3, "at most MaxAttempts+1 entries are kept")
	assert.Equal(t, c.t.UnixMicro(), log[len(log)-1].Time)
	assert.Equal(t, "10.0.0.1", log[0].IPNr)

	locks, err := g.LockCount(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 4, locks)
}

func TestUserLocked_TimeLockExpires(t *testing.T) {
	g, c := newGuard(t, Settings{MaxAttempts: 2, LockTime: time.Minute, Progression: 1})
	ctx := context.Background()

	_, err := g.RecordFailure(ctx, "alice", "")
	require.NoError(t, err)
	state, err := g.UserLocked(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, Unlocked, state, "one try left")

	_, err = g.RecordFailure(ctx, "alice", "")
	require.NoError(t, err)
	state, err = g.UserLocked(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, Locked, state)

	release, ok, err := g.ReleaseTime(ctx, "alice")
	require.NoError(t, err)
	require.True(t, ok)
	assert.WithinDuration(t, c.t.Add(time.Minute), release, 0)

	c.t = c.t.Add(61 * time.Second)
	state, err = g.UserLocked(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, Unlocked, state)
}

func TestUserLocked_PermanentWithoutLockTime(t *testing.T) {
	g, c := newGuard(t, Settings{MaxAttempts: 1})
	ctx := context.Background()

	_, err := g.RecordFailure(ctx, "alice", "")
	require.NoError(t, err)
	c.t = c.t.Add(365 * 24 * time.Hour)

	state, err := g.UserLocked(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, Locked, state)

	require.NoError(t, g.Reset(ctx, "alice"))
	state, err = g.UserLocked(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, Unlocked, state)

	n, err := g.FailedCount(ctx, "alice")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestLockTime_ProgressionAndCap(t *testing.T) {
	g, _ := newGuard(t, Settings{MaxAttempts: 1, LockTime: time.Minute, LockMaxTime: 5 * time.Minute, Progression: 2})
	ctx := context.Background()

	d, err := g.LockTime(ctx, "alice", false)
	require.NoError(t, err)
	assert.Zero(t, d, "no lock yet")

	want := []time.Duration{time.Minute, 2 * time.Minute, 4 * time.Minute, 5 * time.Minute}
	for _, w := range want {
		_, err := g.RecordFailure(ctx, "alice", "")
		require.NoError(t, err)
		d, err := g.LockTime(ctx, "alice", false)
		require.NoError(t, err)
		assert.Equal(t, w, d)
	}

	next, err := g.LockTime(ctx, "alice", true)
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, next)
}
