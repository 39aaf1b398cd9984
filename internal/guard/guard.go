// Package guard tracks failed logins per account and derives time locks
// that grow with every lock activation.
package guard

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/dmitrijs2005/acctmgr/internal/common"
	"github.com/dmitrijs2005/acctmgr/internal/dbx"
	"github.com/dmitrijs2005/acctmgr/internal/logging"
	"github.com/dmitrijs2005/acctmgr/internal/repositories/attributes"
	"github.com/dmitrijs2005/acctmgr/internal/repositories/repomanager"
)

const (
	attrFailedLogins = "failed_logins"
	attrFailedCount  = "failed_logins_count"
	attrLockCount    = "lock_count"
)

// Attempt is one logged failed login. Time is in Unix microseconds.
type Attempt struct {
	IPNr string `json:"ipnr"`
	Time int64  `json:"time"`
}

// LockState is the tri-state answer of UserLocked.
type LockState int

const (
	// LockingDisabled means no attempt limit is configured.
	LockingDisabled LockState = iota
	Unlocked
	Locked
)

func (s LockState) String() string {
	switch s {
	case Unlocked:
		return "unlocked"
	case Locked:
		return "locked"
	}
	return "disabled"
}

type Settings struct {
	// MaxAttempts of zero turns locking off.
	MaxAttempts int
	// LockTime of zero locks permanently.
	LockTime    time.Duration
	LockMaxTime time.Duration
	Progression float64
}

type Guard struct {
	db          *sql.DB
	repoManager repomanager.RepositoryManager
	settings    Settings
	log         logging.Logger
	now         func() time.Time
}

func New(db *sql.DB, rm repomanager.RepositoryManager, s Settings, log logging.Logger) *Guard {
	if s.Progression <= 0 {
		s.Progression = 1
	}
	return &Guard{db: db, repoManager: rm, settings: s, log: log, now: time.Now}
}

func (g *Guard) intAttr(ctx context.Context, attrs attributes.Repository, uid, name string) (int, error) {
	v, err := attrs.Get(ctx, uid, name)
	if errors.Is(err, common.ErrorNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("attribute %s[%s] is not a number: %w", name, uid, err)
	}
	return n, nil
}

// FailedCount reads the failed login counter.
func (g *Guard) FailedCount(ctx context.Context, uid string) (int, error) {
	return g.intAttr(ctx, g.repoManager.Attributes(g.db), uid, attrFailedCount)
}

// FailedLog returns the logged attempts, oldest first.
func (g *Guard) FailedLog(ctx context.Context, uid string) ([]Attempt, error) {
	return g.failedLog(ctx, g.repoManager.Attributes(g.db), uid)
}

func (g *Guard) failedLog(ctx context.Context, attrs attributes.Repository, uid string) ([]Attempt, error) {
	v, err := attrs.Get(ctx, uid, attrFailedLogins)
	if errors.Is(err, common.ErrorNotFound) || (err == nil && v == "") {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var out []Attempt
	if err := json.Unmarshal([]byte(v), &out); err != nil {
		return nil, fmt.Errorf("failed to decode %s[%s]: %w", attrFailedLogins, uid, err)
	}
	return out, nil
}

// RecordFailure logs a failed attempt from ipnr and returns the new count.
// The log keeps at most MaxAttempts+1 entries. Reaching the limit bumps
// the lock counter.
func (g *Guard) RecordFailure(ctx context.Context, uid, ipnr string) (int, error) {
	var count int
	err := dbx.WithTx(ctx, g.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		attrs := g.repoManager.Attributes(tx)

		n, err := g.intAttr(ctx, attrs, uid, attrFailedCount)
		if err != nil {
			return err
		}
		log, err := g.failedLog(ctx, attrs, uid)
		if err != nil {
			return err
		}
		if limit := g.settings.MaxAttempts; limit > 0 && len(log) > limit {
			log = log[len(log)-limit:]
		}
		log = append(log, Attempt{IPNr: ipnr, Time: g.now().UnixMicro()})
		count = n + 1

		raw, err := json.Marshal(log)
		if err != nil {
			return err
		}
		if err := attrs.Set(ctx, uid, attrFailedLogins, string(raw)); err != nil {
			return err
		}
		if err := attrs.Set(ctx, uid, attrFailedCount, strconv.Itoa(count)); err != nil {
			return err
		}
		if g.settings.MaxAttempts > 0 && count >= g.settings.MaxAttempts {
			locks, err := g.intAttr(ctx, attrs, uid, attrLockCount)
			if err != nil {
				return err
			}
			return attrs.Set(ctx, uid, attrLockCount, strconv.Itoa(locks+1))
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to record login failure[%s]: %w", uid, err)
	}
	g.log.Debug(ctx, "failed login recorded", "uid", uid, "count", count)
	return count, nil
}

// Reset drops the attempt log, the counter and the lock counter.
func (g *Guard) Reset(ctx context.Context, uid string) error {
	return dbx.WithTx(ctx, g.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		attrs := g.repoManager.Attributes(tx)
		for _, name := range []string{attrFailedLogins, attrFailedCount, attrLockCount} {
			if _, err := attrs.Delete(ctx, uid, name); err != nil {
				return err
			}
		}
		return nil
	})
}

func (g *Guard) LockCount(ctx context.Context, uid string) (int, error) {
	return g.intAttr(ctx, g.repoManager.Attributes(g.db), uid, attrLockCount)
}

// LockTime is LockTime * Progression^(locks-1), or ^locks for the next
// activation, capped by LockMaxTime when that is set.
func (g *Guard) LockTime(ctx context.Context, uid string, next bool) (time.Duration, error) {
	locks, err := g.LockCount(ctx, uid)
	if err != nil || locks <= 0 {
		return 0, err
	}
	exp := float64(locks - 1)
	if next {
		exp = float64(locks)
	}
	t := float64(g.settings.LockTime) * math.Pow(g.settings.Progression, exp)
	if limit := g.settings.LockMaxTime; limit > 0 && t > float64(limit) {
		t = float64(limit)
	}
	return time.Duration(t), nil
}

// ReleaseTime is the end of the current time lock. ok is false when there
// is no logged attempt or the lock has no end.
func (g *Guard) ReleaseTime(ctx context.Context, uid string) (time.Time, bool, error) {
	log, err := g.FailedLog(ctx, uid)
	if err != nil || len(log) == 0 {
		return time.Time{}, false, err
	}
	lock, err := g.LockTime(ctx, uid, false)
	if err != nil || lock == 0 {
		return time.Time{}, false, err
	}
	return time.UnixMicro(log[len(log)-1].Time).Add(lock), true, nil
}

func (g *Guard) UserLocked(ctx context.Context, uid string) (LockState, error) {
	if g.settings.MaxAttempts <= 0 {
		return LockingDisabled, nil
	}
	count, err := g.FailedCount(ctx, uid)
	if err != nil {
		return Unlocked, err
	}
	if count < g.settings.MaxAttempts {
		return Unlocked, nil
	}

	release, ok, err := g.ReleaseTime(ctx, uid)
	if err != nil {
		return Unlocked, err
	}
	if !ok || release.After(g.now()) {
		return Locked, nil
	}
	return Unlocked, nil
}
