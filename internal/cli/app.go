// Package cli is the interactive administration console of the account
// manager. It reads commands line by line and dispatches them to the
// credential chain and the account guard.
package cli

import (
	"bufio"
	"context"
	"io"
	"time"

	"github.com/dmitrijs2005/acctmgr/internal/guard"
	"github.com/dmitrijs2005/acctmgr/internal/logging"
	"github.com/dmitrijs2005/acctmgr/internal/models"
	"github.com/dmitrijs2005/acctmgr/internal/registration"
	"github.com/dmitrijs2005/acctmgr/internal/stores"
	"github.com/dmitrijs2005/acctmgr/internal/uidchange"
)

// Accounts is the part of the account manager the console drives.
type Accounts interface {
	ListUsers(ctx context.Context) ([]string, error)
	UserExists(ctx context.Context, uid string) (bool, error)
	FindUserStore(ctx context.Context, uid string) (stores.Store, error)
	VerifyPassword(ctx context.Context, uid, password string) (stores.Verdict, error)
	SetPassword(ctx context.Context, uid, password, oldPassword string, overwrite bool) (bool, error)
	DeleteUser(ctx context.Context, uid string) (bool, error)
	CreateAccount(ctx context.Context, req *registration.Request) error
	ResetPassword(ctx context.Context, uid, email string) (string, error)
	ChangeUID(ctx context.Context, oldUID, newUID string, overwrite bool) (uidchange.Report, error)
	LastSeen(ctx context.Context, uid string) ([]models.Session, error)
}

// Locks is the account guard as seen by the console.
type Locks interface {
	UserLocked(ctx context.Context, uid string) (guard.LockState, error)
	ReleaseTime(ctx context.Context, uid string) (time.Time, bool, error)
	FailedCount(ctx context.Context, uid string) (int, error)
	RecordFailure(ctx context.Context, uid, ipnr string) (int, error)
	Reset(ctx context.Context, uid string) error
}

// consoleAddr is recorded as the source of failed checks typed at the console.
const consoleAddr = "console"

type App struct {
	accounts Accounts
	locks    Locks
	reader   *bufio.Reader
	out      io.Writer
	log      logging.Logger
}

func New(accounts Accounts, locks Locks, in io.Reader, out io.Writer, log logging.Logger) *App {
	return &App{
		accounts: accounts,
		locks:    locks,
		reader:   bufio.NewReader(in),
		out:      out,
		log:      log,
	}
}
