package cli

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/acctmgr/internal/accounts"
	"github.com/dmitrijs2005/acctmgr/internal/guard"
	"github.com/dmitrijs2005/acctmgr/internal/registration"
	"github.com/dmitrijs2005/acctmgr/internal/stores"
)

// warnOrFail prints listener failures as a warning; the change was stored.
func (a *App) warnOrFail(err error) error {
	if accounts.IsNotificationError(err) {
		fmt.Fprintf(a.out, "Warning: %v\n", err)
		return nil
	}
	return err
}

func (a *App) users(ctx context.Context, _ []string) error {
	users, err := a.accounts.ListUsers(ctx)
	if err != nil {
		return err
	}
	for _, u := range users {
		fmt.Fprintln(a.out, u)
	}
	return nil
}

func (a *App) exists(ctx context.Context, args []string) error {
	s, err := a.accounts.FindUserStore(ctx, args[0])
	if err != nil {
		return err
	}
	if s == nil {
		fmt.Fprintf(a.out, "%s: not found\n", args[0])
		return nil
	}
	fmt.Fprintf(a.out, "%s: %s (%s)\n", args[0], s.Name(), s.Capabilities())
	return nil
}

func (a *App) check(ctx context.Context, args []string) error {
	uid := args[0]
	state, err := a.locks.UserLocked(ctx, uid)
	if err != nil {
		return err
	}
	if state == guard.Locked {
		return a.locked(ctx, args)
	}

	pw, err := GetPassword(a.reader, "Password", a.out)
	if err != nil {
		return err
	}
	v, err := a.accounts.VerifyPassword(ctx, uid, pw)
	if err != nil {
		return err
	}

	switch v {
	case stores.Valid:
		if state != guard.LockingDisabled {
			if err := a.locks.Reset(ctx, uid); err != nil {
				return err
			}
		}
	case stores.Invalid:
		if state != guard.LockingDisabled {
			if _, err := a.locks.RecordFailure(ctx, uid, consoleAddr); err != nil {
				return err
			}
		}
	}
	fmt.Fprintf(a.out, "%s: %s\n", uid, v)
	return nil
}

func (a *App) passwd(ctx context.Context, args []string) error {
	pw, err := GetNewPassword(a.reader, a.out)
	if err != nil {
		return err
	}
	created, err := a.accounts.SetPassword(ctx, args[0], pw, "", true)
	if err = a.warnOrFail(err); err != nil {
		return err
	}
	if created {
		fmt.Fprintf(a.out, "Password for %s created\n", args[0])
	} else {
		fmt.Fprintf(a.out, "Password for %s changed\n", args[0])
	}
	return nil
}

func (a *App) create(ctx context.Context, args []string) error {
	pw, err := GetNewPassword(a.reader, a.out)
	if err != nil {
		return err
	}
	req := &registration.Request{
		Username:        args[0],
		Password:        pw,
		PasswordConfirm: pw,
		Admin:           true,
	}
	if len(args) > 1 {
		req.Email = args[1]
	}
	if err := a.warnOrFail(a.accounts.CreateAccount(ctx, req)); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Account %s created\n", req.Username)
	return nil
}

func (a *App) delete(ctx context.Context, args []string) error {
	existed, err := a.accounts.DeleteUser(ctx, args[0])
	if err = a.warnOrFail(err); err != nil {
		return err
	}
	if existed {
		fmt.Fprintf(a.out, "Account %s deleted\n", args[0])
	} else {
		fmt.Fprintf(a.out, "No password removed for %s, account data purged\n", args[0])
	}
	return nil
}

func (a *App) reset(ctx context.Context, args []string) error {
	email := ""
	if len(args) > 1 {
		email = args[1]
	}
	pw, err := a.accounts.ResetPassword(ctx, args[0], email)
	if err = a.warnOrFail(err); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "New password for %s: %s\n", args[0], pw)
	return nil
}

func (a *App) rename(ctx context.Context, args []string) error {
	overwrite := len(args) > 2 && args[2] == "-f"
	report, err := a.accounts.ChangeUID(ctx, args[0], args[1], overwrite)
	if err = a.warnOrFail(err); err != nil {
		return err
	}
	for _, k := range report.Keys() {
		fmt.Fprintf(a.out, "%-40s %d\n", k, report[k])
	}
	fmt.Fprintf(a.out, "User id %s changed to %s\n", args[0], args[1])
	return nil
}

func (a *App) locked(ctx context.Context, args []string) error {
	uid := args[0]
	state, err := a.locks.UserLocked(ctx, uid)
	if err != nil {
		return err
	}
	failed, err := a.locks.FailedCount(ctx, uid)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "%s: %s, %d failed login(s)\n", uid, state, failed)
	if state != guard.Locked {
		return nil
	}
	release, ok, err := a.locks.ReleaseTime(ctx, uid)
	if err != nil {
		return err
	}
	if ok {
		fmt.Fprintf(a.out, "Locked until %s\n", release.Format("2006-01-02 15:04:05"))
	} else {
		fmt.Fprintln(a.out, "Locked until an administrator resets the account")
	}
	return nil
}

func (a *App) seen(ctx context.Context, args []string) error {
	uid := ""
	if len(args) > 0 {
		uid = args[0]
	}
	sessions, err := a.accounts.LastSeen(ctx, uid)
	if err != nil {
		return err
	}
	for _, s := range sessions {
		last := "never"
		if t := s.LastVisitTime(); !t.IsZero() {
			last = t.Format("2006-01-02 15:04:05")
		}
		fmt.Fprintf(a.out, "%-20s %s\n", s.SID, last)
	}
	return nil
}
