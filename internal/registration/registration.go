// Package registration validates account creation requests before any
// state is written.
package registration

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Request carries the fields of an account creation form.
type Request struct {
	Username        string
	Password        string
	PasswordConfirm string
	Name            string
	Email           string
	// BasicToken must match the configured register token, if any.
	BasicToken string
	// Sentinel is the hidden bot trap field; humans leave it empty.
	Sentinel string
	// Admin requests skip the bot trap and the permission name check.
	Admin bool
}

// Error is a rejection reason suitable for showing to the user.
type Error struct {
	Check  string
	Reason string
}

func (e *Error) Error() string { return e.Reason }

func reject(check, format string, args ...any) error {
	return &Error{Check: check, Reason: fmt.Sprintf(format, args...)}
}

// IsRejection reports whether err is a registration check failure rather
// than an internal error.
func IsRejection(err error) bool {
	var re *Error
	return errors.As(err, &re)
}

// Accounts is what the inspectors need to know about existing accounts.
type Accounts interface {
	NormalizeUID(uid string) string
	ListUsers(ctx context.Context) ([]string, error)
	EmailAssociated(ctx context.Context, email string) (bool, error)
	PermissionSubjects(ctx context.Context) ([]string, error)
}

// Inspector checks one aspect of a registration request.
type Inspector interface {
	Name() string
	Validate(ctx context.Context, req *Request) error
}

// Settings configures the built-in inspectors.
type Settings struct {
	UsernameCharBlacklist string
	UsernameRegexp        string
	EmailRegexp           string
	VerifyEmail           bool
	BasicToken            string
}

// New builds the named inspectors in the given order.
func New(names []string, accounts Accounts, s Settings) ([]Inspector, error) {
	out := make([]Inspector, 0, len(names))
	for _, name := range names {
		var in Inspector
		switch strings.TrimSpace(name) {
		case "":
			continue
		case "BasicCheck":
			in = &BasicCheck{Accounts: accounts, Blacklist: s.UsernameCharBlacklist}
		case "BotTrapCheck":
			in = &BotTrapCheck{Token: s.BasicToken}
		case "EmailCheck":
			in = NewEmailCheck(accounts, s.VerifyEmail)
		case "RegExpCheck":
			rc, err := NewRegExpCheck(accounts, s.UsernameRegexp, s.EmailRegexp, s.VerifyEmail)
			if err != nil {
				return nil, err
			}
			in = rc
		case "UsernamePermCheck":
			in = &UsernamePermCheck{Accounts: accounts}
		default:
			return nil, fmt.Errorf("unknown registration check %q", name)
		}
		out = append(out, in)
	}
	return out, nil
}

// Validate runs inspectors in order and returns the first rejection.
func Validate(ctx context.Context, inspectors []Inspector, req *Request) error {
	for _, in := range inspectors {
		if err := in.Validate(ctx, req); err != nil {
			return err
		}
	}
	return nil
}

func username(a Accounts, req *Request) string {
	return a.NormalizeUID(strings.TrimSpace(req.Username))
}
