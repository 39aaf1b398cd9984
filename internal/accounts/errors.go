package accounts

import (
	"errors"
	"fmt"

	"github.com/dmitrijs2005/acctmgr/internal/common"
)

var (
	// ErrReadOnlyBackend is returned when the store owning a user cannot
	// change passwords.
	ErrReadOnlyBackend = errors.New("password backend is read-only")

	// ErrNoWritableStore means no configured store can take a new password.
	ErrNoWritableStore = fmt.Errorf("%w: no password store supports setting passwords", common.ErrorConfiguration)

	ErrUserExists    = errors.New("user already exists")
	ErrEmailMismatch = errors.New("email does not match the account")
	ErrNoRenameSetup = fmt.Errorf("%w: user id changes are not configured", common.ErrorConfiguration)
)
