// Package stores defines the credential store contract shared by every
// password backend and consumed by the account manager.
package stores

import (
	"context"
	"errors"
)

// ErrNotSupported marks an operation or hash format a store cannot handle.
// The account manager logs it and moves on to the next store.
var ErrNotSupported = errors.New("not supported")

// Verdict is the tri-state outcome of a password check.
type Verdict int

const (
	// Unknown means the store has no opinion about the user.
	Unknown Verdict = iota
	Valid
	Invalid
)

func (v Verdict) String() string {
	switch v {
	case Valid:
		return "valid"
	case Invalid:
		return "invalid"
	}
	return "unknown"
}

// Capability describes the optional operations a store implements.
type Capability uint8

const (
	CapSetPassword Capability = 1 << iota
	CapDeleteUser
)

// Has reports whether every bit of want is present.
func (c Capability) Has(want Capability) bool {
	return c&want == want
}

func (c Capability) String() string {
	switch c {
	case 0:
		return "read-only"
	case CapSetPassword:
		return "set_password"
	case CapDeleteUser:
		return "delete_user"
	case CapSetPassword | CapDeleteUser:
		return "set_password,delete_user"
	}
	return "unknown"
}

// Store is a credential backend.
//
// SetPassword returns created=true when no record existed before. With
// overwrite=false an existing record is left untouched and created is false.
// DeleteUser reports whether a record was removed. Stores that lack a
// capability return ErrNotSupported from the corresponding method.
type Store interface {
	Name() string
	Capabilities() Capability
	ListUsers(ctx context.Context) ([]string, error)
	UserExists(ctx context.Context, uid string) (bool, error)
	VerifyPassword(ctx context.Context, uid, password string) (Verdict, error)
	SetPassword(ctx context.Context, uid, password, oldPassword string, overwrite bool) (bool, error)
	DeleteUser(ctx context.Context, uid string) (bool, error)
}

// ReadOnly can be embedded by verify-only stores.
type ReadOnly struct{}

func (ReadOnly) Capabilities() Capability { return 0 }

func (ReadOnly) SetPassword(context.Context, string, string, string, bool) (bool, error) {
	return false, ErrNotSupported
}

func (ReadOnly) DeleteUser(context.Context, string) (bool, error) {
	return false, ErrNotSupported
}

// Contains is a UserExists helper for stores that can enumerate users.
func Contains(ctx context.Context, s interface {
	ListUsers(context.Context) ([]string, error)
}, uid string) (bool, error) {
	users, err := s.ListUsers(ctx)
	if err != nil {
		return false, err
	}
	for _, u := range users {
		if u == uid {
			return true, nil
		}
	}
	return false, nil
}
