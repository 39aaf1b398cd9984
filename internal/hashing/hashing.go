// Package hashing provides the password hash methods used by credential
// stores. A HashMethod turns a password into a stored string and checks a
// candidate against one.
package hashing

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnsupportedHash is returned for hash formats that are recognized but
// cannot be generated or checked here (sha256-crypt, sha512-crypt, DES crypt).
var ErrUnsupportedHash = errors.New("unsupported hash format")

// HashMethod is the pluggable password hashing capability.
type HashMethod interface {
	Name() string
	GenerateHash(uid, password string) (string, error)
	CheckHash(uid, password, hash string) (bool, error)
}

// Options carries the per-method settings taken from configuration.
type Options struct {
	Realm        string
	HtPasswdType string
	BcryptCost   int
}

// New returns the hash method registered under name.
func New(name string, opts Options) (HashMethod, error) {
	switch strings.ToLower(name) {
	case "htdigest", "htdigesthashmethod":
		return NewHtDigest(opts.Realm), nil
	case "htpasswd", "htpasswdhashmethod":
		return NewHtPasswd(opts.HtPasswdType)
	case "bcrypt":
		return NewBcrypt(opts.BcryptCost), nil
	case "argon2id", "argon2":
		return NewArgon2id(), nil
	}
	return nil, fmt.Errorf("unknown hash method %q", name)
}
