// Package sessionstore keeps password hashes as a session attribute, next to
// the rest of the per-account state.
package sessionstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/acctmgr/internal/common"
	"github.com/dmitrijs2005/acctmgr/internal/dbx"
	"github.com/dmitrijs2005/acctmgr/internal/hashing"
	"github.com/dmitrijs2005/acctmgr/internal/logging"
	"github.com/dmitrijs2005/acctmgr/internal/repositories/repomanager"
	"github.com/dmitrijs2005/acctmgr/internal/stores"
)

// DefaultKey is the attribute holding the hash.
const DefaultKey = "password"

type Store struct {
	db          *sql.DB
	repoManager repomanager.RepositoryManager
	hash        hashing.HashMethod
	key         string
	log         logging.Logger
}

func New(db *sql.DB, rm repomanager.RepositoryManager, hash hashing.HashMethod, log logging.Logger) *Store {
	return NewWithKey(db, rm, hash, DefaultKey, log)
}

// NewWithKey stores hashes under a custom attribute name.
func NewWithKey(db *sql.DB, rm repomanager.RepositoryManager, hash hashing.HashMethod, key string, log logging.Logger) *Store {
	return &Store{
		db:          db,
		repoManager: rm,
		hash:        hash,
		key:         key,
		log:         log.With("store", "SessionStore"),
	}
}

func (s *Store) Name() string { return "SessionStore" }

func (s *Store) Capabilities() stores.Capability {
	return stores.CapSetPassword | stores.CapDeleteUser
}

func (s *Store) ListUsers(ctx context.Context) ([]string, error) {
	return s.repoManager.Attributes(s.db).SIDsWithName(ctx, s.key)
}

func (s *Store) UserExists(ctx context.Context, uid string) (bool, error) {
	_, err := s.repoManager.Attributes(s.db).Get(ctx, uid, s.key)
	if errors.Is(err, common.ErrorNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) VerifyPassword(ctx context.Context, uid, password string) (stores.Verdict, error) {
	hash, err := s.repoManager.Attributes(s.db).Get(ctx, uid, s.key)
	if errors.Is(err, common.ErrorNotFound) {
		return stores.Unknown, nil
	}
	if err != nil {
		return stores.Unknown, err
	}

	ok, err := s.hash.CheckHash(uid, password, hash)
	if err != nil {
		if errors.Is(err, hashing.ErrUnsupportedHash) {
			return stores.Unknown, fmt.Errorf("%w: %w", stores.ErrNotSupported, err)
		}
		return stores.Unknown, err
	}
	if ok {
		return stores.Valid, nil
	}
	return stores.Invalid, nil
}

func (s *Store) SetPassword(ctx context.Context, uid, password, _ string, overwrite bool) (bool, error) {
	hash, err := s.hash.GenerateHash(uid, password)
	if err != nil {
		if errors.Is(err, hashing.ErrUnsupportedHash) {
			return false, fmt.Errorf("%w: %w", stores.ErrNotSupported, err)
		}
		return false, fmt.Errorf("failed to hash password[%s]: %w", uid, err)
	}

	created := false
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repoManager.Sessions(tx).Prime(ctx, uid); err != nil {
			return err
		}

		attrs := s.repoManager.Attributes(tx)
		_, err := attrs.Get(ctx, uid, s.key)
		switch {
		case errors.Is(err, common.ErrorNotFound):
			created = true
			return attrs.Insert(ctx, uid, s.key, hash)
		case err != nil:
			return err
		case !overwrite:
			return nil
		}
		_, err = attrs.Update(ctx, uid, s.key, hash)
		return err
	})
	if err != nil {
		return false, fmt.Errorf("failed to set password[%s]: %w", uid, err)
	}

	s.log.Debug(ctx, "password stored", "uid", uid, "created", created)
	return created, nil
}

func (s *Store) DeleteUser(ctx context.Context, uid string) (bool, error) {
	n, err := s.repoManager.Attributes(s.db).Delete(ctx, uid, s.key)
	if err != nil {
		return false, fmt.Errorf("failed to delete password[%s]: %w", uid, err)
	}
	return n > 0, nil
}
