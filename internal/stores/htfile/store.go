package htfile

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/dmitrijs2005/acctmgr/internal/common"
	"github.com/dmitrijs2005/acctmgr/internal/hashing"
	"github.com/dmitrijs2005/acctmgr/internal/logging"
	"github.com/dmitrijs2005/acctmgr/internal/stores"
)

// format describes one flat-file record layout.
type format interface {
	prefix(uid string) string
	record(uid, password string) (string, error)
	check(uid, password, suffix string) (bool, error)
	// user extracts the uid of a line, ok=false when the line does not
	// belong to this store.
	user(line string) (string, bool)
}

// fileStore holds the parts shared by htpasswd and htdigest stores.
type fileStore struct {
	name    string
	option  string
	path    string
	backend Backend
	format  format
	log     logging.Logger
}

func (s *fileStore) Name() string { return s.name }

func (s *fileStore) Capabilities() stores.Capability {
	return stores.CapSetPassword | stores.CapDeleteUser
}

// Path is the configured password file.
func (s *fileStore) Path() string { return s.path }

func (s *fileStore) read(ctx context.Context) ([]string, string, error) {
	if s.path == "" {
		return nil, "", fmt.Errorf("%w: %s is not set", common.ErrorConfiguration, s.option)
	}
	data, err := s.backend.ReadFile(ctx, s.path)
	if err != nil {
		return nil, "", err
	}
	lines, eol := splitLines(data)
	return lines, eol, nil
}

func (s *fileStore) ListUsers(ctx context.Context) ([]string, error) {
	lines, _, err := s.read(ctx)
	if errors.Is(err, fs.ErrNotExist) {
		s.log.Error(ctx, "password file not found", "path", s.path)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var users []string
	for _, line := range lines {
		if uid, ok := s.format.user(line); ok {
			users = append(users, uid)
		}
	}
	return users, nil
}

func (s *fileStore) UserExists(ctx context.Context, uid string) (bool, error) {
	return stores.Contains(ctx, s, uid)
}

// VerifyPassword never reports Invalid for a file it cannot read.
func (s *fileStore) VerifyPassword(ctx context.Context, uid, password string) (stores.Verdict, error) {
	lines, _, err := s.read(ctx)
	if err != nil {
		if errors.Is(err, common.ErrorConfiguration) {
			return stores.Unknown, err
		}
		s.log.Error(ctx, "can't read password file", "path", s.path, "error", err)
		return stores.Unknown, nil
	}

	prefix := s.format.prefix(uid)
	for _, line := range lines {
		if len(line) < len(prefix) || line[:len(prefix)] != prefix {
			continue
		}
		ok, err := s.format.check(uid, password, line[len(prefix):])
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
	return stores.Unknown, nil
}

// checkUID rejects user names that would split or corrupt a record.
func checkUID(uid string) error {
	if uid == "" || strings.ContainsAny(uid, ":\r\n") {
		return fmt.Errorf("%w: %q", ErrInvalidUser, uid)
	}
	return nil
}

// SetPassword reports created=true when no line for uid existed.
func (s *fileStore) SetPassword(ctx context.Context, uid, password, _ string, overwrite bool) (bool, error) {
	if err := checkUID(uid); err != nil {
		return false, err
	}
	record, err := s.format.record(uid, password)
	if err != nil {
		return false, fmt.Errorf("failed to hash password[%s]: %w", uid, err)
	}

	action := replaceLine
	if !overwrite {
		action = keepLine
	}
	matched, err := s.update(ctx, s.format.prefix(uid), record, action)
	if err != nil {
		return false, err
	}
	return !matched, nil
}

func (s *fileStore) DeleteUser(ctx context.Context, uid string) (bool, error) {
	if err := checkUID(uid); err != nil {
		return false, err
	}
	return s.update(ctx, s.format.prefix(uid), "", dropLine)
}

func (s *fileStore) update(ctx context.Context, prefix, record string, action lineAction) (bool, error) {
	lines, eol, err := s.read(ctx)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return false, fmt.Errorf("failed to read %s: %w", s.path, err)
	}

	data, matched := rewrite(lines, eol, prefix, record, action)
	if matched && action == keepLine {
		return true, nil
	}
	if !matched && action == dropLine {
		return false, nil
	}

	if err := s.backend.WriteFile(ctx, s.path, data); err != nil {
		return false, fmt.Errorf("failed to write %s: %w", s.path, err)
	}
	s.log.Debug(ctx, "password file rewritten", "path", s.path, "records", len(lines))
	return matched, nil
}
