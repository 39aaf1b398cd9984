// Package svnserve reads and writes the plaintext [users] section of an
// svnserve passwd file.
package svnserve

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/dmitrijs2005/acctmgr/internal/common"
	"github.com/dmitrijs2005/acctmgr/internal/logging"
	"github.com/dmitrijs2005/acctmgr/internal/stores"
	"github.com/dmitrijs2005/acctmgr/internal/stores/htfile"
)

const usersSection = "users"

type Store struct {
	path    string
	backend htfile.Backend
	log     logging.Logger
}

func New(path string, backend htfile.Backend, log logging.Logger) *Store {
	return &Store{path: path, backend: backend, log: log.With("store", "SvnServePasswordStore")}
}

func (s *Store) Name() string { return "SvnServePasswordStore" }

func (s *Store) Capabilities() stores.Capability {
	return stores.CapSetPassword | stores.CapDeleteUser
}

type entry struct {
	user     string
	password string
	line     int
}

// passwdFile is a parsed svnserve passwd file. Lines are kept verbatim so
// comments and other sections survive a rewrite.
type passwdFile struct {
	lines []string
	// users section bounds: header line index and index after the last
	// line belonging to it. header is -1 when the section is absent.
	header int
	end    int
	users  []entry
}

func parse(data []byte) *passwdFile {
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	text = strings.TrimSuffix(text, "\n")
	f := &passwdFile{header: -1}
	if text != "" {
		f.lines = strings.Split(text, "\n")
	}

	section := ""
	for i, raw := range f.lines {
		line := strings.TrimSpace(raw)
		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			if section == usersSection {
				f.end = i
			}
			section = strings.TrimSpace(line[1 : len(line)-1])
			if section == usersSection && f.header < 0 {
				f.header = i
				f.end = len(f.lines)
			}
			continue
		}
		if section != usersSection || line == "" || line[0] == '#' || line[0] == ';' {
			continue
		}
		key, value, ok := cutOption(line)
		if !ok {
			continue
		}
		f.users = append(f.users, entry{user: key, password: value, line: i})
	}
	return f
}

func cutOption(line string) (string, string, bool) {
	i := strings.IndexAny(line, "=:")
	if i <= 0 {
		return "", "", false
	}
	return strings.TrimSpace(line[:i]), strings.TrimSpace(line[i+1:]), true
}

func (f *passwdFile) find(uid string) (entry, bool) {
	for _, e := range f.users {
		if e.user == uid {
			return e, true
		}
	}
	return entry{}, false
}

func (f *passwdFile) bytes() []byte {
	if len(f.lines) == 0 {
		return nil
	}
	return []byte(strings.Join(f.lines, "\n") + "\n")
}

func (s *Store) load(ctx context.Context) (*passwdFile, error) {
	if s.path == "" {
		return nil, fmt.Errorf("%w: password_file is not set", common.ErrorConfiguration)
	}
	data, err := s.backend.ReadFile(ctx, s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return parse(nil), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", s.path, err)
	}
	return parse(data), nil
}

func (s *Store) ListUsers(ctx context.Context) ([]string, error) {
	f, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	users := make([]string, 0, len(f.users))
	for _, e := range f.users {
		users = append(users, e.user)
	}
	return users, nil
}

func (s *Store) UserExists(ctx context.Context, uid string) (bool, error) {
	return stores.Contains(ctx, s, uid)
}

func (s *Store) VerifyPassword(ctx context.Context, uid, password string) (stores.Verdict, error) {
	f, err := s.load(ctx)
	if err != nil {
		if errors.Is(err, common.ErrorConfiguration) {
			return stores.Unknown, err
		}
		s.log.Error(ctx, "can't read password file", "path", s.path, "error", err)
		return stores.Unknown, nil
	}
	e, ok := f.find(uid)
	if !ok {
		return stores.Unknown, nil
	}
	if subtle.ConstantTimeCompare([]byte(e.password), []byte(password)) == 1 {
		return stores.Valid, nil
	}
	return stores.Invalid, nil
}

func (s *Store) SetPassword(ctx context.Context, uid, password, _ string, overwrite bool) (bool, error) {
	if strings.ContainsAny(uid, "=:[]") || strings.TrimSpace(uid) != uid || uid == "" {
		return false, fmt.Errorf("invalid svnserve user name %q", uid)
	}
	f, err := s.load(ctx)
	if err != nil {
		return false, err
	}

	record := uid + " = " + password
	if e, ok := f.find(uid); ok {
		if !overwrite {
			return false, nil
		}
		f.lines[e.line] = record
		return false, s.save(ctx, f)
	}

	switch {
	case f.header < 0:
		if len(f.lines) > 0 {
			f.lines = append(f.lines, "")
		}
		f.lines = append(f.lines, "["+usersSection+"]", record)
	default:
		at := f.end
		for at > f.header+1 && strings.TrimSpace(f.lines[at-1]) == "" {
			at--
		}
		f.lines = append(f.lines[:at], append([]string{record}, f.lines[at:]...)...)
	}
	return true, s.save(ctx, f)
}

func (s *Store) DeleteUser(ctx context.Context, uid string) (bool, error) {
	f, err := s.load(ctx)
	if err != nil {
		return false, err
	}
	e, ok := f.find(uid)
	if !ok {
		return false, nil
	}
	f.lines = append(f.lines[:e.line], f.lines[e.line+1:]...)
	return true, s.save(ctx, f)
}

func (s *Store) save(ctx context.Context, f *passwdFile) error {
	if err := s.backend.WriteFile(ctx, s.path, f.bytes()); err != nil {
		return fmt.Errorf("failed to write %s: %w", s.path, err)
	}
	return nil
}
