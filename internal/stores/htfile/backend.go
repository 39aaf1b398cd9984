// Package htfile implements credential stores over Apache htpasswd and
// htdigest files. Every change rewrites the whole file. There is no locking:
// a concurrent external writer may lose its change or lose ours.
package htfile

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/dmitrijs2005/acctmgr/internal/filex"
)

// ErrFileAccess is returned when the password file or its directory is not
// readable or writable.
var ErrFileAccess = errors.New("password file not accessible")

// ErrInvalidUser is returned for user names a record cannot hold.
var ErrInvalidUser = errors.New("invalid user name")

// Backend reads and writes whole password files. ReadFile returns an error
// matching fs.ErrNotExist when the file is absent.
type Backend interface {
	ReadFile(ctx context.Context, name string) ([]byte, error)
	WriteFile(ctx context.Context, name string, data []byte) error
}

// OSBackend keeps password files on the local filesystem.
type OSBackend struct{}

func (OSBackend) ReadFile(_ context.Context, name string) ([]byte, error) {
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, mapOSError(err)
	}
	return data, nil
}

// WriteFile replaces name through a temp file in the same directory and a
// rename. An existing file keeps its permission bits.
func (OSBackend) WriteFile(_ context.Context, name string, data []byte) error {
	dir, err := filex.EnsureParentDir(name)
	if err != nil {
		return mapOSError(err)
	}

	mode := os.FileMode(0o644)
	if fi, err := os.Stat(name); err == nil {
		mode = fi.Mode().Perm()
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(name)+".*")
	if err != nil {
		return mapOSError(err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return mapOSError(err)
	}
	if err := tmp.Chmod(mode); err != nil {
		_ = tmp.Close()
		return mapOSError(err)
	}
	if err := tmp.Close(); err != nil {
		return mapOSError(err)
	}
	return mapOSError(os.Rename(tmpName, name))
}

func mapOSError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, fs.ErrPermission):
		return fmt.Errorf("%w: %w", ErrFileAccess, err)
	}
	return err
}
