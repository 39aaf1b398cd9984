package app

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/acctmgr/internal/common"
	"github.com/dmitrijs2005/acctmgr/internal/config"
	"github.com/dmitrijs2005/acctmgr/internal/filex"
	"github.com/dmitrijs2005/acctmgr/internal/hashing"
	"github.com/dmitrijs2005/acctmgr/internal/logging"
	"github.com/dmitrijs2005/acctmgr/internal/repositories/repomanager"
	"github.com/dmitrijs2005/acctmgr/internal/stores"
	"github.com/dmitrijs2005/acctmgr/internal/stores/htfile"
	"github.com/dmitrijs2005/acctmgr/internal/stores/httpauth"
	"github.com/dmitrijs2005/acctmgr/internal/stores/radiusauth"
	"github.com/dmitrijs2005/acctmgr/internal/stores/sessionstore"
	"github.com/dmitrijs2005/acctmgr/internal/stores/svnserve"
)

// newS3Backend is a seam for tests.
var newS3Backend = func(ctx context.Context, opts htfile.S3Options) (htfile.Backend, error) {
	b, err := htfile.NewS3Backend(ctx, opts)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func isLocal(c *config.Config) bool {
	b := strings.ToLower(c.FileBackend)
	return b == "" || b == "local"
}

func fileBackend(ctx context.Context, c *config.Config) (htfile.Backend, error) {
	switch strings.ToLower(c.FileBackend) {
	case "", "local":
		return htfile.OSBackend{}, nil
	case "s3":
		return newS3Backend(ctx, htfile.S3Options{
			Region:       c.S3Region,
			AccessKey:    c.S3RootUser,
			SecretKey:    c.S3RootPassword,
			BaseEndpoint: c.S3BaseEndpoint,
			Bucket:       c.S3Bucket,
		})
	}
	return nil, fmt.Errorf("%w: unknown file backend %q", common.ErrorConfiguration, c.FileBackend)
}

// buildStores creates the password stores in configured order. The file
// backend is only created when a file store needs it.
func buildStores(ctx context.Context, c *config.Config, db *sql.DB, rm repomanager.RepositoryManager, log logging.Logger) ([]stores.Store, error) {
	var backend htfile.Backend
	files := func() (htfile.Backend, error) {
		if backend != nil {
			return backend, nil
		}
		b, err := fileBackend(ctx, c)
		if err != nil {
			return nil, err
		}
		backend = b
		return b, nil
	}
	// Local password files are anchored to the working directory at startup.
	resolve := func(name string) (string, error) {
		if name == "" || !isLocal(c) {
			return name, nil
		}
		p, err := filex.Resolve(name)
		if err != nil {
			return "", fmt.Errorf("%w: %w", common.ErrorConfiguration, err)
		}
		return p, nil
	}

	out := make([]stores.Store, 0, len(c.PasswordStores))
	for _, name := range c.PasswordStores {
		var s stores.Store
		switch name {
		case "SessionStore":
			hash, err := hashing.New(c.HashMethod, hashing.Options{Realm: c.HtDigestRealm, HtPasswdType: c.HtPasswdHashType})
			if err != nil {
				return nil, fmt.Errorf("%w: %w", common.ErrorConfiguration, err)
			}
			s = sessionstore.New(db, rm, hash, log)

		case "HtPasswdStore":
			hash, err := hashing.NewHtPasswd(c.HtPasswdHashType)
			if err != nil {
				return nil, fmt.Errorf("%w: %w", common.ErrorConfiguration, err)
			}
			b, err := files()
			if err != nil {
				return nil, err
			}
			path, err := resolve(c.HtPasswdFile)
			if err != nil {
				return nil, err
			}
			s = htfile.NewHtPasswdStore(path, b, hash, log)

		case "HtDigestStore":
			b, err := files()
			if err != nil {
				return nil, err
			}
			path, err := resolve(c.HtDigestFile)
			if err != nil {
				return nil, err
			}
			s = htfile.NewHtDigestStore(path, c.HtDigestRealm, b, log)

		case "SvnServePasswordStore":
			b, err := files()
			if err != nil {
				return nil, err
			}
			path, err := resolve(c.SvnServeFile)
			if err != nil {
				return nil, err
			}
			s = svnserve.New(path, b, log)

		case "HttpAuthStore":
			hs, err := httpauth.New(c.AuthenticationURL, c.AuthenticationTimeout, log)
			if err != nil {
				return nil, err
			}
			s = hs

		case "RadiusAuthStore":
			rs, err := radiusauth.New(c.RadiusServer, c.RadiusAuthPort, c.RadiusSecret, c.RadiusTimeout, log)
			if err != nil {
				return nil, err
			}
			s = rs

		default:
			return nil, fmt.Errorf("%w: unknown password store %q", common.ErrorConfiguration, name)
		}
		log.Debug(ctx, "password store enabled", "store", s.Name(), "capabilities", s.Capabilities().String())
		out = append(out, s)
	}
	return out, nil
}
