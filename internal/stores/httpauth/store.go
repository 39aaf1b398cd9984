// Package httpauth verifies passwords by requesting a protected URL with
// HTTP Basic credentials. It cannot list, create or delete users.
package httpauth

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/dmitrijs2005/acctmgr/internal/common"
	"github.com/dmitrijs2005/acctmgr/internal/logging"
	"github.com/dmitrijs2005/acctmgr/internal/stores"
)

const DefaultTimeout = 10 * time.Second

type Store struct {
	stores.ReadOnly
	url    string
	client *http.Client
	log    logging.Logger
}

// New validates authURL, which must be an absolute http(s) URL.
func New(authURL string, timeout time.Duration, log logging.Logger) (*Store, error) {
	u, err := url.Parse(authURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: authentication_url %q is not an absolute http(s) URL",
			common.ErrorConfiguration, authURL)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Store{
		url:    u.String(),
		client: &http.Client{Timeout: timeout},
		log:    log.With("store", "HttpAuthStore"),
	}, nil
}

func (s *Store) Name() string { return "HttpAuthStore" }

func (s *Store) ListUsers(context.Context) ([]string, error) { return nil, nil }

func (s *Store) UserExists(context.Context, string) (bool, error) { return false, nil }

// VerifyPassword returns Valid for any 2xx answer and for 404, which means
// the server accepted the credentials but has no page there. Everything
// else, including 401 and transport errors, is Unknown.
func (s *Store) VerifyPassword(ctx context.Context, uid, password string) (stores.Verdict, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return stores.Unknown, fmt.Errorf("failed to build request: %w", err)
	}
	req.SetBasicAuth(uid, password)

	resp, err := s.client.Do(req)
	if err != nil {
		s.log.Warn(ctx, "authentication request failed", "uid", uid, "error", err)
		return stores.Unknown, nil
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return stores.Valid, nil
	case resp.StatusCode == http.StatusNotFound:
		s.log.Debug(ctx, "auth page not found, credentials accepted", "uid", uid)
		return stores.Valid, nil
	case resp.StatusCode == http.StatusUnauthorized:
		s.log.Debug(ctx, "authentication rejected", "uid", uid)
	default:
		s.log.Warn(ctx, "unexpected authentication status", "uid", uid, "status", resp.StatusCode)
	}
	return stores.Unknown, nil
}
