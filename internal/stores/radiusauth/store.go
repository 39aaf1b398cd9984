// Package radiusauth verifies passwords with a RADIUS Access-Request. Like the
// HTTP store it cannot list, create or delete users.
package radiusauth

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/dmitrijs2005/acctmgr/internal/common"
	"github.com/dmitrijs2005/acctmgr/internal/logging"
	"github.com/dmitrijs2005/acctmgr/internal/stores"
	"layeh.com/radius"
	"layeh.com/radius/rfc2865"
)

const (
	DefaultAuthPort = 1812
	DefaultTimeout  = 5 * time.Second
)

type Store struct {
	stores.ReadOnly
	addr    string
	secret  []byte
	timeout time.Duration
	client  *radius.Client
	log     logging.Logger
}

// New needs the server address and the shared secret. Port 0 means 1812.
func New(server string, port int, secret string, timeout time.Duration, log logging.Logger) (*Store, error) {
	if server == "" {
		return nil, fmt.Errorf("%w: radius_server is not set", common.ErrorConfiguration)
	}
	if secret == "" {
		return nil, fmt.Errorf("%w: radius_secret is not set", common.ErrorConfiguration)
	}
	if port <= 0 {
		port = DefaultAuthPort
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	addr := net.JoinHostPort(server, strconv.Itoa(port))
	return &Store{
		addr:    addr,
		secret:  []byte(secret),
		timeout: timeout,
		client:  &radius.Client{Retry: timeout / 3},
		log:     log.With("store", "RadiusAuthStore", "server", addr),
	}, nil
}

func (s *Store) Name() string { return "RadiusAuthStore" }

func (s *Store) ListUsers(context.Context) ([]string, error) { return nil, nil }

func (s *Store) UserExists(context.Context, string) (bool, error) { return false, nil }

// VerifyPassword maps Access-Accept to Valid and Access-Reject to Invalid.
// Challenges, timeouts and transport errors are Unknown.
func (s *Store) VerifyPassword(ctx context.Context, uid, password string) (stores.Verdict, error) {
	packet := radius.New(radius.CodeAccessRequest, s.secret)
	if err := rfc2865.UserName_SetString(packet, uid); err != nil {
		return stores.Unknown, fmt.Errorf("failed to build request: %w", err)
	}
	if err := rfc2865.UserPassword_SetString(packet, password); err != nil {
		return stores.Unknown, fmt.Errorf("failed to build request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	reply, err := s.client.Exchange(ctx, packet, s.addr)
	if err != nil {
		s.log.Warn(ctx, "radius request failed", "uid", uid, "error", err)
		return stores.Unknown, nil
	}

	switch reply.Code {
	case radius.CodeAccessAccept:
		return stores.Valid, nil
	case radius.CodeAccessReject:
		s.log.Debug(ctx, "radius reject", "uid", uid)
		return stores.Invalid, nil
	case radius.CodeAccessChallenge:
		// RSA servers answer with a challenge in next token mode.
		s.log.Info(ctx, "radius challenge, token may be in next token mode", "uid", uid)
	default:
		s.log.Warn(ctx, "unexpected radius reply", "uid", uid, "code", reply.Code.String())
	}
	return stores.Unknown, nil
}
