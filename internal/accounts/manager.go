// Package accounts implements the credential chain: an ordered list of
// password stores consulted for authentication, plus the account lifecycle
// operations built on top of it (creation, password changes and resets,
// deletion and user id renames).
package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/acctmgr/internal/common"
	"github.com/dmitrijs2005/acctmgr/internal/dbx"
	"github.com/dmitrijs2005/acctmgr/internal/logging"
	"github.com/dmitrijs2005/acctmgr/internal/metrics"
	"github.com/dmitrijs2005/acctmgr/internal/models"
	"github.com/dmitrijs2005/acctmgr/internal/registration"
	"github.com/dmitrijs2005/acctmgr/internal/repositories/repomanager"
	"github.com/dmitrijs2005/acctmgr/internal/stores"
	"github.com/dmitrijs2005/acctmgr/internal/uidchange"
)

// Attribute names kept next to the account.
const (
	AttrPasswordRefreshed   = "password_refreshed"
	AttrForcePasswdChange   = "force_change_passwd"
	AttrEmail               = "email"
	AttrName                = "name"
	AttrEmailVerifyToken    = "email_verification_token"
	defaultGeneratedPwdSize = 8
	verifyTokenSize         = 4
)

// Options are the chain policies fixed at startup.
type Options struct {
	// IgnoreAuthCase lower-cases every uid entering the manager.
	IgnoreAuthCase bool

	// RefreshPasswd rewrites a successfully verified password into the first
	// writable store once per account.
	RefreshPasswd bool

	// ForcePasswdChange marks reset accounts so the next login must change
	// the password.
	ForcePasswdChange       bool
	GeneratedPasswordLength int

	RegisterChecks []string
	Registration   registration.Settings
}

// Option configures optional collaborators.
type Option func(*Manager)

// WithEngine enables ChangeUID.
func WithEngine(e *uidchange.Engine) Option {
	return func(m *Manager) { m.engine = e }
}

func WithListeners(l ...Listener) Option {
	return func(m *Manager) { m.listeners = append(m.listeners, l...) }
}

func WithMetrics(r metrics.Recorder) Option {
	return func(m *Manager) { m.metrics = r }
}

// Manager is immutable after New and safe for concurrent use as long as the
// stores are.
type Manager struct {
	db          *sql.DB
	repoManager repomanager.RepositoryManager
	stores      []stores.Store
	opts        Options
	inspectors  []registration.Inspector
	engine      *uidchange.Engine
	listeners   []Listener
	metrics     metrics.Recorder
	log         logging.Logger
}

// New builds a manager over the ordered store list. The registration
// inspectors named in opts.RegisterChecks are built against the manager
// itself.
func New(db *sql.DB, rm repomanager.RepositoryManager, storeList []stores.Store, opts Options, log logging.Logger, options ...Option) (*Manager, error) {
	if len(storeList) == 0 {
		return nil, fmt.Errorf("%w: no password store configured", common.ErrorConfiguration)
	}
	if opts.GeneratedPasswordLength <= 0 {
		opts.GeneratedPasswordLength = defaultGeneratedPwdSize
	}

	m := &Manager{
		db:          db,
		repoManager: rm,
		stores:      append([]stores.Store(nil), storeList...),
		opts:        opts,
		metrics:     metrics.NewNoopMetrics(),
		log:         log,
	}
	for _, o := range options {
		o(m)
	}

	inspectors, err := registration.New(opts.RegisterChecks, m, opts.Registration)
	if err != nil {
		return nil, err
	}
	m.inspectors = inspectors
	return m, nil
}

// Stores returns the configured stores in order.
func (m *Manager) Stores() []stores.Store {
	return append([]stores.Store(nil), m.stores...)
}

func (m *Manager) NormalizeUID(uid string) string {
	if m.opts.IgnoreAuthCase {
		return strings.ToLower(uid)
	}
	return uid
}

// ListUsers concatenates the users of every store. A uid present in several
// stores is listed once per store.
func (m *Manager) ListUsers(ctx context.Context) ([]string, error) {
	var out []string
	for _, s := range m.stores {
		users, err := s.ListUsers(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list users[%s]: %w", s.Name(), err)
		}
		out = append(out, users...)
	}
	return out, nil
}

func (m *Manager) UserExists(ctx context.Context, uid string) (bool, error) {
	s, err := m.FindUserStore(ctx, uid)
	return s != nil, err
}

// FindUserStore returns the first store that knows uid, or nil.
func (m *Manager) FindUserStore(ctx context.Context, uid string) (stores.Store, error) {
	uid = m.NormalizeUID(uid)
	for _, s := range m.stores {
		ok, err := s.UserExists(ctx, uid)
		if err != nil {
			if errors.Is(err, stores.ErrNotSupported) {
				continue
			}
			return nil, fmt.Errorf("failed to look up user[%s]: %w", s.Name(), err)
		}
		if ok {
			return s, nil
		}
	}
	return nil, nil
}

// Supports reports whether any store has the capability.
func (m *Manager) Supports(c stores.Capability) bool {
	return m.firstWith(c) != nil
}

func (m *Manager) firstWith(c stores.Capability) stores.Store {
	for _, s := range m.stores {
		if s.Capabilities().Has(c) {
			return s
		}
	}
	return nil
}

// VerifyPassword asks the stores in order; the first Valid or Invalid
// answer wins. Unknown means no store recognised the user.
func (m *Manager) VerifyPassword(ctx context.Context, uid, password string) (stores.Verdict, error) {
	uid = m.NormalizeUID(uid)
	for _, s := range m.stores {
		v, err := s.VerifyPassword(ctx, uid, password)
		if err != nil {
			if errors.Is(err, stores.ErrNotSupported) {
				m.log.Warn(ctx, "store cannot check password", "store", s.Name(), "uid", uid, "error", err)
				continue
			}
			return stores.Unknown, fmt.Errorf("failed to verify password[%s]: %w", s.Name(), err)
		}
		if v == stores.Unknown {
			continue
		}

		m.metrics.RecordVerify(s.Name(), v.String())
		if v == stores.Valid && m.opts.RefreshPasswd {
			if err := m.refreshPassword(ctx, s, uid, password); err != nil {
				m.log.Warn(ctx, "password refresh failed", "uid", uid, "store", s.Name(), "error", err)
			}
		}
		return v, nil
	}
	m.metrics.RecordVerify("", stores.Unknown.String())
	return stores.Unknown, nil
}

// refreshPassword rewrites a verified password into the first writable
// store, moving it there when it lived elsewhere.
func (m *Manager) refreshPassword(ctx context.Context, owner stores.Store, uid, password string) error {
	attrs := m.repoManager.Attributes(m.db)
	if _, err := attrs.Get(ctx, uid, AttrPasswordRefreshed); err == nil {
		return nil
	} else if !errors.Is(err, common.ErrorNotFound) {
		return err
	}

	target := m.firstWith(stores.CapSetPassword)
	if target == nil {
		return nil
	}
	created, err := target.SetPassword(ctx, uid, password, "", true)
	if err != nil {
		return fmt.Errorf("failed to rewrite password[%s]: %w", target.Name(), err)
	}
	m.metrics.RecordPasswordWrite(target.Name(), created)

	if created && target != owner && owner.Capabilities().Has(stores.CapDeleteUser) {
		if _, err := owner.DeleteUser(ctx, uid); err != nil {
			return fmt.Errorf("failed to drop stale password[%s]: %w", owner.Name(), err)
		}
		m.log.Info(ctx, "password moved", "uid", uid, "from", owner.Name(), "to", target.Name())
	}
	return attrs.Set(ctx, uid, AttrPasswordRefreshed, "1")
}

// SetPassword writes a password to the store owning uid, or to the first
// writable store for a new user. With overwrite=false an existing user is
// left untouched and ErrUserExists is returned. A *NotificationError means
// the password was stored but a listener failed.
func (m *Manager) SetPassword(ctx context.Context, uid, password, oldPassword string, overwrite bool) (bool, error) {
	uid = m.NormalizeUID(uid)
	created, changed, err := m.setPassword(ctx, uid, password, oldPassword, overwrite)
	if err != nil || !changed {
		return created, err
	}

	kind := EventPasswordChanged
	if created {
		kind = EventCreated
	}
	return created, m.notify(ctx, Event{Kind: kind, UID: uid, Password: password})
}

func (m *Manager) setPassword(ctx context.Context, uid, password, oldPassword string, overwrite bool) (created, changed bool, err error) {
	s, err := m.FindUserStore(ctx, uid)
	if err != nil {
		return false, false, err
	}
	if s != nil {
		if !s.Capabilities().Has(stores.CapSetPassword) {
			return false, false, fmt.Errorf("%w: %s", ErrReadOnlyBackend, s.Name())
		}
		if !overwrite {
			return false, false, fmt.Errorf("%w: %s", ErrUserExists, uid)
		}
	} else if s = m.firstWith(stores.CapSetPassword); s == nil {
		return false, false, ErrNoWritableStore
	}

	created, err = s.SetPassword(ctx, uid, password, oldPassword, overwrite)
	if err != nil {
		return false, false, fmt.Errorf("failed to set password[%s]: %w", s.Name(), err)
	}
	// the store saw a record the lookup missed
	if !created && !overwrite {
		return false, false, fmt.Errorf("%w: %s", ErrUserExists, uid)
	}
	m.metrics.RecordPasswordWrite(s.Name(), created)
	m.log.Info(ctx, "password stored", "uid", uid, "store", s.Name(), "created", created)

	if _, err := m.repoManager.Attributes(m.db).Delete(ctx, uid, AttrPasswordRefreshed); err != nil {
		m.log.Warn(ctx, "failed to clear refresh flag", "uid", uid, "error", err)
	}
	return created, true, nil
}

// DeleteUser removes uid from its store when that store can delete, then
// always purges cookies, attributes, the session and permissions.
func (m *Manager) DeleteUser(ctx context.Context, uid string) (bool, error) {
	uid = m.NormalizeUID(uid)

	var existed bool
	s, err := m.FindUserStore(ctx, uid)
	if err != nil {
		return false, err
	}
	if s != nil && s.Capabilities().Has(stores.CapDeleteUser) {
		existed, err = s.DeleteUser(ctx, uid)
		if err != nil {
			return false, fmt.Errorf("failed to delete user[%s]: %w", s.Name(), err)
		}
		if existed {
			m.metrics.RecordUserDeleted(s.Name())
		}
	}

	if err := m.purge(ctx, uid); err != nil {
		return existed, err
	}
	m.log.Info(ctx, "user deleted", "uid", uid, "existed", existed)
	return existed, m.notify(ctx, Event{Kind: EventDeleted, UID: uid})
}

func (m *Manager) purge(ctx context.Context, uid string) error {
	return dbx.WithTx(ctx, m.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := m.repoManager.Sessions(tx).Purge(ctx, uid); err != nil {
			return err
		}
		if _, err := m.repoManager.Permissions(tx).DeleteUser(ctx, uid); err != nil {
			return fmt.Errorf("failed to purge permission[%s]: %w", uid, err)
		}
		return nil
	})
}

// ValidateAccount runs the registration inspectors in order and, when create
// is set, creates the account.
func (m *Manager) ValidateAccount(ctx context.Context, req *registration.Request, create bool) error {
	req.Username = m.NormalizeUID(strings.TrimSpace(req.Username))
	req.Email = strings.TrimSpace(req.Email)
	if err := registration.Validate(ctx, m.inspectors, req); err != nil {
		return err
	}
	if !create {
		return nil
	}
	return m.createAccount(ctx, req)
}

// CreateAccount validates req and creates the account. On failure any
// partial state is removed unless some store already holds a password for
// the user.
func (m *Manager) CreateAccount(ctx context.Context, req *registration.Request) error {
	return m.ValidateAccount(ctx, req, true)
}

func (m *Manager) createAccount(ctx context.Context, req *registration.Request) error {
	uid := req.Username
	err := m.storeAccount(ctx, req)
	if err == nil || IsNotificationError(err) {
		return err
	}

	exists, lookupErr := m.UserExists(ctx, uid)
	if lookupErr != nil {
		m.log.Error(ctx, "account creation failed, state left as is", "uid", uid, "error", lookupErr)
		return err
	}
	if !exists {
		if purgeErr := m.purge(ctx, uid); purgeErr != nil {
			m.log.Error(ctx, "failed to undo partial account", "uid", uid, "error", purgeErr)
		}
	}
	return err
}

func (m *Manager) storeAccount(ctx context.Context, req *registration.Request) error {
	uid := req.Username
	err := dbx.WithTx(ctx, m.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := m.repoManager.Sessions(tx).Prime(ctx, uid); err != nil {
			return err
		}
		attrs := m.repoManager.Attributes(tx)
		if req.Name != "" {
			if err := attrs.Set(ctx, uid, AttrName, req.Name); err != nil {
				return err
			}
		}
		if req.Email != "" {
			if err := attrs.Set(ctx, uid, AttrEmail, req.Email); err != nil {
				return err
			}
			if m.opts.Registration.VerifyEmail && !req.Admin {
				token, err := common.MakeRandHexString(verifyTokenSize)
				if err != nil {
					return err
				}
				if err := attrs.Set(ctx, uid, AttrEmailVerifyToken, token); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to prime account[%s]: %w", uid, err)
	}

	_, err = m.SetPassword(ctx, uid, req.Password, "", false)
	return err
}

// ResetPassword replaces the password of uid with a random one in the store
// owning the user and returns it. A non-empty email must match the address
// stored for the account.
func (m *Manager) ResetPassword(ctx context.Context, uid, email string) (string, error) {
	uid = m.NormalizeUID(uid)
	attrs := m.repoManager.Attributes(m.db)

	if email != "" {
		stored, err := attrs.Get(ctx, uid, AttrEmail)
		if err != nil && !errors.Is(err, common.ErrorNotFound) {
			return "", err
		}
		if !strings.EqualFold(stored, email) {
			return "", ErrEmailMismatch
		}
	}

	s, err := m.FindUserStore(ctx, uid)
	if err != nil {
		return "", err
	}
	if s == nil {
		return "", fmt.Errorf("user %s: %w", uid, common.ErrorNotFound)
	}

	password, err := common.RandomPassword(m.opts.GeneratedPasswordLength)
	if err != nil {
		return "", fmt.Errorf("%w: %w", common.ErrorInternal, err)
	}
	if _, _, err := m.setPassword(ctx, uid, password, "", true); err != nil {
		return "", err
	}

	if m.opts.ForcePasswdChange {
		if err := attrs.Set(ctx, uid, AttrForcePasswdChange, "1"); err != nil {
			return password, err
		}
	}
	return password, m.notify(ctx, Event{Kind: EventPasswordReset, UID: uid, Email: email, Password: password})
}

// ChangeUID renames an account across sessions, attributes and every
// configured changer in a single transaction. Credential stores are not
// touched.
func (m *Manager) ChangeUID(ctx context.Context, oldUID, newUID string, overwrite bool) (uidchange.Report, error) {
	if m.engine == nil {
		return nil, ErrNoRenameSetup
	}
	oldUID, newUID = m.NormalizeUID(oldUID), m.NormalizeUID(newUID)

	start := time.Now()
	report, err := m.engine.Rename(ctx, oldUID, newUID, overwrite)
	m.metrics.RecordRename(err == nil, time.Since(start))
	if err != nil {
		return nil, err
	}
	return report, m.notify(ctx, Event{Kind: EventUIDChanged, UID: oldUID, NewUID: newUID})
}

// EmailVerified reports whether email is the stored address of uid and no
// verification is pending.
func (m *Manager) EmailVerified(ctx context.Context, uid, email string) (bool, error) {
	uid = m.NormalizeUID(uid)
	attrs, err := m.repoManager.Attributes(m.db).List(ctx, uid)
	if err != nil {
		return false, err
	}
	if _, pending := attrs[AttrEmailVerifyToken]; pending {
		return false, nil
	}
	return email != "" && strings.EqualFold(attrs[AttrEmail], email), nil
}

// ConfirmEmail clears the pending verification of uid when token matches
// the one issued at account creation.
func (m *Manager) ConfirmEmail(ctx context.Context, uid, token string) (bool, error) {
	uid = m.NormalizeUID(uid)
	attrs := m.repoManager.Attributes(m.db)
	want, err := attrs.Get(ctx, uid, AttrEmailVerifyToken)
	if errors.Is(err, common.ErrorNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if token == "" || token != want {
		return false, nil
	}
	_, err = attrs.Delete(ctx, uid, AttrEmailVerifyToken)
	return err == nil, err
}

// EmailAssociated reports whether any account uses email.
func (m *Manager) EmailAssociated(ctx context.Context, email string) (bool, error) {
	sids, err := m.repoManager.Attributes(m.db).SIDsWithValue(ctx, AttrEmail, email)
	if err != nil {
		return false, err
	}
	return len(sids) > 0, nil
}

// UserKnown reports whether uid has an authenticated session, with or
// without a password.
func (m *Manager) UserKnown(ctx context.Context, uid string) (bool, error) {
	return m.repoManager.Sessions(m.db).Exists(ctx, m.NormalizeUID(uid))
}

// LastSeen lists authenticated sessions; an empty uid lists all of them.
func (m *Manager) LastSeen(ctx context.Context, uid string) ([]models.Session, error) {
	if uid != "" {
		uid = m.NormalizeUID(uid)
	}
	return m.repoManager.Sessions(m.db).List(ctx, uid)
}

func (m *Manager) PermissionSubjects(ctx context.Context) ([]string, error) {
	return m.repoManager.Permissions(m.db).Subjects(ctx)
}

// notify calls every listener; failures are collected, never fatal.
func (m *Manager) notify(ctx context.Context, ev Event) error {
	var errs []error
	for _, l := range m.listeners {
		if err := l.Notify(ctx, ev); err != nil {
			m.log.Warn(ctx, "listener failed", "event", string(ev.Kind), "uid", ev.UID, "error", err)
			m.metrics.RecordNotificationFailure(string(ev.Kind))
			errs = append(errs, err)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return &NotificationError{Event: ev.Kind, Errs: errs}
}
