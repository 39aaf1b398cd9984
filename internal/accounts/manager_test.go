package accounts

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/dmitrijs2005/acctmgr/internal/common"
	"github.com/dmitrijs2005/acctmgr/internal/dbx"
	"github.com/dmitrijs2005/acctmgr/internal/hashing"
	"github.com/dmitrijs2005/acctmgr/internal/logging"
	"github.com/dmitrijs2005/acctmgr/internal/registration"
	"github.com/dmitrijs2005/acctmgr/internal/repositories/repomanager"
	"github.com/dmitrijs2005/acctmgr/internal/stores"
	"github.com/dmitrijs2005/acctmgr/internal/stores/htfile"
	"github.com/dmitrijs2005/acctmgr/internal/stores/sessionstore"
	"github.com/dmitrijs2005/acctmgr/internal/uidchange"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- helpers ---

type fakeStore struct {
	name      string
	caps      stores.Capability
	users     map[string]string
	verifyErr error
	setErr    error
	sets      int
}

func newFake(name string, caps stores.Capability, users ...string) *fakeStore {
	f := &fakeStore{name: name, caps: caps, users: map[string]string{}}
	for i := 0; i+1 < len(users); i += 2 {
		f.users[users[i]] = users[i+1]
	}
	return f
}

func (f *fakeStore) Name() string                    { return f.name }
func (f *fakeStore) Capabilities() stores.Capability { return f.caps }

func (f *fakeStore) ListUsers(context.Context) ([]string, error) {
	out := make([]string, 0, len(f.users))
	for u := range f.users {
		out = append(out, u)
	}
	sort.Strings(out)
	return out, nil
}

func (f *fakeStore) UserExists(_ context.Context, uid string) (bool, error) {
	_, ok := f.users[uid]
	return ok, nil
}

func (f *fakeStore) VerifyPassword(_ context.Context, uid, password string) (stores.Verdict, error) {
	if f.verifyErr != nil {
		return stores.Unknown, f.verifyErr
	}
	pw, ok := f.users[uid]
	switch {
	case !ok:
		return stores.Unknown, nil
	case pw == password:
		return stores.Valid, nil
	}
	return stores.Invalid, nil
}

func (f *fakeStore) SetPassword(_ context.Context, uid, password, _ string, overwrite bool) (bool, error) {
	if !f.caps.Has(stores.CapSetPassword) {
		return false, stores.ErrNotSupported
	}
	if f.setErr != nil {
		return false, f.setErr
	}
	_, exists := f.users[uid]
	if exists && !overwrite {
		return false, nil
	}
	f.sets++
	f.users[uid] = password
	return !exists, nil
}

func (f *fakeStore) DeleteUser(_ context.Context, uid string) (bool, error) {
	if !f.caps.Has(stores.CapDeleteUser) {
		return false, stores.ErrNotSupported
	}
	_, ok := f.users[uid]
	delete(f.users, uid)
	return ok, nil
}

// countingStore counts password writes reaching a real store.
type countingStore struct {
	stores.Store
	sets int
}

func (c *countingStore) SetPassword(ctx context.Context, uid, password, oldPassword string, overwrite bool) (bool, error) {
	c.sets++
	return c.Store.SetPassword(ctx, uid, password, oldPassword, overwrite)
}

type recorder struct {
	events []Event
}

func (r *recorder) Notify(_ context.Context, ev Event) error {
	r.events = append(r.events, ev)
	return nil
}

func (r *recorder) kinds() []EventKind {
	out := make([]EventKind, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Kind)
	}
	return out
}

type env struct {
	db  *sql.DB
	rm  *repomanager.SQLRepositoryManager
	dir string
}

func newEnv(t *testing.T) env {
	t.Helper()
	dir := t.TempDir()
	db, rm, err := repomanager.Open(context.Background(), dbx.SQLite, filepath.Join(dir, "accounts.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return env{db: db, rm: rm, dir: dir}
}

func (e env) manager(t *testing.T, storeList []stores.Store, opts Options, o ...Option) *Manager {
	t.Helper()
	m, err := New(e.db, e.rm, storeList, opts, logging.NewNop(), o...)
	require.NoError(t, err)
	return m
}

func (e env) sessionStore() *sessionstore.Store {
	return sessionstore.New(e.db, e.rm, hashing.NewHtDigest("TestRealm"), logging.NewNop())
}

func (e env) htpasswd(t *testing.T) *htfile.HtPasswdStore {
	t.Helper()
	h, err := hashing.NewHtPasswd("sha")
	require.NoError(t, err)
	return htfile.NewHtPasswdStore(filepath.Join(e.dir, "htpasswd"), htfile.OSBackend{}, h, logging.NewNop())
}

func (e env) attr(t *testing.T, uid, name string) (string, bool) {
	t.Helper()
	v, err := e.rm.Attributes(e.db).Get(context.Background(), uid, name)
	if errors.Is(err, common.ErrorNotFound) {
		return "", false
	}
	require.NoError(t, err)
	return v, true
}

// --- construction ---

func TestNew(t *testing.T) {
	e := newEnv(t)

	_, err := New(e.db, e.rm, nil, Options{}, logging.NewNop())
	require.ErrorIs(t, err, common.ErrorConfiguration)

	_, err = New(e.db, e.rm, []stores.Store{newFake("a", 0)}, Options{RegisterChecks: []string{"NoSuchCheck"}}, logging.NewNop())
	require.Error(t, err)

	m := e.manager(t, []stores.Store{newFake("a", 0)}, Options{})
	assert.Equal(t, defaultGeneratedPwdSize, m.opts.GeneratedPasswordLength)
	assert.Len(t, m.Stores(), 1)
}

// --- chain ---

func TestVerifyPassword_Ordering(t *testing.T) {
	e := newEnv(t)
	a := newFake("a", 0, "alice", "one")
	b := newFake("b", 0, "alice", "two", "bob", "b")
	m := e.manager(t, []stores.Store{a, b}, Options{})
	ctx := context.Background()

	tests := []struct {
		uid, pw string
		want    stores.Verdict
	}{
		{"alice", "one", stores.Valid},
		{"alice", "two", stores.Invalid},
		{"bob", "b", stores.Valid},
		{"bob", "x", stores.Invalid},
		{"carol", "c", stores.Unknown},
	}
	for _, tt := range tests {
		t.Run(tt.uid+"/"+tt.pw, func(t *testing.T) {
			v, err := m.VerifyPassword(ctx, tt.uid, tt.pw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, v)
		})
	}
}

func TestVerifyPassword_Errors(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	unsupported := newFake("crypt", 0)
	unsupported.verifyErr = errors.Join(stores.ErrNotSupported, errors.New("crypt hash"))
	good := newFake("good", 0, "alice", "pw")

	m := e.manager(t, []stores.Store{unsupported, good}, Options{})
	v, err := m.VerifyPassword(ctx, "alice", "pw")
	require.NoError(t, err)
	assert.Equal(t, stores.Valid, v)

	broken := newFake("broken", 0)
	broken.verifyErr = errors.New("boom")
	m = e.manager(t, []stores.Store{broken, good}, Options{})
	v, err = m.VerifyPassword(ctx, "alice", "pw")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")
	assert.Equal(t, stores.Unknown, v)
}

func TestIgnoreAuthCase(t *testing.T) {
	e := newEnv(t)
	f := newFake("a", stores.CapSetPassword, "alice", "pw")
	m := e.manager(t, []stores.Store{f}, Options{IgnoreAuthCase: true})
	ctx := context.Background()

	assert.Equal(t, "alice", m.NormalizeUID("AlIcE"))
	v, err := m.VerifyPassword(ctx, "ALICE", "pw")
	require.NoError(t, err)
	assert.Equal(t, stores.Valid, v)

	ok, err := m.UserExists(ctx, "Alice")
	require.NoError(t, err)
	assert.True(t, ok)

	created, err := m.SetPassword(ctx, "Bob", "pw", "", true)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Contains(t, f.users, "bob")
}

func TestListUsers_NotDeduplicated(t *testing.T) {
	e := newEnv(t)
	a := newFake("a", 0, "alice", "1")
	b := newFake("b", 0, "alice", "2", "bob", "3")
	m := e.manager(t, []stores.Store{a, b}, Options{})

	users, err := m.ListUsers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "alice", "bob"}, users)
}

func TestSupportsAndFindUserStore(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	ro := newFake("ro", 0, "alice", "1")
	rw := newFake("rw", stores.CapSetPassword, "bob", "2")

	m := e.manager(t, []stores.Store{ro, rw}, Options{})
	assert.True(t, m.Supports(stores.CapSetPassword))
	assert.False(t, m.Supports(stores.CapDeleteUser))

	s, err := m.FindUserStore(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, "rw", s.Name())

	s, err = m.FindUserStore(ctx, "nobody")
	require.NoError(t, err)
	assert.Nil(t, s)
}

// --- password writes ---

func TestSetPassword_Routing(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	ro := newFake("ro", 0, "alice", "1")
	rw := newFake("rw", stores.CapSetPassword|stores.CapDeleteUser)

	m := e.manager(t, []stores.Store{ro, rw}, Options{})

	_, err := m.SetPassword(ctx, "alice", "new", "", true)
	require.ErrorIs(t, err, ErrReadOnlyBackend)
	assert.Equal(t, "1", ro.users["alice"])

	created, err := m.SetPassword(ctx, "bob", "pw", "", true)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "pw", rw.users["bob"])

	m = e.manager(t, []stores.Store{ro}, Options{})
	_, err = m.SetPassword(ctx, "bob", "pw", "", true)
	require.ErrorIs(t, err, ErrNoWritableStore)
	assert.ErrorIs(t, err, common.ErrorConfiguration)
}

func TestSetPassword_NoOverwriteLeavesUserAlone(t *testing.T) {
	e := newEnv(t)
	rw := newFake("rw", stores.CapSetPassword, "alice", "old")
	rec := &recorder{}
	m := e.manager(t, []stores.Store{rw}, Options{}, WithListeners(rec))

	ctx := context.Background()
	created, err := m.SetPassword(ctx, "alice", "new", "", false)
	require.ErrorIs(t, err, ErrUserExists)
	assert.Contains(t, err.Error(), "alice")
	assert.False(t, created)
	assert.Equal(t, "old", rw.users["alice"])
	assert.Zero(t, rw.sets)
	assert.Empty(t, rec.events)

	v, err := m.VerifyPassword(ctx, "alice", "old")
	require.NoError(t, err)
	assert.Equal(t, stores.Valid, v)

	created, err = m.SetPassword(ctx, "bob", "pw", "", false)
	require.NoError(t, err)
	assert.True(t, created)
}

func TestCreateAccount_ExistingPasswordIsKept(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	rw := newFake("rw", stores.CapSetPassword, "alice", "old")
	m := e.manager(t, []stores.Store{rw}, Options{})

	err := m.CreateAccount(ctx, &registration.Request{Username: "alice", Password: "new", PasswordConfirm: "new"})
	require.ErrorIs(t, err, ErrUserExists)
	assert.Equal(t, "old", rw.users["alice"])
	assert.Zero(t, rw.sets)
}

func TestSetPassword_Notifications(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	rw := newFake("rw", stores.CapSetPassword)
	rec := &recorder{}
	boom := errors.New("smtp down")
	failing := ListenerFunc(func(_ context.Context, ev Event) error {
		if ev.Kind == EventCreated {
			return boom
		}
		return nil
	})
	m := e.manager(t, []stores.Store{rw}, Options{}, WithListeners(rec, failing, LogListener{Log: logging.NewNop()}))

	created, err := m.SetPassword(ctx, "alice", "pw", "", true)
	require.Error(t, err)
	assert.True(t, IsNotificationError(err))
	assert.ErrorIs(t, err, boom)
	assert.True(t, created)
	assert.Equal(t, "pw", rw.users["alice"], "listener failure must not undo the write")

	created, err = m.SetPassword(ctx, "alice", "pw2", "pw", true)
	require.NoError(t, err)
	assert.False(t, created)

	assert.Equal(t, []EventKind{EventCreated, EventPasswordChanged}, rec.kinds())
	assert.Equal(t, "pw2", rec.events[1].Password)
}

// --- refresh ---

func TestVerifyPassword_RefreshMovesPassword(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	ss := &countingStore{Store: e.sessionStore()}
	hp := e.htpasswd(t)
	_, err := hp.SetPassword(ctx, "alice", "secret", "", true)
	require.NoError(t, err)

	m := e.manager(t, []stores.Store{ss, hp}, Options{RefreshPasswd: true})

	v, err := m.VerifyPassword(ctx, "alice", "secret")
	require.NoError(t, err)
	assert.Equal(t, stores.Valid, v)
	assert.Equal(t, 1, ss.sets)

	inFile, err := hp.UserExists(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, inFile, "stale htpasswd record should be removed")

	flag, ok := e.attr(t, "alice", AttrPasswordRefreshed)
	require.True(t, ok)
	assert.Equal(t, "1", flag)

	// already refreshed: no second write
	v, err = m.VerifyPassword(ctx, "alice", "secret")
	require.NoError(t, err)
	assert.Equal(t, stores.Valid, v)
	assert.Equal(t, 1, ss.sets)

	// any password write resets the flag
	_, err = m.SetPassword(ctx, "alice", "changed", "secret", true)
	require.NoError(t, err)
	_, ok = e.attr(t, "alice", AttrPasswordRefreshed)
	assert.False(t, ok)

	v, err = m.VerifyPassword(ctx, "alice", "changed")
	require.NoError(t, err)
	assert.Equal(t, stores.Valid, v)
	assert.Equal(t, 3, ss.sets)
	_, ok = e.attr(t, "alice", AttrPasswordRefreshed)
	assert.True(t, ok)
}

func TestVerifyPassword_NoRefreshWhenInvalid(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	ss := &countingStore{Store: e.sessionStore()}
	ro := newFake("ro", 0, "alice", "pw")

	m := e.manager(t, []stores.Store{ro, ss}, Options{RefreshPasswd: true})

	v, err := m.VerifyPassword(ctx, "alice", "bad")
	require.NoError(t, err)
	assert.Equal(t, stores.Invalid, v)
	assert.Zero(t, ss.sets)

	v, err = m.VerifyPassword(ctx, "alice", "pw")
	require.NoError(t, err)
	assert.Equal(t, stores.Valid, v)
	assert.Equal(t, 1, ss.sets)
	assert.Contains(t, ro.users, "alice", "read-only owner keeps its record")
}

// --- deletion ---

func TestDeleteUser_PurgesAuxiliaryState(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	ss := e.sessionStore()
	rec := &recorder{}
	m := e.manager(t, []stores.Store{ss}, Options{}, WithListeners(rec))

	_, err := ss.SetPassword(ctx, "alice", "pw", "", true)
	require.NoError(t, err)
	require.NoError(t, e.rm.Attributes(e.db).Set(ctx, "alice", AttrEmail, "alice@example.com"))
	require.NoError(t, e.rm.Permissions(e.db).Grant(ctx, "alice", "WIKI_VIEW"))
	_, err = e.db.ExecContext(ctx, `INSERT INTO auth_cookie (cookie, name, ipnr, time) VALUES ('c1', 'alice', '127.0.0.1', 0)`)
	require.NoError(t, err)

	existed, err := m.DeleteUser(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, existed)

	known, err := m.UserKnown(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, known)

	attrs, err := e.rm.Attributes(e.db).List(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, attrs)

	actions, err := e.rm.Permissions(e.db).Actions(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, actions)

	var cookies int
	require.NoError(t, e.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM auth_cookie WHERE name = 'alice'`).Scan(&cookies))
	assert.Zero(t, cookies)

	assert.Equal(t, []EventKind{EventDeleted}, rec.kinds())
}

func TestDeleteUser_ReadOnlyOwnerStillPurges(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	ro := newFake("ro", 0, "alice", "pw")
	m := e.manager(t, []stores.Store{ro}, Options{})

	require.NoError(t, e.rm.Sessions(e.db).Prime(ctx, "alice"))

	existed, err := m.DeleteUser(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, existed)
	assert.Contains(t, ro.users, "alice")

	known, err := m.UserKnown(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, known)
}

// --- account creation ---

func TestCreateAccount(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	rec := &recorder{}
	opts := Options{
		RegisterChecks: []string{"BasicCheck", "EmailCheck"},
		Registration:   registration.Settings{VerifyEmail: true},
	}
	m := e.manager(t, []stores.Store{e.sessionStore()}, opts, WithListeners(rec))

	req := &registration.Request{
		Username:        " alice ",
		Password:        "secret",
		PasswordConfirm: "secret",
		Name:            "Alice",
		Email:           "alice@example.com",
	}
	require.NoError(t, m.CreateAccount(ctx, req))
	assert.Equal(t, "alice", req.Username)

	known, err := m.UserKnown(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, known)

	name, _ := e.attr(t, "alice", AttrName)
	assert.Equal(t, "Alice", name)

	v, err := m.VerifyPassword(ctx, "alice", "secret")
	require.NoError(t, err)
	assert.Equal(t, stores.Valid, v)

	used, err := m.EmailAssociated(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.True(t, used)

	assert.Equal(t, []EventKind{EventCreated}, rec.kinds())

	token, ok := e.attr(t, "alice", AttrEmailVerifyToken)
	require.True(t, ok)
	assert.Len(t, token, 8)

	ok, err = m.EmailVerified(ctx, "alice", "alice@example.com")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = m.ConfirmEmail(ctx, "alice", "wrong")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = m.ConfirmEmail(ctx, "alice", token)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = m.EmailVerified(ctx, "alice", "alice@example.com")
	require.NoError(t, err)
	assert.True(t, ok)

	err = m.CreateAccount(ctx, &registration.Request{Username: "alice", Password: "x", PasswordConfirm: "x"})
	require.Error(t, err)
	assert.True(t, registration.IsRejection(err))
}

func TestCreateAccount_RejectedWritesNothing(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	m := e.manager(t, []stores.Store{e.sessionStore()}, Options{RegisterChecks: []string{"BasicCheck"}})

	err := m.CreateAccount(ctx, &registration.Request{Username: "bob", Password: "a", PasswordConfirm: "b"})
	require.Error(t, err)
	assert.True(t, registration.IsRejection(err))

	known, err := m.UserKnown(ctx, "bob")
	require.NoError(t, err)
	assert.False(t, known)
}

func TestCreateAccount_CompensatesOnStoreFailure(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	broken := newFake("broken", stores.CapSetPassword)
	broken.setErr = errors.New("disk full")
	m := e.manager(t, []stores.Store{broken}, Options{})

	err := m.CreateAccount(ctx, &registration.Request{Username: "bob", Password: "pw", Email: "bob@example.com"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")

	known, err := m.UserKnown(ctx, "bob")
	require.NoError(t, err)
	assert.False(t, known)

	attrs, err := e.rm.Attributes(e.db).List(ctx, "bob")
	require.NoError(t, err)
	assert.Empty(t, attrs)
}

func TestValidateAccount_WithoutCreate(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	m := e.manager(t, []stores.Store{e.sessionStore()}, Options{RegisterChecks: []string{"BasicCheck"}})

	require.NoError(t, m.ValidateAccount(ctx, &registration.Request{Username: "carol", Password: "p", PasswordConfirm: "p"}, false))

	known, err := m.UserKnown(ctx, "carol")
	require.NoError(t, err)
	assert.False(t, known)
}

// --- reset ---

func TestResetPassword(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	ss := e.sessionStore()
	rec := &recorder{}
	m := e.manager(t, []stores.Store{ss}, Options{ForcePasswdChange: true, GeneratedPasswordLength: 12}, WithListeners(rec))

	_, err := ss.SetPassword(ctx, "alice", "old", "", true)
	require.NoError(t, err)
	require.NoError(t, e.rm.Attributes(e.db).Set(ctx, "alice", AttrEmail, "alice@example.com"))

	_, err = m.ResetPassword(ctx, "alice", "mallory@example.com")
	require.ErrorIs(t, err, ErrEmailMismatch)

	pw, err := m.ResetPassword(ctx, "alice", "ALICE@example.com")
	require.NoError(t, err)
	assert.Len(t, pw, 12)

	v, err := m.VerifyPassword(ctx, "alice", pw)
	require.NoError(t, err)
	assert.Equal(t, stores.Valid, v)

	force, ok := e.attr(t, "alice", AttrForcePasswdChange)
	require.True(t, ok)
	assert.Equal(t, "1", force)

	require.Len(t, rec.events, 1)
	assert.Equal(t, EventPasswordReset, rec.events[0].Kind)
	assert.Equal(t, pw, rec.events[0].Password)

	_, err = m.ResetPassword(ctx, "nobody", "")
	require.ErrorIs(t, err, common.ErrorNotFound)
}

// --- rename ---

func TestChangeUID(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	rec := &recorder{}

	m := e.manager(t, []stores.Store{e.sessionStore()}, Options{})
	_, err := m.ChangeUID(ctx, "alice", "alice2", true)
	require.ErrorIs(t, err, ErrNoRenameSetup)

	engine := uidchange.NewEngine(e.db, e.rm, nil, logging.NewNop())
	m = e.manager(t, []stores.Store{e.sessionStore()}, Options{}, WithEngine(engine), WithListeners(rec))

	require.NoError(t, e.rm.Sessions(e.db).Create(ctx, "alice", 1234))
	require.NoError(t, e.rm.Attributes(e.db).Set(ctx, "alice", AttrEmail, "alice@example.com"))

	report, err := m.ChangeUID(ctx, "alice", "alice2", true)
	require.NoError(t, err)
	assert.Equal(t, int64(1), report[uidchange.Key{Table: "session", Column: "sid"}])

	seen, err := m.LastSeen(ctx, "alice2")
	require.NoError(t, err)
	require.Len(t, seen, 1)
	assert.Equal(t, int64(1234), seen[0].LastVisit)
	assert.Equal(t, time.Unix(1234, 0), seen[0].LastVisitTime())

	email, ok := e.attr(t, "alice2", AttrEmail)
	require.True(t, ok)
	assert.Equal(t, "alice@example.com", email)

	require.Len(t, rec.events, 1)
	assert.Equal(t, Event{Kind: EventUIDChanged, UID: "alice", NewUID: "alice2"}, rec.events[0])
}

// --- lookups ---

func TestEmailVerified(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	m := e.manager(t, []stores.Store{e.sessionStore()}, Options{})
	attrs := e.rm.Attributes(e.db)

	require.NoError(t, attrs.Set(ctx, "alice", AttrEmail, "alice@example.com"))

	ok, err := m.EmailVerified(ctx, "alice", "alice@example.com")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = m.EmailVerified(ctx, "alice", "other@example.com")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, attrs.Set(ctx, "alice", AttrEmailVerifyToken, "abc"))
	ok, err = m.EmailVerified(ctx, "alice", "alice@example.com")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPermissionSubjects(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	m := e.manager(t, []stores.Store{e.sessionStore()}, Options{})

	require.NoError(t, e.rm.Permissions(e.db).Grant(ctx, "developers", "TICKET_ADMIN"))
	require.NoError(t, e.rm.Permissions(e.db).Grant(ctx, "alice", "developers"))

	subjects, err := m.PermissionSubjects(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"alice", "developers"}, subjects)
}
