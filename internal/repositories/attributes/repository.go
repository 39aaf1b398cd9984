// Package attributes stores per-account key/value state in the
// session_attribute table: email, lockout counters, the password refresh
// flag and, for the session store, the password hash itself.
package attributes

import "context"

type Repository interface {
	// Get returns common.ErrorNotFound when the attribute is absent.
	Get(ctx context.Context, sid, name string) (string, error)
	List(ctx context.Context, sid string) (map[string]string, error)
	// Set inserts or overwrites a value.
	Set(ctx context.Context, sid, name, value string) error
	Insert(ctx context.Context, sid, name, value string) error
	Update(ctx context.Context, sid, name, value string) (int64, error)
	Delete(ctx context.Context, sid, name string) (int64, error)
	DeleteAll(ctx context.Context, sid string) (int64, error)
	// SIDsWithName lists the sessions carrying an attribute, ordered by sid.
	SIDsWithName(ctx context.Context, name string) ([]string, error)
	// SIDsWithValue lists sessions whose attribute equals value.
	SIDsWithValue(ctx context.Context, name, value string) ([]string, error)
}
