// Package permissions reads and writes the permission table whose subjects
// are user names or group names.
package permissions

import "context"

type Repository interface {
	Grant(ctx context.Context, username, action string) error
	Actions(ctx context.Context, username string) ([]string, error)
	// Subjects lists distinct user and group names holding any permission.
	Subjects(ctx context.Context) ([]string, error)
	DeleteUser(ctx context.Context, username string) (int64, error)
}
