// Package common defines sentinel errors and small helpers shared by the
// repositories, stores and the account manager. Callers should use
// errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors.
	ErrorInternal = errors.New("internal error")

	// Configuration errors surface to the operator and are never swallowed.
	ErrorConfiguration = errors.New("configuration error")
)
