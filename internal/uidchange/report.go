package uidchange

import (
	"fmt"
	"sort"
)

// Key names one rename step: a column of a table, optionally narrowed by a
// row constraint such as "field='cc'".
type Key struct {
	Table      string
	Column     string
	Constraint string
}

func (k Key) String() string {
	if k.Constraint == "" {
		return k.Table + "." + k.Column
	}
	return fmt.Sprintf("%s.%s (%s)", k.Table, k.Column, k.Constraint)
}

// Report maps every executed step to the number of rows it changed.
type Report map[Key]int64

// Merge copies other into r.
func (r Report) Merge(other Report) {
	for k, v := range other {
		r[k] = v
	}
}

// Keys returns the report keys sorted by table, column and constraint.
func (r Report) Keys() []Key {
	keys := make([]Key, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.Table != b.Table {
			return a.Table < b.Table
		}
		if a.Column != b.Column {
			return a.Column < b.Column
		}
		return a.Constraint < b.Constraint
	})
	return keys
}

// StepError is the failure of a single rename step. The whole rename is
// rolled back when one is returned.
type StepError struct {
	Key Key
	Err error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("rename step %s failed: %v", e.Key, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

func stepError(k Key, err error) error {
	return &StepError{Key: k, Err: err}
}
