// Package models holds the plain data types passed between repositories and
// the account manager.
package models

import "time"

// Session is an authenticated session row. LastVisit is POSIX seconds.
type Session struct {
	SID       string
	LastVisit int64
}

// LastVisitTime converts LastVisit to a time.Time; zero means never seen.
func (s Session) LastVisitTime() time.Time {
	if s.LastVisit == 0 {
		return time.Time{}
	}
	return time.Unix(s.LastVisit, 0)
}
