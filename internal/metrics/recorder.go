// Package metrics exposes Prometheus counters for credential verification,
// password writes and identity renames.
package metrics

import "time"

// Recorder is what the account manager reports to.
type Recorder interface {
	RecordVerify(store, verdict string)
	RecordPasswordWrite(store string, created bool)
	RecordUserDeleted(store string)
	RecordRename(success bool, took time.Duration)
	RecordNotificationFailure(event string)
}
