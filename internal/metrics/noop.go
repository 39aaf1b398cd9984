package metrics

import "time"

// NoopMetrics discards everything.
type NoopMetrics struct{}

var _ Recorder = (*NoopMetrics)(nil)

func NewNoopMetrics() Recorder {
	return &NoopMetrics{}
}

func (n *NoopMetrics) RecordVerify(store, verdict string)             {}
func (n *NoopMetrics) RecordPasswordWrite(store string, created bool) {}
func (n *NoopMetrics) RecordUserDeleted(store string)                 {}
func (n *NoopMetrics) RecordRename(success bool, took time.Duration)  {}
func (n *NoopMetrics) RecordNotificationFailure(event string)         {}
