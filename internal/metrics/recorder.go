// Package metrics records status-refresh activity.
package metrics

import "time"

// Outcome labels for fetch results.
const (
	OutcomeSuccess   = "success"
	OutcomeFailure   = "failure"
	OutcomeDiscarded = "discarded"
)

// Recorder receives fetch pipeline and scheduler events.
type Recorder interface {
	ObserveFetch(outcome string, d time.Duration)
	IncCoalesced()
	IncSchedulerTick()
	SetCachedRoots(n int)
}

// NoopRecorder discards everything.
type NoopRecorder struct{}

func (NoopRecorder) ObserveFetch(string, time.Duration) {}
func (NoopRecorder) IncCoalesced()                      {}
func (NoopRecorder) IncSchedulerTick()                  {}
func (NoopRecorder) SetCachedRoots(int)                 {}
