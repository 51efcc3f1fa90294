package metrics

import "time"

// Recorder defines observability hooks for orchestration metrics.
// Implementations may forward to Prometheus, OpenTelemetry, etc. The
// NoopRecorder is the default so components never need nil checks.
type Recorder interface {
	ObserveRenderDuration(target string, d time.Duration)
	ObservePackageDuration(target string, d time.Duration)
	ObserveUploadDuration(d time.Duration)
	ObserveUploadBytes(n int)
	IncCacheHit()
	IncCacheMiss()
	IncBuildOutcome(outcome string) // outcome: success|failed|superseded
	SetBuildsInFlight(n int)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveRenderDuration(string, time.Duration)  {}
func (NoopRecorder) ObservePackageDuration(string, time.Duration) {}
func (NoopRecorder) ObserveUploadDuration(time.Duration)          {}
func (NoopRecorder) ObserveUploadBytes(int)                       {}
func (NoopRecorder) IncCacheHit()                                 {}
func (NoopRecorder) IncCacheMiss()                                {}
func (NoopRecorder) IncBuildOutcome(string)                       {}
func (NoopRecorder) SetBuildsInFlight(int)                        {}
