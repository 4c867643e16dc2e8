// Package metrics holds the metric names and tag conventions emitted by notifyd.
package metrics

import (
	"maps"
	"time"

	obserrors "github.com/target/notifyd/internal/observability/errors"
	"github.com/target/notifyd/internal/observability/statsd"
)

// Result constants for metric tagging.
const (
	ResultSuccess = "success"
	ResultError   = "error"
	ResultNoop    = "noop"
	ResultDropped = "dropped"
)

// Cache lookup outcomes.
const (
	CacheHit    = "hit"
	CacheMiss   = "miss"
	CacheBypass = "bypass"
)

// Metric names.
const (
	JobTransition   = "job.transition"
	JobDuration     = "job.duration"
	FeedCountCache  = "feed_count.cache"
	FeedCountTiming = "feed_count.duration"
	AuditWrite      = "audit.write"
	AuditRows       = "audit.rows"
	DispatchEnqueue = "dispatch.enqueue"
	CacheInvalidate = "cache.invalidate"
	RedispatchSweep = "redispatch.sweep"
	RedispatchJobs  = "redispatch.jobs"
)

// JobMetric captures details about a job lifecycle event for metric emission.
type JobMetric struct {
	StepType   string
	Transition string
	Result     string
	Duration   time.Duration
	Err        error
}

// EmitJobLifecycle emits job lifecycle metrics tagged by step type and transition.
func EmitJobLifecycle(sink statsd.Sink, in JobMetric) {
	if sink == nil {
		return
	}
	tags := withErrorClass(map[string]string{
		"step_type":  in.StepType,
		"transition": in.Transition,
		"result":     in.Result,
	}, in.Result, in.Err)

	sink.Count(JobTransition, 1, tags)
	if in.Duration > 0 {
		sink.Timing(JobDuration, in.Duration, maps.Clone(tags))
	}
}

// EmitCacheLookup records one feed count lookup and how it was served.
func EmitCacheLookup(sink statsd.Sink, outcome string, took time.Duration) {
	if sink == nil {
		return
	}
	tags := map[string]string{"result": outcome}
	sink.Count(FeedCountCache, 1, tags)
	if took > 0 {
		sink.Timing(FeedCountTiming, took, maps.Clone(tags))
	}
}

// EmitAuditWrite records the outcome of one execution detail batch write.
func EmitAuditWrite(sink statsd.Sink, rows int, err error) {
	if sink == nil {
		return
	}
	result := ResultSuccess
	if err != nil {
		result = ResultError
	}
	tags := withErrorClass(map[string]string{"result": result}, result, err)
	sink.Count(AuditWrite, 1, tags)
	if rows > 0 && err == nil {
		sink.Count(AuditRows, int64(rows), nil)
	}
}

// EmitAuditDropped records an execution detail batch rejected by a full queue.
func EmitAuditDropped(sink statsd.Sink, rows int) {
	if sink == nil {
		return
	}
	sink.Count(AuditWrite, 1, map[string]string{"result": ResultDropped})
	sink.Count(AuditRows, int64(rows), map[string]string{"result": ResultDropped})
}

// EmitDispatch records one queue hand-off. A duplicate enqueue is reported as noop.
func EmitDispatch(sink statsd.Sink, backend string, enqueued bool, err error) {
	if sink == nil {
		return
	}
	result := ResultSuccess
	switch {
	case err != nil:
		result = ResultError
	case !enqueued:
		result = ResultNoop
	}
	sink.Count(DispatchEnqueue, 1, withErrorClass(map[string]string{
		"backend": backend,
		"result":  result,
	}, result, err))
}

// EmitInvalidate records a cache invalidation; prefix distinguishes pattern from exact deletes.
func EmitInvalidate(sink statsd.Sink, prefix bool, err error) {
	if sink == nil {
		return
	}
	kind := "key"
	if prefix {
		kind = "pattern"
	}
	result := ResultSuccess
	if err != nil {
		result = ResultError
	}
	sink.Count(CacheInvalidate, 1, withErrorClass(map[string]string{"kind": kind, "result": result}, result, err))
}

// SweepMetric summarises one redispatch sweep.
type SweepMetric struct {
	Found    int
	Failed   int
	Duration time.Duration
	Err      error
}

// EmitRedispatchSweep records one redispatch sweep and how many jobs it touched.
func EmitRedispatchSweep(sink statsd.Sink, in SweepMetric) {
	if sink == nil {
		return
	}
	result := ResultSuccess
	switch {
	case in.Err != nil:
		result = ResultError
	case in.Found == 0:
		result = ResultNoop
	}
	tags := withErrorClass(map[string]string{"result": result}, result, in.Err)
	sink.Count(RedispatchSweep, 1, tags)
	sink.Timing(RedispatchSweep, in.Duration, maps.Clone(tags))
	if in.Found > 0 {
		sink.Count(RedispatchJobs, int64(in.Found-in.Failed), map[string]string{"result": ResultSuccess})
	}
	if in.Failed > 0 {
		sink.Count(RedispatchJobs, int64(in.Failed), map[string]string{"result": ResultError})
	}
}

func withErrorClass(tags map[string]string, result string, err error) map[string]string {
	if err == nil || result != ResultError {
		return tags
	}
	if class := obserrors.Classify(err); class != "" {
		tags["error_class"] = class
	}
	return tags
}
