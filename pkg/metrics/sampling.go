package metrics

import (
	"hash/fnv"
	"sync/atomic"
)

// SamplingObserver thins the event stream to roughly rate (0..1). Events
// tagged with a turn or session id are kept or dropped as a unit, so a
// sampled turn always has its complete trace; untagged events fall back to
// counter-based thinning.
type SamplingObserver struct {
	inner     Observer
	threshold uint32
	counter   uint64
	every     uint64
}

func NewSamplingObserver(inner Observer, rate float64) *SamplingObserver {
	if rate > 1 {
		rate = 1
	}
	if rate < 0 {
		rate = 0
	}
	var every uint64
	if rate > 0 {
		every = uint64(1.0/rate + 0.5)
		if every == 0 {
			every = 1
		}
	}
	return &SamplingObserver{
		inner:     inner,
		threshold: uint32(rate * float64(1<<32-1)),
		every:     every,
	}
}

func (s *SamplingObserver) RecordEvent(ev MetricsEvent) {
	if s.every == 0 {
		return
	}
	if id := groupID(ev); id != "" {
		h := fnv.New32a()
		_, _ = h.Write([]byte(id))
		if h.Sum32() <= s.threshold {
			s.inner.RecordEvent(ev)
		}
		return
	}
	if s.every <= 1 {
		s.inner.RecordEvent(ev)
		return
	}
	n := atomic.AddUint64(&s.counter, 1)
	if n%s.every == 0 {
		s.inner.RecordEvent(ev)
	}
}

func groupID(ev MetricsEvent) string {
	if ev.Tags == nil {
		return ""
	}
	if id := ev.Tags["turn_id"]; id != "" {
		return id
	}
	return ev.Tags["session_id"]
}
