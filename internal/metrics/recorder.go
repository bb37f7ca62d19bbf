package metrics

import (
	"sync"
	"time"

	m "github.com/cschleiden/go-dialogflow/backend/metrics"
)

// Recorder is an in-memory metrics client for tests.
type Recorder struct {
	mu       sync.Mutex
	counters map[string]int64
	gauges   map[string]int64
	timings  map[string][]time.Duration
	tags     m.Tags
	parent   *Recorder
}

func NewRecorder() *Recorder {
	return &Recorder{
		counters: map[string]int64{},
		gauges:   map[string]int64{},
		timings:  map[string][]time.Duration{},
	}
}

var _ m.Client = (*Recorder)(nil)

func (r *Recorder) root() *Recorder {
	if r.parent != nil {
		return r.parent
	}

	return r
}

func (r *Recorder) Counter(name string, tags m.Tags, value int64) {
	root := r.root()
	root.mu.Lock()
	defer root.mu.Unlock()

	root.counters[name] += value
}

func (r *Recorder) Distribution(name string, tags m.Tags, value float64) {
	r.Timing(name, tags, time.Duration(value)*time.Millisecond)
}

func (r *Recorder) Gauge(name string, tags m.Tags, value int64) {
	root := r.root()
	root.mu.Lock()
	defer root.mu.Unlock()

	root.gauges[name] = value
}

func (r *Recorder) Timing(name string, tags m.Tags, duration time.Duration) {
	root := r.root()
	root.mu.Lock()
	defer root.mu.Unlock()

	root.timings[name] = append(root.timings[name], duration)
}

func (r *Recorder) WithTags(tags m.Tags) m.Client {
	merged := m.Tags{}
	for k, v := range r.tags {
		merged[k] = v
	}
	for k, v := range tags {
		merged[k] = v
	}

	return &Recorder{tags: merged, parent: r.root()}
}

func (r *Recorder) CounterValue(name string) int64 {
	root := r.root()
	root.mu.Lock()
	defer root.mu.Unlock()

	return root.counters[name]
}

func (r *Recorder) GaugeValue(name string) int64 {
	root := r.root()
	root.mu.Lock()
	defer root.mu.Unlock()

	return root.gauges[name]
}

func (r *Recorder) Timings(name string) []time.Duration {
	root := r.root()
	root.mu.Lock()
	defer root.mu.Unlock()

	return append([]time.Duration(nil), root.timings[name]...)
}
