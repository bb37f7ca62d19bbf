// Package prometheus exposes the metrics recorded by workers, executors, and backends as Prometheus
// collectors.
package prometheus

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cschleiden/go-dialogflow/backend/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

type registry struct {
	mu sync.Mutex

	reg prometheus.Registerer

	counters   map[string]*prometheus.CounterVec
	gauges     map[string]*prometheus.GaugeVec
	histograms map[string]*prometheus.HistogramVec

	// labels holds the label names a metric was registered with on first use
	labels map[string][]string
}

type client struct {
	r    *registry
	tags metrics.Tags
}

var _ metrics.Client = (*client)(nil)

// NewClient returns a metrics client that registers a collector per metric name with the given registerer.
// Label names of a metric are fixed by the tags of its first recording. Missing tags are recorded as
// empty labels, unknown tags are dropped.
func NewClient(reg prometheus.Registerer) metrics.Client {
	return &client{
		r: &registry{
			reg:        reg,
			counters:   map[string]*prometheus.CounterVec{},
			gauges:     map[string]*prometheus.GaugeVec{},
			histograms: map[string]*prometheus.HistogramVec{},
			labels:     map[string][]string{},
		},
		tags: metrics.Tags{},
	}
}

func (c *client) Counter(name string, tags metrics.Tags, value int64) {
	c.r.mu.Lock()
	defer c.r.mu.Unlock()

	name = metricName(name, "_total")
	vec, ok := c.r.counters[name]
	if !ok {
		vec = prometheus.NewCounterVec(prometheus.CounterOpts{Name: name}, c.r.register(name, c.merge(tags)))
		c.r.counters[name] = vec
		c.r.reg.MustRegister(vec)
	}

	vec.WithLabelValues(c.r.values(name, c.merge(tags))...).Add(float64(value))
}

func (c *client) Distribution(name string, tags metrics.Tags, value float64) {
	c.observe(metricName(name, ""), tags, value)
}

func (c *client) Gauge(name string, tags metrics.Tags, value int64) {
	c.r.mu.Lock()
	defer c.r.mu.Unlock()

	name = metricName(name, "")
	vec, ok := c.r.gauges[name]
	if !ok {
		vec = prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: name}, c.r.register(name, c.merge(tags)))
		c.r.gauges[name] = vec
		c.r.reg.MustRegister(vec)
	}

	vec.WithLabelValues(c.r.values(name, c.merge(tags))...).Set(float64(value))
}

func (c *client) Timing(name string, tags metrics.Tags, duration time.Duration) {
	c.observe(metricName(name, "_seconds"), tags, duration.Seconds())
}

func (c *client) WithTags(tags metrics.Tags) metrics.Client {
	return &client{
		r:    c.r,
		tags: c.merge(tags),
	}
}

func (c *client) observe(name string, tags metrics.Tags, value float64) {
	c.r.mu.Lock()
	defer c.r.mu.Unlock()

	vec, ok := c.r.histograms[name]
	if !ok {
		vec = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    name,
			Buckets: prometheus.DefBuckets,
		}, c.r.register(name, c.merge(tags)))
		c.r.histograms[name] = vec
		c.r.reg.MustRegister(vec)
	}

	vec.WithLabelValues(c.r.values(name, c.merge(tags))...).Observe(value)
}

func (c *client) merge(tags metrics.Tags) metrics.Tags {
	merged := make(metrics.Tags, len(c.tags)+len(tags))
	for k, v := range c.tags {
		merged[k] = v
	}

	for k, v := range tags {
		merged[k] = v
	}

	return merged
}

func (r *registry) register(name string, tags metrics.Tags) []string {
	labels := make([]string, 0, len(tags))
	for k := range tags {
		labels = append(labels, sanitize(k))
	}

	sort.Strings(labels)
	r.labels[name] = labels

	return labels
}

func (r *registry) values(name string, tags metrics.Tags) []string {
	sanitized := make(map[string]string, len(tags))
	for k, v := range tags {
		sanitized[sanitize(k)] = v
	}

	labels := r.labels[name]
	values := make([]string, len(labels))
	for i, l := range labels {
		values[i] = sanitized[l]
	}

	return values
}

func metricName(name, suffix string) string {
	name = sanitize(name)
	if !strings.HasSuffix(name, suffix) {
		name += suffix
	}

	return name
}

func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		default:
			return '_'
		}
	}, s)
}
