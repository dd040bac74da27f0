package breaker

import (
	"sync"
	"time"

	"github.com/1mb-dev/resilience/internal/reserr"
)

// AdvancedOptions configures the sliding-window breaker: trip when the
// failure ratio over a rolling window reaches or exceeds FailureRatio, but only once
// MinimumThroughput requests have been observed in the window (so a single
// failure in an otherwise quiet window can't trip it).
type AdvancedOptions struct {
	// FailureRatio is the fraction of failed requests, in (0, 1], that
	// trips the breaker once MinimumThroughput is met. Defaults to 0.5.
	FailureRatio float64

	// MinimumThroughput is the minimum number of requests that must land in
	// the current window before the failure ratio is evaluated at all.
	// Defaults to 10.
	MinimumThroughput uint32

	// SamplingDuration is the total length of the rolling window. Defaults
	// to 30s.
	SamplingDuration time.Duration

	// BucketCount is how many fixed-width buckets SamplingDuration is
	// divided into. Must be >= 10 per the window's accuracy requirement;
	// defaults to 10.
	BucketCount int

	// Timeout is how long the breaker stays Open before admitting a trial
	// request as HalfOpen. Defaults to 30s.
	Timeout time.Duration

	// HalfOpenMaxRequests caps trial requests admitted while HalfOpen.
	// Defaults to 1.
	HalfOpenMaxRequests uint32
}

// Validate reports configuration errors without applying defaults.
func (o AdvancedOptions) Validate() error {
	var msgs []string
	if o.FailureRatio < 0 || o.FailureRatio > 1 {
		msgs = append(msgs, "FailureRatio must be in [0, 1]")
	}
	if o.SamplingDuration < 0 {
		msgs = append(msgs, "SamplingDuration must not be negative")
	}
	if o.BucketCount != 0 && o.BucketCount < 10 {
		msgs = append(msgs, "BucketCount must be >= 10 for the window to be accurate")
	}
	if o.Timeout < 0 {
		msgs = append(msgs, "Timeout must not be negative")
	}
	return reserr.NewValidationError(msgs)
}

func (o AdvancedOptions) withDefaults() AdvancedOptions {
	if o.FailureRatio <= 0 {
		o.FailureRatio = 0.5
	}
	if o.MinimumThroughput == 0 {
		o.MinimumThroughput = 10
	}
	if o.SamplingDuration <= 0 {
		o.SamplingDuration = 30 * time.Second
	}
	if o.BucketCount < 10 {
		o.BucketCount = 10
	}
	if o.Timeout <= 0 {
		o.Timeout = 30 * time.Second
	}
	if o.HalfOpenMaxRequests == 0 {
		o.HalfOpenMaxRequests = 1
	}
	return o
}

type bucket struct {
	successes uint32
	failures  uint32
	start     time.Time
}

// advancedTripDecider implements tripDecider over a fixed-width bucketed
// rolling window, grounded on the rotate-and-aggregate approach of a
// sliding-window rate counter: each bucket covers SamplingDuration/BucketCount,
// and buckets whose window has fully elapsed are cleared lazily on the next
// access rather than by a background timer.
type advancedTripDecider struct {
	opts           AdvancedOptions
	bucketDuration time.Duration

	mu      sync.Mutex
	buckets []bucket
	head    int
	start   time.Time
}

func newAdvancedTripDecider(opts AdvancedOptions) *advancedTripDecider {
	opts = opts.withDefaults()
	bucketDuration := opts.SamplingDuration / time.Duration(opts.BucketCount)
	if bucketDuration <= 0 {
		bucketDuration = time.Millisecond
	}
	return &advancedTripDecider{
		opts:           opts,
		bucketDuration: bucketDuration,
		buckets:        make([]bucket, opts.BucketCount),
	}
}

// rotateLocked advances the ring buffer to now, clearing any bucket whose
// window has fully elapsed. A huge or negative jump (clock skew, long idle
// gap) clears the whole window rather than spinning through every
// intervening bucket.
func (d *advancedTripDecider) rotateLocked(now time.Time) {
	if d.start.IsZero() {
		d.start = now
		d.buckets[d.head].start = now
		return
	}

	elapsedBuckets := int(now.Sub(d.buckets[d.head].start) / d.bucketDuration)
	if elapsedBuckets <= 0 {
		return
	}
	if elapsedBuckets >= len(d.buckets) {
		for i := range d.buckets {
			d.buckets[i] = bucket{}
		}
		d.head = 0
		d.buckets[d.head].start = now
		d.start = now
		return
	}

	for i := 0; i < elapsedBuckets; i++ {
		d.head = (d.head + 1) % len(d.buckets)
		d.buckets[d.head] = bucket{start: d.buckets[d.head].start.Add(d.bucketDuration)}
	}
	if d.buckets[d.head].start.IsZero() || now.Sub(d.buckets[d.head].start) >= d.bucketDuration {
		d.buckets[d.head].start = now
	}
}

func (d *advancedTripDecider) aggregateLocked() Counts {
	var c Counts
	for _, b := range d.buckets {
		c.TotalSuccesses += b.successes
		c.TotalFailures += b.failures
	}
	c.Requests = c.TotalSuccesses + c.TotalFailures
	return c
}

func (d *advancedTripDecider) onSuccess(now time.Time) Counts {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.rotateLocked(now)
	d.buckets[d.head].successes++
	return d.aggregateLocked()
}

func (d *advancedTripDecider) onFailure(now time.Time) (Counts, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.rotateLocked(now)
	d.buckets[d.head].failures++
	c := d.aggregateLocked()

	if c.Requests < d.opts.MinimumThroughput {
		return c, false
	}
	ratio := float64(c.TotalFailures) / float64(c.Requests)
	return c, ratio >= d.opts.FailureRatio
}

func (d *advancedTripDecider) counts(now time.Time) Counts {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.rotateLocked(now)
	return d.aggregateLocked()
}

func (d *advancedTripDecider) reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := range d.buckets {
		d.buckets[i] = bucket{}
	}
	d.head = 0
	d.start = time.Time{}
}

func (d *advancedTripDecider) halfOpenMaxRequests() uint32 { return d.opts.HalfOpenMaxRequests }

func (d *advancedTripDecider) openDuration() time.Duration { return d.opts.Timeout }
