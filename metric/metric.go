// Package metric publishes engine counters through expvar.
package metric

import (
	"expvar"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jerryseigle/multitrack/signal"
)

const enginesLabel = "multitrack.engine"

const (
	// BlockCounter measures number of rendered blocks.
	BlockCounter = "Blocks"
	// SampleCounter measures number of rendered samples.
	SampleCounter = "Samples"
	// UnderrunCounter measures number of stretch underruns.
	UnderrunCounter = "Underruns"
	// LatencyCounter measures latency between render calls.
	LatencyCounter = "Latency"
	// DurationCounter counts what's the duration of rendered signal.
	DurationCounter = "Duration"
)

var (
	engines = metrics{
		m: make(map[string]metric),
	}

	counters = []string{
		BlockCounter,
		SampleCounter,
		UnderrunCounter,
		LatencyCounter,
		DurationCounter,
	}
)

// Get metrics values for provided engine name.
func Get(name string) map[string]string {
	m := make(map[string]string)
	for _, counter := range counters {
		v := expvar.Get(key(name, counter))
		if v != nil {
			m[counter] = v.String()
		}
	}
	return m
}

// MeasureFunc captures metrics when a block is rendered.
type MeasureFunc func(bufferSize int64)

// Meter creates new meter closure to capture engine counters.
func Meter(name string, sampleRate int) MeasureFunc {
	metric := engines.get(name)
	calledAt := time.Now()
	var (
		bufferSize     int64
		bufferDuration time.Duration
	)
	return func(s int64) {
		metric.latency.set(time.Since(calledAt))
		metric.blocks.Add(1)
		metric.samples.Add(s)
		// recalculate buffer duration only when buffer size has changed
		if bufferSize != s {
			bufferSize = s
			bufferDuration = signal.DurationOf(sampleRate, s)
		}
		metric.duration.add(bufferDuration)
		calledAt = time.Now()
	}
}

// Underrun increments the underrun counter for provided engine name.
func Underrun(name string) {
	engines.get(name).underruns.Add(1)
}

type metrics struct {
	sync.Mutex
	m map[string]metric
}

func (m *metrics) get(name string) metric {
	m.Lock()
	defer m.Unlock()
	if metric, ok := m.m[name]; ok {
		// return existing metric if available
		return metric
	}
	// create new metric
	metric := newMetric(name)
	m.m[name] = metric
	return metric
}

type metric struct {
	key       string
	blocks    *expvar.Int
	samples   *expvar.Int
	underruns *expvar.Int
	latency   *duration
	duration  *duration
}

func newMetric(name string) metric {
	m := metric{
		key:       name,
		blocks:    expvar.NewInt(key(name, BlockCounter)),
		samples:   expvar.NewInt(key(name, SampleCounter)),
		underruns: expvar.NewInt(key(name, UnderrunCounter)),
		latency:   &duration{},
		duration:  &duration{},
	}
	expvar.Publish(key(name, LatencyCounter), m.latency)
	expvar.Publish(key(name, DurationCounter), m.duration)
	return m
}

func key(name, counter string) string {
	return fmt.Sprintf("%s.%s.%s", enginesLabel, name, counter)
}

// duration allows to format time.Duration metric values.
type duration struct {
	d int64
}

func (v *duration) String() string {
	return fmt.Sprintf("%v", time.Duration(atomic.LoadInt64(&v.d)))
}

func (v *duration) add(delta time.Duration) {
	atomic.AddInt64(&v.d, int64(delta))
}

func (v *duration) set(value time.Duration) {
	atomic.StoreInt64(&v.d, int64(value))
}
