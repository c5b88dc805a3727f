// Package timeline implements the free-running musical clock used for
// bar/beat display and bar-quantized track starts.
package timeline

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync/atomic"
)

const (
	// DefaultBeatsPerBar is the 4/4 upper numeral.
	DefaultBeatsPerBar = 4
	// DefaultReferenceBPM is the reference tempo the bar/beat math uses.
	DefaultReferenceBPM = 120
)

// ErrInvalidTimeSignature is returned for unparsable signature text.
var ErrInvalidTimeSignature = errors.New("invalid time signature")

// Timeline advances elapsed musical seconds scaled by the tempo ratio.
// Tick runs on the control timer, all other accessors may run anywhere:
// every field is an independent atomic.
type Timeline struct {
	running      atomic.Bool
	elapsed      atomic.Uint64 // seconds, float64 bits
	beatsPerBar  atomic.Int32
	referenceBPM atomic.Uint64 // float64 bits
	tempoRatio   atomic.Uint64 // float64 bits
}

// New returns a stopped timeline with 4/4 signature at 120 BPM.
func New() *Timeline {
	t := &Timeline{}
	t.beatsPerBar.Store(DefaultBeatsPerBar)
	t.referenceBPM.Store(math.Float64bits(DefaultReferenceBPM))
	t.tempoRatio.Store(math.Float64bits(1))
	return t
}

// Start begins advancing the clock.
func (t *Timeline) Start() {
	t.running.Store(true)
}

// Stop halts the clock and resets it to zero.
func (t *Timeline) Stop() {
	t.running.Store(false)
	t.elapsed.Store(math.Float64bits(0))
}

// Running reports whether the clock advances on Tick.
func (t *Timeline) Running() bool {
	return t.running.Load()
}

// Tick advances the clock by a wall-clock delta scaled by the current
// tempo ratio. A non-positive ratio is clamped to 1. A tick racing a
// concurrent Stop never resurrects the pre-stop position.
func (t *Timeline) Tick(wallClockDelta float64) {
	if wallClockDelta <= 0 {
		return
	}
	for {
		if !t.running.Load() {
			return
		}
		old := t.elapsed.Load()
		elapsed := math.Float64frombits(old) + wallClockDelta*t.TempoRatio()
		if t.elapsed.CompareAndSwap(old, math.Float64bits(elapsed)) {
			if !t.running.Load() {
				// stopped mid-tick, keep the clock rewound
				t.elapsed.Store(math.Float64bits(0))
			}
			return
		}
	}
}

// Elapsed returns elapsed musical seconds.
func (t *Timeline) Elapsed() float64 {
	return math.Float64frombits(t.elapsed.Load())
}

// SetTempoRatio sets the timeline speed multiplier.
func (t *Timeline) SetTempoRatio(ratio float64) {
	t.tempoRatio.Store(math.Float64bits(ratio))
}

// TempoRatio returns the current tempo ratio clamped to a positive value.
func (t *Timeline) TempoRatio() float64 {
	ratio := math.Float64frombits(t.tempoRatio.Load())
	if ratio <= 0 {
		return 1
	}
	return ratio
}

// SetBeatsPerBar sets the time signature numerator. Non-positive values
// are ignored.
func (t *Timeline) SetBeatsPerBar(beats int) {
	if beats > 0 {
		t.beatsPerBar.Store(int32(beats))
	}
}

// BeatsPerBar returns the time signature numerator.
func (t *Timeline) BeatsPerBar() int {
	return int(t.beatsPerBar.Load())
}

// SetReferenceBPM sets the reference tempo. Non-positive values are
// ignored.
func (t *Timeline) SetReferenceBPM(bpm float64) {
	if bpm > 0 {
		t.referenceBPM.Store(math.Float64bits(bpm))
	}
}

// ReferenceBPM returns the reference tempo.
func (t *Timeline) ReferenceBPM() float64 {
	return math.Float64frombits(t.referenceBPM.Load())
}

// EffectiveTempo returns the reference tempo scaled by the tempo ratio.
func (t *Timeline) EffectiveTempo() float64 {
	return t.ReferenceBPM() * t.TempoRatio()
}

// Bar returns the 1-based bar index at the current position.
func (t *Timeline) Bar() int {
	return Bar(t.Elapsed(), t.ReferenceBPM(), t.BeatsPerBar())
}

// Beat returns the 1-based beat index within the current bar.
func (t *Timeline) Beat() int {
	return Beat(t.Elapsed(), t.ReferenceBPM(), t.BeatsPerBar())
}

// Label renders the current position the way the transport display shows
// it.
func (t *Timeline) Label() string {
	elapsed := t.Elapsed()
	return fmt.Sprintf("Bar: %d  Beat: %d  Time: %s",
		Bar(elapsed, t.ReferenceBPM(), t.BeatsPerBar()),
		Beat(elapsed, t.ReferenceBPM(), t.BeatsPerBar()),
		FormatTime(elapsed))
}

// Bar computes the 1-based bar index for elapsed seconds.
func Bar(elapsed, bpm float64, beatsPerBar int) int {
	secondsPerBar := 60 / bpm * float64(beatsPerBar)
	return int(elapsed/secondsPerBar) + 1
}

// Beat computes the 1-based beat index within the bar for elapsed
// seconds.
func Beat(elapsed, bpm float64, beatsPerBar int) int {
	secondsPerBeat := 60 / bpm
	return int(elapsed/secondsPerBeat)%beatsPerBar + 1
}

// FormatTime renders seconds as m:ss.mmm.
func FormatTime(seconds float64) string {
	mins := int(seconds) / 60
	secs := int(seconds) % 60
	millis := int(seconds*1000) % 1000
	return fmt.Sprintf("%d:%02d.%03d", mins, secs, millis)
}

// ParseTimeSignature extracts the beats-per-bar numerator from text of
// the form "N/D".
func ParseTimeSignature(text string) (int, error) {
	parts := strings.Split(text, "/")
	if len(parts) != 2 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeSignature, text)
	}
	top, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeSignature, text)
	}
	bottom, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeSignature, text)
	}
	if top <= 0 || bottom <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeSignature, text)
	}
	return top, nil
}
