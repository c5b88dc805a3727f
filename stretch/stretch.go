// Package stretch implements real-time time-stretching and pitch-shifting
// of a pulled audio stream.
package stretch

import (
	"errors"
	"fmt"
	"math"
	"sync/atomic"

	"github.com/jerryseigle/multitrack/signal"
)

// FormantMode selects how pitch shifting treats the spectral envelope.
type FormantMode int

const (
	// FormantShifted moves formants together with the pitch.
	FormantShifted FormantMode = iota
	// FormantPreserved keeps the perceived timbre in place.
	FormantPreserved
)

// ErrInvalidConfig is returned by Prepare for an unusable sample rate or
// channel count.
var ErrInvalidConfig = errors.New("invalid stretcher configuration")

// ErrAlreadyPrepared is returned when Prepare is called twice.
var ErrAlreadyPrepared = errors.New("stretcher already prepared")

// ChunkSize is the fixed number of samples pulled from the input per
// feed iteration. Buffers handed to the pull callback are always exactly
// this size, so upstream scratch buffers must match it.
const ChunkSize = 1024

const (
	// safetyFactor keeps twice the requested output buffered before
	// extraction. It costs one extra block of latency and rides out
	// moments when the stretcher's instantaneous output rate lags.
	safetyFactor = 2
	// maxPulls bounds the feed loop within a single render call.
	maxPulls = 64
)

// PitchScale converts semitones to a frequency multiplier.
func PitchScale(semitones float64) float64 {
	return math.Pow(2, semitones/12)
}

// Processor wraps the streaming stretcher. Control setters may be called
// from any goroutine at any time, they take effect on the next render
// call. Prepare and Render belong to the render side.
type Processor struct {
	sampleRate int
	channels   int
	st         *stretcher
	chunk      signal.Float64

	pitch    atomic.Uint64 // semitones, float64 bits
	tempo    atomic.Uint64 // ratio, float64 bits
	formant  atomic.Bool   // true when preserved
	underrun atomic.Bool   // one-shot signal
}

// New returns an unprepared processor with neutral settings.
func New() *Processor {
	p := &Processor{}
	p.pitch.Store(math.Float64bits(0))
	p.tempo.Store(math.Float64bits(1))
	return p
}

// Prepare constructs the internal stretcher for a fixed sample rate and
// channel count. Must be called exactly once before rendering.
func (p *Processor) Prepare(sampleRate, numChannels int) error {
	if p.st != nil {
		return ErrAlreadyPrepared
	}
	if sampleRate <= 0 || numChannels <= 0 {
		return fmt.Errorf("%w: sample rate %d, channels %d", ErrInvalidConfig, sampleRate, numChannels)
	}
	p.sampleRate = sampleRate
	p.channels = numChannels
	p.st = newStretcher(sampleRate, numChannels)
	p.chunk = signal.EmptyFloat64(numChannels, ChunkSize)
	return nil
}

// SetPitchSemitones sets the pitch shift, 0 is neutral.
func (p *Processor) SetPitchSemitones(semitones float64) {
	p.pitch.Store(math.Float64bits(semitones))
}

// PitchSemitones returns the current pitch shift.
func (p *Processor) PitchSemitones() float64 {
	return math.Float64frombits(p.pitch.Load())
}

// SetTempoRatio sets the playback-speed multiplier, 1 is neutral: 2
// plays twice as fast and consumes twice the input per output sample.
// Values below or equal to zero are treated as 1 when applied.
func (p *Processor) SetTempoRatio(ratio float64) {
	p.tempo.Store(math.Float64bits(ratio))
}

// TempoRatio returns the current tempo ratio as set.
func (p *Processor) TempoRatio() float64 {
	return math.Float64frombits(p.tempo.Load())
}

// SetFormantPreserve toggles formant preservation. Takes effect on the
// next render call, already buffered audio is unaffected.
func (p *Processor) SetFormantPreserve(preserve bool) {
	p.formant.Store(preserve)
}

// Render produces exactly out-size samples of stretched audio. The pull
// callback fills a fixed-size chunk with fresh input on demand, it is
// invoked until enough output is buffered or the pull bound is hit. If
// the processor is not prepared, out is cleared and no input is pulled.
func (p *Processor) Render(pull func(signal.Float64), out signal.Float64) {
	if p.st == nil {
		out.Clear()
		return
	}
	p.st.setTimeRatio(p.TempoRatio())
	p.st.setPitchScale(PitchScale(p.PitchSemitones()))
	if p.formant.Load() {
		p.st.setFormant(FormantPreserved)
	} else {
		p.st.setFormant(FormantShifted)
	}

	need := out.Size() * safetyFactor
	for pulls := 0; p.st.available() < need && pulls < maxPulls; pulls++ {
		p.chunk.Clear()
		pull(p.chunk)
		p.st.feed(p.chunk)
	}

	n := p.st.retrieve(out)
	if n < out.Size() {
		for ch := range out {
			for i := n; i < len(out[ch]); i++ {
				out[ch][i] = 0
			}
		}
		p.underrun.Store(true)
	}
}

// Underrun pops the one-shot underrun signal raised when a render call
// could not buffer enough output and padded with silence.
func (p *Processor) Underrun() bool {
	return p.underrun.Swap(false)
}
