// Package track implements the per-track playback model: an owned source,
// hot control parameters and the last rendered block used for metering.
package track

import (
	"math"
	"sync/atomic"

	"github.com/rs/xid"

	"github.com/jerryseigle/multitrack/signal"
	"github.com/jerryseigle/multitrack/source"
)

// Role routes a track into one of two stretch processors. It is assigned
// by the loader once and never changes afterwards.
type Role int

const (
	// RoleMelodic routes the track through the melodic processor.
	RoleMelodic Role = iota
	// RolePercussive routes the track through the percussive processor.
	RolePercussive
)

func (r Role) String() string {
	if r == RolePercussive {
		return "percussive"
	}
	return "melodic"
}

// Track owns a source and its playback state. Control parameters are
// independent atomics: they are written by control callbacks and read by
// the render thread, stale-by-one-block reads are fine.
type Track struct {
	id   string
	role Role
	src  source.Source

	gain    atomic.Uint64 // float64 bits
	muted   atomic.Bool
	loop    atomic.Bool
	queued  atomic.Bool
	playing atomic.Bool

	// two rotating render blocks, the published one is read-only
	blocks [2]signal.Float64
	active int
	last   atomic.Value // signal.Float64
}

// New returns a new track over provided source with a generated id.
func New(role Role, src source.Source) *Track {
	t := &Track{
		id:   xid.New().String(),
		role: role,
		src:  src,
	}
	t.gain.Store(math.Float64bits(1))
	return t
}

// ID returns the stable track id used by the control surface.
func (t *Track) ID() string {
	return t.id
}

// Role returns the routing role.
func (t *Track) Role() Role {
	return t.role
}

// Source returns the owned source.
func (t *Track) Source() source.Source {
	return t.src
}

// SetGain sets track gain clamped to [0, 1].
func (t *Track) SetGain(gain float64) {
	if gain < 0 {
		gain = 0
	}
	if gain > 1 {
		gain = 1
	}
	t.gain.Store(math.Float64bits(gain))
}

// Gain returns current track gain.
func (t *Track) Gain() float64 {
	return math.Float64frombits(t.gain.Load())
}

// SetMuted mutes or unmutes the track.
func (t *Track) SetMuted(muted bool) {
	t.muted.Store(muted)
}

// Muted reports whether the track is muted.
func (t *Track) Muted() bool {
	return t.muted.Load()
}

// EffectiveGain returns gain with mute applied.
func (t *Track) EffectiveGain() float64 {
	if t.Muted() {
		return 0
	}
	return t.Gain()
}

// SetLoop toggles looping on the track and its source. Disabling looping
// flushes the pending loop offset by re-seeking to the current position.
func (t *Track) SetLoop(loop bool) {
	if !loop {
		t.src.SetPosition(t.src.Position())
	}
	t.loop.Store(loop)
	t.src.SetLooping(loop)
}

// Loop reports whether looping is enabled.
func (t *Track) Loop() bool {
	return t.loop.Load()
}

// SetQueued flags the track to start at the next bar boundary.
func (t *Track) SetQueued(queued bool) {
	t.queued.Store(queued)
}

// Queued reports whether the track waits for a bar boundary.
func (t *Track) Queued() bool {
	return t.queued.Load()
}

// Start begins playback honoring the loop flag.
func (t *Track) Start() {
	t.src.SetLooping(t.Loop())
	t.playing.Store(true)
}

// Pause stops playback retaining the position.
func (t *Track) Pause() {
	t.playing.Store(false)
}

// Reset stops playback, rewinds the source and drops the queued flag.
func (t *Track) Reset() {
	t.playing.Store(false)
	t.queued.Store(false)
	t.src.SetPosition(0)
}

// Playing reports whether the track produces audio.
func (t *Track) Playing() bool {
	return t.playing.Load()
}

// PrepareRender allocates both render blocks. Must be called before the
// first ReadBlock, render calls themselves do not allocate.
func (t *Track) PrepareRender(numChannels, bufferSize int) {
	t.blocks[0] = signal.EmptyFloat64(numChannels, bufferSize)
	t.blocks[1] = signal.EmptyFloat64(numChannels, bufferSize)
	t.active = 0
}

// ReadBlock pulls the next block from the source into a rotating buffer
// and publishes it for metering. A stopped track yields silence and does
// not advance the source. Render thread only.
func (t *Track) ReadBlock() signal.Float64 {
	block := t.blocks[t.active]
	if block == nil {
		return nil
	}
	if t.Playing() {
		t.src.Read(block)
	} else {
		block.Clear()
	}
	t.last.Store(block)
	t.active = 1 - t.active
	return block
}

// LastBlock returns the most recently rendered block or nil before the
// first render.
func (t *Track) LastBlock() signal.Float64 {
	if b, ok := t.last.Load().(signal.Float64); ok {
		return b
	}
	return nil
}

// RMS returns the channel-averaged RMS level of the last rendered block
// in linear amplitude.
func (t *Track) RMS() float64 {
	block := t.LastBlock()
	if block.NumChannels() == 0 {
		return 0
	}
	var sum float64
	for ch := range block {
		sum += block.RMS(ch)
	}
	return sum / float64(block.NumChannels())
}

// Peak returns the peak level of the last rendered block across channels
// in linear amplitude.
func (t *Track) Peak() float64 {
	block := t.LastBlock()
	var peak float64
	for ch := range block {
		if p := block.Peak(ch); p > peak {
			peak = p
		}
	}
	return peak
}
