// Package source provides pull-based audio sample sources for tracks.
package source

import (
	"sync/atomic"

	"github.com/jerryseigle/multitrack/signal"
)

// Source is a pull-based reader of audio samples. Implementations must be
// safe to call from the render thread: Read never blocks and never
// allocates, it fills the destination with best effort and pads the rest
// with silence.
type Source interface {
	// Read fills dst starting at the current position and advances it.
	// Returns the number of samples actually read from the underlying data.
	// When looping is enabled an exhausted source wraps to the beginning,
	// otherwise the remainder of dst is silence.
	Read(dst signal.Float64) int
	// SetLooping enables or disables wrapping on exhaustion.
	SetLooping(looping bool)
	// Looping reports whether wrapping is enabled.
	Looping() bool
	// SetPosition seeks to an absolute sample index.
	SetPosition(position int64)
	// Position returns the current sample index.
	Position() int64
	// Length returns the total number of samples per channel.
	Length() int64
}

// Mem is a Source that holds all samples in memory.
type Mem struct {
	data       signal.Float64
	sampleRate int

	position atomic.Int64
	looping  atomic.Bool
}

// NewMem returns a new in-memory source over provided samples.
func NewMem(data signal.Float64, sampleRate int) *Mem {
	return &Mem{
		data:       data,
		sampleRate: sampleRate,
	}
}

// SampleRate returns the sample rate the data was decoded at.
func (m *Mem) SampleRate() int {
	return m.sampleRate
}

// Read implements Source.
func (m *Mem) Read(dst signal.Float64) int {
	length := m.Length()
	if length == 0 {
		dst.Clear()
		return 0
	}
	pos := m.position.Load()
	looping := m.looping.Load()
	read := 0
	size := dst.Size()
	for i := 0; i < size; i++ {
		if pos >= length {
			if !looping {
				break
			}
			pos = pos % length
		}
		for ch := range dst {
			dst[ch][i] = m.sample(ch, pos)
		}
		pos++
		read++
	}
	// pad the tail when the source is exhausted without looping
	for i := read; i < size; i++ {
		for ch := range dst {
			dst[ch][i] = 0
		}
	}
	m.position.Store(pos)
	return read
}

// sample maps destination channels onto source channels: a mono source
// feeds every destination channel, extra source channels are dropped.
func (m *Mem) sample(channel int, pos int64) float64 {
	if channel >= len(m.data) {
		channel = len(m.data) - 1
	}
	return m.data[channel][pos]
}

// SetLooping implements Source.
func (m *Mem) SetLooping(looping bool) {
	m.looping.Store(looping)
}

// Looping implements Source.
func (m *Mem) Looping() bool {
	return m.looping.Load()
}

// SetPosition implements Source.
func (m *Mem) SetPosition(position int64) {
	if position < 0 {
		position = 0
	}
	m.position.Store(position)
}

// Position implements Source.
func (m *Mem) Position() int64 {
	return m.position.Load()
}

// Length implements Source.
func (m *Mem) Length() int64 {
	if len(m.data) == 0 {
		return 0
	}
	return int64(len(m.data[0]))
}
