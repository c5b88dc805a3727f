// Package mixer sums a predicate-selected subset of tracks into a single
// output block.
package mixer

import (
	"github.com/jerryseigle/multitrack/signal"
	"github.com/jerryseigle/multitrack/track"
)

// Predicate selects tracks for a mix.
type Predicate func(*track.Track) bool

// ByRole returns a predicate matching tracks of provided role.
func ByRole(role track.Role) Predicate {
	return func(t *track.Track) bool {
		return t.Role() == role
	}
}

// Mixer sums tracks from a registry. It holds no per-mix state, so a
// single mixer serves both stretch processors within one render call.
type Mixer struct {
	registry *track.Registry
}

// New returns a mixer over provided registry.
func New(registry *track.Registry) *Mixer {
	return &Mixer{registry: registry}
}

// MixInto clears out, then pulls one block from every matching track,
// applies effective gain and accumulates it per channel. The pre-gain
// block stays published on the track for metering. Out is always fully
// populated: with no matching tracks it remains silent.
func (m *Mixer) MixInto(predicate Predicate, out signal.Float64) {
	out.Clear()
	for _, t := range m.registry.Tracks() {
		if !predicate(t) {
			continue
		}
		block := t.ReadBlock()
		if block == nil {
			continue
		}
		out.Accumulate(block, t.EffectiveGain())
	}
}
