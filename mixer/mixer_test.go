package mixer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jerryseigle/multitrack/mixer"
	"github.com/jerryseigle/multitrack/signal"
	"github.com/jerryseigle/multitrack/source"
	"github.com/jerryseigle/multitrack/track"
)

type trackConfig struct {
	role  track.Role
	value float64
	gain  float64
	muted bool
}

func TestMixInto(t *testing.T) {
	tests := []struct {
		description string
		tracks      []trackConfig
		role        track.Role
		expected    signal.Float64
	}{
		{
			description: "two matching tracks",
			tracks: []trackConfig{
				{role: track.RoleMelodic, value: 0.5, gain: 1},
				{role: track.RoleMelodic, value: 0.25, gain: 1},
			},
			role:     track.RoleMelodic,
			expected: signal.Float64([][]float64{{0.75, 0.75}, {0.75, 0.75}}),
		},
		{
			description: "role routing is disjoint",
			tracks: []trackConfig{
				{role: track.RolePercussive, value: 1, gain: 1},
				{role: track.RoleMelodic, value: 0.25, gain: 1},
			},
			role:     track.RoleMelodic,
			expected: signal.Float64([][]float64{{0.25, 0.25}, {0.25, 0.25}}),
		},
		{
			description: "gain applied",
			tracks: []trackConfig{
				{role: track.RoleMelodic, value: 1, gain: 0.5},
			},
			role:     track.RoleMelodic,
			expected: signal.Float64([][]float64{{0.5, 0.5}, {0.5, 0.5}}),
		},
		{
			description: "muted track contributes silence",
			tracks: []trackConfig{
				{role: track.RoleMelodic, value: 1, gain: 1, muted: true},
				{role: track.RoleMelodic, value: 0.25, gain: 1},
			},
			role:     track.RoleMelodic,
			expected: signal.Float64([][]float64{{0.25, 0.25}, {0.25, 0.25}}),
		},
		{
			description: "no matching tracks keeps output silent",
			tracks: []trackConfig{
				{role: track.RoleMelodic, value: 1, gain: 1},
			},
			role:     track.RolePercussive,
			expected: signal.EmptyFloat64(2, 2),
		},
	}

	for _, test := range tests {
		t.Log(test.description)
		registry := track.NewRegistry()
		for _, cfg := range test.tracks {
			data := signal.Float64([][]float64{
				{cfg.value, cfg.value},
				{cfg.value, cfg.value},
			})
			tr := track.New(cfg.role, source.NewMem(data, 44100))
			tr.SetGain(cfg.gain)
			tr.SetMuted(cfg.muted)
			tr.PrepareRender(2, 2)
			tr.Start()
			registry.Add(tr)
		}
		m := mixer.New(registry)
		out := signal.Float64([][]float64{{1, 1}, {1, 1}}) // dirty buffer must be cleared
		m.MixInto(mixer.ByRole(test.role), out)
		assert.Equal(t, test.expected, out)
	}
}

func TestMixPublishesMeterBlock(t *testing.T) {
	registry := track.NewRegistry()
	data := signal.Float64([][]float64{{0.5, 0.5}})
	tr := track.New(track.RoleMelodic, source.NewMem(data, 44100))
	tr.SetGain(0.1)
	tr.PrepareRender(1, 2)
	tr.Start()
	registry.Add(tr)

	out := signal.EmptyFloat64(1, 2)
	mixer.New(registry).MixInto(mixer.ByRole(track.RoleMelodic), out)

	// meter block is pre-gain
	assert.Equal(t, signal.Float64([][]float64{{0.5, 0.5}}), tr.LastBlock())
	assert.Equal(t, signal.Float64([][]float64{{0.05, 0.05}}), out)
}
