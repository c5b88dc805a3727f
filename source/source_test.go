package source_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jerryseigle/multitrack/signal"
	"github.com/jerryseigle/multitrack/source"
)

func TestMemRead(t *testing.T) {
	tests := []struct {
		description string
		data        signal.Float64
		looping     bool
		position    int64
		expected    signal.Float64
		read        int
	}{
		{
			description: "full read",
			data:        signal.Float64([][]float64{{1, 2, 3, 4}}),
			expected:    signal.Float64([][]float64{{1, 2, 3, 4}}),
			read:        4,
		},
		{
			description: "silence padding without looping",
			data:        signal.Float64([][]float64{{1, 2}}),
			expected:    signal.Float64([][]float64{{1, 2, 0, 0}}),
			read:        2,
		},
		{
			description: "wrap with looping",
			data:        signal.Float64([][]float64{{1, 2, 3}}),
			looping:     true,
			expected:    signal.Float64([][]float64{{1, 2, 3, 1}}),
			read:        4,
		},
		{
			description: "read from position",
			data:        signal.Float64([][]float64{{1, 2, 3, 4, 5, 6}}),
			position:    2,
			expected:    signal.Float64([][]float64{{3, 4, 5, 6}}),
			read:        4,
		},
	}

	for _, test := range tests {
		t.Log(test.description)
		s := source.NewMem(test.data, 44100)
		s.SetLooping(test.looping)
		s.SetPosition(test.position)
		dst := signal.EmptyFloat64(1, 4)
		n := s.Read(dst)
		assert.Equal(t, test.read, n)
		assert.Equal(t, test.expected, dst)
	}
}

func TestMemMonoToStereo(t *testing.T) {
	s := source.NewMem(signal.Float64([][]float64{{1, 2}}), 44100)
	dst := signal.EmptyFloat64(2, 2)
	s.Read(dst)
	assert.Equal(t, signal.Float64([][]float64{{1, 2}, {1, 2}}), dst)
}

func TestMemPosition(t *testing.T) {
	s := source.NewMem(signal.Float64([][]float64{{1, 2, 3, 4}}), 44100)
	assert.Equal(t, int64(4), s.Length())

	dst := signal.EmptyFloat64(1, 2)
	s.Read(dst)
	assert.Equal(t, int64(2), s.Position())

	s.SetPosition(-1)
	assert.Equal(t, int64(0), s.Position())
}

func TestMemEmpty(t *testing.T) {
	s := source.NewMem(nil, 44100)
	dst := signal.Float64([][]float64{{1, 1}})
	assert.Equal(t, 0, s.Read(dst))
	assert.Equal(t, signal.EmptyFloat64(1, 2), dst)
}
