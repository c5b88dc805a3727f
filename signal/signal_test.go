package signal_test

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jerryseigle/multitrack/signal"
)

func TestInterIntAsFloat64(t *testing.T) {
	tests := []struct {
		description string
		ints        signal.InterInt
		expected    signal.Float64
	}{
		{
			description: "stereo 16 bit",
			ints: signal.InterInt{
				Data:        []int{math.MaxInt16, math.MaxInt16, 0, 0},
				NumChannels: 2,
				BitDepth:    signal.BitDepth16,
			},
			expected: signal.Float64([][]float64{{1, 0}, {1, 0}}),
		},
		{
			description: "mono without bit depth",
			ints: signal.InterInt{
				Data:        []int{1, 2, 3},
				NumChannels: 1,
			},
			expected: signal.Float64([][]float64{{1, 2, 3}}),
		},
		{
			description: "nil data",
			ints:        signal.InterInt{NumChannels: 2},
			expected:    nil,
		},
	}

	for _, test := range tests {
		t.Log(test.description)
		assert.Equal(t, test.expected, test.ints.AsFloat64())
	}
}

func TestClear(t *testing.T) {
	buf := signal.Float64([][]float64{{1, 2}, {3, 4}})
	buf.Clear()
	assert.Equal(t, signal.EmptyFloat64(2, 2), buf)
}

func TestAccumulate(t *testing.T) {
	tests := []struct {
		description string
		gain        float64
		source      signal.Float64
		expected    signal.Float64
	}{
		{
			description: "unity gain",
			gain:        1,
			source:      signal.Float64([][]float64{{1, 1}, {0.5, 0.5}}),
			expected:    signal.Float64([][]float64{{1, 1}, {0.5, 0.5}}),
		},
		{
			description: "half gain",
			gain:        0.5,
			source:      signal.Float64([][]float64{{1, 1}, {1, 1}}),
			expected:    signal.Float64([][]float64{{0.5, 0.5}, {0.5, 0.5}}),
		},
		{
			description: "muted",
			gain:        0,
			source:      signal.Float64([][]float64{{1, 1}, {1, 1}}),
			expected:    signal.EmptyFloat64(2, 2),
		},
	}

	for _, test := range tests {
		t.Log(test.description)
		result := signal.EmptyFloat64(2, 2)
		result.Accumulate(test.source, test.gain)
		assert.Equal(t, test.expected, result)
	}
}

func TestAccumulateShortSource(t *testing.T) {
	result := signal.EmptyFloat64(2, 4)
	result.Accumulate(signal.Float64([][]float64{{1, 1}, {1, 1}}), 1)
	assert.Equal(t, signal.Float64([][]float64{{1, 1, 0, 0}, {1, 1, 0, 0}}), result)
}

func TestSlice(t *testing.T) {
	buf := signal.Float64([][]float64{{0, 1, 2, 3, 4}})
	assert.Equal(t, signal.Float64([][]float64{{1, 2}}), buf.Slice(1, 2))
	assert.Equal(t, signal.Float64([][]float64{{3, 4}}), buf.Slice(3, 5))
	assert.Nil(t, buf.Slice(5, 1))
	assert.Nil(t, buf.Slice(-1, 1))
}

func TestInterFloat32(t *testing.T) {
	buf := signal.Float64([][]float64{{1, 2}, {3, 4}})
	dst := make([]float32, 4)
	buf.InterFloat32(dst)
	assert.Equal(t, []float32{1, 3, 2, 4}, dst)
}

func TestLevels(t *testing.T) {
	buf := signal.Float64([][]float64{{0.5, -0.5, 0.5, -0.5}, {0, 0, 0, -1}})
	assert.InDelta(t, 0.5, buf.RMS(0), 1e-12)
	assert.InDelta(t, 0.5, buf.Peak(0), 1e-12)
	assert.InDelta(t, 1, buf.Peak(1), 1e-12)
	assert.Equal(t, float64(0), buf.RMS(2))
}

func TestDurationOf(t *testing.T) {
	assert.Equal(t, time.Second, signal.DurationOf(44100, 44100))
}
