package timeline_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jerryseigle/multitrack/timeline"
)

func TestTickScalesByTempoRatio(t *testing.T) {
	tests := []struct {
		description string
		ratio       float64
		deltas      []float64
		elapsed     float64
	}{
		{
			description: "neutral ratio",
			ratio:       1,
			deltas:      []float64{0.5, 0.5},
			elapsed:     1,
		},
		{
			description: "double speed",
			ratio:       2,
			deltas:      []float64{0.5, 0.25},
			elapsed:     1.5,
		},
		{
			description: "half speed",
			ratio:       0.5,
			deltas:      []float64{1, 1},
			elapsed:     1,
		},
		{
			description: "non-positive ratio falls back to neutral",
			ratio:       -3,
			deltas:      []float64{0.4, 0.6},
			elapsed:     1,
		},
	}
	for _, test := range tests {
		t.Log(test.description)
		tl := timeline.New()
		tl.SetTempoRatio(test.ratio)
		tl.Start()
		for _, delta := range test.deltas {
			tl.Tick(delta)
		}
		assert.InDelta(t, test.elapsed, tl.Elapsed(), 1e-9)
	}
}

func TestTickIgnoredWhileStopped(t *testing.T) {
	tl := timeline.New()
	tl.Tick(1)
	assert.Zero(t, tl.Elapsed())

	tl.Start()
	tl.Tick(1)
	assert.InDelta(t, 1.0, tl.Elapsed(), 1e-9)

	tl.Stop()
	assert.Zero(t, tl.Elapsed(), "stop rewinds the clock")
	tl.Tick(1)
	assert.Zero(t, tl.Elapsed())
}

func TestTickStopConcurrent(t *testing.T) {
	tl := timeline.New()
	tl.Start()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 10000; i++ {
			tl.Tick(0.001)
		}
	}()
	time.Sleep(time.Millisecond)
	tl.Stop()
	<-done
	// a tick in flight during the stop must not resurrect the position
	assert.Zero(t, tl.Elapsed())
}

func TestBarBeatMath(t *testing.T) {
	tests := []struct {
		description string
		elapsed     float64
		bpm         float64
		beatsPerBar int
		bar         int
		beat        int
	}{
		{
			description: "origin is bar one beat one",
			elapsed:     0,
			bpm:         120,
			beatsPerBar: 4,
			bar:         1,
			beat:        1,
		},
		{
			description: "second beat of first bar",
			elapsed:     0.5,
			bpm:         120,
			beatsPerBar: 4,
			bar:         1,
			beat:        2,
		},
		{
			description: "wraps into second bar",
			elapsed:     2.0,
			bpm:         120,
			beatsPerBar: 4,
			bar:         2,
			beat:        1,
		},
		{
			description: "deep position",
			elapsed:     125.4,
			bpm:         120,
			beatsPerBar: 4,
			bar:         63,
			beat:        3,
		},
		{
			description: "waltz",
			elapsed:     1.5,
			bpm:         120,
			beatsPerBar: 3,
			bar:         2,
			beat:        1,
		},
	}
	for _, test := range tests {
		t.Log(test.description)
		assert.Equal(t, test.bar, timeline.Bar(test.elapsed, test.bpm, test.beatsPerBar))
		assert.Equal(t, test.beat, timeline.Beat(test.elapsed, test.bpm, test.beatsPerBar))
	}
}

func TestFormatTime(t *testing.T) {
	tests := []struct {
		seconds  float64
		expected string
	}{
		{seconds: 0, expected: "0:00.000"},
		{seconds: 125.4, expected: "2:05.400"},
		{seconds: 59.999, expected: "0:59.999"},
		{seconds: 61.25, expected: "1:01.250"},
	}
	for _, test := range tests {
		assert.Equal(t, test.expected, timeline.FormatTime(test.seconds))
	}
}

func TestLabel(t *testing.T) {
	tl := timeline.New()
	tl.Start()
	tl.Tick(125.4)
	assert.Equal(t, "Bar: 63  Beat: 3  Time: 2:05.400", tl.Label())
}

func TestEffectiveTempo(t *testing.T) {
	tl := timeline.New()
	assert.InDelta(t, 120.0, tl.EffectiveTempo(), 1e-9)

	tl.SetTempoRatio(1.5)
	assert.InDelta(t, 180.0, tl.EffectiveTempo(), 1e-9)

	tl.SetReferenceBPM(90)
	assert.InDelta(t, 135.0, tl.EffectiveTempo(), 1e-9)

	tl.SetTempoRatio(0)
	assert.InDelta(t, 90.0, tl.EffectiveTempo(), 1e-9, "non-positive ratio is neutral")
}

func TestParseTimeSignature(t *testing.T) {
	tests := []struct {
		description string
		text        string
		beats       int
		err         error
	}{
		{
			description: "common time",
			text:        "4/4",
			beats:       4,
		},
		{
			description: "waltz with spaces",
			text:        " 3 / 4 ",
			beats:       3,
		},
		{
			description: "compound",
			text:        "7/8",
			beats:       7,
		},
		{
			description: "missing denominator",
			text:        "4",
			err:         timeline.ErrInvalidTimeSignature,
		},
		{
			description: "not a number",
			text:        "x/4",
			err:         timeline.ErrInvalidTimeSignature,
		},
		{
			description: "zero numerator",
			text:        "0/4",
			err:         timeline.ErrInvalidTimeSignature,
		},
	}
	for _, test := range tests {
		t.Log(test.description)
		beats, err := timeline.ParseTimeSignature(test.text)
		if test.err != nil {
			assert.ErrorIs(t, err, test.err)
		} else {
			assert.NoError(t, err)
			assert.Equal(t, test.beats, beats)
		}
	}
}
