//go:build portaudio

package portaudio_test

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jerryseigle/multitrack"
	"github.com/jerryseigle/multitrack/portaudio"
	"github.com/jerryseigle/multitrack/signal"
	"github.com/jerryseigle/multitrack/source"
	"github.com/jerryseigle/multitrack/track"
)

// plays half a second of a 440 Hz tone through the default device
func TestPlayer(t *testing.T) {
	const sampleRate = 44100
	data := signal.EmptyFloat64(2, sampleRate/2)
	for i := range data[0] {
		s := 0.2 * sine(440, i, sampleRate)
		data[0][i] = s
		data[1][i] = s
	}

	e := multitrack.New(multitrack.WithName("portaudio-test"))
	defer e.Close()
	e.AddTrack(track.RoleMelodic, source.NewMem(data, sampleRate))
	require.NoError(t, e.Prepare(sampleRate, 512))
	e.Play()

	p := portaudio.NewPlayer(e)
	require.NoError(t, p.Start())
	time.Sleep(time.Second / 2)
	require.NoError(t, p.Stop())
}

func sine(freq float64, i, sampleRate int) float64 {
	return math.Sin(2 * math.Pi * freq * float64(i) / float64(sampleRate))
}
