// Package mp3 loads mp3 files into in-memory sources.
package mp3

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	mp3 "github.com/hajimehoshi/go-mp3"

	"github.com/jerryseigle/multitrack/signal"
	"github.com/jerryseigle/multitrack/source"
)

// the decoder always produces 16-bit stereo
const numChannels = 2

// Load decodes a whole mp3 file into an in-memory source at the file's
// own sample rate.
func Load(path string) (*source.Mem, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	d, err := mp3.NewDecoder(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	var (
		ints []int
		val  int16
	)
	for {
		if err := binary.Read(d, binary.LittleEndian, &val); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				break
			}
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
		ints = append(ints, int(val))
	}
	if len(ints)%numChannels == 1 {
		ints = append(ints, 0)
	}
	data := signal.InterInt{
		Data:        ints,
		NumChannels: numChannels,
		BitDepth:    signal.BitDepth16,
	}.AsFloat64()
	return source.NewMem(data, d.SampleRate()), nil
}
