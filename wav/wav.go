// Package wav loads wav files into in-memory sources.
package wav

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/jerryseigle/multitrack/signal"
	"github.com/jerryseigle/multitrack/source"
)

// ErrInvalidFile is returned when the file is not a readable wav.
var ErrInvalidFile = errors.New("wav is not valid")

// ErrUnsupportedBitDepth is returned when unsupported bit depth is used.
var ErrUnsupportedBitDepth = errors.New("only 8, 16, 24 and 32 bit depth is supported")

// loadBufferSize is the number of samples decoded per iteration.
const loadBufferSize = 4096

// Load decodes a whole wav file into an in-memory source at the file's
// own sample rate.
func Load(path string) (*source.Mem, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return Decode(file)
}

// Decode decodes a whole wav stream into an in-memory source.
func Decode(file *os.File) (*source.Mem, error) {
	decoder := wav.NewDecoder(file)
	if !decoder.IsValidFile() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidFile, file.Name())
	}
	bitDepth := signal.BitDepth(decoder.BitDepth)
	switch bitDepth {
	case signal.BitDepth8, signal.BitDepth16, signal.BitDepth24, signal.BitDepth32:
	default:
		return nil, fmt.Errorf("%w: got %d bit", ErrUnsupportedBitDepth, decoder.BitDepth)
	}

	numChannels := decoder.Format().NumChannels
	sampleRate := int(decoder.SampleRate)
	ib := &audio.IntBuffer{
		Format:         decoder.Format(),
		Data:           make([]int, loadBufferSize*numChannels),
		SourceBitDepth: int(decoder.BitDepth),
	}

	var data signal.Float64
	for {
		read, err := decoder.PCMBuffer(ib)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", file.Name(), err)
		}
		if read == 0 {
			break
		}
		chunk := signal.InterInt{
			Data:        ib.Data[:read],
			NumChannels: numChannels,
			BitDepth:    bitDepth,
		}.AsFloat64()
		data = data.Append(chunk)
	}
	return source.NewMem(data, sampleRate), nil
}
