// Package signal provides an API to manipulate digital signals. It allows to:
//	- convert interleaved data to non-interleaved
//	- convert bit depth for int signals
//	- clear, copy and accumulate sample blocks without allocations
package signal

import (
	"math"
	"time"
)

// Float64 is a non-interleaved float64 signal.
type Float64 [][]float64

const (
	// BitDepth8 is 8 bit depth.
	BitDepth8 = BitDepth(8)
	// BitDepth16 is 16 bit depth.
	BitDepth16 = BitDepth(16)
	// BitDepth24 is 24 bit depth.
	BitDepth24 = BitDepth(24)
	// BitDepth32 is 32 bit depth.
	BitDepth32 = BitDepth(32)
)

// InterInt is an interleaved int signal.
type InterInt struct {
	Data        []int
	NumChannels int
	BitDepth
}

// BitDepth contains values required for int-to-float and backward conversion.
type BitDepth int

// devider is used when int to float conversion is done.
func (bitDepth BitDepth) devider() int {
	switch bitDepth {
	case BitDepth8:
		return math.MaxInt8
	case BitDepth16:
		return math.MaxInt16
	case BitDepth24:
		return 1<<23 - 1
	case BitDepth32:
		return math.MaxInt32
	default:
		return 1
	}
}

// DurationOf returns time duration of passed samples for this sample rate.
func DurationOf(sampleRate int, samples int64) time.Duration {
	return time.Duration(float64(samples) / float64(sampleRate) * float64(time.Second))
}

// AsFloat64 converts interleaved int signal to float64.
func (ints InterInt) AsFloat64() Float64 {
	if ints.Data == nil || ints.NumChannels == 0 {
		return nil
	}
	floats := make([][]float64, ints.NumChannels)
	bufSize := int(math.Ceil(float64(len(ints.Data)) / float64(ints.NumChannels)))

	// determine the devider for bit depth conversion
	devider := float64(ints.BitDepth.devider())

	for i := range floats {
		floats[i] = make([]float64, bufSize)
		pos := 0
		for j := i; j < len(ints.Data); j = j + ints.NumChannels {
			floats[i][pos] = float64(ints.Data[j]) / devider
			pos++
		}
	}
	return floats
}

// EmptyFloat64 returns an empty buffer of specified dimentions.
func EmptyFloat64(numChannels int, bufferSize int) Float64 {
	result := make([][]float64, numChannels)
	for i := range result {
		result[i] = make([]float64, bufferSize)
	}
	return result
}

// NumChannels returns number of channels in this sample slice.
func (floats Float64) NumChannels() int {
	return len(floats)
}

// Size returns number of samples in single channel of this sample slice.
func (floats Float64) Size() int {
	if floats.NumChannels() == 0 {
		return 0
	}
	return len(floats[0])
}

// Clear sets all samples to zero. The buffer is reused, not reallocated.
func (floats Float64) Clear() {
	for i := range floats {
		for j := range floats[i] {
			floats[i][j] = 0
		}
	}
}

// CopyFrom copies samples from the source into this buffer. Copy size is
// limited by the smaller of two buffers.
func (floats Float64) CopyFrom(source Float64) {
	for i := 0; i < len(floats) && i < len(source); i++ {
		copy(floats[i], source[i])
	}
}

// Accumulate adds source samples multiplied by gain into this buffer.
// Channels and samples beyond this buffer's dimensions are ignored.
func (floats Float64) Accumulate(source Float64, gain float64) {
	for i := 0; i < len(floats) && i < len(source); i++ {
		n := len(floats[i])
		if len(source[i]) < n {
			n = len(source[i])
		}
		for j := 0; j < n; j++ {
			floats[i][j] += source[i][j] * gain
		}
	}
}

// Append buffers set to existing one.
// New buffer is returned if floats is nil.
func (floats Float64) Append(source Float64) Float64 {
	if floats == nil {
		floats = make([][]float64, source.NumChannels())
		for i := range floats {
			floats[i] = make([]float64, 0, source.Size())
		}
	}
	for i := range source {
		floats[i] = append(floats[i], source[i]...)
	}
	return floats
}

// Slice creates a new copy of buffer from start position with defined legth.
// If buffer doesn't have enough samples - shorten block is returned.
//
// if start >= buffer size, nil is returned
// if start + len >= buffer size, len is decreased till the end of slice
// if start < 0, nil is returned
func (floats Float64) Slice(start int, len int) Float64 {
	if floats == nil || start >= floats.Size() || start < 0 {
		return nil
	}
	end := start + len
	result := make([][]float64, floats.NumChannels())
	for i := range floats {
		if end > floats.Size() {
			end = floats.Size()
		}
		result[i] = append(result[i], floats[i][start:end]...)
	}
	return result
}

// InterFloat32 writes this buffer into an interleaved float32 slice.
// The destination must have room for NumChannels×Size values.
func (floats Float64) InterFloat32(dst []float32) {
	numChannels := floats.NumChannels()
	for i := 0; i < floats.Size(); i++ {
		for j := 0; j < numChannels; j++ {
			dst[i*numChannels+j] = float32(floats[j][i])
		}
	}
}

// RMS returns the root mean square of a single channel in linear amplitude.
func (floats Float64) RMS(channel int) float64 {
	if channel >= floats.NumChannels() || floats.Size() == 0 {
		return 0
	}
	var sum float64
	for _, s := range floats[channel] {
		sum += s * s
	}
	return math.Sqrt(sum / float64(len(floats[channel])))
}

// Peak returns the absolute peak of a single channel in linear amplitude.
func (floats Float64) Peak(channel int) float64 {
	if channel >= floats.NumChannels() {
		return 0
	}
	var peak float64
	for _, s := range floats[channel] {
		if a := math.Abs(s); a > peak {
			peak = a
		}
	}
	return peak
}
