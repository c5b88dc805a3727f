package stretch

import (
	"math"
)

// stretcher is a streaming WSOLA time/pitch engine. Audio is fed in
// arbitrary chunks with feed, stretched grains are overlap-added with a
// Hann window and normalized by the accumulated window sum, finished
// samples are buffered until retrieved. Pitch shifting is a linear
// resampler placed before or after the stretch stage depending on the
// formant mode.
//
// All methods are render-thread only.
type stretcher struct {
	channels int
	win      int // grain size
	hop      int // synthesis hop, win/2 for Hann COLA
	tol      int // alignment search tolerance
	window   []float64

	timeRatio  float64
	pitchScale float64
	formant    FormantMode

	// analysis state
	in        [][]float64 // pending input
	inBase    int64       // absolute index of in[ch][0]
	natural   float64     // absolute natural position of the next grain
	prevStart int64       // absolute chosen start of the previous grain
	started   bool

	// synthesis state, index 0 is the next sample to finalize
	synth   [][]float64
	wsum    []float64
	writeAt int

	resamp resampler

	// ready output
	out [][]float64
}

func newStretcher(sampleRate, channels int) *stretcher {
	scale := (sampleRate + 48000 - 1) / 48000
	if scale < 1 {
		scale = 1
	}
	win := 2048 * scale
	s := &stretcher{
		channels:   channels,
		win:        win,
		hop:        win / 2,
		tol:        win / 16,
		window:     hann(win),
		timeRatio:  1,
		pitchScale: 1,
		in:         make([][]float64, channels),
		synth:      make([][]float64, channels),
		out:        make([][]float64, channels),
	}
	s.resamp = newResampler(channels)
	return s
}

// hann returns a periodic Hann window, its shifts by win/2 sum to one.
func hann(win int) []float64 {
	w := make([]float64, win)
	for i := range w {
		w[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(win)))
	}
	return w
}

func (s *stretcher) setTimeRatio(ratio float64) {
	if ratio <= 0 {
		ratio = 1
	}
	s.timeRatio = ratio
}

func (s *stretcher) setPitchScale(scale float64) {
	if scale <= 0 {
		scale = 1
	}
	s.pitchScale = scale
}

func (s *stretcher) setFormant(mode FormantMode) {
	if s.formant != mode {
		s.formant = mode
		s.resamp.reset()
	}
}

// stretchFactor is the duration factor the overlap-add stage runs at.
// timeRatio is a playback-speed multiplier, so the target net duration
// is 1/timeRatio; the pitch resampler divides duration by pitchScale,
// and the stage compensates to keep the net there.
func (s *stretcher) stretchFactor() float64 {
	return s.pitchScale / s.timeRatio
}

// feed appends an input chunk and produces every grain it completes.
func (s *stretcher) feed(input [][]float64) {
	if s.formant == FormantPreserved && s.pitchScale != 1 {
		// pitch shift on the input side keeps grain envelopes intact
		shifted := s.resamp.process(input, s.pitchScale)
		for ch := 0; ch < s.channels; ch++ {
			s.in[ch] = append(s.in[ch], shifted[ch]...)
		}
	} else {
		for ch := 0; ch < s.channels; ch++ {
			s.in[ch] = append(s.in[ch], input[ch]...)
		}
	}
	for s.grainReady() {
		s.produceGrain()
	}
	s.dropConsumedInput()
}

// grainReady reports whether enough input is pending for the next grain
// including the alignment search range.
func (s *stretcher) grainReady() bool {
	if len(s.in) == 0 || len(s.in[0]) == 0 {
		return false
	}
	end := int64(math.Ceil(s.natural)) + int64(s.tol) + int64(s.win) + 1
	return end <= s.inBase+int64(len(s.in[0]))
}

// produceGrain picks the best aligned grain around the natural position,
// overlap-adds it and finalizes every fully summed sample.
func (s *stretcher) produceGrain() {
	start := s.chooseStart()

	// overlap-add the windowed grain
	need := s.writeAt + s.win
	for ch := 0; ch < s.channels; ch++ {
		for len(s.synth[ch]) < need {
			s.synth[ch] = append(s.synth[ch], 0)
		}
		src := s.in[ch][start-s.inBase:]
		for i := 0; i < s.win; i++ {
			s.synth[ch][s.writeAt+i] += src[i] * s.window[i]
		}
	}
	for len(s.wsum) < need {
		s.wsum = append(s.wsum, 0)
	}
	for i := 0; i < s.win; i++ {
		s.wsum[s.writeAt+i] += s.window[i]
	}

	s.prevStart = start
	s.started = true
	s.natural += float64(s.hop) / s.stretchFactor()

	// samples before the grain start receive no further contributions
	s.finalize(s.writeAt)
	s.writeAt += s.hop
}

// chooseStart searches ±tol around the natural position for the offset
// best matching the continuation of the previous grain.
func (s *stretcher) chooseStart() int64 {
	natural := int64(math.Round(s.natural))
	if natural < s.inBase {
		natural = s.inBase
	}
	if !s.started || s.stretchFactor() == 1 {
		return natural
	}
	template := s.prevStart + int64(s.hop)
	if template < s.inBase || template+int64(s.hop) > s.inBase+int64(len(s.in[0])) {
		return natural
	}

	lo := natural - int64(s.tol)
	if lo < s.inBase {
		lo = s.inBase
	}
	hi := natural + int64(s.tol)
	if max := s.inBase + int64(len(s.in[0])) - int64(s.win); hi > max {
		hi = max
	}

	best := natural
	bestScore := math.Inf(-1)
	ref := s.in[0][template-s.inBase : template-s.inBase+int64(s.hop)]
	for c := lo; c <= hi; c++ {
		cand := s.in[0][c-s.inBase : c-s.inBase+int64(s.hop)]
		var score float64
		for i := range ref {
			score += ref[i] * cand[i]
		}
		if score > bestScore {
			bestScore = score
			best = c
		}
	}
	return best
}

// finalize normalizes n leading samples of the accumulator and moves them
// to the output, through the pitch resampler in shifted mode.
func (s *stretcher) finalize(n int) {
	if n <= 0 {
		return
	}
	block := make([][]float64, s.channels)
	for ch := 0; ch < s.channels; ch++ {
		block[ch] = make([]float64, n)
		for i := 0; i < n; i++ {
			w := s.wsum[i]
			if w > 1e-9 {
				block[ch][i] = s.synth[ch][i] / w
			}
		}
		s.synth[ch] = s.synth[ch][:copy(s.synth[ch], s.synth[ch][n:])]
	}
	s.wsum = s.wsum[:copy(s.wsum, s.wsum[n:])]
	s.writeAt -= n

	if s.formant != FormantPreserved && s.pitchScale != 1 {
		block = s.resamp.process(block, s.pitchScale)
	}
	for ch := 0; ch < s.channels; ch++ {
		s.out[ch] = append(s.out[ch], block[ch]...)
	}
}

// dropConsumedInput trims input that no future grain or search can reach.
func (s *stretcher) dropConsumedInput() {
	keepFrom := int64(math.Floor(s.natural)) - int64(s.tol)
	if s.started && s.prevStart < keepFrom {
		keepFrom = s.prevStart
	}
	drop := keepFrom - s.inBase
	if drop <= 0 {
		return
	}
	for ch := 0; ch < s.channels; ch++ {
		s.in[ch] = s.in[ch][:copy(s.in[ch], s.in[ch][drop:])]
	}
	s.inBase += drop
}

// available returns the number of finished output samples.
func (s *stretcher) available() int {
	if len(s.out) == 0 {
		return 0
	}
	return len(s.out[0])
}

// retrieve pops up to dst-size samples into dst and returns the count.
func (s *stretcher) retrieve(dst [][]float64) int {
	if len(dst) == 0 || s.available() == 0 {
		return 0
	}
	n := len(dst[0])
	if avail := s.available(); avail < n {
		n = avail
	}
	for ch := 0; ch < s.channels && ch < len(dst); ch++ {
		copy(dst[ch], s.out[ch][:n])
		s.out[ch] = s.out[ch][:copy(s.out[ch], s.out[ch][n:])]
	}
	return n
}

// resampler is a streaming linear interpolator shared by both formant
// modes. Reading with step>1 shortens the signal and raises its pitch.
type resampler struct {
	channels int
	pos      float64
	last     []float64
	primed   bool
}

func newResampler(channels int) resampler {
	return resampler{
		channels: channels,
		last:     make([]float64, channels),
	}
}

func (r *resampler) reset() {
	r.pos = 0
	r.primed = false
	for i := range r.last {
		r.last[i] = 0
	}
}

// process resamples the chunk reading at provided step. The last input
// sample is carried over so chunk boundaries interpolate seamlessly.
func (r *resampler) process(in [][]float64, step float64) [][]float64 {
	size := 0
	if len(in) > 0 {
		size = len(in[0])
	}
	out := make([][]float64, r.channels)
	if size == 0 {
		return out
	}
	if !r.primed {
		for ch := range r.last {
			r.last[ch] = in[ch][0]
		}
		r.primed = true
	}
	// position -1 is the carried sample, positions [0, size) are the chunk
	for r.pos < float64(size-1) {
		idx := int(math.Floor(r.pos))
		frac := r.pos - float64(idx)
		for ch := 0; ch < r.channels; ch++ {
			var s0 float64
			if idx < 0 {
				s0 = r.last[ch]
			} else {
				s0 = in[ch][idx]
			}
			s1 := in[ch][idx+1]
			out[ch] = append(out[ch], s0+(s1-s0)*frac)
		}
		r.pos += step
	}
	for ch := 0; ch < r.channels; ch++ {
		r.last[ch] = in[ch][size-1]
	}
	r.pos -= float64(size)
	return out
}
