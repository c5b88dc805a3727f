// Package multitrack assembles the playback engine: a registry of tracks
// mixed by role into two stretch processors, governed by a transport
// state machine and a musical timeline.
//
// The engine splits into two call surfaces. The render surface is
// RenderBlock, called from the audio callback, it never locks and never
// allocates. Everything else is the control surface and may be called
// from any goroutine.
package multitrack

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jerryseigle/multitrack/log"
	"github.com/jerryseigle/multitrack/metric"
	"github.com/jerryseigle/multitrack/mixer"
	"github.com/jerryseigle/multitrack/signal"
	"github.com/jerryseigle/multitrack/source"
	"github.com/jerryseigle/multitrack/stretch"
	"github.com/jerryseigle/multitrack/timeline"
	"github.com/jerryseigle/multitrack/track"
	"github.com/jerryseigle/multitrack/transport"
)

// NumChannels is the fixed channel count of the engine output.
const NumChannels = 2

// DefaultClockInterval is the period of the background timeline clock.
const DefaultClockInterval = 33 * time.Millisecond

// ErrUnknownTrack is returned when a control call addresses a track id
// that is not registered.
var ErrUnknownTrack = errors.New("unknown track")

// Engine is the multi-track playback engine.
type Engine struct {
	name   string
	logger log.Logger

	registry   *track.Registry
	mix        *mixer.Mixer
	percussive *stretch.Processor
	melodic    *stretch.Processor
	machine    *transport.Machine
	clock      *timeline.Timeline

	sampleRate int
	bufferSize int
	percBlock  signal.Float64
	melBlock   signal.Float64
	measure    metric.MeasureFunc

	clockOnce sync.Once
	closeOnce sync.Once
	done      chan struct{}
	wg        sync.WaitGroup
}

// Option configures the engine.
type Option func(*Engine)

// WithName sets the engine name used for metrics and logging.
func WithName(name string) Option {
	return func(e *Engine) {
		e.name = name
	}
}

// WithLogger overrides the default logger.
func WithLogger(logger log.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// New returns an engine with an empty track set, stopped transport and
// stopped timeline.
func New(options ...Option) *Engine {
	e := &Engine{
		name:       "engine",
		logger:     log.GetLogger(),
		registry:   track.NewRegistry(),
		percussive: stretch.New(),
		melodic:    stretch.New(),
		clock:      timeline.New(),
		done:       make(chan struct{}),
	}
	for _, option := range options {
		option(e)
	}
	e.mix = mixer.New(e.registry)
	e.machine = transport.New(trackController{e.registry}, e.logger)
	return e
}

// trackController adapts the registry to the transport side effects.
type trackController struct {
	registry *track.Registry
}

func (c trackController) StartAll() {
	c.registry.Each(func(t *track.Track) { t.Start() })
}

func (c trackController) PauseAll() {
	c.registry.Each(func(t *track.Track) { t.Pause() })
}

func (c trackController) ResetAll() {
	c.registry.Each(func(t *track.Track) { t.Reset() })
}

// AddTrack registers a source under provided role and returns the new
// track id. Tracks may be added before or after Prepare.
func (e *Engine) AddTrack(role track.Role, src source.Source) string {
	t := track.New(role, src)
	// scratch blocks match the chunk the stretch processors pull, so the
	// mixer fills every pulled chunk end to end
	t.PrepareRender(NumChannels, stretch.ChunkSize)
	id := e.registry.Add(t)
	e.logger.Info("added ", role, " track ", id)
	return id
}

// Prepare fixes the sample rate and block size and allocates all render
// buffers. Must be called once before the first RenderBlock.
func (e *Engine) Prepare(sampleRate, bufferSize int) error {
	if err := e.percussive.Prepare(sampleRate, NumChannels); err != nil {
		return fmt.Errorf("prepare percussive stretcher: %w", err)
	}
	if err := e.melodic.Prepare(sampleRate, NumChannels); err != nil {
		return fmt.Errorf("prepare melodic stretcher: %w", err)
	}
	e.sampleRate = sampleRate
	e.bufferSize = bufferSize
	e.percBlock = signal.EmptyFloat64(NumChannels, bufferSize)
	e.melBlock = signal.EmptyFloat64(NumChannels, bufferSize)
	e.registry.Each(func(t *track.Track) {
		t.PrepareRender(NumChannels, stretch.ChunkSize)
	})
	e.measure = metric.Meter(e.name, sampleRate)
	e.logger.Debug("prepared at ", sampleRate, " Hz, block ", bufferSize)
	return nil
}

// SampleRate returns the prepared sample rate, zero before Prepare.
func (e *Engine) SampleRate() int {
	return e.sampleRate
}

// BufferSize returns the prepared block size, zero before Prepare.
func (e *Engine) BufferSize() int {
	return e.bufferSize
}

// RenderBlock fully populates out with the next block of audio. Unless
// the transport is playing the block is silence. Render thread only.
func (e *Engine) RenderBlock(out signal.Float64) {
	if e.machine.State() != transport.Playing || e.bufferSize == 0 {
		out.Clear()
		return
	}
	e.percussive.Render(e.pullPercussive, e.percBlock)
	e.melodic.Render(e.pullMelodic, e.melBlock)
	out.Clear()
	out.Accumulate(e.percBlock, 1)
	out.Accumulate(e.melBlock, 1)

	percussiveUnderrun := e.percussive.Underrun()
	melodicUnderrun := e.melodic.Underrun()
	if percussiveUnderrun || melodicUnderrun {
		metric.Underrun(e.name)
	}
	e.measure(int64(out.Size()))
}

func (e *Engine) pullPercussive(chunk signal.Float64) {
	e.mix.MixInto(mixer.ByRole(track.RolePercussive), chunk)
}

func (e *Engine) pullMelodic(chunk signal.Float64) {
	e.mix.MixInto(mixer.ByRole(track.RoleMelodic), chunk)
}

// Play starts playback of all tracks. Redundant while playing.
func (e *Engine) Play() {
	e.machine.Play()
}

// Pause pauses playback retaining track positions.
func (e *Engine) Pause() {
	e.machine.Pause()
}

// Stop stops playback and rewinds all tracks.
func (e *Engine) Stop() {
	e.machine.Stop()
}

// Toggle pauses when playing and plays otherwise.
func (e *Engine) Toggle() {
	e.machine.Toggle()
}

// State returns the settled transport state.
func (e *Engine) State() transport.State {
	return e.machine.State()
}

// SetPitchSemitones shifts the pitch of both processors, 0 is neutral.
func (e *Engine) SetPitchSemitones(semitones float64) {
	e.percussive.SetPitchSemitones(semitones)
	e.melodic.SetPitchSemitones(semitones)
}

// SetTempoRatio scales playback speed and the timeline together, 1 is
// neutral.
func (e *Engine) SetTempoRatio(ratio float64) {
	e.percussive.SetTempoRatio(ratio)
	e.melodic.SetTempoRatio(ratio)
	e.clock.SetTempoRatio(ratio)
}

// SetFormantPreserve toggles formant preservation on both processors.
func (e *Engine) SetFormantPreserve(preserve bool) {
	e.percussive.SetFormantPreserve(preserve)
	e.melodic.SetFormantPreserve(preserve)
}

// SetTrackGain sets gain of a track clamped to [0, 1].
func (e *Engine) SetTrackGain(id string, gain float64) error {
	t, ok := e.registry.Get(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTrack, id)
	}
	t.SetGain(gain)
	return nil
}

// SetTrackMuted mutes or unmutes a track.
func (e *Engine) SetTrackMuted(id string, muted bool) error {
	t, ok := e.registry.Get(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTrack, id)
	}
	t.SetMuted(muted)
	return nil
}

// SetTrackLoop toggles looping on a track.
func (e *Engine) SetTrackLoop(id string, loop bool) error {
	t, ok := e.registry.Get(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTrack, id)
	}
	t.SetLoop(loop)
	return nil
}

// StartTrack starts one track immediately.
func (e *Engine) StartTrack(id string) error {
	t, ok := e.registry.Get(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTrack, id)
	}
	t.Start()
	return nil
}

// StopTrack pauses one track retaining its position.
func (e *Engine) StopTrack(id string) error {
	t, ok := e.registry.Get(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTrack, id)
	}
	t.Pause()
	return nil
}

// QueueTrack flags a track to start on the next downbeat of the
// timeline.
func (e *Engine) QueueTrack(id string) error {
	t, ok := e.registry.Get(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTrack, id)
	}
	t.SetQueued(true)
	return nil
}

// TrackIDs returns ids of all registered tracks in registration order.
func (e *Engine) TrackIDs() []string {
	tracks := e.registry.Tracks()
	ids := make([]string, 0, len(tracks))
	for _, t := range tracks {
		ids = append(ids, t.ID())
	}
	return ids
}

// TrackPlaying reports whether a track currently produces audio.
func (e *Engine) TrackPlaying(id string) (bool, error) {
	t, ok := e.registry.Get(id)
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrUnknownTrack, id)
	}
	return t.Playing(), nil
}

// TrackQueued reports whether a track waits for the next downbeat.
func (e *Engine) TrackQueued(id string) (bool, error) {
	t, ok := e.registry.Get(id)
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrUnknownTrack, id)
	}
	return t.Queued(), nil
}

// TrackLevels returns the RMS and peak levels of the last rendered
// block of a track.
func (e *Engine) TrackLevels(id string) (rms, peak float64, err error) {
	t, ok := e.registry.Get(id)
	if !ok {
		return 0, 0, fmt.Errorf("%w: %s", ErrUnknownTrack, id)
	}
	return t.RMS(), t.Peak(), nil
}

// SetBeatsPerBar sets the time signature numerator of the timeline.
func (e *Engine) SetBeatsPerBar(beats int) {
	e.clock.SetBeatsPerBar(beats)
}

// SetTimeSignature parses text of the form "N/D" and applies the
// numerator to the timeline.
func (e *Engine) SetTimeSignature(text string) error {
	beats, err := timeline.ParseTimeSignature(text)
	if err != nil {
		return err
	}
	e.clock.SetBeatsPerBar(beats)
	return nil
}

// SetReferenceBPM sets the reference tempo of the timeline.
func (e *Engine) SetReferenceBPM(bpm float64) {
	e.clock.SetReferenceBPM(bpm)
}

// EffectiveTempo returns the reference tempo scaled by the tempo ratio.
func (e *Engine) EffectiveTempo() float64 {
	return e.clock.EffectiveTempo()
}

// StartTimeline starts the musical clock.
func (e *Engine) StartTimeline() {
	e.clock.Start()
}

// StopTimeline stops the musical clock and rewinds it to zero.
func (e *Engine) StopTimeline() {
	e.clock.Stop()
}

// Position renders the timeline position for display.
func (e *Engine) Position() string {
	return e.clock.Label()
}

// PositionTime renders only the elapsed time of the timeline as
// m:ss.mmm.
func (e *Engine) PositionTime() string {
	return timeline.FormatTime(e.clock.Elapsed())
}

// Elapsed returns elapsed musical seconds of the timeline.
func (e *Engine) Elapsed() float64 {
	return e.clock.Elapsed()
}

// TickTimeline advances the timeline by a wall-clock delta in seconds
// and starts queued tracks when the clock sits on a downbeat.
func (e *Engine) TickTimeline(wallClockDelta float64) {
	e.clock.Tick(wallClockDelta)
	if e.clock.Running() && e.clock.Beat() == 1 {
		e.startQueued()
	}
}

func (e *Engine) startQueued() {
	e.registry.Each(func(t *track.Track) {
		if t.Queued() {
			t.SetQueued(false)
			t.Start()
			e.logger.Debug("queued track ", t.ID(), " started at ", e.clock.Label())
		}
	})
}

// RunClock spawns the background goroutine that ticks the timeline at
// provided interval until Close. Subsequent calls are no-ops.
func (e *Engine) RunClock(interval time.Duration) {
	if interval <= 0 {
		interval = DefaultClockInterval
	}
	e.clockOnce.Do(func() {
		e.wg.Add(1)
		go func() {
			defer e.wg.Done()
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			last := time.Now()
			for {
				select {
				case <-e.done:
					return
				case now := <-ticker.C:
					e.TickTimeline(now.Sub(last).Seconds())
					last = now
				}
			}
		}()
	})
}

// Metrics returns the current engine counter values.
func (e *Engine) Metrics() map[string]string {
	return metric.Get(e.name)
}

// Close stops the background clock and waits for it to exit.
func (e *Engine) Close() {
	e.closeOnce.Do(func() {
		close(e.done)
	})
	e.wg.Wait()
}
