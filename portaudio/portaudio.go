// Package portaudio plays engine output through the default audio
// device.
package portaudio

import (
	"errors"

	"github.com/gordonklaus/portaudio"

	"github.com/jerryseigle/multitrack"
	"github.com/jerryseigle/multitrack/signal"
)

// ErrNotPrepared is returned when the engine was not prepared before
// starting playback.
var ErrNotPrepared = errors.New("engine is not prepared")

// Player pulls blocks from the engine and writes them to a blocking
// portaudio stream.
type Player struct {
	engine *multitrack.Engine
	block  signal.Float64
	buf    []float32
	stream *portaudio.Stream
	done   chan struct{}
	exited chan struct{}
}

// NewPlayer returns a player over provided engine.
func NewPlayer(engine *multitrack.Engine) *Player {
	return &Player{
		engine: engine,
		done:   make(chan struct{}),
		exited: make(chan struct{}),
	}
}

// Start initializes portaudio, opens the default output stream at the
// engine's prepared rate and spawns the render loop.
func (p *Player) Start() error {
	bufferSize := p.engine.BufferSize()
	if bufferSize == 0 {
		return ErrNotPrepared
	}
	if err := portaudio.Initialize(); err != nil {
		return err
	}
	p.block = signal.EmptyFloat64(multitrack.NumChannels, bufferSize)
	p.buf = make([]float32, bufferSize*multitrack.NumChannels)
	stream, err := portaudio.OpenDefaultStream(0, multitrack.NumChannels, float64(p.engine.SampleRate()), bufferSize, &p.buf)
	if err != nil {
		portaudio.Terminate()
		return err
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return err
	}
	p.stream = stream
	go p.loop()
	return nil
}

func (p *Player) loop() {
	defer close(p.exited)
	for {
		select {
		case <-p.done:
			return
		default:
		}
		p.engine.RenderBlock(p.block)
		p.block.InterFloat32(p.buf)
		if err := p.stream.Write(); err != nil && err != portaudio.OutputUnderflowed {
			return
		}
	}
}

// Stop halts the render loop and terminates portaudio structures.
func (p *Player) Stop() error {
	close(p.done)
	<-p.exited
	if err := p.stream.Stop(); err != nil {
		return err
	}
	if err := p.stream.Close(); err != nil {
		return err
	}
	return portaudio.Terminate()
}
