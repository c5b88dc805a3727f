// Package transport implements the playback state machine.
//
// Transient states (Starting, Pausing, Stopping) execute their side
// effects and cascade to the next settled state within the same call, no
// caller ever observes them. The cascade is driven by an explicit
// trampoline over a pure transition function, not by recursion.
package transport

import (
	"sync"
	"sync/atomic"

	"github.com/jerryseigle/multitrack/log"
)

// State identifies one of the possible transport states.
type State int

const (
	// Stopped means playback is stopped and rewound.
	Stopped State = iota
	// Starting means tracks are being started. Transient.
	Starting
	// Playing means tracks are producing audio.
	Playing
	// Pausing means tracks are being stopped retaining position. Transient.
	Pausing
	// Paused means playback is stopped and can be resumed.
	Paused
	// Stopping means tracks are being stopped and rewound. Transient.
	Stopping
)

func (s State) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Starting:
		return "starting"
	case Playing:
		return "playing"
	case Pausing:
		return "pausing"
	case Paused:
		return "paused"
	case Stopping:
		return "stopping"
	}
	return "unknown"
}

// settled reports whether a state is externally observable.
func (s State) settled() bool {
	return s == Stopped || s == Playing || s == Paused
}

// Controller applies transport side effects to the track set.
type Controller interface {
	// StartAll begins playback of all tracks honoring their loop flags.
	StartAll()
	// PauseAll stops all tracks retaining their positions.
	PauseAll()
	// ResetAll stops all tracks and rewinds them to position zero.
	ResetAll()
}

// event identifies the type of transport command.
type event int

const (
	eventPlay event = iota
	eventPause
	eventStop
)

// effect identifies a side effect requested by a transition.
type effect int

const (
	effectNone effect = iota
	effectStart
	effectPause
	effectReset
)

// step computes the response of a settled state to a command. Returning
// the current state means the command is redundant and ignored.
func step(s State, e event) (State, effect) {
	switch e {
	case eventPlay:
		switch s {
		case Stopped, Paused:
			return Starting, effectStart
		}
	case eventPause:
		if s == Playing {
			return Pausing, effectPause
		}
	case eventStop:
		switch s {
		case Paused:
			return Stopped, effectReset
		case Playing:
			return Stopping, effectReset
		}
	}
	return s, effectNone
}

// settle cascades a transient state to its successor.
func settle(s State) State {
	switch s {
	case Starting:
		return Playing
	case Pausing:
		return Paused
	case Stopping:
		return Stopped
	}
	return s
}

// Machine owns the transport state. Commands may arrive from any
// goroutine, the settled state is readable from the render thread
// without locks.
//
// Play is idempotent: a play command while Playing is ignored, so
// automation can repeat it without side effects. The single-button
// pause-on-second-press behavior lives in Toggle.
type Machine struct {
	mu         sync.Mutex
	state      atomic.Int32
	controller Controller
	logger     log.Logger
}

// New returns a machine in the Stopped state.
func New(controller Controller, logger log.Logger) *Machine {
	return &Machine{
		controller: controller,
		logger:     logger,
	}
}

// State returns the current settled state.
func (m *Machine) State() State {
	return State(m.state.Load())
}

// Play starts playback from Stopped or Paused. Redundant while Playing.
func (m *Machine) Play() {
	m.dispatch(eventPlay)
}

// Pause pauses playback retaining position. Redundant unless Playing.
func (m *Machine) Pause() {
	m.dispatch(eventPause)
}

// Stop stops playback and rewinds all tracks. Redundant while Stopped.
func (m *Machine) Stop() {
	m.dispatch(eventStop)
}

// Toggle maps a single play button onto the machine the way the control
// surface expects: it pauses when playing and plays otherwise.
func (m *Machine) Toggle() {
	m.mu.Lock()
	playing := State(m.state.Load()) == Playing
	m.mu.Unlock()
	if playing {
		m.Pause()
	} else {
		m.Play()
	}
}

// dispatch applies one command and trampolines transient states until a
// settled state is reached.
func (m *Machine) dispatch(e event) {
	m.mu.Lock()
	defer m.mu.Unlock()

	current := State(m.state.Load())
	next, eff := step(current, e)
	if next == current {
		return
	}
	for {
		m.apply(eff)
		m.state.Store(int32(next))
		if m.logger != nil {
			m.logger.Debug("transport is ", next)
		}
		if next.settled() {
			return
		}
		next, eff = settle(next), effectNone
	}
}

func (m *Machine) apply(eff effect) {
	if m.controller == nil {
		return
	}
	switch eff {
	case effectStart:
		m.controller.StartAll()
	case effectPause:
		m.controller.PauseAll()
	case effectReset:
		m.controller.ResetAll()
	}
}
