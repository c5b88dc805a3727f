package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/davecgh/go-spew/spew"

	"github.com/jerryseigle/multitrack"
)

// repl reads control commands from stdin until quit or EOF.
func repl(e *multitrack.Engine) {
	scanner := bufio.NewScanner(os.Stdin)
	fmt.Println("commands: play pause stop toggle tempo pitch formant gain mute unmute queue pos levels status quit")
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if fields[0] == "quit" {
			return
		}
		if err := execute(e, fields); err != nil {
			fmt.Println("error:", err)
		}
	}
}

func execute(e *multitrack.Engine, fields []string) error {
	switch fields[0] {
	case "play":
		e.Play()
	case "pause":
		e.Pause()
	case "stop":
		e.Stop()
	case "toggle":
		e.Toggle()
	case "tempo":
		ratio, err := floatArg(fields, 1)
		if err != nil {
			return err
		}
		e.SetTempoRatio(ratio)
		fmt.Printf("effective tempo: %.1f BPM\n", e.EffectiveTempo())
	case "pitch":
		semitones, err := floatArg(fields, 1)
		if err != nil {
			return err
		}
		e.SetPitchSemitones(semitones)
	case "formant":
		if len(fields) < 2 {
			return fmt.Errorf("usage: formant on|off")
		}
		e.SetFormantPreserve(fields[1] == "on")
	case "gain":
		id, err := trackArg(e, fields, 1)
		if err != nil {
			return err
		}
		gain, err := floatArg(fields, 2)
		if err != nil {
			return err
		}
		return e.SetTrackGain(id, gain)
	case "mute":
		id, err := trackArg(e, fields, 1)
		if err != nil {
			return err
		}
		return e.SetTrackMuted(id, true)
	case "unmute":
		id, err := trackArg(e, fields, 1)
		if err != nil {
			return err
		}
		return e.SetTrackMuted(id, false)
	case "queue":
		id, err := trackArg(e, fields, 1)
		if err != nil {
			return err
		}
		return e.QueueTrack(id)
	case "pos":
		fmt.Println(e.Position())
	case "levels":
		for i, id := range e.TrackIDs() {
			rms, peak, err := e.TrackLevels(id)
			if err != nil {
				return err
			}
			fmt.Printf("%d %s rms %.3f peak %.3f\n", i, id, rms, peak)
		}
	case "status":
		fmt.Println("state:", e.State())
		fmt.Println(e.Position())
		spew.Dump(e.TrackIDs())
		spew.Dump(e.Metrics())
	default:
		return fmt.Errorf("unknown command: %s", fields[0])
	}
	return nil
}

func floatArg(fields []string, n int) (float64, error) {
	if len(fields) <= n {
		return 0, fmt.Errorf("missing argument")
	}
	return strconv.ParseFloat(fields[n], 64)
}

// trackArg resolves a zero-based track index argument to a track id.
func trackArg(e *multitrack.Engine, fields []string, n int) (string, error) {
	if len(fields) <= n {
		return "", fmt.Errorf("missing track index")
	}
	index, err := strconv.Atoi(fields[n])
	if err != nil {
		return "", err
	}
	ids := e.TrackIDs()
	if index < 0 || index >= len(ids) {
		return "", fmt.Errorf("track index out of range: %d", index)
	}
	return ids[index], nil
}
