// Command multitrack plays a set of audio files as synchronized tracks
// with live tempo and pitch control.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jerryseigle/multitrack"
	"github.com/jerryseigle/multitrack/log"
	"github.com/jerryseigle/multitrack/mp3"
	"github.com/jerryseigle/multitrack/portaudio"
	"github.com/jerryseigle/multitrack/source"
	"github.com/jerryseigle/multitrack/track"
	"github.com/jerryseigle/multitrack/wav"
)

var (
	sampleRate = flag.Int("rate", 44100, "output sample rate")
	bufferSize = flag.Int("buffer", 512, "output block size in samples")
	bpm        = flag.Float64("bpm", 120, "reference tempo of the material")
	signature  = flag.String("signature", "4/4", "time signature as N/D")
	loop       = flag.Bool("loop", true, "loop all tracks")
)

var (
	successExitCode = 0
	errorExitCode   = 1
)

func main() {
	flag.Parse()
	os.Exit(run())
}

func run() int {
	logger := log.GetLogger()
	if flag.NArg() == 0 {
		printUsage()
		return errorExitCode
	}

	e := multitrack.New(multitrack.WithLogger(logger))
	defer e.Close()
	e.SetReferenceBPM(*bpm)
	if err := e.SetTimeSignature(*signature); err != nil {
		logger.Error(err)
		return errorExitCode
	}

	for _, path := range flag.Args() {
		src, err := load(path)
		if err != nil {
			logger.Error("load ", path, ": ", err)
			return errorExitCode
		}
		role := roleOf(path)
		id := e.AddTrack(role, src)
		if *loop {
			if err := e.SetTrackLoop(id, true); err != nil {
				logger.Error(err)
				return errorExitCode
			}
		}
		logger.Info("loaded ", path, " as ", role, " track ", id)
	}

	if err := e.Prepare(*sampleRate, *bufferSize); err != nil {
		logger.Error(err)
		return errorExitCode
	}
	player := portaudio.NewPlayer(e)
	if err := player.Start(); err != nil {
		logger.Error("start playback: ", err)
		return errorExitCode
	}
	e.RunClock(multitrack.DefaultClockInterval)
	e.StartTimeline()
	e.Play()

	repl(e)

	e.Stop()
	if err := player.Stop(); err != nil {
		logger.Error("stop playback: ", err)
		return errorExitCode
	}
	return successExitCode
}

// load decodes a file by extension.
func load(path string) (*source.Mem, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		return wav.Load(path)
	case ".mp3":
		return mp3.Load(path)
	}
	return nil, fmt.Errorf("unsupported file type: %s", path)
}

// roleOf routes drum material into the percussive processor based on
// filename keywords.
func roleOf(path string) track.Role {
	name := strings.ToLower(filepath.Base(path))
	for _, keyword := range []string{"drum", "percussion", "beat", "kick", "snare"} {
		if strings.Contains(name, keyword) {
			return track.RolePercussive
		}
	}
	return track.RoleMelodic
}

func printUsage() {
	fmt.Println("Multitrack plays audio files as synchronized tracks")
	fmt.Println()
	fmt.Println("Usage: multitrack [flags] file.wav [file.mp3 ...]")
	fmt.Println()
	flag.PrintDefaults()
}
