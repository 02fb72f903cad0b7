//go:build portaudio

package audio

import (
	"fmt"

	"github.com/gordonklaus/portaudio"
)

// ListDevices returns input and output devices via PortAudio.
func ListDevices() ([]Device, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("portaudio init: %w", err)
	}
	defer portaudio.Terminate()

	devs, err := portaudio.Devices()
	if err != nil {
		return nil, err
	}
	defIn, _ := portaudio.DefaultInputDevice()
	defOut, _ := portaudio.DefaultOutputDevice()

	out := []Device{}
	for i, d := range devs {
		if d.MaxInputChannels > 0 {
			out = append(out, Device{
				Index:     i,
				Name:      d.Name,
				Kind:      "input",
				Channels:  d.MaxInputChannels,
				LatencyMs: d.DefaultLowInputLatency.Seconds() * 1000,
				Default:   defIn != nil && d.Name == defIn.Name,
			})
		}
		if d.MaxOutputChannels > 0 {
			out = append(out, Device{
				Index:     i,
				Name:      d.Name,
				Kind:      "output",
				Channels:  d.MaxOutputChannels,
				LatencyMs: d.DefaultLowOutputLatency.Seconds() * 1000,
				Default:   defOut != nil && d.Name == defOut.Name,
			})
		}
	}
	return out, nil
}
