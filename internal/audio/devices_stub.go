//go:build !portaudio

package audio

import "fmt"

// ListDevices is unavailable without the portaudio build tag.
func ListDevices() ([]Device, error) {
	return nil, fmt.Errorf("build with '-tags portaudio' to enable device listing (PortAudio required)")
}
