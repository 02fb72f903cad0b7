//go:build debug

package config

// Debug builds talk to the development assistant port.
const buildModePort = 5001
