//go:build !debug

package config

// Release builds talk to the production assistant port.
const buildModePort = 5000
