// Package tray shows a small status menu in the system tray.
package tray

import (
	"fmt"
	"time"

	"gajaoverlay/internal/state"

	"github.com/getlantern/systray"
)

// Controller is what the tray needs from the daemon.
type Controller interface {
	ShowOverlay()
	HideOverlay()
	OpenSettings()
	Snapshot() state.Overlay
	RequestShutdown()
}

var (
	ctrl    Controller
	onStart func()
	onExit  func()

	statusItem   *systray.MenuItem
	showItem     *systray.MenuItem
	hideItem     *systray.MenuItem
	settingsItem *systray.MenuItem
	quitItem     *systray.MenuItem
)

// Run starts the tray. This blocks the calling goroutine (must be main
// on macOS). onStartFn is called when the tray is ready; launch the
// daemon there. onExitFn is called when the tray exits.
func Run(c Controller, onStartFn, onExitFn func()) {
	ctrl = c
	onStart = onStartFn
	onExit = onExitFn
	systray.Run(onReady, onQuit)
}

// Quit signals the tray to exit.
func Quit() {
	systray.Quit()
}

func onReady() {
	systray.SetTitle("Gaja")
	systray.SetTooltip("Gaja overlay")

	header := systray.AddMenuItem("Gaja Overlay", "")
	header.Disable()
	statusItem = systray.AddMenuItem("Starting...", "")
	statusItem.Disable()

	systray.AddSeparator()

	showItem = systray.AddMenuItem("Show overlay", "Force the overlay visible")
	hideItem = systray.AddMenuItem("Hide overlay", "Force the overlay hidden")
	settingsItem = systray.AddMenuItem("Settings...", "Open the assistant settings window")

	systray.AddSeparator()

	quitItem = systray.AddMenuItem("Quit", "Shut down the overlay daemon")

	if onStart != nil {
		onStart()
	}

	go handleClicks()
	go refreshLoop()
}

func onQuit() {
	if onExit != nil {
		onExit()
	}
}

func handleClicks() {
	for {
		select {
		case <-showItem.ClickedCh:
			ctrl.ShowOverlay()
		case <-hideItem.ClickedCh:
			ctrl.HideOverlay()
		case <-settingsItem.ClickedCh:
			ctrl.OpenSettings()
		case <-quitItem.ClickedCh:
			ctrl.RequestShutdown()
			systray.Quit()
			return
		}
	}
}

// refreshLoop keeps the status line and tooltip in sync with the
// overlay state.
func refreshLoop() {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()
	for range ticker.C {
		snap := ctrl.Snapshot()
		statusItem.SetTitle(formatStatus(snap))
		systray.SetTooltip(fmt.Sprintf("Gaja overlay — %s", snap.Status))
	}
}

func formatStatus(o state.Overlay) string {
	visibility := "hidden"
	if o.Visible {
		visibility = "visible"
	}
	return fmt.Sprintf("%s (%s)", o.Status, visibility)
}
