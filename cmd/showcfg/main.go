package main

import (
	"fmt"

	"gajaoverlay/internal/config"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}
	fmt.Printf("host=%s ports=%v default_port=%d\n", cfg.Server.Host, cfg.Server.Ports, cfg.DefaultPort())
	fmt.Printf("poll=%dms probe=%dms cooldown=%ds idle=%ds\n",
		cfg.Server.PollIntervalMS, cfg.Server.ProbeTimeoutMS,
		cfg.Server.StreamCooldownSec, cfg.Overlay.IdleTimeoutSec)
	fmt.Printf("keywords listening=%v speaking=%v wake=%v idle=%v\n",
		cfg.Keywords.Listening, cfg.Keywords.Speaking, cfg.Keywords.Wake, cfg.Keywords.Idle)
	fmt.Printf("settings.command=%q tray=%v\n", cfg.Settings.Command, cfg.Tray.Enabled)
}
