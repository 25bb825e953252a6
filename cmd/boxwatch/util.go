package main

import (
	"encoding/json"
	"fmt"

	"github.com/fatih/color"

	"github.com/boxwatch/boxwatch/internal/watchdog"
)

func printJSON(v any) {
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
}

// printStatusSummary renders the one-line human summary above the JSON dump.
func printStatusSummary(st watchdog.Status) {
	health := color.New(color.FgGreen).SprintFunc()
	if st.Health != watchdog.HealthHealthy {
		health = color.New(color.FgYellow).SprintFunc()
	}
	conn := color.New(color.FgGreen).Sprint("up")
	if !st.LastCheckSuccess {
		conn = color.New(color.FgRed).Sprint("down")
	}
	fmt.Printf("health=%s connectivity=%s checks=%d success_rate=%.1f%% restarts=%d/%d\n",
		health(st.Health), conn, st.CheckCount, 100*st.SuccessRate, st.RestartCount, st.MaxRestarts)
	if st.InCooldown {
		fmt.Printf("cooldown active, %s remaining\n", color.New(color.FgYellow).Sprint(st.CooldownRemaining))
	}
}
