package main

import "time"

// Flag structs to decouple cobra from logic for testing.

// GlobalFlags holds persistent flags shared by all commands.
type GlobalFlags struct {
	ConfigPath string
	EnvFile    string
	Verbose    bool
}

// MonitorFlags holds flags for the monitor command.
type MonitorFlags struct {
	Daemonize bool
	PIDFile   string
	LogFile   string
}

// CheckFlags holds flags for the one-shot check command.
type CheckFlags struct {
	Diagnose bool
	Device   bool
}

// StatusFlags holds flags for the status command.
type StatusFlags struct {
	APIUrl     string
	APITimeout time.Duration
	History    int
}
