package main

import (
	"fmt"
	"os"
	"os/exec"
	"strconv"
)

// daemonize re-executes the current binary detached from the terminal.
// Returns true when running as the daemon child, false in the parent after
// the child has been started.
func daemonize(pidFile string, logFile string) (bool, error) {
	// Child processes are re-parented to init.
	if os.Getppid() == 1 {
		return true, nil
	}

	executable, err := os.Executable()
	if err != nil {
		return false, fmt.Errorf("failed to get executable path: %w", err)
	}

	// Re-run the same command line without the daemonize flags.
	var newArgs []string
	skipNext := false
	for _, arg := range os.Args[1:] {
		if skipNext {
			skipNext = false
			continue
		}
		switch arg {
		case "--daemonize":
			continue
		case "--pidfile", "--logfile":
			skipNext = true
			continue
		}
		newArgs = append(newArgs, arg)
	}

	// #nosec 204
	cmd := exec.Command(executable, newArgs...)
	configureDaemonAttrs(cmd)
	cmd.Stdin = nil

	if logFile != "" {
		// #nosec 304
		logF, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return false, fmt.Errorf("failed to open log file: %w", err)
		}
		cmd.Stdout = logF
		cmd.Stderr = logF
	} else {
		cmd.Stdout = nil
		cmd.Stderr = nil
	}

	if err := cmd.Start(); err != nil {
		return false, fmt.Errorf("failed to start daemon process: %w", err)
	}

	if pidFile != "" {
		pid := strconv.Itoa(cmd.Process.Pid)
		if err := os.WriteFile(pidFile, []byte(pid+"\n"), 0644); err != nil {
			return false, fmt.Errorf("failed to write PID file: %w", err)
		}
	}

	fmt.Printf("boxwatch daemon started (pid %d)\n", cmd.Process.Pid)
	return false, nil
}
