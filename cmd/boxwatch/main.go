package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	root := buildRoot()
	if err := root.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func buildRoot() *cobra.Command {
	globalFlags := &GlobalFlags{}
	monitorFlags := &MonitorFlags{}
	checkFlags := &CheckFlags{}
	statusFlags := &StatusFlags{}

	c := command{global: globalFlags}

	root := createRootCommand(globalFlags)
	root.AddCommand(
		createMonitorCommand(c, monitorFlags),
		createCheckCommand(c, checkFlags),
		createStatusCommand(c, statusFlags),
		createDiscoverCommand(c),
		createValidateCommand(c),
		createVersionCommand(),
	)
	return root
}

func createRootCommand(flags *GlobalFlags) *cobra.Command {
	root := &cobra.Command{
		Use:   "boxwatch",
		Short: "Router connectivity watchdog",
		Long: `Boxwatch periodically verifies internet reachability and, when the
connection stays down, restarts the router over its TR-064 interface.
Restart attempts are rate limited by a cooldown window so a dead uplink
cannot turn into a reboot loop.

Examples:
  boxwatch monitor                              # Run the watchdog loop
  boxwatch monitor --daemonize                  # Run in the background
  boxwatch check                                # One-shot connectivity check
  boxwatch status                               # Query a running daemon
  boxwatch validate --config /etc/boxwatch.toml # Check configuration`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&flags.ConfigPath, "config", "", "path to TOML config file (optional)")
	root.PersistentFlags().StringVar(&flags.EnvFile, "env-file", "", "path to .env file with credentials (optional)")
	root.PersistentFlags().BoolVarP(&flags.Verbose, "verbose", "v", false, "enable debug logging")

	return root
}

func createMonitorCommand(c command, flags *MonitorFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Run the watchdog loop",
		Long: `Run the connectivity watchdog until interrupted. Checks run on a fixed
interval; after the configured number of consecutive failures the router is
restarted, bounded by the restart budget and cooldown window.

Examples:
  boxwatch monitor
  boxwatch monitor --config /etc/boxwatch.toml
  boxwatch monitor --daemonize --pidfile /run/boxwatch.pid --logfile /var/log/boxwatch.out`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Monitor(MonitorFlags{
				Daemonize: flags.Daemonize,
				PIDFile:   flags.PIDFile,
				LogFile:   flags.LogFile,
			})
		},
	}

	cmd.Flags().BoolVar(&flags.Daemonize, "daemonize", false, "run in the background")
	cmd.Flags().StringVar(&flags.PIDFile, "pidfile", "", "write the daemon PID to this file")
	cmd.Flags().StringVar(&flags.LogFile, "logfile", "", "redirect daemon output to this file")

	return cmd
}

func createCheckCommand(c command, flags *CheckFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Run a single check-and-restart pass",
		Long: `Probe internet connectivity once; when it is down, attempt a router
restart subject to the cooldown policy. Exit code 0 means the internet is
reachable (possibly after the restart), 1 means it is still down.

Examples:
  boxwatch check
  boxwatch check --diagnose   # Include local network diagnostics on failure
  boxwatch check --device     # Also query router device information`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Check(CheckFlags{Diagnose: flags.Diagnose, Device: flags.Device})
		},
	}

	cmd.Flags().BoolVar(&flags.Diagnose, "diagnose", false, "run local network diagnostics when the check fails")
	cmd.Flags().BoolVar(&flags.Device, "device", false, "query and print router device information")

	return cmd
}

func createStatusCommand(c command, flags *StatusFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Query a running boxwatch daemon",
		Long: `Fetch the state snapshot from a running daemon's status API and print
it as JSON.

Examples:
  boxwatch status
  boxwatch status --api-url=http://router-pi:8080/api
  boxwatch status --history=20   # Include recent audit events`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Status(StatusFlags{
				APIUrl:     flags.APIUrl,
				APITimeout: flags.APITimeout,
				History:    flags.History,
			})
		},
	}

	cmd.Flags().StringVar(&flags.APIUrl, "api-url", "", "daemon URL (e.g. http://host:8080/api)")
	cmd.Flags().DurationVar(&flags.APITimeout, "api-timeout", 10*time.Second, "request timeout")
	cmd.Flags().IntVar(&flags.History, "history", 0, "also print the N most recent events")

	return cmd
}

func createDiscoverCommand(c command) *cobra.Command {
	return &cobra.Command{
		Use:   "discover",
		Short: "List the router's SOAP services",
		Long: `Enumerate the SOAP control endpoints the router exposes, using its
description document when available and probing well-known paths otherwise.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Discover()
		},
	}
}

func createValidateCommand(c command) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration",
		Long: `Load the configuration the same way monitor does and report the first
problem found, or print the effective settings on success.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Validate()
		},
	}
}

func createVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("boxwatch " + version)
		},
	}
}
