package main

import (
	"fmt"
	"os"

	cli "github.com/jawher/mow.cli"
)

const appDescription = "Kiosk lock daemon and client for Linux desktop sessions"

func main() {
	app := cli.App("kioskctl", appDescription)

	sock := app.String(cli.StringOpt{
		Name:   "socket",
		Value:  defaultSocketPath(),
		Desc:   "Path of the daemon's control socket",
		EnvVar: "KIOSKCTL_SOCKET",
	})
	logLevel := app.String(cli.StringOpt{
		Name:   "log-level",
		Desc:   "Log level (overrides the config file)",
		EnvVar: "KIOSKCTL_LOG_LEVEL",
	})

	var cfg Config
	app.Before = func() {
		var err error
		cfg, err = loadConfig()
		exitOnErr(err)
		if *logLevel != "" {
			cfg.LogLevel = *logLevel
		}
	}

	app.Command("daemon", "Run the lock-mode daemon", func(cmd *cli.Cmd) {
		cmd.Action = func() {
			exitOnErr(setupLogging(cfg.LogLevel, true))
			exitOnErr(runDaemon(cfg, *sock))
		}
	})
	app.Command("start", "Start kiosk lock", func(cmd *cli.Cmd) {
		cmd.Action = func() {
			exitOnErr(setupLogging(cfg.LogLevel, false))
			exitOnErr(runMethod(os.Stdout, *sock, cfg.Channel, MethodStartLockTask))
		}
	})
	app.Command("stop", "Stop kiosk lock", func(cmd *cli.Cmd) {
		cmd.Action = func() {
			exitOnErr(setupLogging(cfg.LogLevel, false))
			exitOnErr(runMethod(os.Stdout, *sock, cfg.Channel, MethodStopLockTask))
		}
	})
	app.Command("status", "Show whether the kiosk is locked", func(cmd *cli.Cmd) {
		asJSON := cmd.Bool(cli.BoolOpt{Name: "json", Desc: "Print the raw daemon response"})
		cmd.Action = func() {
			exitOnErr(setupLogging(cfg.LogLevel, false))
			exitOnErr(runStatus(os.Stdout, *sock, cfg.Channel, *asJSON))
		}
	})
	app.Command("back", "Send an exit gesture; suppressed while locked", func(cmd *cli.Cmd) {
		cmd.Action = func() {
			exitOnErr(setupLogging(cfg.LogLevel, false))
			exitOnErr(runBack(os.Stdout, *sock))
		}
	})
	app.Command("call", "Invoke an arbitrary method on the lock channel", func(cmd *cli.Cmd) {
		cmd.Spec = "METHOD"
		method := cmd.String(cli.StringArg{Name: "METHOD", Desc: "Method name, e.g. isLocked"})
		cmd.Action = func() {
			exitOnErr(setupLogging(cfg.LogLevel, false))
			exitOnErr(runMethod(os.Stdout, *sock, cfg.Channel, *method))
		}
	})

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func exitOnErr(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	cli.Exit(1)
}
