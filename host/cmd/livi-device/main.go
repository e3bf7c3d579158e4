// Command livi-device runs the livi device stack on a Linux host: the button
// is the keyboard, storage is a directory, the camera replays JPEG files and
// the network is the host's.
//
// Usage:
//
//	livi-device [--config livi.yaml] <command> [options]
//
// Exit codes:
//   - 0: success
//   - 1: flow or request failure
//   - 2: fatal start-up failure (storage or audio)
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"livi/protocol"
)

// Commit is set via ldflags at build time.
var commit = "unknown"

func main() {
	if err := newApp().Run(os.Args); err != nil {
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:           "livi-device",
		Usage:          "Run the livi device loop and flows from a workstation",
		Version:        fmt.Sprintf("%s (commit: %s)", protocol.Version, commit),
		ExitErrHandler: exitErrHandler,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Value: "livi.yaml", Usage: "YAML config file", EnvVars: []string{"LIVI_CONFIG"}},
			&cli.StringFlag{Name: "env-file", Value: ".env", Usage: "dotenv file loaded before the config is expanded"},
			&cli.StringFlag{Name: "console", Usage: "serial device mirroring the diagnostic stream"},
			&cli.StringFlag{Name: "log-format", Usage: "console or json (overrides config)"},
			&cli.StringFlag{Name: "log-level", Usage: "debug, info, warn or error (overrides config)"},
		},
		Commands: []*cli.Command{
			runCommand(),
			describeCommand(),
			relayCommand(),
			imageCommand(),
			transcribeCommand(),
			pollCommand(),
			healthCommand(),
		},
	}
}

// exitErrHandler preserves exit codes from cli.Exit.
func exitErrHandler(_ *cli.Context, err error) {
	if err == nil {
		return
	}

	var exitCoder cli.ExitCoder
	if errors.As(err, &exitCoder) {
		code := exitCoder.ExitCode()
		msg := exitCoder.Error()
		if msg != "" && msg != fmt.Sprintf("exit status %d", code) {
			fmt.Fprintln(os.Stderr, msg)
		}
		os.Exit(code)
	}

	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
