//go:build linux
// +build linux

package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/luhtfiimanal/go-serial-bridge/bridge"
	"github.com/luhtfiimanal/go-serial-bridge/internal/logging"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	opts, err := parseArgs(args, os.Stderr)
	if errors.Is(err, pflag.ErrHelp) {
		return 0
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "serialbridge: %v\n", err)
		return 2
	}

	logging.ApplyEnv(&opts.log)
	log := logging.New(os.Stderr, "serialbridge", opts.log)

	// Signals are routed to the shutdown token before the poller starts.
	sd := bridge.NewShutdown()
	stopSignals := bridge.NotifySignals(sd, log)
	defer stopSignals()

	res := bridge.New(opts.bridge, log).Run(sd)
	if res.Err != nil {
		log.Error().Err(res.Err).Stringer("reason", res.Reason).Msg("serial service stopped with errors")
	}
	return res.ExitCode()
}
