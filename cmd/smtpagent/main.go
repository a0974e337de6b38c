package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/go-errors/errors"

	"smtpagent"
	"smtpagent/config"
)

// Usage: smtpagent [bind_addr] [port]
//
// Positional arguments override the configured (or default) listener
// endpoint; everything else comes from SMTPAGENT_CONFIG or defaults.
func main() {
	if file := os.Getenv("SMTPAGENT_CONFIG"); file != "" {
		config.Load(file)
	} else {
		config.Default()
	}

	if len(os.Args) >= 2 {
		config.C.Server.BindAddr = os.Args[1]
	}
	if len(os.Args) >= 3 {
		port, err := strconv.ParseUint(os.Args[2], 10, 16)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid port %q: %v\n", os.Args[2], err)
			os.Exit(1)
		}
		config.C.Server.Port = uint16(port)
	}

	events := smtpagent.NewConnectionLogger(config.C.Log.LogFile)
	defer events.Sync()

	var relay smtpagent.Relay
	switch config.C.Relay.Mode {
	case "http":
		relay = smtpagent.NewHTTPRelay(config.C.Relay.ServiceURL, smtpagent.DefaultLimits.MaxPayload)
	default:
		relay = smtpagent.NewCommandRelay(config.C.Relay.Command, config.C.Relay.ServiceURL, smtpagent.DefaultLimits.MaxPayload)
	}

	srv, err := smtpagent.NewServer(&config.C.Server, relay, events)
	if err != nil {
		fail(err)
	}
	// Not reachable except via fatal accept failure.
	fail(srv.ListenAndServe())
}

func fail(err error) {
	if gerr, ok := err.(*errors.Error); ok {
		fmt.Fprintln(os.Stderr, gerr.ErrorStack())
	} else {
		fmt.Fprintln(os.Stderr, err)
	}
	os.Exit(1)
}
