package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/bashhack/gitbackfill/internal/config"
)

// Version information - injected at build time
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	opts := AppOptions{
		Version: config.VersionInfo{
			Version: version,
			Commit:  commit,
			Date:    date,
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := make(chan os.Signal, 2)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	go func() {
		sig := <-c
		fmt.Fprintf(os.Stderr, "\nReceived signal %v, finishing the current entry...\n", sig)
		// The run stops at the next entry boundary.
		cancel()

		sig = <-c
		fmt.Fprintf(os.Stderr, "\nReceived signal %v again, exiting now\n", sig)
		os.Exit(130)
	}()

	os.Exit(execute(ctx, os.Args[1:], opts, os.Stdout, os.Stderr))
}
