package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/rmax-ai/orgchart/pkg/mcp"
)

var Version = "v0.1.0"

func main() {
	flagSet := pflag.NewFlagSet("orgchart-mcp", pflag.ContinueOnError)
	endpoint := flagSet.String("endpoint", envOrDefault("ORGCHART_ENDPOINT", "http://127.0.0.1:8090"), "daemon URL")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		os.Exit(2)
	}

	// stdout carries the protocol; diagnostics go to stderr.
	if err := mcp.NewServer(*endpoint, Version).Serve(); err != nil {
		fmt.Fprintf(os.Stderr, "orgchart-mcp: %v\n", err)
		os.Exit(1)
	}
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
