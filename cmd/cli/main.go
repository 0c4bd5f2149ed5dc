package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"autotask/internal/cli/command"
	"autotask/internal/cli/config"
	"autotask/internal/cli/repl"
	"autotask/pkg/httpclient"
)

func main() {
	configPath := flag.String("config", "", "Path to config file")
	baseURL := flag.String("base", "", "Override base URL")
	timeout := flag.Duration("timeout", 0, "Override HTTP timeout (e.g. 30s)")
	pretty := flag.Bool("pretty", false, "Pretty print JSON response")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	if *baseURL != "" {
		cfg.BaseURL = *baseURL
	}
	if *timeout > 0 {
		cfg.Timeout = *timeout
	}
	if *pretty {
		trueValue := true
		cfg.PrettyJSON = &trueValue
	}

	client := httpclient.New(cfg.BaseURL, cfg.Timeout)
	session := repl.New(client, command.Registry(), cfg.Pretty(), os.Stdin, os.Stdout)
	session.Run(context.Background())
}
