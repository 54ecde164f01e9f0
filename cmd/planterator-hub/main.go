package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/christianJames24/IoT-2/internal/app/config"
	"github.com/christianJames24/IoT-2/pkg/planterator"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	var err error

	switch cmd {
	case "run":
		err = runCommand(os.Args[2:])
	case "validate":
		err = validateCommand(os.Args[2:])
	case "help", "-h", "--help":
		printUsage()
		return
	default:
		printUsage()
		err = fmt.Errorf("unknown command %q", cmd)
	}

	if err != nil {
		log.Fatalf("planterator-hub %s: %v", cmd, err)
	}
}

func runCommand(args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	cfgPath := fs.String("config", "./config.yaml", "Path to hub configuration file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	rt, err := planterator.NewHubRuntime(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return rt.Run(ctx)
}

func validateCommand(args []string) error {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	cfgPath := fs.String("config", "./config.yaml", "Path to configuration file to validate")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if _, err := config.Load(*cfgPath); err != nil {
		return err
	}
	fmt.Printf("config %s looks good\n", *cfgPath)
	return nil
}

func printUsage() {
	fmt.Printf(`planterator-hub

Subscribes to the sensor topics, deduplicates deliveries, and commits
accepted readings to the reading store and the daily log.

Usage:
  planterator-hub <command> [flags]

Commands:
  run        Start the hub using the provided config
  validate   Load and validate a config file without starting anything

Examples:
  planterator-hub run -config ./config.yaml
  planterator-hub validate -config ./config.yaml
`)
}
