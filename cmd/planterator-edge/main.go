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
		log.Fatalf("planterator-edge %s: %v", cmd, err)
	}
}

func runCommand(args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	cfgPath := fs.String("config", "./config.yaml", "Path to edge configuration file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	rt, err := planterator.NewEdgeRuntime(cfg)
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
	fmt.Printf(`planterator-edge

Samples the plant sensors, averages readings, queues them on disk, and
publishes them to the MQTT broker.

Usage:
  planterator-edge <command> [flags]

Commands:
  run        Start the edge loop using the provided config
  validate   Load and validate a config file without starting anything

Examples:
  planterator-edge run -config ./config.yaml
  planterator-edge validate -config ./config.yaml
`)
}
