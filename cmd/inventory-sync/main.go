package main

import (
	"fmt"
	"os"

	"github.com/eshaffer321/inventory-sync-manager/internal/cli"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	args := os.Args[1:]
	subcommand := "serve"
	if len(args) > 0 && args[0] != "" && args[0][0] != '-' {
		subcommand, args = args[0], args[1:]
	}

	switch subcommand {
	case "serve":
		serve(args)
	case "version":
		cli.PrintHeader(os.Stdout, version)
	case "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown subcommand: %s\n\n", subcommand)
		printUsage()
		os.Exit(1)
	}
}

func serve(args []string) {
	flags, err := cli.ParseServeFlags("inventory-sync serve", args, os.Stderr)
	if err != nil {
		os.Exit(2)
	}

	cli.PrintHeader(os.Stdout, version)

	cfg, err := cli.LoadConfig(flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := cli.RunServe(cfg, flags, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Inventory Sync Manager")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  inventory-sync [serve] [flags]   Run the dashboard API (default)")
	fmt.Println("  inventory-sync version           Print the version")
	fmt.Println()
	fmt.Println("Serve flags:")
	fmt.Println("  -config string   Path to the YAML config file (default \"config.yaml\")")
	fmt.Println("  -port int        Port to listen on (overrides server.port)")
	fmt.Println("  -verbose         Verbose output")
	fmt.Println("  -no-seed         Skip loading the product seed file")
}
