package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/plife507/TRADE-sub002/internal/cli"
	"github.com/plife507/TRADE-sub002/internal/config"
	"github.com/plife507/TRADE-sub002/internal/logging"
)

func main() {
	// The config directory has to be known before the command tree runs,
	// so the flag is scanned ahead of cobra.
	configDir := ""
	for i, arg := range os.Args {
		if arg == "--config" && i+1 < len(os.Args) {
			configDir = os.Args[i+1]
		}
		if strings.HasPrefix(arg, "--config=") {
			configDir = strings.TrimPrefix(arg, "--config=")
		}
	}

	cfg, err := config.Load(configDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "structure: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewLogger()

	if err := cli.NewRootCmd(cfg, logger).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
