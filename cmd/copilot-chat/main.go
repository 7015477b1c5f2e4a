// Package main provides the entry point for the copilot-chat tool. It authenticates
// against GitHub Copilot via the OAuth device flow, sends a single chat prompt, and
// prints the assistant reply.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/copilot-cli/copilot-cli/internal/buildinfo"
	"github.com/copilot-cli/copilot-cli/internal/cmd"
	"github.com/copilot-cli/copilot-cli/internal/config"
	"github.com/copilot-cli/copilot-cli/internal/logging"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

// init initializes the shared logger setup.
func init() {
	logging.SetupBaseLogger()
	buildinfo.Version = Version
	buildinfo.Commit = Commit
	buildinfo.BuildDate = BuildDate
}

// main parses flags and environment, then runs the one-shot chat flow.
// The prompt is the joined positional arguments; the MODEL environment variable
// selects the completion model.
func main() {
	var configPath string
	var noBrowser bool
	var debug bool

	flag.StringVar(&configPath, "config", "", "Configuration file path")
	flag.BoolVar(&noBrowser, "no-browser", false, "Don't open browser automatically for OAuth")
	flag.BoolVar(&debug, "debug", false, "Enable debug logging")
	flag.Parse()

	if errEnv := godotenv.Load(); errEnv != nil && !os.IsNotExist(errEnv) {
		log.Debugf("skipping .env: %v", errEnv)
	}
	logging.SetDebug(debug)
	log.Debugf("copilot-chat %s (%s, built %s)", buildinfo.Version, buildinfo.Commit, buildinfo.BuildDate)

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Errorf("failed to load config: %v", err)
		os.Exit(1)
	}
	if err = logging.ConfigureLogOutput(cfg); err != nil {
		log.Errorf("failed to configure logging: %v", err)
		os.Exit(1)
	}

	opts := &cmd.ChatOptions{
		Prompt:    strings.Join(flag.Args(), " "),
		Model:     os.Getenv("MODEL"),
		NoBrowser: noBrowser,
	}

	ctx := logging.WithRequestID(context.Background(), logging.GenerateRequestID())
	if err = cmd.DoChat(ctx, cfg, opts); err != nil {
		fmt.Fprintf(os.Stderr, "copilot-chat: %v\n", err)
		os.Exit(1)
	}
}
