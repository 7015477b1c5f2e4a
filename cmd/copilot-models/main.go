// Package main provides the entry point for the copilot-models tool. It lists the
// GitHub Copilot model catalog published on models.dev and can optionally verify
// live access to each model through an authenticated probe.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

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

func main() {
	var configPath string
	var noBrowser bool
	var debug bool
	var includeExperimental bool
	var verify bool
	var verifyLimit int
	var jsonOut bool

	flag.StringVar(&configPath, "config", "", "Configuration file path")
	flag.BoolVar(&noBrowser, "no-browser", false, "Don't open browser automatically for OAuth")
	flag.BoolVar(&debug, "debug", false, "Enable debug logging")
	flag.BoolVar(&includeExperimental, "include-experimental", false, "Include experimental models from the manifest")
	flag.BoolVar(&verify, "verify", false, "Authenticate and probe each model with a tiny request")
	flag.IntVar(&verifyLimit, "verify-limit", 10, "Max number of models to probe with -verify")
	flag.BoolVar(&jsonOut, "json", false, "Print JSON instead of human-readable text")
	flag.Parse()

	if errEnv := godotenv.Load(); errEnv != nil && !os.IsNotExist(errEnv) {
		log.Debugf("skipping .env: %v", errEnv)
	}
	logging.SetDebug(debug)
	log.Debugf("copilot-models %s (%s, built %s)", buildinfo.Version, buildinfo.Commit, buildinfo.BuildDate)

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Errorf("failed to load config: %v", err)
		os.Exit(1)
	}
	if err = logging.ConfigureLogOutput(cfg); err != nil {
		log.Errorf("failed to configure logging: %v", err)
		os.Exit(1)
	}

	opts := &cmd.ModelsOptions{
		IncludeExperimental: includeExperimental,
		Verify:              verify,
		VerifyLimit:         verifyLimit,
		JSON:                jsonOut,
		NoBrowser:           noBrowser,
	}

	ctx := logging.WithRequestID(context.Background(), logging.GenerateRequestID())
	if err = cmd.DoModels(ctx, cfg, opts); err != nil {
		fmt.Fprintf(os.Stderr, "copilot-models: %v\n", err)
		os.Exit(1)
	}
}
