// Command flightauth acquires a bearer token using the configured OAuth flow
// and prints it. Useful for verifying a connection configuration before
// wiring it into a Flight SQL client, and for exporting tokens to other
// tools.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/gizmosql/flightsql-oauth/internal/auth"
	"github.com/gizmosql/flightsql-oauth/internal/config"
	"github.com/gizmosql/flightsql-oauth/internal/logging"
	log "github.com/sirupsen/logrus"
)

func init() {
	logging.SetupBaseLogger()
}

func main() {
	var configPath string
	var serverBaseURL string

	flag.StringVar(&configPath, "config", "config.yaml", "Configure File Path")
	flag.StringVar(&serverBaseURL, "server-url", "", "Override the server-side OAuth base URL")
	flag.Parse()

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
	}
	if err = logging.ConfigureLogOutput(cfg.LogToFile); err != nil {
		log.Fatalf("failed to configure log output: %v", err)
	}

	if serverBaseURL != "" {
		cfg.OAuth.ServerBaseURL = serverBaseURL
	}

	provider, err := auth.NewTokenProvider(context.Background(), cfg, "")
	if err != nil {
		log.Fatalf("failed to build token provider: %v", err)
	}

	token, err := provider.Token(context.Background())
	if err != nil {
		log.Fatalf("authentication failed: %v", err)
	}

	fmt.Fprintln(os.Stdout, token)
}
