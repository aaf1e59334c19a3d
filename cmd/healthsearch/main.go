package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/zatekoja/healthcaresearch/backend/internal/adapters/session"
	"github.com/zatekoja/healthcaresearch/backend/internal/application/services"
	"github.com/zatekoja/healthcaresearch/backend/internal/infrastructure/clients/searchapi"
	"github.com/zatekoja/healthcaresearch/backend/internal/infrastructure/observability"
	"github.com/zatekoja/healthcaresearch/backend/pkg/config"
)

type globalOptions struct {
	apiURL      string
	timeout     time.Duration
	stalePolicy string
	jsonOutput  bool
	verbose     bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:           "healthsearch",
		Short:         "Search hospitals and insurance plans from the terminal",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := zerolog.WarnLevel
			if opts.verbose {
				level = zerolog.DebugLevel
			}
			observability.InitCLILogger(level)
		},
	}

	// Defaults come from the same environment the API server reads
	defaults := config.SearchAPIConfig{BaseURL: "http://localhost:3001", Timeout: 10 * time.Second}
	defaultPolicy := string(services.StalePolicyLatestIssued)
	if cfg, err := config.Load(); err == nil {
		defaults = cfg.SearchAPI
		defaultPolicy = cfg.Search.StalePolicy
	}

	rootCmd.PersistentFlags().StringVar(&opts.apiURL, "api-url", defaults.BaseURL, "Base URL of the search API")
	rootCmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", defaults.Timeout, "Upstream request timeout")
	rootCmd.PersistentFlags().StringVar(&opts.stalePolicy, "stale-policy", defaultPolicy, "latest-issued or last-resolved")
	rootCmd.PersistentFlags().BoolVar(&opts.jsonOutput, "json", false, "Print the session view as JSON")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log upstream requests")

	rootCmd.AddCommand(newHospitalsCmd(opts))
	rootCmd.AddCommand(newRadiusCmd(opts))
	rootCmd.AddCommand(newInsuranceCmd(opts))

	return rootCmd
}

// searchApp is a one-shot session against the upstream API.
type searchApp struct {
	sessions     *services.SessionService
	orchestrator *services.SearchOrchestrator
}

func newSearchApp(opts *globalOptions) (*searchApp, error) {
	policy, err := services.ParseStalePolicy(opts.stalePolicy)
	if err != nil {
		return nil, err
	}

	sessions := services.NewSessionService(session.NewMemorySessionRepository(time.Hour))
	client := searchapi.NewClient(opts.apiURL, opts.timeout)

	return &searchApp{
		sessions:     sessions,
		orchestrator: services.NewSearchOrchestrator(sessions, client, policy, nil, nil),
	}, nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
