package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	empire "github.com/rickgao/empire-trade"
	"github.com/rickgao/empire-trade/internal/config"
	"github.com/rickgao/empire-trade/internal/logging"
)

// apiKeyEnv is read when neither --api-key nor the config file set a key.
const apiKeyEnv = "EMPIRE_API_KEY"

// app holds the state shared by all subcommands.
type app struct {
	// Global flags
	configPath string
	apiKey     string
	baseURL    string
	logLevel   string

	// Set by PersistentPreRunE
	cfg      *config.Config
	logger   *slog.Logger
	closeLog func() error

	// newClient is replaced in tests.
	newClient func(ctx context.Context, realtime bool) (*empire.Client, error)
}

func newRootCmd() *cobra.Command {
	a := &app{}
	a.newClient = a.defaultClient

	root := &cobra.Command{
		Use:   "empirectl",
		Short: "Command-line client for the CSGOEmpire trading API",
		Long: `empirectl calls the CSGOEmpire REST API and prints the responses as JSON.

The API key is taken from --api-key, the config file, or $EMPIRE_API_KEY.
Without a key requests are sent unauthenticated.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" {
				return nil
			}
			return a.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a.closeLog != nil {
				return a.closeLog()
			}
			return nil
		},
	}

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "YAML config file (optional)")
	root.PersistentFlags().StringVar(&a.apiKey, "api-key", "", "API key (overrides config and $"+apiKeyEnv+")")
	root.PersistentFlags().StringVar(&a.baseURL, "base-url", "", "REST base URL (overrides config)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn, error")

	root.AddCommand(
		newMetadataCmd(a),
		newTradesCmd(a),
		newAuctionsCmd(a),
		newInventoryCmd(a),
		newUniqueInfoCmd(a),
		newSettingsCmd(a),
		newListedCmd(a),
		newDepositCmd(a),
		newWithdrawCmd(a),
		newBidCmd(a),
		newStatusCmd(a),
		newWatchCmd(a),
		newVersionCmd(),
	)

	return root
}

// setup loads configuration, applies flag overrides and builds the logger.
func (a *app) setup(cmd *cobra.Command) error {
	var err error
	if a.configPath != "" {
		a.cfg, err = config.LoadWithDefaults(a.configPath)
		if err != nil {
			return fmt.Errorf("load config %s: %w", a.configPath, err)
		}
	} else {
		a.cfg = config.Default()
	}

	if a.apiKey != "" {
		a.cfg.API.APIKey = a.apiKey
	} else if a.cfg.API.APIKey == "" {
		a.cfg.API.APIKey = os.Getenv(apiKeyEnv)
	}
	if a.baseURL != "" {
		a.cfg.API.BaseURL = a.baseURL
	}
	if a.logLevel != "" {
		a.cfg.Logging.Level = a.logLevel
	}

	if err := a.cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	a.logger, a.closeLog, err = logging.New(a.cfg.Logging, cmd.ErrOrStderr())
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	slog.SetDefault(a.logger)
	return nil
}

func (a *app) defaultClient(ctx context.Context, realtime bool) (*empire.Client, error) {
	opts := []empire.Option{
		empire.WithAPIKey(a.cfg.API.APIKey),
		empire.WithBaseURL(a.cfg.API.BaseURL),
		empire.WithUserAgent(a.cfg.API.UserAgent),
		empire.WithTimeout(a.cfg.API.Timeout),
		empire.WithLogger(a.logger),
	}
	if realtime {
		opts = append(opts,
			empire.WithRealtime(true),
			empire.WithSocketConfig(a.cfg.Realtime.ManagerConfig()),
		)
	}
	return empire.New(ctx, opts...)
}

// api returns a REST-only client.
func (a *app) api(ctx context.Context) (*empire.APIClient, error) {
	c, err := a.newClient(ctx, false)
	if err != nil {
		return nil, err
	}
	return c.API(), nil
}

// printJSON writes v to the command's stdout as indented JSON.
func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid deposit id %q", s)
	}
	return id, nil
}
