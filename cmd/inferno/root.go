package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mmcdole/inferno/internal/config"
	"github.com/mmcdole/inferno/internal/log"
	"github.com/mmcdole/inferno/internal/security"
	"github.com/mmcdole/inferno/internal/store"
)

// app carries what PersistentPreRunE loaded to the subcommands
type app struct {
	v      *viper.Viper
	cfg    *config.Config
	logger *slog.Logger
	closer io.Closer
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	cmd := &cobra.Command{
		Use:           "inferno",
		Short:         "Terminal shell for the Egg Inferno web game",
		Long:          "Loads the Egg Inferno game page, tracks load progress and connectivity, and hands the page to your browser once it is ready.",
		SilenceUsage:  true,
		SilenceErrors: true,

		// Runs before this command and any subcommands
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.close()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			headless, _ := cmd.Flags().GetBool("headless")
			return runShell(cmd.Context(), a, headless, cmd.OutOrStdout())
		},
	}

	pflags := cmd.PersistentFlags()
	pflags.String("config-dir", "", "directory containing config.yaml and .env")
	pflags.String("endpoint", "", "game page URL")
	pflags.String("log-level", "", "log level (DEBUG, INFO, WARN, ERROR)")
	pflags.String("log-file", "", "log file path")
	pflags.String("store", "", "preference database path")
	cmd.Flags().Bool("open", false, "open the page in a browser as soon as it has loaded")
	cmd.Flags().Bool("headless", false, "print status lines instead of the interactive UI")

	// Flags only override when set, so config and environment still apply
	_ = a.v.BindPFlag("endpoint.url", pflags.Lookup("endpoint"))
	_ = a.v.BindPFlag("logging.level", pflags.Lookup("log-level"))
	_ = a.v.BindPFlag("logging.file", pflags.Lookup("log-file"))
	_ = a.v.BindPFlag("storage.path", pflags.Lookup("store"))
	_ = a.v.BindPFlag("browser.auto_open", cmd.Flags().Lookup("open"))

	cmd.AddCommand(
		newTokenCmd(a),
		newEncryptCmd(a),
		newDecryptCmd(a),
		newValidateCmd(a),
		newImportCmd(a),
		newEventsCmd(a),
		newSessionCmd(a),
		newKeysCmd(a),
		newResetCmd(a),
		newConfigCmd(a),
		newVersionCmd(),
	)
	cmd.CompletionOptions.HiddenDefaultCmd = true
	return cmd
}

// load reads configuration and sets up logging
func (a *app) load(cmd *cobra.Command) error {
	dir, _ := cmd.Flags().GetString("config-dir")

	cfg, err := config.Load(a.v, dir)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	a.cfg = cfg

	logger, closer, err := log.SetupLogger(&cfg.Logging)
	if err != nil {
		// Fall back to null logger if file logging fails
		logger = log.NullLogger()
		closer = nil
	}
	a.logger = logger
	a.closer = closer
	slog.SetDefault(logger)

	logger.Debug("config loaded", "endpoint", cfg.Endpoint.URL, "store", cfg.Storage.Path)
	return nil
}

func (a *app) close() error {
	if a.closer == nil {
		return nil
	}
	err := a.closer.Close()
	a.closer = nil
	return err
}

// helper builds the security helper for the configured allow-list
func (a *app) helper() (*security.Helper, error) {
	h, err := security.NewHelper(security.WithAllowedHosts(a.cfg.Endpoint.AllowedHosts...))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize security helper: %w", err)
	}
	return h, nil
}

// openStore opens the preference store with values encrypted by h
func (a *app) openStore(h *security.Helper) (*store.PrefStore, error) {
	path, err := config.ExpandHome(a.cfg.Storage.Path)
	if err != nil {
		return nil, err
	}
	st, err := store.NewPrefStore(path, a.cfg.Storage.KeyPrefix, h)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	return st, nil
}
