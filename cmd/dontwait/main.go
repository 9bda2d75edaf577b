package main

import (
	"fmt"
	"os"

	"github.com/dontwait/dontwait/internal/config"
	"github.com/dontwait/dontwait/internal/db"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	envFile string
	verbose bool
	logger  *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "dontwait",
	Short: "DontWait marketing site and lead capture service",
	Long: `dontwait serves the DontWait landing page together with its lead forms,
the chat widget and the cookie banner.

Run without arguments to start the HTTP server.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.LoadDotEnv(envFile); err != nil {
			return err
		}
		var err error
		logger, err = newLogger(os.Getenv("LOG_LEVEL"), verbose)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd)
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd)
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending migrations to the local SQLite lead store",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		applied, err := db.Migrate(cfg.Store.DBPath)
		if err != nil {
			return err
		}
		if len(applied) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "database is up to date")
			return nil
		}
		for _, name := range applied {
			fmt.Fprintf(cmd.OutOrStdout(), "applied %s\n", name)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Dotenv file to load before reading the environment")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.AddCommand(serveCmd, migrateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(level string, verbose bool) (*zap.Logger, error) {
	zapConfig := zap.NewProductionConfig()
	parsed := zapcore.InfoLevel
	if level != "" {
		if err := parsed.Set(level); err != nil {
			return nil, err
		}
	}
	if verbose {
		parsed = zapcore.DebugLevel
	}
	zapConfig.Level = zap.NewAtomicLevelAt(parsed)
	return zapConfig.Build()
}
