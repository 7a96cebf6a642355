// Package cli provides the command-line interface for oculus.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/tclaughridge/Oculus-Data-Pipeline/internal/config"
	"github.com/tclaughridge/Oculus-Data-Pipeline/internal/db"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	verbose    bool
	configFile string

	// Global config and logger
	cfg         config.Config
	logger      *slog.Logger
	interactive bool

	closeLogger = func() error { return nil }

	// Lazily connected graph store
	dbClient *db.Client
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "oculus",
	Short: "Document graph pipeline",
	Long: `Oculus converts XML document volumes into a knowledge graph.

Each document is parsed, its index terms are classified by a language model,
people, places and organizations are given canonical identifiers, and the
result is written to SurrealDB. Documents run concurrently under a fixed cap;
one failing document never stops the batch.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		var err error
		if configFile == "" {
			configFile = os.Getenv("OCULUS_CONFIG")
		}
		if configFile != "" {
			cfg, err = config.LoadFile(configFile)
			if err != nil {
				return err
			}
		} else {
			cfg = config.Load()
		}
		if verbose {
			cfg.LogLevel = slog.LevelDebug
		}

		interactive = interactive && term.IsTerminal(int(os.Stdout.Fd()))
		if interactive {
			logger, closeLogger = config.SetupFileLogger(cfg.LogFile, cfg.LogLevel)
		} else {
			logger, closeLogger = config.SetupLogger(cfg.LogFile, cfg.LogLevel)
		}
		slog.SetDefault(logger)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if dbClient != nil {
			if err := dbClient.Close(context.Background()); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to close database: %v\n", err)
			}
		}
		_ = closeLogger()
	},
}

// connectDB opens the SurrealDB client and ensures the schema exists.
func connectDB(ctx context.Context) (*db.Client, error) {
	if dbClient != nil {
		return dbClient, nil
	}
	dbCfg := db.Config{
		URL:       cfg.SurrealDBURL,
		Namespace: cfg.SurrealDBNamespace,
		Database:  cfg.SurrealDBDatabase,
		Username:  cfg.SurrealDBUser,
		Password:  cfg.SurrealDBPass,
		AuthLevel: cfg.SurrealDBAuthLevel,
		PoolSize:  cfg.SessionPoolSize,
	}

	client, err := db.NewClient(ctx, dbCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := client.InitSchema(ctx); err != nil {
		_ = client.Close(ctx)
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	dbClient = client
	return client, nil
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "YAML config file (default $OCULUS_CONFIG)")

	// Add subcommands
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(runsCmd)
	rootCmd.AddCommand(authorityCmd)
}
