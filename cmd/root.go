package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/abhisek/qcm/internal/api"
	"github.com/abhisek/qcm/internal/config"
	"github.com/abhisek/qcm/internal/store"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "qcm",
	Short: "Take a recruiting assessment in the terminal",
	Long: "qcm loads an assessment invitation, runs the multiple-choice test and\n" +
		"hands passing candidates over to the application form.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// logFile is the open log destination, closed after the command runs.
var logFile *os.File

func Execute(ctx context.Context) error {
	defer func() {
		if logFile != nil {
			_ = logFile.Close()
		}
	}()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "Path to the SQLite journal (overrides QCM_DB env var)")
	rootCmd.PersistentFlags().String("api-url", "", "Assessment backend base URL (overrides QCM_API_URL env var)")
	rootCmd.PersistentFlags().String("config", "", "Path to a YAML config file")

	rootCmd.AddCommand(takeCmd)
	rootCmd.AddCommand(inviteCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(outboxCmd)
	rootCmd.AddCommand(devserverCmd)
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig resolves the configuration with flag overrides and installs
// the JSON file logger as the default slog logger.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	file, _ := cmd.Flags().GetString("config")
	apiURL, _ := cmd.Flags().GetString("api-url")
	dbPath, _ := cmd.Flags().GetString("db")

	cfg, err := config.Load(config.LoadOptions{File: file, APIURL: apiURL, DBPath: dbPath})
	if err != nil {
		return nil, err
	}
	if err := setupLogging(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setupLogging points slog at the log file; stdout belongs to the TUI.
func setupLogging(cfg *config.Config) error {
	level, err := config.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	if err := store.EnsureDir(cfg.LogFile); err != nil {
		return fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	logFile = f
	slog.SetDefault(slog.New(slog.NewJSONHandler(f, &slog.HandlerOptions{Level: level})))
	return nil
}

// openStore opens the local journal.
func openStore(cfg *config.Config) (*store.Store, error) {
	if err := store.EnsureDir(cfg.DBPath); err != nil {
		return nil, fmt.Errorf("resolve database path: %w", err)
	}
	s, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return s, nil
}

func newClient(cfg *config.Config) *api.Client {
	return newClientFor(cfg, cfg.APIURL)
}

// newClientFor builds a client for apiURL with the configured transport
// settings.
func newClientFor(cfg *config.Config, apiURL string) *api.Client {
	return api.NewClient(apiURL,
		api.WithTimeout(cfg.HTTPTimeout),
		api.WithUserAgent("qcm/"+version),
		api.WithLogger(slog.Default()),
	)
}
