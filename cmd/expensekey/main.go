package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/automaxprocs/maxprocs"

	"github.com/mmynk/expensekey/internal/config"
	"github.com/mmynk/expensekey/pkg/logging"
)

const programName = "expensekey"

// Set at build time with -ldflags "-X main.version=...".
var version = "devel"

var (
	globalFlags = struct {
		debug bool
	}{}
	configFile string
)

type configKey struct{}

func configFromContext(ctx context.Context) *config.Config {
	cfg, _ := ctx.Value(configKey{}).(*config.Config)
	return cfg
}

func slogPrintf(format string, v ...any) {
	slog.Info(fmt.Sprintf(format, v...),
		"component", programName,
	)
}

// commonRun sets up logging for a command and tunes GOMAXPROCS.
func commonRun(cfg *config.Config) *slog.Logger {
	level, err := config.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = slog.LevelInfo
	}
	if globalFlags.debug {
		level = slog.LevelDebug
	}
	logger := logging.Setup(level)

	if _, err := maxprocs.Set(maxprocs.Logger(slogPrintf)); err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}
	logger.Info("version: "+version, "component", programName)
	return logger
}

func main() {
	rootCmd := &cobra.Command{
		Use:          programName,
		Short:        "Shared expense ledger with unanimous approval",
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().
		BoolVarP(&globalFlags.debug, "debug", "D", false, "enable debug logging")
	rootCmd.PersistentFlags().
		StringVar(&configFile, "config", "", "path to config file")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		// A missing .env file is fine.
		_ = godotenv.Load()

		cfg, err := config.Load(configFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		cmd.SetContext(context.WithValue(cmd.Context(), configKey{}, cfg))
		return nil
	}

	rootCmd.AddCommand(serveCommand())
	rootCmd.AddCommand(groupsCommand())
	rootCmd.AddCommand(balancesCommand())
	rootCmd.AddCommand(versionCommand())

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return nil
		},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s %s\n", programName, version)
		},
	}
}
