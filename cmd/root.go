package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/rkodali/adept/internal/app"
	"github.com/rkodali/adept/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "adept",
	Short: "Adaptive learning and mastery tracking engine",
	Long: "Adept tracks learner performance, adjusts difficulty, assesses concept\n" +
		"mastery, and plans progression through curricula.",
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "Path to SQLite database file (overrides ADEPT_DB env var)")
	rootCmd.PersistentFlags().String("config", "", "Path to config file")
	rootCmd.PersistentFlags().String("curricula", "", "Directory of curriculum YAML files")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(dueCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(versionCmd)
}

// openApp builds the application from the persistent flags. The caller
// owns the returned App and must Close it.
func openApp(cmd *cobra.Command) (*app.App, error) {
	dbPath, err := resolveDBPath(cmd)
	if err != nil {
		return nil, fmt.Errorf("resolve DB path: %w", err)
	}
	configPath, _ := cmd.Flags().GetString("config")
	curriculaDir, _ := cmd.Flags().GetString("curricula")
	verbose, _ := cmd.Flags().GetBool("verbose")

	log, err := buildLogger(verbose)
	if err != nil {
		return nil, err
	}

	return app.New(app.Options{
		DBPath:       dbPath,
		ConfigPath:   configPath,
		CurriculaDir: curriculaDir,
		Logger:       log,
	})
}

// resolveDBPath returns the database path using --db flag (highest
// priority), then ADEPT_DB env var, then the default XDG path.
func resolveDBPath(cmd *cobra.Command) (string, error) {
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		return p, store.EnsureDir(p)
	}
	return store.DefaultDBPath()
}

func buildLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		cfg.Encoding = "console"
	} else {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	}
	return cfg.Build()
}
