package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/papapumpkin/vchain/internal/chain"
	"github.com/papapumpkin/vchain/internal/checkpoint"
	"github.com/papapumpkin/vchain/internal/config"
	"github.com/papapumpkin/vchain/internal/metrics"
	"github.com/papapumpkin/vchain/internal/ui"
	"github.com/papapumpkin/vchain/internal/workflow"
)

var rootCmd = &cobra.Command{
	Use:   "vchain",
	Short: "Document chain consistency engine",
	Long: "vchain checks cross-references between the documents of a V-model chain and " +
		"drives change requests through impact analysis, approval, step-by-step propagation, " +
		"and validation.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		ui.New().Error(err.Error())
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default .vchain.yaml)")
	rootCmd.PersistentFlags().StringP("workspace", "w", "", "document workspace (default .)")
	rootCmd.PersistentFlags().String("project", "", "project config, relative to the workspace (default vchain.toml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output")

	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("project_config", rootCmd.PersistentFlags().Lookup("project"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

func initConfig() {
	if cfgFile, _ := rootCmd.Flags().GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName(".vchain")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}
	}

	viper.SetEnvPrefix("VCHAIN")
	viper.AutomaticEnv()

	// It's fine if no config file is found; we use defaults.
	_ = viper.ReadInConfig()
}

// app bundles what every command needs.
type app struct {
	cfg     config.Config
	logger  *slog.Logger
	printer *ui.Printer
	svc     *workflow.Service
}

// newApp loads configuration and builds the workflow service. Callers must
// Close the returned app.
func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	mode, err := checkpoint.ParseMode(cfg.Checkpoint)
	if err != nil {
		return nil, fmt.Errorf("checkpoint: %w", err)
	}
	logger := cfg.NewLogger(os.Stderr)
	slog.SetDefault(logger)

	svc := workflow.New(chain.Default(), workflow.Options{
		StateDir:       cfg.StateDir,
		ProjectConfig:  cfg.ProjectConfig,
		CheckpointMode: mode,
		DisableAudit:   !cfg.Audit,
		Logger:         logger,
		Metrics:        metrics.New(cfg.MetricsFile),
	})
	return &app{cfg: cfg, logger: logger, printer: ui.New(), svc: svc}, nil
}

func (a *app) Close() {
	if err := a.svc.Close(); err != nil {
		a.logger.Warn("closing service", "error", err)
	}
}
