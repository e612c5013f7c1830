package main

import (
	"fmt"
	"os"

	"github.com/aretw0/auraflow/internal/cli"
	"github.com/aretw0/auraflow/internal/config"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "auraflow",
	Short: "auraflow is an autonomous research, code and verify agent",
	Long: `auraflow turns a natural-language task into a program: it researches an approach,
generates code into a sandbox, runs the verification command and repairs the code
until the command passes.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("config", "", "Path to the configuration file (default ./auraflow.yaml if present)")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging on stderr")
	rootCmd.PersistentFlags().String("sandbox", "", "Override the sandbox directory")
	rootCmd.PersistentFlags().String("store", "", "Override the checkpoint backend: memory, file or redis")
}

// loadConfig reads the configuration and applies flag overrides.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, err
	}

	if v, _ := cmd.Flags().GetString("sandbox"); v != "" {
		cfg.Sandbox.Root = v
	}
	if v, _ := cmd.Flags().GetString("store"); v != "" {
		cfg.Store.Backend = v
	}
	return cfg, cfg.Validate()
}

// buildApp wires the application for cmd. Callers must Close it.
func buildApp(cmd *cobra.Command) (*cli.App, error) {
	return build(cmd, false)
}

// openStore wires only the session store, for commands that never run a task.
func openStore(cmd *cobra.Command) (*cli.App, error) {
	return build(cmd, true)
}

func build(cmd *cobra.Command, storeOnly bool) (*cli.App, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	debug, _ := cmd.Flags().GetBool("debug")
	return cli.Build(cmd.Context(), cfg, cli.BuildOptions{Debug: debug, StoreOnly: storeOnly})
}
