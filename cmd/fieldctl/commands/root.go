// Package commands implements the fieldctl operations CLI. Every command
// works directly against the configured store.
package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/cuongbtq/fieldops-be/internal/bootstrap"
	"github.com/cuongbtq/fieldops-be/internal/config"
	"github.com/cuongbtq/fieldops-be/shared/logger"
	"github.com/spf13/cobra"
)

// flag names
const (
	flagConfig = "config"
)

// environment variable names
const (
	envConfigPath = "FIELDCTL_CONFIG_PATH"
)

const defaultConfigPath = "configs/api-service/config.yaml"

// env holds what PersistentPreRunE opened for the running command
type env struct {
	configPath string
	cfg        *config.Config
	logger     *logger.Logger
	services   *bootstrap.Services
}

func (e *env) close() {
	if e.services != nil {
		e.services.Close()
		e.services = nil
	}
	if e.logger != nil {
		e.logger.Close()
		e.logger = nil
	}
}

// NewRootCmd builds the fieldctl command tree
func NewRootCmd() *cobra.Command {
	e := &env{}

	root := &cobra.Command{
		Use:           "fieldctl",
		Short:         "fieldctl - operations CLI for the field service backend",
		Long:          `fieldctl migrates the database, provisions principals and inspects or moves jobs using the same YAML configuration as the services.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Flag > env var > default
			if !cmd.Flags().Changed(flagConfig) {
				if envPath := os.Getenv(envConfigPath); envPath != "" {
					e.configPath = envPath
				}
			}
			// cobra checks required flags only after this hook
			if err := cmd.ValidateRequiredFlags(); err != nil {
				return err
			}
			return e.open(cmd)
		},
	}

	root.PersistentFlags().StringVarP(&e.configPath, flagConfig, "c", defaultConfigPath, "Path to configuration file (env: "+envConfigPath+")")

	root.AddCommand(newMigrateCmd(e))
	root.AddCommand(newPrincipalCmd(e))
	root.AddCommand(newJobCmd(e))

	return root
}

func (e *env) open(cmd *cobra.Command) error {
	cfg, err := config.Load(e.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// stdout carries command output
	logCfg := cfg.LoggerConfig()
	if logCfg.Output == "" || logCfg.Output == "stdout" {
		logCfg.Output = "stderr"
	}
	appLogger, err := logger.New(logCfg)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	services, err := bootstrap.Open(cmd.Context(), cfg, appLogger.Logger)
	if err != nil {
		appLogger.Close()
		return err
	}

	e.cfg = cfg
	e.logger = appLogger
	e.services = services
	return nil
}

// runE closes what PersistentPreRunE opened once fn returns
func (e *env) runE(fn func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		defer e.close()
		return fn(cmd, args)
	}
}

// requireSQL rejects commands that make no sense against the memory store
func (e *env) requireSQL(command string) error {
	if e.services.SQL == nil {
		return fmt.Errorf("%s requires a SQL database, the %q driver keeps nothing", command, e.cfg.Database.Driver)
	}
	return nil
}

func printJSON(cmd *cobra.Command, v any) error {
	pretty, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("error formatting response: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(pretty))
	return nil
}
