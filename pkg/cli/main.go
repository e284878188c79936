// Package cli builds the service command line: serve, version,
// healthcheck, indexes, seed and config.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/mealboard/marketplace/pkg/config"
	"github.com/mealboard/marketplace/pkg/observability/logger"
	"github.com/mealboard/marketplace/pkg/version"
)

// ServiceCommandOptions defines callbacks for service-specific logic.
type ServiceCommandOptions struct {
	Name        string
	Description string
	ConfigPath  string
	EnvPrefix   string

	// Required: server startup logic
	RunServer func(ctx context.Context, cfg *config.Config, log logger.Logger) error

	// Optional: dependency health checks
	CheckDependencies func(ctx context.Context, cfg *config.Config, log logger.Logger) error

	// Optional: index bootstrap
	EnsureIndexes func(ctx context.Context, cfg *config.Config, log logger.Logger) error

	// Optional: fixture loading from a YAML file
	Seed func(ctx context.Context, cfg *config.Config, log logger.Logger, fixtures io.Reader) error

	// Optional: custom config validation, run after the built-in validation
	ValidateConfig func(cfg *config.Config) error

	// Optional: additional custom commands
	CustomCommands []*cobra.Command
}

// NewServiceCommand creates the root command. Without a subcommand it serves.
func NewServiceCommand(opts ServiceCommandOptions) *cobra.Command {
	if opts.EnvPrefix == "" {
		opts.EnvPrefix = "APP"
	}

	rootCmd := &cobra.Command{
		Use:           opts.Name,
		Short:         opts.Description,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	var cfgPath string
	var serviceNameOverride string
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config-file", "c", opts.ConfigPath, "config file path")
	rootCmd.PersistentFlags().StringVar(&serviceNameOverride, "service-name", "", "service name override")
	config.RegisterFlags(rootCmd.PersistentFlags())

	loadConfig := func(flags *pflag.FlagSet) (*config.Config, logger.Logger, error) {
		return LoadConfigAndLogger(cfgPath, opts.EnvPrefix, opts.ValidateConfig, flags, opts.Name, serviceNameOverride)
	}

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			name := resolveServiceNameValue("", opts.Name, serviceNameOverride)
			info := version.Current(name)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Service:    %s\n", info.Service)
			fmt.Fprintf(out, "Version:    %s\n", info.Version)
			fmt.Fprintf(out, "Commit:     %s\n", info.Commit)
			fmt.Fprintf(out, "Build Time: %s\n", info.BuildTime)
			fmt.Fprintf(out, "Go:         %s\n", info.GoVersion)
		},
	})

	if opts.RunServer != nil {
		serveCmd := &cobra.Command{
			Use:   "serve",
			Short: "Start the public API and management servers",
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, log, err := loadConfig(cmd.Flags())
				if err != nil {
					return err
				}
				defer syncLogger(log)
				return opts.RunServer(cmd.Context(), cfg, log)
			},
		}
		rootCmd.AddCommand(serveCmd)
		rootCmd.RunE = serveCmd.RunE
	}

	if opts.CheckDependencies != nil {
		rootCmd.AddCommand(&cobra.Command{
			Use:   "healthcheck",
			Short: "Check connectivity to the database and cache",
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, log, err := loadConfig(cmd.Flags())
				if err != nil {
					return err
				}
				defer syncLogger(log)
				return opts.CheckDependencies(cmd.Context(), cfg, log)
			},
		})
	}

	if opts.EnsureIndexes != nil {
		rootCmd.AddCommand(&cobra.Command{
			Use:   "indexes",
			Short: "Create the MongoDB indexes for users and listings",
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, log, err := loadConfig(cmd.Flags())
				if err != nil {
					return err
				}
				defer syncLogger(log)
				return opts.EnsureIndexes(cmd.Context(), cfg, log)
			},
		})
	}

	if opts.Seed != nil {
		var fixturesPath string
		seedCmd := &cobra.Command{
			Use:   "seed",
			Short: "Load users and listings from a YAML fixtures file",
			RunE: func(cmd *cobra.Command, args []string) error {
				if fixturesPath == "" {
					return errors.New("--file is required")
				}
				f, err := os.Open(fixturesPath)
				if err != nil {
					return fmt.Errorf("open fixtures: %w", err)
				}
				defer f.Close()

				cfg, log, err := loadConfig(cmd.Flags())
				if err != nil {
					return err
				}
				defer syncLogger(log)
				return opts.Seed(cmd.Context(), cfg, log, f)
			},
		}
		seedCmd.Flags().StringVarP(&fixturesPath, "file", "f", "", "fixtures file (YAML)")
		rootCmd.AddCommand(seedCmd)
	}

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration commands",
	}
	configCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as YAML with credentials redacted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(cmd.Flags())
			if err != nil {
				return err
			}
			out, err := formatConfig(cfg)
			if err != nil {
				return err
			}
			_, err = io.WriteString(cmd.OutOrStdout(), out)
			return err
		},
	})
	rootCmd.AddCommand(configCmd)

	for _, custom := range opts.CustomCommands {
		rootCmd.AddCommand(custom)
	}
	return rootCmd
}

// LoadConfigAndLogger loads configuration with precedence flags > ENV >
// file > defaults and builds the zap logger it describes.
func LoadConfigAndLogger(
	cfgPath,
	envPrefix string,
	customValidator func(*config.Config) error,
	flags *pflag.FlagSet,
	defaultServiceName string,
	serviceNameOverride string,
) (*config.Config, logger.Logger, error) {
	cfg, err := config.NewViperLoader(cfgPath, resolveEnvPrefix(envPrefix)).WithFlags(flags).Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	cfg.Service.Name = resolveServiceNameValue(cfg.Service.Name, defaultServiceName, serviceNameOverride)

	if customValidator != nil {
		if err := customValidator(cfg); err != nil {
			return nil, nil, fmt.Errorf("custom validation failed: %w", err)
		}
	}

	log, err := logger.NewZapLogger(logger.Config{
		Level:   logger.LogLevel(cfg.Observability.LogLevel),
		Format:  logger.LogFormat(cfg.Observability.LogFormat),
		Service: cfg.Service.Name,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("create logger: %w", err)
	}
	logConfigIfDebug(log, cfg)
	return cfg, log, nil
}

// Execute runs the command and exits with status 1 on error.
func Execute(cmd *cobra.Command) {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// formatConfig renders cfg as YAML. Passwords in connection URLs are masked.
func formatConfig(cfg *config.Config) (string, error) {
	redacted := *cfg
	redacted.Database.URL = redactURL(cfg.Database.URL)
	redacted.Cache.URL = redactURL(cfg.Cache.URL)
	data, err := yaml.Marshal(redacted)
	if err != nil {
		return "", fmt.Errorf("marshal config: %w", err)
	}
	return string(data), nil
}

func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	return u.Redacted()
}

func logConfigIfDebug(log logger.Logger, cfg *config.Config) {
	if !strings.EqualFold(cfg.Observability.LogLevel, string(logger.DebugLevel)) {
		return
	}
	out, err := formatConfig(cfg)
	if err != nil {
		return
	}
	log.Debug("effective configuration", "config", out)
}

func syncLogger(log logger.Logger) {
	if z, ok := log.(*logger.ZapLogger); ok {
		_ = z.Sync()
	}
}

func resolveEnvPrefix(prefix string) string {
	trimmed := strings.TrimSpace(prefix)
	if trimmed == "" {
		return "APP"
	}
	return strings.ToUpper(trimmed)
}

func resolveServiceNameValue(currentConfigName, defaultServiceName, serviceNameOverride string) string {
	if override := strings.TrimSpace(serviceNameOverride); override != "" {
		return override
	}
	if configured := strings.TrimSpace(currentConfigName); configured != "" {
		return configured
	}
	if fallback := strings.TrimSpace(defaultServiceName); fallback != "" {
		return fallback
	}
	return "app"
}
