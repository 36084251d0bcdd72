// Package commands implements the pyrefactor subcommands.
package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/pyrefactor/pkg/config"
	"github.com/Sumatoshi-tech/pyrefactor/pkg/observability"
	"github.com/Sumatoshi-tech/pyrefactor/pkg/recipe"
	"github.com/Sumatoshi-tech/pyrefactor/pkg/unparse"
	"github.com/Sumatoshi-tech/pyrefactor/pkg/version"
)

const (
	configFlag  = "config"
	verboseFlag = "verbose"
	modeFlag    = "mode"
)

// Environment variables shared with every OpenTelemetry SDK. They take
// precedence over the config file.
const (
	envOTLPEndpoint = "OTEL_EXPORTER_OTLP_ENDPOINT"
	envOTLPHeaders  = "OTEL_EXPORTER_OTLP_HEADERS"
	envOTLPInsecure = "OTEL_EXPORTER_OTLP_INSECURE"
)

// RegisterGlobalFlags adds the flags every subcommand understands.
func RegisterGlobalFlags(root *cobra.Command) {
	root.PersistentFlags().String(configFlag, "", "config file (default .pyrefactor.yaml in CWD or $HOME)")
	root.PersistentFlags().BoolP(verboseFlag, "v", false, "verbose output")
}

// environment is what a command needs after startup: validated
// configuration, telemetry providers and a configured recipe applier.
type environment struct {
	cfg       *config.Config
	providers observability.Providers
	metrics   *observability.OperationMetrics
	applier   *recipe.Applier
	mode      unparse.Mode
	logger    *slog.Logger
}

func newEnvironment(cmd *cobra.Command, appMode observability.AppMode, jsonLogs bool) (*environment, error) {
	cfg, err := config.LoadConfig(stringFlag(cmd, configFlag))
	if err != nil {
		return nil, err
	}

	obsCfg, err := observabilityConfig(cmd, cfg, appMode)
	if err != nil {
		return nil, err
	}

	obsCfg.LogJSON = obsCfg.LogJSON || jsonLogs

	providers, err := observability.Init(obsCfg)
	if err != nil {
		return nil, fmt.Errorf("init observability: %w", err)
	}

	metrics, err := observability.NewOperationMetrics(providers.Meter)
	if err != nil {
		return nil, errors.Join(err, providers.Shutdown(context.Background()))
	}

	mode, err := cfg.Render.ParsedMode()
	if err != nil {
		return nil, errors.Join(err, providers.Shutdown(context.Background()))
	}

	if cmd.Flags().Changed(modeFlag) {
		mode, err = unparse.ParseMode(stringFlag(cmd, modeFlag))
		if err != nil {
			return nil, errors.Join(err, providers.Shutdown(context.Background()))
		}
	}

	applier := recipe.NewApplier(
		recipe.WithVersionTarget(cfg.Modernize.PkgResourcesModule, cfg.Modernize.PkgResourcesFunction),
		recipe.WithImportMappings(cfg.Modernize.Mappings()...),
		recipe.WithLogger(providers.Logger),
	)

	return &environment{
		cfg:       cfg,
		providers: providers,
		metrics:   metrics,
		applier:   applier,
		mode:      mode,
		logger:    providers.Logger,
	}, nil
}

func observabilityConfig(cmd *cobra.Command, cfg *config.Config, appMode observability.AppMode) (observability.Config, error) {
	level, err := cfg.Log.SlogLevel()
	if err != nil {
		return observability.Config{}, err
	}

	obsCfg := observability.DefaultConfig()
	obsCfg.ServiceVersion = version.Version
	obsCfg.Mode = appMode
	obsCfg.OTLPEndpoint = cfg.Telemetry.Endpoint
	obsCfg.OTLPHeaders = cfg.Telemetry.Headers
	obsCfg.OTLPInsecure = cfg.Telemetry.Insecure
	obsCfg.SampleRatio = cfg.Telemetry.SampleRatio
	obsCfg.MetricsFile = cfg.Telemetry.MetricsFile
	obsCfg.LogLevel = level
	obsCfg.LogJSON = cfg.Log.JSON
	obsCfg.LogOutput = cmd.ErrOrStderr()

	if endpoint := os.Getenv(envOTLPEndpoint); endpoint != "" {
		obsCfg.OTLPEndpoint = endpoint
		obsCfg.OTLPHeaders = observability.ParseOTLPHeaders(os.Getenv(envOTLPHeaders))
		obsCfg.OTLPInsecure = os.Getenv(envOTLPInsecure) == "true"
	}

	if boolFlag(cmd, verboseFlag) {
		obsCfg.LogLevel = slog.LevelDebug
		obsCfg.DebugTrace = true
	}

	return obsCfg, nil
}

// close flushes telemetry. Failures are logged, never returned, so they
// cannot mask the command's own result.
func (env *environment) close() {
	err := env.providers.Shutdown(context.Background())
	if err != nil {
		env.logger.Warn("observability shutdown failed", "error", err)
	}
}

// stringFlag reads a local or inherited flag, returning "" when the
// command does not define it.
func stringFlag(cmd *cobra.Command, name string) string {
	flag := cmd.Flag(name)
	if flag == nil {
		return ""
	}

	return flag.Value.String()
}

func boolFlag(cmd *cobra.Command, name string) bool {
	flag := cmd.Flag(name)

	return flag != nil && flag.Value.String() == "true"
}
