package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// configName is the config file name without extension.
const configName = ".pyrefactor"

// configType is the config file format.
const configType = "yaml"

// envPrefix is the environment variable prefix for pyrefactor settings.
const envPrefix = "PYREFACTOR"

// envKeySeparator is the nested key separator in environment variable names.
const envKeySeparator = "_"

// LoadConfig loads configuration from file, env vars, and defaults.
// If configPath is non-empty, it is used as the explicit config file path.
// Otherwise, the config file is searched in CWD and $HOME.
// Missing config file is not an error; defaults are used.
func LoadConfig(configPath string) (*Config, error) {
	viperCfg := viper.New()

	applyDefaults(viperCfg)

	viperCfg.SetConfigType(configType)
	viperCfg.SetEnvPrefix(envPrefix)
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", envKeySeparator))
	viperCfg.AutomaticEnv()

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName(configName)
		viperCfg.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viperCfg.AddConfigPath(home)
		}
	}

	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFound) {
			return nil, fmt.Errorf("read config: %w", readErr)
		}
	}

	var cfg Config

	unmarshalErr := viperCfg.Unmarshal(&cfg)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("unmarshal config: %w", unmarshalErr)
	}

	validateErr := cfg.Validate()
	if validateErr != nil {
		return nil, fmt.Errorf("validate config: %w", validateErr)
	}

	return &cfg, nil
}

// Default returns the configuration used when no file or environment
// overrides are present.
func Default() *Config {
	return &Config{
		Render: RenderConfig{Mode: DefaultRenderMode},
		Modernize: ModernizeConfig{
			PkgResourcesModule:   DefaultPkgResourcesModule,
			PkgResourcesFunction: DefaultPkgResourcesFunction,
		},
		Batch: BatchConfig{
			Workers:        DefaultBatchWorkers,
			MaxFileSize:    DefaultBatchMaxFileSize,
			BackupDir:      DefaultBatchBackupDir,
			Report:         DefaultBatchReport,
			GitTrackedOnly: DefaultBatchGitTrackedOnly,
			ExcludeVendor:  DefaultBatchExcludeVendor,
		},
		Log: LogConfig{Level: DefaultLogLevel, JSON: DefaultLogJSON},
		Telemetry: TelemetryConfig{
			Endpoint:    DefaultTelemetryEndpoint,
			Insecure:    DefaultTelemetryInsecure,
			SampleRatio: DefaultTelemetrySampleRatio,
			MetricsFile: DefaultTelemetryMetricsFile,
		},
	}
}

func applyDefaults(viperCfg *viper.Viper) {
	viperCfg.SetDefault("render.mode", DefaultRenderMode)

	viperCfg.SetDefault("modernize.pkg_resources_module", DefaultPkgResourcesModule)
	viperCfg.SetDefault("modernize.pkg_resources_function", DefaultPkgResourcesFunction)

	viperCfg.SetDefault("batch.workers", DefaultBatchWorkers)
	viperCfg.SetDefault("batch.max_file_size", DefaultBatchMaxFileSize)
	viperCfg.SetDefault("batch.backup_dir", DefaultBatchBackupDir)
	viperCfg.SetDefault("batch.report", DefaultBatchReport)
	viperCfg.SetDefault("batch.git_tracked_only", DefaultBatchGitTrackedOnly)
	viperCfg.SetDefault("batch.exclude_vendor", DefaultBatchExcludeVendor)

	viperCfg.SetDefault("log.level", DefaultLogLevel)
	viperCfg.SetDefault("log.json", DefaultLogJSON)

	viperCfg.SetDefault("telemetry.endpoint", DefaultTelemetryEndpoint)
	viperCfg.SetDefault("telemetry.insecure", DefaultTelemetryInsecure)
	viperCfg.SetDefault("telemetry.sample_ratio", DefaultTelemetrySampleRatio)
	viperCfg.SetDefault("telemetry.metrics_file", DefaultTelemetryMetricsFile)
}
