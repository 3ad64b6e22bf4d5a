package repocfg

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// configName is the repo config file name without extension.
const configName = "codetally-repo"

// configType is the config file format.
const configType = "yaml"

// FileName is the bundled configuration file looked up at a repository root.
const FileName = configName + "." + configType

// envPrefix is the environment variable prefix for repo config settings.
const envPrefix = "CODETALLY_REPO"

// Load reads the repository configuration from file, env vars, and defaults.
// If configPath is non-empty, it is used as the explicit config file path.
// Otherwise, codetally-repo.yaml is searched in the current directory.
// Missing config file is not an error; defaults are used. Flag overrides are
// applied by the caller before Build.
func Load(configPath string) (*Config, error) {
	viperCfg := viper.New()

	applyDefaults(viperCfg)

	viperCfg.SetConfigType(configType)
	viperCfg.SetEnvPrefix(envPrefix)
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viperCfg.AutomaticEnv()

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName(configName)
		viperCfg.AddConfigPath(".")
	}

	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFound) {
			return nil, fmt.Errorf("read repo config: %w", readErr)
		}
	}

	var cfg Config

	unmarshalErr := viperCfg.Unmarshal(&cfg)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("unmarshal repo config: %w", unmarshalErr)
	}

	return &cfg, nil
}

func applyDefaults(viperCfg *viper.Viper) {
	viperCfg.SetDefault("root", ".")
	viperCfg.SetDefault("branch", "")
	viperCfg.SetDefault("timezone", "")
	viperCfg.SetDefault("since", "")
	viperCfg.SetDefault("until", "")
	viperCfg.SetDefault("file-line-limit", DefaultFileLineLimit)
	viperCfg.SetDefault("skip-vendored", false)
	viperCfg.SetDefault("last-modified", false)
	viperCfg.SetDefault("previous-authors", false)
	viperCfg.SetDefault("churn", false)
}
