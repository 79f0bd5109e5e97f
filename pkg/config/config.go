/*
Package config manages TOML config for wikibot.

Values are read from config.toml and then overridden by WIKIBOT_*
environment variables:

	[server]
	max_batch = 500
	parse_cache_size = 1024
	job_timeout_seconds = 60

	[site]
	path = "enwiki"
	default_namespace = 0
*/
package config

import (
	"os"
	"path/filepath"

	"github.com/bastiangx/wikibot/internal/utils"
	"github.com/charmbracelet/log"
	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds the entire config structure
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Site     SiteConfig     `toml:"site"`
	CLI      CliConfig      `toml:"cli"`
	Worklist WorklistConfig `toml:"worklist"`
	Log      LogConfig      `toml:"log"`
}

// ServerConfig has IPC server options.
type ServerConfig struct {
	MaxBatch          int `toml:"max_batch" env:"WIKIBOT_MAX_BATCH"`
	ParseCacheSize    int `toml:"parse_cache_size" env:"WIKIBOT_PARSE_CACHE_SIZE"`
	JobTimeoutSeconds int `toml:"job_timeout_seconds" env:"WIKIBOT_JOB_TIMEOUT"`
}

// SiteConfig selects the wiki titles are parsed against.
type SiteConfig struct {
	Path             string `toml:"path" env:"WIKIBOT_SITE"`
	DefaultNamespace int    `toml:"default_namespace" env:"WIKIBOT_DEFAULT_NAMESPACE"`
}

// CliConfig holds cli interface options.
type CliConfig struct {
	ShowOriginal  bool `toml:"show_original" env:"WIKIBOT_SHOW_ORIGINAL"`
	NaturalSort   bool `toml:"natural_sort" env:"WIKIBOT_NATURAL_SORT"`
	AllowRelative bool `toml:"allow_relative" env:"WIKIBOT_ALLOW_RELATIVE"`
}

// WorklistConfig locates the worklist database.
type WorklistConfig struct {
	DBPath string `toml:"db_path" env:"WIKIBOT_WORKLIST_DB"`
}

// LogConfig controls the default logger.
type LogConfig struct {
	Level      string `toml:"level" env:"WIKIBOT_LOG_LEVEL"`
	Format     string `toml:"format" env:"WIKIBOT_LOG_FORMAT"`
	Timestamps bool   `toml:"timestamps" env:"WIKIBOT_LOG_TIMESTAMPS"`
}

// GetConfigDir returns the config directory with fallback priority:
// 1. ~/.config/wikibot
// 2. ~/Library/Application Support/wikibot (macOS)
// 3. Current executable dir
func GetConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Errorf("Failed to get home directory: %v", err)
		return utils.GetExecutableDir()
	}
	primaryPath := filepath.Join(homeDir, ".config", "wikibot")
	if result := utils.CheckDirStatus(primaryPath); result.Writable {
		return primaryPath, nil
	}
	macOSPath := filepath.Join(homeDir, "Library", "Application Support", "wikibot")
	if result := utils.CheckDirStatus(macOSPath); result.Writable {
		return macOSPath, nil
	}
	execDir, err := utils.GetExecutableDir()
	if err != nil {
		log.Errorf("Failed to get executable directory: %v", err)
		return "", err
	}
	return execDir, nil
}

// GetDefaultConfigPath returns the default path for config.toml
func GetDefaultConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.toml"), nil
}

// LoadConfigWithPriority loads config with priority:
// 1. Custom path from --config flag
// 2. Default path: [UserConfigDir]/wikibot/config.toml
// 3. Builtin defaults
//
// Environment overrides apply in every case.
func LoadConfigWithPriority(customConfigPath string) (*Config, string, error) {
	if customConfigPath != "" {
		if _, statErr := os.Stat(customConfigPath); statErr == nil {
			config, err := LoadConfig(customConfigPath)
			if err != nil {
				log.Warnf("Failed to load custom config from %s: %v. Trying default path...", customConfigPath, err)
			} else {
				log.Debugf("Loaded config from custom path: %s", customConfigPath)
				return config, customConfigPath, nil
			}
		} else {
			log.Warnf("Custom config file not found at %s: %v. Trying default path...", customConfigPath, statErr)
		}
	}

	defaultPath, err := GetDefaultConfigPath()
	if err != nil {
		log.Warnf("Failed to determine default config path: %v. Using built-in defaults...", err)
		return withEnv(DefaultConfig()), "", nil
	}
	config, err := InitConfig(defaultPath)
	if err != nil {
		log.Warnf("Failed to load/create config at default path %s: %v. Using builtin defaults...", defaultPath, err)
		return withEnv(DefaultConfig()), "", nil
	}
	log.Debugf("Loaded config from default path: %s", defaultPath)
	return config, defaultPath, nil
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			MaxBatch:          500,
			ParseCacheSize:    1024,
			JobTimeoutSeconds: 60,
		},
		Site: SiteConfig{
			Path:             "",
			DefaultNamespace: 0,
		},
		CLI: CliConfig{
			ShowOriginal:  false,
			NaturalSort:   true,
			AllowRelative: false,
		},
		Worklist: WorklistConfig{
			DBPath: "worklists.db",
		},
		Log: LogConfig{
			Level:      "warn",
			Format:     "text",
			Timestamps: false,
		},
	}
}

// InitConfig loads config from file or creates default if missing
func InitConfig(configPath string) (*Config, error) {
	configDir := filepath.Dir(configPath)

	if err := utils.EnsureDir(configDir); err != nil {
		log.Warnf("Failed to create config directory %s: %v. Using built-in defaults...", configDir, err)
		return withEnv(DefaultConfig()), nil
	}

	if !utils.FileExists(configPath) {
		config := DefaultConfig()
		if err := SaveConfig(config, configPath); err != nil {
			log.Warnf("Failed to create default config file at %s: %v. Using built-in defaults...", configPath, err)
			return withEnv(DefaultConfig()), nil
		}
		log.Debugf("Created default config file at: %s", configPath)
		return withEnv(config), nil
	}

	config, err := LoadConfig(configPath)
	if err != nil {
		log.Warnf("Failed to load config from %s: %v. Using built-in defaults...", configPath, err)
		return withEnv(DefaultConfig()), nil
	}
	return config, nil
}

// LoadConfig loads from a TOML file and applies environment overrides.
func LoadConfig(configPath string) (*Config, error) {
	config := DefaultConfig()

	unknown, err := utils.LoadTOMLFile(configPath, config)
	if err != nil {
		return tryPartialParse(configPath)
	}
	for _, key := range unknown {
		log.Warnf("Unknown config key %q in %s", key, configPath)
	}
	return withEnv(config), nil
}

// withEnv overlays WIKIBOT_* variables. Unset variables keep file values.
func withEnv(config *Config) *Config {
	if err := cleanenv.ReadEnv(config); err != nil {
		log.Warnf("Ignoring invalid environment override: %v", err)
	}
	return config
}

// tryPartialParse keeps every section that still decodes
func tryPartialParse(configPath string) (*Config, error) {
	config := DefaultConfig()

	tempConfig, err := utils.ParseTOMLWithRecovery(configPath)
	if err != nil {
		log.Warnf("Could not parse any valid configuration from %s: %v. Using all defaults.", configPath, err)
		return withEnv(config), nil
	}

	if section, ok := utils.ExtractSection(tempConfig, "server"); ok {
		extractServerConfig(section, &config.Server)
	}
	if section, ok := utils.ExtractSection(tempConfig, "site"); ok {
		extractSiteConfig(section, &config.Site)
	}
	if section, ok := utils.ExtractSection(tempConfig, "cli"); ok {
		extractCliConfig(section, &config.CLI)
	}
	if section, ok := utils.ExtractSection(tempConfig, "worklist"); ok {
		if val, ok := utils.ExtractString(section, "db_path"); ok {
			config.Worklist.DBPath = val
		}
	}
	if section, ok := utils.ExtractSection(tempConfig, "log"); ok {
		extractLogConfig(section, &config.Log)
	}
	return withEnv(config), nil
}

func extractServerConfig(data map[string]any, server *ServerConfig) {
	if val, ok := utils.ExtractInt64(data, "max_batch"); ok {
		server.MaxBatch = val
	}
	if val, ok := utils.ExtractInt64(data, "parse_cache_size"); ok {
		server.ParseCacheSize = val
	}
	if val, ok := utils.ExtractInt64(data, "job_timeout_seconds"); ok {
		server.JobTimeoutSeconds = val
	}
}

func extractSiteConfig(data map[string]any, site *SiteConfig) {
	if val, ok := utils.ExtractString(data, "path"); ok {
		site.Path = val
	}
	if val, ok := utils.ExtractInt64(data, "default_namespace"); ok {
		site.DefaultNamespace = val
	}
}

func extractCliConfig(data map[string]any, cli *CliConfig) {
	if val, ok := utils.ExtractBool(data, "show_original"); ok {
		cli.ShowOriginal = val
	}
	if val, ok := utils.ExtractBool(data, "natural_sort"); ok {
		cli.NaturalSort = val
	}
	if val, ok := utils.ExtractBool(data, "allow_relative"); ok {
		cli.AllowRelative = val
	}
}

func extractLogConfig(data map[string]any, l *LogConfig) {
	if val, ok := utils.ExtractString(data, "level"); ok {
		l.Level = val
	}
	if val, ok := utils.ExtractString(data, "format"); ok {
		l.Format = val
	}
	if val, ok := utils.ExtractBool(data, "timestamps"); ok {
		l.Timestamps = val
	}
}

// RebuildConfigFile overwrites the config at configPath, or at the default
// location when it is empty, with the defaults. It returns the path written.
func RebuildConfigFile(configPath string) (string, error) {
	if configPath == "" {
		defaultPath, err := GetDefaultConfigPath()
		if err != nil {
			return "", err
		}
		configPath = defaultPath
	}
	if err := utils.EnsureDir(filepath.Dir(configPath)); err != nil {
		return "", err
	}
	if err := SaveConfig(DefaultConfig(), configPath); err != nil {
		return "", err
	}
	log.Infof("Wrote default config to %s", configPath)
	return configPath, nil
}

// GetActiveConfigPath returns the absolute path of loaded config file
func GetActiveConfigPath(configPath string) string {
	if configPath == "" {
		if defaultPath, err := GetDefaultConfigPath(); err == nil {
			return defaultPath
		}
		return "unknown"
	}
	return utils.GetAbsolutePath(configPath)
}

// SaveConfig saves into a TOML file
func SaveConfig(config *Config, configPath string) error {
	return utils.SaveTOMLFile(config, configPath)
}
