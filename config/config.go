package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration settings for the application.
// It maps directly to the structure of novascp.yml.
type Config struct {
	Port        int    `mapstructure:"port"`
	GinMode     string `mapstructure:"gin_mode"`
	CORSOrigins string `mapstructure:"cors_origins"`

	Log struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	} `mapstructure:"log"`

	Transfer struct {
		TickInterval  time.Duration `mapstructure:"tick_interval"`
		FailureRate   float64       `mapstructure:"failure_rate"`
		Retention     time.Duration `mapstructure:"retention"`
		SweepInterval time.Duration `mapstructure:"sweep_interval"`
	} `mapstructure:"transfer"`

	Storage struct {
		Driver string `mapstructure:"driver"`
		Path   string `mapstructure:"path"`
	} `mapstructure:"storage"`

	Session struct {
		ConnectDelay time.Duration `mapstructure:"connect_delay"`
	} `mapstructure:"session"`

	Assistant struct {
		Endpoint string        `mapstructure:"endpoint"`
		Model    string        `mapstructure:"model"`
		APIKey   string        `mapstructure:"api_key"`
		RetryMax int           `mapstructure:"retry_max"`
		Timeout  time.Duration `mapstructure:"timeout"`
	} `mapstructure:"assistant"`
}

// Load reads novascp.yml from the current directory (if present) and
// applies NOVASCP_* environment overrides on top of the defaults.
func Load() (*Config, error) {
	return LoadFrom(".")
}

// LoadFrom is Load with an explicit directory to look for novascp.yml in
func LoadFrom(dir string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("novascp")
	v.SetConfigType("yml")
	v.AddConfigPath(dir)

	// e.g. NOVASCP_TRANSFER_TICK_INTERVAL overrides transfer.tick_interval
	v.SetEnvPrefix("NOVASCP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// API_KEY is what the web client reads
	if cfg.Assistant.APIKey == "" {
		cfg.Assistant.APIKey = os.Getenv("API_KEY")
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", 8080)
	v.SetDefault("gin_mode", "release")
	v.SetDefault("cors_origins", "http://localhost:3000,http://localhost:5173")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("transfer.tick_interval", 600*time.Millisecond)
	v.SetDefault("transfer.failure_rate", 0.0)
	v.SetDefault("transfer.retention", time.Duration(0))
	v.SetDefault("transfer.sweep_interval", 30*time.Second)
	v.SetDefault("storage.driver", "file")
	v.SetDefault("storage.path", GetDefaultStoragePath())
	v.SetDefault("session.connect_delay", time.Second)
	v.SetDefault("assistant.endpoint", "https://generativelanguage.googleapis.com/v1beta")
	v.SetDefault("assistant.model", "gemini-3-flash-preview")
	v.SetDefault("assistant.api_key", "")
	v.SetDefault("assistant.retry_max", 2)
	v.SetDefault("assistant.timeout", 30*time.Second)
}

// GetDefaultStoragePath returns where saved servers live when no path is configured
func GetDefaultStoragePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if can't get home dir
		return filepath.Join(".", ".novascp", "storage.json")
	}
	return filepath.Join(homeDir, ".novascp", "storage.json")
}

// CORSOriginList splits the configured origins
func (c *Config) CORSOriginList() []string {
	var origins []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}
