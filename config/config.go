package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/strompris/strompris-go/logging"
)

type AppConfigApi struct {
	Address string
	Port    int16
}

type AppConfigDatabase struct {
	// Path to the sqlite file holding the application log. Price data is
	// never persisted; the cache is rebuilt from Nord Pool on startup.
	Path string
}

type AppConfigNordpool struct {
	// Base URL of the Nord Pool data portal, override for testing
	BaseUrl *string `mapstructure:"base_url"`
	// Delivery areas to fetch, default: NO1-NO5
	Areas []string `mapstructure:"areas"`
	// Currency for the fetched prices, default: "NOK"
	Currency *string `mapstructure:"currency"`
}

func (n AppConfigNordpool) GetBaseUrl() string {
	if n.BaseUrl == nil {
		return ""
	}
	return *n.BaseUrl
}

func (n AppConfigNordpool) GetAreas() []string {
	if len(n.Areas) == 0 {
		return []string{"NO1", "NO2", "NO3", "NO4", "NO5"}
	}
	return n.Areas
}

func (n AppConfigNordpool) GetCurrency() string {
	if n.Currency == nil {
		return "NOK"
	}
	return *n.Currency
}

type AppConfigPolling struct {
	// Local timezone the fetch/cleanup schedule is defined in, default: "Europe/Oslo"
	Timezone *string `mapstructure:"timezone"`
	// Local hour of day when tomorrow's prices are expected, default: 15
	FetchHour *int `mapstructure:"fetch_hour"`
	// Minutes to wait between retries while prices are unpublished, default: 15
	RetryDelayMinutes *int `mapstructure:"retry_delay_minutes"`
}

func (p AppConfigPolling) GetTimezone() string {
	if p.Timezone == nil {
		return "Europe/Oslo"
	}
	return *p.Timezone
}

func (p AppConfigPolling) GetFetchHour() int {
	if p.FetchHour == nil {
		return 15
	}
	return *p.FetchHour
}

func (p AppConfigPolling) GetRetryDelay() time.Duration {
	if p.RetryDelayMinutes == nil {
		return 15 * time.Minute
	}
	return time.Duration(*p.RetryDelayMinutes) * time.Minute
}

type AppConfigMqtt struct {
	// Broker host, leave empty to disable MQTT publishing
	Host     string
	Port     int16
	Username string
	Password string
	// Topic prefix for published prices, default: "strompris"
	TopicPrefix *string `mapstructure:"topic_prefix"`
}

func (m AppConfigMqtt) Enabled() bool {
	return m.Host != ""
}

func (m AppConfigMqtt) GetTopicPrefix() string {
	if m.TopicPrefix == nil {
		return "strompris"
	}
	return *m.TopicPrefix
}

type AppConfigLogging struct {
	// Min log level for database: "DEBUG", "INFO", "WARN", "ERROR", default: "INFO"
	DbLevel *string `mapstructure:"db_level"`
	// Log attributes format: "TEXT", "JSON", default: "JSON"
	DbAttrsFormat *string `mapstructure:"db_attrs_format"`
	// Maximum number of log entries in the database, default: 10000
	DbMaxEntries *int `mapstructure:"db_max_entries"`
	// Min log level for console: "DEBUG", "INFO", "WARN", "ERROR", default: "INFO"
	ConsoleLevel *string `mapstructure:"console_level"`
}

func (l AppConfigLogging) GetDbLevel() slog.Level {
	return logging.LevelFromString(l.DbLevel)
}

func (l AppConfigLogging) GetDbAttrsFormat() logging.LogAttrFormat {
	if l.DbAttrsFormat == nil {
		return logging.LogAttrFormatJSON
	}
	if strings.EqualFold(*l.DbAttrsFormat, "text") {
		return logging.LogAttrFormatText
	}
	return logging.LogAttrFormatJSON
}

func (l AppConfigLogging) GetDbMaxEntries() int {
	if l.DbMaxEntries == nil {
		return 10000
	}
	return *l.DbMaxEntries
}

func (l AppConfigLogging) GetConsoleLevel() slog.Level {
	return logging.LevelFromString(l.ConsoleLevel)
}

type AppConfig struct {
	Api      AppConfigApi
	Database AppConfigDatabase
	Nordpool AppConfigNordpool
	Polling  AppConfigPolling
	Mqtt     AppConfigMqtt
	Logging  AppConfigLogging
}

func Load(path string) (*AppConfig, error) {
	if path != "" {
		viper.SetConfigFile(path)
	} else {
		viper.AddConfigPath("config")
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	viper.SetDefault("api.port", 8080)
	viper.SetDefault("database.path", "strompris.db")

	var c AppConfig

	if err := viper.ReadInConfig(); err != nil {
		// Running on defaults without a config file is fine
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("unable to read config file: %w", err)
		}
	}

	if err := viper.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unable to unmarshal config file: %w", err)
	}

	viper.OnConfigChange(func(e fsnotify.Event) {
		slog.Default().Info("config file changed, restart to apply", slog.String("file", e.Name))
	})
	viper.WatchConfig()

	return &c, nil
}
