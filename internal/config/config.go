package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/Veraticus/the-sales-must-flow/internal/dashboard"
	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

// Configuration keys.
const (
	KeyDashboardYear    = "dashboard.year"
	KeyDashboardCities  = "dashboard.cities"
	KeyDashboardDataURL = "dashboard.data_url"

	KeyLoaderHTTPTimeout = "loader.http_timeout"
	KeyLoaderProgress    = "loader.progress"

	KeyLoggingLevel  = "logging.level"
	KeyLoggingFormat = "logging.format"

	KeyServerAddr            = "server.addr"
	KeyServerReadTimeout     = "server.read_timeout"
	KeyServerWriteTimeout    = "server.write_timeout"
	KeyServerShutdownTimeout = "server.shutdown_timeout"

	KeyNotifyAMQPURL  = "notify.amqp_url"
	KeyNotifyExchange = "notify.exchange"
	KeyNotifyQueue    = "notify.queue"
)

// SetDefaults registers the default value of every key on the global viper instance.
func SetDefaults() {
	viper.SetDefault(KeyDashboardYear, dashboard.DefaultYear)
	viper.SetDefault(KeyDashboardCities, dashboard.DefaultCities)
	viper.SetDefault(KeyDashboardDataURL, dashboard.DefaultDataURL)

	viper.SetDefault(KeyLoaderHTTPTimeout, 30*time.Second)
	viper.SetDefault(KeyLoaderProgress, false)

	viper.SetDefault(KeyLoggingLevel, "info")
	viper.SetDefault(KeyLoggingFormat, "console")

	viper.SetDefault(KeyServerAddr, ":8080")
	viper.SetDefault(KeyServerReadTimeout, 15*time.Second)
	viper.SetDefault(KeyServerWriteTimeout, 60*time.Second)
	viper.SetDefault(KeyServerShutdownTimeout, 10*time.Second)

	viper.SetDefault(KeyNotifyExchange, "sales.cache")
}

// LoadDashboardConfig reads the dashboard section and validates it.
func LoadDashboardConfig() (dashboard.Config, error) {
	cfg := dashboard.Config{
		Year:    viper.GetInt(KeyDashboardYear),
		Cities:  splitList(viper.Get(KeyDashboardCities)),
		DataURL: viper.GetString(KeyDashboardDataURL),
	}
	if !strings.Contains(cfg.DataURL, "://") {
		cfg.DataURL = ExpandPath(cfg.DataURL)
	}
	if err := cfg.Validate(); err != nil {
		return dashboard.Config{}, fmt.Errorf("dashboard config: %w", err)
	}
	return cfg, nil
}

// LoaderConfig holds loader settings.
type LoaderConfig struct {
	HTTPTimeout time.Duration
	Progress    bool
}

// LoadLoaderConfig reads the loader section.
func LoadLoaderConfig() LoaderConfig {
	return LoaderConfig{
		HTTPTimeout: viper.GetDuration(KeyLoaderHTTPTimeout),
		Progress:    viper.GetBool(KeyLoaderProgress),
	}
}

// ServerConfig holds HTTP API settings.
type ServerConfig struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// LoadServerConfig reads the server section.
func LoadServerConfig() ServerConfig {
	return ServerConfig{
		Addr:            viper.GetString(KeyServerAddr),
		ReadTimeout:     viper.GetDuration(KeyServerReadTimeout),
		WriteTimeout:    viper.GetDuration(KeyServerWriteTimeout),
		ShutdownTimeout: viper.GetDuration(KeyServerShutdownTimeout),
	}
}

// NotifyConfig holds AMQP settings for cache invalidation messages.
type NotifyConfig struct {
	AMQPURL  string
	Exchange string
	Queue    string
}

// Enabled reports whether a broker is configured.
func (c NotifyConfig) Enabled() bool {
	return c.AMQPURL != ""
}

// LoadNotifyConfig reads the notify section.
func LoadNotifyConfig() NotifyConfig {
	return NotifyConfig{
		AMQPURL:  viper.GetString(KeyNotifyAMQPURL),
		Exchange: viper.GetString(KeyNotifyExchange),
		Queue:    viper.GetString(KeyNotifyQueue),
	}
}

// splitList accepts a YAML list or a comma separated string, as environment variables give.
func splitList(value any) []string {
	var raw []string
	if s, ok := value.(string); ok {
		raw = strings.Split(s, ",")
	} else {
		raw = cast.ToStringSlice(value)
	}

	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
