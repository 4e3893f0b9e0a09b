package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Feed     FeedConfig     `yaml:"feed" mapstructure:"feed"`
	Booking  BookingConfig  `yaml:"booking" mapstructure:"booking"`
	Scan     ScanConfig     `yaml:"scan" mapstructure:"scan"`
	Location LocationConfig `yaml:"location" mapstructure:"location"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Watch    WatchConfig    `yaml:"watch" mapstructure:"watch"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// FeedConfig configures the bulk regional snapshot feed.
type FeedConfig struct {
	BaseURL     string `yaml:"base_url" mapstructure:"base_url"`
	CommuneURL  string `yaml:"commune_url" mapstructure:"commune_url"`
	Departments []int  `yaml:"departments" mapstructure:"departments"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries  int    `yaml:"max_retries" mapstructure:"max_retries"`
	UserAgent   string `yaml:"user_agent" mapstructure:"user_agent"`
}

// BookingConfig configures the live booking backend client.
type BookingConfig struct {
	BaseURL        string  `yaml:"base_url" mapstructure:"base_url"`
	UserAgent      string  `yaml:"user_agent" mapstructure:"user_agent"`
	TimeoutSecs    int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RequestsPerSec float64 `yaml:"requests_per_sec" mapstructure:"requests_per_sec"`
	Burst          int     `yaml:"burst" mapstructure:"burst"`
	// BreakerThreshold is the number of consecutive failed center scans
	// after which the live backend is skipped for BreakerResetSecs.
	BreakerThreshold int `yaml:"breaker_threshold" mapstructure:"breaker_threshold"`
	BreakerResetSecs int `yaml:"breaker_reset_secs" mapstructure:"breaker_reset_secs"`
}

// ScanConfig configures live slot verification.
type ScanConfig struct {
	Vaccine              string        `yaml:"vaccine" mapstructure:"vaccine"`
	LookaheadDays        int           `yaml:"lookahead_days" mapstructure:"lookahead_days"`
	Window               time.Duration `yaml:"window" mapstructure:"window"`
	SettleDelay          time.Duration `yaml:"settle_delay" mapstructure:"settle_delay"`
	DecoyOffset          time.Duration `yaml:"decoy_offset" mapstructure:"decoy_offset"`
	ReleaseTimeout       time.Duration `yaml:"release_timeout" mapstructure:"release_timeout"`
	LimitMin             int           `yaml:"limit_min" mapstructure:"limit_min"`
	LimitMax             int           `yaml:"limit_max" mapstructure:"limit_max"`
	MaxConcurrentCenters int           `yaml:"max_concurrent_centers" mapstructure:"max_concurrent_centers"`
}

// LocationConfig holds the reference point centers are ranked against.
type LocationConfig struct {
	Latitude  float64 `yaml:"latitude" mapstructure:"latitude"`
	Longitude float64 `yaml:"longitude" mapstructure:"longitude"`
	RadiusKM  float64 `yaml:"radius_km" mapstructure:"radius_km"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// WatchConfig configures the periodic finder loop and its alerts.
type WatchConfig struct {
	IntervalSecs int    `yaml:"interval_secs" mapstructure:"interval_secs"`
	WebhookURL   string `yaml:"webhook_url" mapstructure:"webhook_url"`
	// MinSlots is the slot count at which a center is worth an alert.
	MinSlots int `yaml:"min_slots" mapstructure:"min_slots"`
	// DegradedRateThreshold is the share of live scans that may fail before
	// the backend is reported as degraded.
	DegradedRateThreshold float64 `yaml:"degraded_rate_threshold" mapstructure:"degraded_rate_threshold"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("CHRONODOSE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("feed.base_url", "https://vitemadose.gitlab.io/vitemadose")
	v.SetDefault("feed.commune_url", "https://vitemadose.gitlab.io/vitemadose/communes.json")
	v.SetDefault("feed.departments", []int{75, 77, 78, 91, 92, 93, 94, 95})
	v.SetDefault("feed.timeout_secs", 30)
	v.SetDefault("feed.max_retries", 3)
	v.SetDefault("feed.user_agent", "chronodose-cli/1.0")
	v.SetDefault("booking.base_url", "https://www.doctolib.fr")
	v.SetDefault("booking.user_agent", "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36")
	v.SetDefault("booking.timeout_secs", 15)
	v.SetDefault("booking.requests_per_sec", 5.0)
	v.SetDefault("booking.burst", 5)
	v.SetDefault("booking.breaker_threshold", 5)
	v.SetDefault("booking.breaker_reset_secs", 60)
	v.SetDefault("scan.vaccine", "pfizer")
	v.SetDefault("scan.lookahead_days", 0)
	v.SetDefault("scan.window", 24*time.Hour)
	v.SetDefault("scan.settle_delay", time.Second)
	v.SetDefault("scan.decoy_offset", 10*24*time.Hour)
	v.SetDefault("scan.release_timeout", 15*time.Second)
	v.SetDefault("scan.limit_min", 4)
	v.SetDefault("scan.limit_max", 4)
	v.SetDefault("scan.max_concurrent_centers", 8)
	v.SetDefault("watch.interval_secs", 300)
	v.SetDefault("watch.min_slots", 1)
	v.SetDefault("watch.degraded_rate_threshold", 0.5)
	// Louvre
	v.SetDefault("location.latitude", 48.864824)
	v.SetDefault("location.longitude", 2.334595)
	v.SetDefault("location.radius_km", 20.0)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks that the settings needed by the given command are usable.
func (c *Config) Validate(command string) error {
	var problems []string

	if c.Booking.BaseURL == "" {
		problems = append(problems, "booking.base_url is required")
	}
	if c.Scan.LimitMin <= 0 || c.Scan.LimitMax < c.Scan.LimitMin {
		problems = append(problems, fmt.Sprintf("scan.limit_min/limit_max must satisfy 0 < min <= max (got %d..%d)", c.Scan.LimitMin, c.Scan.LimitMax))
	}
	if c.Scan.LookaheadDays < 0 {
		problems = append(problems, "scan.lookahead_days must not be negative")
	}
	if c.Scan.Window <= 0 {
		problems = append(problems, "scan.window must be positive")
	}
	if c.Scan.MaxConcurrentCenters <= 0 {
		problems = append(problems, "scan.max_concurrent_centers must be positive")
	}

	switch command {
	case "scan", "serve", "watch":
		if c.Feed.BaseURL == "" {
			problems = append(problems, "feed.base_url is required")
		}
		if c.Location.Latitude < -90 || c.Location.Latitude > 90 {
			problems = append(problems, "location.latitude must be within [-90, 90]")
		}
		if c.Location.Longitude < -180 || c.Location.Longitude > 180 {
			problems = append(problems, "location.longitude must be within [-180, 180]")
		}
		if c.Location.RadiusKM <= 0 {
			problems = append(problems, "location.radius_km must be positive")
		}
	}
	if command == "serve" && (c.Server.Port <= 0 || c.Server.Port > 65535) {
		problems = append(problems, fmt.Sprintf("server.port %d is out of range", c.Server.Port))
	}

	if command == "watch" {
		if c.Watch.IntervalSecs <= 0 {
			problems = append(problems, "watch.interval_secs must be positive")
		}
		if c.Watch.MinSlots <= 0 {
			problems = append(problems, "watch.min_slots must be positive")
		}
	}
	if c.Booking.RequestsPerSec < 0 {
		problems = append(problems, "booking.requests_per_sec must not be negative")
	}

	if len(problems) > 0 {
		return eris.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
