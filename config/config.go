package config

import (
	"log/slog"
	"net"
	"net/url"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/spf13/viper"

	"github.com/angeloszaimis/circuit-breaker/internal/circuitbreaker"
)

const (
	EnvDev     = "dev"
	EnvStaging = "staging"
	EnvProd    = "prod"
)

const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

type ServerConfig struct {
	Address     string `mapstructure:"address"`
	Environment string `mapstructure:"environment"`
}

type BreakerConfig struct {
	FailureThreshold int    `mapstructure:"failure_threshold"`
	SuccessThreshold int    `mapstructure:"success_threshold"`
	RecoveryTimeout  string `mapstructure:"recovery_timeout"`
	HalfOpenMaxCalls int    `mapstructure:"half_open_max_calls"`
}

type WatchConfig struct {
	Interval string `mapstructure:"interval"`
}

type DependencyConfig struct {
	Name string `mapstructure:"name"`
	URL  string `mapstructure:"url"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Breaker      BreakerConfig      `mapstructure:"breaker"`
	Watch        WatchConfig        `mapstructure:"watch"`
	Dependencies []DependencyConfig `mapstructure:"dependencies"`
	Logging      LoggingConfig      `mapstructure:"logging"`
}

func Load() (*Config, error) {
	viper.SetDefault("server.environment", EnvDev)
	viper.SetDefault("server.address", ":8080")
	viper.SetDefault("breaker.failure_threshold", 5)
	viper.SetDefault("breaker.success_threshold", 2)
	viper.SetDefault("breaker.recovery_timeout", "30s")
	viper.SetDefault("breaker.half_open_max_calls", 3)
	viper.SetDefault("watch.interval", "5s")
	viper.SetDefault("logging.level", LogLevelInfo)

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./config")
	viper.AddConfigPath(".")

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Error("failed to read config file", slog.String("error", err.Error()))
			return nil, err
		}
		slog.Info("config file not found, using defaults and environment variables")
	} else {
		slog.Info("loaded config file", slog.String("file", viper.ConfigFileUsed()))
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		slog.Error("failed to unmarshal config", slog.String("error", err.Error()))
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		return nil, err
	}

	return &cfg, nil
}

// BreakerSettings converts the loaded tunables into the breaker's own
// configuration type, parsing the recovery timeout.
func (c *Config) BreakerSettings() (circuitbreaker.Config, error) {
	timeout, err := time.ParseDuration(c.Breaker.RecoveryTimeout)
	if err != nil {
		return circuitbreaker.Config{}, err
	}

	return circuitbreaker.Config{
		FailureThreshold: c.Breaker.FailureThreshold,
		SuccessThreshold: c.Breaker.SuccessThreshold,
		RecoveryTimeout:  timeout,
		HalfOpenMaxCalls: c.Breaker.HalfOpenMaxCalls,
	}, nil
}

func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Server,
			validation.Required,
			validation.By(func(value interface{}) error {
				sc, ok := value.(ServerConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a ServerConfig")
				}
				return validation.ValidateStruct(&sc,
					validation.Field(&sc.Environment,
						validation.Required,
						validation.In(EnvDev, EnvStaging, EnvProd),
					),
					validation.Field(&sc.Address,
						validation.Required,
						validation.By(validateHostPort),
					),
				)
			}),
		),
		validation.Field(&c.Breaker,
			validation.Required,
			validation.By(func(value interface{}) error {
				bc, ok := value.(BreakerConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a BreakerConfig")
				}
				return validation.ValidateStruct(&bc,
					validation.Field(&bc.FailureThreshold,
						validation.Required,
						validation.Min(1),
					),
					validation.Field(&bc.SuccessThreshold,
						validation.Required,
						validation.Min(1),
					),
					validation.Field(&bc.RecoveryTimeout,
						validation.Required,
						validation.By(validateDuration),
					),
					validation.Field(&bc.HalfOpenMaxCalls,
						validation.Required,
						validation.Min(1),
					),
				)
			}),
		),
		validation.Field(&c.Watch,
			validation.Required,
			validation.By(func(value interface{}) error {
				wc, ok := value.(WatchConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a WatchConfig")
				}
				return validation.ValidateStruct(&wc,
					validation.Field(&wc.Interval,
						validation.Required,
						validation.By(validateDuration),
					),
				)
			}),
		),
		validation.Field(&c.Dependencies,
			validation.Each(validation.By(validateDependencyConfig)),
		),
		validation.Field(&c.Logging,
			validation.Required,
			validation.By(func(value interface{}) error {
				lc, ok := value.(LoggingConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a LoggingConfig")
				}
				return validation.ValidateStruct(&lc,
					validation.Field(&lc.Level,
						validation.Required,
						validation.In(LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError),
					),
				)
			}),
		),
	)
}

func validateHostPort(value interface{}) error {
	addr, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return validation.NewError("validation_invalid_hostport", "must be in host:port format")
	}

	if port == "" {
		return validation.NewError("validation_invalid_port", "port cannot be empty")
	}

	if host != "" {
		if err := is.Host.Validate(host); err != nil {
			return validation.NewError("validation_invalid_host", "invalid host")
		}
	}

	return nil
}

func validateDuration(value interface{}) error {
	durationStr, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	if _, err := time.ParseDuration(durationStr); err != nil {
		return validation.NewError("validation_invalid_duration", "must be a valid duration (e.g., 2s, 5m, 1h)")
	}

	return nil
}

func validateDependencyConfig(value interface{}) error {
	dep, ok := value.(DependencyConfig)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a DependencyConfig")
	}

	if dep.Name == "" {
		return validation.NewError("validation_empty_name", "dependency name cannot be empty")
	}

	if dep.URL == "" {
		return validation.NewError("validation_empty_url", "dependency URL cannot be empty")
	}

	parsedURL, err := url.Parse(dep.URL)
	if err != nil {
		return validation.NewError("validation_invalid_url", "must be a valid URL")
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return validation.NewError("validation_invalid_scheme", "URL must use http or https scheme")
	}

	if parsedURL.Host == "" {
		return validation.NewError("validation_missing_host", "URL must have a host")
	}

	return nil
}
