package config

import (
	"os"
	"strings"

	"tuxedoctl/internal/errors"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	DefaultLogLevel = "info"

	// The default socket path works for both privileged and
	// non-privileged runs; the CoolerControl daemon looks it up by
	// service id.
	defaultSocket = "/tmp/tuxedo-infinitybook-gen10.sock"

	configEnvVar = "TUXEDOCTL_CONFIG"
	envPrefix    = "TUXEDOCTL"
)

type Config struct {
	Socket    string `mapstructure:"socket"`
	LogLevel  string `mapstructure:"log_level"`
	Telemetry bool   `mapstructure:"telemetry"`
	Database  string `mapstructure:"database"`
	Debug     bool   `mapstructure:"debug"`
}

func Load() (*Config, error) {
	errFactory := errors.New()

	// A fresh flag set per call keeps repeated loads (tests) safe.
	flags := pflag.NewFlagSet("tuxedoctl", pflag.ContinueOnError)
	flags.ParseErrorsWhitelist.UnknownFlags = true
	flags.String("socket", defaultSocket, "Unix socket path to serve on")
	flags.String("log-level", DefaultLogLevel, "Log level (debug, info, warn, error)")
	flags.Bool("telemetry", false, "Record status samples to the telemetry database")
	flags.String("database", "", "Path to the telemetry database")
	flags.Bool("debug", false, "Enable debug logging")

	if err := flags.Parse(os.Args[1:]); err != nil {
		return nil, errFactory.Wrap(errors.ErrBindFlags, err)
	}

	v := viper.New()
	v.SetDefault("socket", defaultSocket)
	v.SetDefault("log_level", DefaultLogLevel)
	v.SetDefault("telemetry", false)
	v.SetDefault("database", "")
	v.SetDefault("debug", false)

	if path := os.Getenv(configEnvVar); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("tuxedoctl")
		v.SetConfigType("toml")
		v.AddConfigPath("/etc")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, errFactory.WithMessage(errors.ErrReadConfig, "Failed to read config file").WithData(err.Error())
		}
	}

	// Command line flags override the config file.
	flags.Visit(func(f *pflag.Flag) {
		v.Set(strings.ReplaceAll(f.Name, "-", "_"), f.Value.String())
	})

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
	}

	if config.Debug {
		config.LogLevel = "debug"
	}

	if _, err := zerolog.ParseLevel(config.LogLevel); err != nil {
		return nil, errFactory.WithData(errors.ErrInvalidLogLevel, config.LogLevel)
	}

	if config.Telemetry && config.Database == "" {
		return nil, errFactory.WithMessage(errors.ErrInvalidConfig, "telemetry enabled without a database path")
	}

	return config, nil
}
