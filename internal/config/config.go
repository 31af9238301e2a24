package config

import (
	"fmt"

	"github.com/illarion/pbecipher/pkg/pbe"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/sirupsen/logrus"
)

const Prefix = "PBE"

// Config holds the PBE_* environment settings. Flags given on the command
// line take precedence and are applied by the caller.
type Config struct {
	Salt       string `envconfig:"SALT"`
	Algorithm  string `envconfig:"ALGORITHM" default:"PBEWithMD5AndDES"`
	Password   string `envconfig:"PASSWORD"`
	Iterations int    `envconfig:"ITERATIONS" default:"1000"`
	LogLevel   string `split_words:"true" default:"warn"`
	Store      string `envconfig:"STORE" default:".pbecipher"`
}

// Load reads the configuration from the environment. When envFile is set,
// it is loaded first; variables already present in the environment win.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("unable to load env file %s: %w", envFile, err)
		}
	}

	cfg := &Config{}
	if err := envconfig.Process(Prefix, cfg); err != nil {
		return nil, fmt.Errorf("unable to parse config: %w", err)
	}

	return cfg, nil
}

// Logger returns a logrus logger at the configured level.
func (c *Config) Logger() (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", c.LogLevel, err)
	}

	logger := logrus.New()
	logger.SetLevel(level)
	logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	return logger, nil
}

// NewService builds a PBE service from the configured parameters.
func (c *Config) NewService(logger logrus.FieldLogger) (*pbe.Service, error) {
	return pbe.New(c.Salt, c.Algorithm, c.Password, c.Iterations, pbe.WithLogger(logger))
}

// Log writes the non-secret settings at debug level.
func (c *Config) Log(logger logrus.FieldLogger) {
	logger.WithFields(logrus.Fields{
		"algorithm":    c.Algorithm,
		"iterations":   c.Iterations,
		"salt_set":     c.Salt != "",
		"password_set": c.Password != "",
		"store":        c.Store,
	}).Debug("configuration loaded")
}
