package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/rmax-ai/orgchart/pkg/logging"
	"github.com/rmax-ai/orgchart/pkg/salary"
)

const (
	defaultAddr            = "127.0.0.1:8090"
	defaultShutdownTimeout = 10 * time.Second
	envPrefix              = "ORGCHART"
)

type Config struct {
	Addr            string
	RosterPath      string
	ExportDir       string
	LogLevel        string
	LogFormat       string
	MaxDepth        int
	TLSCertFile     string
	TLSKeyFile      string
	ShutdownTimeout time.Duration
}

// LoadConfig resolves configuration from flags, ORGCHART_* environment
// variables and an optional config file, in that order of precedence.
func LoadConfig(args []string) (Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return Config{}, fmt.Errorf("failed to get cwd: %w", err)
	}

	flagSet := pflag.NewFlagSet("orgchart-d", pflag.ContinueOnError)
	flagSet.String("config", "", "path to a YAML config file")
	flagSet.String("addr", defaultAddr, "HTTP listen address")
	flagSet.String("roster", "", "path to a YAML roster to seed on boot")
	flagSet.String("export-dir", "", "directory for archived reports (disabled when empty)")
	flagSet.String("log-level", "info", "log level: debug|info|warn|error")
	flagSet.String("log-format", logging.FormatJSON, "log format: json|console")
	flagSet.Int("max-depth", salary.DefaultMaxDepth, "maximum hierarchy depth for salary computation")
	flagSet.String("tls-cert", "", "TLS certificate file")
	flagSet.String("tls-key", "", "TLS key file")
	flagSet.Duration("shutdown-timeout", defaultShutdownTimeout, "graceful shutdown timeout")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			flagSet.SetOutput(os.Stdout)
			flagSet.PrintDefaults()
		}
		return Config{}, err
	}
	if rest := flagSet.Args(); len(rest) > 0 {
		return Config{}, fmt.Errorf("unexpected argument: %s", rest[0])
	}

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(flagSet); err != nil {
		return Config{}, fmt.Errorf("failed to bind flags: %w", err)
	}

	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(resolvePath(path, cwd))
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	shutdownTimeout, err := parseDuration(v, "shutdown-timeout")
	if err != nil {
		return Config{}, err
	}

	config := Config{
		Addr:            strings.TrimSpace(v.GetString("addr")),
		RosterPath:      resolvePath(v.GetString("roster"), cwd),
		ExportDir:       resolvePath(v.GetString("export-dir"), cwd),
		LogLevel:        strings.ToLower(strings.TrimSpace(v.GetString("log-level"))),
		LogFormat:       strings.ToLower(strings.TrimSpace(v.GetString("log-format"))),
		MaxDepth:        v.GetInt("max-depth"),
		TLSCertFile:     resolvePath(v.GetString("tls-cert"), cwd),
		TLSKeyFile:      resolvePath(v.GetString("tls-key"), cwd),
		ShutdownTimeout: shutdownTimeout,
	}

	if err := config.validate(); err != nil {
		return Config{}, err
	}
	return config, nil
}

func (c Config) validate() error {
	if c.Addr == "" {
		return errors.New("addr cannot be empty")
	}
	if c.MaxDepth <= 0 {
		return fmt.Errorf("max-depth must be positive, got %d", c.MaxDepth)
	}
	if c.ShutdownTimeout <= 0 {
		return errors.New("shutdown-timeout must be positive")
	}
	if (c.TLSCertFile == "") != (c.TLSKeyFile == "") {
		return errors.New("tls-cert and tls-key must be set together")
	}
	if _, err := logging.New(c.LogLevel, c.LogFormat, nil); err != nil {
		return fmt.Errorf("log-level/log-format: %w", err)
	}
	return nil
}

// parseDuration accepts both duration strings and values viper already decoded.
func parseDuration(v *viper.Viper, key string) (time.Duration, error) {
	raw := strings.TrimSpace(v.GetString(key))
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return d, nil
}

func resolvePath(path string, cwd string) string {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return trimmed
	}
	if filepath.IsAbs(trimmed) {
		return trimmed
	}
	return filepath.Join(cwd, trimmed)
}
