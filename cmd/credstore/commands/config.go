package commands

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/rpgjournals/credstore"
)

// Settings is the operator configuration read from credstore.yaml and
// CREDSTORE_* environment variables.
type Settings struct {
	Redis    RedisSettings
	Database DatabaseSettings
	Log      LogSettings
	Store    credstore.Config
}

type RedisSettings struct {
	Addr   string
	Prefix string
}

type DatabaseSettings struct {
	// Driver is "pgx" or "sqlite3".
	Driver string
	DSN    string
}

type LogSettings struct {
	Level  string
	Format string
}

// Dialect maps the database driver onto a migration dialect.
func (d DatabaseSettings) Dialect() (string, error) {
	switch d.Driver {
	case "pgx", "postgres":
		return "postgres", nil
	case "sqlite3", "sqlite":
		return "sqlite3", nil
	default:
		return "", fmt.Errorf("unsupported database.driver %q", d.Driver)
	}
}

// LoadSettings reads configPath (or credstore.yaml from the usual search
// path) and overlays CREDSTORE_* environment variables. A missing default
// file is not an error; a missing explicit file is.
func LoadSettings(v *viper.Viper, configPath string) (*Settings, error) {
	v.SetEnvPrefix("CREDSTORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("credstore")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/credstore")
		v.AddConfigPath("$HOME/.credstore")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return &Settings{
		Redis: RedisSettings{
			Addr:   v.GetString("redis.addr"),
			Prefix: v.GetString("redis.prefix"),
		},
		Database: DatabaseSettings{
			Driver: v.GetString("database.driver"),
			DSN:    v.GetString("database.dsn"),
		},
		Log: LogSettings{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
		Store: getStoreConfig(v),
	}, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.prefix", "")
	v.SetDefault("database.driver", "pgx")
	v.SetDefault("database.dsn", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// getStoreConfig starts from the library defaults and applies whatever
// tuning keys are present.
func getStoreConfig(v *viper.Viper) credstore.Config {
	cfg := credstore.DefaultConfig()

	cfg.Session.TTL = getDurationOrDefault(v, "session.ttl", cfg.Session.TTL)

	cfg.Verification.CodeTTL = getDurationOrDefault(v, "verification.code_ttl", cfg.Verification.CodeTTL)
	cfg.Verification.VerifiedTTL = getDurationOrDefault(v, "verification.verified_ttl", cfg.Verification.VerifiedTTL)
	cfg.Verification.ResendCooldown = getDurationOrDefault(v, "verification.resend_cooldown", cfg.Verification.ResendCooldown)
	cfg.Verification.EnableIPThrottle = getBoolOrDefault(v, "verification.ip_throttle", cfg.Verification.EnableIPThrottle)

	cfg.PasswordReset.TokenTTL = getDurationOrDefault(v, "password_reset.token_ttl", cfg.PasswordReset.TokenTTL)
	cfg.PasswordReset.RequestCooldown = getDurationOrDefault(v, "password_reset.request_cooldown", cfg.PasswordReset.RequestCooldown)
	cfg.PasswordReset.EnableIPThrottle = getBoolOrDefault(v, "password_reset.ip_throttle", cfg.PasswordReset.EnableIPThrottle)

	cfg.Password.Iterations = getIntOrDefault(v, "password.iterations", cfg.Password.Iterations)

	cfg.Store.RedisPrefix = v.GetString("redis.prefix")
	if dialect, err := (DatabaseSettings{Driver: v.GetString("database.driver")}).Dialect(); err == nil {
		cfg.Store.SQLDialect = dialect
	}
	cfg.Store.AutoMigrate = getBoolOrDefault(v, "database.auto_migrate", cfg.Store.AutoMigrate)

	cfg.Audit.Enabled = getBoolOrDefault(v, "audit.enabled", cfg.Audit.Enabled)
	cfg.Metrics.Enabled = getBoolOrDefault(v, "metrics.enabled", cfg.Metrics.Enabled)

	return cfg
}

func getDurationOrDefault(v *viper.Viper, key string, defaultValue time.Duration) time.Duration {
	if v.IsSet(key) {
		return v.GetDuration(key)
	}
	return defaultValue
}

func getIntOrDefault(v *viper.Viper, key string, defaultValue int) int {
	if v.IsSet(key) {
		return v.GetInt(key)
	}
	return defaultValue
}

func getBoolOrDefault(v *viper.Viper, key string, defaultValue bool) bool {
	if v.IsSet(key) {
		return v.GetBool(key)
	}
	return defaultValue
}

func newLogger(cfg LogSettings, out io.Writer) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(out)

	if level, err := logrus.ParseLevel(cfg.Level); err == nil {
		l.SetLevel(level)
	}
	if strings.EqualFold(cfg.Format, "json") {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{DisableColors: true, FullTimestamp: true})
	}
	return l
}
