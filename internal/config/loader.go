package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/rpattn/iblockql/internal/db"
)

// ServerConfig holds HTTP listener settings
type ServerConfig struct {
	Addr           string
	AllowedOrigins []string
	LoaderWait     time.Duration
}

// LogConfig holds logger settings
type LogConfig struct {
	Level  string
	Format string
}

// ElementsConfig holds pipeline settings
type ElementsConfig struct {
	TranslateMultiEnums bool
}

// Config is the full application configuration
type Config struct {
	Database db.Config
	Server   ServerConfig
	Log      LogConfig
	Elements ElementsConfig
}

// DefaultConfig returns the configuration used when nothing is set
func DefaultConfig() Config {
	return Config{
		Database: db.DefaultConfig(),
		Server: ServerConfig{
			Addr:           ":8080",
			AllowedOrigins: []string{"http://localhost:3000"},
			LoaderWait:     5 * time.Millisecond,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Elements: ElementsConfig{
			TranslateMultiEnums: true,
		},
	}
}

// Load reads config.yaml from configPath, then environment overrides.
// Database keys use the DB_ prefix (DB_HOST, DB_PORT...), the rest APP_.
func Load(configPath string) (Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, env := range map[string]string{
		"database.driver":   "DB_DRIVER",
		"database.host":     "DB_HOST",
		"database.port":     "DB_PORT",
		"database.user":     "DB_USER",
		"database.password": "DB_PASSWORD",
		"database.dbname":   "DB_DBNAME",
		"database.sslmode":  "DB_SSLMODE",
		"database.path":     "DB_PATH",
		"database.schema":   "DB_SCHEMA",
	} {
		if err := v.BindEnv(key, env); err != nil {
			return Config{}, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if v.IsSet("database.driver") {
		cfg.Database.Driver = v.GetString("database.driver")
	}
	if v.IsSet("database.host") {
		cfg.Database.Host = v.GetString("database.host")
	}
	if v.IsSet("database.port") {
		cfg.Database.Port = v.GetInt("database.port")
	}
	if v.IsSet("database.user") {
		cfg.Database.User = v.GetString("database.user")
	}
	if v.IsSet("database.password") {
		cfg.Database.Password = v.GetString("database.password")
	}
	if v.IsSet("database.dbname") {
		cfg.Database.DBName = v.GetString("database.dbname")
	}
	if v.IsSet("database.sslmode") {
		cfg.Database.SSLMode = v.GetString("database.sslmode")
	}
	if v.IsSet("database.path") {
		cfg.Database.Path = v.GetString("database.path")
	}
	if v.IsSet("database.schema") {
		cfg.Database.Schema = v.GetString("database.schema")
	}

	if v.IsSet("server.addr") {
		cfg.Server.Addr = v.GetString("server.addr")
	}
	if v.IsSet("server.allowed_origins") {
		cfg.Server.AllowedOrigins = v.GetStringSlice("server.allowed_origins")
	}
	if v.IsSet("loader.wait") {
		cfg.Server.LoaderWait = v.GetDuration("loader.wait")
	}
	if v.IsSet("log.level") {
		cfg.Log.Level = v.GetString("log.level")
	}
	if v.IsSet("log.format") {
		cfg.Log.Format = v.GetString("log.format")
	}
	if v.IsSet("elements.translate_multi_enums") {
		cfg.Elements.TranslateMultiEnums = v.GetBool("elements.translate_multi_enums")
	}

	if err := cfg.Database.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
