package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// envKeyReplacer maps server.base_url to MENTOR_SERVER_BASE_URL.
var envKeyReplacer = strings.NewReplacer(".", "_")

// Config holds the application configuration.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	History HistoryConfig `mapstructure:"history"`
	Log     LogConfig     `mapstructure:"log"`
}

// ServerConfig points at the EduMentor backend.
type ServerConfig struct {
	BaseURL  string `mapstructure:"base_url"`
	Username string `mapstructure:"username"`
	Token    string `mapstructure:"token"`
}

// HistoryConfig tunes session reconstruction and the history list.
type HistoryConfig struct {
	// SessionGapMinutes is the inactivity threshold that splits the flat
	// feed into sessions.
	SessionGapMinutes int `mapstructure:"session_gap_minutes"`
	// MaxSessions caps how many recent sessions the list keeps.
	MaxSessions int `mapstructure:"max_sessions"`
	// ThisMonthBucket enables the optional fifth date bucket.
	ThisMonthBucket bool `mapstructure:"this_month_bucket"`
}

// Threshold returns the session gap as a duration.
func (h HistoryConfig) Threshold() time.Duration {
	return time.Duration(h.SessionGapMinutes) * time.Minute
}

// LogConfig controls log level and the file sink.
type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

// Load reads mentor-history.yaml from the working directory or
// ~/.config/mentor-history, overlaid with MENTOR_* environment variables.
// A missing config file is fine; defaults cover everything but the token.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("mentor-history")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/mentor-history")

	v.SetDefault("server.base_url", "http://localhost:8000")
	// Username and token default empty, but the defaults must exist: viper
	// only surfaces MENTOR_* env values through Unmarshal for known keys.
	v.SetDefault("server.username", "")
	v.SetDefault("server.token", "")
	v.SetDefault("history.session_gap_minutes", 60)
	v.SetDefault("history.max_sessions", 50)
	v.SetDefault("history.this_month_bucket", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "mentor-history.log")

	v.SetEnvPrefix("MENTOR")
	v.SetEnvKeyReplacer(envKeyReplacer)
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}
	return &config, nil
}
