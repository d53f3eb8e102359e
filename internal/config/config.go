package config

import "time"

// GameInfo describes one configured game type. Engine selects the
// rule engine implementation registered under that id.
type GameInfo struct {
	DisplayName string `mapstructure:"display_name" yaml:"display_name"`
	Engine      string `mapstructure:"engine" yaml:"engine"`
}

// CompetitionInfo describes a configured competition type. Parsed for
// the tournament layer that composes sessions; the server itself does
// not instantiate competitions.
type CompetitionInfo struct {
	DisplayName string `mapstructure:"display_name" yaml:"display_name"`
	Engine      string `mapstructure:"engine" yaml:"engine"`
}

// Config holds server configuration values. The game and competition
// tables are loaded once at startup and immutable for the process
// lifetime.
type Config struct {
	Addr              string                     `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration              `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration              `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	DatabasePath      string                     `mapstructure:"database_path" yaml:"database_path"`
	LogLevel          string                     `mapstructure:"log_level" yaml:"log_level"`
	Games             map[string]GameInfo        `mapstructure:"games" yaml:"games"`
	Competitions      map[string]CompetitionInfo `mapstructure:"competitions" yaml:"competitions,omitempty"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:              ":8080",
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
		DatabasePath:      "gameroom.db",
		LogLevel:          "info",
		Games: map[string]GameInfo{
			"sueca": {DisplayName: "Sueca", Engine: "sueca"},
		},
	}
}
