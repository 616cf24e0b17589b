package config

import "time"

// Config holds server configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	DatabasePath      string        `mapstructure:"database_path" yaml:"database_path"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level"`
	AllowedOrigins    []string      `mapstructure:"allowed_origins" yaml:"allowed_origins"`

	// Subscribe token signing.
	TokenSecret   string        `mapstructure:"token_secret" yaml:"token_secret"`
	TokenIssuer   string        `mapstructure:"token_issuer" yaml:"token_issuer"`
	TokenAudience string        `mapstructure:"token_audience" yaml:"token_audience"`
	TokenTTL      time.Duration `mapstructure:"token_ttl" yaml:"token_ttl"`

	// Managed pub/sub transport credentials. When empty the server runs in
	// local-hub mode and logs a warning at startup.
	TransportAppID    string `mapstructure:"transport_app_id" yaml:"transport_app_id"`
	TransportKey      string `mapstructure:"transport_key" yaml:"transport_key"`
	TransportSecret   string `mapstructure:"transport_secret" yaml:"transport_secret"`
	TransportCluster  string `mapstructure:"transport_cluster" yaml:"transport_cluster"`
	TransportEndpoint string `mapstructure:"transport_endpoint" yaml:"transport_endpoint"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:              ":8080",
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
		DatabasePath:      "puzzlink.db",
		LogLevel:          "info",
		AllowedOrigins:    []string{"*"},
		TokenIssuer:       "puzzlink-server",
		TokenAudience:     "puzzlink-transport",
		TokenTTL:          2 * time.Minute,
		TransportCluster:  "eu",
	}
}
