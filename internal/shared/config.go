package shared

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Database DatabaseConfig `toml:"database"`
	Server   ServerConfig   `toml:"server"`
	Auth     AuthConfig     `toml:"auth"`
	YouTube  YouTubeConfig  `toml:"youtube"`
	CheckIn  CheckInConfig  `toml:"checkin"`
	Log      LogConfig      `toml:"log"`
}

// DatabaseConfig contains database connection settings.
//
// Driver is "sqlite3" (Path is used) or "postgres" (DSN is used).
type DatabaseConfig struct {
	Driver       string `toml:"driver"`
	Path         string `toml:"path"`
	DSN          string `toml:"dsn"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains HTTP server and session settings.
type ServerConfig struct {
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	BaseURL       string `toml:"base_url"`
	SessionKey    string `toml:"session_key"`
	JWTSecret     string `toml:"jwt_secret"`
	TokenTTL      string `toml:"token_ttl"`
	SecureCookies bool   `toml:"secure_cookies"`
}

// AuthConfig contains identity provider settings.
type AuthConfig struct {
	OIDC OIDCConfig `toml:"oidc"`
}

// OIDCConfig contains OpenID Connect client credentials.
type OIDCConfig struct {
	ProviderURL  string `toml:"provider_url"`
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RedirectURL  string `toml:"redirect_url"`
}

// YouTubeConfig contains YouTube Data API settings used by playlist import.
type YouTubeConfig struct {
	APIKey            string  `toml:"api_key"`
	BaseURL           string  `toml:"base_url"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
	VideosPerSection  int     `toml:"videos_per_section"`
}

// CheckInConfig controls where the check-in day boundary falls.
type CheckInConfig struct {
	Timezone string `toml:"timezone"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level string `toml:"level"`
}

// Addr returns the host:port the HTTP server listens on.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// TTL parses TokenTTL, falling back to 30 days when unset or malformed.
func (s ServerConfig) TTL() time.Duration {
	d, err := time.ParseDuration(s.TokenTTL)
	if err != nil || d <= 0 {
		return 30 * 24 * time.Hour
	}
	return d
}

// Enabled reports whether enough OIDC settings are present to run the login flow.
func (o OIDCConfig) Enabled() bool {
	return o.ProviderURL != "" && o.ClientID != ""
}

// Location loads the configured timezone; an empty value means UTC.
func (c CheckInConfig) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%w: checkin.timezone %q: %v", ErrInvalidConfig, c.Timezone, err)
	}
	return loc, nil
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Values missing from the file keep the embedded defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// LoadEnv loads .env files into the process environment. Missing files are ignored.
func LoadEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// ApplyEnv overrides secrets and connection settings from PLUTO_* environment variables.
func (c *Config) ApplyEnv() {
	for env, dst := range map[string]*string{
		"PLUTO_DATABASE_DRIVER":    &c.Database.Driver,
		"PLUTO_DATABASE_PATH":      &c.Database.Path,
		"PLUTO_DATABASE_DSN":       &c.Database.DSN,
		"PLUTO_SESSION_KEY":        &c.Server.SessionKey,
		"PLUTO_JWT_SECRET":         &c.Server.JWTSecret,
		"PLUTO_OIDC_PROVIDER_URL":  &c.Auth.OIDC.ProviderURL,
		"PLUTO_OIDC_CLIENT_ID":     &c.Auth.OIDC.ClientID,
		"PLUTO_OIDC_CLIENT_SECRET": &c.Auth.OIDC.ClientSecret,
		"PLUTO_OIDC_REDIRECT_URL":  &c.Auth.OIDC.RedirectURL,
		"PLUTO_YOUTUBE_API_KEY":    &c.YouTube.APIKey,
		"PLUTO_CHECKIN_TIMEZONE":   &c.CheckIn.Timezone,
		"PLUTO_LOG_LEVEL":          &c.Log.Level,
	} {
		if v, ok := os.LookupEnv(env); ok && v != "" {
			*dst = v
		}
	}
}

// Validate checks settings the HTTP server cannot run without.
func (c *Config) Validate() error {
	if c.Server.SessionKey == "" {
		return fmt.Errorf("%w: server.session_key is required", ErrInvalidConfig)
	}
	if c.Server.JWTSecret == "" {
		return fmt.Errorf("%w: server.jwt_secret is required", ErrInvalidConfig)
	}
	switch c.Database.Driver {
	case "", DriverSQLite, DriverPostgres:
	default:
		return fmt.Errorf("%w: unsupported database driver %q", ErrInvalidConfig, c.Database.Driver)
	}
	if _, err := c.CheckIn.Location(); err != nil {
		return err
	}
	return nil
}
