package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Auth type constants
const (
	AuthTypeNone   = "none"
	AuthTypeBasic  = "basic"
	AuthTypeAPIKey = "apikey"
)

// Log format constants
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// DateLayout is the layout of ingest.pushed_after
const DateLayout = "2006-01-02"

// DefaultActivityWindow is how far back ingest.pushed_after reaches when unset
const DefaultActivityWindow = 365 * 24 * time.Hour

// AuthSettings configuration for authentication
type AuthSettings struct {
	Type    string            `mapstructure:"type"` // AuthTypeNone, AuthTypeBasic, or AuthTypeAPIKey
	Basic   BasicAuthSettings `mapstructure:"basic"`
	APIKeys []string          `mapstructure:"api_keys"`
}

// BasicAuthSettings configuration for basic auth
type BasicAuthSettings struct {
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// GitHubSettings configuration for the code hosting platform API
type GitHubSettings struct {
	Token   string        `mapstructure:"token"`
	BaseURL string        `mapstructure:"base_url" validate:"omitempty,url"`
	Timeout time.Duration `mapstructure:"timeout" validate:"gt=0"`
	// Ingestion budget
	RequestsPerSecond float64 `mapstructure:"requests_per_second" validate:"gte=0"`
	Burst             int     `mapstructure:"burst" validate:"gte=1"`
	// Live search, starred and README budget
	InteractiveRequestsPerSecond float64 `mapstructure:"interactive_requests_per_second" validate:"gte=0"`
	InteractiveBurst             int     `mapstructure:"interactive_burst" validate:"gte=1"`
}

// IndexSettings configuration for the local search index
type IndexSettings struct {
	Dir string `mapstructure:"dir" validate:"required"`
}

// IngestSettings configuration for repository ingestion
type IngestSettings struct {
	Enabled     bool          `mapstructure:"enabled"`
	Workers     int           `mapstructure:"workers" validate:"gte=1,lte=32"`
	PushedAfter string        `mapstructure:"pushed_after" validate:"omitempty,datetime=2006-01-02"`
	Interval    time.Duration `mapstructure:"interval" validate:"gt=0"`
	OnStart     bool          `mapstructure:"on_start"`
}

// PushedAfterDate returns the activity cutoff day. An unset value means one
// year before now.
func (s IngestSettings) PushedAfterDate(now time.Time) (time.Time, error) {
	if s.PushedAfter == "" {
		return now.Add(-DefaultActivityWindow).UTC().Truncate(24 * time.Hour), nil
	}
	t, err := time.Parse(DateLayout, s.PushedAfter)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid ingest.pushed_after %q: %w", s.PushedAfter, err)
	}
	return t, nil
}

// SearchSettings configuration for hybrid retrieval
type SearchSettings struct {
	TopK             int           `mapstructure:"top_k" validate:"gte=1,lte=100"`
	MatchingStrategy string        `mapstructure:"matching_strategy" validate:"oneof=frequency last all"`
	ScoreThreshold   float64       `mapstructure:"score_threshold" validate:"gte=0,lte=1"`
	LiveEnabled      bool          `mapstructure:"live_enabled"`
	LiveTimeout      time.Duration `mapstructure:"live_timeout" validate:"gt=0"`
}

// LogSettings configuration for logging
type LogSettings struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=text json"`
}

// Settings application settings
type Settings struct {
	Transport string         `mapstructure:"transport"`
	Host      string         `mapstructure:"host"`
	Port      int            `mapstructure:"port" validate:"gte=0,lte=65535"`
	Auth      AuthSettings   `mapstructure:"auth"`
	GitHub    GitHubSettings `mapstructure:"github"`
	Index     IndexSettings  `mapstructure:"index"`
	Ingest    IngestSettings `mapstructure:"ingest"`
	Search    SearchSettings `mapstructure:"search"`
	Log       LogSettings    `mapstructure:"log"`
}

// flagBindings maps config keys to CLI flag names
var flagBindings = map[string]string{
	"transport":                              "transport",
	"host":                                   "host",
	"port":                                   "port",
	"auth.type":                              "auth-type",
	"auth.basic.username":                    "auth-basic-username",
	"auth.basic.password":                    "auth-basic-password",
	"auth.api_keys":                          "auth-api-keys",
	"github.token":                           "github-token",
	"github.base_url":                        "github-base-url",
	"github.timeout":                         "github-timeout",
	"github.requests_per_second":             "github-requests-per-second",
	"github.interactive_requests_per_second": "github-interactive-requests-per-second",
	"index.dir":                              "index-dir",
	"ingest.enabled":                         "ingest-enabled",
	"ingest.workers":                         "ingest-workers",
	"ingest.pushed_after":                    "ingest-pushed-after",
	"ingest.interval":                        "ingest-interval",
	"ingest.on_start":                        "ingest-on-start",
	"search.top_k":                           "search-top-k",
	"search.matching_strategy":               "search-matching-strategy",
	"search.score_threshold":                 "search-score-threshold",
	"search.live_enabled":                    "search-live-enabled",
	"search.live_timeout":                    "search-live-timeout",
	"log.level":                              "log-level",
	"log.format":                             "log-format",
}

// LoadSettings loads settings from environment variables and optional .env file
func LoadSettings() (*Settings, error) {
	return LoadSettingsWithFlags(nil)
}

// LoadSettingsWithFlags loads settings with optional CLI flag overrides.
// Priority: CLI flags > environment variables > .env file > defaults.
// If flags is nil, only env vars and defaults are used.
func LoadSettingsWithFlags(flags *pflag.FlagSet) (*Settings, error) {
	v := viper.New()

	v.SetDefault("transport", "stdio")
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("port", 8080)
	v.SetDefault("auth.type", AuthTypeNone)

	v.SetDefault("github.token", "")
	v.SetDefault("github.base_url", "")
	v.SetDefault("github.timeout", 30*time.Second)
	// The search API allows 30 requests a minute: 24 for ingestion, 6 for interactive calls
	v.SetDefault("github.requests_per_second", 0.4)
	v.SetDefault("github.burst", 1)
	v.SetDefault("github.interactive_requests_per_second", 0.1)
	v.SetDefault("github.interactive_burst", 3)

	v.SetDefault("index.dir", defaultIndexDir())

	v.SetDefault("ingest.enabled", false)
	v.SetDefault("ingest.workers", 5)
	v.SetDefault("ingest.pushed_after", "")
	v.SetDefault("ingest.interval", 24*time.Hour)
	v.SetDefault("ingest.on_start", true)

	v.SetDefault("search.top_k", 20)
	v.SetDefault("search.matching_strategy", "frequency")
	v.SetDefault("search.score_threshold", 0.2)
	v.SetDefault("search.live_enabled", true)
	v.SetDefault("search.live_timeout", 10*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", LogFormatText)

	v.SetEnvPrefix("RADAR_MCP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Nested keys need explicit bindings for Unmarshal to see env values
	for key := range flagBindings {
		_ = v.BindEnv(key, envName(key))
	}
	_ = v.BindEnv("github.burst", envName("github.burst"))
	_ = v.BindEnv("github.interactive_burst", envName("github.interactive_burst"))
	// GITHUB_TOKEN is honoured as a fallback for the platform credential
	_ = v.BindEnv("github.token", envName("github.token"), "GITHUB_TOKEN")

	if flags != nil {
		for key, name := range flagBindings {
			if f := flags.Lookup(name); f != nil {
				_ = v.BindPFlag(key, f)
			}
		}
	}

	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // Ignore error if .env doesn't exist

	var settings Settings
	if err := v.Unmarshal(&settings); err != nil {
		return nil, err
	}

	// Handle explicit parsing of API keys if provided via env var as comma-separated string
	apiKeysEnv := os.Getenv("RADAR_MCP_AUTH_API_KEYS")
	if apiKeysEnv != "" {
		if len(settings.Auth.APIKeys) == 0 || (len(settings.Auth.APIKeys) == 1 && strings.Contains(settings.Auth.APIKeys[0], ",")) {
			settings.Auth.APIKeys = strings.Split(apiKeysEnv, ",")
		}
	}

	for i := range settings.Auth.APIKeys {
		settings.Auth.APIKeys[i] = strings.TrimSpace(settings.Auth.APIKeys[i])
	}
	settings.Auth.APIKeys = filterEmptyStrings(settings.Auth.APIKeys)

	settings.Index.Dir = expandHomeDir(settings.Index.Dir)
	settings.Search.MatchingStrategy = strings.ToLower(strings.TrimSpace(settings.Search.MatchingStrategy))
	settings.Log.Level = strings.ToLower(strings.TrimSpace(settings.Log.Level))
	settings.Log.Format = strings.ToLower(strings.TrimSpace(settings.Log.Format))

	return &settings, nil
}

func envName(key string) string {
	return "RADAR_MCP_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// defaultIndexDir returns the default base directory for the index and manifest
func defaultIndexDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".radar-mcp"
	}
	return filepath.Join(home, ".radar-mcp")
}

// expandHomeDir expands ~ to the user's home directory
func expandHomeDir(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	if path == "~" {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return home
	}
	return path
}

// filterEmptyStrings removes empty strings from a slice
func filterEmptyStrings(s []string) []string {
	var result []string
	for _, str := range s {
		if str != "" {
			result = append(result, str)
		}
	}
	return result
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidateSettings checks for conflicting configurations and out of range values.
func ValidateSettings(s *Settings) error {
	switch s.Transport {
	case "stdio", "sse":
		// valid
	default:
		return errors.New("transport must be 'stdio' or 'sse', got: " + s.Transport)
	}

	hasBasicCreds := s.Auth.Basic.Username != "" || s.Auth.Basic.Password != ""
	hasAPIKeys := len(s.Auth.APIKeys) > 0

	switch s.Auth.Type {
	case AuthTypeNone, "":
		if hasBasicCreds || hasAPIKeys {
			return errors.New("auth-type 'none' is incompatible with auth credentials")
		}
	case AuthTypeBasic:
		if hasAPIKeys {
			return errors.New("auth-type 'basic' is mutually exclusive with auth-api-keys")
		}
		if s.Auth.Basic.Username == "" || s.Auth.Basic.Password == "" {
			return errors.New("auth-type 'basic' requires both username and password")
		}
	case AuthTypeAPIKey:
		if hasBasicCreds {
			return errors.New("auth-type 'apikey' is mutually exclusive with basic auth credentials")
		}
		if !hasAPIKeys {
			return errors.New("auth-type 'apikey' requires at least one API key")
		}
	default:
		return errors.New("unknown auth-type: " + s.Auth.Type)
	}

	if err := validate.Struct(s); err != nil {
		return describeValidationError(err)
	}

	if s.Ingest.Enabled && s.GitHub.Token == "" {
		return errors.New("ingest-enabled requires a github token (search quota is too low without one)")
	}

	return nil
}

// describeValidationError turns validator errors into flag-oriented messages.
func describeValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		name := fieldFlagName(fe.Namespace())
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s failed '%s=%s' (got %v)", name, fe.Tag(), fe.Param(), fe.Value()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s failed '%s' (got %v)", name, fe.Tag(), fe.Value()))
		}
	}
	return errors.New(strings.Join(msgs, "; "))
}

// fieldFlagName converts "Settings.Search.TopK" into "search.TopK" style names
// that point users at the right section.
func fieldFlagName(namespace string) string {
	parts := strings.Split(namespace, ".")
	if len(parts) > 1 {
		parts = parts[1:]
	}
	if len(parts) > 1 {
		parts[0] = strings.ToLower(parts[0])
	}
	return strings.Join(parts, ".")
}
