package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

// validSettings returns settings that pass validation, as loaded with defaults.
func validSettings() *Settings {
	return &Settings{
		Transport: "stdio",
		Host:      "0.0.0.0",
		Port:      8080,
		Auth:      AuthSettings{Type: AuthTypeNone},
		GitHub: GitHubSettings{
			Timeout:                      30 * time.Second,
			RequestsPerSecond:            0.4,
			Burst:                        1,
			InteractiveRequestsPerSecond: 0.1,
			InteractiveBurst:             3,
		},
		Index: IndexSettings{Dir: "/tmp/radar"},
		Ingest: IngestSettings{
			Workers:  5,
			Interval: 24 * time.Hour,
		},
		Search: SearchSettings{
			TopK:             20,
			MatchingStrategy: "frequency",
			ScoreThreshold:   0.2,
			LiveEnabled:      true,
			LiveTimeout:      10 * time.Second,
		},
		Log: LogSettings{Level: "info", Format: LogFormatText},
	}
}

func TestLoadSettings_Defaults(t *testing.T) {
	_ = os.Unsetenv("RADAR_MCP_PORT")
	_ = os.Unsetenv("RADAR_MCP_AUTH_TYPE")

	settings, err := LoadSettings()
	if err != nil {
		t.Fatalf("Failed to load settings: %v", err)
	}

	if settings.Port != 8080 {
		t.Errorf("Expected default port 8080, got %d", settings.Port)
	}
	if settings.Auth.Type != AuthTypeNone {
		t.Errorf("Expected default auth type '%s', got '%s'", AuthTypeNone, settings.Auth.Type)
	}
	if settings.Transport != "stdio" {
		t.Errorf("Expected default transport 'stdio', got '%s'", settings.Transport)
	}
	if settings.Host != "0.0.0.0" {
		t.Errorf("Expected default host '0.0.0.0', got '%s'", settings.Host)
	}
	if settings.Search.TopK != 20 {
		t.Errorf("Expected default top_k 20, got %d", settings.Search.TopK)
	}
	if settings.Search.MatchingStrategy != "frequency" {
		t.Errorf("Expected default matching strategy 'frequency', got '%s'", settings.Search.MatchingStrategy)
	}
	if settings.Search.ScoreThreshold != 0.2 {
		t.Errorf("Expected default score threshold 0.2, got %v", settings.Search.ScoreThreshold)
	}
	if !settings.Search.LiveEnabled {
		t.Error("Expected live search to be enabled by default")
	}
	if settings.Ingest.Workers != 5 {
		t.Errorf("Expected default workers 5, got %d", settings.Ingest.Workers)
	}
	if settings.Ingest.Interval != 24*time.Hour {
		t.Errorf("Expected default interval 24h, got %v", settings.Ingest.Interval)
	}
	if settings.GitHub.Timeout != 30*time.Second {
		t.Errorf("Expected default github timeout 30s, got %v", settings.GitHub.Timeout)
	}
	if settings.Log.Format != LogFormatText {
		t.Errorf("Expected default log format 'text', got '%s'", settings.Log.Format)
	}
	if !strings.HasSuffix(settings.Index.Dir, ".radar-mcp") {
		t.Errorf("Expected default index dir to end with .radar-mcp, got '%s'", settings.Index.Dir)
	}
}

func TestLoadSettings_DefaultsAreValid(t *testing.T) {
	settings, err := LoadSettings()
	if err != nil {
		t.Fatalf("Failed to load settings: %v", err)
	}
	if err := ValidateSettings(settings); err != nil {
		t.Errorf("Expected defaults to be valid, got: %v", err)
	}
}

func TestLoadSettings_EnvVars(t *testing.T) {
	t.Setenv("RADAR_MCP_PORT", "9090")
	t.Setenv("RADAR_MCP_AUTH_TYPE", "basic")
	t.Setenv("RADAR_MCP_AUTH_BASIC_USERNAME", "admin")

	settings, err := LoadSettings()
	if err != nil {
		t.Fatalf("Failed to load settings: %v", err)
	}

	if settings.Port != 9090 {
		t.Errorf("Expected port 9090, got %d", settings.Port)
	}
	if settings.Auth.Type != AuthTypeBasic {
		t.Errorf("Expected auth type '%s', got '%s'", AuthTypeBasic, settings.Auth.Type)
	}
	if settings.Auth.Basic.Username != "admin" {
		t.Errorf("Expected username 'admin', got '%s'", settings.Auth.Basic.Username)
	}
}

func TestLoadSettings_NestedEnvVars(t *testing.T) {
	t.Setenv("RADAR_MCP_GITHUB_TOKEN", "ghp_test")
	t.Setenv("RADAR_MCP_GITHUB_BASE_URL", "http://127.0.0.1:9999/")
	t.Setenv("RADAR_MCP_GITHUB_BURST", "3")
	t.Setenv("RADAR_MCP_INGEST_ENABLED", "true")
	t.Setenv("RADAR_MCP_INGEST_WORKERS", "8")
	t.Setenv("RADAR_MCP_INGEST_PUSHED_AFTER", "2024-01-01")
	t.Setenv("RADAR_MCP_INGEST_INTERVAL", "6h")
	t.Setenv("RADAR_MCP_SEARCH_TOP_K", "10")
	t.Setenv("RADAR_MCP_SEARCH_MATCHING_STRATEGY", "ALL")
	t.Setenv("RADAR_MCP_SEARCH_LIVE_TIMEOUT", "2s")
	t.Setenv("RADAR_MCP_LOG_FORMAT", "json")

	settings, err := LoadSettings()
	if err != nil {
		t.Fatalf("Failed to load settings: %v", err)
	}

	if settings.GitHub.Token != "ghp_test" {
		t.Errorf("Expected github token from env, got '%s'", settings.GitHub.Token)
	}
	if settings.GitHub.BaseURL != "http://127.0.0.1:9999/" {
		t.Errorf("Expected github base url from env, got '%s'", settings.GitHub.BaseURL)
	}
	if settings.GitHub.Burst != 3 {
		t.Errorf("Expected burst 3, got %d", settings.GitHub.Burst)
	}
	if !settings.Ingest.Enabled {
		t.Error("Expected ingest to be enabled")
	}
	if settings.Ingest.Workers != 8 {
		t.Errorf("Expected workers 8, got %d", settings.Ingest.Workers)
	}
	if settings.Ingest.PushedAfter != "2024-01-01" {
		t.Errorf("Expected pushed_after '2024-01-01', got '%s'", settings.Ingest.PushedAfter)
	}
	if settings.Ingest.Interval != 6*time.Hour {
		t.Errorf("Expected interval 6h, got %v", settings.Ingest.Interval)
	}
	if settings.Search.TopK != 10 {
		t.Errorf("Expected top_k 10, got %d", settings.Search.TopK)
	}
	if settings.Search.MatchingStrategy != "all" {
		t.Errorf("Expected normalized strategy 'all', got '%s'", settings.Search.MatchingStrategy)
	}
	if settings.Search.LiveTimeout != 2*time.Second {
		t.Errorf("Expected live timeout 2s, got %v", settings.Search.LiveTimeout)
	}
	if settings.Log.Format != LogFormatJSON {
		t.Errorf("Expected log format 'json', got '%s'", settings.Log.Format)
	}
}

func TestLoadSettings_GitHubTokenFallback(t *testing.T) {
	_ = os.Unsetenv("RADAR_MCP_GITHUB_TOKEN")
	t.Setenv("GITHUB_TOKEN", "ghp_fallback")

	settings, err := LoadSettings()
	if err != nil {
		t.Fatalf("Failed to load settings: %v", err)
	}
	if settings.GitHub.Token != "ghp_fallback" {
		t.Errorf("Expected GITHUB_TOKEN fallback, got '%s'", settings.GitHub.Token)
	}
}

func TestLoadSettings_APIKeys_EnvVar(t *testing.T) {
	t.Setenv("RADAR_MCP_AUTH_API_KEYS", "key1, key2,key3")

	settings, err := LoadSettings()
	if err != nil {
		t.Fatalf("Failed to load settings: %v", err)
	}

	want := []string{"key1", "key2", "key3"}
	if len(settings.Auth.APIKeys) != len(want) {
		t.Fatalf("Expected %d API keys, got %d", len(want), len(settings.Auth.APIKeys))
	}
	for i, k := range want {
		if settings.Auth.APIKeys[i] != k {
			t.Errorf("Expected %s, got '%s'", k, settings.Auth.APIKeys[i])
		}
	}
}

func TestLoadSettings_EnvFile(t *testing.T) {
	content := []byte("host=127.0.0.2\nport=7000")
	tmpEnv := ".env"
	if err := os.WriteFile(tmpEnv, content, 0644); err != nil {
		t.Fatalf("Failed to create .env file: %v", err)
	}
	defer func() { _ = os.Remove(tmpEnv) }()

	settings, err := LoadSettings()
	if err != nil {
		t.Fatalf("Failed to load settings: %v", err)
	}

	if settings.Host != "127.0.0.2" {
		t.Errorf("Expected host 127.0.0.2, got %s", settings.Host)
	}
	if settings.Port != 7000 {
		t.Errorf("Expected port 7000, got %d", settings.Port)
	}
}

func TestLoadSettings_InvalidConfig(t *testing.T) {
	t.Setenv("RADAR_MCP_PORT", "not-a-number")

	_, err := LoadSettings()
	if err == nil {
		t.Fatal("Expected error for invalid port type")
	}
}

func TestLoadSettings_ExpandsHomeDir(t *testing.T) {
	t.Setenv("RADAR_MCP_INDEX_DIR", "~/radar-data")

	settings, err := LoadSettings()
	if err != nil {
		t.Fatalf("Failed to load settings: %v", err)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	if settings.Index.Dir != filepath.Join(home, "radar-data") {
		t.Errorf("Expected expanded index dir, got '%s'", settings.Index.Dir)
	}
}

func TestLoadSettingsWithFlags_CLIOverridesEnv(t *testing.T) {
	t.Setenv("RADAR_MCP_PORT", "9090")
	t.Setenv("RADAR_MCP_TRANSPORT", "sse")
	t.Setenv("RADAR_MCP_SEARCH_TOP_K", "15")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("port", 0, "")
	flags.String("transport", "", "")
	flags.Int("search-top-k", 0, "")
	_ = flags.Set("port", "7777")
	_ = flags.Set("transport", "stdio")
	_ = flags.Set("search-top-k", "5")

	settings, err := LoadSettingsWithFlags(flags)
	if err != nil {
		t.Fatalf("Failed to load settings: %v", err)
	}

	if settings.Port != 7777 {
		t.Errorf("Expected CLI port 7777, got %d", settings.Port)
	}
	if settings.Transport != "stdio" {
		t.Errorf("Expected CLI transport 'stdio', got '%s'", settings.Transport)
	}
	if settings.Search.TopK != 5 {
		t.Errorf("Expected CLI top_k 5, got %d", settings.Search.TopK)
	}
}

func TestLoadSettingsWithFlags_UnsetFlagsKeepEnv(t *testing.T) {
	t.Setenv("RADAR_MCP_HOST", "192.168.1.1")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("host", "", "")

	settings, err := LoadSettingsWithFlags(flags)
	if err != nil {
		t.Fatalf("Failed to load settings: %v", err)
	}

	if settings.Host != "192.168.1.1" {
		t.Errorf("Expected env host '192.168.1.1', got '%s'", settings.Host)
	}
}

// --- ValidateSettings Tests ---

func TestValidateSettings_Valid(t *testing.T) {
	if err := ValidateSettings(validSettings()); err != nil {
		t.Errorf("Expected no error, got: %v", err)
	}
}

func TestValidateSettings_Transport(t *testing.T) {
	s := validSettings()
	s.Transport = "grpc"
	err := ValidateSettings(s)
	if err == nil {
		t.Fatal("Expected error for unknown transport")
	}
	if !strings.Contains(err.Error(), "transport") {
		t.Errorf("Expected 'transport' in error, got: %v", err)
	}
}

func TestValidateSettings_Auth(t *testing.T) {
	tests := []struct {
		name    string
		auth    AuthSettings
		wantErr string
	}{
		{name: "none", auth: AuthSettings{Type: AuthTypeNone}},
		{name: "empty type", auth: AuthSettings{Type: ""}},
		{name: "basic", auth: AuthSettings{Type: AuthTypeBasic, Basic: BasicAuthSettings{Username: "admin", Password: "secret"}}},
		{name: "apikey", auth: AuthSettings{Type: AuthTypeAPIKey, APIKeys: []string{"key1", "key2"}}},
		{name: "none with username", auth: AuthSettings{Type: AuthTypeNone, Basic: BasicAuthSettings{Username: "admin"}}, wantErr: "incompatible"},
		{name: "none with api keys", auth: AuthSettings{Type: AuthTypeNone, APIKeys: []string{"key1"}}, wantErr: "incompatible"},
		{name: "basic missing password", auth: AuthSettings{Type: AuthTypeBasic, Basic: BasicAuthSettings{Username: "admin"}}, wantErr: "username and password"},
		{name: "basic with api keys", auth: AuthSettings{Type: AuthTypeBasic, Basic: BasicAuthSettings{Username: "admin", Password: "secret"}, APIKeys: []string{"key1"}}, wantErr: "mutually exclusive"},
		{name: "apikey missing keys", auth: AuthSettings{Type: AuthTypeAPIKey}, wantErr: "requires at least one"},
		{name: "apikey with basic", auth: AuthSettings{Type: AuthTypeAPIKey, APIKeys: []string{"key1"}, Basic: BasicAuthSettings{Username: "admin"}}, wantErr: "mutually exclusive"},
		{name: "unknown", auth: AuthSettings{Type: "oauth"}, wantErr: "unknown auth-type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := validSettings()
			s.Auth = tt.auth
			err := ValidateSettings(s)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Expected no error, got: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected %q in error, got: %v", tt.wantErr, err)
			}
		})
	}
}

func TestValidateSettings_FieldRules(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Settings)
		wantErr string
	}{
		{name: "zero top_k", mutate: func(s *Settings) { s.Search.TopK = 0 }, wantErr: "TopK"},
		{name: "unknown strategy", mutate: func(s *Settings) { s.Search.MatchingStrategy = "fuzzy" }, wantErr: "MatchingStrategy"},
		{name: "threshold above one", mutate: func(s *Settings) { s.Search.ScoreThreshold = 1.5 }, wantErr: "ScoreThreshold"},
		{name: "zero live timeout", mutate: func(s *Settings) { s.Search.LiveTimeout = 0 }, wantErr: "LiveTimeout"},
		{name: "zero workers", mutate: func(s *Settings) { s.Ingest.Workers = 0 }, wantErr: "Workers"},
		{name: "bad pushed_after", mutate: func(s *Settings) { s.Ingest.PushedAfter = "last year" }, wantErr: "PushedAfter"},
		{name: "empty index dir", mutate: func(s *Settings) { s.Index.Dir = "" }, wantErr: "Dir"},
		{name: "bad base url", mutate: func(s *Settings) { s.GitHub.BaseURL = "not a url" }, wantErr: "BaseURL"},
		{name: "bad log level", mutate: func(s *Settings) { s.Log.Level = "verbose" }, wantErr: "Level"},
		{name: "ingest without token", mutate: func(s *Settings) { s.Ingest.Enabled = true }, wantErr: "github token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := validSettings()
			tt.mutate(s)
			err := ValidateSettings(s)
			if err == nil {
				t.Fatalf("Expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected %q in error, got: %v", tt.wantErr, err)
			}
		})
	}
}

func TestValidateSettings_IngestWithToken(t *testing.T) {
	s := validSettings()
	s.Ingest.Enabled = true
	s.Ingest.PushedAfter = "2024-06-01"
	s.GitHub.Token = "ghp_test"
	if err := ValidateSettings(s); err != nil {
		t.Errorf("Expected no error, got: %v", err)
	}
}

func TestIngestSettings_PushedAfterDate(t *testing.T) {
	now := time.Date(2025, 3, 10, 15, 30, 0, 0, time.UTC)

	got, err := IngestSettings{}.PushedAfterDate(now)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	want := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("Expected default cutoff %v, got %v", want, got)
	}

	got, err = IngestSettings{PushedAfter: "2023-12-31"}.PushedAfterDate(now)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if got.Format(DateLayout) != "2023-12-31" {
		t.Errorf("Expected 2023-12-31, got %v", got)
	}

	if _, err := (IngestSettings{PushedAfter: "31/12/2023"}).PushedAfterDate(now); err == nil {
		t.Error("Expected error for malformed date")
	}
}

func TestExpandHomeDir(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}

	tests := []struct {
		in   string
		want string
	}{
		{"~", home},
		{"~/data", filepath.Join(home, "data")},
		{"/abs/path", "/abs/path"},
		{"relative", "relative"},
	}
	for _, tt := range tests {
		if got := expandHomeDir(tt.in); got != tt.want {
			t.Errorf("expandHomeDir(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFilterEmptyStrings(t *testing.T) {
	got := filterEmptyStrings([]string{"a", "", "b", ""})
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("Expected [a b], got %v", got)
	}
	if got := filterEmptyStrings(nil); got != nil {
		t.Errorf("Expected nil, got %v", got)
	}
}
