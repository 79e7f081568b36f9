package config

import (
	"context"
	"io"
	"log/slog"
)

const masked = "****"

// NewLogger builds the process logger from the log settings.
func NewLogger(s LogSettings, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(s.Level)}
	if s.Format == LogFormatJSON {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// ParseLevel maps a level name to a slog level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Log logs the resolved settings in a granular way, skipping irrelevant ones
func Log(s *Settings) {
	LogWithLogger(s, slog.Default())
}

// LogWithLogger logs the resolved settings using the provided logger
func LogWithLogger(s *Settings, logger *slog.Logger) {
	ctx := context.Background()
	logger.InfoContext(ctx, "Config: transport", "value", s.Transport)
	if s.Transport == "sse" {
		logger.InfoContext(ctx, "Config: host", "value", s.Host)
		logger.InfoContext(ctx, "Config: port", "value", s.Port)
	}

	logger.InfoContext(ctx, "Config: auth.type", "value", s.Auth.Type)
	switch s.Auth.Type {
	case AuthTypeBasic:
		logger.InfoContext(ctx, "Config: auth.basic.username", "value", s.Auth.Basic.Username)
		logger.InfoContext(ctx, "Config: auth.basic.password", "value", masked)
	case AuthTypeAPIKey:
		logger.InfoContext(ctx, "Config: auth.api_keys", "count", len(s.Auth.APIKeys))
	}

	logger.InfoContext(ctx, "Config: github", "value", GitHubSettingsLogValue(s.GitHub))
	logger.InfoContext(ctx, "Config: index.dir", "value", s.Index.Dir)

	logger.InfoContext(ctx, "Config: ingest.enabled", "value", s.Ingest.Enabled)
	if s.Ingest.Enabled {
		logger.InfoContext(ctx, "Config: ingest",
			"workers", s.Ingest.Workers,
			"pushed_after", s.Ingest.PushedAfter,
			"interval", s.Ingest.Interval,
			"on_start", s.Ingest.OnStart,
		)
	}

	logger.InfoContext(ctx, "Config: search",
		"top_k", s.Search.TopK,
		"matching_strategy", s.Search.MatchingStrategy,
		"score_threshold", s.Search.ScoreThreshold,
		"live_enabled", s.Search.LiveEnabled,
		"live_timeout", s.Search.LiveTimeout,
	)
}

// GitHubSettingsLogValue returns a slog.Value for GitHubSettings with the token masked
func GitHubSettingsLogValue(s GitHubSettings) slog.Value {
	token := ""
	if s.Token != "" {
		token = masked
	}
	return slog.GroupValue(
		slog.String("token", token),
		slog.String("base_url", s.BaseURL),
		slog.Duration("timeout", s.Timeout),
		slog.Float64("requests_per_second", s.RequestsPerSecond),
		slog.Int("burst", s.Burst),
		slog.Float64("interactive_requests_per_second", s.InteractiveRequestsPerSecond),
		slog.Int("interactive_burst", s.InteractiveBurst),
	)
}

// AuthSettingsLogValue returns a slog.Value for AuthSettings with masked data
func AuthSettingsLogValue(s AuthSettings) slog.Value {
	keys := make([]string, len(s.APIKeys))
	for i := range s.APIKeys {
		keys[i] = masked
	}
	return slog.GroupValue(
		slog.String("type", s.Type),
		slog.Any("basic", BasicAuthSettingsLogValue(s.Basic)),
		slog.Any("api_keys", keys),
	)
}

// BasicAuthSettingsLogValue returns a slog.Value for BasicAuthSettings with masked data
func BasicAuthSettingsLogValue(s BasicAuthSettings) slog.Value {
	return slog.GroupValue(
		slog.String("username", s.Username),
		slog.String("password", masked),
	)
}

// SettingsLogValue returns a slog.Value for Settings with masked data
func SettingsLogValue(s Settings) slog.Value {
	return slog.GroupValue(
		slog.String("transport", s.Transport),
		slog.String("host", s.Host),
		slog.Int("port", s.Port),
		slog.Any("auth", AuthSettingsLogValue(s.Auth)),
		slog.Any("github", GitHubSettingsLogValue(s.GitHub)),
		slog.String("index_dir", s.Index.Dir),
	)
}
