package config

import "log/slog"

// LogFormat enumerates supported log output formats.
type LogFormat string

const (
	LogFormatJSON LogFormat = "json"
	LogFormatText LogFormat = "text"
)

// NormalizeLogLevel maps a config string to a slog level, defaulting to info.
func NormalizeLogLevel(raw string) slog.Level {
	switch raw {
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

// NormalizeLogFormat maps a config string to a LogFormat, defaulting to text.
func NormalizeLogFormat(raw string) LogFormat {
	if raw == "json" {
		return LogFormatJSON
	}
	return LogFormatText
}
