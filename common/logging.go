package common

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/jsonc"
)

// LogLevel returns the slog.Level for a pair of -debug / -info flags. The
// default level is WARN.
func LogLevel(debug bool, info bool) slog.Level {

	if debug {
		return slog.LevelDebug
	}

	if info {
		return slog.LevelInfo
	}

	return slog.LevelWarn
}

// SetupLogging configures the default slog logger. If uri is not empty it is
// treated as the path to a JSON (or JSONC) logging configuration file with
// optional 'level', 'format' and 'output' fields. Flag-derived levels take
// precedence over the config file.
func SetupLogging(uri string, level slog.Level) error {

	format := "text"
	var out io.Writer = os.Stderr

	if uri != "" {

		body, err := os.ReadFile(uri)

		if err != nil {
			return fmt.Errorf("Failed to read logging config '%s', %w", uri, err)
		}

		body = jsonc.ToJSON(body)

		if !gjson.ValidBytes(body) {
			return fmt.Errorf("Invalid JSON in logging config '%s'", uri)
		}

		level_rsp := gjson.GetBytes(body, "level")

		if level_rsp.Exists() && level == slog.LevelWarn {

			switch strings.ToLower(level_rsp.String()) {
			case "debug":
				level = slog.LevelDebug
			case "info":
				level = slog.LevelInfo
			case "warn", "warning":
				level = slog.LevelWarn
			case "error":
				level = slog.LevelError
			default:
				return fmt.Errorf("Invalid logging level '%s'", level_rsp.String())
			}
		}

		format_rsp := gjson.GetBytes(body, "format")

		if format_rsp.Exists() {
			format = format_rsp.String()
		}

		output_rsp := gjson.GetBytes(body, "output")

		if output_rsp.Exists() {

			switch output_rsp.String() {
			case "stderr":
				out = os.Stderr
			case "stdout":
				out = os.Stdout
			default:

				fh, err := os.OpenFile(output_rsp.String(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)

				if err != nil {
					return fmt.Errorf("Failed to open log output '%s', %w", output_rsp.String(), err)
				}

				out = fh
			}
		}
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler

	switch format {
	case "json":
		handler = slog.NewJSONHandler(out, opts)
	case "text":
		handler = slog.NewTextHandler(out, opts)
	default:
		return fmt.Errorf("Invalid logging format '%s'", format)
	}

	slog.SetDefault(slog.New(handler))
	return nil
}
