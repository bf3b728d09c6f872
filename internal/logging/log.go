// SPDX-License-Identifier: AGPL-3.0-or-later
package logging

import (
	"log/slog"
	"os"

	"github.com/btaudio/btaudiod/internal/config"
	"github.com/lmittmann/tint"
)

// New builds a slog.Logger from the daemon's log level, tinted for terminal
// readability. Callers hold onto the returned logger and pass it down
// explicitly (via slog.New / component constructors) rather than reaching
// for a package-global logger.
func New(cfg *config.Config) *slog.Logger {
	level, w := levelAndWriter(cfg.LogLevel)
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: "15:04:05.000",
	}))
}

func levelAndWriter(l config.LogLevel) (slog.Level, *os.File) {
	switch l {
	case config.LogLevelDebug:
		return slog.LevelDebug, os.Stdout
	case config.LogLevelInfo:
		return slog.LevelInfo, os.Stdout
	case config.LogLevelWarn:
		return slog.LevelWarn, os.Stderr
	case config.LogLevelError:
		return slog.LevelError, os.Stderr
	default:
		return slog.LevelInfo, os.Stdout
	}
}
