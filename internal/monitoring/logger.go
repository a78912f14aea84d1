package monitoring

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Rotation limits for file output.
const (
	logMaxSizeMB  = 50
	logMaxAgeDays = 14
	logMaxBackups = 5
)

// SetupLogger configures the global zerolog logger.
// Unknown levels fall back to info; any output other than stdout/stderr is
// treated as a file path and rotated.
func SetupLogger(cfg LoggerConfig) {
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(cfg.Level)))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	log.Logger = zerolog.New(newLogWriter(cfg)).With().Timestamp().Logger()
}

func newLogWriter(cfg LoggerConfig) io.Writer {
	var out io.Writer
	switch strings.ToLower(cfg.Output) {
	case "", "stdout":
		out = os.Stdout
	case "stderr":
		out = os.Stderr
	default:
		out = &lumberjack.Logger{
			Filename:   cfg.Output,
			MaxSize:    logMaxSizeMB,
			MaxAge:     logMaxAgeDays,
			MaxBackups: logMaxBackups,
			Compress:   true,
		}
		// Files are for machines.
		return out
	}

	if strings.EqualFold(cfg.Format, "console") {
		return zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"}
	}
	return out
}
