package logger

import (
	"io"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
	"gopkg.in/lumberjack.v2"
)

// Config controls the global logrus logger.
type Config struct {
	Level      string
	Format     string // "json" or "text"
	Console    bool
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// Init configures the standard logrus logger. Output goes to stdout and, when
// File is set, to a size-rotated file.
func Init(cfg Config) {
	log.SetLevel(parseLevel(cfg.Level))
	log.SetFormatter(formatter(cfg.Format))
	log.SetOutput(output(cfg))

	log.WithFields(log.Fields{"level": cfg.Level, "file": cfg.File}).Info("logger initialized")
}

func output(cfg Config) io.Writer {
	var writers []io.Writer
	if cfg.Console {
		writers = append(writers, os.Stdout)
	}
	if cfg.File != "" {
		writers = append(writers, &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			LocalTime:  true,
		})
	}
	if len(writers) == 0 {
		writers = append(writers, os.Stdout)
	}
	return io.MultiWriter(writers...)
}

func formatter(format string) log.Formatter {
	if strings.EqualFold(format, "text") {
		return &log.TextFormatter{FullTimestamp: true}
	}
	return &log.JSONFormatter{}
}

func parseLevel(s string) log.Level {
	level, err := log.ParseLevel(strings.ToLower(s))
	if err != nil {
		return log.InfoLevel
	}
	return level
}
