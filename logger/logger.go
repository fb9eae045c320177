// Package logger builds the shared application logger writing to stdout
// and a size-rotated file.
package logger

import (
	"io"
	"log"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/wbtools/tariffs-keeper/config"
)

// New returns a logger that writes to stdout and, when a file path is
// configured, to a rotated log file. log.Logger is goroutine-safe;
// timestamps include microseconds and UTC.
func New(cfg config.LoggingConfig, prefix string) *log.Logger {
	writers := []io.Writer{os.Stdout}

	if cfg.FilePath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0o755); err == nil {
			writers = append(writers, &lumberjack.Logger{
				Filename:   cfg.FilePath,
				MaxSize:    cfg.MaxSizeMB,
				MaxBackups: cfg.MaxBackups,
				MaxAge:     cfg.MaxAgeDays,
				Compress:   cfg.Compress,
			})
		}
	}

	return log.New(io.MultiWriter(writers...), prefix, log.LstdFlags|log.Lmicroseconds|log.LUTC)
}
