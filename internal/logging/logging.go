// internal/logging/logging.go
package logging

import (
	"io"
	"log"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"

	"telemetry-dashboard/internal/config"
)

// Setup points the standard logger at stderr and, when cfg.File is set,
// at a size-rotated log file as well. The returned closer releases the file.
func Setup(cfg config.LogConfig) io.Closer {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	if cfg.File == "" {
		log.SetOutput(os.Stderr)
		return nopCloser{}
	}

	rotator := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   true,
	}
	log.SetOutput(io.MultiWriter(os.Stderr, rotator))
	log.Printf("Logging to %s (max %d MB, %d backups)", cfg.File, cfg.MaxSizeMB, cfg.MaxBackups)
	return rotator
}

// New returns a logger that writes through the standard logger's output
// with a component prefix, e.g. "[ingest] ".
func New(component string) *log.Logger {
	return log.New(stdWriter{}, "["+component+"] ", 0)
}

// stdWriter forwards to the standard logger so later Setup calls apply.
type stdWriter struct{}

func (stdWriter) Write(p []byte) (int, error) {
	if err := log.Output(4, string(p)); err != nil {
		return 0, err
	}
	return len(p), nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
