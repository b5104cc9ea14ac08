// Package logging builds the arbor logger shared by every component.
package logging

import (
	"os"
	"path/filepath"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/arbor/models"
)

// Options configures the root logger.
type Options struct {
	Level string
	// File, when set, adds a rotating file writer next to the console writer.
	File string
}

// New returns a console logger at the given level.
func New(level string) arbor.ILogger {
	return NewWithOptions(Options{Level: level})
}

// NewWithOptions builds the root logger.
func NewWithOptions(opts Options) arbor.ILogger {
	if opts.Level == "" {
		opts.Level = "info"
	}

	logger := arbor.NewLogger().WithConsoleWriter(models.WriterConfiguration{
		Type:       models.LogWriterTypeConsole,
		TimeFormat: "15:04:05",
	})

	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0755); err == nil {
			logger = logger.WithFileWriter(models.WriterConfiguration{
				Type:       models.LogWriterTypeFile,
				FileName:   opts.File,
				TimeFormat: "15:04:05",
				MaxSize:    50 * 1024 * 1024,
				MaxBackups: 3,
				OutputType: models.OutputFormatLogfmt,
			})
		}
	}

	return logger.WithLevelFromString(opts.Level)
}
