package bootstrap

import (
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
)

// NewLogger builds the process-wide base logger. Component loggers are
// derived from it through logging.Factory.
func NewLogger() *log.Logger {
	logger := log.NewWithOptions(os.Stdout, log.Options{
		ReportCaller:    true,
		ReportTimestamp: true,
		Level:           log.DebugLevel,
		TimeFormat:      time.Kitchen,
	})

	logger.SetColorProfile(lipgloss.ColorProfile())

	return logger
}
