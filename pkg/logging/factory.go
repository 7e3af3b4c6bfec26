package logging

import (
	"github.com/charmbracelet/log"
)

// Factory provides component-aware loggers with consistent field naming.
type Factory struct {
	baseLogger *log.Logger
}

// NewFactory creates a new logger factory.
func NewFactory(baseLogger *log.Logger) *Factory {
	return &Factory{baseLogger: baseLogger}
}

func (lf *Factory) forComponent(id string, componentType string) *log.Logger {
	return lf.baseLogger.With("component", id, "type", componentType)
}

// ForService creates a logger for service components.
func (lf *Factory) ForService(id string) *log.Logger {
	return lf.forComponent(id, "service")
}

// ForHandler creates a logger for HTTP handler components.
func (lf *Factory) ForHandler(id string) *log.Logger {
	return lf.forComponent(id, "handler")
}

// ForClient creates a logger for external client components.
func (lf *Factory) ForClient(id string) *log.Logger {
	return lf.forComponent(id, "client")
}

// ForDatabase creates a logger for persistence components.
func (lf *Factory) ForDatabase(id string) *log.Logger {
	return lf.forComponent(id, "database")
}

// ForServer creates a logger for server components.
func (lf *Factory) ForServer(id string) *log.Logger {
	return lf.forComponent(id, "server")
}

// WithUserID adds user context to a logger.
func (lf *Factory) WithUserID(logger *log.Logger, userID string) *log.Logger {
	return logger.With("user_id", userID)
}

// WithError adds error context to a logger.
func (lf *Factory) WithError(logger *log.Logger, err error) *log.Logger {
	if err != nil {
		return logger.With("error", err.Error())
	}
	return logger
}
