package console

import (
	"os"

	"github.com/charmbracelet/log"
)

// ConsoleLoggerParams configures a ConsoleLogger. Prefix tags every line,
// which keeps server and worker output apart when both log to one stream.
type ConsoleLoggerParams struct {
	Debug  bool
	Prefix string
}

// ConsoleLogger is a logger.LoggerInstance backed by charmbracelet/log,
// writing to stderr.
type ConsoleLogger struct {
	logger *log.Logger
}

// NewConsoleLogger creates a console logger. Debug lowers the reported
// level from INFO to DEBUG.
func NewConsoleLogger(params ConsoleLoggerParams) *ConsoleLogger {
	opts := log.Options{
		ReportTimestamp: true,
		Level:           log.InfoLevel,
		Prefix:          params.Prefix,
	}
	if params.Debug {
		opts.Level = log.DebugLevel
	}
	return &ConsoleLogger{logger: log.NewWithOptions(os.Stderr, opts)}
}

func (c *ConsoleLogger) Log(message string, keyvals ...any) {
	c.logger.Print(message, keyvals...)
}

func (c *ConsoleLogger) Debug(message string, keyvals ...any) {
	c.logger.Debug(message, keyvals...)
}

func (c *ConsoleLogger) Info(message string, keyvals ...any) {
	c.logger.Info(message, keyvals...)
}

func (c *ConsoleLogger) Warn(message string, keyvals ...any) {
	c.logger.Warn(message, keyvals...)
}

func (c *ConsoleLogger) Error(message string, keyvals ...any) {
	c.logger.Error(message, keyvals...)
}

// Fatal logs the message then terminates the process.
func (c *ConsoleLogger) Fatal(message string, keyvals ...any) {
	c.logger.Fatal(message, keyvals...)
}
