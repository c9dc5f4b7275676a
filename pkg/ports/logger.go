// Package ports defines the interfaces the export engine depends on.
package ports

// LogLevel represents the severity level of a log message.
type LogLevel int

const (
	// LevelDebug is for per-frame and per-operator details.
	LevelDebug LogLevel = iota
	// LevelInfo is for run-level progress (container opened, export finished).
	LevelInfo
	// LevelWarn is for recoverable problems, such as a repairable frame count.
	LevelWarn
	// LevelError is for failures that end the current operation.
	LevelError
	// LevelQuiet suppresses all log output.
	LevelQuiet
)

var levelNames = map[LogLevel]string{
	LevelDebug: "debug",
	LevelInfo:  "info",
	LevelWarn:  "warn",
	LevelError: "error",
	LevelQuiet: "quiet",
}

// String returns the string representation of the log level.
func (l LogLevel) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return "unknown"
}

// ParseLogLevel parses a level name. Unknown names map to LevelInfo.
func ParseLogLevel(s string) LogLevel {
	for level, name := range levelNames {
		if name == s {
			return level
		}
	}
	return LevelInfo
}

// Logger abstracts logging with translatable message keys.
type Logger interface {
	// Debug logs a debug message. The msg parameter is a message key that
	// may be translated before formatting.
	Debug(msg string, args ...interface{})

	// Info logs an informational message.
	Info(msg string, args ...interface{})

	// Warn logs a warning message.
	Warn(msg string, args ...interface{})

	// Error logs an error message.
	Error(msg string, args ...interface{})

	// WithComponent returns a Logger that prefixes messages with the component name.
	WithComponent(component string) Logger
}
