package config

import (
	"fmt"
	"strings"
)

// ConfigurationError is a configuration problem that prevents building an
// operation: an unreadable file or an unparsable setting value.
type ConfigurationError struct {
	Source      string   // file path, "env" or a setting name
	Category    string   // "file", "env" or "setting"
	ErrorType   string   // parse, io, validation
	Message     string   // human-readable message
	Suggestions []string // actionable suggestions
}

// Error implements the error interface
func (ce ConfigurationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", ce.Category, ce.Source, ce.Message)
}

// DetailedError returns a detailed error message with all context
func (ce ConfigurationError) DetailedError() string {
	parts := []string{
		fmt.Sprintf("Configuration Error in %s: %s", ce.Category, ce.Source),
		fmt.Sprintf("  Type: %s", ce.ErrorType),
		fmt.Sprintf("  Error: %s", ce.Message),
	}

	if len(ce.Suggestions) > 0 {
		parts = append(parts, "  Suggestions:")
		for _, suggestion := range ce.Suggestions {
			parts = append(parts, fmt.Sprintf("    - %s", suggestion))
		}
	}

	return strings.Join(parts, "\n")
}

// NewConfigurationError creates a new configuration error with basic information
func NewConfigurationError(source, category, errorType, message string) ConfigurationError {
	return ConfigurationError{
		Source:    source,
		Category:  category,
		ErrorType: errorType,
		Message:   message,
	}
}

// invalidSetting reports a setting whose value cannot be parsed.
func invalidSetting(key, value string, err error, suggestions ...string) ConfigurationError {
	ce := NewConfigurationError(SectionCredential+"."+key, "setting", "validation",
		fmt.Sprintf("invalid value %q: %v", value, err))
	ce.Suggestions = suggestions
	return ce
}
