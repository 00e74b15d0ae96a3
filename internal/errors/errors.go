package errors

import (
	"fmt"
	"strings"
)

// UserError represents an error with user-friendly messaging and remediation hints
type UserError struct {
	Title       string // Brief title of the error
	Message     string // Detailed error message
	Remediation string // What the operator can do to fix it
	Cause       error  // Underlying error, if any
}

func (e *UserError) Error() string {
	var parts []string

	if e.Title != "" {
		parts = append(parts, e.Title)
	}

	if e.Message != "" {
		parts = append(parts, e.Message)
	}

	if e.Remediation != "" {
		parts = append(parts, fmt.Sprintf("💡 %s", e.Remediation))
	}

	return strings.Join(parts, "\n")
}

func (e *UserError) Unwrap() error {
	return e.Cause
}

// Common error constructors with built-in remediation

func NewWatermarkMissingError(path string, err error) *UserError {
	return &UserError{
		Title:       "❌ Missing Watermark",
		Message:     fmt.Sprintf("file missing: %s", path),
		Remediation: "There is no prior run to resume from. Run: anrbot setup (or write a timestamp to the file by hand)",
		Cause:       err,
	}
}

func NewWatermarkCorruptError(path string, err error) *UserError {
	return &UserError{
		Title:       "❌ Unreadable Watermark",
		Message:     fmt.Sprintf("%s does not start with a timestamp: %v", path, err),
		Remediation: "The first line must be a number of seconds since the epoch, e.g. 1700000000.0",
		Cause:       err,
	}
}

func NewCatalogError(path string, err error) *UserError {
	var remediation string
	errStr := err.Error()

	switch {
	case strings.Contains(errStr, "no such file"):
		remediation = "No local card data and the download failed. Check catalog_url and your connection, then rerun"
	case strings.Contains(errStr, "decode") || strings.Contains(errStr, "invalid"):
		remediation = fmt.Sprintf("The card data is corrupt. Delete %s to force a fresh download", path)
	default:
		remediation = "Run with --verbose flag for more details"
	}

	return &UserError{
		Title:       "❌ Card Catalog Error",
		Message:     fmt.Sprintf("Failed to load cards from %s: %s", path, errStr),
		Remediation: remediation,
		Cause:       err,
	}
}

func NewMissingCredentialsError(missing []string) *UserError {
	return &UserError{
		Title:       "Authentication Error",
		Message:     fmt.Sprintf("Reddit credentials incomplete (missing: %s).", strings.Join(missing, ", ")),
		Remediation: "Set ANRBOT_REDDIT_* env vars, or run: anrbot setup",
		Cause:       nil,
	}
}

func NewForumConnectionError(err error) *UserError {
	errStr := err.Error()
	var remediation string

	if strings.Contains(errStr, "401") || strings.Contains(errStr, "Unauthorized") || strings.Contains(errStr, "invalid_grant") {
		remediation = "Check the bot's Reddit username, password and app credentials. Run: anrbot config doctor"
	} else if strings.Contains(errStr, "timeout") || strings.Contains(errStr, "no such host") {
		remediation = "Check your internet connection. Run: anrbot config doctor"
	} else if strings.Contains(errStr, "403") || strings.Contains(errStr, "Forbidden") {
		remediation = "The bot account lacks permission for this operation (banned, or not a wiki contributor)"
	} else {
		remediation = "Run: anrbot config doctor to diagnose the issue"
	}

	return &UserError{
		Title:       "❌ Reddit Connection Error",
		Message:     "Failed to talk to Reddit. " + errStr,
		Remediation: remediation,
		Cause:       err,
	}
}

func NewConfigError(operation string, err error) *UserError {
	var remediation string
	errStr := err.Error()

	switch {
	case strings.Contains(errStr, "permission denied"):
		remediation = "Check file permissions. Run: chmod 600 ~/.config/anrbot/config.toml"
	case strings.Contains(errStr, "no such file"):
		remediation = "Run: anrbot setup to create a configuration file"
	case strings.Contains(errStr, "decode") || strings.Contains(errStr, "parse"):
		remediation = "Configuration file format is invalid. Run: anrbot config doctor"
	default:
		remediation = "Run: anrbot config doctor to diagnose configuration issues"
	}

	return &UserError{
		Title:       "❌ Configuration Error",
		Message:     fmt.Sprintf("Failed to %s configuration: %s", operation, errStr),
		Remediation: remediation,
		Cause:       err,
	}
}

func NewHttpError(statusCode int, body string) *UserError {
	var title, remediation string

	switch {
	case statusCode == 401:
		title = "❌ Authentication Failed"
		remediation = "Check the bot credentials. Run: anrbot config doctor"
	case statusCode == 403:
		title = "❌ Access Forbidden"
		remediation = "The account lacks permission for this operation"
	case statusCode == 404:
		title = "❌ Resource Not Found"
		remediation = "Check the subreddit name, wiki page names and catalog_url"
	case statusCode == 429:
		title = "❌ Rate Limited"
		remediation = "The remote service is throttling requests. Lower requests_per_minute or try again later"
	case statusCode >= 500:
		title = "❌ Server Error"
		remediation = "The remote service is experiencing issues. Try again later"
	default:
		title = "❌ HTTP Error"
		remediation = "An unexpected HTTP error occurred. Run: anrbot --verbose to see detailed logs"
	}

	return &UserError{
		Title:       title,
		Message:     fmt.Sprintf("HTTP %d: %s", statusCode, body),
		Remediation: remediation,
		Cause:       nil,
	}
}

// Helper function to wrap existing errors with better messaging
func WrapWithContext(err error, context string) error {
	if userErr, ok := err.(*UserError); ok {
		// Already a user error, just return it
		return userErr
	}

	errStr := err.Error()

	switch context {
	case "forum_connection":
		return NewForumConnectionError(err)
	case "config_load", "config_save":
		return NewConfigError(strings.TrimPrefix(context, "config_"), err)
	default:
		// Generic wrapper that at least adds some structure
		return &UserError{
			Title:       "❌ Error",
			Message:     errStr,
			Remediation: "Run with --verbose flag for more details",
			Cause:       err,
		}
	}
}
