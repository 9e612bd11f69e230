package utils

import (
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"
)

// String length limits
const (
	MaxTitleLength      = 1024
	MaxURLLength        = 8192
	MaxSearchTermLength = 512
)

// allowedSchemes lists the URL schemes a tab may point at.
var allowedSchemes = map[string]bool{
	"http":  true,
	"https": true,
	"file":  true,
	"about": true,
	"data":  true,
}

// ValidateString validates a string field with length and content checks
func ValidateString(value, fieldName string, minLen, maxLen int, required bool) error {
	if required && value == "" {
		return fmt.Errorf("%s is required", fieldName)
	}

	if value == "" && !required {
		return nil // Optional field, empty is OK
	}

	if !utf8.ValidString(value) {
		return fmt.Errorf("%s is not valid UTF-8", fieldName)
	}
	length := utf8.RuneCountInString(value)
	if length < minLen {
		return fmt.Errorf("%s must be at least %d characters", fieldName, minLen)
	}
	if length > maxLen {
		return fmt.Errorf("%s must not exceed %d characters", fieldName, maxLen)
	}

	// Check for null bytes (security issue)
	if strings.Contains(value, "\x00") {
		return fmt.Errorf("%s contains invalid characters", fieldName)
	}

	return nil
}

// ValidateTitle validates a page title
func ValidateTitle(title string) error {
	return ValidateString(title, "title", 0, MaxTitleLength, false)
}

// ValidateURL validates a tab or favicon URL. Empty is allowed; a new tab
// has no URL until it navigates.
func ValidateURL(raw, fieldName string) error {
	if raw == "" {
		return nil
	}
	if err := ValidateString(raw, fieldName, 1, MaxURLLength, false); err != nil {
		return err
	}

	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s is not a valid URL: %w", fieldName, err)
	}
	if !allowedSchemes[strings.ToLower(u.Scheme)] {
		return fmt.Errorf("%s has unsupported scheme %q", fieldName, u.Scheme)
	}
	return nil
}

// ValidateSearchTerm validates the search term that defines a tab group
func ValidateSearchTerm(term string) error {
	return ValidateString(term, "search_term", 0, MaxSearchTermLength, false)
}
