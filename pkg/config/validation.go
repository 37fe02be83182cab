package config

import (
	"fmt"
	"net/url"

	"github.com/docker/go-units"
)

// ValidateURL validates that a string is a valid URL.
func ValidateURL(urlStr string, fieldName string) error {
	if urlStr == "" {
		return fmt.Errorf("%s cannot be empty", fieldName)
	}

	parsed, err := url.Parse(urlStr)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", fieldName, err)
	}

	if parsed.Scheme == "" {
		return fmt.Errorf("%s must include a scheme (http/https)", fieldName)
	}

	if parsed.Host == "" {
		return fmt.Errorf("%s must include a host", fieldName)
	}

	return nil
}

// ParseMaxEntrySize parses a human-readable size string (e.g., "4KB", "1MB") into bytes.
func ParseMaxEntrySize(sizeStr string) (int64, error) {
	size, err := units.FromHumanSize(sizeStr)
	if err != nil {
		return 0, fmt.Errorf("failed to parse max entry size: %w", err)
	}
	return size, nil
}

// ValidateThreadCount validates that the thread count is within acceptable bounds.
func ValidateThreadCount(threads int) error {
	if threads < 1 {
		return fmt.Errorf("thread count must be at least 1, got %d", threads)
	}
	if threads > 100 {
		return fmt.Errorf("thread count too high (max 100), got %d", threads)
	}
	return nil
}

// Validate checks the option set for internally inconsistent values.
func (o CheckOptions) Validate() error {
	if !o.Offline {
		if err := ValidateURL(o.BreachBaseURL, "breach API URL"); err != nil {
			return err
		}
	}
	if err := ValidateThreadCount(o.MaxCheckGoRoutines); err != nil {
		return err
	}
	if o.MaxEntrySize < 1 {
		return fmt.Errorf("max entry size must be positive, got %d", o.MaxEntrySize)
	}
	return nil
}
