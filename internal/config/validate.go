package config

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// ValidationError represents an invalid configuration value.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks required fields and value ranges.
func Validate(c *Config) error {
	var errs []string

	for field, value := range map[string]string{
		"release_index_url": c.ReleaseIndexURL,
		"app_list_url":      c.AppListURL,
	} {
		if err := validateURL(field, value); err != nil {
			errs = append(errs, err.Error())
		}
	}

	for field, value := range map[string]string{
		"data_dir":         c.DataDir,
		"cache_dir":        c.CacheDir,
		"work_dir":         c.WorkDir,
		"save_dir":         c.SaveDir,
		"credentials_file": c.CredentialsFile,
	} {
		if strings.TrimSpace(value) == "" {
			errs = append(errs, ValidationError{Field: field, Message: "must not be empty"}.Error())
		}
	}

	if c.HTTPTimeout <= 0 {
		errs = append(errs, ValidationError{Field: "http_timeout", Message: "must be positive"}.Error())
	}
	if c.LockWait < 0 {
		errs = append(errs, ValidationError{Field: "lock_wait", Message: "must not be negative"}.Error())
	}
	if c.Journal.Keep < 0 {
		errs = append(errs, ValidationError{Field: "journal.keep", Message: "must not be negative"}.Error())
	}

	if len(errs) > 0 {
		sort.Strings(errs)
		return fmt.Errorf("validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func validateURL(field, value string) error {
	if value == "" {
		return ValidationError{Field: field, Message: "must not be empty"}
	}
	u, err := url.Parse(value)
	if err != nil {
		return ValidationError{Field: field, Message: err.Error()}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ValidationError{Field: field, Message: fmt.Sprintf("unsupported scheme %q (must be http or https)", u.Scheme)}
	}
	if u.Host == "" {
		return ValidationError{Field: field, Message: "missing host"}
	}
	return nil
}
