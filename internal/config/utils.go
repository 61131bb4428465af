package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// envReader reads typed environment variables and remembers every value it
// could not parse, so a typo fails startup instead of silently using the default.
type envReader struct {
	errs []error
}

func (r *envReader) lookup(key string) (string, bool) {
	value, ok := os.LookupEnv(key)
	return strings.TrimSpace(value), ok
}

func (r *envReader) invalid(key, value, want string) {
	r.errs = append(r.errs, fmt.Errorf("%s=%q: expected %s", key, value, want))
}

func (r *envReader) str(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func (r *envReader) integer(key string, fallback int) int {
	value, ok := r.lookup(key)
	if !ok || value == "" {
		return fallback
	}
	v, err := strconv.Atoi(value)
	if err != nil {
		r.invalid(key, value, "an integer")
		return fallback
	}
	return v
}

func (r *envReader) boolean(key string, fallback bool) bool {
	value, ok := r.lookup(key)
	if !ok || value == "" {
		return fallback
	}
	v, err := strconv.ParseBool(value)
	if err != nil {
		r.invalid(key, value, "a boolean")
		return fallback
	}
	return v
}

func (r *envReader) duration(key string, fallback time.Duration) time.Duration {
	value, ok := r.lookup(key)
	if !ok || value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		r.invalid(key, value, "a duration such as 30s or 12h")
		return fallback
	}
	return d
}

// list splits a comma separated value, dropping blanks. An unset or blank
// variable yields fallback.
func (r *envReader) list(key string, fallback []string) []string {
	value, ok := r.lookup(key)
	if !ok {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}

func (r *envReader) err() error {
	if len(r.errs) == 0 {
		return nil
	}
	return fmt.Errorf("invalid environment: %w", errors.Join(r.errs...))
}
