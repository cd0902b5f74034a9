package models

import (
	"fmt"
	"strings"
)

// InvalidValueError reports a configuration value outside its allowed set.
type InvalidValueError struct {
	Key     string
	Value   string
	Allowed []string
}

func (e *InvalidValueError) Error() string {
	msg := fmt.Sprintf("%q is not a valid %q value", e.Value, e.Key)
	if len(e.Allowed) == 0 {
		return msg
	}
	return fmt.Sprintf("%s, available values are: %s", msg, strings.Join(e.Allowed, ", "))
}

// NewInvalidDriverError returns the error for an unsupported database driver.
func NewInvalidDriverError(key string, value DatabaseDriver) *InvalidValueError {
	allowed := make([]string, 0, len(DatabaseDrivers()))
	for _, d := range DatabaseDrivers() {
		allowed = append(allowed, string(d))
	}
	return &InvalidValueError{Key: key, Value: string(value), Allowed: allowed}
}

// NewInvalidStorageError returns the error for an unsupported storage service.
func NewInvalidStorageError(key string, value StorageService) *InvalidValueError {
	allowed := make([]string, 0, len(StorageServices()))
	for _, s := range StorageServices() {
		allowed = append(allowed, string(s))
	}
	return &InvalidValueError{Key: key, Value: string(value), Allowed: allowed}
}
