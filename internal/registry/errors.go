package registry

import (
	"errors"
	"fmt"
)

// Registry errors.
var (
	// ErrDuplicateSetting is returned when registering a name that is
	// already present.
	ErrDuplicateSetting = errors.New("setting already registered")

	// ErrUnknownSetting is returned by Set/Reset for unregistered
	// names. Get stays total and returns absent instead.
	ErrUnknownSetting = errors.New("unknown setting")

	// ErrNoStore is returned by Flush when no store is configured.
	ErrNoStore = errors.New("no store configured")
)

// ValidationError reports a Set value that failed its type's
// validator. The registry state is unchanged when it is returned.
type ValidationError struct {
	Name  string
	Value any
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid value for %s: %v", e.Name, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// InvalidDefaultError reports a registration whose default value
// failed its own type's validator.
type InvalidDefaultError struct {
	Name  string
	Value any
	Err   error
}

func (e *InvalidDefaultError) Error() string {
	return fmt.Sprintf("invalid default for %s: %v", e.Name, e.Err)
}

func (e *InvalidDefaultError) Unwrap() error { return e.Err }
