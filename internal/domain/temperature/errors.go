package temperature

import (
	"errors"
	"fmt"
)

// Sentinel kinds for temperature errors.
var (
	ErrFormat = errors.New("temperature format")
	ErrUnit   = errors.New("unknown temperature unit")
)

// FormatError reports a temperature that cannot be formatted.
type FormatError struct {
	Input string
	Err   error
}

func (e *FormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %q: %v", ErrFormat, e.Input, e.Err)
	}
	return fmt.Sprintf("%s: %q", ErrFormat, e.Input)
}

// Is makes errors.Is(err, ErrFormat) match.
func (e *FormatError) Is(target error) bool { return target == ErrFormat }

func (e *FormatError) Unwrap() error { return e.Err }

// UnitError reports an unknown unit preference.
type UnitError struct {
	Input string
}

func (e *UnitError) Error() string { return fmt.Sprintf("%s: %q", ErrUnit, e.Input) }

// Is makes errors.Is(err, ErrUnit) match.
func (e *UnitError) Is(target error) bool { return target == ErrUnit }
