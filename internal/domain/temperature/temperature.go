// Package temperature formats stored temperatures for display and converts
// them to the user's preferred unit before they leave the phone.
package temperature

import (
	"math"
	"strconv"
	"strings"
)

// Degree is appended to every formatted temperature.
const Degree = "°"

// Placeholder is shown until a temperature has been received.
const Placeholder = "00" + Degree

// Unit is a temperature unit preference.
type Unit string

// Supported units. Values are stored in Celsius.
const (
	Metric   Unit = "metric"
	Imperial Unit = "imperial"
)

// ParseUnit maps a preference string to a Unit.
func ParseUnit(s string) (Unit, error) {
	switch Unit(strings.ToLower(strings.TrimSpace(s))) {
	case Metric, "":
		return Metric, nil
	case Imperial:
		return Imperial, nil
	default:
		return "", &UnitError{Input: s}
	}
}

// Convert converts a Celsius value to u.
func Convert(celsius float64, u Unit) float64 {
	if u == Imperial {
		return celsius*9/5 + 32
	}
	return celsius
}

// Format rounds t to the nearest integer (half away from zero) and appends
// the degree sign. No unit conversion happens here.
func Format(t float64) (string, error) {
	if math.IsNaN(t) || math.IsInf(t, 0) {
		return "", &FormatError{Input: strconv.FormatFloat(t, 'f', -1, 64)}
	}
	r := math.Round(t)
	if r == 0 {
		r = 0 // drop the sign of -0
	}
	return strconv.FormatFloat(r, 'f', 0, 64) + Degree, nil
}

// FormatString parses a temperature as carried on the wire and formats it.
func FormatString(s string) (string, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return "", &FormatError{Input: s, Err: err}
	}
	return Format(v)
}
