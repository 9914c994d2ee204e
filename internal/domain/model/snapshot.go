// Package model contains the data contract shared by the phone and the watch.
package model

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// Transport paths.
const (
	PathWeather = "/weather"
	PathPalette = "/watch_face_config/Digital"
)

// Weather keys carried under PathWeather. Temperatures travel as decimal
// strings, the condition code as an integer.
const (
	KeyWeatherID = "WEATHER_ID"
	KeyMaxTemp   = "MAX_TEMP"
	KeyMinTemp   = "MIN_TEMP"
)

// Palette keys carried under PathPalette.
const (
	KeyBackgroundColor = "BACKGROUND_COLOR"
	KeyHoursColor      = "HOURS_COLOR"
	KeyMinutesColor    = "MINUTES_COLOR"
	KeySecondsColor    = "SECONDS_COLOR"
)

// Fields is the key/value map exchanged over the transport.
type Fields map[string]any

// Clone returns a shallow copy of f.
func (f Fields) Clone() Fields {
	if f == nil {
		return nil
	}
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// WeatherSnapshot is one complete set of weather fields as produced by the phone.
type WeatherSnapshot struct {
	ConditionCode  int
	MaxTemperature float64
	MinTemperature float64
}

// Fields encodes s for the transport.
func (s WeatherSnapshot) Fields() Fields {
	return Fields{
		KeyWeatherID: s.ConditionCode,
		KeyMaxTemp:   strconv.FormatFloat(s.MaxTemperature, 'f', -1, 64),
		KeyMinTemp:   strconv.FormatFloat(s.MinTemperature, 'f', -1, 64),
	}
}

// SnapshotUpdate is a decoded snapshot where every field is optional.
// Temperatures stay raw so the consumer decides how to format them.
type SnapshotUpdate struct {
	ConditionCode *int
	MaxTemp       *string
	MinTemp       *string
}

// DecodeSnapshot pulls the weather keys out of f. Missing or wrong-typed
// fields are left nil.
func DecodeSnapshot(f Fields) SnapshotUpdate {
	var u SnapshotUpdate
	if v, ok := f[KeyWeatherID]; ok {
		if code, ok := asInt(v); ok {
			u.ConditionCode = &code
		}
	}
	if v, ok := asString(f[KeyMaxTemp]); ok {
		u.MaxTemp = &v
	}
	if v, ok := asString(f[KeyMinTemp]); ok {
		u.MinTemp = &v
	}
	return u
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return int(n), true
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return int(i), true
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return 0, false
		}
		return i, true
	default:
		return 0, false
	}
}

func asString(v any) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case json.Number:
		return s.String(), true
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64), true
	default:
		return "", false
	}
}

// WeatherRecord is one cached forecast row on the phone.
type WeatherRecord struct {
	Location      string
	Day           time.Time
	ConditionCode int
	Max           float64
	Min           float64
}
