// Package repository defines the local weather cache and its SQL backing.
package repository

import (
	"context"
	"time"

	"github.com/okian/sunwatch/internal/domain/model"
)

// DayLayout is how days are stored and compared.
const DayLayout = "2006-01-02"

// Store provides read/write access to cached forecasts.
type Store interface {
	// Latest returns the most recent record for location whose day is on or
	// before day. Returns ErrNotFound when there is none.
	Latest(ctx context.Context, location string, day time.Time) (model.WeatherRecord, error)

	// Save inserts rec or replaces the record with the same location and day.
	Save(ctx context.Context, rec model.WeatherRecord) error

	// Close releases the underlying connection pool.
	Close() error
}
