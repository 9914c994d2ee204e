package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
	_ "modernc.org/sqlite"             // pure Go SQLite driver

	"github.com/okian/sunwatch/internal/domain/model"
	"github.com/okian/sunwatch/pkg/logger"
	"github.com/okian/sunwatch/pkg/metrics"
)

// Supported drivers, as registered with database/sql.
const (
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
)

const defaultMaxOpenConns = 4

const schema = `CREATE TABLE IF NOT EXISTS weather (
	location       VARCHAR(128)     NOT NULL,
	day            VARCHAR(10)      NOT NULL,
	condition_code INTEGER          NOT NULL,
	max_temp       DOUBLE PRECISION NOT NULL,
	min_temp       DOUBLE PRECISION NOT NULL,
	PRIMARY KEY (location, day)
)`

const (
	latestQuery = `SELECT day, condition_code, max_temp, min_temp FROM weather
WHERE location = ? AND day <= ? ORDER BY day DESC LIMIT 1`
	saveStmt = `REPLACE INTO weather (location, day, condition_code, max_temp, min_temp) VALUES (?, ?, ?, ?, ?)`
)

// SQLStore implements Store over database/sql for SQLite and MySQL.
type SQLStore struct {
	db           *sql.DB
	driver       string
	maxOpenConns int
	logger       logger.Logger
}

// NewSQLStore opens dsn with driver and applies the schema.
func NewSQLStore(ctx context.Context, driver, dsn string, opts ...Option) (*SQLStore, error) {
	driver = strings.ToLower(strings.TrimSpace(driver))
	if driver != DriverSQLite && driver != DriverMySQL {
		return nil, fmt.Errorf("%w: %q", ErrDriver, driver)
	}

	s := &SQLStore{
		driver:       driver,
		maxOpenConns: defaultMaxOpenConns,
		logger:       logger.Get().Named("repository"),
	}
	for _, opt := range opts {
		opt(s)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", driver, err)
	}
	db.SetMaxOpenConns(s.maxOpenConns)
	s.db = db

	if driver == DriverSQLite {
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
			s.logger.Warn(ctx, "could not set WAL mode", logger.Error(err))
		}
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	s.logger.Info(ctx, "weather store ready", logger.String("driver", driver))
	return s, nil
}

// Latest returns the most recent record for location on or before day.
func (s *SQLStore) Latest(ctx context.Context, location string, day time.Time) (model.WeatherRecord, error) {
	rec := model.WeatherRecord{Location: location}
	var stored string

	err := s.db.QueryRowContext(ctx, latestQuery, location, day.Format(DayLayout)).
		Scan(&stored, &rec.ConditionCode, &rec.Max, &rec.Min)
	if errors.Is(err, sql.ErrNoRows) {
		return model.WeatherRecord{}, fmt.Errorf("%w: %s on or before %s", ErrNotFound, location, day.Format(DayLayout))
	}
	if err != nil {
		metrics.RecordErrorByComponent("repository", "query")
		return model.WeatherRecord{}, fmt.Errorf("query latest weather: %w", err)
	}

	rec.Day, err = time.ParseInLocation(DayLayout, stored, day.Location())
	if err != nil {
		metrics.RecordErrorByComponent("repository", "bad_day")
		return model.WeatherRecord{}, fmt.Errorf("%w: day %q: %w", ErrInvalidRecord, stored, err)
	}
	return rec, nil
}

// Save upserts rec keyed by location and day.
func (s *SQLStore) Save(ctx context.Context, rec model.WeatherRecord) error {
	if rec.Location == "" {
		return fmt.Errorf("%w: empty location", ErrInvalidRecord)
	}
	if rec.Day.IsZero() {
		return fmt.Errorf("%w: zero day", ErrInvalidRecord)
	}
	if !finite(rec.Max) || !finite(rec.Min) {
		return fmt.Errorf("%w: non-finite temperature", ErrInvalidRecord)
	}

	if _, err := s.db.ExecContext(ctx, saveStmt,
		rec.Location, rec.Day.Format(DayLayout), rec.ConditionCode, rec.Max, rec.Min,
	); err != nil {
		metrics.RecordErrorByComponent("repository", "save")
		return fmt.Errorf("save weather: %w", err)
	}
	return nil
}

// Close closes the connection pool.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
