// Command seed writes a forecast row into the local weather cache, standing
// in for the phone's weather fetch.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/okian/sunwatch/internal/adapters/repository"
	"github.com/okian/sunwatch/internal/config"
	"github.com/okian/sunwatch/internal/domain/model"
	"github.com/okian/sunwatch/pkg/logger"
)

const defaultTimeout = 10 * time.Second

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stderr); err != nil {
		os.Stderr.WriteString("seed failed: " + err.Error() + "\n")
		os.Exit(1)
	}
}

// run seeds one row. Logs and flag errors go to logOut.
func run(ctx context.Context, args []string, logOut io.Writer) error {
	if err := logger.Init(logger.WithOutput(logOut)); err != nil {
		return fmt.Errorf("init logging: %w", err)
	}

	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		_ = logger.SetLevelString("info")
	}

	fs := flag.NewFlagSet("seed", flag.ContinueOnError)
	fs.SetOutput(logOut)
	var (
		location = fs.String("location", cfg.Location, "Location key")
		day      = fs.String("day", time.Now().Format(repository.DayLayout), "Forecast day (YYYY-MM-DD)")
		code     = fs.Int("code", 800, "Weather condition code")
		maxTemp  = fs.Float64("max", 0, "Maximum temperature in Celsius")
		minTemp  = fs.Float64("min", 0, "Minimum temperature in Celsius")
		driver   = fs.String("driver", cfg.StoreDriver, "Store driver: sqlite or mysql")
		dsn      = fs.String("dsn", cfg.StoreDSN, "Store DSN")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}

	d, err := time.Parse(repository.DayLayout, *day)
	if err != nil {
		return fmt.Errorf("day: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	store, err := repository.NewSQLStore(ctx, *driver, *dsn,
		repository.WithMaxOpenConns(cfg.StoreMaxOpenConns),
		repository.WithLogger(logger.Named("seed")),
	)
	if err != nil {
		return err
	}
	defer store.Close()

	rec := model.WeatherRecord{
		Location:      *location,
		Day:           d,
		ConditionCode: *code,
		Max:           *maxTemp,
		Min:           *minTemp,
	}
	if err := store.Save(ctx, rec); err != nil {
		return err
	}

	logger.Get().Info(ctx, "forecast seeded",
		logger.String("location", rec.Location),
		logger.String("day", *day),
		logger.Int("code", rec.ConditionCode),
	)
	return nil
}
