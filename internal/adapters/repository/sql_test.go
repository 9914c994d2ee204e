package repository_test

import (
	"context"
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/sunwatch/internal/adapters/repository"
	"github.com/okian/sunwatch/internal/domain/model"
	"github.com/okian/sunwatch/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMain(m *testing.M) {
	_ = logger.Init(logger.WithOutput(io.Discard))
	os.Exit(m.Run())
}

func day(s string) time.Time {
	d, err := time.Parse(repository.DayLayout, s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestSQLStore(t *testing.T) {
	Convey("Given a sqlite weather store", t, func() {
		ctx := context.Background()
		store, err := repository.NewSQLStore(ctx, repository.DriverSQLite, filepath.Join(t.TempDir(), "weather.db"))
		So(err, ShouldBeNil)
		Reset(func() { _ = store.Close() })

		Convey("When nothing is cached", func() {
			_, err := store.Latest(ctx, "94043", day("2026-10-14"))

			Convey("Then Latest reports ErrNotFound", func() {
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			})
		})

		Convey("When several days are cached", func() {
			for _, rec := range []model.WeatherRecord{
				{Location: "94043", Day: day("2026-10-12"), ConditionCode: 500, Max: 18.2, Min: 11},
				{Location: "94043", Day: day("2026-10-13"), ConditionCode: 800, Max: 23.6, Min: 15.2},
				{Location: "94043", Day: day("2026-10-15"), ConditionCode: 600, Max: 2, Min: -3},
				{Location: "London,UK", Day: day("2026-10-14"), ConditionCode: 741, Max: 12, Min: 8},
			} {
				So(store.Save(ctx, rec), ShouldBeNil)
			}

			Convey("Then Latest picks the most recent day on or before the given day", func() {
				rec, err := store.Latest(ctx, "94043", day("2026-10-14"))
				So(err, ShouldBeNil)
				So(rec.Day.Format(repository.DayLayout), ShouldEqual, "2026-10-13")
				So(rec.ConditionCode, ShouldEqual, 800)
				So(rec.Max, ShouldEqual, 23.6)
				So(rec.Min, ShouldEqual, 15.2)
				So(rec.Location, ShouldEqual, "94043")
			})

			Convey("Then an exact day match wins", func() {
				rec, err := store.Latest(ctx, "94043", day("2026-10-15"))
				So(err, ShouldBeNil)
				So(rec.ConditionCode, ShouldEqual, 600)
				So(rec.Min, ShouldEqual, -3)
			})

			Convey("Then other locations do not leak in", func() {
				_, err := store.Latest(ctx, "94043", day("2026-10-11"))
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			})
		})

		Convey("When the same day is saved twice", func() {
			So(store.Save(ctx, model.WeatherRecord{Location: "94043", Day: day("2026-10-14"), ConditionCode: 500, Max: 10, Min: 5}), ShouldBeNil)
			So(store.Save(ctx, model.WeatherRecord{Location: "94043", Day: day("2026-10-14"), ConditionCode: 801, Max: 20, Min: 9}), ShouldBeNil)

			Convey("Then the second replaces the first", func() {
				rec, err := store.Latest(ctx, "94043", day("2026-10-14"))
				So(err, ShouldBeNil)
				So(rec.ConditionCode, ShouldEqual, 801)
				So(rec.Max, ShouldEqual, 20)
			})
		})

		Convey("When saving invalid records", func() {
			errEmpty := store.Save(ctx, model.WeatherRecord{Day: day("2026-10-14")})
			errZero := store.Save(ctx, model.WeatherRecord{Location: "94043"})
			errNaN := store.Save(ctx, model.WeatherRecord{Location: "94043", Day: day("2026-10-14"), Max: math.NaN()})

			Convey("Then they are rejected", func() {
				So(errors.Is(errEmpty, repository.ErrInvalidRecord), ShouldBeTrue)
				So(errors.Is(errZero, repository.ErrInvalidRecord), ShouldBeTrue)
				So(errors.Is(errNaN, repository.ErrInvalidRecord), ShouldBeTrue)
			})
		})
	})

	Convey("Given an unknown driver", t, func() {
		_, err := repository.NewSQLStore(context.Background(), "postgres", "dsn")

		Convey("Then opening fails with ErrDriver", func() {
			So(errors.Is(err, repository.ErrDriver), ShouldBeTrue)
		})
	})
}
