package syncer_test

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/okian/sunwatch/internal/adapters/repository"
	"github.com/okian/sunwatch/internal/adapters/transport"
	"github.com/okian/sunwatch/internal/app/publisher"
	"github.com/okian/sunwatch/internal/app/syncer"
	"github.com/okian/sunwatch/internal/domain/model"
	"github.com/okian/sunwatch/internal/domain/temperature"
	"github.com/okian/sunwatch/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(logger.WithOutput(io.Discard)); err != nil {
		panic(err)
	}
}

type recordingPublisher struct {
	mu    sync.Mutex
	snaps []model.WeatherSnapshot
}

func (r *recordingPublisher) Publish(_ context.Context, snap model.WeatherSnapshot, cb func(transport.Result)) {
	r.mu.Lock()
	r.snaps = append(r.snaps, snap)
	r.mu.Unlock()
	if cb != nil {
		cb(transport.Result{ID: "rec"})
	}
}

func (r *recordingPublisher) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.snaps)
}

var today = time.Date(2026, 10, 14, 9, 30, 0, 0, time.UTC)

func openStore(t *testing.T) *repository.SQLStore {
	store, err := repository.NewSQLStore(context.Background(), repository.DriverSQLite, filepath.Join(t.TempDir(), "sync.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	return store
}

func TestSyncer(t *testing.T) {
	Convey("Given a cached forecast for today", t, func() {
		ctx := context.Background()
		store := openStore(t)
		Reset(func() { _ = store.Close() })
		So(store.Save(ctx, model.WeatherRecord{Location: "94043", Day: today, ConditionCode: 800, Max: 23.6, Min: 15.2}), ShouldBeNil)

		pub := &recordingPublisher{}
		clock := func() time.Time { return today }

		Convey("When syncing in metric", func() {
			s := syncer.New(store, pub, "94043", syncer.WithClock(clock))
			err := s.Sync(ctx)

			Convey("Then the stored values are published untouched", func() {
				So(err, ShouldBeNil)
				So(pub.snaps, ShouldHaveLength, 1)
				So(pub.snaps[0], ShouldResemble, model.WeatherSnapshot{ConditionCode: 800, MaxTemperature: 23.6, MinTemperature: 15.2})
			})

			Convey("Then stats show the last snapshot", func() {
				stats := s.Stats()
				So(stats["runs"], ShouldEqual, int64(1))
				So(stats["lastSnapshot"], ShouldNotBeNil)
			})
		})

		Convey("When syncing in imperial", func() {
			s := syncer.New(store, pub, "94043", syncer.WithClock(clock), syncer.WithUnit(temperature.Imperial))
			So(s.Sync(ctx), ShouldBeNil)

			Convey("Then temperatures are converted and max stays max", func() {
				got := pub.snaps[0]
				So(got.MaxTemperature, ShouldAlmostEqual, 74.48, 0.001)
				So(got.MinTemperature, ShouldAlmostEqual, 59.36, 0.001)
				So(got.MaxTemperature, ShouldBeGreaterThan, got.MinTemperature)
			})
		})

		Convey("When syncing a location with nothing cached", func() {
			s := syncer.New(store, pub, "London,UK", syncer.WithClock(clock))
			err := s.Sync(ctx)

			Convey("Then it reports not found and publishes nothing", func() {
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
				So(pub.count(), ShouldEqual, 0)
				So(s.Stats()["lastError"], ShouldNotBeNil)
			})
		})
	})

	Convey("Given a syncer wired to the watch over a memory transport", t, func() {
		ctx := context.Background()
		store := openStore(t)
		tr := transport.NewMemory()
		Reset(func() {
			_ = tr.Close()
			_ = store.Close()
		})
		So(store.Save(ctx, model.WeatherRecord{Location: "94043", Day: today.AddDate(0, 0, -1), ConditionCode: 511, Max: 1.4, Min: -2.6}), ShouldBeNil)

		got := make(chan transport.Item, 1)
		_, err := tr.Subscribe(ctx, model.PathWeather, func(_ context.Context, item transport.Item) { got <- item })
		So(err, ShouldBeNil)

		s := syncer.New(store, publisher.New(tr), "94043", syncer.WithClock(func() time.Time { return today }))

		Convey("When syncing", func() {
			So(s.Sync(ctx), ShouldBeNil)

			Convey("Then yesterday's forecast reaches the watch", func() {
				var item transport.Item
				select {
				case item = <-got:
				case <-time.After(2 * time.Second):
					t.Fatal("no item delivered")
				}
				u := model.DecodeSnapshot(item.Fields)
				So(*u.ConditionCode, ShouldEqual, 511)
				So(*u.MaxTemp, ShouldEqual, "1.4")
				So(*u.MinTemp, ShouldEqual, "-2.6")
			})
		})
	})
}

func TestScheduler(t *testing.T) {
	Convey("Given a scheduler over a cached forecast", t, func() {
		ctx := context.Background()
		store := openStore(t)
		Reset(func() { _ = store.Close() })
		So(store.Save(ctx, model.WeatherRecord{Location: "94043", Day: today, ConditionCode: 801, Max: 20, Min: 10}), ShouldBeNil)

		pub := &recordingPublisher{}
		s := syncer.New(store, pub, "94043", syncer.WithClock(func() time.Time { return today }))
		sched := syncer.NewScheduler(s, time.Hour)

		Convey("When started", func() {
			So(sched.Start(), ShouldBeNil)
			defer sched.Stop()

			Convey("Then the first sync runs right away", func() {
				deadline := time.Now().Add(2 * time.Second)
				for pub.count() == 0 && time.Now().Before(deadline) {
					time.Sleep(10 * time.Millisecond)
				}
				So(pub.count(), ShouldBeGreaterThanOrEqualTo, 1)
			})
		})
	})
}
