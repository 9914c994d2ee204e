package watchface

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/okian/sunwatch/internal/adapters/transport"
	"github.com/okian/sunwatch/internal/domain/display"
	"github.com/okian/sunwatch/internal/domain/icon"
	"github.com/okian/sunwatch/internal/domain/model"
	"github.com/okian/sunwatch/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(logger.WithOutput(io.Discard)); err != nil {
		panic(err)
	}
}

func weatherItem(f model.Fields) transport.Item {
	return transport.Item{ID: "t", Path: model.PathWeather, Fields: f, At: time.Date(2026, 10, 14, 8, 0, 0, 0, time.UTC)}
}

func TestConsumer(t *testing.T) {
	Convey("Given a consumer over a fresh display state", t, func() {
		ctx := context.Background()
		state := display.NewState()
		c := NewConsumer(state, nil)

		Convey("When a full snapshot arrives", func() {
			snap := model.WeatherSnapshot{ConditionCode: 800, MaxTemperature: 23.6, MinTemperature: 15.2}
			c.OnSnapshotReceived(ctx, weatherItem(snap.Fields()))

			Convey("Then the display shows rounded temperatures and the icon", func() {
				d := state.Load()
				So(d.Max, ShouldEqual, "24°")
				So(d.Min, ShouldEqual, "15°")
				So(d.Icon, ShouldEqual, icon.Clear)
				So(d.ConditionCode, ShouldEqual, 800)
				So(d.UpdatedAt.IsZero(), ShouldBeFalse)
			})

			Convey("And a snapshot without a min temperature arrives", func() {
				c.OnSnapshotReceived(ctx, weatherItem(model.Fields{
					model.KeyWeatherID: 500,
					model.KeyMaxTemp:   "9.7",
				}))

				Convey("Then min is kept and the rest is updated", func() {
					d := state.Load()
					So(d.Min, ShouldEqual, "15°")
					So(d.Max, ShouldEqual, "10°")
					So(d.Icon, ShouldEqual, icon.Rain)
				})
			})

			Convey("And a snapshot without a condition code arrives", func() {
				c.OnSnapshotReceived(ctx, weatherItem(model.Fields{
					model.KeyMaxTemp: "1",
					model.KeyMinTemp: "0",
				}))

				Convey("Then the icon is kept", func() {
					d := state.Load()
					So(d.Icon, ShouldEqual, icon.Clear)
					So(d.Max, ShouldEqual, "1°")
					So(d.Min, ShouldEqual, "0°")
				})
			})

			Convey("And a snapshot with an unparsable temperature arrives", func() {
				c.OnSnapshotReceived(ctx, weatherItem(model.Fields{
					model.KeyWeatherID: 801,
					model.KeyMaxTemp:   "hot",
					model.KeyMinTemp:   "NaN",
				}))

				Convey("Then both temperatures keep their previous strings", func() {
					d := state.Load()
					So(d.Max, ShouldEqual, "24°")
					So(d.Min, ShouldEqual, "15°")
					So(d.Icon, ShouldEqual, icon.LightClouds)
				})
			})

			Convey("And an item for another path arrives", func() {
				c.OnSnapshotReceived(ctx, transport.Item{Path: model.PathPalette, Fields: model.Fields{model.KeyMaxTemp: "99"}})

				Convey("Then it is ignored", func() {
					So(state.Load().Max, ShouldEqual, "24°")
				})
			})
		})

		Convey("When a snapshot carries an unknown code", func() {
			c.OnSnapshotReceived(ctx, weatherItem(model.Fields{model.KeyWeatherID: 999}))

			Convey("Then the icon is unknown and temperatures stay placeholders", func() {
				d := state.Load()
				So(d.Icon, ShouldEqual, icon.Unknown)
				So(d.ConditionCode, ShouldEqual, 999)
				So(d.Max, ShouldEqual, "00°")
				So(d.Min, ShouldEqual, "00°")
			})
		})

		Convey("When snapshots A then B arrive", func() {
			a := model.WeatherSnapshot{ConditionCode: 600, MaxTemperature: -1.2, MinTemperature: -8.8}
			b := model.WeatherSnapshot{ConditionCode: 211, MaxTemperature: 31.5, MinTemperature: 22.4}
			c.OnSnapshotReceived(ctx, weatherItem(a.Fields()))
			c.OnSnapshotReceived(ctx, weatherItem(b.Fields()))

			Convey("Then the display is entirely B", func() {
				d := state.Load()
				So(d.Max, ShouldEqual, "32°")
				So(d.Min, ShouldEqual, "22°")
				So(d.Icon, ShouldEqual, icon.Storm)
				So(d.ConditionCode, ShouldEqual, 211)
			})
		})
	})
}
