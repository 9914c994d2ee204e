package transport

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/encoding/json"
	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/sunwatch/internal/domain/model"
)

func TestCodec(t *testing.T) {
	convey.Convey("Given an item on the weather path", t, func() {
		at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		snap := model.WeatherSnapshot{ConditionCode: 781, MaxTemperature: 30.5, MinTemperature: 21}
		item := Item{ID: "id-1", Path: model.PathWeather, Fields: snap.Fields(), At: at}

		convey.Convey("When it goes through the broker envelope", func() {
			b, err := encodeItem(item)
			convey.So(err, convey.ShouldBeNil)

			got, err := decodeItem(b)
			convey.So(err, convey.ShouldBeNil)

			convey.Convey("Then the integer code survives as a json.Number", func() {
				convey.So(got.Fields[model.KeyWeatherID], convey.ShouldEqual, json.Number("781"))
				u := model.DecodeSnapshot(got.Fields)
				convey.So(*u.ConditionCode, convey.ShouldEqual, 781)
				convey.So(*u.MaxTemp, convey.ShouldEqual, "30.5")
				convey.So(*u.MinTemp, convey.ShouldEqual, "21")
			})

			convey.Convey("Then the metadata is preserved", func() {
				convey.So(got.ID, convey.ShouldEqual, "id-1")
				convey.So(got.Path, convey.ShouldEqual, model.PathWeather)
				convey.So(got.At.Equal(at), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the body is not an envelope", func() {
			_, err := decodeItem([]byte(`{"id":"x"}`))
			_, err2 := decodeItem([]byte(`not json`))

			convey.Convey("Then decoding fails", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err2, convey.ShouldNotBeNil)
			})
		})
	})
}

func TestRoutingKey(t *testing.T) {
	convey.Convey("Given transport paths", t, func() {
		convey.Convey("Then they map to dotted routing keys", func() {
			convey.So(routingKey(model.PathWeather), convey.ShouldEqual, "weather")
			convey.So(routingKey(model.PathPalette), convey.ShouldEqual, "watch_face_config.Digital")
		})
	})
}

func TestNewAMQP_BadDSN(t *testing.T) {
	convey.Convey("Given an unusable broker DSN", t, func() {
		_, err := NewAMQP(context.Background(), "http://not-amqp", WithRetry(2, time.Millisecond))

		convey.Convey("Then setup fails with a transport failure", func() {
			convey.So(errors.Is(err, ErrTransportFailure), convey.ShouldBeTrue)
		})
	})
}
