package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with default options on a fresh registry", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then collectors are registered under the sunwatch namespace", func() {
				So(manager, ShouldNotBeNil)
				manager.snapshotsApplied.Inc()

				families, err := registry.Gather()
				So(err, ShouldBeNil)
				found := false
				for _, f := range families {
					if f.GetName() == "sunwatch_sync_snapshots_applied_total" {
						found = true
					}
				}
				So(found, ShouldBeTrue)
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("watch"),
				WithLatencyBuckets([]float64{1, 10}),
				WithConstLabels(map[string]string{"role": "watch"}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then the names and labels follow the options", func() {
				manager.unknownCodes.Inc()
				expected := `
# HELP test_watch_unknown_condition_codes_total Condition codes that resolved to the unknown icon
# TYPE test_watch_unknown_condition_codes_total counter
test_watch_unknown_condition_codes_total{role="watch"} 1
`
				err := testutil.GatherAndCompare(registry, strings.NewReader(expected), "test_watch_unknown_condition_codes_total")
				So(err, ShouldBeNil)
			})
		})

		Convey("When options receive empty values", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace(""),
				WithSubsystem(""),
				WithLatencyBuckets(nil),
				WithPrometheusRegistry(registry),
			)

			Convey("Then defaults are kept", func() {
				So(manager.namespace, ShouldEqual, "sunwatch")
				So(manager.subsystem, ShouldEqual, "sync")
				So(manager.latencyBuckets, ShouldResemble, defaultLatencyBuckets)
			})
		})
	})
}

func TestGlobalRecorders(t *testing.T) {
	Convey("Given the global metrics manager", t, func() {
		Convey("When recording publishes", func() {
			before := testutil.ToFloat64(globalManager.publishTotal.WithLabelValues("/weather", "ok"))
			RecordPublish("/weather", "ok")
			RecordPublish("/weather", "ok")

			Convey("Then the labelled counter grows", func() {
				after := testutil.ToFloat64(globalManager.publishTotal.WithLabelValues("/weather", "ok"))
				So(after-before, ShouldEqual, 2)
			})
		})

		Convey("When toggling watch visibility", func() {
			UpdateWatchVisible(true)
			visible := testutil.ToFloat64(globalManager.watchVisible)
			UpdateWatchVisible(false)
			hidden := testutil.ToFloat64(globalManager.watchVisible)

			Convey("Then the gauge reflects the state", func() {
				So(visible, ShouldEqual, 1)
				So(hidden, ShouldEqual, 0)
			})
		})

		Convey("When recording decode errors and frames", func() {
			RecordDecodeError("MIN_TEMP")
			RecordFrame("ambient")
			RecordSyncRun("no_data")
			RecordErrorByComponent("transport", "closed")

			Convey("Then the custom registry gathers without error", func() {
				_, err := GetRegistry().Gather()
				So(err, ShouldBeNil)
			})
		})
	})
}
