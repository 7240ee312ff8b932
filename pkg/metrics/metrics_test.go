package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with default options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then it should be created with defaults", func() {
				So(manager, ShouldNotBeNil)
				So(manager.Enabled(), ShouldBeTrue)
				So(manager.RefreshInterval(), ShouldEqual, defaultRefreshInterval)
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test_namespace"),
				WithSubsystem("test_subsystem"),
				WithMetricPrefix("pfx"),
				WithHistogramBuckets([]float64{0.1, 0.5, 1.0}),
				WithRefreshInterval(5*time.Second),
				WithCustomLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)
			manager.RecordPrediction("success", 12)

			Convey("Then metric names carry namespace, subsystem and prefix", func() {
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				names := make([]string, 0, len(families))
				for _, f := range families {
					names = append(names, f.GetName())
				}
				So(strings.Join(names, ","), ShouldContainSubstring, "test_namespace_test_subsystem_pfx_predictions_total")
				So(manager.RefreshInterval(), ShouldEqual, 5*time.Second)
			})
		})
	})
}

func TestPredictionMetrics(t *testing.T) {
	Convey("Given a manager on an isolated registry", t, func() {
		registry := prometheus.NewRegistry()
		manager := NewManager(WithPrometheusRegistry(registry))

		Convey("When predictions are recorded", func() {
			manager.RecordPrediction("success", 40)
			manager.RecordPrediction("success", 60)
			manager.RecordPrediction("unavailable", 5000)
			manager.RecordResult(0.72, "High Risk", true)
			manager.RecordResult(0.12, "Low Risk", false)
			manager.RecordUpstreamStatus("200")
			manager.RecordInvalidField("Age")

			Convey("Then counters reflect the outcomes", func() {
				So(testutil.ToFloat64(manager.predictions.WithLabelValues("success")), ShouldEqual, 2.0)
				So(testutil.ToFloat64(manager.predictions.WithLabelValues("unavailable")), ShouldEqual, 1.0)
				So(testutil.ToFloat64(manager.riskLevels.WithLabelValues("High Risk")), ShouldEqual, 1.0)
				So(testutil.ToFloat64(manager.highRiskCustomers), ShouldEqual, 1.0)
				So(testutil.ToFloat64(manager.upstreamStatus.WithLabelValues("200")), ShouldEqual, 1.0)
				So(testutil.ToFloat64(manager.invalidSubmissions.WithLabelValues("Age")), ShouldEqual, 1.0)
			})
		})

		Convey("When the manager is disabled", func() {
			disabled := NewManager(WithPrometheusRegistry(prometheus.NewRegistry()), WithMetricsEnabled(false))
			disabled.RecordPrediction("success", 1)

			Convey("Then nothing is observed", func() {
				So(testutil.ToFloat64(disabled.predictions.WithLabelValues("success")), ShouldEqual, 0.0)
			})
		})
	})
}

func TestGlobalRecording(t *testing.T) {
	Convey("Given the global manager", t, func() {
		Convey("Then recording functions should not panic", func() {
			So(func() {
				RecordPrediction("service_error", 30)
				RecordResult(0.5, "Medium Risk", false)
				RecordUpstreamStatus("500")
				RecordInvalidField("Geography")
				RecordHTTPRequest("predict", "POST", "200")
				RecordHTTPRequestDuration("predict", "POST", "200", 31)
				RecordErrorByType("server_error", "high")
				RecordErrorByEndpoint("predict", "POST", "server_error")
				RecordErrorLatency("http", "server_error", 31)
				UpdateSystemMemoryUsage(1 << 20)
				UpdateSystemGoroutineCount(10)
				RecordSystemGCPauseTime(0.3)
			}, ShouldNotPanic)
		})

		Convey("And the custom registry should be gatherable", func() {
			families, err := GetRegistry().Gather()
			So(err, ShouldBeNil)
			So(len(families), ShouldBeGreaterThan, 0)
			So(RefreshInterval(), ShouldEqual, defaultRefreshInterval)
		})
	})
}
