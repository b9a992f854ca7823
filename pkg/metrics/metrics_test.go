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
		Convey("When creating with default options on a private registry", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then it should use the service namespace", func() {
				So(manager, ShouldNotBeNil)
				So(manager.namespace, ShouldEqual, "pitchload")
				So(manager.subsystem, ShouldEqual, "analytics")
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test_namespace"),
				WithSubsystem("test_subsystem"),
				WithMetricPrefix("test_prefix"),
				WithHistogramBuckets([]float64{0.1, 0.5, 1.0}),
				WithCustomLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then every option should be applied", func() {
				So(manager.namespace, ShouldEqual, "test_namespace")
				So(manager.subsystem, ShouldEqual, "test_subsystem")
				So(manager.metricPrefix, ShouldEqual, "test_prefix")
				So(manager.histogramBuckets, ShouldResemble, []float64{0.1, 0.5, 1.0})
				So(manager.customLabels["env"], ShouldEqual, "test")
			})

			Convey("And metric names should carry the prefix", func() {
				manager.sessionsIngested.Inc()
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				found := false
				for _, f := range families {
					if f.GetName() == "test_namespace_test_subsystem_test_prefix_sessions_ingested_total" {
						found = true
					}
				}
				So(found, ShouldBeTrue)
			})
		})

		Convey("When empty options are passed", func() {
			manager := NewManager(
				WithNamespace(""),
				WithSubsystem(""),
				WithHistogramBuckets(nil),
				WithPrometheusRegistry(prometheus.NewRegistry()),
			)

			Convey("Then defaults should be kept", func() {
				So(manager.namespace, ShouldEqual, "pitchload")
				So(manager.subsystem, ShouldEqual, "analytics")
				So(manager.histogramBuckets, ShouldResemble, prometheus.DefBuckets)
			})
		})
	})
}

func TestAnalyticsMetrics(t *testing.T) {
	Convey("Given the global metrics manager", t, func() {
		Convey("When recording skipped records", func() {
			before := testutil.ToFloat64(globalManager.recordsSkipped.WithLabelValues("negative_duration"))
			RecordRecordSkipped("negative_duration")
			RecordRecordSkipped("negative_duration")

			Convey("Then the labelled counter should grow", func() {
				after := testutil.ToFloat64(globalManager.recordsSkipped.WithLabelValues("negative_duration"))
				So(after-before, ShouldEqual, 2)
			})
		})

		Convey("When recording analyses and cache outcomes", func() {
			before := testutil.ToFloat64(globalManager.analysesTotal.WithLabelValues("training_load"))
			hits := testutil.ToFloat64(globalManager.cacheHits.WithLabelValues("memory"))

			RecordAnalysis("training_load", 12.5)
			RecordCacheHit("memory")
			RecordCacheMiss("memory")

			Convey("Then the counters should reflect it", func() {
				So(testutil.ToFloat64(globalManager.analysesTotal.WithLabelValues("training_load"))-before, ShouldEqual, 1)
				So(testutil.ToFloat64(globalManager.cacheHits.WithLabelValues("memory"))-hits, ShouldEqual, 1)
			})
		})

		Convey("When updating gauges", func() {
			UpdateRosterSize(20)
			UpdateRepositoryRecords(20, 150)
			UpdateBreakerState("repository", 2)

			Convey("Then the gauges should hold the last value", func() {
				So(testutil.ToFloat64(globalManager.rosterSize), ShouldEqual, 20)
				So(testutil.ToFloat64(globalManager.repositorySessions), ShouldEqual, 150)
				So(testutil.ToFloat64(globalManager.breakerState.WithLabelValues("repository")), ShouldEqual, 2)
			})
		})

		Convey("When recording the remaining helpers", func() {
			So(func() {
				RecordRiskLevel("high")
				RecordPlayerOmitted("timeout")
				RecordCacheError("redis")
				UpdateCacheEntries(3)
				RecordRepositoryQueryLatency("get_sessions", 1.5)
				RecordRepositoryError("get_roster")
				RecordSessionIngested()
				RecordSessionDuplicate()
				RecordSessionRejected("invalid")
				UpdateQueueSize(10)
				UpdateQueueCapacity(100)
				UpdateQueueUtilization(0.1)
				RecordQueueEnqueue()
				RecordQueueDequeue()
				RecordQueueEnqueueError()
				RecordQueueProcessingLatency(0.2)
				UpdateWorkerCount(4)
				UpdateWorkerActiveCount(4)
				UpdateWorkerMessagesPerSecond(12)
				RecordWorkerProcessingLatency(0.3)
				RecordWorkerError()
				RecordHTTPRequest("/health", "GET", "200")
				RecordHTTPRequestDuration("/health", "GET", "200", 1)
				RecordErrorByComponent("api", "client_error")
				RecordErrorByType("client_error", "warning")
				RecordErrorByEndpoint("/sessions", "POST", "client_error")
				RecordErrorLatency("api", "client_error", 2)
				UpdateSystemMemoryUsage(1 << 20)
				UpdateSystemGoroutineCount(12)
				RecordSystemGCPauseTime(0.5)
			}, ShouldNotPanic)
		})
	})
}

func TestRegistryExposition(t *testing.T) {
	Convey("Given the custom registry", t, func() {
		RecordSessionIngested()

		Convey("When gathering", func() {
			families, err := GetRegistry().Gather()

			Convey("Then only service metrics should be present", func() {
				So(err, ShouldBeNil)
				So(len(families), ShouldBeGreaterThan, 0)
				for _, f := range families {
					So(strings.HasPrefix(f.GetName(), "pitchload_analytics_"), ShouldBeTrue)
				}
			})
		})
	})
}
