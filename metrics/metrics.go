package metrics

import (
	"expvar"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// Uptime stores the timestamp of the Worker boot
	Uptime = expvar.NewInt("uptime")

	// Passes counts completed poll passes
	Passes = expvar.NewInt("passes")
	// Monitors is the number of monitors seen by the most recent pass
	Monitors = expvar.NewInt("monitors")
	// Fetches counts source fetches, FetchErrors the failed ones
	Fetches     = expvar.NewInt("fetches")
	FetchErrors = expvar.NewInt("fetch_errors")
	// Deliveries counts items sent to channels, DeliveryFailures the failed attempts
	Deliveries       = expvar.NewInt("deliveries")
	DeliveryFailures = expvar.NewInt("delivery_failures")

	registerOnce sync.Once
)

// Init starts metrics collection
func Init() {
	Uptime.Set(time.Now().Unix())

	registerOnce.Do(func() {
		prometheus.MustRegister(
			counter("monitor_passes_total", "Completed poll passes.", Passes),
			counter("monitor_fetches_total", "Source fetches.", Fetches),
			counter("monitor_fetch_errors_total", "Failed source fetches.", FetchErrors),
			counter("monitor_deliveries_total", "Items delivered to channels.", Deliveries),
			counter("monitor_delivery_failures_total", "Failed delivery attempts.", DeliveryFailures),
			prometheus.NewGaugeFunc(prometheus.GaugeOpts{
				Name: "monitor_monitors",
				Help: "Monitors seen by the most recent pass.",
			}, func() float64 {
				return float64(Monitors.Value())
			}),
			prometheus.NewGaugeFunc(prometheus.GaugeOpts{
				Name: "monitor_boot_timestamp_seconds",
				Help: "Unix time the worker booted.",
			}, func() float64 {
				return float64(Uptime.Value())
			}),
		)
	})
}

func counter(name, help string, value *expvar.Int) prometheus.CounterFunc {
	return prometheus.NewCounterFunc(prometheus.CounterOpts{
		Name: name,
		Help: help,
	}, func() float64 {
		return float64(value.Value())
	})
}
