// Package metrics exposes Prometheus counters for line and station changes.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Operation labels
const (
	OpCreateLine    = "create_line"
	OpUpdateLine    = "update_line"
	OpDeleteLine    = "delete_line"
	OpAddSection    = "add_section"
	OpRemoveStation = "remove_station"
	OpCreateStation = "create_station"
	OpDeleteStation = "delete_station"
)

var (
	// mutationsTotal counts applied mutations by operation
	mutationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "subway_mutations_total",
		Help: "Total applied line and station mutations by operation",
	}, []string{"operation"})

	// rejectionsTotal counts mutations refused by domain rules
	rejectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "subway_mutation_rejections_total",
		Help: "Total line and station mutations rejected by domain rules",
	}, []string{"operation", "reason"})

	// lineCacheLookups counts line view cache hits and misses
	lineCacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "subway_line_cache_lookups_total",
		Help: "Total line view cache lookups by result",
	}, []string{"result"}) // "hit" or "miss"

	// lineSectionCount tracks sections per line after each change
	lineSectionCount = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "subway_line_section_count",
		Help:    "Number of sections on a line after a change",
		Buckets: []float64{1, 2, 5, 10, 20, 50, 100},
	})
)

// MutationApplied records a successful mutation
func MutationApplied(operation string) {
	mutationsTotal.WithLabelValues(operation).Inc()
}

// MutationRejected records a mutation refused for the given reason
func MutationRejected(operation, reason string) {
	rejectionsTotal.WithLabelValues(operation, reason).Inc()
}

// CacheLookup records a line view cache hit or miss
func CacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	lineCacheLookups.WithLabelValues(result).Inc()
}

// SectionCount records the section count of a line after a change
func SectionCount(n int) {
	lineSectionCount.Observe(float64(n))
}

// Handler serves the default registry in the Prometheus text format
func Handler() http.Handler {
	return promhttp.Handler()
}
