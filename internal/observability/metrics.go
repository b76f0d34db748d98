package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce           sync.Once
	apiRequestsTotal       *prometheus.CounterVec
	apiLatencySeconds      *prometheus.HistogramVec
	apiErrorsTotal         *prometheus.CounterVec
	battleSubmissionsTotal *prometheus.CounterVec
	winnerResolutionsTotal *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used across the API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		apiRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "arena_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		apiLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "arena_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		apiErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "arena_errors_total",
			Help: "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		battleSubmissionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "arena_battle_submissions_total",
			Help: "Battle code submissions by admission outcome.",
		}, []string{"outcome"})

		winnerResolutionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "arena_winner_resolutions_total",
			Help: "Winner resolution attempts by outcome.",
		}, []string{"outcome"})

		prometheus.MustRegister(apiRequestsTotal, apiLatencySeconds, apiErrorsTotal, battleSubmissionsTotal, winnerResolutionsTotal)
	})
}

// APIRequests exposes the counter for API requests.
func APIRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return apiRequestsTotal
}

// APILatency exposes the latency histogram for API requests.
func APILatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return apiLatencySeconds
}

// APIErrors exposes the counter for API error responses.
func APIErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return apiErrorsTotal
}

// BattleSubmissions exposes the counter for battle submission outcomes.
func BattleSubmissions() *prometheus.CounterVec {
	RegisterMetrics()
	return battleSubmissionsTotal
}

// WinnerResolutions exposes the counter for winner resolution outcomes.
func WinnerResolutions() *prometheus.CounterVec {
	RegisterMetrics()
	return winnerResolutionsTotal
}
