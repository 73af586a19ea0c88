package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	concludeRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mmg_conclude_runs_total",
		Help: "Round conclusion runs by outcome",
	}, []string{"status"})

	partyPollsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mmg_party_polls_total",
		Help: "Party state poll requests served",
	})

	partyAdvancesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mmg_party_advances_total",
		Help: "Party advance requests by outcome",
	}, []string{"status"})

	ratingsSubmittedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mmg_ratings_submitted_total",
		Help: "Rating/guess submissions accepted",
	})

	concludeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "mmg_conclude_duration_seconds",
		Help:    "Wall time of a full round conclusion run",
		Buckets: prometheus.DefBuckets,
	})
)

func ObserveConcludeRun(status string) {
	concludeRunsTotal.WithLabelValues(status).Inc()
}

func IncPartyPoll() {
	partyPollsTotal.Inc()
}

func ObservePartyAdvance(status string) {
	partyAdvancesTotal.WithLabelValues(status).Inc()
}

func IncRatingSubmitted() {
	ratingsSubmittedTotal.Inc()
}

func ObserveConcludeDuration(seconds float64) {
	concludeDuration.Observe(seconds)
}
