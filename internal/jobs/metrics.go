package jobs

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	JobsSubmittedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "generation_jobs_submitted_total",
		Help: "Total number of generation jobs submitted",
	})
	JobsInProgress = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "generation_jobs_in_progress",
		Help: "Number of generation jobs currently being processed",
	})
	JobsCompletedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "generation_jobs_completed_total",
		Help: "Total number of generation jobs completed successfully",
	})
	JobsFailedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "generation_jobs_failed_total",
		Help: "Total number of generation jobs that ended failed",
	})
	FallbacksTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "generation_fallbacks_total",
		Help: "Total number of jobs switched to the synthetic provider",
	})
	JobsReapedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "generation_jobs_reaped_total",
		Help: "Total number of expired jobs removed by the reaper",
	})
	JobsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "generation_jobs_active",
		Help: "Number of jobs currently held in the store",
	})
)

func init() {
	prometheus.MustRegister(
		JobsSubmittedTotal,
		JobsInProgress,
		JobsCompletedTotal,
		JobsFailedTotal,
		FallbacksTotal,
		JobsReapedTotal,
		JobsActive,
	)
}
