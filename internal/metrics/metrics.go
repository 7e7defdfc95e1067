package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder holds the scanner's Prometheus series. A nil *Recorder is a no-op.
type Recorder struct {
	providerCalls *prometheus.CounterVec
	signals       *prometheus.CounterVec
	outcomes      *prometheus.CounterVec
	decisions     *prometheus.CounterVec
	notifyErrors  prometheus.Counter
	creditsUsed   prometheus.Gauge
	winRate       prometheus.Gauge
	pending       prometheus.Gauge
	state         *prometheus.GaugeVec
	stepLatency   prometheus.Histogram
}

// New registers the series on reg; pass prometheus.DefaultRegisterer in production.
func New(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		providerCalls: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scanner_provider_calls_total",
				Help: "Market data provider calls by provider and result kind",
			},
			[]string{"provider", "result"},
		),
		signals: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scanner_signals_total",
				Help: "Signals that cleared the confidence gate",
			},
			[]string{"symbol", "direction"},
		),
		outcomes: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scanner_outcomes_total",
				Help: "Verified signal outcomes",
			},
			[]string{"result"},
		),
		decisions: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scanner_decisions_total",
				Help: "Oracle verdicts received",
			},
			[]string{"verdict"},
		),
		notifyErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "scanner_notify_failures_total",
			Help: "Notifications that failed after all retries",
		}),
		creditsUsed: f.NewGauge(prometheus.GaugeOpts{
			Name: "scanner_primary_credits_used",
			Help: "Primary provider credits used in the current window",
		}),
		winRate: f.NewGauge(prometheus.GaugeOpts{
			Name: "scanner_win_rate",
			Help: "Exponentially smoothed recent win rate",
		}),
		pending: f.NewGauge(prometheus.GaugeOpts{
			Name: "scanner_pending_signals",
			Help: "Signals awaiting verification",
		}),
		state: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "scanner_state",
				Help: "1 for the scheduler's current state, 0 otherwise",
			},
			[]string{"state"},
		),
		stepLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "scanner_step_duration_seconds",
			Help:    "Duration of one fetch-and-decide step",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (r *Recorder) ProviderCall(provider, result string) {
	if r == nil {
		return
	}
	r.providerCalls.WithLabelValues(provider, result).Inc()
}

func (r *Recorder) Signal(symbol, direction string) {
	if r == nil {
		return
	}
	r.signals.WithLabelValues(symbol, direction).Inc()
}

func (r *Recorder) Outcome(result string) {
	if r == nil {
		return
	}
	r.outcomes.WithLabelValues(result).Inc()
}

func (r *Recorder) Decision(verdict string) {
	if r == nil {
		return
	}
	r.decisions.WithLabelValues(verdict).Inc()
}

func (r *Recorder) NotifyFailure() {
	if r == nil {
		return
	}
	r.notifyErrors.Inc()
}

func (r *Recorder) SetCredits(n int) {
	if r == nil {
		return
	}
	r.creditsUsed.Set(float64(n))
}

func (r *Recorder) SetWinRate(v float64) {
	if r == nil {
		return
	}
	r.winRate.Set(v)
}

func (r *Recorder) SetPending(n int) {
	if r == nil {
		return
	}
	r.pending.Set(float64(n))
}

// SetState marks current as the only active state among all.
func (r *Recorder) SetState(current string, all ...string) {
	if r == nil {
		return
	}
	for _, s := range all {
		r.state.WithLabelValues(s).Set(0)
	}
	r.state.WithLabelValues(current).Set(1)
}

func (r *Recorder) StepDuration(seconds float64) {
	if r == nil {
		return
	}
	r.stepLatency.Observe(seconds)
}
