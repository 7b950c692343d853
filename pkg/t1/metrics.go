package t1

import "github.com/prometheus/client_golang/prometheus"

// Metrics is an optional, nil-safe counter set for dispatch-loop
// events: retries, resyncs, WTX rounds, checksum errors. These are
// purely observational — never read back by the dispatch logic —
// mirroring runZeroInc-sockstats' Prometheus counter usage.
type Metrics struct {
	Retries      prometheus.Counter
	ChecksumErrs prometheus.Counter
	Timeouts     prometheus.Counter
	WTXRounds    prometheus.Counter
	Resyncs      prometheus.Counter
	Resets       prometheus.Counter
}

// NewMetrics registers a fresh Metrics set under the given registerer.
func NewMetrics(reg prometheus.Registerer, namespace string) *Metrics {
	m := &Metrics{
		Retries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "retries_total", Help: "Retry-budget decrements across all sessions.",
		}),
		ChecksumErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "checksum_errors_total", Help: "Received blocks that failed checksum verification, plus R(CHECKSUM_ERROR) blocks from the card.",
		}),
		Timeouts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "timeouts_total", Help: "recv_block deadlines that elapsed without a NAD byte.",
		}),
		WTXRounds: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "wtx_rounds_total", Help: "Waiting-time-extension rounds granted to the card.",
		}),
		Resyncs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "resyncs_total", Help: "Automatic or explicit RESYNC exchanges performed.",
		}),
		Resets: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "resets_total", Help: "Automatic or explicit RESET/SWR exchanges performed.",
		}),
	}
	reg.MustRegister(m.Retries, m.ChecksumErrs, m.Timeouts, m.WTXRounds, m.Resyncs, m.Resets)
	return m
}

func (m *Metrics) incRetries() {
	if m != nil {
		m.Retries.Inc()
	}
}

func (m *Metrics) incChecksumErr() {
	if m != nil {
		m.ChecksumErrs.Inc()
	}
}

func (m *Metrics) incTimeout() {
	if m != nil {
		m.Timeouts.Inc()
	}
}

func (m *Metrics) incWTXRound() {
	if m != nil {
		m.WTXRounds.Inc()
	}
}

func (m *Metrics) incResync() {
	if m != nil {
		m.Resyncs.Inc()
	}
}

func (m *Metrics) incReset() {
	if m != nil {
		m.Resets.Inc()
	}
}
