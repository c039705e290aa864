package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the auction ledger.
type Metrics struct {
	// --- Engine ---
	CommandsApplied   *prometheus.CounterVec
	CommandsRejected  *prometheus.CounterVec
	CommandDuration   *prometheus.HistogramVec
	EngineSequence    prometheus.Gauge
	BidsAccepted      prometheus.Counter
	AuctionsGraduated prometheus.Counter
	RefundsIssued     prometheus.Counter
	WithdrawalsSwept  prometheus.Counter

	// --- Channels & backpressure ---
	NotifyDrops         prometheus.Counter
	PersistBackpressure prometheus.Counter

	// --- Persistence ---
	PersistEventsWritten prometheus.Counter
	PersistBatchSize     prometheus.Histogram
	PersistBatchDur      prometheus.Histogram
	PersistErrors        *prometheus.CounterVec
	PersistLastSequence  prometheus.Gauge

	// --- Ingestion ---
	CommandsReceived *prometheus.CounterVec
	ParseErrors      *prometheus.CounterVec

	// --- HTTP API ---
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
}

// NewMetrics creates and registers all metrics on the default registry.
func NewMetrics() *Metrics {
	durationBuckets := []float64{
		0.00001, 0.000025, 0.00005, 0.0001, 0.00025,
		0.0005, 0.001, 0.002, 0.005, 0.01,
	}

	return &Metrics{
		CommandsApplied: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "auction_commands_applied_total",
			Help: "Commands committed by the engine, by command type.",
		}, []string{"command"}),
		CommandsRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "auction_commands_rejected_total",
			Help: "Commands rejected by the engine, by command type and reason.",
		}, []string{"command", "reason"}),
		CommandDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "auction_command_duration_seconds",
			Help:    "Time to validate and apply one command.",
			Buckets: durationBuckets,
		}, []string{"command"}),
		EngineSequence: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "auction_engine_sequence",
			Help: "Current global event sequence.",
		}),
		BidsAccepted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "auction_bids_accepted_total",
			Help: "Accepted bids across all auctions.",
		}),
		AuctionsGraduated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "auction_graduations_total",
			Help: "Auctions that reached their minimum participation threshold.",
		}),
		RefundsIssued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "auction_refunds_total",
			Help: "Refunds that returned a non-zero amount.",
		}),
		WithdrawalsSwept: promauto.NewCounter(prometheus.CounterOpts{
			Name: "auction_withdrawals_total",
			Help: "Successful authority withdrawals.",
		}),
		NotifyDrops: promauto.NewCounter(prometheus.CounterOpts{
			Name: "auction_notify_drops_total",
			Help: "Outbound notifications dropped due to a full channel.",
		}),
		PersistBackpressure: promauto.NewCounter(prometheus.CounterOpts{
			Name: "auction_persist_backpressure_total",
			Help: "Commits that blocked on the persistence channel.",
		}),
		PersistEventsWritten: promauto.NewCounter(prometheus.CounterOpts{
			Name: "auction_persist_events_written_total",
			Help: "Event rows written to the event log.",
		}),
		PersistBatchSize: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "auction_persist_batch_size",
			Help:    "Events per persisted batch.",
			Buckets: []float64{1, 2, 5, 10, 25, 50, 100},
		}),
		PersistBatchDur: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "auction_persist_batch_duration_seconds",
			Help:    "Time to flush one batch to the event log.",
			Buckets: prometheus.DefBuckets,
		}),
		PersistErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "auction_persist_errors_total",
			Help: "Failed event-log writes, by stage.",
		}, []string{"stage"}),
		PersistLastSequence: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "auction_persist_last_sequence",
			Help: "Highest sequence durably written.",
		}),
		CommandsReceived: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "auction_commands_received_total",
			Help: "Commands received from ingestion, by command type.",
		}, []string{"command"}),
		ParseErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "auction_parse_errors_total",
			Help: "Malformed command payloads, by command type.",
		}, []string{"command"}),
		HTTPRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "auction_http_requests_total",
			Help: "HTTP API requests, by route and status.",
		}, []string{"route", "status"}),
		HTTPDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "auction_http_request_duration_seconds",
			Help:    "HTTP API request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
	}
}
