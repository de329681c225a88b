package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Key gate outcomes (low cardinality)
const (
	OutcomeOK            = "ok"
	OutcomeMissingToken  = "missing_token"
	OutcomeInvalidToken  = "invalid_token"
	OutcomeVideoMismatch = "video_mismatch"
	OutcomeNotFound      = "not_found"
	OutcomeError         = "error"
)

var (
	tokensIssuedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "keygate",
		Name:      "tokens_issued_total",
		Help:      "Playback tokens issued by video",
	}, []string{"video"})

	keyRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "keygate",
		Name:      "key_requests_total",
		Help:      "Key gate requests by outcome and token source",
	}, []string{"outcome", "source"})

	keyRequestSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "keygate",
		Name:      "key_request_duration_seconds",
		Help:      "Key gate latency",
		Buckets:   []float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	})

	keyCacheTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "keygate",
		Name:      "key_cache_total",
		Help:      "Key material cache lookups by result",
	}, []string{"result"})

	keysAvailable = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "keygate",
		Name:      "keys_available",
		Help:      "Key material objects found by the last inventory run",
	})

	checkoutSessionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "keygate",
		Name:      "checkout_sessions_total",
		Help:      "Fake checkout sessions created",
	})
)

// IncTokenIssued นับ token ที่ออก
func IncTokenIssued(video string) {
	tokensIssuedTotal.WithLabelValues(video).Inc()
}

// ObserveKeyRequest บันทึกผลของ key gate request
// source: "header", "query" หรือ "none"
func ObserveKeyRequest(outcome, source string, seconds float64) {
	keyRequestsTotal.WithLabelValues(outcome, source).Inc()
	keyRequestSeconds.Observe(seconds)
}

// IncKeyCache result: "hit", "miss", "error"
func IncKeyCache(result string) {
	keyCacheTotal.WithLabelValues(result).Inc()
}

// SetKeysAvailable อัปเดตจำนวน key จาก inventory job
func SetKeysAvailable(n int) {
	keysAvailable.Set(float64(n))
}

func IncCheckoutSession() {
	checkoutSessionsTotal.Inc()
}
