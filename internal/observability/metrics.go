package observability

import (
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/danmuck/nslisting/internal/protocol"
	"github.com/danmuck/nslisting/internal/protocol/schema"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "nslisting"

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"node", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"node", "method", "path", "status"},
	)
	recordsEncoded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "codec",
			Name:      "records_encoded_total",
			Help:      "Records encoded, by protocol.",
		},
		[]string{"protocol"},
	)
	recordsDecoded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "codec",
			Name:      "records_decoded_total",
			Help:      "Records decoded, by protocol.",
		},
		[]string{"protocol"},
	)
	decodeErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "codec",
			Name:      "decode_errors_total",
			Help:      "Failed record decodes, by protocol and error kind.",
		},
		[]string{"protocol", "kind"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(httpRequests, httpDuration, recordsEncoded, recordsDecoded, decodeErrors)
	})
}

func RecordHTTPRequest(node, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(node, method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(node, method, path, statusLabel).Observe(duration.Seconds())
}

// RecordEncode counts n records written with the named protocol.
func RecordEncode(proto string, n int) {
	RegisterMetrics()
	recordsEncoded.WithLabelValues(proto).Add(float64(n))
}

// RecordDecode counts one decode attempt. Failures are split by ErrorKind.
func RecordDecode(proto string, err error) {
	RegisterMetrics()
	if err != nil {
		decodeErrors.WithLabelValues(proto, ErrorKind(err)).Inc()
		return
	}
	recordsDecoded.WithLabelValues(proto).Inc()
}

// ErrorKind buckets codec errors into a small label set.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, schema.ErrRequiredField):
		return "missing_field"
	case errors.Is(err, protocol.ErrSizeLimit), errors.Is(err, protocol.ErrDepthExceeded):
		return "limit"
	case errors.Is(err, protocol.ErrTruncated):
		return "truncated"
	case errors.Is(err, protocol.ErrMalformed):
		return "malformed"
	default:
		return "other"
	}
}
