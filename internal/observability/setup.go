package observability

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
)

var (
	// Global logger instance
	Logger *zap.Logger

	sanctionsIssuedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sanctions_issued_total",
			Help: "Total number of sanctions applied, by sanction type",
		},
		[]string{"type"},
	)

	amnestyOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "amnesty_operations_total",
			Help: "Total number of amnesty operations, by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)

	gatewayCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gateway_call_duration_seconds",
			Help:    "Time spent in platform gateway calls",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"call"},
	)
)

type MetricsServer struct {
	addr   string
	server *http.Server
}

func NewMetricsServer(addr string) *MetricsServer {
	return &MetricsServer{addr: addr}
}

func (m *MetricsServer) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	m.server = &http.Server{Addr: m.addr, Handler: mux}
	go func() {
		if err := m.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("metrics server failed")
		}
	}()
	return nil
}

func (m *MetricsServer) Stop(ctx context.Context) error {
	if m.server == nil {
		return nil
	}
	return m.server.Shutdown(ctx)
}

func Init(ctx context.Context) error {
	var err error
	Logger, err = zap.NewProduction()
	if err != nil {
		return err
	}

	prometheus.MustRegister(sanctionsIssuedTotal)
	prometheus.MustRegister(amnestyOperationsTotal)
	prometheus.MustRegister(gatewayCallDuration)

	tp := trace.NewTracerProvider()
	otel.SetTracerProvider(tp)

	return nil
}

// RecordSanction records one applied sanction by type.
func RecordSanction(sanctionType string) {
	sanctionsIssuedTotal.WithLabelValues(sanctionType).Inc()
}

// RecordAmnesty records one amnesty operation outcome.
func RecordAmnesty(operation, outcome string) {
	amnestyOperationsTotal.WithLabelValues(operation, outcome).Inc()
}

// TimeGatewayCall returns a stop function that observes the call duration.
func TimeGatewayCall(call string) func() {
	start := time.Now()
	return func() {
		gatewayCallDuration.WithLabelValues(call).Observe(time.Since(start).Seconds())
	}
}
