package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes application-level instruments.
type Metrics struct {
	ledgerRows    metric.Int64Counter
	fallbacks     metric.Int64Counter
	runsCompleted metric.Int64Counter
	runsFailed    metric.Int64Counter
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if log != nil {
					log.Info("shutting down meter provider")
				}
				return provider.Shutdown(ctx)
			},
		})
	}

	if log != nil {
		log.Info("metrics initialized",
			zap.String("endpoint", cfg.ExporterEndpoint),
			zap.String("protocol", cfg.ExporterProtocol),
		)
	}

	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "costlens"
	}
	meter := provider.Meter(name)

	ledgerRows, err := meter.Int64Counter("costlens_ledger_rows_written_total")
	if err != nil {
		return nil, err
	}
	fallbacks, err := meter.Int64Counter("costlens_fallback_substitutions_total")
	if err != nil {
		return nil, err
	}
	runsCompleted, err := meter.Int64Counter("costlens_runs_completed_total")
	if err != nil {
		return nil, err
	}
	runsFailed, err := meter.Int64Counter("costlens_runs_failed_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		ledgerRows:    ledgerRows,
		fallbacks:     fallbacks,
		runsCompleted: runsCompleted,
		runsFailed:    runsFailed,
	}, nil
}

// RecordLedgerRows counts canonical rows committed for a source domain.
func (m *Metrics) RecordLedgerRows(ctx context.Context, domain string, count int64) {
	if m == nil || count <= 0 {
		return
	}
	m.ledgerRows.Add(ctx, count, metric.WithAttributes(attribute.String("domain", domain)))
}

// RecordFallback counts a data-quality substitution for a mapped attribute.
func (m *Metrics) RecordFallback(ctx context.Context, domain, attr string) {
	if m == nil {
		return
	}
	m.fallbacks.Add(ctx, 1, metric.WithAttributes(
		attribute.String("domain", domain),
		attribute.String("attribute", attr),
	))
}

// RecordRunCompleted counts a successful end-to-end run.
func (m *Metrics) RecordRunCompleted(ctx context.Context, domain string) {
	if m == nil {
		return
	}
	m.runsCompleted.Add(ctx, 1, metric.WithAttributes(attribute.String("domain", domain)))
}

// RecordRunFailed counts a failed run tagged with the failing stage.
func (m *Metrics) RecordRunFailed(ctx context.Context, domain, stage string) {
	if m == nil {
		return
	}
	m.runsFailed.Add(ctx, 1, metric.WithAttributes(
		attribute.String("domain", domain),
		attribute.String("stage", stage),
	))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	switch protocol {
	case "http", "http/protobuf":
		return otlpmetrichttp.New(context.Background(),
			otlpmetrichttp.WithEndpoint(endpoint),
			otlpmetrichttp.WithInsecure(),
		)
	case "", "grpc":
		return otlpmetricgrpc.New(context.Background(),
			otlpmetricgrpc.WithEndpoint(endpoint),
			otlpmetricgrpc.WithInsecure(),
		)
	default:
		return nil, fmt.Errorf("unsupported metrics exporter protocol %q", protocol)
	}
}
