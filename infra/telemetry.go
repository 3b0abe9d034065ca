package infra

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/tnqbao/gau-media-gateway/config"
	"go.opentelemetry.io/contrib/instrumentation/runtime"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

const instrumentationName = "github.com/tnqbao/gau-media-gateway"

// TelemetryClient holds the tracer and the media counters shared by the
// HTTP server and the consumer.
type TelemetryClient struct {
	Tracer          trace.Tracer
	Uploads         metric.Int64Counter
	Orphans         metric.Int64Counter
	SigningFailures metric.Int64Counter

	shutdowns []func(context.Context) error
}

func newResource(cfg *config.EnvConfig) *resource.Resource {
	return resource.NewSchemaless(
		attribute.String("service.name", cfg.Telemetry.ServiceName),
		attribute.String("deployment.environment", cfg.Environment.Mode),
	)
}

func InitTelemetryClient(cfg *config.EnvConfig) *TelemetryClient {
	if cfg.Telemetry.OTLPEndpoint == "" {
		return NewNoopTelemetry()
	}

	ctx := context.Background()
	res := newResource(cfg)
	client := &TelemetryClient{}

	var tracerProvider trace.TracerProvider = tracenoop.NewTracerProvider()
	traceExporter, err := otlptrace.New(ctx, otlptracehttp.NewClient(
		otlptracehttp.WithEndpoint(cfg.Telemetry.OTLPEndpoint),
		otlptracehttp.WithInsecure(),
	))
	if err != nil {
		log.Printf("Warning: failed to create OTLP trace exporter: %v", err)
	} else {
		tp := sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(traceExporter),
			sdktrace.WithResource(res),
		)
		otel.SetTracerProvider(tp)
		client.shutdowns = append(client.shutdowns, tp.Shutdown)
		tracerProvider = tp
	}

	var meterProvider metric.MeterProvider = metricnoop.NewMeterProvider()
	metricExporter, err := otlpmetrichttp.New(ctx,
		otlpmetrichttp.WithEndpoint(cfg.Telemetry.OTLPEndpoint),
		otlpmetrichttp.WithInsecure(),
	)
	if err != nil {
		log.Printf("Warning: failed to create OTLP metric exporter: %v", err)
	} else {
		mp := sdkmetric.NewMeterProvider(
			sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter, sdkmetric.WithInterval(30*time.Second))),
			sdkmetric.WithResource(res),
		)
		otel.SetMeterProvider(mp)
		client.shutdowns = append(client.shutdowns, mp.Shutdown)
		meterProvider = mp

		if err := runtime.Start(runtime.WithMeterProvider(mp)); err != nil {
			log.Printf("Warning: failed to start runtime instrumentation: %v", err)
		}
	}

	if err := client.bind(tracerProvider, meterProvider); err != nil {
		log.Printf("Warning: failed to create media instruments: %v", err)
		return NewNoopTelemetry()
	}
	return client
}

// NewNoopTelemetry returns a client whose spans and counters are discarded.
func NewNoopTelemetry() *TelemetryClient {
	client := &TelemetryClient{}
	// noop instruments never fail to register
	_ = client.bind(tracenoop.NewTracerProvider(), metricnoop.NewMeterProvider())
	return client
}

func (t *TelemetryClient) bind(tp trace.TracerProvider, mp metric.MeterProvider) error {
	meter := mp.Meter(instrumentationName)
	var err error

	t.Tracer = tp.Tracer(instrumentationName)
	if t.Uploads, err = meter.Int64Counter("media.uploads",
		metric.WithDescription("Media records committed through either upload flow")); err != nil {
		return err
	}
	if t.Orphans, err = meter.Int64Counter("media.orphans",
		metric.WithDescription("Stored objects left without a metadata row")); err != nil {
		return err
	}
	if t.SigningFailures, err = meter.Int64Counter("media.signing_failures",
		metric.WithDescription("Signed URL requests rejected by the object store")); err != nil {
		return err
	}
	return nil
}

func (t *TelemetryClient) Shutdown(ctx context.Context) error {
	var errs []error
	for _, shutdown := range t.shutdowns {
		errs = append(errs, shutdown(ctx))
	}
	return errors.Join(errs...)
}
