// Package otelx installs the global OpenTelemetry tracer provider and
// propagator. Spans are exported over OTLP/gRPC when tracing is enabled.
package otelx

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"google.golang.org/grpc"

	"github.com/keithlinneman/ipview/internal/log"
	"github.com/keithlinneman/ipview/internal/xerrors"
)

type Options struct {
	Enabled   bool
	Endpoint  string
	Insecure  bool
	Sample    float64
	Service   string
	Component string
	Version   string

	// Logger receives errors the SDK reports asynchronously (export failures).
	Logger log.Logger
}

func (o Options) serviceName() string {
	if o.Component == "" {
		return o.Service
	}
	return o.Service + "." + o.Component
}

// userAgent identifies the exporter connection to the collector.
func (o Options) userAgent() string {
	ua := o.serviceName()
	if o.Version != "" {
		ua += "/" + o.Version
	}
	return ua
}

// sampleRatio clamps o.Sample into [0, 1].
func (o Options) sampleRatio() float64 {
	switch {
	case o.Sample < 0:
		return 0
	case o.Sample > 1:
		return 1
	default:
		return o.Sample
	}
}

func setPropagator() {
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{},
	))
}

// Init returns the provider's shutdown func. When disabled, an SDK provider
// without exporters is installed so span contexts still propagate.
func Init(ctx context.Context, o Options) (func(context.Context) error, error) {
	if !o.Enabled {
		otel.SetTracerProvider(sdktrace.NewTracerProvider())
		setPropagator()
		return func(context.Context) error { return nil }, nil
	}

	L := o.Logger
	if L == nil {
		L = log.Nop()
	}
	otel.SetErrorHandler(otel.ErrorHandlerFunc(func(err error) {
		L.Warn(context.Background(), "otel sdk error", "err", err)
	}))

	opts := []otlptracegrpc.Option{
		otlptracegrpc.WithEndpoint(o.Endpoint),
		otlptracegrpc.WithDialOption(grpc.WithUserAgent(o.userAgent())),
	}
	if o.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}

	// the local collector answers fast; don't let a dead one stall startup
	dialCtx, dialCancel := context.WithTimeout(ctx, 3*time.Second)
	defer dialCancel()
	exp, err := otlptracegrpc.New(dialCtx, opts...)
	if err != nil {
		return nil, xerrors.Wrapf(err, "otlp exporter endpoint=%s", o.Endpoint)
	}

	res, err := resource.New(ctx,
		resource.WithFromEnv(),
		resource.WithProcess(),
		resource.WithOS(),
		resource.WithHost(),
		resource.WithAttributes(
			semconv.ServiceNameKey.String(o.serviceName()),
			semconv.ServiceVersionKey.String(o.Version),
		),
	)
	if err != nil {
		// partial resources are still usable
		L.Warn(ctx, "otel resource detection incomplete", "err", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.ParentBased(
			sdktrace.TraceIDRatioBased(o.sampleRatio()),
		)),
		sdktrace.WithBatcher(exp,
			sdktrace.WithMaxQueueSize(2048),
			sdktrace.WithBatchTimeout(5*time.Second),
		),
		sdktrace.WithResource(res),
	)

	otel.SetTracerProvider(tp)
	setPropagator()

	return tp.Shutdown, nil
}
