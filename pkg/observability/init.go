package observability

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"slices"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/metric"
	noopmetric "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"
)

const (
	instrumentationName = "github.com/Sumatoshi-tech/pyrefactor"

	attrLaunchMode = "pyrefactor.mode"
)

// Providers holds the initialized observability providers.
type Providers struct {
	Tracer trace.Tracer
	Meter  metric.Meter
	Logger *slog.Logger

	// Shutdown flushes pending spans, pushes metrics and writes the
	// textfile. Call it once, before the process exits.
	Shutdown func(ctx context.Context) error
}

// Init wires tracing, metrics and logging for one pyrefactor run.
//
// Spans are exported only when an OTLP endpoint is set. Metrics are
// collected when an endpoint or a textfile is configured, which lets a
// one-shot batch run report to node_exporter without a collector. Without
// either, both providers are no-ops.
func Init(cfg Config) (Providers, error) {
	ctx := context.Background()

	res, err := newResource(ctx, cfg)
	if err != nil {
		return Providers{}, err
	}

	pipe := &pipeline{cfg: cfg, res: res}

	tp, err := pipe.tracing(ctx)
	if err != nil {
		return Providers{}, err
	}

	mp, err := pipe.metrics(ctx)
	if err != nil {
		return Providers{}, errors.Join(err, pipe.shutdown(ctx))
	}

	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return Providers{
		Tracer:   tp.Tracer(instrumentationName),
		Meter:    mp.Meter(instrumentationName),
		Logger:   newLogger(cfg),
		Shutdown: pipe.shutdown,
	}, nil
}

func newResource(ctx context.Context, cfg Config) (*resource.Resource, error) {
	attrs := []attribute.KeyValue{semconv.ServiceName(cfg.ServiceName)}

	if cfg.ServiceVersion != "" {
		attrs = append(attrs, semconv.ServiceVersion(cfg.ServiceVersion))
	}

	if cfg.Environment != "" {
		attrs = append(attrs, semconv.DeploymentEnvironment(cfg.Environment))
	}

	if cfg.Mode != "" {
		attrs = append(attrs, attribute.String(attrLaunchMode, string(cfg.Mode)))
	}

	res, err := resource.New(ctx, resource.WithAttributes(attrs...))
	if err != nil {
		return nil, fmt.Errorf("build otel resource: %w", err)
	}

	return res, nil
}

// pipeline builds the providers and remembers how to tear them down.
type pipeline struct {
	cfg     Config
	res     *resource.Resource
	closers []func(context.Context) error
}

func (pipe *pipeline) tracing(ctx context.Context) (trace.TracerProvider, error) {
	if pipe.cfg.OTLPEndpoint == "" {
		return nooptrace.NewTracerProvider(), nil
	}

	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(pipe.cfg.OTLPEndpoint)}
	if pipe.cfg.OTLPInsecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}

	if len(pipe.cfg.OTLPHeaders) > 0 {
		opts = append(opts, otlptracegrpc.WithHeaders(pipe.cfg.OTLPHeaders))
	}

	exporter, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create trace exporter: %w", err)
	}

	tpOpts := []sdktrace.TracerProviderOption{
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(pipe.res),
	}

	// Without an explicit choice the SDK honours OTEL_TRACES_SAMPLER.
	if sampler := pipe.sampler(); sampler != nil {
		tpOpts = append(tpOpts, sdktrace.WithSampler(sampler))
	}

	tp := sdktrace.NewTracerProvider(tpOpts...)
	pipe.closers = append(pipe.closers, tp.Shutdown)

	return tp, nil
}

// sampler returns nil when neither --verbose nor a sample ratio was set.
func (pipe *pipeline) sampler() sdktrace.Sampler {
	switch {
	case pipe.cfg.DebugTrace:
		return sdktrace.AlwaysSample()
	case pipe.cfg.SampleRatio > 0 && pipe.cfg.SampleRatio < 1:
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(pipe.cfg.SampleRatio))
	case pipe.cfg.SampleRatio >= 1:
		return sdktrace.ParentBased(sdktrace.AlwaysSample())
	default:
		return nil
	}
}

func (pipe *pipeline) metrics(ctx context.Context) (metric.MeterProvider, error) {
	if pipe.cfg.OTLPEndpoint == "" && pipe.cfg.MetricsFile == "" {
		return noopmetric.NewMeterProvider(), nil
	}

	mpOpts := []sdkmetric.Option{sdkmetric.WithResource(pipe.res)}

	if pipe.cfg.OTLPEndpoint != "" {
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(pipe.cfg.OTLPEndpoint)}
		if pipe.cfg.OTLPInsecure {
			opts = append(opts, otlpmetricgrpc.WithInsecure())
		}

		if len(pipe.cfg.OTLPHeaders) > 0 {
			opts = append(opts, otlpmetricgrpc.WithHeaders(pipe.cfg.OTLPHeaders))
		}

		exporter, err := otlpmetricgrpc.New(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("create metric exporter: %w", err)
		}

		mpOpts = append(mpOpts, sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter)))
	}

	var textfile *Textfile

	if pipe.cfg.MetricsFile != "" {
		var err error

		textfile, err = NewTextfile(pipe.cfg.MetricsFile)
		if err != nil {
			return nil, err
		}

		mpOpts = append(mpOpts, sdkmetric.WithReader(textfile.Reader()))
	}

	mp := sdkmetric.NewMeterProvider(mpOpts...)

	// The textfile is written before the provider shuts down its readers.
	pipe.closers = append(pipe.closers, func(ctx context.Context) error {
		var flushErr error
		if textfile != nil {
			flushErr = textfile.Flush()
		}

		return errors.Join(flushErr, mp.Shutdown(ctx))
	})

	return mp, nil
}

// shutdown runs the closers newest first under the configured deadline.
func (pipe *pipeline) shutdown(ctx context.Context) error {
	timeout := time.Duration(pipe.cfg.ShutdownTimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = defaultShutdownTimeoutSec * time.Second
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var errs []error

	for _, closer := range slices.Backward(pipe.closers) {
		errs = append(errs, closer(ctx))
	}

	pipe.closers = nil

	return errors.Join(errs...)
}

// newLogger writes to stderr unless LogOutput is set: stdout carries
// command output and the MCP and LSP protocols.
func newLogger(cfg Config) *slog.Logger {
	var out io.Writer = os.Stderr
	if cfg.LogOutput != nil {
		out = cfg.LogOutput
	}

	opts := &slog.HandlerOptions{Level: cfg.LogLevel}

	var inner slog.Handler = slog.NewTextHandler(out, opts)
	if cfg.LogJSON {
		inner = slog.NewJSONHandler(out, opts)
	}

	return slog.New(NewTracingHandler(inner, cfg.ServiceName, cfg.Environment, cfg.Mode))
}

// ParseOTLPHeaders parses OTEL_EXPORTER_OTLP_HEADERS syntax:
// comma-separated key=value pairs with URL-encoded values. Malformed pairs
// are skipped; nil means no usable header.
func ParseOTLPHeaders(raw string) map[string]string {
	var result map[string]string

	for pair := range strings.SplitSeq(raw, ",") {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)

		if !ok || key == "" {
			continue
		}

		decoded, err := url.PathUnescape(strings.TrimSpace(value))
		if err != nil {
			continue
		}

		if result == nil {
			result = make(map[string]string)
		}

		result[key] = decoded
	}

	return result
}
