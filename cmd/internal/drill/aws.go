package drill

import (
	"context"
	"time"

	"github.com/aws-observability/aws-otel-go/exporters/xrayudp"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/basewarphq/bwdr/cmd/internal/drenv"
	"github.com/cockroachdb/errors"
	"go.opentelemetry.io/contrib/instrumentation/github.com/aws/aws-sdk-go-v2/otelaws"
	"go.opentelemetry.io/contrib/propagators/aws/xray"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const awsConfigTimeout = 10 * time.Second

// Clients are the DynamoDB clients of both regions.
type Clients struct {
	Primary   *dynamodb.Client
	Secondary *dynamodb.Client
}

// NewTracerProvider returns a provider for the given exporter and a shutdown function
// that flushes pending spans.
func NewTracerProvider(ctx context.Context, exporter string) (trace.TracerProvider, func(context.Context) error, error) {
	var exp sdktrace.SpanExporter
	var err error
	switch exporter {
	case drenv.TraceNone, "":
		return noop.NewTracerProvider(), func(context.Context) error { return nil }, nil
	case drenv.TraceStdout:
		exp, err = stdouttrace.New(stdouttrace.WithPrettyPrint())
	case drenv.TraceXrayUDP:
		exp, err = xrayudp.NewSpanExporter(ctx)
	default:
		return nil, nil, errors.Newf("unsupported trace exporter %q", exporter)
	}
	if err != nil {
		return nil, nil, errors.Wrapf(err, "creating %s exporter", exporter)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSpanProcessor(sdktrace.NewSimpleSpanProcessor(exp)),
		sdktrace.WithResource(resource.NewSchemaless(attribute.String("service.name", "drctl"))),
		sdktrace.WithIDGenerator(xray.NewIDGenerator()),
	)
	return tp, tp.Shutdown, nil
}

// NewClients loads the shared AWS configuration once and derives one instrumented
// client per region.
func NewClients(
	ctx context.Context, profile, primaryRegion, secondaryRegion string, tp trace.TracerProvider,
) (*Clients, error) {
	ctx, cancel := context.WithTimeout(ctx, awsConfigTimeout)
	defer cancel()

	var opts []func(*awsconfig.LoadOptions) error
	if profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(profile))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "loading AWS config")
	}
	otelaws.AppendMiddlewares(&cfg.APIOptions,
		otelaws.WithTracerProvider(tp),
		otelaws.WithTextMapPropagator(xray.Propagator{}),
	)

	return &Clients{
		Primary:   dynamodb.NewFromConfig(inRegion(cfg, primaryRegion)),
		Secondary: dynamodb.NewFromConfig(inRegion(cfg, secondaryRegion)),
	}, nil
}

func inRegion(cfg aws.Config, region string) aws.Config {
	regional := cfg.Copy()
	regional.Region = region
	return regional
}
