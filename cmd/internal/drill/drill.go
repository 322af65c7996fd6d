// Package drill verifies session replication between the two regions by writing a
// marker item to the session table in the primary region and waiting for it to show up
// in the secondary replica.
package drill

import (
	"context"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/basewarphq/bwdr/bwcdk/bwcdkdynamo"
	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
)

// ItemAPI is the part of the DynamoDB client the drill uses.
type ItemAPI interface {
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

var _ ItemAPI = (*dynamodb.Client)(nil)

// ErrNotReplicated is returned when the marker did not reach the replica in time.
var ErrNotReplicated = errors.New("marker not replicated")

// markerSortKey marks drill items so they never collide with sessions.
const markerSortKey = "drill-marker"

type Options struct {
	Table        string
	Timeout      time.Duration
	PollInterval time.Duration
	// MarkerTTL is how long the marker item lives if cleanup fails. Defaults to one hour.
	MarkerTTL time.Duration
	// TTLAttribute is the table's expiry attribute. Defaults to the attribute the
	// session table is deployed with.
	TTLAttribute string
	Logger       *zap.Logger
	Tracer       trace.Tracer
	// Now defaults to time.Now.
	Now func() time.Time
}

type Result struct {
	MarkerID  string
	WrittenAt time.Time
	SeenAt    time.Time
	Polls     int
}

// Lag is the observed replication delay. It is bounded below by the poll interval.
func (r *Result) Lag() time.Duration {
	return r.SeenAt.Sub(r.WrittenAt)
}

// Run writes a marker to primary and polls secondary until the marker appears or the
// timeout elapses. The marker is deleted from primary afterwards.
func Run(ctx context.Context, primary, secondary ItemAPI, opts Options) (*Result, error) {
	opts = withDefaults(opts)
	if opts.Table == "" {
		return nil, errors.New("drill: table name is required")
	}

	ctx, span := opts.Tracer.Start(ctx, "drill.Run", trace.WithAttributes(
		attribute.String("aws.dynamodb.table", opts.Table),
	))
	defer span.End()

	log := opts.Logger.With(traceFields(ctx)...)

	res := &Result{MarkerID: uuid.NewString()}
	key := map[string]types.AttributeValue{
		"pk": &types.AttributeValueMemberS{Value: "drill#" + res.MarkerID},
		"sk": &types.AttributeValueMemberS{Value: markerSortKey},
	}

	res.WrittenAt = opts.Now()
	item := map[string]types.AttributeValue{
		"written_at": &types.AttributeValueMemberS{Value: res.WrittenAt.UTC().Format(time.RFC3339Nano)},
		opts.TTLAttribute: &types.AttributeValueMemberN{
			Value: strconv.FormatInt(res.WrittenAt.Add(opts.MarkerTTL).Unix(), 10),
		},
	}
	for k, v := range key {
		item[k] = v
	}

	if _, err := primary.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(opts.Table),
		Item:      item,
	}); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "put marker")
		return nil, errors.Wrapf(err, "writing marker to %s", opts.Table)
	}
	log.Debug("marker written", zap.String("marker", res.MarkerID))

	defer func() {
		// The context may already be done; cleanup gets its own deadline.
		cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		if _, err := primary.DeleteItem(cleanupCtx, &dynamodb.DeleteItemInput{
			TableName: aws.String(opts.Table),
			Key:       key,
		}); err != nil {
			log.Warn("failed to delete marker, it expires on its own",
				zap.String("marker", res.MarkerID), zap.Error(err))
		}
	}()

	pollCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	ticker := time.NewTicker(opts.PollInterval)
	defer ticker.Stop()

	for {
		res.Polls++
		out, err := secondary.GetItem(pollCtx, &dynamodb.GetItemInput{
			TableName: aws.String(opts.Table),
			Key:       key,
		})
		switch {
		case err != nil && pollCtx.Err() == nil:
			span.RecordError(err)
			return nil, errors.Wrapf(err, "reading marker from replica of %s", opts.Table)
		case err == nil && len(out.Item) > 0:
			res.SeenAt = opts.Now()
			span.SetAttributes(
				attribute.Int("drill.polls", res.Polls),
				attribute.Int64("drill.lag_ms", res.Lag().Milliseconds()),
			)
			log.Debug("marker replicated", zap.String("marker", res.MarkerID), zap.Duration("lag", res.Lag()))
			return res, nil
		}

		select {
		case <-pollCtx.Done():
			span.SetStatus(codes.Error, "timeout")
			return nil, errors.Wrapf(ErrNotReplicated, "marker %s after %s (%d polls)",
				res.MarkerID, opts.Timeout, res.Polls)
		case <-ticker.C:
		}
	}
}

func withDefaults(opts Options) Options {
	if opts.Timeout <= 0 {
		opts.Timeout = 2 * time.Minute
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = time.Second
	}
	if opts.MarkerTTL <= 0 {
		opts.MarkerTTL = time.Hour
	}
	if opts.TTLAttribute == "" {
		opts.TTLAttribute = bwcdkdynamo.TimeToLiveAttribute
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Tracer == nil {
		opts.Tracer = noop.NewTracerProvider().Tracer("drill")
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return opts
}
