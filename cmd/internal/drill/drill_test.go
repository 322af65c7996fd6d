package drill_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/basewarphq/bwdr/bwcdk/bwcdkdynamo"
	"github.com/basewarphq/bwdr/cmd/internal/drill"
	"github.com/cockroachdb/errors"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// fakeTable is an in-memory table. Items put into the source become visible to the
// replica after the given number of reads.
type fakeTable struct {
	mu        sync.Mutex
	items     map[string]map[string]types.AttributeValue
	visibleAt int
	reads     int
	putErr    error
	getErr    error
	deleted   []string
}

func newFakeTable() *fakeTable {
	return &fakeTable{items: map[string]map[string]types.AttributeValue{}}
}

func keyOf(m map[string]types.AttributeValue) string {
	pk, _ := m["pk"].(*types.AttributeValueMemberS)
	if pk == nil {
		return ""
	}
	return pk.Value
}

func (f *fakeTable) PutItem(
	_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options),
) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.putErr != nil {
		return nil, f.putErr
	}
	f.items[keyOf(in.Item)] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeTable) GetItem(
	_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options),
) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	f.reads++
	if f.reads < f.visibleAt {
		return &dynamodb.GetItemOutput{}, nil
	}
	return &dynamodb.GetItemOutput{Item: f.items[keyOf(in.Key)]}, nil
}

func (f *fakeTable) DeleteItem(
	_ context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options),
) (*dynamodb.DeleteItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := keyOf(in.Key)
	delete(f.items, k)
	f.deleted = append(f.deleted, k)
	return &dynamodb.DeleteItemOutput{}, nil
}

// sharedReplica reads from the primary's items, simulating replication.
type sharedReplica struct {
	*fakeTable
	source *fakeTable
}

func (r *sharedReplica) GetItem(
	ctx context.Context, in *dynamodb.GetItemInput, opts ...func(*dynamodb.Options),
) (*dynamodb.GetItemOutput, error) {
	r.mu.Lock()
	if r.getErr != nil {
		r.mu.Unlock()
		return nil, r.getErr
	}
	r.reads++
	reads := r.reads
	r.mu.Unlock()
	if reads < r.visibleAt {
		return &dynamodb.GetItemOutput{}, nil
	}
	return r.source.GetItem(ctx, in, opts...)
}

func TestRun_Replicated(t *testing.T) {
	t.Parallel()

	primary := newFakeTable()
	replica := &sharedReplica{fakeTable: newFakeTable(), source: primary}
	replica.visibleAt = 3

	res, err := drill.Run(context.Background(), primary, replica, drill.Options{
		Table:        "shop-sessions-table",
		Timeout:      5 * time.Second,
		PollInterval: time.Millisecond,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Polls != 3 {
		t.Errorf("Polls = %d, want 3", res.Polls)
	}
	if res.Lag() < 0 {
		t.Errorf("Lag = %s, want >= 0", res.Lag())
	}
	if len(primary.deleted) != 1 || primary.deleted[0] != "drill#"+res.MarkerID {
		t.Errorf("deleted = %v, want marker %s", primary.deleted, res.MarkerID)
	}
}

func TestRun_ItemCarriesTableExpiry(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	primary := newFakeTable()
	var seen map[string]types.AttributeValue
	replica := &inspectingReplica{source: primary, onItem: func(item map[string]types.AttributeValue) {
		seen = item
	}}

	_, err := drill.Run(context.Background(), primary, replica, drill.Options{
		Table:        "t",
		PollInterval: time.Millisecond,
		Now:          func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	exp, ok := seen[bwcdkdynamo.TimeToLiveAttribute].(*types.AttributeValueMemberN)
	if !ok {
		t.Fatalf("%s missing or not a number: %#v", bwcdkdynamo.TimeToLiveAttribute, seen)
	}
	if want := "1767229200"; exp.Value != want {
		t.Errorf("%s = %s, want %s", bwcdkdynamo.TimeToLiveAttribute, exp.Value, want)
	}
	sk, _ := seen["sk"].(*types.AttributeValueMemberS)
	if sk == nil || sk.Value != "drill-marker" {
		t.Errorf("sk = %#v, want drill-marker", seen["sk"])
	}
}

type inspectingReplica struct {
	fakeTable
	source *fakeTable
	onItem func(map[string]types.AttributeValue)
}

func (r *inspectingReplica) GetItem(
	ctx context.Context, in *dynamodb.GetItemInput, opts ...func(*dynamodb.Options),
) (*dynamodb.GetItemOutput, error) {
	out, err := r.source.GetItem(ctx, in, opts...)
	if err == nil && len(out.Item) > 0 {
		r.onItem(out.Item)
	}
	return out, err
}

func TestRun_Timeout(t *testing.T) {
	t.Parallel()

	primary := newFakeTable()
	replica := newFakeTable()

	_, err := drill.Run(context.Background(), primary, replica, drill.Options{
		Table:        "t",
		Timeout:      20 * time.Millisecond,
		PollInterval: 5 * time.Millisecond,
	})
	if !errors.Is(err, drill.ErrNotReplicated) {
		t.Fatalf("err = %v, want ErrNotReplicated", err)
	}
	if len(primary.deleted) != 1 {
		t.Errorf("marker not cleaned up after timeout: %v", primary.deleted)
	}
}

func TestRun_PutError(t *testing.T) {
	t.Parallel()

	primary := newFakeTable()
	primary.putErr = errors.New("access denied")

	_, err := drill.Run(context.Background(), primary, newFakeTable(), drill.Options{Table: "t"})
	if err == nil {
		t.Fatal("expected error")
	}
	if len(primary.deleted) != 0 {
		t.Errorf("nothing should be deleted when the put fails, got %v", primary.deleted)
	}
}

func TestRun_ReplicaReadError(t *testing.T) {
	t.Parallel()

	replica := newFakeTable()
	replica.getErr = errors.New("throttled")

	_, err := drill.Run(context.Background(), newFakeTable(), replica, drill.Options{
		Table:        "t",
		PollInterval: time.Millisecond,
	})
	if err == nil || errors.Is(err, drill.ErrNotReplicated) {
		t.Fatalf("err = %v, want read error", err)
	}
}

func TestRun_RequiresTable(t *testing.T) {
	t.Parallel()

	if _, err := drill.Run(context.Background(), newFakeTable(), newFakeTable(), drill.Options{}); err == nil {
		t.Fatal("expected error for empty table name")
	}
}

func TestNewTracerProvider(t *testing.T) {
	t.Parallel()

	for _, exporter := range []string{"none", "stdout"} {
		tp, shutdown, err := drill.NewTracerProvider(context.Background(), exporter)
		if err != nil {
			t.Fatalf("%s: %v", exporter, err)
		}
		if tp == nil {
			t.Fatalf("%s: nil provider", exporter)
		}
		if err := shutdown(context.Background()); err != nil {
			t.Errorf("%s: shutdown: %v", exporter, err)
		}
	}

	if _, _, err := drill.NewTracerProvider(context.Background(), "jaeger"); err == nil {
		t.Error("expected error for unknown exporter")
	}
}

func TestRun_LogsCarryTraceIDs(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.DebugLevel)
	tp := sdktrace.NewTracerProvider()
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	primary := newFakeTable()
	replica := &sharedReplica{fakeTable: newFakeTable(), source: primary}

	_, err := drill.Run(context.Background(), primary, replica, drill.Options{
		Table:        "t",
		PollInterval: time.Millisecond,
		Logger:       zap.New(core),
		Tracer:       tp.Tracer("test"),
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	entries := logs.FilterMessage("marker replicated").All()
	if len(entries) != 1 {
		t.Fatalf("expected one replicated log, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if id, _ := fields["trace_id"].(string); len(id) != 32 {
		t.Errorf("trace_id = %v, want 32 hex chars", fields["trace_id"])
	}
}
