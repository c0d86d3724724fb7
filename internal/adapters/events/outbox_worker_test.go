package events

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/AlesonDEV/Api.FreeCity.Services/internal/ports"
	"github.com/google/uuid"
)

type fakeOutbox struct {
	mu        sync.Mutex
	records   []ports.OutboxRecord
	published map[uuid.UUID]time.Time
	failed    map[uuid.UUID]string
}

func newFakeOutbox(records ...ports.OutboxRecord) *fakeOutbox {
	return &fakeOutbox{records: records, published: map[uuid.UUID]time.Time{}, failed: map[uuid.UUID]string{}}
}

func (f *fakeOutbox) FetchUnpublished(_ context.Context, limit int) ([]ports.OutboxRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]ports.OutboxRecord, 0, limit)
	for _, rec := range f.records {
		if _, done := f.published[rec.OutboxID]; done {
			continue
		}
		out = append(out, rec)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeOutbox) MarkPublished(_ context.Context, id uuid.UUID, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published[id] = at
	return nil
}

func (f *fakeOutbox) MarkFailed(_ context.Context, id uuid.UUID, errMsg string, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failed[id] = errMsg
	return nil
}

type fakePublisher struct {
	fail  map[string]bool
	calls []string
}

func (p *fakePublisher) Publish(_ context.Context, eventType string, _ []byte, partitionKey string) error {
	p.calls = append(p.calls, eventType+"/"+partitionKey)
	if p.fail[partitionKey] {
		return errors.New("broker unavailable")
	}
	return nil
}

func TestOutboxWorkerMarksPublishedAndFailed(t *testing.T) {
	t.Parallel()

	ok := ports.OutboxRecord{OutboxID: uuid.New(), EventType: "gtfs.feed_updated", PartitionKey: "good", Payload: []byte(`{}`)}
	bad := ports.OutboxRecord{OutboxID: uuid.New(), EventType: "gtfs.feed_updated", PartitionKey: "bad", Payload: []byte(`{}`)}
	outbox := newFakeOutbox(ok, bad)
	publisher := &fakePublisher{fail: map[string]bool{"bad": true}}
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))

	worker := NewOutboxWorker(logger, outbox, publisher, time.Second, 10)
	relayed, err := worker.relayBatch(context.Background())
	if err != nil {
		t.Fatalf("relay batch: %v", err)
	}
	if relayed != 1 {
		t.Fatalf("expected 1 relayed event, got %d", relayed)
	}

	if _, done := outbox.published[ok.OutboxID]; !done {
		t.Fatalf("expected %s to be published", ok.OutboxID)
	}
	if _, done := outbox.published[bad.OutboxID]; done {
		t.Fatalf("expected %s to stay unpublished", bad.OutboxID)
	}
	if outbox.failed[bad.OutboxID] != "broker unavailable" {
		t.Fatalf("expected failure recorded, got %q", outbox.failed[bad.OutboxID])
	}
	if len(publisher.calls) != 2 {
		t.Fatalf("expected 2 publish calls, got %d", len(publisher.calls))
	}
}

func TestOutboxWorkerStopsBatchAtFirstFailure(t *testing.T) {
	t.Parallel()

	older := ports.OutboxRecord{OutboxID: uuid.New(), EventType: "gtfs.feed_updated", PartitionKey: "older", Payload: []byte(`{}`)}
	newer := ports.OutboxRecord{OutboxID: uuid.New(), EventType: "gtfs.feed_updated", PartitionKey: "newer", Payload: []byte(`{}`)}
	outbox := newFakeOutbox(older, newer)
	publisher := &fakePublisher{fail: map[string]bool{"older": true}}
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))

	worker := NewOutboxWorker(logger, outbox, publisher, time.Second, 10)
	relayed, err := worker.relayBatch(context.Background())
	if err != nil {
		t.Fatalf("relay batch: %v", err)
	}
	if relayed != 0 {
		t.Fatalf("expected nothing relayed, got %d", relayed)
	}
	if len(publisher.calls) != 1 {
		t.Fatalf("newer event must wait for older one, calls=%v", publisher.calls)
	}
	if _, done := outbox.published[newer.OutboxID]; done {
		t.Fatalf("newer event must stay pending")
	}

	delete(publisher.fail, "older")
	if relayed, err = worker.relayBatch(context.Background()); err != nil || relayed != 2 {
		t.Fatalf("expected both events relayed on retry, got %d (%v)", relayed, err)
	}
}

func TestLoggingPublisherAcceptsAnyPayload(t *testing.T) {
	t.Parallel()

	publisher := NewLoggingPublisher(slog.New(slog.NewJSONHandler(io.Discard, nil)))
	for _, payload := range [][]byte{[]byte(`{"checksum":"abc"}`), []byte("not json")} {
		if err := publisher.Publish(context.Background(), "gtfs.feed_updated", payload, "abc"); err != nil {
			t.Fatalf("publish: %v", err)
		}
	}
}

func TestOutboxWorkerStopsOnCancel(t *testing.T) {
	t.Parallel()

	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	worker := NewOutboxWorker(logger, newFakeOutbox(), &fakePublisher{}, 10*time.Millisecond, 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := worker.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context canceled, got %v", err)
	}
}
