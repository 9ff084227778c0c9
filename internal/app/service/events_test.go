package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sifan077/paylink/internal/app/model"
)

type publishedMsg struct {
	subject string
	data    []byte
	opts    int
}

// fakeJetStream overrides Publish; any other call panics on the nil embedded interface.
type fakeJetStream struct {
	nats.JetStreamContext
	published []publishedMsg
	err       error
}

func (f *fakeJetStream) Publish(subj string, data []byte, opts ...nats.PubOpt) (*nats.PubAck, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.published = append(f.published, publishedMsg{subject: subj, data: data, opts: len(opts)})
	return &nats.PubAck{Stream: model.LinkStreamName}, nil
}

type mockLinkEventRepository struct {
	createFn func(ctx context.Context, event *model.LinkEvent) error
	deleteFn func(ctx context.Context, before time.Time) (int64, error)
	created  []model.LinkEvent
}

func (m *mockLinkEventRepository) Create(ctx context.Context, event *model.LinkEvent) error {
	if m.createFn != nil {
		if err := m.createFn(ctx, event); err != nil {
			return err
		}
	}
	m.created = append(m.created, *event)
	return nil
}

func (m *mockLinkEventRepository) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, before)
	}
	return 0, nil
}

func TestEventPublisher_Publish(t *testing.T) {
	js := &fakeJetStream{}
	fixed := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	pub := NewEventPublisher(js)
	pub.now = func() time.Time { return fixed }

	err := pub.Publish(model.LinkEvent{
		Type:      model.LinkEventVisited,
		LinkID:    "abc",
		Client:    model.ClientIOS.String(),
		UserAgent: strings.Repeat("x", model.MaxEventUserAgentLen+50),
	})
	if err != nil {
		t.Fatalf("Publish error: %v", err)
	}

	if len(js.published) != 1 {
		t.Fatalf("expected one message, got %d", len(js.published))
	}
	msg := js.published[0]
	if msg.subject != "links.visited" {
		t.Fatalf("subject = %q", msg.subject)
	}

	var event model.LinkEvent
	if err := json.Unmarshal(msg.data, &event); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(event.ID) != 26 {
		t.Fatal("expected generated event id")
	}
	if !event.OccurredAt.Equal(fixed) {
		t.Fatalf("occurred_at = %s, want %s", event.OccurredAt, fixed)
	}
	if len(event.UserAgent) != model.MaxEventUserAgentLen {
		t.Fatalf("user agent length = %d, want truncated to %d", len(event.UserAgent), model.MaxEventUserAgentLen)
	}
}

func TestEventPublisher_PublishBoundedByTimeout(t *testing.T) {
	js := &fakeJetStream{}
	pub := NewEventPublisher(js)
	if pub.timeout != DefaultEventPublishTimeout {
		t.Fatalf("timeout = %s, want %s", pub.timeout, DefaultEventPublishTimeout)
	}

	if err := pub.Publish(model.LinkEvent{Type: model.LinkEventIssued}); err != nil {
		t.Fatalf("Publish error: %v", err)
	}
	if got := js.published[0].opts; got != 2 {
		t.Fatalf("publish options = %d, want dedup id and context deadline", got)
	}
}

func TestSleepCtx(t *testing.T) {
	if !sleepCtx(context.Background(), time.Millisecond) {
		t.Fatal("expected sleep to complete")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	if sleepCtx(ctx, time.Hour) {
		t.Fatal("expected cancelled context to stop the wait")
	}
	if time.Since(start) > time.Second {
		t.Fatal("cancelled wait did not return promptly")
	}
}

func TestEventPublisher_PublishError(t *testing.T) {
	js := &fakeJetStream{err: nats.ErrNoResponders}
	pub := NewEventPublisher(js)

	if err := pub.Publish(model.LinkEvent{Type: model.LinkEventIssued}); !errors.Is(err, nats.ErrNoResponders) {
		t.Fatalf("expected ErrNoResponders, got %v", err)
	}
}

func TestEventConsumer_Handle(t *testing.T) {
	repo := &mockLinkEventRepository{}
	consumer := NewEventConsumer(nil, nil, repo)

	data, _ := json.Marshal(model.LinkEvent{
		ID:         "evt-1",
		Type:       model.LinkEventIssued,
		LinkID:     "abc",
		OSType:     "ios",
		OccurredAt: time.Now().UTC(),
	})

	if err := consumer.handle(context.Background(), data); err != nil {
		t.Fatalf("handle error: %v", err)
	}
	if len(repo.created) != 1 || repo.created[0].ID != "evt-1" || repo.created[0].LinkID != "abc" {
		t.Fatalf("unexpected stored events: %+v", repo.created)
	}
}

func TestEventConsumer_HandlePoison(t *testing.T) {
	repo := &mockLinkEventRepository{}
	consumer := NewEventConsumer(nil, nil, repo)

	for _, data := range [][]byte{[]byte("{not json"), []byte(`{"type":"issued"}`)} {
		if err := consumer.handle(context.Background(), data); !errors.Is(err, errPoisonEvent) {
			t.Fatalf("handle(%s) error = %v, want errPoisonEvent", data, err)
		}
	}
	if len(repo.created) != 0 {
		t.Fatal("poison events must not be stored")
	}
}

func TestEventConsumer_HandleRepoError(t *testing.T) {
	repoErr := errors.New("db down")
	repo := &mockLinkEventRepository{
		createFn: func(ctx context.Context, event *model.LinkEvent) error { return repoErr },
	}
	consumer := NewEventConsumer(nil, nil, repo)

	data, _ := json.Marshal(model.LinkEvent{ID: "evt-1", Type: model.LinkEventVisited})
	if err := consumer.handle(context.Background(), data); !errors.Is(err, repoErr) {
		t.Fatalf("expected repo error to surface for redelivery, got %v", err)
	}
}

func TestEventRetentionSweeper_Sweep(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	var gotBefore time.Time
	repo := &mockLinkEventRepository{
		deleteFn: func(ctx context.Context, before time.Time) (int64, error) {
			gotBefore = before
			return 7, nil
		},
	}

	sweeper := NewEventRetentionSweeper(nil, repo, 24*time.Hour, time.Minute)
	sweeper.now = func() time.Time { return now }

	if affected := sweeper.sweep(context.Background()); affected != 7 {
		t.Fatalf("sweep affected = %d, want 7", affected)
	}
	if want := now.Add(-24 * time.Hour); !gotBefore.Equal(want) {
		t.Fatalf("cutoff = %s, want %s", gotBefore, want)
	}
}

func TestEventRetentionSweeper_SweepError(t *testing.T) {
	repo := &mockLinkEventRepository{
		deleteFn: func(ctx context.Context, before time.Time) (int64, error) {
			return 0, errors.New("db down")
		},
	}
	sweeper := NewEventRetentionSweeper(nil, repo, time.Hour, time.Minute)

	if affected := sweeper.sweep(context.Background()); affected != 0 {
		t.Fatalf("sweep affected = %d, want 0 on error", affected)
	}
}

func TestEventRetentionSweeper_StartStop(t *testing.T) {
	sweeper := NewEventRetentionSweeper(nil, &mockLinkEventRepository{}, time.Hour, time.Hour)
	sweeper.Start()
	sweeper.Stop()
}
