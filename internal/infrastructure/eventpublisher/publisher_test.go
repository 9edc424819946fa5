package eventpublisher

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/peerpay/internal/domain"
	"github.com/iho/peerpay/internal/usecase/mocks"
)

type capturingPublisher struct {
	mu        sync.Mutex
	published []*domain.OutboxEvent
	failIDs   map[string]bool
}

func (p *capturingPublisher) Publish(ctx context.Context, event *domain.OutboxEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failIDs[event.ID] {
		return errors.New("delivery failed")
	}
	p.published = append(p.published, event)
	return nil
}

func (p *capturingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.published)
}

func seedEvents(outbox *mocks.MockOutboxRepository, ids ...string) {
	for _, id := range ids {
		_ = outbox.Create(context.Background(), nil, &domain.OutboxEvent{
			ID:        id,
			EventType: domain.EventTypePaymentMade,
			CreatedAt: time.Now(),
		})
	}
}

func TestEventPublisher_ProcessEvents(t *testing.T) {
	outbox := mocks.NewMockOutboxRepository()
	seedEvents(outbox, "ev-1", "ev-2")

	sink := &capturingPublisher{}
	ep := NewEventPublisher(Config{
		OutboxRepo: outbox,
		Publisher:  sink,
		Logger:     zerolog.Nop(),
		BatchSize:  10,
	})

	if err := ep.processEvents(context.Background()); err != nil {
		t.Fatalf("process failed: %v", err)
	}

	if sink.count() != 2 {
		t.Errorf("published = %d, want 2", sink.count())
	}

	remaining, _ := outbox.GetUnpublished(context.Background(), 10)
	if len(remaining) != 0 {
		t.Errorf("unpublished after processing = %d, want 0", len(remaining))
	}
}

func TestEventPublisher_FailedDeliveryStaysUnpublished(t *testing.T) {
	outbox := mocks.NewMockOutboxRepository()
	seedEvents(outbox, "ev-1", "ev-2")

	sink := &capturingPublisher{failIDs: map[string]bool{"ev-1": true}}
	ep := NewEventPublisher(Config{
		OutboxRepo: outbox,
		Publisher:  sink,
		Logger:     zerolog.Nop(),
		BatchSize:  10,
	})

	if err := ep.processEvents(context.Background()); err != nil {
		t.Fatalf("process failed: %v", err)
	}

	if sink.count() != 1 {
		t.Errorf("published = %d, want 1", sink.count())
	}

	remaining, _ := outbox.GetUnpublished(context.Background(), 10)
	if len(remaining) != 1 || remaining[0].ID != "ev-1" {
		t.Errorf("expected ev-1 to remain unpublished, got %v", remaining)
	}
}

func TestEventPublisher_StartStopsOnCancel(t *testing.T) {
	outbox := mocks.NewMockOutboxRepository()
	sink := &capturingPublisher{}
	ep := NewEventPublisher(Config{
		OutboxRepo: outbox,
		Publisher:  sink,
		Logger:     zerolog.Nop(),
		Interval:   time.Millisecond,
	})

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- ep.Start(ctx) }()

	seedEvents(outbox, "ev-1")
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("publisher did not stop")
	}

	if sink.count() == 0 {
		t.Error("no events delivered before shutdown")
	}
}

func TestLogPublisher_Publish(t *testing.T) {
	p := NewLogPublisher(zerolog.Nop())

	err := p.Publish(context.Background(), &domain.OutboxEvent{
		ID:        "ev-1",
		EventType: domain.EventTypeBalanceChanged,
		Payload:   map[string]any{"account_id": "acc-1", "new_balance": "300"},
	})
	if err != nil {
		t.Fatalf("publish failed: %v", err)
	}
}
