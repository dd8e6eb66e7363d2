package bus

import (
	"context"
	"testing"
	"time"
)

// --- Unit Tests ---

func TestValidateTopic(t *testing.T) {
	tests := []struct {
		topic   string
		wantErr bool
	}{
		{"/remotify/calc/call/add", false},
		{"/remotifyEvent/metrics", false},
		{"plain", false},
		{"", true},
		{"/remotify/calc/call/*", true},
		{"has space", true},
		{"has\nnewline", true},
	}

	for _, tt := range tests {
		err := ValidateTopic(tt.topic)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateTopic(%q) = %v, wantErr %v", tt.topic, err, tt.wantErr)
		}
	}
}

func TestValidatePattern(t *testing.T) {
	tests := []struct {
		pattern string
		wantErr bool
	}{
		{"/remotify/calc/call/*", false},
		{"prefix*", false},
		{"*", true},
		{"", true},
		{"no-wildcard", true},
		{"two*stars*", true},
		{"star*inside", true},
	}

	for _, tt := range tests {
		err := ValidatePattern(tt.pattern)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidatePattern(%q) = %v, wantErr %v", tt.pattern, err, tt.wantErr)
		}
	}
}

func TestMatchPattern(t *testing.T) {
	tests := []struct {
		pattern string
		topic   string
		want    bool
	}{
		{"/remotify/calc/call/*", "/remotify/calc/call/add", true},
		{"/remotify/calc/call/*", "/remotify/calc/call/", true},
		{"/remotify/calc/call/*", "/remotify/calc/callback/7", false},
		{"/remotify/calc/call/*", "/remotify/other/call/add", false},
		{"exact", "exact", true},
		{"exact", "exact2", false},
	}

	for _, tt := range tests {
		if got := MatchPattern(tt.pattern, tt.topic); got != tt.want {
			t.Errorf("MatchPattern(%q, %q) = %v, want %v", tt.pattern, tt.topic, got, tt.want)
		}
	}
}

func TestMemoryBus_PublishNoSubscribers(t *testing.T) {
	bus := NewMemoryBus(DefaultConfig())
	defer bus.Close()

	n, err := bus.Publish(context.Background(), "test", []byte("hello"))
	if err != nil {
		t.Errorf("Publish error: %v", err)
	}
	if n != 0 {
		t.Errorf("delivered = %d, want 0", n)
	}
}

func TestMemoryBus_PublishInvalidTopic(t *testing.T) {
	bus := NewMemoryBus(DefaultConfig())
	defer bus.Close()

	_, err := bus.Publish(context.Background(), "", []byte("hello"))
	if err != ErrInvalidTopic {
		t.Errorf("expected ErrInvalidTopic, got %v", err)
	}
}

// --- Integration Tests ---

func TestMemoryBus_Subscribe(t *testing.T) {
	ctx := context.Background()
	bus := NewMemoryBus(DefaultConfig())
	defer bus.Close()

	sub, err := bus.Subscribe(ctx, "test")
	if err != nil {
		t.Fatalf("Subscribe error: %v", err)
	}
	defer sub.Unsubscribe()

	n, err := bus.Publish(ctx, "test", []byte("hello"))
	if err != nil {
		t.Fatalf("Publish error: %v", err)
	}
	if n != 1 {
		t.Errorf("delivered = %d, want 1", n)
	}

	select {
	case msg := <-sub.Messages():
		if string(msg.Payload) != "hello" {
			t.Errorf("payload = %q, want %q", msg.Payload, "hello")
		}
		if msg.Topic != "test" {
			t.Errorf("topic = %q, want %q", msg.Topic, "test")
		}
	case <-time.After(time.Second):
		t.Error("timeout waiting for message")
	}
}

func TestMemoryBus_MultipleSubscribers(t *testing.T) {
	ctx := context.Background()
	bus := NewMemoryBus(DefaultConfig())
	defer bus.Close()

	sub1, _ := bus.Subscribe(ctx, "test")
	sub2, _ := bus.Subscribe(ctx, "test")
	defer sub1.Unsubscribe()
	defer sub2.Unsubscribe()

	n, _ := bus.Publish(ctx, "test", []byte("hello"))
	if n != 2 {
		t.Errorf("delivered = %d, want 2", n)
	}

	// Both should receive
	for i, sub := range []Subscription{sub1, sub2} {
		select {
		case msg := <-sub.Messages():
			if string(msg.Payload) != "hello" {
				t.Errorf("sub%d: payload = %q, want %q", i+1, msg.Payload, "hello")
			}
		case <-time.After(time.Second):
			t.Errorf("sub%d: timeout", i+1)
		}
	}
}

func TestMemoryBus_PSubscribe(t *testing.T) {
	ctx := context.Background()
	bus := NewMemoryBus(DefaultConfig())
	defer bus.Close()

	sub, err := bus.PSubscribe(ctx, "/remotify/calc/call/*")
	if err != nil {
		t.Fatalf("PSubscribe error: %v", err)
	}
	defer sub.Unsubscribe()

	n, _ := bus.Publish(ctx, "/remotify/calc/call/add", []byte("a"))
	if n != 1 {
		t.Errorf("delivered = %d, want 1", n)
	}
	n, _ = bus.Publish(ctx, "/remotify/other/call/add", []byte("b"))
	if n != 0 {
		t.Errorf("delivered to non-matching topic = %d, want 0", n)
	}

	select {
	case msg := <-sub.Messages():
		if msg.Topic != "/remotify/calc/call/add" {
			t.Errorf("topic = %q, want the matching one", msg.Topic)
		}
		if string(msg.Payload) != "a" {
			t.Errorf("payload = %q, want %q", msg.Payload, "a")
		}
	case <-time.After(time.Second):
		t.Error("timeout waiting for pattern message")
	}

	// The non-matching publish must not arrive
	select {
	case msg := <-sub.Messages():
		t.Errorf("unexpected message on topic %q", msg.Topic)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestMemoryBus_CountIncludesPatternSubscribers(t *testing.T) {
	ctx := context.Background()
	bus := NewMemoryBus(DefaultConfig())
	defer bus.Close()

	exact, _ := bus.Subscribe(ctx, "/remotify/calc/call/add")
	pat, _ := bus.PSubscribe(ctx, "/remotify/calc/call/*")
	defer exact.Unsubscribe()
	defer pat.Unsubscribe()

	n, _ := bus.Publish(ctx, "/remotify/calc/call/add", []byte("x"))
	if n != 2 {
		t.Errorf("delivered = %d, want 2 (exact + pattern)", n)
	}
}

func TestMemoryBus_CountDropsAfterUnsubscribe(t *testing.T) {
	ctx := context.Background()
	bus := NewMemoryBus(DefaultConfig())
	defer bus.Close()

	sub, _ := bus.Subscribe(ctx, "test")

	if n, _ := bus.Publish(ctx, "test", []byte("1")); n != 1 {
		t.Fatalf("delivered = %d, want 1", n)
	}

	sub.Unsubscribe()

	if n, _ := bus.Publish(ctx, "test", []byte("2")); n != 0 {
		t.Errorf("delivered after unsubscribe = %d, want 0", n)
	}
}

// --- Failure Tests ---

func TestMemoryBus_PublishAfterClose(t *testing.T) {
	bus := NewMemoryBus(DefaultConfig())
	bus.Close()

	_, err := bus.Publish(context.Background(), "test", []byte("hello"))
	if err != ErrClosed {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}

func TestMemoryBus_SubscribeAfterClose(t *testing.T) {
	bus := NewMemoryBus(DefaultConfig())
	bus.Close()

	if _, err := bus.Subscribe(context.Background(), "test"); err != ErrClosed {
		t.Errorf("Subscribe: expected ErrClosed, got %v", err)
	}
	if _, err := bus.PSubscribe(context.Background(), "test/*"); err != ErrClosed {
		t.Errorf("PSubscribe: expected ErrClosed, got %v", err)
	}
}

func TestMemoryBus_Unsubscribe(t *testing.T) {
	bus := NewMemoryBus(DefaultConfig())
	defer bus.Close()

	sub, _ := bus.Subscribe(context.Background(), "test")

	// Unsubscribe before any publish
	err := sub.Unsubscribe()
	if err != nil {
		t.Errorf("Unsubscribe error: %v", err)
	}

	// Channel should be closed after unsubscribe
	_, ok := <-sub.Messages()
	if ok {
		t.Error("expected channel to be closed after unsubscribe")
	}

	// A second unsubscribe is a no-op
	if err := sub.Unsubscribe(); err != nil {
		t.Errorf("second Unsubscribe error: %v", err)
	}
}

func TestMemoryBus_CloseClosesSubscriptions(t *testing.T) {
	ctx := context.Background()
	bus := NewMemoryBus(DefaultConfig())
	sub, _ := bus.Subscribe(ctx, "test")
	pat, _ := bus.PSubscribe(ctx, "test/*")

	bus.Close()

	if _, ok := <-sub.Messages(); ok {
		t.Error("expected subscription channel to be closed")
	}
	if _, ok := <-pat.Messages(); ok {
		t.Error("expected pattern channel to be closed")
	}
}

// --- Performance Tests ---

func BenchmarkMemoryBus_Publish(b *testing.B) {
	ctx := context.Background()
	bus := NewMemoryBus(DefaultConfig())
	defer bus.Close()

	sub, _ := bus.Subscribe(ctx, "bench")
	go func() {
		for range sub.Messages() {
		}
	}()

	payload := []byte("benchmark message")
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		bus.Publish(ctx, "bench", payload)
	}
}

func BenchmarkMemoryBus_PublishPattern(b *testing.B) {
	ctx := context.Background()
	bus := NewMemoryBus(DefaultConfig())
	defer bus.Close()

	sub, _ := bus.PSubscribe(ctx, "bench/*")
	go func() {
		for range sub.Messages() {
		}
	}()

	payload := []byte("benchmark message")
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		bus.Publish(ctx, "bench/topic", payload)
	}
}

// --- Security Tests ---

func TestMemoryBus_BufferFull(t *testing.T) {
	ctx := context.Background()
	bus := NewMemoryBus(Config{BufferSize: 1})
	defer bus.Close()

	sub, _ := bus.Subscribe(ctx, "test")

	// Fill buffer
	if n, _ := bus.Publish(ctx, "test", []byte("1")); n != 1 {
		t.Errorf("first publish delivered = %d, want 1", n)
	}
	// Dropped, and not counted as delivered
	if n, _ := bus.Publish(ctx, "test", []byte("2")); n != 0 {
		t.Errorf("second publish delivered = %d, want 0", n)
	}

	select {
	case msg := <-sub.Messages():
		if string(msg.Payload) != "1" {
			t.Errorf("expected first message, got %q", msg.Payload)
		}
	default:
		t.Error("expected at least one message")
	}

	// Should not block
	select {
	case <-sub.Messages():
		t.Error("unexpected second message")
	default:
		// Expected - second was dropped
	}
}
