package concurrency

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRetrySucceedsEventually(t *testing.T) {
	attempts := 0
	err := Retry(context.Background(), RetryOptions{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond}, func(attempt int) error {
		attempts++
		if attempt < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected eventual success, got %v", err)
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
}

func TestRetryExhaustsAttempts(t *testing.T) {
	attempts := 0
	wantErr := errors.New("permanent")
	err := Retry(context.Background(), RetryOptions{MaxAttempts: 2, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond}, func(attempt int) error {
		attempts++
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Errorf("expected last error returned, got %v", err)
	}
	if attempts != 2 {
		t.Errorf("expected 2 attempts, got %d", attempts)
	}
}

func TestRetryRespectsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Retry(ctx, RetryOptions{MaxAttempts: 5, InitialDelay: time.Millisecond}, func(attempt int) error {
		t.Fatal("fn should not be called on an already-cancelled context")
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestChunk(t *testing.T) {
	items := []int{1, 2, 3, 4, 5, 6, 7}
	chunks := Chunk(items, 3)
	want := [][]int{{1, 2, 3}, {4, 5, 6}, {7}}

	if len(chunks) != len(want) {
		t.Fatalf("got %d chunks, want %d", len(chunks), len(want))
	}
	for i := range want {
		if len(chunks[i]) != len(want[i]) {
			t.Errorf("chunk %d: got len %d, want %d", i, len(chunks[i]), len(want[i]))
		}
	}
}

func TestChunkNonPositiveSize(t *testing.T) {
	items := []int{1, 2, 3}
	chunks := Chunk(items, 0)
	if len(chunks) != 1 || len(chunks[0]) != 3 {
		t.Errorf("expected single chunk with all items, got %+v", chunks)
	}
}

func TestChunkEmpty(t *testing.T) {
	if chunks := Chunk([]int{}, 2); chunks != nil {
		t.Errorf("expected nil for empty input, got %+v", chunks)
	}
}

func TestNewPoolLimitsConcurrency(t *testing.T) {
	g, _ := NewPool(context.Background(), 2)

	var active, maxActive int32
	var mu = make(chan struct{}, 1)
	mu <- struct{}{}

	for i := 0; i < 10; i++ {
		g.Go(func() error {
			<-mu
			active++
			if active > maxActive {
				maxActive = active
			}
			mu <- struct{}{}

			time.Sleep(time.Millisecond)

			<-mu
			active--
			mu <- struct{}{}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if maxActive > 2 {
		t.Errorf("expected at most 2 concurrent goroutines, observed %d", maxActive)
	}
}
