package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func fastPolicy() Policy {
	return Policy{
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
	}
}

func TestDefaultPolicy(t *testing.T) {
	p := DefaultPolicy()
	if p.MaxAttempts != 3 {
		t.Errorf("expected MaxAttempts=3, got %d", p.MaxAttempts)
	}
	if p.InitialDelay != 100*time.Millisecond {
		t.Errorf("expected InitialDelay=100ms, got %v", p.InitialDelay)
	}
	if p.MaxDelay != 5*time.Second {
		t.Errorf("expected MaxDelay=5s, got %v", p.MaxDelay)
	}
	if p.Multiplier != 2.0 {
		t.Errorf("expected Multiplier=2.0, got %f", p.Multiplier)
	}
}

func TestDoSucceedsFirstTry(t *testing.T) {
	calls := 0
	err := fastPolicy().Do(context.Background(), func() error {
		calls++
		return nil
	})
	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestDoRetriesTransient(t *testing.T) {
	calls := 0
	err := fastPolicy().Do(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("connection reset by peer")
		}
		return nil
	})
	if err != nil {
		t.Errorf("expected success after retries, got %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestDoExhaustsBudget(t *testing.T) {
	calls := 0
	wantErr := errors.New("deadlock detected")
	err := fastPolicy().Do(context.Background(), func() error {
		calls++
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Errorf("expected last error %v, got %v", wantErr, err)
	}
	if calls != 3 {
		t.Errorf("expected exactly MaxAttempts=3 calls, got %d", calls)
	}
}

func TestDoStopsOnNonTransient(t *testing.T) {
	calls := 0
	wantErr := errors.New("syntax error near SELECT")
	err := fastPolicy().Do(context.Background(), func() error {
		calls++
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Errorf("expected %v, got %v", wantErr, err)
	}
	if calls != 1 {
		t.Errorf("non-transient error must not be retried, got %d calls", calls)
	}
}

func TestDoCustomClassifier(t *testing.T) {
	p := fastPolicy()
	p.IsTransient = func(err error) bool { return err.Error() == "code 1205" }

	calls := 0
	_ = p.Do(context.Background(), func() error {
		calls++
		return errors.New("code 1205")
	})
	if calls != 3 {
		t.Errorf("custom classifier should drive retries, got %d calls", calls)
	}

	calls = 0
	_ = p.Do(context.Background(), func() error {
		calls++
		return errors.New("timeout") // transient by default, not per classifier
	})
	if calls != 1 {
		t.Errorf("custom classifier should override default, got %d calls", calls)
	}
}

func TestDoRespectsContext(t *testing.T) {
	p := fastPolicy()
	p.InitialDelay = time.Second

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	done := make(chan error, 1)
	go func() {
		done <- p.Do(ctx, func() error {
			calls++
			return errors.New("connection refused")
		})
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Do did not return after context cancellation")
	}
	if calls != 1 {
		t.Errorf("expected 1 call before cancellation, got %d", calls)
	}
}

func TestDoWithResult(t *testing.T) {
	calls := 0
	got, err := DoWithResult(context.Background(), fastPolicy(), func() (int, error) {
		calls++
		if calls < 2 {
			return 0, errors.New("i/o timeout")
		}
		return 42, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 42 {
		t.Errorf("expected 42, got %d", got)
	}
	if calls != 2 {
		t.Errorf("expected 2 calls, got %d", calls)
	}
}

func TestDoWithResultNonTransient(t *testing.T) {
	calls := 0
	_, err := DoWithResult(context.Background(), fastPolicy(), func() (string, error) {
		calls++
		return "", errors.New("permission denied")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

type declaredRetryable struct {
	retryable bool
}

func (e declaredRetryable) Error() string     { return "declared" }
func (e declaredRetryable) IsRetryable() bool { return e.retryable }

func TestDefaultIsTransient(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errors.New("connection refused"), true},
		{errors.New("Lock wait timeout exceeded"), true},
		{errors.New("transaction deadlock detected"), true},
		{errors.New("the service is busy"), true},
		{fmt.Errorf("wrap: %w", errors.New("broken pipe")), true},
		{errors.New("syntax error at or near FROM"), false},
		{errors.New("login failed for user"), false},
		{declaredRetryable{retryable: true}, true},
		{declaredRetryable{retryable: false}, false},
	}

	for _, tt := range tests {
		if got := DefaultIsTransient(tt.err); got != tt.want {
			t.Errorf("DefaultIsTransient(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}
