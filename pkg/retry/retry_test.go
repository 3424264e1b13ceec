package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func quickConfig() *Config {
	return &Config{
		MaxRetries:   3,
		InitialDelay: time.Millisecond,
		MaxDelay:     10 * time.Millisecond,
		Multiplier:   2.0,
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.MaxRetries != 3 {
		t.Errorf("expected MaxRetries=3, got %d", cfg.MaxRetries)
	}
	if cfg.InitialDelay != 100*time.Millisecond {
		t.Errorf("expected InitialDelay=100ms, got %v", cfg.InitialDelay)
	}
	if cfg.MaxDelay != 5*time.Second {
		t.Errorf("expected MaxDelay=5s, got %v", cfg.MaxDelay)
	}
}

func TestDo_Success(t *testing.T) {
	callCount := 0
	err := Do(context.Background(), quickConfig(), func() error {
		callCount++
		return nil
	})
	if err != nil {
		t.Errorf("expected success, got %v", err)
	}
	if callCount != 1 {
		t.Errorf("expected 1 call, got %d", callCount)
	}
}

func TestDo_SuccessAfterRetries(t *testing.T) {
	callCount := 0
	err := Do(context.Background(), quickConfig(), func() error {
		callCount++
		if callCount < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Errorf("expected success after retries, got %v", err)
	}
	if callCount != 3 {
		t.Errorf("expected 3 calls, got %d", callCount)
	}
}

func TestDo_RetriesExhausted(t *testing.T) {
	wantErr := errors.New("still failing")
	callCount := 0
	err := Do(context.Background(), quickConfig(), func() error {
		callCount++
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Errorf("expected last error after exhaustion, got %v", err)
	}
	if callCount != 4 {
		t.Errorf("expected initial attempt + 3 retries, got %d calls", callCount)
	}
}

func TestDo_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := &Config{
		MaxRetries:   5,
		InitialDelay: time.Hour, // would hang without cancellation
		MaxDelay:     time.Hour,
		Multiplier:   2.0,
	}

	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := Do(ctx, cfg, func() error {
		return errors.New("transient")
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestDo_NilConfigUsesDefaults(t *testing.T) {
	err := Do(context.Background(), nil, func() error { return nil })
	if err != nil {
		t.Errorf("expected success with nil config, got %v", err)
	}
}

func TestDoIfRetryable_PermanentErrorFailsFast(t *testing.T) {
	wantErr := errors.New("permission denied")
	callCount := 0
	err := DoIfRetryable(context.Background(), quickConfig(), func() error {
		callCount++
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Errorf("expected the permanent error, got %v", err)
	}
	if callCount != 1 {
		t.Errorf("expected no retries on permanent error, got %d calls", callCount)
	}
}

func TestDoIfRetryable_TransientErrorRetries(t *testing.T) {
	callCount := 0
	err := DoIfRetryable(context.Background(), quickConfig(), func() error {
		callCount++
		if callCount < 2 {
			return errors.New("connection refused")
		}
		return nil
	})
	if err != nil {
		t.Errorf("expected success, got %v", err)
	}
	if callCount != 2 {
		t.Errorf("expected 2 calls, got %d", callCount)
	}
}

type declaredRetryable struct {
	retryable bool
}

func (e declaredRetryable) Error() string     { return "declared" }
func (e declaredRetryable) IsRetryable() bool { return e.retryable }

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"connection refused", errors.New("dial tcp: connection refused"), true},
		{"timeout", errors.New("i/o timeout"), true},
		{"rate limited", errors.New("HTTP 429 too many requests"), true},
		{"server error", errors.New("googleapi: Error 503: backend error"), true},
		{"auth failure", errors.New("googleapi: Error 401: unauthorized"), false},
		{"bad sql", errors.New("syntax error at or near SELECT"), false},
		{"declares retryable", declaredRetryable{retryable: true}, true},
		{"declares permanent", declaredRetryable{retryable: false}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
