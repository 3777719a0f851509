package apperror

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	sentinel := New(KindNotFound, "appointment not found")

	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"direct", sentinel, KindNotFound},
		{"wrapped", fmt.Errorf("load: %w", sentinel), KindNotFound},
		{"with cause", Wrap(KindTimeout, "store timed out", context.DeadlineExceeded), KindTimeout},
		{"plain error", errors.New("boom"), KindInternal},
		{"nil", nil, KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestSentinelMatching(t *testing.T) {
	errEmpty := New(KindEmptyQueue, "no patients waiting")
	wrapped := fmt.Errorf("call next: %w", errEmpty)

	if !errors.Is(wrapped, errEmpty) {
		t.Error("expected wrapped sentinel to match")
	}
	if errors.Is(wrapped, New(KindEmptyQueue, "something else")) {
		t.Error("expected different message not to match")
	}
	if errors.Is(wrapped, New(KindConflict, "no patients waiting")) {
		t.Error("expected different kind not to match")
	}
}

func TestWrapUnwrap(t *testing.T) {
	err := Wrap(KindUnavailable, "store unavailable", context.Canceled)
	if !errors.Is(err, context.Canceled) {
		t.Error("expected cause to be reachable")
	}
	if err.Error() != "store unavailable: context canceled" {
		t.Errorf("unexpected message %q", err.Error())
	}
}

func TestRetryable(t *testing.T) {
	if !Retryable(New(KindTimeout, "t")) || !Retryable(New(KindUnavailable, "u")) {
		t.Error("expected timeout and unavailable to be retryable")
	}
	if Retryable(New(KindConflict, "c")) || Retryable(New(KindIllegalTransition, "i")) {
		t.Error("expected business errors not to be retryable")
	}
}
