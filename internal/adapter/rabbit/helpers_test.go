package rabbit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

func TestRetry_StopsOnSuccess(t *testing.T) {
	calls := 0
	err := retry(context.Background(), 5, time.Millisecond, func() error {
		calls++
		if calls < 3 {
			return amqp091.ErrClosed
		}
		return nil
	})
	if err != nil || calls != 3 {
		t.Fatalf("err = %v, calls = %d", err, calls)
	}
}

func TestRetry_GivesUpOnUnrecoverable(t *testing.T) {
	calls := 0
	boom := errors.New("bad payload")
	err := retry(context.Background(), 5, time.Millisecond, func() error {
		calls++
		return boom
	})
	if !errors.Is(err, boom) || calls != 1 {
		t.Fatalf("err = %v, calls = %d", err, calls)
	}
}

func TestRetry_Exhausts(t *testing.T) {
	calls := 0
	err := retry(context.Background(), 3, time.Millisecond, func() error {
		calls++
		return amqp091.ErrClosed
	})
	if !errors.Is(err, amqp091.ErrClosed) || calls != 3 {
		t.Fatalf("err = %v, calls = %d", err, calls)
	}
}

func TestIsRecoverableError(t *testing.T) {
	if isRecoverableError(context.Canceled) {
		t.Fatalf("cancellation is final")
	}
	if !isRecoverableError(&amqp091.Error{Code: amqp091.ConnectionForced}) {
		t.Fatalf("forced close should be retried")
	}
}
