package wrap

import (
	"context"
	"errors"
	"testing"
)

func TestError_CarriesLogCtx(t *testing.T) {
	base := errors.New("boom")

	ctx := WithRideID(WithAction(context.Background(), "accept_ride"), "ride-1")
	err := Error(ctx, base)

	if !errors.Is(err, base) {
		t.Fatalf("wrapped error must unwrap to the original")
	}

	got := FromContext(ErrorCtx(context.Background(), err))
	if got.Action != "accept_ride" || got.RideID != "ride-1" {
		t.Fatalf("unexpected log ctx restored: %+v", got)
	}
}

func TestError_Nil(t *testing.T) {
	if Error(context.Background(), nil) != nil {
		t.Fatalf("wrapping nil must stay nil")
	}
}

func TestWithLogCtx_Merges(t *testing.T) {
	ctx := WithUser(context.Background(), "u1", "driver")
	ctx = WithLogCtx(ctx, LogCtx{Action: "bootstrap"})

	lc := FromContext(ctx)
	if lc.UserID != "u1" || lc.Role != "driver" || lc.Action != "bootstrap" {
		t.Fatalf("unexpected merge result: %+v", lc)
	}
}

func TestErrorCtx_PlainError(t *testing.T) {
	ctx := WithAction(context.Background(), "outer")
	if got := FromContext(ErrorCtx(ctx, errors.New("plain"))); got.Action != "outer" {
		t.Fatalf("plain errors must leave the context untouched, got %+v", got)
	}
}
