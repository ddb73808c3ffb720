package rabbit

import (
	"context"
	"errors"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

const (
	RideExchange   = "ride_topic"
	RideBindingKey = "ride.#"

	feedDriver = "rabbitmq"
)

// declareRideExchange declares the durable topic exchange ride changes go through.
func declareRideExchange(ch *amqp091.Channel) error {
	return ch.ExchangeDeclare(RideExchange, "topic", true, false, false, false, nil)
}

// isRecoverableError returns true if the provided error is worth another attempt
func isRecoverableError(err error) bool {
	if oneOf(err, context.Canceled, context.DeadlineExceeded) {
		return false
	}
	var amqpErr *amqp091.Error
	if errors.As(err, &amqpErr) {
		return amqpErr.Recover || amqpErr.Code == amqp091.ChannelError || amqpErr.Code == amqp091.ConnectionForced
	}
	return errors.Is(err, amqp091.ErrClosed)
}

func oneOf(err error, targets ...error) bool {
	for _, t := range targets {
		if errors.Is(err, t) {
			return true
		}
	}
	return false
}

// retry calls fn up to n times, sleeping between attempts, while the error is recoverable.
func retry(ctx context.Context, n int, sleep time.Duration, fn func() error) error {
	var err error
	for i := range n {
		if err = fn(); err == nil || !isRecoverableError(err) {
			return err
		}
		if i == n-1 {
			break
		}
		select {
		case <-ctx.Done():
			return errors.Join(err, ctx.Err())
		case <-time.After(sleep):
		}
	}
	return err
}
