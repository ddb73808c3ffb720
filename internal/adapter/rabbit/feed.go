package rabbit

import (
	"context"
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"github.com/Temutjin2k/ride-hail-client/internal/adapter/memory"
	"github.com/Temutjin2k/ride-hail-client/internal/domain/models"
	"github.com/Temutjin2k/ride-hail-client/internal/domain/types"
	"github.com/Temutjin2k/ride-hail-client/internal/service/reconciler"
	"github.com/Temutjin2k/ride-hail-client/pkg/logger"
	wrap "github.com/Temutjin2k/ride-hail-client/pkg/logger/wrapper"
	"github.com/Temutjin2k/ride-hail-client/pkg/metrics"
	"github.com/Temutjin2k/ride-hail-client/pkg/rabbit"
)

// Feed is a change feed fed by the ride exchange. Run consumes one
// exclusive queue per process and fans events out to the subscribers.
type Feed struct {
	client *rabbit.RabbitMQ
	hub    *memory.Feed

	l logger.Logger
}

func NewFeed(client *rabbit.RabbitMQ, log logger.Logger) *Feed {
	return &Feed{client: client, hub: memory.NewFeed(), l: log}
}

// Subscribe registers handler. Unsubscribe is synchronous.
func (f *Feed) Subscribe(ctx context.Context, handler reconciler.EventHandler) (reconciler.Subscription, error) {
	return f.hub.Subscribe(ctx, handler)
}

// Run consumes until ctx is done, redeclaring the queue after reconnects.
func (f *Feed) Run(ctx context.Context) error {
	ctx = wrap.WithAction(ctx, "rabbitmq_consume_ride_changes")

	for {
		if ctx.Err() != nil {
			f.l.Debug(ctx, "ride change consumer stopped by context")
			return nil
		}

		msgs, ch, err := f.consume(ctx)
		if err != nil {
			f.l.Error(ctx, "consume failed", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(2 * time.Second):
			}
			continue
		}

		f.l.Info(ctx, "start consuming ride changes", "exchange", RideExchange, "binding", RideBindingKey)
		f.drain(ctx, msgs)
		_ = ch.Close()
	}
}

func (f *Feed) consume(ctx context.Context) (<-chan amqp091.Delivery, *amqp091.Channel, error) {
	ch, err := f.client.OpenChannel(ctx)
	if err != nil {
		return nil, nil, err
	}

	fail := func(step string, err error) (<-chan amqp091.Delivery, *amqp091.Channel, error) {
		_ = ch.Close()
		return nil, nil, fmt.Errorf("%s: %w", step, err)
	}

	if err := declareRideExchange(ch); err != nil {
		return fail("declare exchange", err)
	}
	// server named, gone with the connection
	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		return fail("declare queue", err)
	}
	if err := ch.QueueBind(q.Name, RideBindingKey, RideExchange, false, nil); err != nil {
		return fail("bind queue", err)
	}
	if err := ch.Qos(64, 0, false); err != nil {
		return fail("set qos", err)
	}
	msgs, err := ch.ConsumeWithContext(ctx, q.Name, "", false, true, false, false, nil)
	if err != nil {
		return fail("consume", err)
	}
	return msgs, ch, nil
}

func (f *Feed) drain(ctx context.Context, msgs <-chan amqp091.Delivery) {
	for {
		select {
		case <-ctx.Done():
			f.l.Info(ctx, "ride change consumer shutting down")
			return

		case d, ok := <-msgs:
			if !ok {
				f.l.Warn(ctx, "message channel closed, reconnecting...")
				return
			}
			f.handle(ctx, d)
		}
	}
}

func (f *Feed) handle(ctx context.Context, d amqp091.Delivery) {
	ev, err := models.ParseChangeEvent(d.Body)
	metrics.RecordFeedMessage(feedDriver, err)
	if err != nil {
		f.l.Error(wrap.WithAction(ctx, types.ActionApplyEvent), "failed to decode ride change", err, "routing_key", d.RoutingKey)
		_ = d.Nack(false, false)
		return
	}

	f.hub.Publish(ev)

	if err := d.Ack(false); err != nil {
		f.l.Error(ctx, "failed to ack message", err)
	}
}
