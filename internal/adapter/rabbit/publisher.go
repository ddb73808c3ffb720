package rabbit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"github.com/Temutjin2k/ride-hail-client/internal/domain/models"
	"github.com/Temutjin2k/ride-hail-client/pkg/logger"
	wrap "github.com/Temutjin2k/ride-hail-client/pkg/logger/wrapper"
	"github.com/Temutjin2k/ride-hail-client/pkg/metrics"
	"github.com/Temutjin2k/ride-hail-client/pkg/rabbit"
)

// Publisher puts ride change events on the ride exchange.
type Publisher struct {
	client   *rabbit.RabbitMQ
	exchange string

	l logger.Logger
}

func NewPublisher(client *rabbit.RabbitMQ, log logger.Logger) *Publisher {
	return &Publisher{
		client:   client,
		exchange: RideExchange,
		l:        log,
	}
}

// PublishChange sends ev with routing key ride.<kind>.<status>, e.g. "ride.updated.accepted".
func (p *Publisher) PublishChange(ctx context.Context, ev models.ChangeEvent) (err error) {
	ctx = wrap.WithRideID(wrap.WithAction(ctx, "rabbitmq_publish_ride_change"), ev.Record.ID.String())
	defer func() { metrics.RecordRabbitMQPublish(p.exchange, err) }()

	body, err := json.Marshal(ev)
	if err != nil {
		return wrap.Error(ctx, fmt.Errorf("failed to marshal message: %w", err))
	}

	err = retry(ctx, 5, time.Second, func() error {
		ch, err := p.client.Channel(ctx)
		if err != nil {
			return err
		}
		if err := declareRideExchange(ch); err != nil {
			return fmt.Errorf("declare exchange: %w", err)
		}
		return ch.PublishWithContext(
			ctx,
			p.exchange,      // exchange
			ev.RoutingKey(), // routing key
			false,           // mandatory
			false,           // immediate
			amqp091.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp091.Persistent,
				MessageId:    fmt.Sprintf("%s:%s", ev.Record.ID, ev.Record.Status),
				Body:         body,
				Timestamp:    time.Now(),
			},
		)
	})
	if err != nil {
		return wrap.Error(ctx, fmt.Errorf("failed to publish ride change: %w", err))
	}
	return nil
}
