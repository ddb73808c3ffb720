package microservices

import (
	"context"
	"errors"
	"fmt"

	"github.com/Temutjin2k/ride-hail-client/config"
	repo "github.com/Temutjin2k/ride-hail-client/internal/adapter/postgres"
	rabbitadapter "github.com/Temutjin2k/ride-hail-client/internal/adapter/rabbit"
	"github.com/Temutjin2k/ride-hail-client/internal/domain/models"
	"github.com/Temutjin2k/ride-hail-client/internal/service/reconciler"
	"github.com/Temutjin2k/ride-hail-client/pkg/logger"
	wrap "github.com/Temutjin2k/ride-hail-client/pkg/logger/wrapper"
	"github.com/Temutjin2k/ride-hail-client/pkg/postgres"
	"github.com/Temutjin2k/ride-hail-client/pkg/rabbit"
)

// RelayService republishes database ride changes into the RabbitMQ ride exchange.
type RelayService struct {
	postgresDB *postgres.PostgreDB
	rabbitMQ   *rabbit.RabbitMQ

	feed      *repo.NotifyFeed
	publisher *rabbitadapter.Publisher
	sub       reconciler.Subscription

	cfg config.Config
	log logger.Logger
}

func NewRelay(ctx context.Context, cfg config.Config, log logger.Logger) (_ *RelayService, err error) {
	s := &RelayService{cfg: cfg, log: log}
	defer func() {
		if err != nil {
			s.close(ctx)
		}
	}()

	s.postgresDB, err = openDatabase(ctx, cfg.Database, log)
	if err != nil {
		return nil, err
	}

	s.rabbitMQ, err = rabbit.New(ctx, cfg.RabbitMQ.GetDSN(), log)
	if err != nil {
		log.Error(ctx, "Failed to setup rabbitmq", err)
		return nil, err
	}

	s.feed = repo.NewNotifyFeed(s.postgresDB.Pool, log)
	s.publisher = rabbitadapter.NewPublisher(s.rabbitMQ, log)

	return s, nil
}

func (s *RelayService) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	sub, err := s.feed.Subscribe(runCtx, s.relay)
	if err != nil {
		return fmt.Errorf("subscribe to ride changes: %w", err)
	}
	s.sub = sub

	errCh := make(chan error, 1)
	go func() {
		if err := s.feed.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- fmt.Errorf("change feed: %w", err)
		}
	}()

	defer func() {
		cancel()
		s.close(ctx)
		s.log.Info(ctx, "relay service closed")
	}()

	s.log.Info(ctx, "Relay service has been started", "exchange", rabbitadapter.RideExchange)

	return waitForShutdown(ctx, errCh, s.log)
}

// relay runs on the feed's delivery goroutine, so events keep their order.
func (s *RelayService) relay(ctx context.Context, ev models.ChangeEvent) {
	if err := s.publisher.PublishChange(ctx, ev); err != nil {
		s.log.Error(wrap.ErrorCtx(ctx, err), "failed to relay ride change", err, "routing_key", ev.RoutingKey())
	}
}

func (s *RelayService) close(ctx context.Context) {
	if s.sub != nil {
		s.sub.Unsubscribe()
	}

	if s.rabbitMQ != nil {
		if err := s.rabbitMQ.Close(ctx); err != nil {
			s.log.Warn(ctx, "Failed to close rabbitmq", "error", err.Error())
		}
	}

	if s.postgresDB != nil && s.postgresDB.Pool != nil {
		s.postgresDB.Pool.Close()
	}
}
