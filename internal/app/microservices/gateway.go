package microservices

import (
	"context"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/Temutjin2k/ride-hail-client/config"
	"github.com/Temutjin2k/ride-hail-client/internal/adapter/http/handler"
	"github.com/Temutjin2k/ride-hail-client/internal/adapter/http/server"
	"github.com/Temutjin2k/ride-hail-client/internal/adapter/identity"
	"github.com/Temutjin2k/ride-hail-client/internal/adapter/locationIQ"
	"github.com/Temutjin2k/ride-hail-client/internal/adapter/memory"
	repo "github.com/Temutjin2k/ride-hail-client/internal/adapter/postgres"
	rabbitadapter "github.com/Temutjin2k/ride-hail-client/internal/adapter/rabbit"
	redisadapter "github.com/Temutjin2k/ride-hail-client/internal/adapter/redis"
	"github.com/Temutjin2k/ride-hail-client/internal/domain/types"
	"github.com/Temutjin2k/ride-hail-client/internal/service/reconciler"
	"github.com/Temutjin2k/ride-hail-client/internal/service/session"
	"github.com/Temutjin2k/ride-hail-client/pkg/logger"
	"github.com/Temutjin2k/ride-hail-client/pkg/postgres"
	"github.com/Temutjin2k/ride-hail-client/pkg/rabbit"
	"github.com/Temutjin2k/ride-hail-client/pkg/trm"
	ws "github.com/Temutjin2k/ride-hail-client/pkg/wsHub"
)

// GatewayService serves the ride API and keeps one reconciler per signed-in actor.
type GatewayService struct {
	postgresDB *postgres.PostgreDB
	rabbitMQ   *rabbit.RabbitMQ
	redis      *goredis.Client

	// upstream change listener feeding every reconciler, nil for the memory store
	runFeed func(ctx context.Context) error

	sessions    *session.Manager
	connections *ws.ConnectionHub
	httpServer  *server.API

	cfg config.Config
	log logger.Logger
}

func NewGateway(ctx context.Context, cfg config.Config, log logger.Logger) (_ *GatewayService, err error) {
	s := &GatewayService{cfg: cfg, log: log}
	defer func() {
		if err != nil {
			s.close(ctx)
		}
	}()

	store, feed, err := s.initRides(ctx)
	if err != nil {
		return nil, err
	}

	var (
		revocations identity.Revocations
		revoker     handler.Revoker
	)
	if cfg.Redis.Addr != "" {
		s.redis, err = redisadapter.Connect(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Error(ctx, "Failed to setup redis", err)
			return nil, err
		}
		registry := redisadapter.NewSessionRegistry(s.redis)
		revocations, revoker = registry, registry
	}

	var geocoder handler.Geocoder
	if cfg.ExternalAPIConfig.LocationIQapiKey != "" {
		geocoder = locationIQ.New(cfg.ExternalAPIConfig.LocationIQapiKey, cfg.ExternalAPIConfig.LocationIQBaseURL)
	}

	jwt := identity.NewJWT(cfg.Auth.JWTSecret, revocations)
	s.sessions = session.NewManager(store, feed, cfg.Gateway.SessionIdleTimeout, log)
	s.connections = ws.NewConnHub(log)

	s.httpServer, err = server.New(cfg.Gateway, server.Deps{
		Sessions:    s.sessions,
		Auth:        jwt,
		Tokens:      jwt,
		Revoker:     revoker,
		Geocoder:    geocoder,
		Connections: s.connections,
	}, log)
	if err != nil {
		log.Error(ctx, "Failed to setup http server", err)
		return nil, err
	}

	return s, nil
}

// initRides picks the ride store and the change feed the reconcilers use.
func (s *GatewayService) initRides(ctx context.Context) (reconciler.RideStore, reconciler.ChangeFeed, error) {
	if s.cfg.Gateway.Store == types.StoreMemory {
		s.log.Warn(ctx, "using the in-memory ride store, rides are lost on restart")
		hub := memory.NewFeed()
		return memory.NewStore(hub), hub, nil
	}

	db, err := openDatabase(ctx, s.cfg.Database, s.log)
	if err != nil {
		return nil, nil, err
	}
	s.postgresDB = db

	store := repo.NewRideRepo(db.Pool, trm.New(db.Pool), repo.NewRideEvent(db.Pool))

	switch s.cfg.Feed.Driver {
	case types.FeedRabbitMQ:
		s.rabbitMQ, err = rabbit.New(ctx, s.cfg.RabbitMQ.GetDSN(), s.log)
		if err != nil {
			s.log.Error(ctx, "Failed to setup rabbitmq", err)
			return nil, nil, err
		}
		feed := rabbitadapter.NewFeed(s.rabbitMQ, s.log)
		s.runFeed = feed.Run
		return store, feed, nil
	case types.FeedPostgres:
		feed := repo.NewNotifyFeed(db.Pool, s.log)
		s.runFeed = feed.Run
		return store, feed, nil
	default:
		return nil, nil, fmt.Errorf("unknown feed driver %q", s.cfg.Feed.Driver)
	}
}

func (s *GatewayService) Start(ctx context.Context) error {
	errCh := make(chan error, 2)

	feedCtx, stopFeed := context.WithCancel(ctx)
	defer stopFeed()

	if s.runFeed != nil {
		go func() {
			if err := s.runFeed(feedCtx); err != nil && !errors.Is(err, context.Canceled) {
				errCh <- fmt.Errorf("change feed: %w", err)
			}
		}()
	}

	s.httpServer.Run(ctx, errCh)
	defer func() {
		stopFeed()
		s.close(ctx)
		s.log.Info(ctx, "gateway service closed")
	}()

	s.log.Info(ctx, "Gateway service has been started", "store", s.cfg.Gateway.Store, "feed", s.cfg.Feed.Driver)

	return waitForShutdown(ctx, errCh, s.log)
}

func (s *GatewayService) close(ctx context.Context) {
	if s.httpServer != nil {
		if err := s.httpServer.Stop(ctx); err != nil {
			s.log.Warn(ctx, "Failed to gracefully close http server", "error", err.Error())
		}
	}

	if s.connections != nil {
		s.connections.Close()
	}

	if s.sessions != nil {
		s.sessions.Close()
	}

	if s.rabbitMQ != nil {
		if err := s.rabbitMQ.Close(ctx); err != nil {
			s.log.Warn(ctx, "Failed to close rabbitmq", "error", err.Error())
		}
	}

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.log.Warn(ctx, "Failed to close redis", "error", err.Error())
		}
	}

	if s.postgresDB != nil && s.postgresDB.Pool != nil {
		s.postgresDB.Pool.Close()
	}
}
