package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Temutjin2k/ride-hail-client/config"
	"github.com/Temutjin2k/ride-hail-client/internal/adapter/http/handler"
	"github.com/Temutjin2k/ride-hail-client/internal/adapter/http/middleware"
	wshandler "github.com/Temutjin2k/ride-hail-client/internal/adapter/http/ws"
	"github.com/Temutjin2k/ride-hail-client/internal/service/session"
	"github.com/Temutjin2k/ride-hail-client/pkg/logger"
	wrap "github.com/Temutjin2k/ride-hail-client/pkg/logger/wrapper"
	ws "github.com/Temutjin2k/ride-hail-client/pkg/wsHub"
)

const (
	serverIPAddress = "%s:%s"
	serviceName     = "ride-gateway"
)

type API struct {
	mux    *http.ServeMux
	server *http.Server
	routes *handlers
	m      *middleware.Middleware

	addr string
	log  logger.Logger
}

type handlers struct {
	health  *handler.Health
	ride    *handler.Ride
	session *handler.Session
	stream  *wshandler.RideStream
}

// Deps are the collaborators of the gateway API.
type Deps struct {
	Sessions    *session.Manager
	Auth        middleware.Authenticator
	Tokens      handler.TokenParser
	Revoker     handler.Revoker  // optional
	Geocoder    handler.Geocoder // optional
	Connections *ws.ConnectionHub
}

func New(cfg config.GatewayConfig, deps Deps, log logger.Logger) (*API, error) {
	if deps.Sessions == nil || deps.Auth == nil || deps.Tokens == nil || deps.Connections == nil {
		return nil, errors.New("sessions, auth, tokens and connections are required")
	}

	api := &API{
		mux: http.NewServeMux(),
		routes: &handlers{
			health:  handler.NewHealth(serviceName, deps.Sessions, log),
			ride:    handler.NewRide(deps.Sessions, deps.Geocoder, log),
			session: handler.NewSession(deps.Sessions, deps.Tokens, deps.Revoker, log),
			stream:  wshandler.NewRideStream(deps.Sessions, deps.Connections, cfg.AllowedOrigins, serviceName, log),
		},
		m:    middleware.NewMiddleware(deps.Auth, log),
		addr: fmt.Sprintf(serverIPAddress, "0.0.0.0", cfg.Port),
		log:  log,
	}

	api.setupRoutes()

	api.server = &http.Server{
		Addr:              api.addr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return api, nil
}

func (a *API) Stop(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	ctx = wrap.WithAction(ctx, "http_server_stop")

	a.log.Debug(ctx, "shutting down HTTP server...", "address", a.addr)
	if err := a.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("error shutting down server: %w", err)
	}
	a.log.Debug(ctx, "shutting down HTTP server completed")

	return nil
}

func (a *API) Run(ctx context.Context, errCh chan<- error) {
	go func() {
		ctx = wrap.WithAction(ctx, "http_server_start")
		a.log.Info(ctx, "started http server", "address", a.addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("failed to start HTTP server: %w", err)
			return
		}
	}()
}

// Handler is the mux behind the middleware chain.
func (a *API) Handler() http.Handler {
	return a.m.Recover(a.m.RequestID(a.m.Logging(a.m.Auth(a.m.Metrics(serviceName)(a.mux)))))
}
