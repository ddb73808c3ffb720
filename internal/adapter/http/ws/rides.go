package wshandler

import (
	"context"
	"errors"
	"net"
	"net/http"
	"slices"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/Temutjin2k/ride-hail-client/internal/adapter/identity"
	"github.com/Temutjin2k/ride-hail-client/internal/domain/models"
	"github.com/Temutjin2k/ride-hail-client/internal/domain/types"
	"github.com/Temutjin2k/ride-hail-client/internal/service/reconciler"
	"github.com/Temutjin2k/ride-hail-client/internal/service/session"
	"github.com/Temutjin2k/ride-hail-client/pkg/logger"
	wrap "github.com/Temutjin2k/ride-hail-client/pkg/logger/wrapper"
	"github.com/Temutjin2k/ride-hail-client/pkg/metrics"
	ws "github.com/Temutjin2k/ride-hail-client/pkg/wsHub"
)

type Sessions interface {
	Get(ctx context.Context, actor models.Actor) (*reconciler.Reconciler, error)
	Session(actorID uuid.UUID) (*identity.Session, bool)
	// Hold keeps the session from idling out while the stream is open.
	Hold(actorID uuid.UUID) (release func(), ok bool)
}

// RideStream pushes the caller's ride view over a websocket on every change.
type RideStream struct {
	sessions    Sessions
	connections *ws.ConnectionHub
	upgrader    websocket.Upgrader
	serviceName string
	l           logger.Logger
}

// NewRideStream builds the stream handler. With no allowed origins the
// upgrader's same-host check applies.
func NewRideStream(sessions Sessions, connections *ws.ConnectionHub, allowedOrigins []string, serviceName string, l logger.Logger) *RideStream {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}
	if len(allowedOrigins) > 0 {
		upgrader.CheckOrigin = func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || slices.Contains(allowedOrigins, origin)
		}
	}

	return &RideStream{
		sessions:    sessions,
		connections: connections,
		upgrader:    upgrader,
		serviceName: serviceName,
		l:           l,
	}
}

// Serve godoc
// @Summary      Live ride view
// @Description  Websocket. Sends {"type":"view","data":View} on connect and after every change. Closed on sign out.
// @Tags         Rides
// @Security     BearerAuth
// @Param        access_token  query  string  false  "bearer token for clients that cannot set headers"
// @Success      101
// @Failure      401  {object}  map[string]string
// @Router       /ws/rides [get]
func (h *RideStream) Serve(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "ride_stream")
	actor := models.ActorFromContext(ctx)

	rec, err := h.sessions.Get(ctx, actor)
	if err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to open ride stream", err)
		errorResponse(w, statusOf(err), err.Error())
		return
	}

	sess, ok := h.sessions.Session(actor.ID)
	if !ok {
		errorResponse(w, http.StatusUnauthorized, "session ended")
		return
	}
	release, ok := h.sessions.Hold(actor.ID)
	if !ok {
		errorResponse(w, http.StatusUnauthorized, "session ended")
		return
	}
	defer release()

	c, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// the upgrader has already replied
		h.l.Warn(ctx, "failed to upgrade connection", "error", err.Error())
		return
	}

	conn := ws.NewConn(context.Background(), actor.ID, c)
	if err := h.connections.Add(conn); err != nil {
		h.l.Error(ctx, "failed to register connection", err)
		_ = conn.Close()
		return
	}

	gauge := metrics.WebSocketConnectionsGauge.WithLabelValues(h.serviceName)
	gauge.Inc()
	h.l.Debug(ctx, "ride stream opened")

	stopView := rec.OnChange(func(reconciler.View) { conn.Push(liveView{rec: rec}) })
	stopSession := sess.OnChange(func(models.Actor) { _ = conn.Close() })
	conn.Push(liveView{rec: rec})

	go func() {
		if err := conn.WritePump(); err != nil {
			h.l.Debug(ctx, "ride stream write failed", "error", err.Error())
		}
		_ = conn.Close()
	}()

	err = conn.ReadPump()

	stopView()
	stopSession()
	h.connections.Remove(conn)
	gauge.Dec()

	if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) && !errors.Is(err, net.ErrClosed) {
		h.l.Warn(ctx, "ride stream closed unexpectedly", "error", err.Error())
		return
	}
	h.l.Debug(ctx, "ride stream closed")
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, types.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, types.ErrFetchFailed):
		return http.StatusBadGateway
	case errors.Is(err, session.ErrClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
