package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Temutjin2k/ride-hail-client/internal/adapter/memory"
	"github.com/Temutjin2k/ride-hail-client/internal/domain/models"
	"github.com/Temutjin2k/ride-hail-client/internal/domain/types"
	"github.com/Temutjin2k/ride-hail-client/internal/service/reconciler"
	"github.com/Temutjin2k/ride-hail-client/pkg/logger"
	wrap "github.com/Temutjin2k/ride-hail-client/pkg/logger/wrapper"
	"github.com/Temutjin2k/ride-hail-client/pkg/metrics"
)

const (
	// ChangeChannel is the NOTIFY channel of the rides trigger.
	ChangeChannel = "ride_changes"

	feedDriver       = "postgres"
	reconnectBackoff = 2 * time.Second
)

// NotifyFeed is a change feed over LISTEN/NOTIFY. Run holds a single
// pooled connection and fans every notification out to the subscribers.
type NotifyFeed struct {
	db  *pgxpool.Pool
	hub *memory.Feed
	log logger.Logger
}

func NewNotifyFeed(db *pgxpool.Pool, log logger.Logger) *NotifyFeed {
	return &NotifyFeed{db: db, hub: memory.NewFeed(), log: log}
}

// Subscribe registers handler. Unsubscribe is synchronous.
func (f *NotifyFeed) Subscribe(ctx context.Context, handler reconciler.EventHandler) (reconciler.Subscription, error) {
	return f.hub.Subscribe(ctx, handler)
}

// Run listens until ctx is done, reconnecting when the connection drops.
func (f *NotifyFeed) Run(ctx context.Context) error {
	ctx = wrap.WithAction(ctx, types.ActionFeedSubscribe)

	conn, err := f.listen(ctx)
	if err != nil {
		return wrap.Error(ctx, err)
	}
	defer func() {
		if conn != nil {
			f.release(conn)
		}
	}()

	f.log.Info(ctx, "listening for ride changes", "channel", ChangeChannel)

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}

			f.log.Error(ctx, "change feed connection lost, reconnecting", err)
			f.release(conn)
			conn = nil

			for conn == nil {
				select {
				case <-ctx.Done():
					return nil
				case <-time.After(reconnectBackoff):
				}
				if conn, err = f.listen(ctx); err != nil {
					f.log.Warn(ctx, "failed to re-listen", "error", err.Error())
				}
			}
			f.log.Info(ctx, "change feed reconnected")
			continue
		}

		ev, err := models.ParseChangeEvent([]byte(n.Payload))
		metrics.RecordFeedMessage(feedDriver, err)
		if err != nil {
			f.log.Warn(ctx, "skipping malformed change notification", "error", err.Error())
			continue
		}
		f.hub.Publish(ev)
	}
}

func (f *NotifyFeed) listen(ctx context.Context) (*pgxpool.Conn, error) {
	conn, err := f.db.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire listen connection: %w", err)
	}
	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{ChangeChannel}.Sanitize()); err != nil {
		conn.Release()
		return nil, fmt.Errorf("listen %s: %w", ChangeChannel, err)
	}
	return conn, nil
}

func (f *NotifyFeed) release(conn *pgxpool.Conn) {
	if !conn.Conn().IsClosed() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		_, _ = conn.Exec(ctx, "UNLISTEN *")
		cancel()
	}
	conn.Release()
}
