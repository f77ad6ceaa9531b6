// Package realtime subscribes to the backend's per-identity change feed
// and delivers row-level task events to a callback. The feed may echo this
// device's own pushes back; callbacks must be idempotent to self-echo, and
// delivery order relative to outbound pushes is not guaranteed.
package realtime

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/dmitrijs2005/pintask/internal/client/models"
	"github.com/dmitrijs2005/pintask/internal/logging"
	"github.com/google/uuid"
)

// OnChange receives one inbound change event. It is invoked from the
// subscription's read goroutine.
type OnChange func(event *models.ChangeEvent)

// Subscription is a live change-feed connection for one user id.
type Subscription struct {
	ID     string
	UserID int64

	conn   *websocket.Conn
	cancel context.CancelFunc
	done   chan struct{}
}

// Listener manages websocket subscriptions, at most one per user id per
// process. A second Subscribe for the same user id replaces the first.
type Listener struct {
	baseURL string
	log     logging.Logger

	mu   sync.Mutex
	subs map[int64]*Subscription
}

func NewListener(baseURL string, log logging.Logger) *Listener {
	return &Listener{
		baseURL: baseURL,
		log:     log,
		subs:    make(map[int64]*Subscription),
	}
}

// Subscribe dials the change feed for userID and starts a read loop that
// forwards decoded events to onChange. The loop exits when the connection
// drops, Unsubscribe is called, or ctx is cancelled.
func (l *Listener) Subscribe(ctx context.Context, userID int64, onChange OnChange) (*Subscription, error) {
	url := fmt.Sprintf("%s/realtime/%d", l.baseURL, userID)

	dialCtx, cancel := context.WithCancel(ctx)
	conn, _, err := websocket.Dial(dialCtx, url, nil)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to subscribe to change feed: %w", err)
	}

	sub := &Subscription{
		ID:     uuid.NewString(),
		UserID: userID,
		conn:   conn,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	l.mu.Lock()
	if prev, ok := l.subs[userID]; ok {
		prev.close()
	}
	l.subs[userID] = sub
	l.mu.Unlock()

	go l.readLoop(dialCtx, sub, onChange)
	return sub, nil
}

func (l *Listener) readLoop(ctx context.Context, sub *Subscription, onChange OnChange) {
	defer close(sub.done)
	defer sub.conn.Close(websocket.StatusNormalClosure, "")

	for {
		var event models.ChangeEvent
		if err := wsjson.Read(ctx, sub.conn, &event); err != nil {
			if ctx.Err() == nil && websocket.CloseStatus(err) == -1 {
				l.log.Warn(ctx, "change feed read error", "user_id", sub.UserID, "error", err)
			}
			l.drop(sub)
			return
		}
		onChange(&event)
	}
}

// drop removes sub from the registry if it is still the active one.
func (l *Listener) drop(sub *Subscription) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if current, ok := l.subs[sub.UserID]; ok && current == sub {
		delete(l.subs, sub.UserID)
	}
}

func (sub *Subscription) close() {
	sub.cancel()
	sub.conn.Close(websocket.StatusNormalClosure, "")
}

// Unsubscribe closes the subscription and waits for its read loop to stop.
func (l *Listener) Unsubscribe(sub *Subscription) error {
	if sub == nil {
		return errors.New("nil subscription")
	}
	l.drop(sub)
	sub.close()
	<-sub.done
	return nil
}

// UnsubscribeAll tears down every active subscription.
func (l *Listener) UnsubscribeAll() {
	l.mu.Lock()
	subs := make([]*Subscription, 0, len(l.subs))
	for _, sub := range l.subs {
		subs = append(subs, sub)
	}
	l.subs = make(map[int64]*Subscription)
	l.mu.Unlock()

	for _, sub := range subs {
		sub.close()
		<-sub.done
	}
}

// Active reports whether a subscription is live for userID.
func (l *Listener) Active(userID int64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.subs[userID]
	return ok
}
