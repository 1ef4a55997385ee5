package store

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/codeGROOVE-dev/retry"
	"github.com/jackc/pgx/v5/pgconn"
)

// notifyConn is the part of *pgx.Conn the profile listener uses.
type notifyConn interface {
	WaitForNotification(ctx context.Context) (*pgconn.Notification, error)
	Close(ctx context.Context) error
}

// profileSub is one observer's view of the shared feed. changed holds at most
// one pending signal; lost is closed if the listener gives up.
type profileSub struct {
	changed chan struct{}
	lost    chan struct{}
}

// profileListener shares a single LISTEN connection among every profile
// observer of a Store and fans notifications out by user id. It connects on
// the first subscription and disconnects when the last one leaves.
type profileListener struct {
	store *Store
	dial  func(ctx context.Context) (notifyConn, error)

	mu     sync.Mutex
	subs   map[int]map[*profileSub]struct{}
	gen    uint64
	cancel context.CancelFunc
}

func newProfileListener(s *Store) *profileListener {
	l := &profileListener{store: s, subs: map[int]map[*profileSub]struct{}{}}
	l.dial = s.dialListener
	return l
}

// dialListener takes a connection out of the pool for good and LISTENs on it.
func (s *Store) dialListener(ctx context.Context) (notifyConn, error) {
	pooled, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire listen conn: %w", err)
	}
	conn := pooled.Hijack()
	if _, err := conn.Exec(ctx, "LISTEN "+profileChannel); err != nil {
		closeNotifyConn(conn)
		return nil, fmt.Errorf("listen %s: %w", profileChannel, err)
	}
	return conn, nil
}

func closeNotifyConn(conn notifyConn) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = conn.Close(ctx)
}

// subscribe registers an observer for userID. The returned func unregisters it.
func (l *profileListener) subscribe(userID int) (*profileSub, func()) {
	sub := &profileSub{changed: make(chan struct{}, 1), lost: make(chan struct{})}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.subs[userID] == nil {
		l.subs[userID] = map[*profileSub]struct{}{}
	}
	l.subs[userID][sub] = struct{}{}
	if l.cancel == nil {
		ctx, cancel := context.WithCancel(context.Background())
		l.gen++
		l.cancel = cancel
		go l.run(ctx, l.gen)
	}

	var once sync.Once
	return sub, func() { once.Do(func() { l.unsubscribe(userID, sub) }) }
}

func (l *profileListener) unsubscribe(userID int, sub *profileSub) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if set, ok := l.subs[userID]; ok {
		delete(set, sub)
		if len(set) == 0 {
			delete(l.subs, userID)
		}
	}
	if len(l.subs) == 0 && l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
}

// dispatch signals every observer of the user named in payload.
func (l *profileListener) dispatch(payload string) {
	userID, err := strconv.Atoi(payload)
	if err != nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	for sub := range l.subs[userID] {
		signal(sub)
	}
}

// broadcast signals every observer. Used after (re)connecting, since
// notifications sent while disconnected are gone.
func (l *profileListener) broadcast() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, set := range l.subs {
		for sub := range set {
			signal(sub)
		}
	}
}

func signal(sub *profileSub) {
	select {
	case sub.changed <- struct{}{}:
	default:
	}
}

// failAll releases every observer of generation gen after reconnecting failed.
func (l *profileListener) failAll(gen uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.gen != gen {
		return
	}
	for _, set := range l.subs {
		for sub := range set {
			close(sub.lost)
		}
	}
	l.subs = map[int]map[*profileSub]struct{}{}
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
}

func (l *profileListener) run(ctx context.Context, gen uint64) {
	for {
		conn, err := l.connect(ctx)
		if err != nil {
			if ctx.Err() == nil {
				l.store.log.Error().Err(err).Msg("profile listener gave up reconnecting")
				l.failAll(gen)
			}
			return
		}
		l.broadcast()

		err = l.pump(ctx, conn)
		closeNotifyConn(conn)
		if ctx.Err() != nil {
			return
		}
		l.store.log.Warn().Err(err).Msg("profile listener lost its connection, reconnecting")
	}
}

// connect dials with the store's retry policy.
func (l *profileListener) connect(ctx context.Context) (notifyConn, error) {
	var conn notifyConn
	err := retry.Do(
		func() error {
			c, err := l.dial(ctx)
			if err != nil {
				return err
			}
			conn = c
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(l.store.attempts),
		retry.Delay(l.store.delay),
		retry.MaxDelay(2*time.Second),
		retry.DelayType(retry.FullJitterBackoffDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

func (l *profileListener) pump(ctx context.Context, conn notifyConn) error {
	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			return err
		}
		l.dispatch(n.Payload)
	}
}
