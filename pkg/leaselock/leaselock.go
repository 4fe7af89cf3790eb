// Package leaselock provides named single-holder locks backed by a Postgres
// table. A lease expires on its own when the holder dies, and the holder
// renews it in the background for as long as it keeps working.
package leaselock

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

var (
	// ErrBusy is returned by Acquire when another holder owns the lease.
	ErrBusy = errors.New("lease already held")
	// ErrLost cancels a lease context when renewal finds the lease gone.
	ErrLost = errors.New("lease lost")

	errReleased = errors.New("lease released")
)

const (
	defaultTTL     = 10 * time.Minute
	renewAttempts  = 3
	renewTimeout   = 15 * time.Second
	renewRetryWait = 200 * time.Millisecond
)

type querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Client acquires leases against one database.
type Client struct {
	db querier
}

func New(pool *pgxpool.Pool) *Client {
	return &Client{db: pool}
}

// Options configure a single Acquire call. Zero values pick a 10 minute TTL
// renewed at a third of the TTL.
type Options struct {
	TTL         time.Duration
	RenewEvery  time.Duration
	TokenPrefix string
}

// Lease is a held lock. Context stays live while the lease is held and is
// cancelled with ErrLost (or the release cause) when it is not.
type Lease struct {
	Key     string
	Token   string
	Context context.Context

	client *Client
	cancel context.CancelCauseFunc
}

// Acquire takes the lease for key or fails with ErrBusy if a live holder
// exists. Expired rows are taken over. The returned lease renews itself
// until released or lost.
func (c *Client) Acquire(ctx context.Context, key string, opts Options) (*Lease, error) {
	if key == "" {
		return nil, errors.New("lease key is empty")
	}
	if opts.TTL <= 0 {
		opts.TTL = defaultTTL
	}
	if opts.RenewEvery <= 0 || opts.RenewEvery >= opts.TTL {
		opts.RenewEvery = max(opts.TTL/3, time.Second)
	}

	suffix, err := gonanoid.New()
	if err != nil {
		return nil, err
	}
	token := opts.TokenPrefix + suffix

	ttlMs := opts.TTL.Milliseconds()
	var held string
	if err := c.db.QueryRow(ctx, acquireSQL, key, token, ttlMs).Scan(&held); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBusy
		}
		return nil, err
	}

	leaseCtx, cancel := context.WithCancelCause(ctx)
	l := &Lease{
		Key:     key,
		Token:   token,
		Context: leaseCtx,
		client:  c,
		cancel:  cancel,
	}
	go l.renewLoop(opts.RenewEvery, ttlMs)
	return l, nil
}

// Release stops renewal, cancels the lease context, and deletes the row.
// Safe to call more than once.
func (l *Lease) Release(ctx context.Context) error {
	l.cancel(errReleased)
	_, err := l.client.db.Exec(ctx, releaseSQL, l.Key, l.Token)
	return err
}

func (l *Lease) renewLoop(every time.Duration, ttlMs int64) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-l.Context.Done():
			return
		case <-t.C:
			if err := l.renew(ttlMs); err != nil {
				l.cancel(err)
				return
			}
		}
	}
}

// renew pushes the expiry forward. Transient errors are retried a few times;
// a missing row means another holder took over and the lease is lost.
func (l *Lease) renew(ttlMs int64) error {
	var lastErr error
	for attempt := 0; attempt < renewAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-l.Context.Done():
				return context.Cause(l.Context)
			case <-time.After(renewRetryWait):
			}
		}
		attemptCtx, cancel := context.WithTimeout(l.Context, renewTimeout)
		var held string
		err := l.client.db.QueryRow(attemptCtx, renewSQL, l.Key, l.Token, ttlMs).Scan(&held)
		cancel()
		if err == nil {
			return nil
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrLost
		}
		lastErr = err
	}
	return lastErr
}

const acquireSQL = `
INSERT INTO app_locks (lock_key, locked_by, expires_at)
VALUES ($1, $2, now() + ($3::bigint * interval '1 millisecond'))
ON CONFLICT (lock_key) DO UPDATE
SET locked_by = EXCLUDED.locked_by, expires_at = EXCLUDED.expires_at
WHERE app_locks.expires_at < now() OR app_locks.locked_by = EXCLUDED.locked_by
RETURNING lock_key;
`

const renewSQL = `
UPDATE app_locks
SET expires_at = now() + ($3::bigint * interval '1 millisecond')
WHERE lock_key = $1 AND locked_by = $2
RETURNING lock_key;
`

const releaseSQL = `
DELETE FROM app_locks WHERE lock_key = $1 AND locked_by = $2;
`
