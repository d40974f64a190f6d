// Package distlock serializes work on a shared key (such as a slug being
// published) across server instances.
package distlock

import (
	"context"
	"database/sql"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// DistLock is the interface for distributed locking. A lock instance
// belongs to one caller; concurrent callers each build their own.
type DistLock interface {
	// Acquire tries to take the lock without blocking. Returns true if successful.
	Acquire(ctx context.Context) (bool, error)
	// Release releases the lock if we still own it.
	Release(ctx context.Context) error
}

// NewLock picks the best available backend: Redis when a client is given,
// otherwise a PostgreSQL advisory lock, otherwise an in-process lock that
// only protects a single instance.
func NewLock(redisClient *redis.Client, db *sql.DB, key string, ttl time.Duration) DistLock {
	switch {
	case redisClient != nil:
		return NewRedisLock(redisClient, key, ttl)
	case db != nil:
		return NewPGAdvisoryLock(db, key)
	default:
		return NewLocalLock(key)
	}
}

// PGAdvisoryLock implements DistLock with pg_try_advisory_lock. Advisory
// locks are session-scoped, so the connection that took the lock is pinned
// until Release.
type PGAdvisoryLock struct {
	db     *sql.DB
	lockID int64
	conn   *sql.Conn
}

// NewPGAdvisoryLock derives a stable lock ID from key.
func NewPGAdvisoryLock(db *sql.DB, key string) *PGAdvisoryLock {
	h := fnv.New64a()
	h.Write([]byte(key))
	return &PGAdvisoryLock{db: db, lockID: int64(h.Sum64())}
}

func (l *PGAdvisoryLock) Acquire(ctx context.Context) (bool, error) {
	conn, err := l.db.Conn(ctx)
	if err != nil {
		return false, fmt.Errorf("advisory lock conn: %w", err)
	}
	var acquired bool
	if err := conn.QueryRowContext(ctx, "SELECT pg_try_advisory_lock($1)", l.lockID).Scan(&acquired); err != nil {
		conn.Close()
		return false, fmt.Errorf("advisory lock %d: %w", l.lockID, err)
	}
	if !acquired {
		conn.Close()
		return false, nil
	}
	l.conn = conn
	return true, nil
}

func (l *PGAdvisoryLock) Release(ctx context.Context) error {
	if l.conn == nil {
		return nil
	}
	defer func() {
		l.conn.Close()
		l.conn = nil
	}()
	_, err := l.conn.ExecContext(ctx, "SELECT pg_advisory_unlock($1)", l.lockID)
	return err
}

var (
	localMu   sync.Mutex
	localHeld = make(map[string]struct{}) // keys currently held in this process
)

// LocalLock is a non-blocking in-process lock keyed by name. Released keys
// are forgotten.
type LocalLock struct {
	key  string
	held bool
}

func NewLocalLock(key string) *LocalLock {
	return &LocalLock{key: key}
}

func (l *LocalLock) Acquire(context.Context) (bool, error) {
	if l.held {
		return true, nil
	}
	localMu.Lock()
	defer localMu.Unlock()
	if _, taken := localHeld[l.key]; taken {
		return false, nil
	}
	localHeld[l.key] = struct{}{}
	l.held = true
	return true, nil
}

func (l *LocalLock) Release(context.Context) error {
	if !l.held {
		return nil
	}
	localMu.Lock()
	delete(localHeld, l.key)
	localMu.Unlock()
	l.held = false
	return nil
}
