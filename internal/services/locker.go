package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// CharacterLocker serializes work on one character. Lock blocks until the
// lock is held or ctx ends; the returned func releases it and is safe to
// call more than once.
type CharacterLocker interface {
	Lock(ctx context.Context, characterID int64) (unlock func(), err error)
}

// releaseScript deletes the lock only if we still own it.
var releaseScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`)

// RedisLocker holds character locks in Redis so several API instances
// share them. Locks expire after ttl in case a holder dies.
type RedisLocker struct {
	client redis.Cmdable
	ttl    time.Duration
	poll   time.Duration
	logger *slog.Logger
}

var _ CharacterLocker = (*RedisLocker)(nil)

func NewRedisLocker(client redis.Cmdable, ttl time.Duration, logger *slog.Logger) *RedisLocker {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RedisLocker{client: client, ttl: ttl, poll: 100 * time.Millisecond, logger: logger}
}

func lockKey(characterID int64) string {
	return fmt.Sprintf("character-lock:%d", characterID)
}

func (l *RedisLocker) Lock(ctx context.Context, characterID int64) (func(), error) {
	key := lockKey(characterID)
	token := uuid.New().String()

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("character %d is busy: %w", characterID, ctx.Err())
			}
			return nil, fmt.Errorf("failed to acquire character lock: %w", err)
		}
		if ok {
			break
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("character %d is busy: %w", characterID, ctx.Err())
		case <-time.After(l.poll):
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := releaseScript.Run(releaseCtx, l.client, []string{key}, token).Err(); err != nil {
				l.logger.Error("Failed to release character lock", "error", err, "character_id", characterID)
			}
		})
	}, nil
}

// LocalLocker serializes characters within one process. A character's slot
// is dropped once nobody holds or waits for it.
type LocalLocker struct {
	mu    sync.Mutex
	slots map[int64]*localSlot
}

type localSlot struct {
	ch   chan struct{}
	refs int
}

var _ CharacterLocker = (*LocalLocker)(nil)

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{slots: make(map[int64]*localSlot)}
}

func (l *LocalLocker) acquire(characterID int64) *localSlot {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.slots[characterID]
	if !ok {
		s = &localSlot{ch: make(chan struct{}, 1)}
		l.slots[characterID] = s
	}
	s.refs++
	return s
}

func (l *LocalLocker) release(characterID int64, s *localSlot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s.refs--
	if s.refs == 0 {
		delete(l.slots, characterID)
	}
}

func (l *LocalLocker) Lock(ctx context.Context, characterID int64) (func(), error) {
	s := l.acquire(characterID)
	select {
	case s.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(characterID, s)
		return nil, fmt.Errorf("character %d is busy: %w", characterID, ctx.Err())
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-s.ch
			l.release(characterID, s)
		})
	}, nil
}
