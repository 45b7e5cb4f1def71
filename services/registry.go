package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/zhumataybara/quiz-app/store"
)

const roomCodeCacheTTL = 2 * time.Hour

// Registry is the process-wide map from game id to live session. It mediates
// session creation and teardown but never touches session internals. The
// redis client is an injected collaborator handle, not a package global.
type Registry struct {
	mu       sync.RWMutex
	store    store.Store
	cache    *redis.Client
	b        Broadcaster
	sessions map[string]*Session
}

func NewRegistry(st store.Store, cache *redis.Client) *Registry {
	return &Registry{
		store:    st,
		cache:    cache,
		sessions: make(map[string]*Session),
	}
}

// SetBroadcaster wires the hub in after construction (hub and registry
// reference each other). Must be called before any session is created.
func (r *Registry) SetBroadcaster(b Broadcaster) {
	r.b = b
}

// GetOrCreate returns the session for a game, loading it on first use.
// Concurrent calls for the same game always get the same instance.
func (r *Registry) GetOrCreate(ctx context.Context, gameID string) (*Session, error) {
	r.mu.RLock()
	sess, ok := r.sessions[gameID]
	r.mu.RUnlock()
	if ok {
		return sess, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Double-check after acquiring the write lock.
	if sess, ok := r.sessions[gameID]; ok {
		return sess, nil
	}

	sess, err := NewSession(ctx, gameID, r.store, r.cache, r.b)
	if err != nil {
		return nil, err
	}
	r.sessions[gameID] = sess
	log.Printf("Session created for game %s", gameID)
	return sess, nil
}

// Get returns an already-live session without creating one.
func (r *Registry) Get(gameID string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sess, ok := r.sessions[gameID]
	return sess, ok
}

// SessionByCode resolves a join code to its session. The code-to-id mapping
// is cached in redis; cache misses and failures fall through to the store.
func (r *Registry) SessionByCode(ctx context.Context, code string) (*Session, error) {
	code = strings.ToUpper(strings.TrimSpace(code))

	if r.cache != nil {
		if gameID, err := r.cache.Get(ctx, "roomcode:"+code).Result(); err == nil {
			return r.GetOrCreate(ctx, gameID)
		} else if !errors.Is(err, redis.Nil) {
			log.Printf("Redis error resolving room code %s: %v", code, err)
		}
	}

	sctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()
	gameID, err := r.store.GameIDByRoomCode(sctx, code)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrGameNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("resolving room code %s: %w", code, err)
	}

	if r.cache != nil {
		if err := r.cache.Set(ctx, "roomcode:"+code, gameID, roomCodeCacheTTL).Err(); err != nil {
			log.Printf("Failed to cache room code %s: %v", code, err)
		}
	}
	return r.GetOrCreate(ctx, gameID)
}

// Remove tears down a session, e.g. after a game finishes and drains.
func (r *Registry) Remove(gameID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[gameID]; ok {
		delete(r.sessions, gameID)
		log.Printf("Session removed for game %s", gameID)
	}
}

// Sessions enumerates live sessions for diagnostics.
func (r *Registry) Sessions() []SessionInfo {
	r.mu.RLock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, sess := range r.sessions {
		sessions = append(sessions, sess)
	}
	r.mu.RUnlock()

	infos := make([]SessionInfo, len(sessions))
	for i, sess := range sessions {
		infos[i] = sess.Info()
	}
	return infos
}
