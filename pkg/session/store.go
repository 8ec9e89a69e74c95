// Package session owns per-user conversation state: a bounded window of
// past interactions and the preference weights derived from them.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"github.com/revintel/insight-agent/pkg/domain"
	"github.com/revintel/insight-agent/pkg/observability"
)

// DefaultWindow bounds the interaction history kept per user.
const DefaultWindow = 10

// Store implements domain.ContextStore. Live states sit in a TTL cache
// keyed by user id; an optional KV store persists them across restarts.
// Access is serialized per user id, never globally.
type Store struct {
	window int
	kv     domain.KVStore
	logger observability.Logger

	cache *ttlcache.Cache[string, *domain.ContextState]

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// Options configures the session store
type Options struct {
	// Window bounds history length; zero means DefaultWindow.
	Window int
	// IdleTTL evicts in-memory state for users idle this long.
	IdleTTL time.Duration
	// KV, when set, persists state across restarts.
	KV domain.KVStore
	// Logger defaults to a component logger when nil.
	Logger observability.Logger
}

// NewStore creates a session store
func NewStore(opts Options) *Store {
	if opts.Window <= 0 {
		opts.Window = DefaultWindow
	}
	if opts.IdleTTL <= 0 {
		opts.IdleTTL = 24 * time.Hour
	}
	if opts.Logger == nil {
		opts.Logger = observability.NewStructuredLogger("session")
	}

	cache := ttlcache.New(
		ttlcache.WithTTL[string, *domain.ContextState](opts.IdleTTL),
	)
	go cache.Start()

	return &Store{
		window: opts.Window,
		kv:     opts.KV,
		logger: opts.Logger,
		cache:  cache,
		locks:  make(map[string]*sync.Mutex),
	}
}

// Stop halts the cache eviction loop
func (s *Store) Stop() {
	s.cache.Stop()
}

// lockFor returns the mutex serializing access to one user's state.
func (s *Store) lockFor(userID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, ok := s.locks[userID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[userID] = lock
	}
	return lock
}

// Get returns a snapshot of the user's state, creating an empty one on
// first access. On a persistence failure it returns an empty ephemeral
// state together with ErrStoreUnavailable; callers proceed with the
// snapshot either way.
func (s *Store) Get(ctx context.Context, userID string) (domain.ContextState, error) {
	lock := s.lockFor(userID)
	lock.Lock()
	defer lock.Unlock()

	state, err := s.load(ctx, userID)
	if err != nil {
		return emptyState(userID), err
	}
	return snapshot(state), nil
}

// Append records a completed interaction, evicting the oldest history
// entry when the window overflows and refreshing preference weights.
func (s *Store) Append(ctx context.Context, userID string, in domain.Interaction) error {
	lock := s.lockFor(userID)
	lock.Lock()
	defer lock.Unlock()

	state, loadErr := s.load(ctx, userID)
	if loadErr != nil {
		// Persisted copy unreachable; keep going with the in-memory one.
		fresh := emptyState(userID)
		state = &fresh
	}

	state.History = append(state.History, in)
	if len(state.History) > s.window {
		state.History = state.History[len(state.History)-s.window:]
	}
	updatePreferences(state)

	s.cache.Set(userID, state, ttlcache.DefaultTTL)

	if s.kv != nil {
		data, err := json.Marshal(state)
		if err != nil {
			return fmt.Errorf("failed to marshal session state: %w", err)
		}
		if err := s.kv.Put(ctx, sessionKey(userID), data); err != nil {
			s.logger.Warn(ctx, "session persistence failed, state kept in memory", map[string]interface{}{
				"user_id": userID,
				"error":   err.Error(),
			})
			return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
		}
	}

	return nil
}

// Preferences returns a copy of the accumulated preference weights.
func (s *Store) Preferences(ctx context.Context, userID string) (domain.Preferences, error) {
	lock := s.lockFor(userID)
	lock.Lock()
	defer lock.Unlock()

	state, err := s.load(ctx, userID)
	if err != nil {
		return domain.Preferences{}, err
	}
	return copyPreferences(state.Preferences), nil
}

// load returns the live state for a user, pulling from the KV store on a
// cache miss. The returned pointer is the authoritative copy; callers
// hold the per-user lock.
func (s *Store) load(ctx context.Context, userID string) (*domain.ContextState, error) {
	if item := s.cache.Get(userID); item != nil {
		return item.Value(), nil
	}

	if s.kv != nil {
		data, err := s.kv.Get(ctx, sessionKey(userID))
		switch {
		case err == nil:
			state := &domain.ContextState{}
			if jsonErr := json.Unmarshal(data, state); jsonErr == nil {
				s.cache.Set(userID, state, ttlcache.DefaultTTL)
				return state, nil
			}
			// Corrupt payload; fall through to a fresh state.
			s.logger.Warn(ctx, "discarding corrupt session payload", map[string]interface{}{
				"user_id": userID,
			})
		case errors.Is(err, domain.ErrKeyNotFound):
			// First query from this user.
		default:
			return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
		}
	}

	fresh := emptyState(userID)
	state := &fresh
	s.cache.Set(userID, state, ttlcache.DefaultTTL)
	return state, nil
}

func sessionKey(userID string) string {
	return "session:" + userID
}

func emptyState(userID string) domain.ContextState {
	return domain.ContextState{
		UserID:       userID,
		SessionStart: time.Now(),
		Preferences: domain.Preferences{
			SourceAffinity: make(map[domain.DataSource]float64),
			PersonaWeights: make(map[domain.Persona]float64),
		},
	}
}

// updatePreferences recomputes preference weights from the bounded
// history so old interactions age out with eviction. Weights per map
// always sum to 1.
func updatePreferences(state *domain.ContextState) {
	sourceCounts := make(map[domain.DataSource]float64)
	personaCounts := make(map[domain.Persona]float64)

	for _, in := range state.History {
		for _, source := range in.Plan.DataSources {
			sourceCounts[source]++
		}
		personaCounts[in.Plan.Persona]++
	}

	state.Preferences.SourceAffinity = normalize(sourceCounts)
	state.Preferences.PersonaWeights = normalize(personaCounts)
}

func normalize[K comparable](counts map[K]float64) map[K]float64 {
	var total float64
	for _, v := range counts {
		total += v
	}
	if total == 0 {
		return counts
	}
	for k, v := range counts {
		counts[k] = v / total
	}
	return counts
}

// snapshot deep-copies a state so callers never see later mutations.
func snapshot(state *domain.ContextState) domain.ContextState {
	out := *state
	out.History = append([]domain.Interaction(nil), state.History...)
	out.Preferences = copyPreferences(state.Preferences)
	return out
}

func copyPreferences(p domain.Preferences) domain.Preferences {
	out := domain.Preferences{
		SourceAffinity: make(map[domain.DataSource]float64, len(p.SourceAffinity)),
		PersonaWeights: make(map[domain.Persona]float64, len(p.PersonaWeights)),
	}
	for k, v := range p.SourceAffinity {
		out.SourceAffinity[k] = v
	}
	for k, v := range p.PersonaWeights {
		out.PersonaWeights[k] = v
	}
	return out
}
