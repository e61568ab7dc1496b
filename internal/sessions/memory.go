package sessions

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/parley-dev/parley/pkg/models"
)

// DefaultMaxTurns bounds session history when no limit is configured.
const DefaultMaxTurns = 50

// MemoryStore is the in-process Store implementation. Sessions are
// created lazily on first append and live for the process lifetime;
// nothing is persisted across restarts.
//
// Retention policy: after every append, if a session holds more than
// maxTurns turns, all system turns are kept and only the most recent
// user turns that fit in the remaining budget survive. The surviving
// set is restored to ascending timestamp order. System turns are never
// evicted, so system instructions stay visible to the pipeline
// regardless of age.
type MemoryStore struct {
	mu       sync.RWMutex
	maxTurns int
	sessions map[string]*sessionState
}

type sessionState struct {
	turns   []models.Turn
	nextSeq uint64
}

// NewMemoryStore creates an in-memory session store bounded to maxTurns
// turns per session. Non-positive values fall back to DefaultMaxTurns.
func NewMemoryStore(maxTurns int) *MemoryStore {
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}
	return &MemoryStore{
		maxTurns: maxTurns,
		sessions: map[string]*sessionState{},
	}
}

// MaxTurns returns the configured per-session retention bound.
func (m *MemoryStore) MaxTurns() int {
	return m.maxTurns
}

// Sessions returns the number of sessions currently held.
func (m *MemoryStore) Sessions() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func (m *MemoryStore) Append(ctx context.Context, sessionID string, turn models.Turn) (models.Turn, error) {
	if sessionID == "" {
		return models.Turn{}, ErrSessionIDRequired
	}
	switch turn.Role {
	case models.RoleSystem, models.RoleUser:
	default:
		return models.Turn{}, ErrInvalidRole
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.sessions[sessionID]
	if !ok {
		state = &sessionState{}
		m.sessions[sessionID] = state
	}

	if turn.ID == "" {
		turn.ID = uuid.NewString()
	}
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now()
	}
	state.nextSeq++
	turn.Seq = state.nextSeq

	state.turns = append(state.turns, turn)
	state.sortTurns()
	state.applyRetention(m.maxTurns)
	return turn, nil
}

func (m *MemoryStore) History(ctx context.Context, sessionID string) ([]models.Turn, error) {
	if sessionID == "" {
		return nil, ErrSessionIDRequired
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	state, ok := m.sessions[sessionID]
	if !ok {
		return []models.Turn{}, nil
	}
	out := make([]models.Turn, len(state.turns))
	copy(out, state.turns)
	return out, nil
}

func (m *MemoryStore) Len(ctx context.Context, sessionID string) (int, error) {
	if sessionID == "" {
		return 0, ErrSessionIDRequired
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	state, ok := m.sessions[sessionID]
	if !ok {
		return 0, nil
	}
	return len(state.turns), nil
}

func (s *sessionState) sortTurns() {
	sort.SliceStable(s.turns, func(i, j int) bool {
		return s.turns[i].Before(s.turns[j])
	})
}

// applyRetention enforces the per-session bound. System turns are always
// retained; user turns beyond the remaining budget are dropped oldest
// first. If system turns alone exceed the bound, the session holds only
// system turns until some capacity frees up.
func (s *sessionState) applyRetention(max int) {
	if max <= 0 || len(s.turns) <= max {
		return
	}

	system := make([]models.Turn, 0, len(s.turns))
	user := make([]models.Turn, 0, len(s.turns))
	for _, turn := range s.turns {
		if turn.Role == models.RoleSystem {
			system = append(system, turn)
		} else {
			user = append(user, turn)
		}
	}

	budget := max - len(system)
	if budget < 0 {
		budget = 0
	}
	if len(user) > budget {
		user = user[len(user)-budget:]
	}

	merged := append(system, user...)
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Before(merged[j])
	})
	s.turns = merged
}
