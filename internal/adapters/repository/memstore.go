package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/rkoyama/zircon/internal/domain/model"
	"github.com/rkoyama/zircon/internal/domain/pool"
)

// userState is everything stored for one user. Transactions mutate a clone
// and publish it on success, so a failed submission leaves no trace.
type userState struct {
	events map[int64]model.ScoreEvent // playedAt -> event, append-only
	bests  map[model.ChartID]int64    // chart -> playedAt of the best event
	pool   map[int64]bool             // playedAt -> recent flag
	rating int64
	last   int64 // newest event timestamp
}

func newUserState() *userState {
	return &userState{
		events: make(map[int64]model.ScoreEvent),
		bests:  make(map[model.ChartID]int64),
		pool:   make(map[int64]bool),
	}
}

func (u *userState) clone() *userState {
	c := &userState{
		events: make(map[int64]model.ScoreEvent, len(u.events)+1),
		bests:  make(map[model.ChartID]int64, len(u.bests)+1),
		pool:   make(map[int64]bool, len(u.pool)+1),
		rating: u.rating,
		last:   u.last,
	}
	for k, v := range u.events {
		c.events[k] = v
	}
	for k, v := range u.bests {
		c.bests[k] = v
	}
	for k, v := range u.pool {
		c.pool[k] = v
	}
	return c
}

// MemStore is the in-memory Store backend.
type MemStore struct {
	mu    sync.RWMutex
	users map[int64]*userState
	locks map[int64]*sync.Mutex
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		users: make(map[int64]*userState),
		locks: make(map[int64]*sync.Mutex),
	}
}

// userLock returns the serialization lock for one user, creating it on first
// use.
func (s *MemStore) userLock(userID int64) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[userID] = l
	}
	return l
}

// WithUserTx implements Store. The transaction works on a copy of the user's
// state; the copy replaces the original only when fn succeeds.
func (s *MemStore) WithUserTx(ctx context.Context, userID int64, fn func(tx UserTx) error) error {
	l := s.userLock(userID)
	l.Lock()
	defer l.Unlock()

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("transaction aborted: %w", err)
	}

	s.mu.RLock()
	cur := s.users[userID]
	s.mu.RUnlock()

	var work *userState
	if cur == nil {
		work = newUserState()
	} else {
		work = cur.clone()
	}

	if err := fn(&memTx{u: work}); err != nil {
		return err
	}

	s.mu.Lock()
	s.users[userID] = work
	s.mu.Unlock()
	return nil
}

// BestEvents implements Store.
func (s *MemStore) BestEvents(ctx context.Context, userID int64) ([]model.ScoreEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u := s.users[userID]
	if u == nil {
		return nil, nil
	}
	events := make([]model.ScoreEvent, 0, len(u.bests))
	for _, at := range u.bests {
		events = append(events, u.events[at])
	}
	sort.Slice(events, func(i, j int) bool { return events[i].PlayedAt < events[j].PlayedAt })
	return events, nil
}

// PlayerRating implements Store.
func (s *MemStore) PlayerRating(ctx context.Context, userID int64) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u := s.users[userID]
	if u == nil {
		return 0, nil
	}
	return u.rating, nil
}

// Players implements Store.
func (s *MemStore) Players(ctx context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users)
}

// Close implements Store.
func (s *MemStore) Close() error { return nil }

// memTx operates on the cloned user state.
type memTx struct {
	u *userState
}

func (t *memTx) HasEvent(playedAt int64) (bool, error) {
	_, ok := t.u.events[playedAt]
	return ok, nil
}

func (t *memTx) LastPlayedAt() (int64, error) {
	return t.u.last, nil
}

func (t *memTx) InsertEvent(e model.ScoreEvent) error {
	if _, exists := t.u.events[e.PlayedAt]; exists {
		return fmt.Errorf("event at %d: %w", e.PlayedAt, ErrConflict)
	}
	t.u.events[e.PlayedAt] = e
	if e.PlayedAt > t.u.last {
		t.u.last = e.PlayedAt
	}
	return nil
}

func (t *memTx) BestEvent(chart model.ChartID) (model.ScoreEvent, error) {
	at, ok := t.u.bests[chart]
	if !ok {
		return model.ScoreEvent{}, ErrNotFound
	}
	return t.u.events[at], nil
}

func (t *memTx) SetBest(chart model.ChartID, playedAt int64) error {
	if _, ok := t.u.events[playedAt]; !ok {
		return fmt.Errorf("best points at missing event %d: %w", playedAt, ErrNotFound)
	}
	t.u.bests[chart] = playedAt
	return nil
}

func (t *memTx) PoolState() (pool.State, error) {
	st := pool.State{Recent: make(map[model.ChartID]pool.Entry)}
	for at, recent := range t.u.pool {
		ev, ok := t.u.events[at]
		if !ok {
			return pool.State{}, fmt.Errorf("pool row %d has no event: %w", at, ErrNotFound)
		}
		entry := pool.Entry{Chart: ev.Chart(), PlayedAt: at, Rating: ev.Rating}
		if recent {
			st.Recent[entry.Chart] = entry
		} else {
			st.Normal = append(st.Normal, entry)
		}
	}
	return st, nil
}

func (t *memTx) ApplyPool(muts []pool.Mutation) error {
	for _, m := range muts {
		switch m.Op {
		case pool.OpInsert:
			if _, exists := t.u.pool[m.PlayedAt]; exists {
				return fmt.Errorf("pool insert %d: %w", m.PlayedAt, ErrConflict)
			}
			t.u.pool[m.PlayedAt] = m.Recent
		case pool.OpReplace:
			if _, ok := t.u.pool[m.PlayedAt]; !ok {
				return fmt.Errorf("pool replace %d: %w", m.PlayedAt, ErrNotFound)
			}
			delete(t.u.pool, m.PlayedAt)
			t.u.pool[m.NewPlayedAt] = m.Recent
		case pool.OpFlag:
			if _, ok := t.u.pool[m.PlayedAt]; !ok {
				return fmt.Errorf("pool flag %d: %w", m.PlayedAt, ErrNotFound)
			}
			t.u.pool[m.PlayedAt] = true
		default:
			return fmt.Errorf("unknown pool op %d", m.Op)
		}
	}
	return nil
}

func (t *memTx) BestRatings(limit int) ([]float64, error) {
	ratings := make([]float64, 0, len(t.u.bests))
	for _, at := range t.u.bests {
		ratings = append(ratings, t.u.events[at].Rating)
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(ratings)))
	if len(ratings) > limit {
		ratings = ratings[:limit]
	}
	return ratings, nil
}

func (t *memTx) RecentRatings() ([]float64, error) {
	var ratings []float64
	for at, recent := range t.u.pool {
		if recent {
			ratings = append(ratings, t.u.events[at].Rating)
		}
	}
	return ratings, nil
}

func (t *memTx) SetPlayerRating(rating int64) error {
	t.u.rating = rating
	return nil
}
