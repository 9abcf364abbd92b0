// Package repository defines the score store interface and its backends.
package repository

import (
	"context"

	"github.com/rkoyama/zircon/internal/domain/model"
	"github.com/rkoyama/zircon/internal/domain/pool"
)

// Store provides access to one instance of the score database.
type Store interface {
	// WithUserTx runs fn inside an atomic transaction over a single user's
	// data. Either every write fn performs lands, or none do. Transactions
	// for the same user are serialized; different users may proceed in
	// parallel.
	WithUserTx(ctx context.Context, userID int64, fn func(tx UserTx) error) error

	// BestEvents returns the user's current personal-best events, ordered by
	// play time. Read-only; used by backup export and the lookup page.
	BestEvents(ctx context.Context, userID int64) ([]model.ScoreEvent, error)

	// PlayerRating returns the stored scaled rating, 0 for unknown users.
	PlayerRating(ctx context.Context, userID int64) (int64, error)

	// Players returns the number of players with stored data.
	Players(ctx context.Context) int

	Close() error
}

// UserTx is the per-user transactional surface the submission flow writes
// through.
type UserTx interface {
	// HasEvent reports whether an event with this timestamp already exists.
	HasEvent(playedAt int64) (bool, error)

	// LastPlayedAt returns the newest event timestamp, 0 when none exist.
	LastPlayedAt() (int64, error)

	// InsertEvent appends an immutable score event.
	InsertEvent(e model.ScoreEvent) error

	// BestEvent returns the event currently holding the chart's personal
	// best. Returns ErrNotFound when the chart was never cleared.
	BestEvent(chart model.ChartID) (model.ScoreEvent, error)

	// SetBest points the chart's personal best at the given event.
	SetBest(chart model.ChartID, playedAt int64) error

	// PoolState snapshots the user's tracked-play pool.
	PoolState() (pool.State, error)

	// ApplyPool applies the maintainer's row mutations.
	ApplyPool(muts []pool.Mutation) error

	// BestRatings returns up to limit personal-best ratings, highest first.
	BestRatings(limit int) ([]float64, error)

	// RecentRatings returns the ratings of the flagged pool entries.
	RecentRatings() ([]float64, error)

	// SetPlayerRating stores the recomputed scaled rating.
	SetPlayerRating(rating int64) error
}
