// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	repository "github.com/rkoyama/zircon/internal/adapters/repository"
	"github.com/rkoyama/zircon/internal/domain/catalog"
	"github.com/rkoyama/zircon/internal/domain/model"
	"github.com/rkoyama/zircon/internal/domain/pool"
	"github.com/rkoyama/zircon/internal/domain/rating"
	"github.com/rkoyama/zircon/internal/domain/token"
	"github.com/rkoyama/zircon/pkg/logger"
	"github.com/rkoyama/zircon/pkg/metrics"
)

// Default configuration.
const (
	defaultLookupLimit    = 60
	defaultTokenCacheSize = 50000
)

// Service implements score submission and the read-side projections.
type Service struct {
	mu sync.RWMutex

	store  repository.Store
	charts catalog.Catalog
	tokens token.Registry
	clock  func() int64

	lookupLimit    int
	tokenCacheSize int
	requireToken   bool

	started bool
	logger  logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the score store backend.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithCatalog sets the chart catalog.
func WithCatalog(c catalog.Catalog) Option {
	return func(s *Service) {
		if c != nil {
			s.charts = c
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides the submission timestamp source (unix seconds).
func WithClock(clock func() int64) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithLookupLimit caps the score-lookup page size.
func WithLookupLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.lookupLimit = n
		}
	}
}

// WithRequireToken makes submissions without a redeemable token fail.
func WithRequireToken(require bool) Option {
	return func(s *Service) {
		s.requireToken = require
	}
}

// WithTokenCacheSize bounds the outstanding-token registry.
func WithTokenCacheSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.tokenCacheSize = n
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		clock:          func() int64 { return time.Now().Unix() },
		lookupLimit:    defaultLookupLimit,
		tokenCacheSize: defaultTokenCacheSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start initializes the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}
	if s.store == nil {
		s.store = repository.NewMemStore()
		s.logger.Info(ctx, "using in-memory score store")
	}
	if s.charts == nil {
		return errors.New("no chart catalog configured")
	}
	if s.tokens == nil {
		s.tokens = token.NewRegistry(token.WithMaxSize(s.tokenCacheSize))
	}

	s.started = true
	s.logger.Info(ctx, "score service started",
		logger.Int("lookupLimit", s.lookupLimit),
		logger.Int("tokenCacheSize", s.tokenCacheSize),
	)
	return nil
}

// Stop shuts the service down.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.logger.Error(context.Background(), "store close failed", logger.Error(err))
		}
	}
	s.started = false
	s.logger.Info(context.Background(), "score service stopped")
}

// IssueToken mints a submission token.
func (s *Service) IssueToken(ctx context.Context) string {
	return s.tokens.Issue(ctx)
}

// SubmitScore processes one play: rate it, append the event, refresh the
// personal best, rework the recent pool and persist the recomputed player
// rating, all inside one per-user transaction.
func (s *Service) SubmitScore(ctx context.Context, userID int64, sub model.ScoreSubmission) (model.RatingSnapshot, error) {
	if err := validate(sub); err != nil {
		metrics.RecordSubmissionRejected("invalid")
		return model.RatingSnapshot{}, err
	}
	if s.requireToken && !s.tokens.Redeem(ctx, sub.SongToken) {
		metrics.RecordSubmissionRejected("bad_token")
		return model.RatingSnapshot{}, ErrBadToken
	}

	base, ok := s.charts.BaseRating(sub.Chart())
	if !ok {
		metrics.RecordSubmissionRejected("chart_not_found")
		return model.RatingSnapshot{}, fmt.Errorf("%s/%d: %w", sub.SongID, sub.Difficulty, ErrChartNotFound)
	}
	playRating := rating.Play(base, sub.Score)

	var snap model.RatingSnapshot
	err := s.store.WithUserTx(ctx, userID, func(tx repository.UserTx) error {
		playedAt, err := resolvePlayedAt(tx, sub.PlayedAt, s.clock)
		if err != nil {
			return err
		}
		ev := newEvent(userID, sub, playedAt, playRating)
		if err := tx.InsertEvent(ev); err != nil {
			return err
		}

		improved, err := updateBest(tx, ev)
		if err != nil {
			return err
		}

		st, err := tx.PoolState()
		if err != nil {
			return err
		}
		muts := pool.Decide(st, pool.Play{
			Chart:     ev.Chart(),
			PlayedAt:  playedAt,
			Rating:    playRating,
			Score:     ev.Score,
			HardClear: ev.ClearType.IsHardClear(),
		})
		if err := tx.ApplyPool(muts); err != nil {
			return err
		}
		recordPoolActivity(muts)

		best, err := tx.BestRatings(rating.TopBests)
		if err != nil {
			return err
		}
		recent, err := tx.RecentRatings()
		if err != nil {
			return err
		}
		scaled := rating.Aggregate(best, recent)
		if err := tx.SetPlayerRating(scaled); err != nil {
			return err
		}

		snap = model.RatingSnapshot{UserID: userID, Rating: scaled}
		s.logger.Debug(ctx, "submission accepted",
			logger.Int64("user", userID),
			logger.String("song", ev.SongID),
			logger.Int("difficulty", ev.Difficulty),
			logger.Float64("playRating", playRating),
			logger.Any("improvedBest", improved),
			logger.Int("poolMutations", len(muts)),
			logger.Int("rating", int(scaled)),
		)
		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			metrics.RecordSubmissionRejected("conflict")
		} else {
			metrics.RecordSubmissionRejected("storage")
		}
		return model.RatingSnapshot{}, err
	}
	metrics.RecordSubmissionAccepted()
	return snap, nil
}

// PersonalBests exports the user's current personal-best events for the
// save-backup caller.
func (s *Service) PersonalBests(ctx context.Context, userID int64) ([]model.ScoreEvent, error) {
	return s.store.BestEvents(ctx, userID)
}

// Leaderboard returns the score-lookup page: personal bests joined with
// catalog data, highest rating first.
func (s *Service) Leaderboard(ctx context.Context, userID int64) ([]model.ScoredChartView, error) {
	events, err := s.store.BestEvents(ctx, userID)
	if err != nil {
		return nil, err
	}
	views := make([]model.ScoredChartView, 0, len(events))
	for _, ev := range events {
		c, ok := s.charts.Lookup(ev.Chart())
		if !ok {
			// Chart dropped from the catalog; the best still counts toward
			// the rating but has no page row.
			continue
		}
		views = append(views, model.ScoredChartView{
			Title:      c.Title,
			Difficulty: model.DifficultyName(ev.Difficulty),
			Score:      ev.Score,
			Shiny:      ev.Shiny,
			Pure:       ev.Pure,
			Far:        ev.Far,
			Lost:       ev.Lost,
			ClearType:  ev.ClearType.String(),
			Grade:      model.Grade(ev.Score),
			Rating:     ev.Rating,
			BaseRating: c.Rating,
			PlayedAt:   ev.PlayedAt,
		})
	}
	sort.Slice(views, func(i, j int) bool { return views[i].Rating > views[j].Rating })
	if len(views) > s.lookupLimit {
		views = views[:s.lookupLimit]
	}
	return views, nil
}

// PlayerRating returns the stored scaled rating for a player.
func (s *Service) PlayerRating(ctx context.Context, userID int64) (model.RatingSnapshot, error) {
	r, err := s.store.PlayerRating(ctx, userID)
	if err != nil {
		return model.RatingSnapshot{}, err
	}
	return model.RatingSnapshot{UserID: userID, Rating: r}, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":      s.started,
		"lookupLimit":  s.lookupLimit,
		"requireToken": s.requireToken,
	}
	if s.started {
		players := s.store.Players(ctx)
		stats["players"] = players
		stats["outstandingTokens"] = s.tokens.Size()
		metrics.UpdateTrackedPlayers(players)
	}
	return stats
}

func newEvent(userID int64, sub model.ScoreSubmission, playedAt int64, playRating float64) model.ScoreEvent {
	return model.ScoreEvent{
		UserID:     userID,
		PlayedAt:   playedAt,
		SongID:     sub.SongID,
		Difficulty: sub.Difficulty,
		Score:      sub.Score,
		Shiny:      sub.Shiny,
		Pure:       sub.Pure,
		Far:        sub.Far,
		Lost:       sub.Lost,
		Health:     sub.Health,
		Modifier:   sub.Modifier,
		ClearType:  sub.ClearType,
		Rating:     playRating,
	}
}

func validate(sub model.ScoreSubmission) error {
	switch {
	case sub.SongID == "":
		return fmt.Errorf("missing song id: %w", ErrInvalidSubmission)
	case sub.Difficulty < 0:
		return fmt.Errorf("negative difficulty: %w", ErrInvalidSubmission)
	case sub.Score < 0:
		return fmt.Errorf("negative score: %w", ErrInvalidSubmission)
	case sub.PlayedAt < 0:
		return fmt.Errorf("negative timestamp: %w", ErrInvalidSubmission)
	}
	return nil
}

// resolvePlayedAt picks the event timestamp. Server-assigned timestamps are
// strictly monotonic per user so the (user, playedAt) key never collides;
// caller-supplied ones (backup restore) must be unused.
func resolvePlayedAt(tx repository.UserTx, requested int64, now func() int64) (int64, error) {
	if requested > 0 {
		taken, err := tx.HasEvent(requested)
		if err != nil {
			return 0, err
		}
		if taken {
			return 0, fmt.Errorf("played_at %d already recorded: %w", requested, repository.ErrConflict)
		}
		return requested, nil
	}
	last, err := tx.LastPlayedAt()
	if err != nil {
		return 0, err
	}
	at := now()
	if at <= last {
		at = last + 1
	}
	return at, nil
}

// updateBest keeps the strictly-greater personal best. Ties lose.
func updateBest(tx repository.UserTx, ev model.ScoreEvent) (bool, error) {
	cur, err := tx.BestEvent(ev.Chart())
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return true, tx.SetBest(ev.Chart(), ev.PlayedAt)
	case err != nil:
		return false, err
	}
	if ev.Score > cur.Score {
		return true, tx.SetBest(ev.Chart(), ev.PlayedAt)
	}
	return false, nil
}

func recordPoolActivity(muts []pool.Mutation) {
	for _, m := range muts {
		switch m.Op {
		case pool.OpReplace:
			metrics.RecordPoolEviction()
		case pool.OpFlag:
			metrics.RecordPoolPromotion()
		}
	}
}
