package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/rkoyama/zircon/internal/domain/catalog"
	"github.com/rkoyama/zircon/internal/domain/model"
	"github.com/rkoyama/zircon/internal/domain/pool"
)

// GormStore is the sqlite-backed Store. It also serves as a chart catalog
// when the charts table is populated.
type GormStore struct {
	db    *gorm.DB
	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

// OpenSQLite opens (and migrates) a sqlite score database.
func OpenSQLite(path string) (*GormStore, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite store: %w", err)
	}
	if err := db.AutoMigrate(&scoreRow{}, &bestRow{}, &recentRow{}, &playerRow{}, &chartRow{}); err != nil {
		return nil, fmt.Errorf("migrate sqlite store: %w", err)
	}
	return &GormStore{db: db, locks: make(map[int64]*sync.Mutex)}, nil
}

// SeedCharts upserts catalog rows into the charts table.
func (s *GormStore) SeedCharts(ctx context.Context, charts []catalog.Chart) error {
	for _, c := range charts {
		row := chartRow{SongID: c.SongID, Difficulty: c.Difficulty, Rating: c.Rating, Title: c.Title}
		err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "song_id"}, {Name: "difficulty"}},
			DoUpdates: clause.AssignmentColumns([]string{"rating", "title"}),
		}).Create(&row).Error
		if err != nil {
			return fmt.Errorf("seed chart %s/%d: %w", c.SongID, c.Difficulty, err)
		}
	}
	return nil
}

// BaseRating implements catalog.Catalog.
func (s *GormStore) BaseRating(chart model.ChartID) (float64, bool) {
	c, ok := s.Lookup(chart)
	if !ok {
		return 0, false
	}
	return c.Rating, true
}

// Lookup implements catalog.Catalog.
func (s *GormStore) Lookup(chart model.ChartID) (catalog.Chart, bool) {
	var row chartRow
	err := s.db.Where("song_id = ? and difficulty = ?", chart.SongID, chart.Difficulty).
		Take(&row).Error
	if err != nil || row.Rating <= 0 {
		return catalog.Chart{}, false
	}
	return catalog.Chart{
		SongID:     row.SongID,
		Difficulty: row.Difficulty,
		Rating:     row.Rating,
		Title:      row.Title,
	}, true
}

func (s *GormStore) userLock(userID int64) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[userID] = l
	}
	return l
}

// WithUserTx implements Store. The per-user lock serializes the decision
// phase; the sql transaction makes the writes atomic.
func (s *GormStore) WithUserTx(ctx context.Context, userID int64, fn func(tx UserTx) error) error {
	l := s.userLock(userID)
	l.Lock()
	defer l.Unlock()

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTx{db: tx, userID: userID})
	})
}

// BestEvents implements Store.
func (s *GormStore) BestEvents(ctx context.Context, userID int64) ([]model.ScoreEvent, error) {
	var rows []scoreRow
	err := s.db.WithContext(ctx).Table("best_scores b").
		Select("s.*").
		Joins("join scores s on s.user_id = b.user_id and s.played_date = b.played_date").
		Where("b.user_id = ?", userID).
		Order("s.played_date asc").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("query best events: %w", err)
	}
	events := make([]model.ScoreEvent, len(rows))
	for i, r := range rows {
		events[i] = r.event()
	}
	return events, nil
}

// PlayerRating implements Store.
func (s *GormStore) PlayerRating(ctx context.Context, userID int64) (int64, error) {
	var row playerRow
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("query player rating: %w", err)
	}
	return row.Rating, nil
}

// Players implements Store.
func (s *GormStore) Players(ctx context.Context) int {
	var n int64
	if err := s.db.WithContext(ctx).Model(&playerRow{}).Count(&n).Error; err != nil {
		return 0
	}
	return int(n)
}

// Close implements Store.
func (s *GormStore) Close() error {
	db, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("close sqlite store: %w", err)
	}
	return db.Close()
}

// gormTx implements UserTx over an open transaction.
type gormTx struct {
	db     *gorm.DB
	userID int64
}

func (t *gormTx) HasEvent(playedAt int64) (bool, error) {
	var n int64
	err := t.db.Model(&scoreRow{}).
		Where("user_id = ? and played_date = ?", t.userID, playedAt).
		Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("query event: %w", err)
	}
	return n > 0, nil
}

func (t *gormTx) LastPlayedAt() (int64, error) {
	var last *int64
	err := t.db.Model(&scoreRow{}).
		Where("user_id = ?", t.userID).
		Select("max(played_date)").
		Scan(&last).Error
	if err != nil {
		return 0, fmt.Errorf("query last played: %w", err)
	}
	if last == nil {
		return 0, nil
	}
	return *last, nil
}

func (t *gormTx) InsertEvent(e model.ScoreEvent) error {
	row := newScoreRow(e)
	if err := t.db.Create(&row).Error; err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

func (t *gormTx) BestEvent(chart model.ChartID) (model.ScoreEvent, error) {
	var best bestRow
	err := t.db.Where("user_id = ? and song_id = ? and difficulty = ?",
		t.userID, chart.SongID, chart.Difficulty).Take(&best).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.ScoreEvent{}, ErrNotFound
	}
	if err != nil {
		return model.ScoreEvent{}, fmt.Errorf("query best: %w", err)
	}
	var row scoreRow
	err = t.db.Where("user_id = ? and played_date = ?", t.userID, best.PlayedAt).
		Take(&row).Error
	if err != nil {
		return model.ScoreEvent{}, fmt.Errorf("query best event: %w", err)
	}
	return row.event(), nil
}

func (t *gormTx) SetBest(chart model.ChartID, playedAt int64) error {
	row := bestRow{UserID: t.userID, SongID: chart.SongID, Difficulty: chart.Difficulty, PlayedAt: playedAt}
	err := t.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "song_id"}, {Name: "difficulty"}},
		DoUpdates: clause.AssignmentColumns([]string{"played_date"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("set best: %w", err)
	}
	return nil
}

func (t *gormTx) PoolState() (pool.State, error) {
	var rows []struct {
		PlayedAt   int64   `gorm:"column:played_date"`
		Rating     float64 `gorm:"column:rating"`
		SongID     string  `gorm:"column:song_id"`
		Difficulty int     `gorm:"column:difficulty"`
		IsRecent   bool    `gorm:"column:is_recent_10"`
	}
	err := t.db.Table("recent_scores r").
		Select("r.played_date, s.rating, s.song_id, s.difficulty, r.is_recent_10").
		Joins("join scores s on s.user_id = r.user_id and s.played_date = r.played_date").
		Where("r.user_id = ?", t.userID).
		Scan(&rows).Error
	if err != nil {
		return pool.State{}, fmt.Errorf("query pool: %w", err)
	}
	st := pool.State{Recent: make(map[model.ChartID]pool.Entry)}
	for _, r := range rows {
		entry := pool.Entry{
			Chart:    model.ChartID{SongID: r.SongID, Difficulty: r.Difficulty},
			PlayedAt: r.PlayedAt,
			Rating:   r.Rating,
		}
		if r.IsRecent {
			st.Recent[entry.Chart] = entry
		} else {
			st.Normal = append(st.Normal, entry)
		}
	}
	return st, nil
}

func (t *gormTx) ApplyPool(muts []pool.Mutation) error {
	for _, m := range muts {
		switch m.Op {
		case pool.OpInsert:
			row := recentRow{UserID: t.userID, PlayedAt: m.PlayedAt, IsRecent: m.Recent}
			if err := t.db.Create(&row).Error; err != nil {
				return fmt.Errorf("pool insert %d: %w", m.PlayedAt, err)
			}
		case pool.OpReplace:
			res := t.db.Model(&recentRow{}).
				Where("user_id = ? and played_date = ?", t.userID, m.PlayedAt).
				Updates(map[string]interface{}{
					"played_date":  m.NewPlayedAt,
					"is_recent_10": m.Recent,
				})
			if res.Error != nil {
				return fmt.Errorf("pool replace %d: %w", m.PlayedAt, res.Error)
			}
			if res.RowsAffected != 1 {
				return fmt.Errorf("pool replace %d: %w", m.PlayedAt, ErrConflict)
			}
		case pool.OpFlag:
			res := t.db.Model(&recentRow{}).
				Where("user_id = ? and played_date = ?", t.userID, m.PlayedAt).
				Update("is_recent_10", true)
			if res.Error != nil {
				return fmt.Errorf("pool flag %d: %w", m.PlayedAt, res.Error)
			}
			if res.RowsAffected != 1 {
				return fmt.Errorf("pool flag %d: %w", m.PlayedAt, ErrConflict)
			}
		default:
			return fmt.Errorf("unknown pool op %d", m.Op)
		}
	}
	return nil
}

func (t *gormTx) BestRatings(limit int) ([]float64, error) {
	var ratings []float64
	err := t.db.Table("best_scores b").
		Select("s.rating").
		Joins("join scores s on s.user_id = b.user_id and s.played_date = b.played_date").
		Where("b.user_id = ?", t.userID).
		Order("s.rating desc").
		Limit(limit).
		Scan(&ratings).Error
	if err != nil {
		return nil, fmt.Errorf("query best ratings: %w", err)
	}
	return ratings, nil
}

func (t *gormTx) RecentRatings() ([]float64, error) {
	var ratings []float64
	err := t.db.Table("recent_scores r").
		Select("s.rating").
		Joins("join scores s on s.user_id = r.user_id and s.played_date = r.played_date").
		Where("r.user_id = ? and r.is_recent_10 = ?", t.userID, true).
		Scan(&ratings).Error
	if err != nil {
		return nil, fmt.Errorf("query recent ratings: %w", err)
	}
	return ratings, nil
}

func (t *gormTx) SetPlayerRating(rating int64) error {
	row := playerRow{UserID: t.userID, Rating: rating}
	err := t.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"rating"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("set player rating: %w", err)
	}
	return nil
}
