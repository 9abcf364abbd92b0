package repository

import "github.com/rkoyama/zircon/internal/domain/model"

// Row types for the sqlite backend. Column names follow the classic score
// database layout so existing dumps keep working.

type scoreRow struct {
	UserID     int64   `gorm:"column:user_id;primaryKey;autoIncrement:false"`
	PlayedAt   int64   `gorm:"column:played_date;primaryKey;autoIncrement:false"`
	SongID     string  `gorm:"column:song_id"`
	Difficulty int     `gorm:"column:difficulty"`
	Score      int64   `gorm:"column:score"`
	Shiny      int64   `gorm:"column:shiny_pure"`
	Pure       int64   `gorm:"column:pure"`
	Far        int64   `gorm:"column:far"`
	Lost       int64   `gorm:"column:lost"`
	Rating     float64 `gorm:"column:rating"`
	Health     int     `gorm:"column:health"`
	Modifier   int64   `gorm:"column:modifier"`
	ClearType  int     `gorm:"column:clear_type"`
}

func (scoreRow) TableName() string { return "scores" }

func (r scoreRow) event() model.ScoreEvent {
	return model.ScoreEvent{
		UserID:     r.UserID,
		PlayedAt:   r.PlayedAt,
		SongID:     r.SongID,
		Difficulty: r.Difficulty,
		Score:      r.Score,
		Shiny:      r.Shiny,
		Pure:       r.Pure,
		Far:        r.Far,
		Lost:       r.Lost,
		Health:     r.Health,
		Modifier:   r.Modifier,
		ClearType:  model.ClearType(r.ClearType),
		Rating:     r.Rating,
	}
}

func newScoreRow(e model.ScoreEvent) scoreRow {
	return scoreRow{
		UserID:     e.UserID,
		PlayedAt:   e.PlayedAt,
		SongID:     e.SongID,
		Difficulty: e.Difficulty,
		Score:      e.Score,
		Shiny:      e.Shiny,
		Pure:       e.Pure,
		Far:        e.Far,
		Lost:       e.Lost,
		Rating:     e.Rating,
		Health:     e.Health,
		Modifier:   e.Modifier,
		ClearType:  int(e.ClearType),
	}
}

type bestRow struct {
	UserID     int64  `gorm:"column:user_id;primaryKey;autoIncrement:false"`
	SongID     string `gorm:"column:song_id;primaryKey"`
	Difficulty int    `gorm:"column:difficulty;primaryKey;autoIncrement:false"`
	PlayedAt   int64  `gorm:"column:played_date"`
}

func (bestRow) TableName() string { return "best_scores" }

type recentRow struct {
	UserID   int64 `gorm:"column:user_id;primaryKey;autoIncrement:false"`
	PlayedAt int64 `gorm:"column:played_date;primaryKey;autoIncrement:false"`
	IsRecent bool  `gorm:"column:is_recent_10"`
}

func (recentRow) TableName() string { return "recent_scores" }

type playerRow struct {
	UserID int64 `gorm:"column:user_id;primaryKey;autoIncrement:false"`
	Rating int64 `gorm:"column:rating"`
}

func (playerRow) TableName() string { return "players" }

type chartRow struct {
	SongID     string  `gorm:"column:song_id;primaryKey"`
	Difficulty int     `gorm:"column:difficulty;primaryKey;autoIncrement:false"`
	Rating     float64 `gorm:"column:rating"`
	Title      string  `gorm:"column:title"`
}

func (chartRow) TableName() string { return "charts" }
