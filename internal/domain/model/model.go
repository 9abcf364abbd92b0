// Package model contains domain models passed between layers.
package model

// ChartID identifies a chart: one song at one difficulty.
type ChartID struct {
	SongID     string `json:"song_id"`
	Difficulty int    `json:"difficulty"`
}

// Difficulty labels in chart order.
var difficultyNames = [...]string{"PST", "PRS", "FTR", "BYD"}

// DifficultyName returns the short label for a difficulty index, or "?" when
// the index is outside the known range.
func DifficultyName(d int) string {
	if d < 0 || d >= len(difficultyNames) {
		return "?"
	}
	return difficultyNames[d]
}

// ClearType is the clear grade reported with a play.
type ClearType int

const (
	ClearTrackLost ClearType = iota
	ClearNormal
	ClearFullRecall
	ClearPureMemory
	ClearEasy
	ClearHard
)

var clearTypeNames = [...]string{
	"track-lost",
	"normal-clear",
	"full-recall",
	"pure-memory",
	"easy-clear",
	"hard-clear",
}

func (c ClearType) String() string {
	if c < 0 || int(c) >= len(clearTypeNames) {
		return "unknown"
	}
	return clearTypeNames[c]
}

// IsHardClear reports whether the clear grade counts as a hard clear for the
// pool exemption rule.
func (c ClearType) IsHardClear() bool { return c == ClearHard }

// gradeSteps are the score thresholds separating letter grades, lowest first.
var gradeSteps = [...]int64{0, 8_600_000, 8_900_000, 9_200_000, 9_500_000, 9_800_000, 9_900_000}

// Grade maps a score to its letter-grade index (0 = lowest). Scores below the
// first step still land in grade 0.
func Grade(score int64) int {
	grade := -1
	for _, step := range gradeSteps {
		if score < step {
			break
		}
		grade++
	}
	if grade < 0 {
		grade = 0
	}
	return grade
}

// ScoreSubmission is one play as reported by a client. Field names mirror the
// game client's upload form.
type ScoreSubmission struct {
	SongToken  string    `json:"song_token"`
	SongID     string    `json:"song_id"`
	Difficulty int       `json:"difficulty"`
	Score      int64     `json:"score"`
	Shiny      int64     `json:"shiny_perfect_count"`
	Pure       int64     `json:"perfect_count"`
	Far        int64     `json:"near_count"`
	Lost       int64     `json:"miss_count"`
	Health     int       `json:"health"`
	Modifier   int64     `json:"modifier"`
	ClearType  ClearType `json:"clear_type"`

	// PlayedAt is optional; zero means "now". Backup restore supplies the
	// historical timestamp of the original play.
	PlayedAt int64 `json:"played_at,omitempty"`
}

// Chart returns the chart this submission was played on.
func (s ScoreSubmission) Chart() ChartID {
	return ChartID{SongID: s.SongID, Difficulty: s.Difficulty}
}

// ScoreEvent is a submission as stored: immutable, append-only, uniquely keyed
// by (user, PlayedAt). The json names match ScoreSubmission so an exported
// event can be posted back as-is on restore.
type ScoreEvent struct {
	UserID     int64     `json:"user_id"`
	PlayedAt   int64     `json:"played_at"`
	SongID     string    `json:"song_id"`
	Difficulty int       `json:"difficulty"`
	Score      int64     `json:"score"`
	Shiny      int64     `json:"shiny_perfect_count"`
	Pure       int64     `json:"perfect_count"`
	Far        int64     `json:"near_count"`
	Lost       int64     `json:"miss_count"`
	Health     int       `json:"health"`
	Modifier   int64     `json:"modifier"`
	ClearType  ClearType `json:"clear_type"`
	Rating     float64   `json:"rating"`
}

// Chart returns the chart this event was played on.
func (e ScoreEvent) Chart() ChartID {
	return ChartID{SongID: e.SongID, Difficulty: e.Difficulty}
}

// RatingSnapshot is the derived player rating after a submission.
type RatingSnapshot struct {
	UserID int64 `json:"user_id"`
	// Rating is the combined b30/r10 mean scaled by 100.
	Rating int64 `json:"rating"`
}

// ScoredChartView is one row of the score-lookup page: a personal best joined
// with catalog data.
type ScoredChartView struct {
	Title      string  `json:"title"`
	Difficulty string  `json:"difficulty"`
	Score      int64   `json:"score"`
	Shiny      int64   `json:"shiny_perfect_count"`
	Pure       int64   `json:"perfect_count"`
	Far        int64   `json:"near_count"`
	Lost       int64   `json:"miss_count"`
	ClearType  string  `json:"clear_type"`
	Grade      int     `json:"grade"`
	Rating     float64 `json:"rating"`
	BaseRating float64 `json:"base_rating"`
	PlayedAt   int64   `json:"played_at"`
}
