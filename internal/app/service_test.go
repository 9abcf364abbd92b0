package service_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/rkoyama/zircon/internal/adapters/repository"
	service "github.com/rkoyama/zircon/internal/app"
	"github.com/rkoyama/zircon/internal/domain/catalog"
	"github.com/rkoyama/zircon/internal/domain/model"
	"github.com/rkoyama/zircon/internal/domain/rating"
	"github.com/rkoyama/zircon/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

// testCharts builds a catalog of n base-11 charts named song-0..song-(n-1),
// all at difficulty 2, plus one low-rated chart.
func testCharts(n int) *catalog.Memory {
	charts := make([]catalog.Chart, 0, n+1)
	for i := 0; i < n; i++ {
		charts = append(charts, catalog.Chart{
			SongID:     fmt.Sprintf("song-%d", i),
			Difficulty: 2,
			Rating:     11.0,
			Title:      fmt.Sprintf("Song %d", i),
		})
	}
	charts = append(charts, catalog.Chart{SongID: "easy", Difficulty: 0, Rating: 2.0, Title: "Easy"})
	return catalog.New(charts...)
}

// tickClock returns a clock that advances one second per call.
func tickClock(start int64) func() int64 {
	t := start
	return func() int64 {
		t++
		return t
	}
}

func startService(t *testing.T, opts ...service.Option) *service.Service {
	t.Helper()
	opts = append([]service.Option{
		service.WithCatalog(testCharts(40)),
		service.WithClock(tickClock(1_000_000)),
	}, opts...)
	svc := service.New(opts...)
	if err := svc.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(svc.Stop)
	return svc
}

func submission(song string, score int64) model.ScoreSubmission {
	return model.ScoreSubmission{
		SongID:     song,
		Difficulty: 2,
		Score:      score,
		Pure:       900,
		Far:        10,
		Health:     100,
		ClearType:  model.ClearNormal,
	}
}

func TestSubmitScoreRating(t *testing.T) {
	convey.Convey("Given a started service", t, func() {
		ctx := context.Background()
		svc := startService(t)

		convey.Convey("When a new user submits one 9,650,000 play on a base-11 chart", func() {
			snap, err := svc.SubmitScore(ctx, 1, submission("song-0", 9_650_000))

			convey.Convey("Then the play rates 11.5 and the player rating is 1150", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(snap.UserID, convey.ShouldEqual, 1)
				// One best and one flagged recent, both 11.5.
				convey.So(snap.Rating, convey.ShouldEqual, 1150)
			})
		})

		convey.Convey("When the same chart is played again with a higher score", func() {
			_, err := svc.SubmitScore(ctx, 1, submission("song-0", 9_500_000))
			convey.So(err, convey.ShouldBeNil)
			_, err = svc.SubmitScore(ctx, 1, submission("song-0", 9_800_000))
			convey.So(err, convey.ShouldBeNil)

			convey.Convey("Then the personal best moves to the newer event", func() {
				bests, err := svc.PersonalBests(ctx, 1)
				convey.So(err, convey.ShouldBeNil)
				convey.So(bests, convey.ShouldHaveLength, 1)
				convey.So(bests[0].Score, convey.ShouldEqual, 9_800_000)
			})
		})

		convey.Convey("When the same chart is replayed with a lower score", func() {
			_, err := svc.SubmitScore(ctx, 1, submission("song-0", 9_800_000))
			convey.So(err, convey.ShouldBeNil)
			_, err = svc.SubmitScore(ctx, 1, submission("song-0", 9_500_000))
			convey.So(err, convey.ShouldBeNil)

			convey.Convey("Then the personal best stays put", func() {
				bests, err := svc.PersonalBests(ctx, 1)
				convey.So(err, convey.ShouldBeNil)
				convey.So(bests, convey.ShouldHaveLength, 1)
				convey.So(bests[0].Score, convey.ShouldEqual, 9_800_000)
			})
		})

		convey.Convey("When a tie score is replayed", func() {
			_, err := svc.SubmitScore(ctx, 1, submission("song-0", 9_800_000))
			convey.So(err, convey.ShouldBeNil)
			bestsBefore, _ := svc.PersonalBests(ctx, 1)

			_, err = svc.SubmitScore(ctx, 1, submission("song-0", 9_800_000))
			convey.So(err, convey.ShouldBeNil)

			convey.Convey("Then the earlier event keeps the best", func() {
				bests, err := svc.PersonalBests(ctx, 1)
				convey.So(err, convey.ShouldBeNil)
				convey.So(bests, convey.ShouldHaveLength, 1)
				convey.So(bests[0].PlayedAt, convey.ShouldEqual, bestsBefore[0].PlayedAt)
			})
		})

		convey.Convey("When a user has never submitted", func() {
			snap, err := svc.PlayerRating(ctx, 77)

			convey.Convey("Then their rating reads 0", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(snap.Rating, convey.ShouldEqual, 0)
			})
		})
	})
}

func TestSubmitScoreRejections(t *testing.T) {
	convey.Convey("Given a started service", t, func() {
		ctx := context.Background()
		svc := startService(t)

		convey.Convey("When the chart is not in the catalog", func() {
			_, err := svc.SubmitScore(ctx, 1, submission("no-such-song", 9_500_000))
			convey.So(errors.Is(err, service.ErrChartNotFound), convey.ShouldBeTrue)
		})

		convey.Convey("When the difficulty is not in the catalog", func() {
			sub := submission("song-0", 9_500_000)
			sub.Difficulty = 3
			_, err := svc.SubmitScore(ctx, 1, sub)
			convey.So(errors.Is(err, service.ErrChartNotFound), convey.ShouldBeTrue)
		})

		convey.Convey("When the submission is malformed", func() {
			cases := []model.ScoreSubmission{
				{SongID: "", Difficulty: 2, Score: 1},
				{SongID: "song-0", Difficulty: -1, Score: 1},
				{SongID: "song-0", Difficulty: 2, Score: -5},
				{SongID: "song-0", Difficulty: 2, Score: 1, PlayedAt: -10},
			}
			for _, sub := range cases {
				_, err := svc.SubmitScore(ctx, 1, sub)
				convey.So(errors.Is(err, service.ErrInvalidSubmission), convey.ShouldBeTrue)
			}
		})
	})
}

func TestSubmitScoreTimestamps(t *testing.T) {
	convey.Convey("Given a service with a frozen clock", t, func() {
		ctx := context.Background()
		frozen := func() int64 { return 5_000 }
		svc := startService(t, service.WithClock(frozen))

		convey.Convey("When several plays land on the same clock reading", func() {
			for i := 0; i < 3; i++ {
				_, err := svc.SubmitScore(ctx, 1, submission(fmt.Sprintf("song-%d", i), 9_500_000))
				convey.So(err, convey.ShouldBeNil)
			}

			convey.Convey("Then server-assigned timestamps stay strictly increasing", func() {
				bests, err := svc.PersonalBests(ctx, 1)
				convey.So(err, convey.ShouldBeNil)
				convey.So(bests, convey.ShouldHaveLength, 3)
				convey.So(bests[0].PlayedAt, convey.ShouldEqual, 5_000)
				convey.So(bests[1].PlayedAt, convey.ShouldEqual, 5_001)
				convey.So(bests[2].PlayedAt, convey.ShouldEqual, 5_002)
			})
		})

		convey.Convey("When a restore supplies an explicit historical timestamp", func() {
			sub := submission("song-0", 9_500_000)
			sub.PlayedAt = 1_234
			_, err := svc.SubmitScore(ctx, 1, sub)
			convey.So(err, convey.ShouldBeNil)

			bests, err := svc.PersonalBests(ctx, 1)
			convey.So(err, convey.ShouldBeNil)
			convey.So(bests[0].PlayedAt, convey.ShouldEqual, 1_234)

			convey.Convey("And a colliding timestamp is rejected as a conflict", func() {
				again := submission("song-1", 9_500_000)
				again.PlayedAt = 1_234
				_, err := svc.SubmitScore(ctx, 1, again)
				convey.So(errors.Is(err, repository.ErrConflict), convey.ShouldBeTrue)

				convey.Convey("Without leaving partial state behind", func() {
					bests, err := svc.PersonalBests(ctx, 1)
					convey.So(err, convey.ShouldBeNil)
					convey.So(bests, convey.ShouldHaveLength, 1)
				})
			})
		})
	})
}

func TestSubmitScorePoolBounds(t *testing.T) {
	convey.Convey("Given a user grinding many distinct charts", t, func() {
		ctx := context.Background()
		svc := startService(t)

		for i := 0; i < 35; i++ {
			_, err := svc.SubmitScore(ctx, 1, submission(fmt.Sprintf("song-%d", i), 9_650_000))
			convey.So(err, convey.ShouldBeNil)
		}

		convey.Convey("Then every play became a personal best", func() {
			bests, err := svc.PersonalBests(ctx, 1)
			convey.So(err, convey.ShouldBeNil)
			convey.So(bests, convey.ShouldHaveLength, 35)
		})

		convey.Convey("Then the rating still averages the capped b30 and r10", func() {
			// All plays rate 11.5, so the bounded pool cannot change the mean.
			snap, err := svc.PlayerRating(ctx, 1)
			convey.So(err, convey.ShouldBeNil)
			convey.So(snap.Rating, convey.ShouldEqual, 1150)
		})
	})
}

func TestSubmitScoreMixedRatings(t *testing.T) {
	convey.Convey("Given plays with different ratings", t, func() {
		ctx := context.Background()
		svc := startService(t)

		// A strong play (12.0) and a weak one on a low chart (2.0 base,
		// 9,500,000 -> 2.0).
		_, err := svc.SubmitScore(ctx, 1, submission("song-0", 9_800_000))
		convey.So(err, convey.ShouldBeNil)

		weak := submission("easy", 9_500_000)
		weak.Difficulty = 0
		_, err = svc.SubmitScore(ctx, 1, weak)
		convey.So(err, convey.ShouldBeNil)

		convey.Convey("Then the aggregate averages bests and flagged recents", func() {
			// bests: 12.0, 2.0; recents: 12.0, 2.0 -> mean 7.0 -> 700.
			snap, err := svc.PlayerRating(ctx, 1)
			convey.So(err, convey.ShouldBeNil)
			convey.So(snap.Rating, convey.ShouldEqual, 700)
			convey.So(snap.Rating, convey.ShouldEqual, rating.Aggregate(
				[]float64{12.0, 2.0}, []float64{12.0, 2.0},
			))
		})
	})
}

func TestSubmitScoreTokens(t *testing.T) {
	convey.Convey("Given a service that requires submission tokens", t, func() {
		ctx := context.Background()
		svc := startService(t, service.WithRequireToken(true))

		convey.Convey("When a submission carries no token", func() {
			_, err := svc.SubmitScore(ctx, 1, submission("song-0", 9_500_000))
			convey.So(errors.Is(err, service.ErrBadToken), convey.ShouldBeTrue)
		})

		convey.Convey("When a submission carries an issued token", func() {
			sub := submission("song-0", 9_500_000)
			sub.SongToken = svc.IssueToken(ctx)
			_, err := svc.SubmitScore(ctx, 1, sub)
			convey.So(err, convey.ShouldBeNil)

			convey.Convey("Then the token cannot be replayed", func() {
				again := submission("song-1", 9_500_000)
				again.SongToken = sub.SongToken
				_, err := svc.SubmitScore(ctx, 1, again)
				convey.So(errors.Is(err, service.ErrBadToken), convey.ShouldBeTrue)
			})
		})
	})
}

func TestLeaderboard(t *testing.T) {
	convey.Convey("Given a user with scored charts", t, func() {
		ctx := context.Background()
		svc := startService(t, service.WithLookupLimit(3))

		scores := []int64{9_500_000, 9_900_000, 9_650_000, 9_800_000, 10_000_000}
		for i, score := range scores {
			_, err := svc.SubmitScore(ctx, 1, submission(fmt.Sprintf("song-%d", i), score))
			convey.So(err, convey.ShouldBeNil)
		}

		convey.Convey("When the lookup page is fetched", func() {
			views, err := svc.Leaderboard(ctx, 1)

			convey.Convey("Then rows come highest-rated first, capped at the limit", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(views, convey.ShouldHaveLength, 3)
				convey.So(views[0].Score, convey.ShouldEqual, 10_000_000)
				convey.So(views[1].Score, convey.ShouldEqual, 9_900_000)
				convey.So(views[2].Score, convey.ShouldEqual, 9_800_000)
			})

			convey.Convey("Then rows carry the catalog join", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(views[0].Title, convey.ShouldEqual, "Song 4")
				convey.So(views[0].Difficulty, convey.ShouldEqual, "FTR")
				convey.So(views[0].BaseRating, convey.ShouldEqual, 11.0)
				convey.So(views[0].ClearType, convey.ShouldEqual, "normal-clear")
				convey.So(views[0].Grade, convey.ShouldEqual, model.Grade(10_000_000))
				convey.So(views[1].Grade, convey.ShouldEqual, 6) // 9,900,000
				convey.So(views[2].Grade, convey.ShouldEqual, 5) // 9,800,000
				convey.So(views[0].Rating, convey.ShouldEqual, 13.0)
			})
		})

		convey.Convey("When a user has no plays", func() {
			views, err := svc.Leaderboard(ctx, 9)
			convey.So(err, convey.ShouldBeNil)
			convey.So(views, convey.ShouldBeEmpty)
		})
	})
}

func TestGetStats(t *testing.T) {
	convey.Convey("Given a started service", t, func() {
		ctx := context.Background()
		svc := startService(t)

		_, err := svc.SubmitScore(ctx, 1, submission("song-0", 9_500_000))
		convey.So(err, convey.ShouldBeNil)
		_ = svc.IssueToken(ctx)

		convey.Convey("When stats are read", func() {
			stats := svc.GetStats()

			convey.Convey("Then they report the service state", func() {
				convey.So(stats["started"], convey.ShouldBeTrue)
				convey.So(stats["players"], convey.ShouldEqual, 1)
				convey.So(stats["outstandingTokens"], convey.ShouldEqual, 1)
				convey.So(stats["lookupLimit"], convey.ShouldEqual, 60)
			})
		})
	})
}
