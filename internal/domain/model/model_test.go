package model_test

import (
	"encoding/json"
	"testing"

	"github.com/rkoyama/zircon/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestDifficultyName(t *testing.T) {
	convey.Convey("Given the difficulty labels", t, func() {
		convey.So(model.DifficultyName(0), convey.ShouldEqual, "PST")
		convey.So(model.DifficultyName(1), convey.ShouldEqual, "PRS")
		convey.So(model.DifficultyName(2), convey.ShouldEqual, "FTR")
		convey.So(model.DifficultyName(3), convey.ShouldEqual, "BYD")

		convey.Convey("Then out-of-range indexes map to a placeholder", func() {
			convey.So(model.DifficultyName(-1), convey.ShouldEqual, "?")
			convey.So(model.DifficultyName(4), convey.ShouldEqual, "?")
		})
	})
}

func TestClearType(t *testing.T) {
	convey.Convey("Given the clear grades", t, func() {
		convey.So(model.ClearTrackLost.String(), convey.ShouldEqual, "track-lost")
		convey.So(model.ClearNormal.String(), convey.ShouldEqual, "normal-clear")
		convey.So(model.ClearFullRecall.String(), convey.ShouldEqual, "full-recall")
		convey.So(model.ClearPureMemory.String(), convey.ShouldEqual, "pure-memory")
		convey.So(model.ClearEasy.String(), convey.ShouldEqual, "easy-clear")
		convey.So(model.ClearHard.String(), convey.ShouldEqual, "hard-clear")
		convey.So(model.ClearType(9).String(), convey.ShouldEqual, "unknown")

		convey.Convey("Then only the hard clear grade is a hard clear", func() {
			convey.So(model.ClearHard.IsHardClear(), convey.ShouldBeTrue)
			convey.So(model.ClearPureMemory.IsHardClear(), convey.ShouldBeFalse)
			convey.So(model.ClearTrackLost.IsHardClear(), convey.ShouldBeFalse)
		})
	})
}

func TestGrade(t *testing.T) {
	convey.Convey("Given the grade thresholds", t, func() {
		cases := []struct {
			score int64
			grade int
		}{
			{0, 0},
			{8_599_999, 0},
			{8_600_000, 1},
			{8_900_000, 2},
			{9_200_000, 3},
			{9_499_999, 3},
			{9_500_000, 4},
			{9_800_000, 5},
			{9_899_999, 5},
			{9_900_000, 6},
			{10_000_000, 6},
		}
		for _, c := range cases {
			convey.So(model.Grade(c.score), convey.ShouldEqual, c.grade)
		}
	})
}

func TestScoreEventRestoreShape(t *testing.T) {
	convey.Convey("Given an exported score event", t, func() {
		ev := model.ScoreEvent{
			UserID:     1,
			PlayedAt:   777,
			SongID:     "fracture",
			Difficulty: 2,
			Score:      9_900_000,
			Shiny:      800,
			Pure:       900,
			Far:        10,
			Lost:       2,
			Health:     100,
			Modifier:   1,
			ClearType:  model.ClearFullRecall,
			Rating:     12.7,
		}

		body, err := json.Marshal(ev)
		convey.So(err, convey.ShouldBeNil)

		convey.Convey("When it is posted back as a submission", func() {
			var sub model.ScoreSubmission
			convey.So(json.Unmarshal(body, &sub), convey.ShouldBeNil)

			convey.Convey("Then every replayable field survives the trip", func() {
				convey.So(sub.SongID, convey.ShouldEqual, "fracture")
				convey.So(sub.Difficulty, convey.ShouldEqual, 2)
				convey.So(sub.Score, convey.ShouldEqual, 9_900_000)
				convey.So(sub.Shiny, convey.ShouldEqual, 800)
				convey.So(sub.Pure, convey.ShouldEqual, 900)
				convey.So(sub.Far, convey.ShouldEqual, 10)
				convey.So(sub.Lost, convey.ShouldEqual, 2)
				convey.So(sub.Health, convey.ShouldEqual, 100)
				convey.So(sub.Modifier, convey.ShouldEqual, 1)
				convey.So(sub.ClearType, convey.ShouldEqual, model.ClearFullRecall)
				convey.So(sub.PlayedAt, convey.ShouldEqual, 777)
				convey.So(sub.Chart(), convey.ShouldResemble, ev.Chart())
			})
		})
	})
}

func TestChartAccessors(t *testing.T) {
	convey.Convey("Given a submission and its stored event", t, func() {
		sub := model.ScoreSubmission{SongID: "fracture", Difficulty: 2, Score: 9_900_000}
		ev := model.ScoreEvent{SongID: "fracture", Difficulty: 2, Score: 9_900_000}

		convey.Convey("Then both resolve to the same chart", func() {
			convey.So(sub.Chart(), convey.ShouldResemble, model.ChartID{SongID: "fracture", Difficulty: 2})
			convey.So(ev.Chart(), convey.ShouldResemble, sub.Chart())
		})
	})
}
