// Package catalog exposes the read-only chart catalog: the intrinsic rating
// and display data of every playable chart.
package catalog

import "github.com/rkoyama/zircon/internal/domain/model"

// Chart is one catalog row.
type Chart struct {
	SongID     string  `koanf:"song_id"`
	Difficulty int     `koanf:"difficulty"`
	Rating     float64 `koanf:"rating"`
	Title      string  `koanf:"title"`
}

// ID returns the chart's identity.
func (c Chart) ID() model.ChartID {
	return model.ChartID{SongID: c.SongID, Difficulty: c.Difficulty}
}

// Catalog is the collaborator interface the score engine depends on.
type Catalog interface {
	// BaseRating returns the chart's intrinsic rating. ok is false when the
	// chart is unknown; submissions for such charts are rejected.
	BaseRating(chart model.ChartID) (rating float64, ok bool)

	// Lookup returns the full catalog row for read-side projections.
	Lookup(chart model.ChartID) (Chart, bool)
}

// Memory is an immutable in-memory catalog.
type Memory struct {
	charts map[model.ChartID]Chart
}

// New builds a Memory catalog. Rows without a positive rating are dropped, so
// placeholder charts never produce a play rating.
func New(charts ...Chart) *Memory {
	m := &Memory{charts: make(map[model.ChartID]Chart, len(charts))}
	for _, c := range charts {
		if c.Rating <= 0 {
			continue
		}
		m.charts[c.ID()] = c
	}
	return m
}

// BaseRating implements Catalog.
func (m *Memory) BaseRating(chart model.ChartID) (float64, bool) {
	c, ok := m.charts[chart]
	if !ok {
		return 0, false
	}
	return c.Rating, true
}

// Lookup implements Catalog.
func (m *Memory) Lookup(chart model.ChartID) (Chart, bool) {
	c, ok := m.charts[chart]
	return c, ok
}

// Size returns the number of known charts.
func (m *Memory) Size() int { return len(m.charts) }
