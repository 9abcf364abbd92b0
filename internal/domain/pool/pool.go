// Package pool maintains the bounded per-user set of tracked plays that feeds
// the recent-performance half of the player rating.
//
// The pool holds at most MaxTracked entries. Up to MaxRecent of them carry the
// recent flag; flagged entries are unique per chart and are the only ones the
// aggregate reads. Decide is pure: it inspects a snapshot and emits the row
// mutations for the store to apply inside the submission's transaction.
package pool

import "github.com/rkoyama/zircon/internal/domain/model"

const (
	// MaxTracked bounds the whole pool.
	MaxTracked = 30
	// MaxRecent bounds the flagged subset.
	MaxRecent = 10

	// exemptScore marks a play strong enough to evict higher-rated entries.
	exemptScore = 9_800_000
)

// Entry is one tracked play, identified by its event timestamp.
type Entry struct {
	Chart    model.ChartID
	PlayedAt int64
	Rating   float64
}

// State is a snapshot of one user's pool, split into the flagged set (keyed by
// chart) and the unflagged remainder.
type State struct {
	Recent map[model.ChartID]Entry
	Normal []Entry
}

// Total returns the number of tracked entries.
func (s State) Total() int { return len(s.Recent) + len(s.Normal) }

// Play is the incoming event, as the maintainer sees it.
type Play struct {
	Chart     model.ChartID
	PlayedAt  int64
	Rating    float64
	Score     int64
	HardClear bool
}

// Decide resolves the incoming play against the snapshot and returns the
// mutations that bring the pool to its next state. A nil result means the play
// does not enter the pool.
func Decide(st State, p Play) []Mutation {
	total := st.Total()

	// The flagged set keeps one entry per chart. A play on a chart that is
	// already flagged either supersedes that entry outright or is ignored.
	if cur, ok := st.Recent[p.Chart]; ok {
		if cur.Rating <= p.Rating {
			return []Mutation{replaceRow(cur.PlayedAt, p.PlayedAt, true)}
		}
		return nil
	}

	if len(st.Recent) < MaxRecent {
		if total < MaxTracked {
			return []Mutation{insertRow(p.PlayedAt, true)}
		}
		// A flagged slot is open but the pool is full: the play claims the
		// oldest normal slot together with the flag.
		if victim := oldestNormal(st); victim != nil {
			return []Mutation{replaceRow(victim.PlayedAt, p.PlayedAt, true)}
		}
		return nil
	}

	// Flagged set is full; scan it for an eviction candidate. Candidates
	// rated above the play are protected unless the play is exempt.
	exempt := p.Score >= exemptScore || p.HardClear || total < MaxTracked
	var candidate *Entry
	qualifies := false
	for _, e := range st.Recent {
		if !exempt && e.Rating > p.Rating {
			continue
		}
		if e.Rating <= p.Rating {
			qualifies = true
		}
		if candidate == nil || e.PlayedAt < candidate.PlayedAt {
			c := e
			candidate = &c
		}
	}

	if qualifies {
		// The play takes the oldest eligible slot; the evicted entry drops
		// down to compete for a normal slot.
		muts := []Mutation{replaceRow(candidate.PlayedAt, p.PlayedAt, true)}
		return append(muts, settleNormal(st, total, *candidate, nil)...)
	}

	// The play enters unflagged. The oldest eligible flagged entry, if any,
	// is also on the block for the slot.
	target := Entry{Chart: p.Chart, PlayedAt: p.PlayedAt, Rating: p.Rating}
	return settleNormal(st, total, target, candidate)
}

// settleNormal places target into the normal set. spare, when non-nil, is a
// flagged entry that may be evicted instead of a normal one; if it loses its
// slot, the oldest promotable normal entry inherits the flag.
func settleNormal(st State, total int, target Entry, spare *Entry) []Mutation {
	if total < MaxTracked {
		return []Mutation{insertRow(target.PlayedAt, false)}
	}

	victim := spare
	fromRecent := spare != nil
	for i := range st.Normal {
		e := &st.Normal[i]
		if victim == nil || e.PlayedAt < victim.PlayedAt {
			victim = e
			fromRecent = false
		}
	}
	if victim == nil {
		return nil
	}

	if fromRecent {
		muts := []Mutation{replaceRow(victim.PlayedAt, target.PlayedAt, false)}
		if promoted, ok := promotable(st, victim.Chart); ok {
			muts = append(muts, flagRow(promoted.PlayedAt))
		}
		return muts
	}
	if victim.PlayedAt == target.PlayedAt {
		return nil
	}
	return []Mutation{replaceRow(victim.PlayedAt, target.PlayedAt, false)}
}

// promotable picks the oldest normal entry whose chart is free in the flagged
// set once evictedChart has surrendered its slot.
func promotable(st State, evictedChart model.ChartID) (Entry, bool) {
	var pick *Entry
	for i := range st.Normal {
		e := &st.Normal[i]
		if _, taken := st.Recent[e.Chart]; taken && e.Chart != evictedChart {
			continue
		}
		if pick == nil || e.PlayedAt < pick.PlayedAt {
			pick = e
		}
	}
	if pick == nil {
		return Entry{}, false
	}
	return *pick, true
}

func oldestNormal(st State) *Entry {
	var victim *Entry
	for i := range st.Normal {
		e := &st.Normal[i]
		if victim == nil || e.PlayedAt < victim.PlayedAt {
			victim = e
		}
	}
	return victim
}
