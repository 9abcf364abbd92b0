package pool

// Op names a pool row operation.
type Op int

const (
	// OpInsert adds a new row.
	OpInsert Op = iota
	// OpReplace re-keys an existing row to a new event and sets its flag.
	OpReplace
	// OpFlag marks an existing row as recent.
	OpFlag
)

// Mutation is one row operation against a user's pool. PlayedAt addresses the
// existing row for OpReplace and OpFlag, and the new row for OpInsert;
// NewPlayedAt is the replacement key for OpReplace.
type Mutation struct {
	Op          Op
	PlayedAt    int64
	NewPlayedAt int64
	Recent      bool
}

func insertRow(playedAt int64, recent bool) Mutation {
	return Mutation{Op: OpInsert, PlayedAt: playedAt, Recent: recent}
}

func replaceRow(playedAt, newPlayedAt int64, recent bool) Mutation {
	return Mutation{Op: OpReplace, PlayedAt: playedAt, NewPlayedAt: newPlayedAt, Recent: recent}
}

func flagRow(playedAt int64) Mutation {
	return Mutation{Op: OpFlag, PlayedAt: playedAt, Recent: true}
}
