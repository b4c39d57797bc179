package models

// LeaderboardScope narrows a ranking request. An empty Region means global;
// WindowDays == 0 means all-time.
type LeaderboardScope struct {
	Region     string
	WindowDays int
	Limit      int
}

// LeaderboardEntry is one row of a point-in-time ranking snapshot.
type LeaderboardEntry struct {
	Rank   int32  `db:"-"`
	UserID uint64 `db:"user_id"`
	Name   string `db:"name"`
	Region string `db:"region"`
	Points int64  `db:"points"`
	Level  int32  `db:"level"`
}
