package service

// levelThresholds maps the minimum points total to each level. The table is
// the canonical level formula for the whole system; it is a monotone step
// function, so more points can never yield a lower level.
var levelThresholds = []struct {
	MinPoints int64
	Level     int32
}{
	{0, 1},
	{100, 2},
	{300, 3},
	{600, 4},
	{1000, 5},
	{1500, 6},
	{2100, 7},
	{2800, 8},
	{3600, 9},
	{4500, 10},
}

// MaxLevel is the highest reachable level.
const MaxLevel = 10

// LevelForPoints maps a cumulative points total to a level. Negative totals
// (possible transiently after corrections) map to level 1.
func LevelForPoints(points int64) int32 {
	level := int32(1)
	for _, tier := range levelThresholds {
		if points < tier.MinPoints {
			break
		}
		level = tier.Level
	}
	return level
}

// PointsForNextLevel returns the points total at which the next level is
// reached, and false when the user is already at the highest level.
func PointsForNextLevel(points int64) (int64, bool) {
	for _, tier := range levelThresholds {
		if points < tier.MinPoints {
			return tier.MinPoints, true
		}
	}
	return 0, false
}
