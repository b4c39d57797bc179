package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevelForPoints(t *testing.T) {
	cases := []struct {
		name   string
		points int64
		level  int32
	}{
		{"Zero", 0, 1},
		{"BelowFirstThreshold", 99, 1},
		{"ExactlyFirstThreshold", 100, 2},
		{"MidTier", 150, 2},
		{"ExactlySecondThreshold", 300, 3},
		{"JustBelowThird", 599, 3},
		{"TopTier", 4500, 10},
		{"BeyondTopTier", 999999, 10},
		{"NegativeAfterCorrection", -50, 1},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.level, LevelForPoints(tc.points))
		})
	}
}

func TestLevelForPoints_Monotone(t *testing.T) {
	previous := int32(0)
	for points := int64(0); points <= 5000; points += 25 {
		level := LevelForPoints(points)
		assert.GreaterOrEqual(t, level, previous, "level dropped at %d points", points)
		previous = level
	}
	assert.Equal(t, int32(MaxLevel), previous)
}

func TestPointsForNextLevel(t *testing.T) {
	t.Run("FromZero", func(t *testing.T) {
		next, ok := PointsForNextLevel(0)
		assert.True(t, ok)
		assert.Equal(t, int64(100), next)
	})

	t.Run("MidTier", func(t *testing.T) {
		next, ok := PointsForNextLevel(150)
		assert.True(t, ok)
		assert.Equal(t, int64(300), next)
	})

	t.Run("AtMaxLevel", func(t *testing.T) {
		_, ok := PointsForNextLevel(4500)
		assert.False(t, ok)
	})
}
