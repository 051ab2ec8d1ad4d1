package world

import (
	"fmt"
	"math/rand"
)

// Obstacle is an axis-aligned blocking rectangle.
type Obstacle struct {
	ID     string  `json:"id"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// ObstaclesOverlap checks for AABB overlap with optional padding.
func ObstaclesOverlap(a, b Obstacle, padding float64) bool {
	return a.X-padding < b.X+b.Width+padding &&
		a.X+a.Width+padding > b.X-padding &&
		a.Y-padding < b.Y+b.Height+padding &&
		a.Y+a.Height+padding > b.Y-padding
}

// GenerateObstacles scatters non-overlapping blocking rectangles around the
// map, keeping a clear margin near the edges and the central spawn area.
func GenerateObstacles(rng *rand.Rand, count int, width, height, minSize, maxSize, margin, spawnSafeRadius float64) []Obstacle {
	if rng == nil || count <= 0 {
		return nil
	}

	obstacles := make([]Obstacle, 0, count)
	attempts := 0
	maxAttempts := count * 20

	for len(obstacles) < count && attempts < maxAttempts {
		attempts++

		w := minSize + rng.Float64()*(maxSize-minSize)
		h := minSize + rng.Float64()*(maxSize-minSize)
		x := margin + rng.Float64()*(width-2*margin-w)
		y := margin + rng.Float64()*(height-2*margin-h)

		candidate := Obstacle{
			ID:     fmt.Sprintf("obstacle-%d", len(obstacles)+1),
			X:      x,
			Y:      y,
			Width:  w,
			Height: h,
		}

		if CircleRectOverlap(width/2, height/2, spawnSafeRadius, candidate) {
			continue
		}

		overlaps := false
		for _, existing := range obstacles {
			if ObstaclesOverlap(candidate, existing, 20) {
				overlaps = true
				break
			}
		}
		if overlaps {
			continue
		}

		obstacles = append(obstacles, candidate)
	}

	return obstacles
}
