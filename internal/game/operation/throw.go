package operation

import "github.com/cory-johannsen/tilemud/internal/game/world"

const (
	// throwRangeX is the horizontal throw range, reduced by each floor of difference.
	throwRangeX = 8
	// throwRangeY is the vertical throw range, reduced by each floor of difference.
	throwRangeY = 6
)

// CanThrowBetween reports whether a thing can travel from one map location
// to another. Both must be on the same side of the underground boundary and
// within range; with checkLOS the straight line between them, tried in both
// directions, must not cross a tile that blocks throwing.
func CanThrowBetween(tiles TileAccessor, from, to world.Location, checkLOS bool) bool {
	if from == to {
		return true
	}
	if from.IsUnderground() != to.IsUnderground() {
		return false
	}
	dz := absInt(from.Z - to.Z)
	if absInt(from.X-to.X)-dz > throwRangeX || absInt(from.Y-to.Y)-dz > throwRangeY {
		return false
	}
	if !checkLOS {
		return true
	}
	return clearLine(tiles, from, to) || clearLine(tiles, to, from)
}

// clearLine walks the line from a to b on the upper floor and then the column
// down to the lower endpoint.
func clearLine(tiles TileAccessor, a, b world.Location) bool {
	upper, lower := a, b
	if upper.Z > lower.Z {
		upper, lower = lower, upper
	}
	for _, p := range linePoints(a.X, a.Y, b.X, b.Y) {
		if blocksThrow(tiles, world.Location{X: p[0], Y: p[1], Z: upper.Z}, false) {
			return false
		}
	}
	for z := upper.Z; z < lower.Z; z++ {
		if blocksThrow(tiles, world.Location{X: lower.X, Y: lower.Y, Z: z}, true) {
			return false
		}
	}
	return true
}

func blocksThrow(tiles TileAccessor, loc world.Location, groundBlocks bool) bool {
	tile, ok := tiles.GetTileAt(loc)
	if !ok {
		return false
	}
	if groundBlocks && tile.HasGround() {
		return true
	}
	return tile.BlocksThrow()
}

// linePoints returns the Bresenham points strictly between (x0, y0) and (x1, y1).
func linePoints(x0, y0, x1, y1 int) [][2]int {
	dx := absInt(x1 - x0)
	dy := -absInt(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	var points [][2]int
	e := dx + dy
	x, y := x0, y0
	for {
		if x == x1 && y == y1 {
			break
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x += sx
		}
		if e2 <= dx {
			e += dx
			y += sy
		}
		if x == x1 && y == y1 {
			break
		}
		points = append(points, [2]int{x, y})
	}
	return points
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
