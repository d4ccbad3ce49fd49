package gameserver

import (
	"github.com/cory-johannsen/tilemud/internal/game/operation"
	"github.com/cory-johannsen/tilemud/internal/game/world"
)

// stepOrder tries straight steps before diagonal ones so that, among paths of
// equal length, the one with fewer slow diagonal steps wins.
var stepOrder = [...]world.Direction{
	world.North, world.East, world.South, world.West,
	world.Northeast, world.Southeast, world.Southwest, world.Northwest,
}

// TilePathFinder plans walks with a breadth-first search over walkable tiles
// of one floor.
type TilePathFinder struct {
	tiles operation.TileAccessor
}

// NewTilePathFinder returns a path finder over tiles.
//
// Precondition: tiles must not be nil.
func NewTilePathFinder(tiles operation.TileAccessor) *TilePathFinder {
	if tiles == nil {
		panic("gameserver.NewTilePathFinder: tiles must not be nil")
	}
	return &TilePathFinder{tiles: tiles}
}

// FindPath returns the shortest sequence of steps from from to to, or false
// when to is on another floor, not walkable, or further than maxSteps.
//
// Postcondition: len(path) <= maxSteps; applying path to from yields to.
func (p *TilePathFinder) FindPath(from, to world.Location, maxSteps int) ([]world.Direction, bool) {
	if from.Z != to.Z || maxSteps < 1 {
		return nil, false
	}
	if from == to {
		return nil, true
	}
	if from.ChebyshevDistance(to) > maxSteps || !p.walkable(to) {
		return nil, false
	}

	seen := map[world.Location]pathStep{from: {}}
	queue := []world.Location{from}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		dist := seen[cur].dist
		if dist >= maxSteps {
			continue
		}
		for _, d := range stepOrder {
			next := cur.Translate(d)
			if _, ok := seen[next]; ok {
				continue
			}
			if next.ChebyshevDistance(to) > maxSteps-dist-1 {
				continue
			}
			if !p.walkable(next) {
				continue
			}
			seen[next] = pathStep{prev: cur, dir: d, dist: dist + 1}
			if next == to {
				return unwind(seen, from, to), true
			}
			queue = append(queue, next)
		}
	}
	return nil, false
}

// pathStep records how the search first reached a location.
type pathStep struct {
	prev world.Location
	dir  world.Direction
	dist int
}

func unwind(seen map[world.Location]pathStep, from, to world.Location) []world.Direction {
	var rev []world.Direction
	for cur := to; cur != from; cur = seen[cur].prev {
		rev = append(rev, seen[cur].dir)
	}
	path := make([]world.Direction, len(rev))
	for i, d := range rev {
		path[len(rev)-1-i] = d
	}
	return path
}

func (p *TilePathFinder) walkable(loc world.Location) bool {
	tile, ok := p.tiles.GetTileAt(loc)
	return ok && tile.HasGround() && !tile.BlocksPass()
}
