// Package world provides the tile-world model: locations, items, containers,
// creatures, equipment slots, tiles, and the Cylinder content protocol they share.
package world

import "fmt"

// Direction is a compass direction a creature can face or step towards.
type Direction uint8

// Standard compass directions. The first four are the facing directions.
const (
	North Direction = iota
	East
	South
	West
	Northeast
	Southeast
	Southwest
	Northwest
)

// String returns the lower-case direction name.
func (d Direction) String() string {
	switch d {
	case North:
		return "north"
	case East:
		return "east"
	case South:
		return "south"
	case West:
		return "west"
	case Northeast:
		return "northeast"
	case Southeast:
		return "southeast"
	case Southwest:
		return "southwest"
	case Northwest:
		return "northwest"
	default:
		return fmt.Sprintf("direction(%d)", uint8(d))
	}
}

// IsFacing reports whether d is one of the four directions a creature can face.
func (d Direction) IsFacing() bool {
	return d <= West
}

// Opposite returns the opposite direction.
func (d Direction) Opposite() Direction {
	switch d {
	case North:
		return South
	case South:
		return North
	case East:
		return West
	case West:
		return East
	case Northeast:
		return Southwest
	case Southwest:
		return Northeast
	case Northwest:
		return Southeast
	default:
		return Northwest
	}
}

// LocationType classifies what a Location value refers to.
type LocationType uint8

const (
	// LocationMap is a position on the world map.
	LocationMap LocationType = iota
	// LocationContainer is an index inside a container the creature has open.
	LocationContainer
	// LocationSlot is one of the creature's equipment slots.
	LocationSlot
)

// String returns the location type name.
func (t LocationType) String() string {
	switch t {
	case LocationMap:
		return "map"
	case LocationContainer:
		return "container"
	default:
		return "slot"
	}
}

const (
	// nonMapMarker in X marks a container or slot location.
	nonMapMarker = 0xFFFF
	// containerFlag in Y marks a container location; the low bits carry the client container id.
	containerFlag = 0x40
)

// Location is a map coordinate, or an encoded container index or equipment slot
// following the client convention: X == 0xFFFF marks a non-map location, a set
// 0x40 bit in Y marks a container (id in the low nibble, index in Z), otherwise Y
// is the slot.
type Location struct {
	X int
	Y int
	Z int
}

// ContainerLocation returns the location of index inside the container the
// creature has open at clientID.
//
// Precondition: clientID < MaxOpenContainers.
func ContainerLocation(clientID uint8, index uint8) Location {
	return Location{X: nonMapMarker, Y: containerFlag | int(clientID&0x0F), Z: int(index)}
}

// SlotLocation returns the location of an equipment slot.
func SlotLocation(slot Slot) Location {
	return Location{X: nonMapMarker, Y: int(slot)}
}

// Type reports what kind of location l encodes.
func (l Location) Type() LocationType {
	if l.X != nonMapMarker {
		return LocationMap
	}
	if l.Y&containerFlag != 0 {
		return LocationContainer
	}
	return LocationSlot
}

// ContainerID returns the client container id of a container location.
func (l Location) ContainerID() uint8 {
	return uint8(l.Y & 0x0F)
}

// ContainerIndex returns the index of a container location.
func (l Location) ContainerIndex() uint8 {
	return uint8(l.Z)
}

// Slot returns the equipment slot of a slot location.
func (l Location) Slot() Slot {
	return Slot(l.Y)
}

// IsUnderground reports whether l is below the surface floor boundary.
func (l Location) IsUnderground() bool {
	return l.Z >= UndergroundFloor
}

// Translate returns the map location one step away in direction d.
func (l Location) Translate(d Direction) Location {
	switch d {
	case North:
		l.Y--
	case South:
		l.Y++
	case East:
		l.X++
	case West:
		l.X--
	case Northeast:
		l.X++
		l.Y--
	case Southeast:
		l.X++
		l.Y++
	case Southwest:
		l.X--
		l.Y++
	case Northwest:
		l.X--
		l.Y--
	}
	return l
}

// DirectionTo returns the direction of the first step from l towards to.
// The second return value is false when both locations share X and Y.
func (l Location) DirectionTo(to Location) (Direction, bool) {
	dx := sign(to.X - l.X)
	dy := sign(to.Y - l.Y)
	switch {
	case dx == 0 && dy < 0:
		return North, true
	case dx == 0 && dy > 0:
		return South, true
	case dx > 0 && dy == 0:
		return East, true
	case dx < 0 && dy == 0:
		return West, true
	case dx > 0 && dy < 0:
		return Northeast, true
	case dx > 0 && dy > 0:
		return Southeast, true
	case dx < 0 && dy > 0:
		return Southwest, true
	case dx < 0 && dy < 0:
		return Northwest, true
	default:
		return North, false
	}
}

// ChebyshevDistance returns the king-move distance between two map locations on
// the X/Y plane, ignoring Z.
func (l Location) ChebyshevDistance(o Location) int {
	return max(abs(l.X-o.X), abs(l.Y-o.Y))
}

// InVisibilityRange reports whether o is on the same floor and at most one
// step from l; this is the range within which an open container stays open.
func (l Location) InVisibilityRange(o Location) bool {
	return l.Z == o.Z && l.ChebyshevDistance(o) <= 1
}

// CanSee reports whether a creature standing at l has target inside its client
// window: same side of the underground boundary and within the 18x14 view.
func (l Location) CanSee(target Location) bool {
	if l.IsUnderground() != target.IsUnderground() {
		return false
	}
	if l.IsUnderground() && abs(l.Z-target.Z) > 2 {
		return false
	}
	dz := l.Z - target.Z
	return abs(target.X-l.X-dz) <= ViewportX && abs(target.Y-l.Y-dz) <= ViewportY
}

// String returns "(x, y, z)" for map locations and a descriptive form otherwise.
func (l Location) String() string {
	switch l.Type() {
	case LocationContainer:
		return fmt.Sprintf("container[%d]@%d", l.ContainerID(), l.ContainerIndex())
	case LocationSlot:
		return fmt.Sprintf("slot[%s]", l.Slot())
	default:
		return fmt.Sprintf("(%d, %d, %d)", l.X, l.Y, l.Z)
	}
}

const (
	// UndergroundFloor is the first floor below the surface.
	UndergroundFloor = 8
	// ViewportX is the horizontal half-width of the client window.
	ViewportX = 8
	// ViewportY is the vertical half-height of the client window.
	ViewportY = 6
)

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func sign(v int) int {
	switch {
	case v < 0:
		return -1
	case v > 0:
		return 1
	default:
		return 0
	}
}
