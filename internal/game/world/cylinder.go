package world

// CreatureThingID is the thing id clients use to refer to a creature on a tile.
const CreatureThingID uint16 = 99

// AnyIndex asks a Cylinder to pick the index itself.
const AnyIndex uint8 = 0xFF

// Thing is anything that can be placed in a Cylinder: an Item or a Creature.
type Thing interface {
	// ThingID is the item type id, or CreatureThingID for creatures.
	ThingID() uint16
	// Location is the map location of the thing, resolved through its parents.
	Location() Location
	// ParentCylinder is the Cylinder holding the thing, or nil when unplaced.
	ParentCylinder() Cylinder
	// SetParentCylinder rebinds the ownership back-reference.
	SetParentCylinder(c Cylinder)
	// CanBeMoved reports whether players may relocate the thing.
	CanBeMoved() bool
	// Describe returns a human-readable description for logs.
	Describe() string
}

// CylinderKind discriminates the three Cylinder implementations.
type CylinderKind uint8

const (
	// CylinderTile is a *Tile.
	CylinderTile CylinderKind = iota
	// CylinderContainer is a *Container.
	CylinderContainer
	// CylinderSlot is an *EquipmentSlot.
	CylinderSlot
)

// String returns the kind name.
func (k CylinderKind) String() string {
	switch k {
	case CylinderTile:
		return "tile"
	case CylinderContainer:
		return "container"
	default:
		return "slot"
	}
}

// ItemFactory mints new items.
type ItemFactory interface {
	// CreateItem returns a new unplaced item of typeID with amount units.
	CreateItem(typeID uint16, amount int) (*Item, error)
}

// Cylinder is the uniform content contract shared by tiles, containers and
// equipment slots. Implementations serialize their own mutations and never hold
// their lock while calling out to observers.
type Cylinder interface {
	CylinderKind() CylinderKind
	// Location is the map location of the cylinder.
	Location() Location
	// ParentCylinder is the next cylinder up the ownership chain, or nil.
	ParentCylinder() Cylinder

	// AddContent places thing at index (AnyIndex for any). Cumulative items merge
	// into a compatible stack; an overflow is returned as remainder, in which
	// case ok is true and the content was partially placed.
	AddContent(factory ItemFactory, thing Thing, index uint8) (ok bool, remainder Thing)
	// RemoveContent removes amount units of *thing. When only part of a stack is
	// removed, the stack keeps the rest and a new item carrying the removed
	// amount is minted, returned as remainder and assigned to *thing.
	RemoveContent(factory ItemFactory, thing *Thing, index uint8, amount int) (ok bool, remainder Thing)
	// ReplaceContent removes from and adds to; a failed add restores from.
	ReplaceContent(factory ItemFactory, from, to Thing, index uint8, amount int) (ok bool, remainder Thing)

	// ContentAt returns the thing at index.
	ContentAt(index uint8) (Thing, bool)
	// IndexOf returns the index of thing.
	IndexOf(thing Thing) (uint8, bool)
	// ContentCount returns the number of things held.
	ContentCount() int
}

// CylinderHierarchy returns the ownership chain starting at c and walking up
// through its parents. The tile at the root is included only when includeTile
// is set.
//
// Postcondition: result[0] == c unless c is a tile and includeTile is false.
func CylinderHierarchy(c Cylinder, includeTile bool) []Cylinder {
	var chain []Cylinder
	for cur := c; cur != nil; cur = cur.ParentCylinder() {
		if cur.CylinderKind() == CylinderTile && !includeTile {
			break
		}
		chain = append(chain, cur)
	}
	return chain
}

// IsAncestorOf reports whether item is a container somewhere in the ownership
// chain of c, including c itself. Placing item into c would create a cycle.
func IsAncestorOf(item *Item, c Cylinder) bool {
	if item == nil || item.container == nil {
		return false
	}
	for cur := c; cur != nil; cur = cur.ParentCylinder() {
		if cont, ok := cur.(*Container); ok && cont == item.container {
			return true
		}
	}
	return false
}

// CarrierOf returns the creature holding thing in one of its equipment slots,
// directly or through nested containers.
func CarrierOf(thing Thing) (*Creature, bool) {
	if thing == nil {
		return nil, false
	}
	return CarrierOfCylinder(thing.ParentCylinder())
}

// CarrierOfCylinder returns the creature whose equipment holds c, or c itself
// when c is an equipment slot.
func CarrierOfCylinder(c Cylinder) (*Creature, bool) {
	for cur := c; cur != nil; cur = cur.ParentCylinder() {
		if slot, ok := cur.(*EquipmentSlot); ok {
			return slot.Holder(), true
		}
	}
	return nil, false
}

// TileOf returns the tile at the root of thing's ownership chain.
func TileOf(thing Thing) (*Tile, bool) {
	if thing == nil {
		return nil, false
	}
	for cur := thing.ParentCylinder(); cur != nil; cur = cur.ParentCylinder() {
		if tile, ok := cur.(*Tile); ok {
			return tile, true
		}
	}
	return nil, false
}

// replaceContent implements ReplaceContent for every cylinder as remove-then-add.
// If the add fails, from is pushed back onto c. The only way content can escape
// is a failed push-back, in which case the removed thing is returned as the
// remainder so the caller can account for it.
func replaceContent(c Cylinder, factory ItemFactory, from, to Thing, index uint8, amount int) (bool, Thing) {
	removed := from
	if ok, _ := c.RemoveContent(factory, &removed, index, amount); !ok {
		return false, nil
	}
	added, remainder := c.AddContent(factory, to, index)
	if added {
		return true, remainder
	}
	if back, _ := c.AddContent(factory, removed, index); !back {
		if back, _ = c.AddContent(factory, removed, AnyIndex); !back {
			return false, removed
		}
	}
	return false, nil
}

// mergeInto merges item into target up to MaxStackAmount and returns the overflow
// as a new item, or nil when everything fit. It never fails: if the factory cannot
// mint the overflow, item itself is reused to carry it.
func mergeInto(factory ItemFactory, target, item *Item) Thing {
	room := MaxStackAmount - target.amount
	take := min(room, item.amount)
	target.amount += take
	overflow := item.amount - take
	if overflow <= 0 {
		return nil
	}
	if factory != nil {
		if rem, err := factory.CreateItem(item.typ.ID, overflow); err == nil {
			return rem
		}
	}
	item.amount = overflow
	return item
}

// splitOff validates removing amount units from item and, for a partial
// removal, mints the item that carries the removed units. The caller applies
// the mutation only when ok is true.
func splitOff(factory ItemFactory, item *Item, amount int) (split *Item, ok bool) {
	if amount < 1 || amount > item.amount {
		return nil, false
	}
	if !item.IsCumulative() && amount > 1 {
		return nil, false
	}
	if amount == item.amount {
		return nil, true
	}
	if factory == nil {
		return nil, false
	}
	rem, err := factory.CreateItem(item.typ.ID, amount)
	if err != nil {
		return nil, false
	}
	return rem, true
}
