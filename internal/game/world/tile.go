package world

import (
	"sync"
	"time"
)

// MaxTileThings is the most things a tile holds. Stack indices are uint8 and
// AnyIndex is reserved, so index 254 is the highest addressable position.
const MaxTileThings = int(AnyIndex)

// Tile is the Cylinder bound to one map location. Its content is stacked
// bottom-to-top as: ground, ground borders, liquid pool, stay-on-top items,
// stay-on-bottom items, creatures, normal items (last is the most recent).
//
// Invariant: at most one ground item and at most one liquid pool.
type Tile struct {
	mu           sync.Mutex
	location     Location
	ground       *Item
	borders      []*Item
	liquidPool   *Item
	stayOnTop    []*Item
	stayOnBottom []*Item
	creatures    []*Creature
	items        []*Item
	lastModified time.Time
	now          func() time.Time
}

// NewTile returns an empty tile at loc.
//
// Precondition: loc.Type() == LocationMap.
func NewTile(loc Location) *Tile {
	return &Tile{location: loc, now: time.Now}
}

// CylinderKind returns CylinderTile.
func (t *Tile) CylinderKind() CylinderKind { return CylinderTile }

// Location returns the tile's map location.
func (t *Tile) Location() Location { return t.location }

// ParentCylinder returns nil; tiles are roots.
func (t *Tile) ParentCylinder() Cylinder { return nil }

// LastModified returns the time of the most recent content mutation.
func (t *Tile) LastModified() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastModified
}

// Ground returns the ground item, or nil.
func (t *Tile) Ground() *Item {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ground
}

// HasGround reports whether the tile has a ground item.
func (t *Tile) HasGround() bool {
	return t.Ground() != nil
}

// LiquidPool returns the liquid pool, or nil.
func (t *Tile) LiquidPool() *Item {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.liquidPool
}

// TopItem returns the most recently added normal item, or nil.
func (t *Tile) TopItem() *Item {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.items) == 0 {
		return nil
	}
	return t.items[len(t.items)-1]
}

// Items returns the normal items, bottom first.
func (t *Tile) Items() []*Item {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]*Item, len(t.items))
	copy(out, t.items)
	return out
}

// Creatures returns the creatures on the tile.
func (t *Tile) Creatures() []*Creature {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]*Creature, len(t.creatures))
	copy(out, t.creatures)
	return out
}

// Things returns every thing on the tile in stack order.
func (t *Tile) Things() []Thing {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stackLocked()
}

func (t *Tile) countLocked() int {
	n := len(t.borders) + len(t.stayOnTop) + len(t.stayOnBottom) + len(t.creatures) + len(t.items)
	if t.ground != nil {
		n++
	}
	if t.liquidPool != nil {
		n++
	}
	return n
}

func (t *Tile) stackLocked() []Thing {
	out := make([]Thing, 0, 1+len(t.borders)+1+len(t.stayOnTop)+len(t.stayOnBottom)+len(t.creatures)+len(t.items))
	if t.ground != nil {
		out = append(out, t.ground)
	}
	for _, it := range t.borders {
		out = append(out, it)
	}
	if t.liquidPool != nil {
		out = append(out, t.liquidPool)
	}
	for _, it := range t.stayOnTop {
		out = append(out, it)
	}
	for _, it := range t.stayOnBottom {
		out = append(out, it)
	}
	for _, c := range t.creatures {
		out = append(out, c)
	}
	for _, it := range t.items {
		out = append(out, it)
	}
	return out
}

// ContentCount returns the number of things on the tile.
func (t *Tile) ContentCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.stackLocked())
}

// ContentAt returns the thing at stack index.
func (t *Tile) ContentAt(index uint8) (Thing, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	stack := t.stackLocked()
	if int(index) >= len(stack) {
		return nil, false
	}
	return stack[index], true
}

// IndexOf returns the stack index of thing.
func (t *Tile) IndexOf(thing Thing) (uint8, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i, held := range t.stackLocked() {
		if held == thing && i < MaxTileThings {
			return uint8(i), true
		}
	}
	return 0, false
}

// BlocksPass reports whether a creature may not enter: any creature present, or
// any item blocking passage.
func (t *Tile) BlocksPass() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.creatures) > 0 {
		return true
	}
	return t.anyItemLocked(func(it *Item) bool { return it.typ.BlocksPass })
}

// BlocksThrow reports whether any item stops thrown objects and line of sight.
func (t *Tile) BlocksThrow() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.anyItemLocked(func(it *Item) bool { return it.typ.BlocksThrow })
}

// BlocksLay reports whether items may not be dropped here.
func (t *Tile) BlocksLay() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.anyItemLocked(func(it *Item) bool { return it.typ.BlocksLay })
}

// BlocksPassItemsOnly reports whether an item, ignoring creatures, blocks passage.
func (t *Tile) BlocksPassItemsOnly() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.anyItemLocked(func(it *Item) bool { return it.typ.BlocksPass })
}

func (t *Tile) anyItemLocked(pred func(*Item) bool) bool {
	if t.ground != nil && pred(t.ground) {
		return true
	}
	if t.liquidPool != nil && pred(t.liquidPool) {
		return true
	}
	for _, group := range [][]*Item{t.borders, t.stayOnTop, t.stayOnBottom, t.items} {
		for _, it := range group {
			if pred(it) {
				return true
			}
		}
	}
	return false
}

func (t *Tile) touchLocked() {
	t.lastModified = t.now()
}

// AddContent places a creature or an item on the tile. Items are routed to the
// store of their category regardless of index; cumulative normal items merge
// into the compatible stack at index or else the most recent compatible stack,
// and any overflow is returned as the remainder.
//
// Postcondition: ok is false, with nothing changed, when a second ground item or
// liquid pool is added.
func (t *Tile) AddContent(factory ItemFactory, thing Thing, index uint8) (bool, Thing) {
	switch th := thing.(type) {
	case *Creature:
		t.mu.Lock()
		if t.countLocked() >= MaxTileThings {
			t.mu.Unlock()
			return false, nil
		}
		t.creatures = append(t.creatures, th)
		t.touchLocked()
		t.mu.Unlock()
		th.SetParentCylinder(t)
		return true, nil
	case *Item:
		return t.addItem(factory, th, index)
	default:
		return false, nil
	}
}

func (t *Tile) addItem(factory ItemFactory, it *Item, index uint8) (bool, Thing) {
	t.mu.Lock()
	if it.Category() == CategoryNormal && it.IsCumulative() {
		if target := t.mergeTargetLocked(it, index); target != nil {
			remainder := mergeInto(factory, target, it)
			t.touchLocked()
			t.mu.Unlock()
			return true, remainder
		}
	}
	if t.countLocked() >= MaxTileThings {
		t.mu.Unlock()
		return false, nil
	}
	switch it.Category() {
	case CategoryGround:
		if t.ground != nil {
			t.mu.Unlock()
			return false, nil
		}
		t.ground = it
	case CategoryLiquidPool:
		if t.liquidPool != nil {
			t.mu.Unlock()
			return false, nil
		}
		t.liquidPool = it
	case CategoryGroundBorder:
		t.borders = append(t.borders, it)
	case CategoryStayOnTop:
		t.stayOnTop = append(t.stayOnTop, it)
	case CategoryStayOnBottom:
		t.stayOnBottom = append(t.stayOnBottom, it)
	default:
		t.items = append(t.items, it)
	}
	t.touchLocked()
	t.mu.Unlock()
	it.SetParentCylinder(t)
	return true, nil
}

// mergeTargetLocked prefers the compatible stack at index, then the most recent one.
func (t *Tile) mergeTargetLocked(it *Item, index uint8) *Item {
	if index != AnyIndex {
		stack := t.stackLocked()
		if int(index) < len(stack) {
			if held, ok := stack[index].(*Item); ok && held.Category() == CategoryNormal && held.canMergeWith(it) {
				return held
			}
		}
	}
	for i := len(t.items) - 1; i >= 0; i-- {
		if t.items[i].canMergeWith(it) {
			return t.items[i]
		}
	}
	return nil
}

// RemoveContent removes a creature or amount units of an item.
//
// Precondition: index is the stack index of *thing or AnyIndex.
// Postcondition: a partial removal of a cumulative normal item keeps the rest in
// place and returns, and assigns to *thing, the minted item carrying amount units.
func (t *Tile) RemoveContent(factory ItemFactory, thing *Thing, index uint8, amount int) (bool, Thing) {
	if thing == nil || *thing == nil {
		return false, nil
	}
	t.mu.Lock()
	if index != AnyIndex {
		stack := t.stackLocked()
		if int(index) >= len(stack) || stack[index] != *thing {
			t.mu.Unlock()
			return false, nil
		}
	}

	switch th := (*thing).(type) {
	case *Creature:
		if amount != 1 {
			t.mu.Unlock()
			return false, nil
		}
		pos := -1
		for i, c := range t.creatures {
			if c == th {
				pos = i
				break
			}
		}
		if pos < 0 {
			t.mu.Unlock()
			return false, nil
		}
		t.creatures = append(t.creatures[:pos], t.creatures[pos+1:]...)
		t.touchLocked()
		t.mu.Unlock()
		th.SetParentCylinder(nil)
		return true, nil
	case *Item:
		return t.removeItemLocked(factory, thing, th, amount)
	default:
		t.mu.Unlock()
		return false, nil
	}
}

// removeItemLocked is called with t.mu held and releases it.
func (t *Tile) removeItemLocked(factory ItemFactory, thing *Thing, it *Item, amount int) (bool, Thing) {
	store, pos := t.locateLocked(it)
	if pos < 0 {
		t.mu.Unlock()
		return false, nil
	}
	if it.Category() != CategoryNormal && amount != it.amount {
		t.mu.Unlock()
		return false, nil
	}
	split, valid := splitOff(factory, it, amount)
	if !valid {
		t.mu.Unlock()
		return false, nil
	}
	if split != nil {
		it.amount -= amount
		t.touchLocked()
		t.mu.Unlock()
		*thing = split
		return true, split
	}

	switch it.Category() {
	case CategoryGround:
		t.ground = nil
	case CategoryLiquidPool:
		t.liquidPool = nil
	default:
		*store = append((*store)[:pos], (*store)[pos+1:]...)
	}
	t.touchLocked()
	t.mu.Unlock()
	it.SetParentCylinder(nil)
	return true, nil
}

// locateLocked finds it in its category store. Singular stores report a nil slice pointer.
func (t *Tile) locateLocked(it *Item) (*[]*Item, int) {
	var store *[]*Item
	switch it.Category() {
	case CategoryGround:
		if t.ground == it {
			return nil, 0
		}
		return nil, -1
	case CategoryLiquidPool:
		if t.liquidPool == it {
			return nil, 0
		}
		return nil, -1
	case CategoryGroundBorder:
		store = &t.borders
	case CategoryStayOnTop:
		store = &t.stayOnTop
	case CategoryStayOnBottom:
		store = &t.stayOnBottom
	default:
		store = &t.items
	}
	for i, held := range *store {
		if held == it {
			return store, i
		}
	}
	return store, -1
}

// ReplaceContent removes from and adds to, restoring from if the add fails.
// Replacing the ground or the liquid pool goes through here.
func (t *Tile) ReplaceContent(factory ItemFactory, from, to Thing, index uint8, amount int) (bool, Thing) {
	return replaceContent(t, factory, from, to, index, amount)
}
