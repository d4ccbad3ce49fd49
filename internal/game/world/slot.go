package world

import (
	"fmt"
	"sync"
)

// Slot identifies an equipment slot of a creature.
type Slot uint8

// Equipment slots, numbered as the client numbers them.
const (
	SlotHead Slot = iota + 1
	SlotNeck
	SlotBack
	SlotBody
	SlotRightHand
	SlotLeftHand
	SlotLegs
	SlotFeet
	SlotRing
	SlotAmmo
)

// slotCount is the number of equipment slots.
const slotCount = int(SlotAmmo)

var slotNames = map[Slot]string{
	SlotHead:      "head",
	SlotNeck:      "neck",
	SlotBack:      "back",
	SlotBody:      "body",
	SlotRightHand: "right_hand",
	SlotLeftHand:  "left_hand",
	SlotLegs:      "legs",
	SlotFeet:      "feet",
	SlotRing:      "ring",
	SlotAmmo:      "ammo",
}

// String returns the slot name.
func (s Slot) String() string {
	if name, ok := slotNames[s]; ok {
		return name
	}
	return fmt.Sprintf("slot(%d)", uint8(s))
}

// Valid reports whether s is a known slot.
func (s Slot) Valid() bool {
	return s >= SlotHead && s <= SlotAmmo
}

// AllSlots lists the equipment slots in client order.
var AllSlots = []Slot{
	SlotHead, SlotNeck, SlotBack, SlotBody, SlotRightHand,
	SlotLeftHand, SlotLegs, SlotFeet, SlotRing, SlotAmmo,
}

// EquipmentSlot is a one-item Cylinder owned by a creature. Its parent in the
// ownership chain is the tile under the holder, so overflow falls to the floor.
type EquipmentSlot struct {
	mu     sync.Mutex
	holder *Creature
	slot   Slot
	item   *Item
}

// Holder returns the creature owning the slot.
func (s *EquipmentSlot) Holder() *Creature { return s.holder }

// Slot returns which slot this is.
func (s *EquipmentSlot) Slot() Slot { return s.slot }

// Item returns the equipped item, or nil.
func (s *EquipmentSlot) Item() *Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.item
}

// CylinderKind returns CylinderSlot.
func (s *EquipmentSlot) CylinderKind() CylinderKind { return CylinderSlot }

// Location returns the holder's location.
func (s *EquipmentSlot) Location() Location { return s.holder.Location() }

// ParentCylinder returns the tile under the holder, or nil when the holder is not placed.
func (s *EquipmentSlot) ParentCylinder() Cylinder {
	if t := s.holder.Tile(); t != nil {
		return t
	}
	return nil
}

// ContentAt returns the equipped item at index 0.
func (s *EquipmentSlot) ContentAt(index uint8) (Thing, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index != 0 || s.item == nil {
		return nil, false
	}
	return s.item, true
}

// IndexOf returns 0 if thing is the equipped item.
func (s *EquipmentSlot) IndexOf(thing Thing) (uint8, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if it, ok := thing.(*Item); ok && it == s.item {
		return 0, true
	}
	return 0, false
}

// ContentCount returns 1 when occupied, 0 otherwise.
func (s *EquipmentSlot) ContentCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.item == nil {
		return 0
	}
	return 1
}

// AddContent equips an item, or merges it into an equipped stack of the same type.
//
// Postcondition: ok is false when the slot holds an incompatible item.
func (s *EquipmentSlot) AddContent(factory ItemFactory, thing Thing, _ uint8) (bool, Thing) {
	it, ok := thing.(*Item)
	if !ok {
		return false, nil
	}
	s.mu.Lock()
	if s.item == nil {
		s.item = it
		s.mu.Unlock()
		it.SetParentCylinder(s)
		return true, nil
	}
	if !s.item.canMergeWith(it) {
		s.mu.Unlock()
		return false, nil
	}
	remainder := mergeInto(factory, s.item, it)
	s.mu.Unlock()
	return true, remainder
}

// RemoveContent unequips amount units of *thing.
func (s *EquipmentSlot) RemoveContent(factory ItemFactory, thing *Thing, index uint8, amount int) (bool, Thing) {
	if thing == nil {
		return false, nil
	}
	it, ok := (*thing).(*Item)
	if !ok || (index != AnyIndex && index != 0) {
		return false, nil
	}
	s.mu.Lock()
	if s.item == nil || s.item != it {
		s.mu.Unlock()
		return false, nil
	}
	split, valid := splitOff(factory, it, amount)
	if !valid {
		s.mu.Unlock()
		return false, nil
	}
	if split == nil {
		s.item = nil
		s.mu.Unlock()
		it.SetParentCylinder(nil)
		return true, nil
	}
	it.amount -= amount
	s.mu.Unlock()
	*thing = split
	return true, split
}

// ReplaceContent removes from and adds to, restoring from if the add fails.
func (s *EquipmentSlot) ReplaceContent(factory ItemFactory, from, to Thing, index uint8, amount int) (bool, Thing) {
	return replaceContent(s, factory, from, to, index, amount)
}
