package world

import (
	"fmt"

	"github.com/google/uuid"
)

// Item is a concrete instance of an ItemType placed somewhere in the world.
// Items whose type has a container capacity also carry a Container.
//
// Item fields are mutated only by the Cylinder currently holding the item.
type Item struct {
	id        uuid.UUID
	typ       *ItemType
	amount    int
	parent    Cylinder
	lastLoc   Location
	container *Container
}

// newItem builds an item; containers get their Container facet attached.
func newItem(typ *ItemType, amount int) *Item {
	it := &Item{
		id:     uuid.New(),
		typ:    typ,
		amount: amount,
	}
	if typ.IsContainer() {
		it.container = newContainer(it, typ.ContainerCapacity)
	}
	return it
}

// ID returns the unique instance id.
func (i *Item) ID() uuid.UUID { return i.id }

// Type returns the item type.
func (i *Item) Type() *ItemType { return i.typ }

// ThingID returns the item type id.
func (i *Item) ThingID() uint16 { return i.typ.ID }

// Amount returns the number of units in this stack (1 for non-cumulative items).
func (i *Item) Amount() int { return i.amount }

// IsCumulative reports whether the item stacks.
func (i *Item) IsCumulative() bool { return i.typ.Cumulative }

// Category returns the tile store the item belongs to.
func (i *Item) Category() Category { return i.typ.Category }

// CanBeMoved reports whether the item type is movable.
func (i *Item) CanBeMoved() bool { return i.typ.Movable }

// Container returns the container facet, or nil when the item is not a container.
func (i *Item) Container() *Container { return i.container }

// ParentCylinder returns the holding cylinder, or nil.
func (i *Item) ParentCylinder() Cylinder { return i.parent }

// Location returns the map location of the item, resolved through its parents.
// An unplaced item reports the zero location.
func (i *Item) Location() Location {
	if i.parent == nil {
		return Location{}
	}
	return i.parent.Location()
}

// SetParentCylinder rebinds the item to c. Attaching a container to a new parent
// raises its location-changed signal; detaching (c == nil) is silent because the
// item is in transit.
func (i *Item) SetParentCylinder(c Cylinder) {
	i.parent = c
	if c == nil {
		return
	}
	from := i.lastLoc
	i.lastLoc = c.Location()
	if i.container != nil {
		i.container.locationChanged(from)
	}
}

// Describe returns a description suitable for operator logs.
func (i *Item) Describe() string {
	return fmt.Sprintf("%s (type %d, amount %d, id %s)", i.typ.Name, i.typ.ID, i.amount, i.id)
}

// canMergeWith reports whether o can be merged into i.
func (i *Item) canMergeWith(o *Item) bool {
	return i != o && i.typ.Cumulative && i.typ.ID == o.typ.ID && i.amount < MaxStackAmount
}

// Factory mints items from a Catalog.
type Factory struct {
	catalog *Catalog
}

// NewFactory returns a Factory backed by catalog.
//
// Precondition: catalog must not be nil.
func NewFactory(catalog *Catalog) *Factory {
	return &Factory{catalog: catalog}
}

// Catalog returns the catalog the factory mints from.
func (f *Factory) Catalog() *Catalog { return f.catalog }

// CreateItem returns a new unplaced item.
//
// Precondition: typeID is registered; amount is 1..MaxStackAmount for cumulative
// types and 1 (or 0, meaning 1) otherwise.
// Postcondition: returns a fresh item with a unique id or a non-nil error.
func (f *Factory) CreateItem(typeID uint16, amount int) (*Item, error) {
	typ, ok := f.catalog.Type(typeID)
	if !ok {
		return nil, fmt.Errorf("world: unknown item type %d", typeID)
	}
	if !typ.Cumulative {
		if amount > 1 {
			return nil, fmt.Errorf("world: item type %d is not cumulative, got amount %d", typeID, amount)
		}
		amount = 1
	}
	if amount < 1 || amount > MaxStackAmount {
		return nil, fmt.Errorf("world: amount must be 1-%d, got %d", MaxStackAmount, amount)
	}
	return newItem(typ, amount), nil
}
