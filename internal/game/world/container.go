package world

import (
	"sync"

	"github.com/google/uuid"
)

// ContainerObserver receives a container's change signals. Signals are
// delivered after the container has released its lock.
type ContainerObserver interface {
	ContentAdded(c *Container, item *Item)
	ContentRemoved(c *Container, index uint8)
	ContentUpdated(c *Container, index uint8, item *Item)
	LocationChanged(c *Container, from Location)
}

// SubscriptionID identifies one observer registration on a container.
type SubscriptionID uint64

// Container is the Cylinder facet of a container item. Content is ordered with
// index 0 being the most recently added item.
type Container struct {
	mu        sync.Mutex
	item      *Item
	capacity  int
	content   []*Item
	observers map[SubscriptionID]ContainerObserver
	nextSub   SubscriptionID
}

func newContainer(item *Item, capacity int) *Container {
	return &Container{
		item:      item,
		capacity:  capacity,
		observers: make(map[SubscriptionID]ContainerObserver),
	}
}

// ID returns the id of the container item.
func (c *Container) ID() uuid.UUID { return c.item.id }

// Item returns the container item.
func (c *Container) Item() *Item { return c.item }

// Capacity returns the number of item slots.
func (c *Container) Capacity() int { return c.capacity }

// CylinderKind returns CylinderContainer.
func (c *Container) CylinderKind() CylinderKind { return CylinderContainer }

// Location returns the map location of the container item.
func (c *Container) Location() Location { return c.item.Location() }

// ParentCylinder returns the cylinder holding the container item.
func (c *Container) ParentCylinder() Cylinder { return c.item.parent }

// Content returns a snapshot of the content, index 0 first.
func (c *Container) Content() []*Item {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*Item, len(c.content))
	copy(out, c.content)
	return out
}

// ContentCount returns the number of items held.
func (c *Container) ContentCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.content)
}

// ContentAt returns the item at index.
func (c *Container) ContentAt(index uint8) (Thing, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if int(index) >= len(c.content) {
		return nil, false
	}
	return c.content[index], true
}

// IndexOf returns the index of thing.
func (c *Container) IndexOf(thing Thing) (uint8, bool) {
	it, ok := thing.(*Item)
	if !ok {
		return 0, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.indexOfLocked(it)
}

func (c *Container) indexOfLocked(it *Item) (uint8, bool) {
	for i, held := range c.content {
		if held == it {
			return uint8(i), true
		}
	}
	return 0, false
}

// AddContent places an item into the container.
//
// Precondition: thing is an *Item other than the container item itself.
// Postcondition: cumulative items merge into the compatible stack at index or,
// failing that, the most recent compatible stack; otherwise the item is inserted
// at index 0 when a slot is free. ok is false when nothing was placed.
func (c *Container) AddContent(factory ItemFactory, thing Thing, index uint8) (bool, Thing) {
	it, ok := thing.(*Item)
	if !ok || it == c.item {
		return false, nil
	}

	c.mu.Lock()
	if it.IsCumulative() {
		pos := -1
		if int(index) < len(c.content) && c.content[index].canMergeWith(it) {
			pos = int(index)
		} else {
			for i, held := range c.content {
				if held.canMergeWith(it) {
					pos = i
					break
				}
			}
		}
		if pos >= 0 {
			target := c.content[pos]
			remainder := mergeInto(factory, target, it)
			observers := c.observerSnapshotLocked()
			c.mu.Unlock()
			for _, o := range observers {
				o.ContentUpdated(c, uint8(pos), target)
			}
			return true, remainder
		}
	}
	if len(c.content) >= c.capacity {
		c.mu.Unlock()
		return false, nil
	}
	c.content = append([]*Item{it}, c.content...)
	observers := c.observerSnapshotLocked()
	c.mu.Unlock()

	it.SetParentCylinder(c)
	for _, o := range observers {
		o.ContentAdded(c, it)
	}
	return true, nil
}

// RemoveContent removes amount units of *thing.
//
// Precondition: *thing is an *Item held by this container; index is its index or AnyIndex.
// Postcondition: on a partial removal *thing and the returned remainder are the
// newly minted item carrying amount units; on failure nothing changes.
func (c *Container) RemoveContent(factory ItemFactory, thing *Thing, index uint8, amount int) (bool, Thing) {
	if thing == nil {
		return false, nil
	}
	it, ok := (*thing).(*Item)
	if !ok {
		return false, nil
	}

	c.mu.Lock()
	pos := -1
	if index != AnyIndex {
		if int(index) < len(c.content) && c.content[index] == it {
			pos = int(index)
		}
	} else if i, found := c.indexOfLocked(it); found {
		pos = int(i)
	}
	if pos < 0 {
		c.mu.Unlock()
		return false, nil
	}
	split, valid := splitOff(factory, it, amount)
	if !valid {
		c.mu.Unlock()
		return false, nil
	}
	observers := c.observerSnapshotLocked()

	if split == nil {
		c.content = append(c.content[:pos], c.content[pos+1:]...)
		c.mu.Unlock()
		it.SetParentCylinder(nil)
		for _, o := range observers {
			o.ContentRemoved(c, uint8(pos))
		}
		return true, nil
	}

	it.amount -= amount
	c.mu.Unlock()
	*thing = split
	for _, o := range observers {
		o.ContentUpdated(c, uint8(pos), it)
	}
	return true, split
}

// ReplaceContent removes from and adds to, restoring from if the add fails.
func (c *Container) ReplaceContent(factory ItemFactory, from, to Thing, index uint8, amount int) (bool, Thing) {
	return replaceContent(c, factory, from, to, index, amount)
}

// Subscribe registers o for this container's signals.
//
// Postcondition: o receives every signal raised after Subscribe returns until Unsubscribe.
func (c *Container) Subscribe(o ContainerObserver) SubscriptionID {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextSub++
	c.observers[c.nextSub] = o
	return c.nextSub
}

// Unsubscribe removes a registration. It reports whether id was registered.
func (c *Container) Unsubscribe(id SubscriptionID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.observers[id]; !ok {
		return false
	}
	delete(c.observers, id)
	return true
}

// SubscriberCount returns the number of registered observers.
func (c *Container) SubscriberCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.observers)
}

func (c *Container) observerSnapshotLocked() []ContainerObserver {
	if len(c.observers) == 0 {
		return nil
	}
	out := make([]ContainerObserver, 0, len(c.observers))
	for _, o := range c.observers {
		out = append(out, o)
	}
	return out
}

// locationChanged raises the location-changed signal here and on every nested container.
func (c *Container) locationChanged(from Location) {
	c.mu.Lock()
	observers := c.observerSnapshotLocked()
	var nested []*Container
	for _, held := range c.content {
		if held.container != nil {
			nested = append(nested, held.container)
		}
	}
	c.mu.Unlock()

	for _, o := range observers {
		o.LocationChanged(c, from)
	}
	for _, n := range nested {
		n.locationChanged(from)
	}
}
