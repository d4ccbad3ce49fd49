// Package container tracks which creature has which container open, at which
// client id, and turns container signals into notifications for the watchers.
package container

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cory-johannsen/tilemud/internal/game/notification"
	"github.com/cory-johannsen/tilemud/internal/game/world"
)

// MaxOpenContainers is the number of container windows a client supports.
const MaxOpenContainers = 16

// AnySlot asks OpenContainer to pick the first free client id.
const AnySlot uint8 = 0xFF

var (
	// ErrInvalidSlot is returned for a client id outside 0..MaxOpenContainers-1.
	ErrInvalidSlot = errors.New("container: invalid client slot")
	// ErrNoFreeSlot is returned when every client id is in use.
	ErrNoFreeSlot = errors.New("container: no free client slot")
	// ErrNotOpen is returned when closing a container the creature does not have open.
	ErrNotOpen = errors.New("container: not open")
)

// CreatureFinder resolves creature ids.
type CreatureFinder interface {
	FindCreatureByID(id uint32) (*world.Creature, bool)
}

// watched is the reference-counted subscription to one container.
type watched struct {
	container *world.Container
	sub       world.SubscriptionID
	// watchers maps creature id to the client slot it sees the container at.
	watchers map[uint32]uint8
}

// Manager is the only owner of the container-visibility mapping.
//
// Invariant: byCreature[c][s] == k iff byContainer[k.ID()].watchers[c] == s.
type Manager struct {
	mu          sync.Mutex
	logger      *zap.Logger
	creatures   CreatureFinder
	notifier    notification.Notifier
	byCreature  map[uint32]map[uint8]*world.Container
	byContainer map[uuid.UUID]*watched
}

// NewManager returns an empty manager.
//
// Precondition: logger, creatures and notifier must not be nil.
func NewManager(logger *zap.Logger, creatures CreatureFinder, notifier notification.Notifier) *Manager {
	if logger == nil || creatures == nil || notifier == nil {
		panic("container.NewManager: logger, creatures and notifier must not be nil")
	}
	return &Manager{
		logger:      logger,
		creatures:   creatures,
		notifier:    notifier,
		byCreature:  make(map[uint32]map[uint8]*world.Container),
		byContainer: make(map[uuid.UUID]*watched),
	}
}

// FirstFreeSlot returns the lowest client id the creature has no container at.
func (m *Manager) FirstFreeSlot(creatureID uint32) (uint8, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.firstFreeLocked(creatureID)
}

func (m *Manager) firstFreeLocked(creatureID uint32) (uint8, bool) {
	open := m.byCreature[creatureID]
	for s := uint8(0); s < MaxOpenContainers; s++ {
		if _, used := open[s]; !used {
			return s, true
		}
	}
	return 0, false
}

// OpenContainer shows c to the creature at atSlot (AnySlot for the first free one).
// Opening the same container at the same slot again changes nothing. A different
// container at atSlot is closed first; the same container at another slot moves.
//
// Postcondition: on success the mapping holds (creatureID, slot, c) in both
// directions and a ContainerOpened notification is sent.
func (m *Manager) OpenContainer(creatureID uint32, c *world.Container, atSlot uint8) (uint8, error) {
	m.mu.Lock()
	if atSlot == AnySlot {
		if s, already := m.slotOfLocked(creatureID, c); already {
			m.mu.Unlock()
			return s, nil
		}
		free, ok := m.firstFreeLocked(creatureID)
		if !ok {
			m.mu.Unlock()
			return 0, ErrNoFreeSlot
		}
		atSlot = free
	}
	if atSlot >= MaxOpenContainers {
		m.mu.Unlock()
		return 0, fmt.Errorf("%w: %d", ErrInvalidSlot, atSlot)
	}

	var out []*notification.Notification
	if current, ok := m.byCreature[creatureID][atSlot]; ok {
		if current == c {
			m.mu.Unlock()
			return atSlot, nil
		}
		m.closeLocked(creatureID, current, atSlot)
		out = append(out, notification.ToCreature(creatureID, notification.ContainerClosed{ClientID: atSlot}))
	}
	if prev, ok := m.slotOfLocked(creatureID, c); ok {
		m.closeLocked(creatureID, c, prev)
		out = append(out, notification.ToCreature(creatureID, notification.ContainerClosed{ClientID: prev}))
	}

	open := m.byCreature[creatureID]
	if open == nil {
		open = make(map[uint8]*world.Container)
		m.byCreature[creatureID] = open
	}
	open[atSlot] = c
	w, ok := m.byContainer[c.ID()]
	if !ok {
		w = &watched{container: c, watchers: make(map[uint32]uint8)}
		w.sub = c.Subscribe(m)
		m.byContainer[c.ID()] = w
	}
	w.watchers[creatureID] = atSlot
	out = append(out, notification.ToCreature(creatureID, openedPacket(c, atSlot)))
	m.mu.Unlock()

	m.logger.Debug("container opened",
		zap.Uint32("creature", creatureID),
		zap.Uint8("slot", atSlot),
		zap.String("container", c.ID().String()),
	)
	m.notifyAll(out)
	return atSlot, nil
}

// CloseContainer closes c at atSlot for the creature.
//
// Postcondition: returns ErrNotOpen, changing nothing, unless c is open at atSlot.
func (m *Manager) CloseContainer(creatureID uint32, c *world.Container, atSlot uint8) error {
	m.mu.Lock()
	if current, ok := m.byCreature[creatureID][atSlot]; !ok || current != c {
		m.mu.Unlock()
		return ErrNotOpen
	}
	m.closeLocked(creatureID, c, atSlot)
	m.mu.Unlock()

	m.notifier.Notify(notification.ToCreature(creatureID, notification.ContainerClosed{ClientID: atSlot}))
	return nil
}

// FindForCreature returns the container the creature has open at slot.
func (m *Manager) FindForCreature(creatureID uint32, slot uint8) (*world.Container, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.byCreature[creatureID][slot]
	return c, ok
}

// FindSlotForCreature returns the slot at which the creature sees c.
func (m *Manager) FindSlotForCreature(creatureID uint32, c *world.Container) (uint8, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.slotOfLocked(creatureID, c)
}

func (m *Manager) slotOfLocked(creatureID uint32, c *world.Container) (uint8, bool) {
	w, ok := m.byContainer[c.ID()]
	if !ok {
		return 0, false
	}
	s, ok := w.watchers[creatureID]
	return s, ok
}

// FindAllForCreature returns a copy of the creature's open containers by slot.
func (m *Manager) FindAllForCreature(creatureID uint32) map[uint8]*world.Container {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[uint8]*world.Container, len(m.byCreature[creatureID]))
	for s, c := range m.byCreature[creatureID] {
		out[s] = c
	}
	return out
}

// Watchers returns a copy of the creatures watching c and their slots.
func (m *Manager) Watchers(c *world.Container) map[uint32]uint8 {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.byContainer[c.ID()]
	if !ok {
		return map[uint32]uint8{}
	}
	out := make(map[uint32]uint8, len(w.watchers))
	for id, s := range w.watchers {
		out[id] = s
	}
	return out
}

// CloseAll closes every container the creature has open.
func (m *Manager) CloseAll(creatureID uint32) {
	m.closeWhere(creatureID, func(*world.Container) bool { return true })
}

// CloseDistant closes the creature's containers that are out of reach from at:
// further than one step away or on another floor, unless the creature carries them.
func (m *Manager) CloseDistant(creatureID uint32, at world.Location) {
	m.closeWhere(creatureID, func(c *world.Container) bool {
		if carrier, ok := world.CarrierOf(c.Item()); ok {
			return carrier.ID() != creatureID
		}
		return !at.InVisibilityRange(c.Location())
	})
}

// Forget closes c and every container nested in it for every watcher. Used
// when the container item leaves the world.
func (m *Manager) Forget(c *world.Container) {
	gone := nested(c)
	m.mu.Lock()
	var out []*notification.Notification
	for _, cont := range gone {
		w, ok := m.byContainer[cont.ID()]
		if !ok {
			continue
		}
		for _, id := range sortedIDs(w.watchers) {
			s := w.watchers[id]
			m.closeLocked(id, cont, s)
			out = append(out, notification.ToCreature(id, notification.ContainerClosed{ClientID: s}))
		}
	}
	m.mu.Unlock()
	m.notifyAll(out)
}

// nested returns c followed by the containers inside it, depth first.
func nested(c *world.Container) []*world.Container {
	out := []*world.Container{c}
	for _, it := range c.Content() {
		if inner := it.Container(); inner != nil {
			out = append(out, nested(inner)...)
		}
	}
	return out
}

func (m *Manager) closeWhere(creatureID uint32, shouldClose func(*world.Container) bool) {
	m.mu.Lock()
	open := m.byCreature[creatureID]
	slots := make([]uint8, 0, len(open))
	for s := range open {
		slots = append(slots, s)
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i] < slots[j] })

	var out []*notification.Notification
	for _, s := range slots {
		c := open[s]
		if !shouldClose(c) {
			continue
		}
		m.closeLocked(creatureID, c, s)
		out = append(out, notification.ToCreature(creatureID, notification.ContainerClosed{ClientID: s}))
	}
	m.mu.Unlock()
	m.notifyAll(out)
}

// closeLocked removes (creatureID, slot, c) from both directions and drops the
// subscription when c has no watcher left.
func (m *Manager) closeLocked(creatureID uint32, c *world.Container, slot uint8) {
	if open := m.byCreature[creatureID]; open != nil {
		delete(open, slot)
		if len(open) == 0 {
			delete(m.byCreature, creatureID)
		}
	}
	w, ok := m.byContainer[c.ID()]
	if !ok {
		return
	}
	delete(w.watchers, creatureID)
	if len(w.watchers) == 0 {
		c.Unsubscribe(w.sub)
		delete(m.byContainer, c.ID())
	}
}

func (m *Manager) notifyAll(out []*notification.Notification) {
	for _, n := range out {
		m.notifier.Notify(n)
	}
}

// watchersOf snapshots the watchers of c in creature id order.
func (m *Manager) watchersOf(c *world.Container) []watcher {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.byContainer[c.ID()]
	if !ok {
		return nil
	}
	out := make([]watcher, 0, len(w.watchers))
	for _, id := range sortedIDs(w.watchers) {
		out = append(out, watcher{creatureID: id, slot: w.watchers[id]})
	}
	return out
}

type watcher struct {
	creatureID uint32
	slot       uint8
}

func sortedIDs(watchers map[uint32]uint8) []uint32 {
	ids := make([]uint32, 0, len(watchers))
	for id := range watchers {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func openedPacket(c *world.Container, slot uint8) notification.ContainerOpened {
	content := c.Content()
	items := make([]notification.ItemDescriptor, 0, len(content))
	for _, it := range content {
		items = append(items, notification.DescribeItem(it))
	}
	return notification.ContainerOpened{
		ClientID:    slot,
		ContainerID: c.ID(),
		Item:        notification.DescribeItem(c.Item()),
		Capacity:    c.Capacity(),
		Content:     items,
	}
}
