package container

import (
	"go.uber.org/zap"

	"github.com/cory-johannsen/tilemud/internal/game/notification"
	"github.com/cory-johannsen/tilemud/internal/game/world"
)

// ContentAdded fans the signal out to every watcher at its own slot.
func (m *Manager) ContentAdded(c *world.Container, item *world.Item) {
	d := notification.DescribeItem(item)
	for _, w := range m.watchersOf(c) {
		m.notifier.Notify(notification.ToCreature(w.creatureID,
			notification.ContainerItemAdded{ClientID: w.slot, Item: d}))
	}
}

// ContentRemoved fans the signal out to every watcher at its own slot.
func (m *Manager) ContentRemoved(c *world.Container, index uint8) {
	for _, w := range m.watchersOf(c) {
		m.notifier.Notify(notification.ToCreature(w.creatureID,
			notification.ContainerItemRemoved{ClientID: w.slot, Index: index}))
	}
}

// ContentUpdated fans the signal out to every watcher at its own slot.
func (m *Manager) ContentUpdated(c *world.Container, index uint8, item *world.Item) {
	d := notification.DescribeItem(item)
	for _, w := range m.watchersOf(c) {
		m.notifier.Notify(notification.ToCreature(w.creatureID,
			notification.ContainerItemUpdated{ClientID: w.slot, Index: index, Item: d}))
	}
}

// LocationChanged closes c for watchers that can no longer reach it: anyone
// out of range of its new location and, when it is carried, anyone but the carrier.
func (m *Manager) LocationChanged(c *world.Container, from world.Location) {
	at := c.Location()
	carrier, carried := world.CarrierOf(c.Item())
	for _, w := range m.watchersOf(c) {
		keep := false
		if carried {
			keep = carrier.ID() == w.creatureID
		} else if creature, ok := m.creatures.FindCreatureByID(w.creatureID); ok {
			keep = creature.Location().InVisibilityRange(at)
		}
		if keep {
			continue
		}
		m.logger.Debug("closing moved container",
			zap.Uint32("creature", w.creatureID),
			zap.Stringer("from", from),
			zap.Stringer("to", at),
		)
		if err := m.CloseContainer(w.creatureID, c, w.slot); err != nil {
			m.logger.Debug("container already closed", zap.Uint32("creature", w.creatureID), zap.Error(err))
		}
	}
}

var _ world.ContainerObserver = (*Manager)(nil)
