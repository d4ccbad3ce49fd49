// Package notification describes what observers are told about world changes
// and delivers it through the connections of the recipients.
package notification

import (
	"github.com/google/uuid"

	"github.com/cory-johannsen/tilemud/internal/game/world"
)

// PacketType identifies the kind of a Packet.
type PacketType uint8

// Packet types.
const (
	PacketTileUpdated PacketType = iota + 1
	PacketCreatureMoved
	PacketCreatureTurned
	PacketCreatureSpoke
	PacketCreatureAppeared
	PacketCreatureRemoved
	PacketContainerOpened
	PacketContainerClosed
	PacketContainerItemAdded
	PacketContainerItemRemoved
	PacketContainerItemUpdated
	PacketSlotUpdated
	PacketTextMessage
	PacketWorldLight
)

var packetNames = map[PacketType]string{
	PacketTileUpdated:          "tile_updated",
	PacketCreatureMoved:        "creature_moved",
	PacketCreatureTurned:       "creature_turned",
	PacketCreatureSpoke:        "creature_spoke",
	PacketCreatureAppeared:     "creature_appeared",
	PacketCreatureRemoved:      "creature_removed",
	PacketContainerOpened:      "container_opened",
	PacketContainerClosed:      "container_closed",
	PacketContainerItemAdded:   "container_item_added",
	PacketContainerItemRemoved: "container_item_removed",
	PacketContainerItemUpdated: "container_item_updated",
	PacketSlotUpdated:          "slot_updated",
	PacketTextMessage:          "text_message",
	PacketWorldLight:           "world_light",
}

// String returns the packet type name used in logs and metrics.
func (p PacketType) String() string {
	if name, ok := packetNames[p]; ok {
		return name
	}
	return "unknown"
}

// Packet is a descriptor of one message to a client. Byte encoding belongs to
// the transport.
type Packet interface {
	Type() PacketType
}

// ItemDescriptor is the client-visible snapshot of an item.
type ItemDescriptor struct {
	ID       uuid.UUID
	TypeID   uint16
	ClientID uint16
	Name     string
	Amount   int
}

// DescribeItem snapshots it.
//
// Precondition: it must not be nil.
func DescribeItem(it *world.Item) ItemDescriptor {
	return ItemDescriptor{
		ID:       it.ID(),
		TypeID:   it.ThingID(),
		ClientID: it.Type().ClientID,
		Name:     it.Type().Name,
		Amount:   it.Amount(),
	}
}

// ThingDescriptor is one entry of a tile description, bottom first.
type ThingDescriptor struct {
	// CreatureID is set for creatures; Item is set otherwise.
	CreatureID uint32
	Item       *ItemDescriptor
}

// DescribeTile snapshots the stack of tile.
func DescribeTile(tile *world.Tile) []ThingDescriptor {
	things := tile.Things()
	out := make([]ThingDescriptor, 0, len(things))
	for _, th := range things {
		switch v := th.(type) {
		case *world.Creature:
			out = append(out, ThingDescriptor{CreatureID: v.ID()})
		case *world.Item:
			d := DescribeItem(v)
			out = append(out, ThingDescriptor{Item: &d})
		}
	}
	return out
}

// TileUpdated replaces the client's copy of a tile.
type TileUpdated struct {
	Location world.Location
	Things   []ThingDescriptor
}

// CreatureMoved reports a creature stepping or being pushed between tiles.
type CreatureMoved struct {
	CreatureID     uint32
	From           world.Location
	FromStackIndex uint8
	To             world.Location
}

// CreatureTurned reports a new facing direction.
type CreatureTurned struct {
	CreatureID uint32
	Direction  world.Direction
}

// CreatureSpoke carries speech heard at Location.
type CreatureSpoke struct {
	CreatureID uint32
	Name       string
	Location   world.Location
	Text       string
}

// CreatureAppeared reports a creature entering the world.
type CreatureAppeared struct {
	CreatureID uint32
	Name       string
	Location   world.Location
	Direction  world.Direction
}

// CreatureRemoved reports a creature leaving the world.
type CreatureRemoved struct {
	CreatureID uint32
	Location   world.Location
	StackIndex uint8
}

// ContainerOpened shows a container window at ClientID.
type ContainerOpened struct {
	ClientID    uint8
	ContainerID uuid.UUID
	Item        ItemDescriptor
	Capacity    int
	Content     []ItemDescriptor
}

// ContainerClosed closes the window at ClientID.
type ContainerClosed struct {
	ClientID uint8
}

// ContainerItemAdded inserts Item at index 0 of the window at ClientID.
type ContainerItemAdded struct {
	ClientID uint8
	Item     ItemDescriptor
}

// ContainerItemRemoved deletes Index from the window at ClientID.
type ContainerItemRemoved struct {
	ClientID uint8
	Index    uint8
}

// ContainerItemUpdated replaces Index of the window at ClientID.
type ContainerItemUpdated struct {
	ClientID uint8
	Index    uint8
	Item     ItemDescriptor
}

// SlotUpdated reports the content of an equipment slot; Item is nil when empty.
type SlotUpdated struct {
	Slot world.Slot
	Item *ItemDescriptor
}

// TextKind selects how the client renders a TextMessage.
type TextKind uint8

// Text kinds.
const (
	TextStatus TextKind = iota
	TextInfo
	TextWarning
)

// TextMessage is a status line shown to one player.
type TextMessage struct {
	Kind TextKind
	Text string
}

// WorldLight sets the ambient light.
type WorldLight struct {
	Level uint8
	Color uint8
}

func (TileUpdated) Type() PacketType          { return PacketTileUpdated }
func (CreatureMoved) Type() PacketType        { return PacketCreatureMoved }
func (CreatureTurned) Type() PacketType       { return PacketCreatureTurned }
func (CreatureSpoke) Type() PacketType        { return PacketCreatureSpoke }
func (CreatureAppeared) Type() PacketType     { return PacketCreatureAppeared }
func (CreatureRemoved) Type() PacketType      { return PacketCreatureRemoved }
func (ContainerOpened) Type() PacketType      { return PacketContainerOpened }
func (ContainerClosed) Type() PacketType      { return PacketContainerClosed }
func (ContainerItemAdded) Type() PacketType   { return PacketContainerItemAdded }
func (ContainerItemRemoved) Type() PacketType { return PacketContainerItemRemoved }
func (ContainerItemUpdated) Type() PacketType { return PacketContainerItemUpdated }
func (SlotUpdated) Type() PacketType          { return PacketSlotUpdated }
func (TextMessage) Type() PacketType          { return PacketTextMessage }
func (WorldLight) Type() PacketType           { return PacketWorldLight }
