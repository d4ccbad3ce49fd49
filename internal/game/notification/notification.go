package notification

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/cory-johannsen/tilemud/internal/game/world"
)

// EventType is the scheduler event type of every Notification.
const EventType = "notification"

// Player-facing messages sent when an intent cannot be carried out.
const (
	MessageNotPossible   = "Sorry, not possible."
	MessageTooFarAway    = "Too far away."
	MessageNotEnoughRoom = "There is not enough room."
	MessageCannotThrow   = "You cannot throw there."
	MessageCannotMove    = "You cannot move this object."
	MessageCannotUse     = "You cannot use this object."
	MessageGoDownstairs  = "First go downstairs."
	MessageGoUpstairs    = "First go upstairs."
)

// Connection sends packets to one client.
type Connection interface {
	Send(packets ...Packet) error
}

// ConnectionFinder resolves creatures to their connections.
type ConnectionFinder interface {
	// FindByCreatureID returns the connection of a player creature.
	FindByCreatureID(creatureID uint32) (Connection, bool)
	// PlayersThatCanSee returns the ids of connected players whose view covers loc.
	PlayersThatCanSee(loc world.Location) []uint32
}

// Recipients computes who receives a notification. It runs when the
// notification is delivered, not when it is created.
type Recipients func(finder ConnectionFinder) []uint32

// Notification is a scheduler event that tells a set of players about a change.
type Notification struct {
	id         uuid.UUID
	recipients Recipients
	packets    []Packet
}

// New returns a notification of packets for the players chosen by recipients.
//
// Precondition: recipients must not be nil.
func New(recipients Recipients, packets ...Packet) *Notification {
	return &Notification{id: uuid.New(), recipients: recipients, packets: packets}
}

// ToCreature returns a notification for one creature.
func ToCreature(creatureID uint32, packets ...Packet) *Notification {
	return New(func(ConnectionFinder) []uint32 { return []uint32{creatureID} }, packets...)
}

// Text returns a status-line notification for one creature.
func Text(creatureID uint32, text string) *Notification {
	return ToCreature(creatureID, TextMessage{Kind: TextStatus, Text: text})
}

// ToSpectators returns a notification for every player that can see any of locs.
// Each player is listed once.
func ToSpectators(locs []world.Location, packets ...Packet) *Notification {
	return New(func(finder ConnectionFinder) []uint32 {
		seen := make(map[uint32]struct{})
		var out []uint32
		for _, loc := range locs {
			for _, id := range finder.PlayersThatCanSee(loc) {
				if _, dup := seen[id]; dup {
					continue
				}
				seen[id] = struct{}{}
				out = append(out, id)
			}
		}
		return out
	}, packets...)
}

// EventID returns the unique id of the notification.
func (n *Notification) EventID() uuid.UUID { return n.id }

// OwnerID returns 0; notifications are owned by the system.
func (n *Notification) OwnerID() uint32 { return 0 }

// EventType returns EventType.
func (n *Notification) EventType() string { return EventType }

// Packets returns the packets carried.
func (n *Notification) Packets() []Packet { return n.packets }

// Deliver resolves the recipients and sends the packets to each connection.
// Recipients without a connection are skipped.
//
// Postcondition: sent is the number of connections that accepted the packets;
// err joins every send failure.
func (n *Notification) Deliver(finder ConnectionFinder) (sent int, err error) {
	if len(n.packets) == 0 {
		return 0, nil
	}
	var errs []error
	for _, id := range n.recipients(finder) {
		conn, ok := finder.FindByCreatureID(id)
		if !ok {
			continue
		}
		if sendErr := conn.Send(n.packets...); sendErr != nil {
			errs = append(errs, fmt.Errorf("creature %d: %w", id, sendErr))
			continue
		}
		sent++
	}
	return sent, errors.Join(errs...)
}

// Notifier accepts notifications for delivery.
type Notifier interface {
	Notify(n *Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(n *Notification)

// Notify calls f(n).
func (f NotifierFunc) Notify(n *Notification) { f(n) }
