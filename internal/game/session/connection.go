// Package session tracks connected players: their packet queues, their
// activity, and which of them can see a map location.
package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cory-johannsen/tilemud/internal/game/notification"
)

var (
	// ErrClosed is returned when sending to a closed connection.
	ErrClosed = errors.New("session: connection closed")
	// ErrBufferFull is returned when a connection's packet buffer is full.
	ErrBufferFull = errors.New("session: packet buffer full")
)

// DefaultBufferSize is the packet batch buffer of a connection created without one.
const DefaultBufferSize = 64

// Connection routes packet batches for one player to a Go channel read by the
// transport.
type Connection struct {
	creatureID uint32
	name       string
	packets    chan []notification.Packet

	mu         sync.Mutex
	closed     bool
	lastActive time.Time
	warned     bool
}

// NewConnection returns an open connection for a player creature.
//
// Postcondition: the packet channel is open and the connection counts as
// active at now.
func NewConnection(creatureID uint32, name string, bufferSize int, now time.Time) *Connection {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	return &Connection{
		creatureID: creatureID,
		name:       name,
		packets:    make(chan []notification.Packet, bufferSize),
		lastActive: now,
	}
}

// CreatureID returns the creature the connection drives.
func (c *Connection) CreatureID() uint32 { return c.creatureID }

// Name returns the player name.
func (c *Connection) Name() string { return c.name }

// Send enqueues one batch of packets.
//
// Postcondition: returns ErrClosed or ErrBufferFull, dropping the batch, when
// it cannot be enqueued.
func (c *Connection) Send(packets ...notification.Packet) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return fmt.Errorf("creature %d: %w", c.creatureID, ErrClosed)
	}
	select {
	case c.packets <- packets:
		return nil
	default:
		return fmt.Errorf("creature %d: %w", c.creatureID, ErrBufferFull)
	}
}

// Packets returns the channel the transport drains.
func (c *Connection) Packets() <-chan []notification.Packet {
	return c.packets
}

// Close closes the packet channel. Closing twice is harmless.
func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.packets)
	}
	return nil
}

// IsClosed reports whether Close was called.
func (c *Connection) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// LastActive returns the time of the most recent player activity.
func (c *Connection) LastActive() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastActive
}

func (c *Connection) touch(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if now.After(c.lastActive) {
		c.lastActive = now
	}
	c.warned = false
}

func (c *Connection) markWarned() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.warned {
		return false
	}
	c.warned = true
	return true
}
