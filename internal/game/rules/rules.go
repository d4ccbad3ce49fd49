// Package rules defines the event-rule hook points fired while operations run
// and the implementations that answer them.
package rules

import (
	"go.uber.org/zap"

	"github.com/cory-johannsen/tilemud/internal/game/world"
	"github.com/cory-johannsen/tilemud/internal/scripting"
)

// EventType names a hook point.
type EventType uint8

// Hook points.
const (
	// Separation fires after a thing leaves a location.
	Separation EventType = iota + 1
	// Collision fires after a thing lands on a tile.
	Collision
	// Movement fires after every successful placement.
	Movement
	// Use fires when a creature uses an item.
	Use
	// MultiUse fires when a creature uses an item on a target.
	MultiUse
)

var hookNames = map[EventType]string{
	Separation: "on_separation",
	Collision:  "on_collision",
	Movement:   "on_movement",
	Use:        "on_use",
	MultiUse:   "on_multi_use",
}

// Hook returns the Lua function name that handles e.
func (e EventType) Hook() string {
	return hookNames[e]
}

// String returns the hook name.
func (e EventType) String() string {
	if name, ok := hookNames[e]; ok {
		return name
	}
	return "unknown"
}

// Args describes one rule event.
type Args struct {
	Event    EventType
	Location world.Location
	Thing    world.Thing
	// Requestor is nil for system-initiated events.
	Requestor *world.Creature
	// Target is the other thing of a multi-use or the item landed on.
	Target world.Thing
}

// Dispatcher fires rule events.
type Dispatcher interface {
	// Fire runs the rules for args and reports whether one handled the event.
	Fire(args Args) bool
}

// Noop handles nothing.
type Noop struct{}

// Fire returns false.
func (Noop) Fire(Args) bool { return false }

// HookCaller runs a named Lua hook for a zone.
type HookCaller interface {
	CallEventHook(zoneID, hook string, args scripting.HookArgs) (bool, error)
}

// ZoneResolver returns the zone owning a map location.
type ZoneResolver interface {
	ZoneOf(loc world.Location) string
}

// Scripted answers rule events with the Lua hooks of the zone the event
// happens in.
type Scripted struct {
	hooks  HookCaller
	zones  ZoneResolver
	logger *zap.Logger
}

// NewScripted returns a Scripted dispatcher.
//
// Precondition: hooks, zones and logger must not be nil.
func NewScripted(hooks HookCaller, zones ZoneResolver, logger *zap.Logger) *Scripted {
	if hooks == nil || zones == nil || logger == nil {
		panic("rules.NewScripted: hooks, zones and logger must not be nil")
	}
	return &Scripted{hooks: hooks, zones: zones, logger: logger}
}

// Fire calls the hook of args.Event in the zone at args.Location.
func (s *Scripted) Fire(args Args) bool {
	hook := args.Event.Hook()
	if hook == "" {
		return false
	}
	loc := args.Location
	if loc.Type() != world.LocationMap && args.Requestor != nil {
		loc = args.Requestor.Location()
	}
	hookArgs := scripting.HookArgs{
		X:      loc.X,
		Y:      loc.Y,
		Z:      loc.Z,
		Thing:  thingInfo(args.Thing),
		Target: thingInfo(args.Target),
	}
	if args.Requestor != nil {
		hookArgs.Requestor = args.Requestor.ID()
	}
	handled, err := s.hooks.CallEventHook(s.zones.ZoneOf(loc), hook, hookArgs)
	if err != nil {
		s.logger.Warn("rule hook failed", zap.String("hook", hook), zap.Stringer("location", loc), zap.Error(err))
		return false
	}
	return handled
}

func thingInfo(thing world.Thing) *scripting.ThingInfo {
	switch v := thing.(type) {
	case *world.Item:
		return &scripting.ThingInfo{TypeID: v.ThingID(), Amount: v.Amount()}
	case *world.Creature:
		return &scripting.ThingInfo{TypeID: world.CreatureThingID, Amount: 1, CreatureID: v.ID()}
	default:
		return nil
	}
}
