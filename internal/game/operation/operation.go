// Package operation implements the player and system intents that change the
// world: item and creature movement, walking, turning, speech, containers,
// item use, and the elevated item and session operations run by the server.
package operation

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cory-johannsen/tilemud/internal/game/scheduler"
	"github.com/cory-johannsen/tilemud/internal/game/world"
)

// Operation is one unit of world change. Operations are scheduler events
// owned by their requestor.
type Operation interface {
	scheduler.Event
	Kind() Kind
	// RequestorID is the creature that asked for the operation; 0 is the system.
	RequestorID() uint32
	// ExhaustionType is the cooldown the operation is gated by and advances.
	ExhaustionType() world.ExhaustionType
	// ExhaustionCost is how far a successful execution advances the cooldown.
	ExhaustionCost() time.Duration
}

type base struct {
	id         uuid.UUID
	kind       Kind
	requestor  uint32
	exhaustion world.ExhaustionType
	cost       time.Duration
}

func newBase(kind Kind, requestor uint32, exhaustion world.ExhaustionType, cost time.Duration) base {
	return base{id: uuid.New(), kind: kind, requestor: requestor, exhaustion: exhaustion, cost: cost}
}

func (b *base) EventID() uuid.UUID                   { return b.id }
func (b *base) OwnerID() uint32                      { return b.requestor }
func (b *base) EventType() string                    { return string(b.kind) }
func (b *base) Kind() Kind                           { return b.kind }
func (b *base) RequestorID() uint32                  { return b.requestor }
func (b *base) ExhaustionType() world.ExhaustionType { return b.exhaustion }
func (b *base) ExhaustionCost() time.Duration        { return b.cost }

// Execute runs op. Regular operations see only the regular context; elevated
// operations also get the creature manager.
//
// Postcondition: a non-nil error means op was not one of the known operations.
func Execute(ctx *ElevatedContext, op Operation) (Result, error) {
	switch o := op.(type) {
	case *MovementOperation:
		return o.execute(&ctx.Context), nil
	case *CreatureMovementOperation:
		return o.execute(&ctx.Context), nil
	case *WalkOperation:
		return o.execute(&ctx.Context), nil
	case *TurnOperation:
		return o.execute(&ctx.Context), nil
	case *SpeechOperation:
		return o.execute(&ctx.Context), nil
	case *OpenContainerOperation:
		return o.execute(&ctx.Context), nil
	case *CloseContainerOperation:
		return o.execute(&ctx.Context), nil
	case *UseItemOperation:
		return o.execute(&ctx.Context), nil
	case *CreateItemOperation:
		return o.execute(ctx), nil
	case *DeleteItemOperation:
		return o.execute(ctx), nil
	case *ChangeItemOperation:
		return o.execute(ctx), nil
	case *LogInOperation:
		return o.execute(ctx), nil
	case *LogOutOperation:
		return o.execute(ctx), nil
	default:
		return Rejected, fmt.Errorf("%w: %T", ErrUnknownOperation, op)
	}
}
