package operation

import (
	"fmt"
	"strings"
	"time"

	"github.com/cory-johannsen/tilemud/internal/game/world"
)

// Costs are the cooldown costs of the operation kinds whose cost does not
// depend on creature speed.
type Costs struct {
	Action time.Duration
	Use    time.Duration
	Speech time.Duration
	Push   time.Duration
	// DiagonalFactor multiplies the step duration of diagonal steps.
	DiagonalFactor int
}

// DefaultCosts returns the costs used when configuration gives none.
func DefaultCosts() Costs {
	return Costs{
		Action:         200 * time.Millisecond,
		Use:            time.Second,
		Speech:         time.Second,
		Push:           2 * time.Second,
		DiagonalFactor: 2,
	}
}

// Factory validates creation arguments and builds operations.
type Factory struct {
	costs     Costs
	creatures CreatureFinder
}

// NewFactory returns a Factory.
//
// Precondition: creatures must not be nil.
func NewFactory(costs Costs, creatures CreatureFinder) *Factory {
	if creatures == nil {
		panic("operation.NewFactory: creatures must not be nil")
	}
	if costs.DiagonalFactor < 1 {
		costs.DiagonalFactor = 1
	}
	return &Factory{costs: costs, creatures: creatures}
}

// Create builds the operation described by args.
//
// Postcondition: a nil error means the operation is well formed; world state
// is validated again when it executes.
func (f *Factory) Create(args CreationArgs) (Operation, error) {
	op, err := f.create(args)
	if err != nil {
		return nil, fmt.Errorf("creating %s operation: %w", args.kind(), err)
	}
	return op, nil
}

func (f *Factory) create(args CreationArgs) (Operation, error) {
	switch a := args.(type) {
	case MovementArgs:
		return f.movement(a)
	case CreatureMovementArgs:
		return f.creatureMovement(a)
	case WalkArgs:
		return f.walk(a)
	case TurnArgs:
		if a.RequestorID == 0 {
			return nil, ErrMissingRequestor
		}
		if !a.Direction.IsFacing() {
			return nil, fmt.Errorf("%w: %s", ErrInvalidDirection, a.Direction)
		}
		return &TurnOperation{base: newBase(KindTurn, a.RequestorID, world.ExhaustionNone, 0), direction: a.Direction}, nil
	case SpeechArgs:
		if a.RequestorID == 0 {
			return nil, ErrMissingRequestor
		}
		if strings.TrimSpace(a.Text) == "" {
			return nil, ErrEmptyText
		}
		return &SpeechOperation{base: newBase(KindSpeech, a.RequestorID, world.ExhaustionSpeech, f.costs.Speech), text: a.Text}, nil
	case OpenContainerArgs:
		if a.RequestorID == 0 {
			return nil, ErrMissingRequestor
		}
		if a.Container == nil {
			return nil, ErrMissingThing
		}
		return &OpenContainerOperation{
			base:      newBase(KindOpenContainer, a.RequestorID, world.ExhaustionAction, f.costs.Action),
			container: a.Container,
			slot:      a.ClientSlot,
		}, nil
	case CloseContainerArgs:
		if a.RequestorID == 0 {
			return nil, ErrMissingRequestor
		}
		return &CloseContainerOperation{base: newBase(KindCloseContainer, a.RequestorID, world.ExhaustionNone, 0), slot: a.ClientSlot}, nil
	case UseItemArgs:
		return f.useItem(a)
	case CreateItemArgs:
		if a.Amount < 0 {
			return nil, ErrZeroAmount
		}
		if a.Location.Type() != world.LocationMap {
			return nil, ErrWrongCylinder
		}
		return &CreateItemOperation{base: newBase(KindCreateItem, 0, world.ExhaustionNone, 0), args: a}, nil
	case DeleteItemArgs:
		if a.Amount < 1 {
			return nil, ErrZeroAmount
		}
		if a.Location.Type() != world.LocationMap {
			return nil, ErrWrongCylinder
		}
		return &DeleteItemOperation{base: newBase(KindDeleteItem, 0, world.ExhaustionNone, 0), args: a}, nil
	case ChangeItemArgs:
		if a.Location.Type() != world.LocationMap {
			return nil, ErrWrongCylinder
		}
		return &ChangeItemOperation{base: newBase(KindChangeItem, 0, world.ExhaustionNone, 0), args: a}, nil
	case LogInArgs:
		if a.Creature == nil {
			return nil, ErrMissingThing
		}
		if a.Location.Type() != world.LocationMap {
			return nil, ErrWrongCylinder
		}
		return &LogInOperation{base: newBase(KindLogIn, 0, world.ExhaustionNone, 0), creature: a.Creature, location: a.Location}, nil
	case LogOutArgs:
		if a.CreatureID == 0 {
			return nil, ErrMissingThing
		}
		return &LogOutOperation{base: newBase(KindLogOut, 0, world.ExhaustionNone, 0), creatureID: a.CreatureID}, nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownArgs, args)
	}
}

func (f *Factory) movement(a MovementArgs) (Operation, error) {
	if a.Amount <= 0 {
		return nil, ErrZeroAmount
	}
	if a.From == nil || a.To == nil {
		return nil, ErrWrongCylinder
	}
	if a.Item == nil {
		return nil, ErrMissingThing
	}
	if a.Amount > a.Item.Amount() {
		return nil, fmt.Errorf("%w: moving %d of %d", ErrInvalidAmount, a.Amount, a.Item.Amount())
	}
	return &MovementOperation{base: newBase(KindMovement, a.RequestorID, world.ExhaustionAction, f.costs.Action), args: a}, nil
}

func (f *Factory) creatureMovement(a CreatureMovementArgs) (Operation, error) {
	if a.RequestorID == 0 {
		return nil, ErrMissingRequestor
	}
	if a.To.Type() != world.LocationMap {
		return nil, ErrWrongCylinder
	}
	moved, ok := f.creatures.FindCreatureByID(a.CreatureID)
	if !ok {
		return nil, ErrMissingThing
	}
	if a.RequestorID != a.CreatureID {
		return &CreatureMovementOperation{
			base:       newBase(KindCreatureMovement, a.RequestorID, world.ExhaustionAction, f.costs.Push),
			creatureID: a.CreatureID,
			to:         a.To,
		}, nil
	}
	dir, _ := moved.Location().DirectionTo(a.To)
	return &CreatureMovementOperation{
		base:       newBase(KindCreatureMovement, a.RequestorID, world.ExhaustionMovement, f.stepCost(moved, dir)),
		creatureID: a.CreatureID,
		to:         a.To,
	}, nil
}

func (f *Factory) walk(a WalkArgs) (Operation, error) {
	if a.RequestorID == 0 {
		return nil, ErrMissingRequestor
	}
	if len(a.Directions) == 0 && a.Target == nil {
		return nil, ErrInvalidDirection
	}
	walker, ok := f.creatures.FindCreatureByID(a.RequestorID)
	if !ok {
		return nil, ErrMissingRequestor
	}
	if len(a.Directions) > 0 {
		return f.step(walker, append([]world.Direction(nil), a.Directions...)), nil
	}
	if a.Target.Type() != world.LocationMap {
		return nil, ErrWrongCylinder
	}
	target := *a.Target
	return &WalkOperation{
		base:    newBase(KindWalk, a.RequestorID, world.ExhaustionNone, 0),
		factory: f,
		target:  &target,
	}, nil
}

// step builds the walk operation whose next step is directions[0], costed
// for that step.
//
// Precondition: directions is non-empty and owned by the new operation.
func (f *Factory) step(walker *world.Creature, directions []world.Direction) *WalkOperation {
	return &WalkOperation{
		base:       newBase(KindWalk, walker.ID(), world.ExhaustionMovement, f.stepCost(walker, directions[0])),
		factory:    f,
		directions: directions,
	}
}

func (f *Factory) useItem(a UseItemArgs) (Operation, error) {
	if a.RequestorID == 0 {
		return nil, ErrMissingRequestor
	}
	if a.Item == nil {
		return nil, ErrMissingThing
	}
	if a.From == nil {
		return nil, ErrWrongCylinder
	}
	return &UseItemOperation{base: newBase(KindUseItem, a.RequestorID, world.ExhaustionAction, f.costs.Use), args: a}, nil
}

// stepCost is the step duration of c, scaled for diagonal steps.
func (f *Factory) stepCost(c *world.Creature, d world.Direction) time.Duration {
	cost := c.StepDuration()
	if !d.IsFacing() {
		cost *= time.Duration(f.costs.DiagonalFactor)
	}
	return cost
}
