package operation

import "github.com/cory-johannsen/tilemud/internal/game/world"

// CreationArgs is the closed set of argument types Factory.Create accepts.
type CreationArgs interface {
	kind() Kind
}

// MovementArgs moves amount units of Item from one cylinder to another.
type MovementArgs struct {
	RequestorID uint32
	Item        *world.Item
	From        world.Cylinder
	FromIndex   uint8
	To          world.Cylinder
	// ToIndex is the destination index, or world.AnyIndex.
	ToIndex uint8
	Amount  int
}

// CreatureMovementArgs steps or pushes a creature onto an adjacent tile.
type CreatureMovementArgs struct {
	RequestorID uint32
	CreatureID  uint32
	To          world.Location
}

// WalkArgs walks the requestor along Directions, or towards Target when
// Directions is empty.
type WalkArgs struct {
	RequestorID uint32
	Directions  []world.Direction
	Target      *world.Location
}

// TurnArgs turns the requestor to face Direction.
type TurnArgs struct {
	RequestorID uint32
	Direction   world.Direction
}

// SpeechArgs makes the requestor say Text.
type SpeechArgs struct {
	RequestorID uint32
	Text        string
}

// OpenContainerArgs opens Container for the requestor at ClientSlot, or the
// first free slot when ClientSlot is container.AnySlot.
type OpenContainerArgs struct {
	RequestorID uint32
	Container   *world.Container
	ClientSlot  uint8
}

// CloseContainerArgs closes whatever the requestor has open at ClientSlot.
type CloseContainerArgs struct {
	RequestorID uint32
	ClientSlot  uint8
}

// UseItemArgs uses Item, held by From at Index, optionally on Target.
type UseItemArgs struct {
	RequestorID uint32
	Item        *world.Item
	From        world.Cylinder
	Index       uint8
	// ClientSlot is where a used container opens; container.AnySlot for any.
	ClientSlot uint8
	Target     world.Thing
}

// CreateItemArgs places a new item on the tile at Location.
type CreateItemArgs struct {
	Location world.Location
	TypeID   uint16
	Amount   int
}

// DeleteItemArgs removes Amount units of the topmost TypeID item on the tile
// at Location.
type DeleteItemArgs struct {
	Location world.Location
	TypeID   uint16
	Amount   int
}

// ChangeItemArgs turns the topmost FromTypeID item on the tile at Location
// into a ToTypeID item.
type ChangeItemArgs struct {
	Location   world.Location
	FromTypeID uint16
	ToTypeID   uint16
}

// LogInArgs places Creature into the world at Location.
type LogInArgs struct {
	Creature *world.Creature
	Location world.Location
}

// LogOutArgs removes the creature CreatureID from the world.
type LogOutArgs struct {
	CreatureID uint32
}

func (MovementArgs) kind() Kind         { return KindMovement }
func (CreatureMovementArgs) kind() Kind { return KindCreatureMovement }
func (WalkArgs) kind() Kind             { return KindWalk }
func (TurnArgs) kind() Kind             { return KindTurn }
func (SpeechArgs) kind() Kind           { return KindSpeech }
func (OpenContainerArgs) kind() Kind    { return KindOpenContainer }
func (CloseContainerArgs) kind() Kind   { return KindCloseContainer }
func (UseItemArgs) kind() Kind          { return KindUseItem }
func (CreateItemArgs) kind() Kind       { return KindCreateItem }
func (DeleteItemArgs) kind() Kind       { return KindDeleteItem }
func (ChangeItemArgs) kind() Kind       { return KindChangeItem }
func (LogInArgs) kind() Kind            { return KindLogIn }
func (LogOutArgs) kind() Kind           { return KindLogOut }
