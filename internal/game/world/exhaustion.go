package world

// ExhaustionType is an action category with its own cooldown clock.
type ExhaustionType uint8

// Exhaustion categories.
const (
	ExhaustionNone ExhaustionType = iota
	ExhaustionMovement
	ExhaustionSpeech
	ExhaustionAction
	ExhaustionCombat
	ExhaustionMentalCombat
)

// String returns the category name.
func (e ExhaustionType) String() string {
	switch e {
	case ExhaustionNone:
		return "none"
	case ExhaustionMovement:
		return "movement"
	case ExhaustionSpeech:
		return "speech"
	case ExhaustionAction:
		return "action"
	case ExhaustionCombat:
		return "combat"
	case ExhaustionMentalCombat:
		return "mental_combat"
	default:
		return "unknown"
	}
}
