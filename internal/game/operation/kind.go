package operation

// Kind names an operation. It doubles as the scheduler event type, so every
// pending operation of one kind can be cancelled for a requestor.
type Kind string

// Operation kinds.
const (
	KindMovement         Kind = "movement"
	KindCreatureMovement Kind = "creature_movement"
	KindWalk             Kind = "walk"
	KindTurn             Kind = "turn"
	KindSpeech           Kind = "speech"
	KindOpenContainer    Kind = "open_container"
	KindCloseContainer   Kind = "close_container"
	KindUseItem          Kind = "use_item"
	KindCreateItem       Kind = "create_item"
	KindDeleteItem       Kind = "delete_item"
	KindChangeItem       Kind = "change_item"
	KindLogIn            Kind = "log_in"
	KindLogOut           Kind = "log_out"
)

// Result is the outcome of executing an operation.
type Result uint8

const (
	// Succeeded means the operation changed the world as requested.
	Succeeded Result = iota
	// Rejected means validation failed; the requestor was told why and nothing changed.
	Rejected
)

// String returns the result label used in logs and metrics.
func (r Result) String() string {
	if r == Succeeded {
		return "succeeded"
	}
	return "rejected"
}
