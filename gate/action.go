package gate

// Action describes the kind of operation a user wants to perform.
type Action string

const (
	ActionView   Action = "view"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	ActionList   Action = "list"

	// ActionTransition moves a lead to another pipeline stage.
	ActionTransition Action = "transition"
	// ActionComplete closes an interaction follow-up.
	ActionComplete Action = "complete"
	// ActionManage covers the user administration area.
	ActionManage Action = "manage"
)
