package domain

import "time"

// ControlKind enumerates interactive control categories.
type ControlKind string

const (
	ControlKindCreateButton ControlKind = "CREATE_BUTTON"
	ControlKindSelectMenu   ControlKind = "SELECT_MENU"
	ControlKindCloseButton  ControlKind = "CLOSE_BUTTON"
)

// ControlRecord maps an identifier embedded in a rendered UI control to
// the context needed to handle a future interaction with it. Records are
// store-backed so controls rendered before a restart keep resolving.
type ControlRecord struct {
	ControlID  string
	Kind       ControlKind
	GuildID    string
	TicketID   *string
	TicketType *string
	CreatedAt  time.Time
}
