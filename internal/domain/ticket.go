package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen   TicketStatus = "OPEN"
	TicketStatusClosed TicketStatus = "CLOSED"
)

// Ticket is the aggregate for a tracked support conversation.
type Ticket struct {
	ID          string
	ActorID     string
	GuildID     string
	ChannelID   string
	Type        string
	Status      TicketStatus
	CreatedAt   time.Time
	ClosedAt    *time.Time
	ClosedBy    *string
	CloseReason *string
}

// IsOpen reports whether the ticket still accepts lifecycle operations.
func (t *Ticket) IsOpen() bool {
	return t.Status == TicketStatusOpen
}
