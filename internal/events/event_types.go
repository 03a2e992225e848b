package events

import (
	"time"

	"github.com/guildtools/ticketbot/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated EventType = "ticket_created"
	EventTicketClosed  EventType = "ticket_closed"
	EventPanelUpdated  EventType = "panel_updated"
)

// Event represents a domain event emitted by the ticket manager. Events
// feed the external audit-log collaborator; formatting the audit output
// is out of scope here.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	GuildID   string      `json:"guild_id"`
	TicketID  string      `json:"ticket_id,omitempty"`
	ActorID   string      `json:"actor_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	ChannelID  string `json:"channel_id"`
	TicketType string `json:"ticket_type"`
}

// TicketClosedPayload payload.
type TicketClosedPayload struct {
	ClosedBy     string  `json:"closed_by"`
	Reason       *string `json:"reason,omitempty"`
	MessageCount int     `json:"message_count"`
}

// PanelUpdatedPayload payload.
type PanelUpdatedPayload struct {
	UIMode      domain.UIMode `json:"ui_mode"`
	ButtonCount int           `json:"button_count"`
}
