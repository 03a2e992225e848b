package dto

import (
	"time"

	"github.com/guildtools/ticketbot/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	ActorID    string `json:"actor_id"`
	GuildID    string `json:"guild_id"`
	ChannelID  string `json:"channel_id"`
	TicketType string `json:"ticket_type"`
}

// CloseTicketRequest payload.
type CloseTicketRequest struct {
	ActorID string  `json:"actor_id"`
	Reason  *string `json:"reason,omitempty"`
}

// TicketSummary response.
type TicketSummary struct {
	ID          string              `json:"id"`
	ActorID     string              `json:"actor_id"`
	GuildID     string              `json:"guild_id"`
	ChannelID   string              `json:"channel_id"`
	TicketType  string              `json:"ticket_type"`
	Status      domain.TicketStatus `json:"status"`
	CreatedAt   time.Time           `json:"created_at"`
	ClosedAt    *time.Time          `json:"closed_at,omitempty"`
	ClosedBy    *string             `json:"closed_by,omitempty"`
	CloseReason *string             `json:"close_reason,omitempty"`
}

// TranscriptResponse carries a rendered transcript.
type TranscriptResponse struct {
	FileName     string `json:"file_name"`
	MessageCount int    `json:"message_count"`
	Text         string `json:"text"`
	HTML         string `json:"html"`
}
