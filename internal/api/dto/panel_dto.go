package dto

import (
	"time"

	"github.com/guildtools/ticketbot/internal/domain"
)

// UpdatePanelRequest payload; nil fields are left unchanged.
type UpdatePanelRequest struct {
	ModRoleID           *string `json:"mod_role_id"`
	TranscriptChannelID *string `json:"transcript_channel_id"`
	UIMode              *string `json:"ui_mode"`
	PanelMessage        *string `json:"panel_message"`
}

// AddButtonRequest payload.
type AddButtonRequest struct {
	Label          string `json:"label"`
	PromptTemplate string `json:"prompt_template"`
	TicketType     string `json:"ticket_type"`
}

// ButtonResponse describes one configured entry point.
type ButtonResponse struct {
	Label          string `json:"label"`
	PromptTemplate string `json:"prompt_template"`
	TicketType     string `json:"ticket_type"`
	Position       int    `json:"position"`
}

// PanelConfigResponse is the full per-guild configuration.
type PanelConfigResponse struct {
	GuildID             string           `json:"guild_id"`
	ModRoleID           *string          `json:"mod_role_id"`
	TranscriptChannelID *string          `json:"transcript_channel_id"`
	UIMode              domain.UIMode    `json:"ui_mode"`
	PanelMessage        string           `json:"panel_message"`
	Buttons             []ButtonResponse `json:"buttons"`
	UpdatedAt           time.Time        `json:"updated_at"`
}

// ControlResponse describes one registered control.
type ControlResponse struct {
	ControlID  string             `json:"control_id"`
	Kind       domain.ControlKind `json:"kind"`
	TicketType *string            `json:"ticket_type,omitempty"`
}
