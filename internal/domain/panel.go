package domain

import "time"

// UIMode selects how a guild's ticket panel is presented.
type UIMode string

const (
	UIModeButtons UIMode = "BUTTONS"
	UIModeMenu    UIMode = "MENU"
)

// DefaultPanelMessage is used until a guild configures its own panel text.
const DefaultPanelMessage = "Click a button below to open a ticket."

// ButtonDef describes one configured ticket entry point.
type ButtonDef struct {
	Label          string
	PromptTemplate string
	Type           string
	Position       int
}

// PanelConfig is the per-guild singleton governing the ticket system.
type PanelConfig struct {
	GuildID             string
	ModRoleID           *string
	TranscriptChannelID *string
	UIMode              UIMode
	PanelMessage        string
	Buttons             []ButtonDef
	UpdatedAt           time.Time
}

// ButtonForType returns the button matching the given ticket type tag.
func (p *PanelConfig) ButtonForType(ticketType string) (ButtonDef, bool) {
	for _, b := range p.Buttons {
		if b.Type == ticketType {
			return b, true
		}
	}
	return ButtonDef{}, false
}

// DefaultPanelConfig returns the configuration used before any setup ran.
func DefaultPanelConfig(guildID string) *PanelConfig {
	return &PanelConfig{
		GuildID:      guildID,
		UIMode:       UIModeButtons,
		PanelMessage: DefaultPanelMessage,
	}
}
