package dto

// InteractionRequest is what the gateway glue forwards when a user
// activates a rendered control.
type InteractionRequest struct {
	ControlID string `json:"control_id"`
	ActorID   string `json:"actor_id"`
	ChannelID string `json:"channel_id"`
	// SelectedType carries the chosen option for select-menu controls.
	SelectedType *string `json:"selected_type,omitempty"`
	// Reason optionally accompanies close-button interactions.
	Reason *string `json:"reason,omitempty"`
}

// InteractionResponse is the outcome the gateway renders back to the user.
type InteractionResponse struct {
	Action     string              `json:"action"`
	Ticket     *TicketSummary      `json:"ticket,omitempty"`
	Transcript *TranscriptResponse `json:"transcript,omitempty"`
	Prompt     string              `json:"prompt,omitempty"`
}
