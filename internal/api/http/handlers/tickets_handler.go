package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/guildtools/ticketbot/internal/api/dto"
	"github.com/guildtools/ticketbot/internal/domain"
	"github.com/guildtools/ticketbot/internal/service"
	apperrors "github.com/guildtools/ticketbot/pkg/util"
)

// TicketsHandler manages direct ticket endpoints.
type TicketsHandler struct {
	manager *service.TicketManager
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(manager *service.TicketManager) *TicketsHandler {
	return &TicketsHandler{manager: manager}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.ActorID == "" || req.GuildID == "" || req.ChannelID == "" || req.TicketType == "" {
		return apperrors.NewValidationError("actor_id, guild_id, channel_id, ticket_type required", nil)
	}

	ticket, err := h.manager.CreateTicket(c.UserContext(), req.ActorID, req.GuildID, req.ChannelID, req.TicketType)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": ticketSummary(ticket)})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	ticket, err := h.manager.GetTicket(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSummary(ticket)})
}

// CloseTicket POST /tickets/:id/close.
func (h *TicketsHandler) CloseTicket(c *fiber.Ctx) error {
	var req dto.CloseTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.ActorID == "" {
		return apperrors.NewValidationError("actor_id required", nil)
	}

	artifact, err := h.manager.CloseTicket(c.UserContext(), c.Params("id"), req.ActorID, req.Reason)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.TranscriptResponse{
		FileName:     artifact.FileName,
		MessageCount: artifact.MessageCount,
		Text:         artifact.Text,
		HTML:         artifact.HTML,
	}})
}

// ListOpenTickets GET /guilds/:guildID/tickets.
func (h *TicketsHandler) ListOpenTickets(c *fiber.Ctx) error {
	limit, _ := strconv.Atoi(c.Query("limit", "50"))
	offset, _ := strconv.Atoi(c.Query("offset", "0"))

	tickets, err := h.manager.ListOpenTickets(c.UserContext(), c.Params("guildID"), limit, offset)
	if err != nil {
		return err
	}
	items := make([]dto.TicketSummary, 0, len(tickets))
	for i := range tickets {
		items = append(items, ticketSummary(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

func ticketSummary(ticket *domain.Ticket) dto.TicketSummary {
	return dto.TicketSummary{
		ID:          ticket.ID,
		ActorID:     ticket.ActorID,
		GuildID:     ticket.GuildID,
		ChannelID:   ticket.ChannelID,
		TicketType:  ticket.Type,
		Status:      ticket.Status,
		CreatedAt:   ticket.CreatedAt,
		ClosedAt:    ticket.ClosedAt,
		ClosedBy:    ticket.ClosedBy,
		CloseReason: ticket.CloseReason,
	}
}
