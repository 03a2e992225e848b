package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/guildtools/ticketbot/internal/api/dto"
	"github.com/guildtools/ticketbot/internal/controls"
	"github.com/guildtools/ticketbot/internal/domain"
	"github.com/guildtools/ticketbot/internal/observability"
	"github.com/guildtools/ticketbot/internal/service"
	apperrors "github.com/guildtools/ticketbot/pkg/util"
)

// InteractionsHandler receives control activations forwarded by the
// gateway glue and routes them through the control registry.
type InteractionsHandler struct {
	manager  *service.TicketManager
	registry *controls.Registry
	metrics  *observability.Metrics
}

// NewInteractionsHandler constructs handler.
func NewInteractionsHandler(manager *service.TicketManager, registry *controls.Registry, metrics *observability.Metrics) *InteractionsHandler {
	return &InteractionsHandler{manager: manager, registry: registry, metrics: metrics}
}

// Handle POST /interactions.
func (h *InteractionsHandler) Handle(c *fiber.Ctx) error {
	var req dto.InteractionRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.ControlID == "" || req.ActorID == "" {
		return apperrors.NewValidationError("control_id and actor_id required", nil)
	}

	record, err := h.registry.Resolve(c.UserContext(), req.ControlID)
	if err != nil {
		if apperrors.HasCode(err, apperrors.CodeStaleControl) {
			h.metrics.RecordOp(observability.OpStaleControl)
		}
		return err
	}

	switch record.Kind {
	case domain.ControlKindCreateButton:
		if record.TicketType == nil {
			return apperrors.NewStaleControl(req.ControlID)
		}
		return h.createTicket(c, &req, record, *record.TicketType)

	case domain.ControlKindSelectMenu:
		if req.SelectedType == nil || *req.SelectedType == "" {
			return apperrors.NewValidationError("selected_type required for menu interactions", nil)
		}
		return h.createTicket(c, &req, record, *req.SelectedType)

	case domain.ControlKindCloseButton:
		if record.TicketID == nil {
			return apperrors.NewStaleControl(req.ControlID)
		}
		artifact, err := h.manager.CloseTicket(c.UserContext(), *record.TicketID, req.ActorID, req.Reason)
		if err != nil {
			return err
		}
		return c.JSON(dto.InteractionResponse{
			Action: "ticket_closed",
			Transcript: &dto.TranscriptResponse{
				FileName:     artifact.FileName,
				MessageCount: artifact.MessageCount,
				Text:         artifact.Text,
				HTML:         artifact.HTML,
			},
		})

	default:
		return apperrors.NewStaleControl(req.ControlID)
	}
}

func (h *InteractionsHandler) createTicket(c *fiber.Ctx, req *dto.InteractionRequest, record *domain.ControlRecord, ticketType string) error {
	ticket, err := h.manager.CreateTicket(c.UserContext(), req.ActorID, record.GuildID, req.ChannelID, ticketType)
	if err != nil {
		return err
	}

	cfg, err := h.manager.Settings(c.UserContext(), record.GuildID)
	if err != nil {
		return err
	}
	prompt := ""
	if button, ok := cfg.ButtonForType(ticketType); ok {
		prompt = button.PromptTemplate
	}

	summary := ticketSummary(ticket)
	return c.Status(fiber.StatusCreated).JSON(dto.InteractionResponse{
		Action: "ticket_created",
		Ticket: &summary,
		Prompt: prompt,
	})
}
