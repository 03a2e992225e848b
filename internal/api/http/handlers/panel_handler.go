package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/guildtools/ticketbot/internal/api/dto"
	"github.com/guildtools/ticketbot/internal/domain"
	"github.com/guildtools/ticketbot/internal/service"
	apperrors "github.com/guildtools/ticketbot/pkg/util"
)

// PanelHandler manages per-guild panel configuration endpoints.
type PanelHandler struct {
	manager *service.TicketManager
}

// NewPanelHandler constructs handler.
func NewPanelHandler(manager *service.TicketManager) *PanelHandler {
	return &PanelHandler{manager: manager}
}

// GetPanel GET /guilds/:guildID/panel.
func (h *PanelHandler) GetPanel(c *fiber.Ctx) error {
	cfg, err := h.manager.Settings(c.UserContext(), c.Params("guildID"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": panelConfigResponse(cfg)})
}

// UpdatePanel PATCH /guilds/:guildID/panel.
func (h *PanelHandler) UpdatePanel(c *fiber.Ctx) error {
	var req dto.UpdatePanelRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	mutation := service.PanelMutation{
		ModRoleID:           req.ModRoleID,
		TranscriptChannelID: req.TranscriptChannelID,
		PanelMessage:        req.PanelMessage,
	}
	if req.UIMode != nil {
		mode := domain.UIMode(*req.UIMode)
		mutation.UIMode = &mode
	}

	cfg, err := h.manager.Configure(c.UserContext(), c.Params("guildID"), mutation)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": panelConfigResponse(cfg)})
}

// AddButton POST /guilds/:guildID/panel/buttons.
func (h *PanelHandler) AddButton(c *fiber.Ctx) error {
	var req dto.AddButtonRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	cfg, err := h.manager.Configure(c.UserContext(), c.Params("guildID"), service.PanelMutation{
		AddButton: &domain.ButtonDef{
			Label:          req.Label,
			PromptTemplate: req.PromptTemplate,
			Type:           req.TicketType,
		},
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": panelConfigResponse(cfg)})
}

// RemoveButton DELETE /guilds/:guildID/panel/buttons/:label.
func (h *PanelHandler) RemoveButton(c *fiber.Ctx) error {
	label := c.Params("label")
	cfg, err := h.manager.Configure(c.UserContext(), c.Params("guildID"), service.PanelMutation{
		RemoveButtonLabel: &label,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": panelConfigResponse(cfg)})
}

// ClearButtons DELETE /guilds/:guildID/panel/buttons.
func (h *PanelHandler) ClearButtons(c *fiber.Ctx) error {
	cfg, err := h.manager.Configure(c.UserContext(), c.Params("guildID"), service.PanelMutation{
		ClearButtons: true,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": panelConfigResponse(cfg)})
}

// PublishPanel POST /guilds/:guildID/panel/publish.
func (h *PanelHandler) PublishPanel(c *fiber.Ctx) error {
	guildID := c.Params("guildID")
	records, err := h.manager.RenderPanel(c.UserContext(), guildID)
	if err != nil {
		return err
	}
	cfg, err := h.manager.Settings(c.UserContext(), guildID)
	if err != nil {
		return err
	}

	items := make([]dto.ControlResponse, 0, len(records))
	for i := range records {
		items = append(items, dto.ControlResponse{
			ControlID:  records[i].ControlID,
			Kind:       records[i].Kind,
			TicketType: records[i].TicketType,
		})
	}
	return c.JSON(fiber.Map{"data": fiber.Map{
		"panel_message": cfg.PanelMessage,
		"ui_mode":       cfg.UIMode,
		"controls":      items,
	}})
}

func panelConfigResponse(cfg *domain.PanelConfig) dto.PanelConfigResponse {
	buttons := make([]dto.ButtonResponse, 0, len(cfg.Buttons))
	for _, b := range cfg.Buttons {
		buttons = append(buttons, dto.ButtonResponse{
			Label:          b.Label,
			PromptTemplate: b.PromptTemplate,
			TicketType:     b.Type,
			Position:       b.Position,
		})
	}
	return dto.PanelConfigResponse{
		GuildID:             cfg.GuildID,
		ModRoleID:           cfg.ModRoleID,
		TranscriptChannelID: cfg.TranscriptChannelID,
		UIMode:              cfg.UIMode,
		PanelMessage:        cfg.PanelMessage,
		Buttons:             buttons,
		UpdatedAt:           cfg.UpdatedAt,
	}
}
