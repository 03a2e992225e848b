package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/guildtools/ticketbot/internal/cache"
	"github.com/guildtools/ticketbot/internal/controls"
	"github.com/guildtools/ticketbot/internal/domain"
	"github.com/guildtools/ticketbot/internal/events"
	"github.com/guildtools/ticketbot/internal/observability"
	"github.com/guildtools/ticketbot/internal/ratelimit"
	"github.com/guildtools/ticketbot/internal/repository"
	"github.com/guildtools/ticketbot/internal/transcript"
	apperrors "github.com/guildtools/ticketbot/pkg/util"
)

const actionTicketCreate = "ticket_create"

// HistoryFetcher retrieves a channel's message history from the chat
// platform. Implemented by the messaging glue, out of scope here.
type HistoryFetcher interface {
	Fetch(ctx context.Context, channelID string) ([]domain.Message, error)
}

// TranscriptPoster delivers a rendered transcript to a channel.
type TranscriptPoster interface {
	Post(ctx context.Context, channelID string, artifact transcript.Artifact) error
}

// RoleChecker answers whether an actor holds a role in a guild.
type RoleChecker interface {
	HasRole(ctx context.Context, guildID, actorID, roleID string) (bool, error)
}

// TicketManager coordinates the store, caches, rate limiter, control
// registry and transcript generator to run the ticket lifecycle. All
// ticket and panel mutations pass through it.
type TicketManager struct {
	tickets  repository.TicketRepository
	panels   repository.PanelRepository
	registry *controls.Registry
	limiter  *ratelimit.Limiter

	configCache *cache.Cache[string, *domain.PanelConfig]
	lookupCache *cache.Cache[string, string]

	transcripts *transcript.Generator
	history     HistoryFetcher
	poster      TranscriptPoster
	roles       RoleChecker
	dispatcher  events.Dispatcher
	metrics     *observability.Metrics
	logger      *zap.Logger

	window    time.Duration
	configTTL time.Duration
	lookupTTL time.Duration

	locks ticketLocks
	now   func() time.Time
}

// ManagerDependencies bundles collaborators for the ticket manager.
type ManagerDependencies struct {
	TicketRepo  repository.TicketRepository
	PanelRepo   repository.PanelRepository
	Registry    *controls.Registry
	Limiter     *ratelimit.Limiter
	ConfigCache *cache.Cache[string, *domain.PanelConfig]
	LookupCache *cache.Cache[string, string]
	Transcripts *transcript.Generator
	History     HistoryFetcher
	Poster      TranscriptPoster
	Roles       RoleChecker
	Dispatcher  events.Dispatcher
	Metrics     *observability.Metrics
	Logger      *zap.Logger

	RateLimitWindow time.Duration
	ConfigCacheTTL  time.Duration
	LookupCacheTTL  time.Duration
}

// NewTicketManager constructs the manager.
func NewTicketManager(deps ManagerDependencies) *TicketManager {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.RateLimitWindow <= 0 {
		deps.RateLimitWindow = 5 * time.Minute
	}
	if deps.ConfigCacheTTL <= 0 {
		deps.ConfigCacheTTL = 5 * time.Minute
	}
	if deps.LookupCacheTTL <= 0 {
		deps.LookupCacheTTL = time.Minute
	}
	return &TicketManager{
		tickets:     deps.TicketRepo,
		panels:      deps.PanelRepo,
		registry:    deps.Registry,
		limiter:     deps.Limiter,
		configCache: deps.ConfigCache,
		lookupCache: deps.LookupCache,
		transcripts: deps.Transcripts,
		history:     deps.History,
		poster:      deps.Poster,
		roles:       deps.Roles,
		dispatcher:  deps.Dispatcher,
		metrics:     deps.Metrics,
		logger:      logger,
		window:      deps.RateLimitWindow,
		configTTL:   deps.ConfigCacheTTL,
		lookupTTL:   deps.LookupCacheTTL,
		locks:       ticketLocks{held: make(map[string]*ticketLock)},
		now:         time.Now,
	}
}

// CreateTicket opens a new ticket for an actor. The rate-limit check
// runs first and a consumed slot is not refunded when a later step
// fails; a failed creation still counts against the cool-down.
func (m *TicketManager) CreateTicket(ctx context.Context, actorID, guildID, channelID, ticketType string) (*domain.Ticket, error) {
	rateKey := guildID + ":" + actorID
	allowed, wait := m.limiter.Allow(rateKey, actionTicketCreate, m.window)
	if !allowed {
		m.metrics.RecordOp(observability.OpRateLimited)
		return nil, apperrors.NewRateLimited(wait)
	}

	cfg, err := m.panelConfig(ctx, guildID)
	if err != nil {
		return nil, err
	}
	if _, ok := cfg.ButtonForType(ticketType); !ok {
		return nil, apperrors.NewValidationError("unknown ticket type", map[string]any{
			"field":       "ticket_type",
			"ticket_type": ticketType,
		})
	}

	if existingID, ok := m.lookupCache.Get(openTicketKey(guildID, actorID)); ok {
		return nil, apperrors.NewConflict("ticket already open", map[string]any{"ticket_id": existingID})
	}
	existing, err := m.tickets.FindOpenByActor(ctx, guildID, actorID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		m.lookupCache.Set(openTicketKey(guildID, actorID), existing.ID, m.lookupTTL)
		return nil, apperrors.NewConflict("ticket already open", map[string]any{"ticket_id": existing.ID})
	}

	ticket := &domain.Ticket{
		ID:        uuid.NewString(),
		ActorID:   actorID,
		GuildID:   guildID,
		ChannelID: channelID,
		Type:      ticketType,
		Status:    domain.TicketStatusOpen,
		CreatedAt: m.now().UTC(),
	}
	if err := m.tickets.Create(ctx, ticket); err != nil {
		if isUniqueViolation(err) {
			return nil, apperrors.NewConflict("ticket already open", nil)
		}
		return nil, err
	}
	m.lookupCache.Set(openTicketKey(guildID, actorID), ticket.ID, m.lookupTTL)

	record := &domain.ControlRecord{
		ControlID: controls.CloseButtonControlID(ticket.ID),
		Kind:      domain.ControlKindCloseButton,
		GuildID:   guildID,
		TicketID:  &ticket.ID,
	}
	if err := m.registry.Register(ctx, record); err != nil {
		// The ticket row exists; a missing control record only degrades
		// the close button until the next interaction re-registers it.
		m.logger.Warn("control registration failed",
			zap.String("ticket_id", ticket.ID),
			zap.Error(err),
		)
	}

	m.metrics.RecordOp(observability.OpTicketCreated)
	m.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		GuildID:  guildID,
		TicketID: ticket.ID,
		ActorID:  actorID,
		Payload: events.TicketCreatedPayload{
			ChannelID:  channelID,
			TicketType: ticketType,
		},
	})
	return ticket, nil
}

// CloseTicket transitions an open ticket to closed and returns the
// rendered transcript. Closing is not retried automatically; on a
// mid-close failure the ticket stays open and the caller may retry.
func (m *TicketManager) CloseTicket(ctx context.Context, ticketID, actorID string, reason *string) (*transcript.Artifact, error) {
	unlock := m.locks.lock(ticketID)
	defer unlock()

	ticket, err := m.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, err
	}
	if !ticket.IsOpen() {
		return nil, apperrors.NewInvalidState(string(ticket.Status))
	}

	cfg, err := m.panelConfig(ctx, ticket.GuildID)
	if err != nil {
		return nil, err
	}
	if err := m.authorizeClose(ctx, ticket, cfg, actorID); err != nil {
		return nil, err
	}

	messages, err := m.history.Fetch(ctx, ticket.ChannelID)
	if err != nil {
		return nil, err
	}

	closedAt := m.now().UTC()
	artifact := m.transcripts.Render(transcript.Header{
		TicketID:    ticket.ID,
		ChannelName: ticket.ChannelID,
		GuildName:   ticket.GuildID,
		GeneratedAt: closedAt,
	}, messages)

	closed, err := m.tickets.Close(ctx, ticket.ID, actorID, reason, closedAt)
	if err != nil {
		return nil, err
	}
	if !closed {
		return nil, apperrors.NewInvalidState(string(domain.TicketStatusClosed))
	}

	m.lookupCache.Invalidate(openTicketKey(ticket.GuildID, ticket.ActorID))
	if err := m.registry.DeregisterTicket(ctx, ticket.ID); err != nil {
		m.logger.Warn("control deregistration failed",
			zap.String("ticket_id", ticket.ID),
			zap.Error(err),
		)
	}

	if cfg.TranscriptChannelID != nil {
		if err := m.poster.Post(ctx, *cfg.TranscriptChannelID, artifact); err != nil {
			m.logger.Warn("transcript post failed",
				zap.String("ticket_id", ticket.ID),
				zap.String("channel_id", *cfg.TranscriptChannelID),
				zap.Error(err),
			)
		}
	}

	m.metrics.RecordOp(observability.OpTicketClosed)
	m.publishEvent(ctx, events.Event{
		Type:     events.EventTicketClosed,
		GuildID:  ticket.GuildID,
		TicketID: ticket.ID,
		ActorID:  actorID,
		Payload: events.TicketClosedPayload{
			ClosedBy:     actorID,
			Reason:       reason,
			MessageCount: artifact.MessageCount,
		},
	})
	return &artifact, nil
}

// PanelMutation describes one validated change to a guild's panel
// configuration. Nil fields are left untouched.
type PanelMutation struct {
	ModRoleID           *string
	TranscriptChannelID *string
	UIMode              *domain.UIMode
	PanelMessage        *string
	AddButton           *domain.ButtonDef
	RemoveButtonLabel   *string
	ClearButtons        bool
}

// Configure applies a mutation to the guild's panel configuration. The
// store write lands first and the cached copy is invalidated after, so
// the next read is consistent.
func (m *TicketManager) Configure(ctx context.Context, guildID string, mutation PanelMutation) (*domain.PanelConfig, error) {
	if err := validateMutation(mutation); err != nil {
		return nil, err
	}

	cfg, err := m.panels.Get(ctx, guildID)
	if err != nil {
		return nil, err
	}
	if mutation.ModRoleID != nil {
		cfg.ModRoleID = mutation.ModRoleID
	}
	if mutation.TranscriptChannelID != nil {
		cfg.TranscriptChannelID = mutation.TranscriptChannelID
	}
	if mutation.UIMode != nil {
		cfg.UIMode = *mutation.UIMode
	}
	if mutation.PanelMessage != nil {
		cfg.PanelMessage = *mutation.PanelMessage
	}

	if err := m.panels.Upsert(ctx, cfg); err != nil {
		return nil, err
	}
	if mutation.AddButton != nil {
		if err := m.panels.UpsertButton(ctx, guildID, *mutation.AddButton); err != nil {
			return nil, err
		}
	}
	if mutation.RemoveButtonLabel != nil {
		removed, err := m.panels.RemoveButton(ctx, guildID, *mutation.RemoveButtonLabel)
		if err != nil {
			return nil, err
		}
		if !removed {
			return nil, apperrors.NewNotFound("button", map[string]any{"label": *mutation.RemoveButtonLabel})
		}
	}
	if mutation.ClearButtons {
		if err := m.panels.ClearButtons(ctx, guildID); err != nil {
			return nil, err
		}
	}

	m.configCache.Invalidate(guildID)

	fresh, err := m.panelConfig(ctx, guildID)
	if err != nil {
		return nil, err
	}

	m.metrics.RecordOp(observability.OpPanelMutation)
	m.publishEvent(ctx, events.Event{
		Type:    events.EventPanelUpdated,
		GuildID: guildID,
		Payload: events.PanelUpdatedPayload{
			UIMode:      fresh.UIMode,
			ButtonCount: len(fresh.Buttons),
		},
	})
	return fresh, nil
}

// Settings returns the guild's panel configuration through the cache.
func (m *TicketManager) Settings(ctx context.Context, guildID string) (*domain.PanelConfig, error) {
	return m.panelConfig(ctx, guildID)
}

// GetTicket fetches a single ticket.
func (m *TicketManager) GetTicket(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	ticket, err := m.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, err
	}
	return ticket, nil
}

// ListOpenTickets pages through a guild's open tickets.
func (m *TicketManager) ListOpenTickets(ctx context.Context, guildID string, limit, offset int) ([]domain.Ticket, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return m.tickets.ListOpenByGuild(ctx, guildID, limit, offset)
}

// RenderPanel registers the guild's panel controls and returns them so
// the UI layer can embed the identifiers in what it renders.
func (m *TicketManager) RenderPanel(ctx context.Context, guildID string) ([]domain.ControlRecord, error) {
	cfg, err := m.panelConfig(ctx, guildID)
	if err != nil {
		return nil, err
	}
	if len(cfg.Buttons) == 0 {
		return nil, apperrors.NewValidationError("no buttons configured", map[string]any{"field": "buttons"})
	}

	var records []domain.ControlRecord
	if cfg.UIMode == domain.UIModeMenu {
		records = append(records, domain.ControlRecord{
			ControlID: controls.SelectMenuControlID(guildID),
			Kind:      domain.ControlKindSelectMenu,
			GuildID:   guildID,
		})
	} else {
		for i := range cfg.Buttons {
			button := cfg.Buttons[i]
			records = append(records, domain.ControlRecord{
				ControlID:  controls.PanelButtonControlID(guildID, button.Label),
				Kind:       domain.ControlKindCreateButton,
				GuildID:    guildID,
				TicketType: &button.Type,
			})
		}
	}

	for i := range records {
		if err := m.registry.Register(ctx, &records[i]); err != nil {
			return nil, err
		}
	}
	return records, nil
}

// Sweep purges expired cache entries and stale rate-limit windows.
func (m *TicketManager) Sweep() {
	expired := m.configCache.Sweep() + m.lookupCache.Sweep()
	windows := m.limiter.Sweep()
	if expired > 0 || windows > 0 {
		m.logger.Debug("sweeper pass",
			zap.Int("expired_cache_entries", expired),
			zap.Int("stale_rate_windows", windows),
		)
	}
}

// Shutdown clears disposable process-wide state. The store remains the
// source of truth, so nothing is persisted here.
func (m *TicketManager) Shutdown() {
	m.configCache.Clear()
	m.lookupCache.Clear()
	m.limiter.Clear()
}

func (m *TicketManager) authorizeClose(ctx context.Context, ticket *domain.Ticket, cfg *domain.PanelConfig, actorID string) error {
	if actorID == ticket.ActorID {
		return nil
	}
	if cfg.ModRoleID != nil {
		isMod, err := m.roles.HasRole(ctx, ticket.GuildID, actorID, *cfg.ModRoleID)
		if err != nil {
			return err
		}
		if isMod {
			return nil
		}
	}
	return apperrors.NewPermissionDenied("only the ticket owner or a moderator may close a ticket")
}

// panelConfig reads configuration through the cache. When the store is
// unavailable and an expired copy is still held, the expired copy is
// served and the degraded read is logged.
func (m *TicketManager) panelConfig(ctx context.Context, guildID string) (*domain.PanelConfig, error) {
	if cfg, ok := m.configCache.Get(guildID); ok {
		return cfg, nil
	}

	cfg, err := m.panels.Get(ctx, guildID)
	if err != nil {
		if apperrors.HasCode(err, apperrors.CodeStoreUnavailable) {
			if stale, ok, _ := m.configCache.GetStale(guildID); ok {
				m.metrics.RecordOp(observability.OpDegradedRead)
				m.logger.Warn("serving expired panel config, store unavailable",
					zap.String("guild_id", guildID),
				)
				return stale, nil
			}
		}
		return nil, err
	}

	m.configCache.Set(guildID, cfg, m.configTTL)
	return cfg, nil
}

func (m *TicketManager) publishEvent(ctx context.Context, event events.Event) {
	if m.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = m.now().UTC()
	}
	_ = m.dispatcher.Publish(ctx, event)
}

func validateMutation(mutation PanelMutation) error {
	if mutation.UIMode != nil {
		switch *mutation.UIMode {
		case domain.UIModeButtons, domain.UIModeMenu:
		default:
			return apperrors.NewValidationError("invalid ui mode", map[string]any{"field": "ui_mode"})
		}
	}
	if mutation.AddButton != nil {
		button := mutation.AddButton
		if strings.TrimSpace(button.Label) == "" {
			return apperrors.NewValidationError("button label required", map[string]any{"field": "label"})
		}
		if strings.TrimSpace(button.Type) == "" {
			return apperrors.NewValidationError("button ticket type required", map[string]any{"field": "ticket_type"})
		}
		if strings.TrimSpace(button.PromptTemplate) == "" {
			return apperrors.NewValidationError("button prompt required", map[string]any{"field": "prompt_template"})
		}
	}
	return nil
}

func openTicketKey(guildID, actorID string) string {
	return "open:" + guildID + ":" + actorID
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// ticketLocks serializes lifecycle operations per ticket id. Entries
// are reference counted and removed once no caller holds or waits on
// them.
type ticketLocks struct {
	mu   sync.Mutex
	held map[string]*ticketLock
}

type ticketLock struct {
	mu   sync.Mutex
	refs int
}

func (l *ticketLocks) lock(id string) func() {
	l.mu.Lock()
	entry, ok := l.held[id]
	if !ok {
		entry = &ticketLock{}
		l.held[id] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()
		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.held, id)
		}
		l.mu.Unlock()
	}
}
