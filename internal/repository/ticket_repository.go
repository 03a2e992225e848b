package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/guildtools/ticketbot/internal/domain"
)

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	FindOpenByActor(ctx context.Context, guildID, actorID string) (*domain.Ticket, error)
	// Close transitions an open ticket to closed. The bool reports
	// whether this call performed the transition; false means the
	// ticket was already closed (or gone).
	Close(ctx context.Context, id, closedBy string, reason *string, closedAt time.Time) (bool, error)
	ListOpenByGuild(ctx context.Context, guildID string, limit, offset int) ([]domain.Ticket, error)
}

type ticketRepository struct {
	db    dbtx
	retry *Retryer
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool, retry *Retryer) TicketRepository {
	return &ticketRepository{db: pool, retry: retry}
}

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	// ON CONFLICT keeps a retried insert idempotent when the first
	// attempt committed before the connection dropped.
	const query = `
        INSERT INTO tickets (id, actor_id, guild_id, channel_id, ticket_type, status, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        ON CONFLICT (id) DO NOTHING`
	return r.retry.Do(ctx, "ticket_create", func(ctx context.Context) error {
		_, err := r.db.Exec(ctx, query,
			ticket.ID,
			ticket.ActorID,
			ticket.GuildID,
			ticket.ChannelID,
			ticket.Type,
			ticket.Status,
			ticket.CreatedAt,
		)
		return err
	})
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	const query = `
        SELECT id, actor_id, guild_id, channel_id, ticket_type, status, created_at, closed_at, closed_by, close_reason
        FROM tickets WHERE id=$1`
	var ticket domain.Ticket
	err := r.retry.Do(ctx, "ticket_get", func(ctx context.Context) error {
		return r.db.QueryRow(ctx, query, id).Scan(
			&ticket.ID,
			&ticket.ActorID,
			&ticket.GuildID,
			&ticket.ChannelID,
			&ticket.Type,
			&ticket.Status,
			&ticket.CreatedAt,
			&ticket.ClosedAt,
			&ticket.ClosedBy,
			&ticket.CloseReason,
		)
	})
	if err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) FindOpenByActor(ctx context.Context, guildID, actorID string) (*domain.Ticket, error) {
	const query = `
        SELECT id, actor_id, guild_id, channel_id, ticket_type, status, created_at, closed_at, closed_by, close_reason
        FROM tickets WHERE guild_id=$1 AND actor_id=$2 AND status=$3`
	var ticket domain.Ticket
	err := r.retry.Do(ctx, "ticket_find_open", func(ctx context.Context) error {
		return r.db.QueryRow(ctx, query, guildID, actorID, domain.TicketStatusOpen).Scan(
			&ticket.ID,
			&ticket.ActorID,
			&ticket.GuildID,
			&ticket.ChannelID,
			&ticket.Type,
			&ticket.Status,
			&ticket.CreatedAt,
			&ticket.ClosedAt,
			&ticket.ClosedBy,
			&ticket.CloseReason,
		)
	})
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) Close(ctx context.Context, id, closedBy string, reason *string, closedAt time.Time) (bool, error) {
	const query = `
        UPDATE tickets SET status=$2, closed_at=$3, closed_by=$4, close_reason=$5
        WHERE id=$1 AND status=$6`
	var closed bool
	err := r.retry.Do(ctx, "ticket_close", func(ctx context.Context) error {
		cmd, err := r.db.Exec(ctx, query,
			id,
			domain.TicketStatusClosed,
			closedAt,
			closedBy,
			reason,
			domain.TicketStatusOpen,
		)
		if err != nil {
			return err
		}
		closed = cmd.RowsAffected() > 0
		return nil
	})
	if err != nil {
		return false, err
	}
	return closed, nil
}

func (r *ticketRepository) ListOpenByGuild(ctx context.Context, guildID string, limit, offset int) ([]domain.Ticket, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	const query = `
        SELECT id, actor_id, guild_id, channel_id, ticket_type, status, created_at, closed_at, closed_by, close_reason
        FROM tickets WHERE guild_id=$1 AND status=$2
        ORDER BY created_at DESC LIMIT $3 OFFSET $4`

	var result []domain.Ticket
	err := r.retry.Do(ctx, "ticket_list_open", func(ctx context.Context) error {
		rows, err := r.db.Query(ctx, query, guildID, domain.TicketStatusOpen, limit, offset)
		if err != nil {
			return err
		}
		defer rows.Close()

		result = result[:0]
		for rows.Next() {
			var ticket domain.Ticket
			if err := rows.Scan(
				&ticket.ID,
				&ticket.ActorID,
				&ticket.GuildID,
				&ticket.ChannelID,
				&ticket.Type,
				&ticket.Status,
				&ticket.CreatedAt,
				&ticket.ClosedAt,
				&ticket.ClosedBy,
				&ticket.CloseReason,
			); err != nil {
				return err
			}
			result = append(result, ticket)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
