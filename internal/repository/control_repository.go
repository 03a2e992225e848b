package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/guildtools/ticketbot/internal/domain"
)

// ControlRepository persists the mapping from control identifiers to
// their interaction context.
type ControlRepository interface {
	Insert(ctx context.Context, record *domain.ControlRecord) error
	Get(ctx context.Context, controlID string) (*domain.ControlRecord, error)
	Delete(ctx context.Context, controlID string) error
	DeleteByTicket(ctx context.Context, ticketID string) error
	ListByTicket(ctx context.Context, ticketID string) ([]domain.ControlRecord, error)
}

type controlRepository struct {
	db    dbtx
	retry *Retryer
}

// NewControlRepository instantiates repository.
func NewControlRepository(pool *pgxpool.Pool, retry *Retryer) ControlRepository {
	return &controlRepository{db: pool, retry: retry}
}

func (r *controlRepository) Insert(ctx context.Context, record *domain.ControlRecord) error {
	// Control ids are deterministic, so re-rendering a panel re-registers
	// the same id; the upsert keeps that idempotent.
	const query = `
        INSERT INTO controls (control_id, kind, guild_id, ticket_id, ticket_type, created_at)
        VALUES ($1,$2,$3,$4,$5,NOW())
        ON CONFLICT (control_id)
        DO UPDATE SET
            kind = EXCLUDED.kind,
            guild_id = EXCLUDED.guild_id,
            ticket_id = EXCLUDED.ticket_id,
            ticket_type = EXCLUDED.ticket_type`
	return r.retry.Do(ctx, "control_insert", func(ctx context.Context) error {
		_, err := r.db.Exec(ctx, query,
			record.ControlID,
			record.Kind,
			record.GuildID,
			record.TicketID,
			record.TicketType,
		)
		return err
	})
}

func (r *controlRepository) Get(ctx context.Context, controlID string) (*domain.ControlRecord, error) {
	const query = `
        SELECT control_id, kind, guild_id, ticket_id, ticket_type, created_at
        FROM controls WHERE control_id=$1`
	var record domain.ControlRecord
	err := r.retry.Do(ctx, "control_get", func(ctx context.Context) error {
		return r.db.QueryRow(ctx, query, controlID).Scan(
			&record.ControlID,
			&record.Kind,
			&record.GuildID,
			&record.TicketID,
			&record.TicketType,
			&record.CreatedAt,
		)
	})
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *controlRepository) Delete(ctx context.Context, controlID string) error {
	const query = `DELETE FROM controls WHERE control_id=$1`
	return r.retry.Do(ctx, "control_delete", func(ctx context.Context) error {
		_, err := r.db.Exec(ctx, query, controlID)
		return err
	})
}

func (r *controlRepository) DeleteByTicket(ctx context.Context, ticketID string) error {
	const query = `DELETE FROM controls WHERE ticket_id=$1`
	return r.retry.Do(ctx, "control_delete_by_ticket", func(ctx context.Context) error {
		_, err := r.db.Exec(ctx, query, ticketID)
		return err
	})
}

func (r *controlRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.ControlRecord, error) {
	const query = `
        SELECT control_id, kind, guild_id, ticket_id, ticket_type, created_at
        FROM controls WHERE ticket_id=$1`
	var result []domain.ControlRecord
	err := r.retry.Do(ctx, "control_list_by_ticket", func(ctx context.Context) error {
		rows, err := r.db.Query(ctx, query, ticketID)
		if err != nil {
			return err
		}
		defer rows.Close()

		result = result[:0]
		for rows.Next() {
			var record domain.ControlRecord
			if err := rows.Scan(
				&record.ControlID,
				&record.Kind,
				&record.GuildID,
				&record.TicketID,
				&record.TicketType,
				&record.CreatedAt,
			); err != nil {
				return err
			}
			result = append(result, record)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
