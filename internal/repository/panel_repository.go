package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/guildtools/ticketbot/internal/domain"
)

// PanelRepository encapsulates per-guild panel configuration persistence.
type PanelRepository interface {
	// Get returns the guild's configuration, falling back to defaults
	// when the guild was never configured.
	Get(ctx context.Context, guildID string) (*domain.PanelConfig, error)
	Upsert(ctx context.Context, cfg *domain.PanelConfig) error
	UpsertButton(ctx context.Context, guildID string, button domain.ButtonDef) error
	RemoveButton(ctx context.Context, guildID, label string) (bool, error)
	ClearButtons(ctx context.Context, guildID string) error
}

type panelRepository struct {
	db    dbtx
	retry *Retryer
}

// NewPanelRepository instantiates repository.
func NewPanelRepository(pool *pgxpool.Pool, retry *Retryer) PanelRepository {
	return &panelRepository{db: pool, retry: retry}
}

func (r *panelRepository) Get(ctx context.Context, guildID string) (*domain.PanelConfig, error) {
	const configQuery = `
        SELECT guild_id, mod_role_id, transcript_channel_id, ui_mode, panel_message, updated_at
        FROM panel_config WHERE guild_id=$1`
	const buttonsQuery = `
        SELECT label, prompt_template, ticket_type, position
        FROM button_defs WHERE guild_id=$1
        ORDER BY position, label`

	var cfg *domain.PanelConfig
	err := r.retry.Do(ctx, "panel_get", func(ctx context.Context) error {
		loaded := &domain.PanelConfig{}
		err := r.db.QueryRow(ctx, configQuery, guildID).Scan(
			&loaded.GuildID,
			&loaded.ModRoleID,
			&loaded.TranscriptChannelID,
			&loaded.UIMode,
			&loaded.PanelMessage,
			&loaded.UpdatedAt,
		)
		if err == pgx.ErrNoRows {
			loaded = domain.DefaultPanelConfig(guildID)
		} else if err != nil {
			return err
		}

		rows, err := r.db.Query(ctx, buttonsQuery, guildID)
		if err != nil {
			return err
		}
		defer rows.Close()

		loaded.Buttons = nil
		for rows.Next() {
			var b domain.ButtonDef
			if err := rows.Scan(&b.Label, &b.PromptTemplate, &b.Type, &b.Position); err != nil {
				return err
			}
			loaded.Buttons = append(loaded.Buttons, b)
		}
		if err := rows.Err(); err != nil {
			return err
		}
		cfg = loaded
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

func (r *panelRepository) Upsert(ctx context.Context, cfg *domain.PanelConfig) error {
	const query = `
        INSERT INTO panel_config (guild_id, mod_role_id, transcript_channel_id, ui_mode, panel_message, updated_at)
        VALUES ($1,$2,$3,$4,$5,NOW())
        ON CONFLICT (guild_id)
        DO UPDATE SET
            mod_role_id = EXCLUDED.mod_role_id,
            transcript_channel_id = EXCLUDED.transcript_channel_id,
            ui_mode = EXCLUDED.ui_mode,
            panel_message = EXCLUDED.panel_message,
            updated_at = NOW()`
	return r.retry.Do(ctx, "panel_upsert", func(ctx context.Context) error {
		_, err := r.db.Exec(ctx, query,
			cfg.GuildID,
			cfg.ModRoleID,
			cfg.TranscriptChannelID,
			cfg.UIMode,
			cfg.PanelMessage,
		)
		return err
	})
}

func (r *panelRepository) UpsertButton(ctx context.Context, guildID string, button domain.ButtonDef) error {
	// Labels are unique per guild; re-adding a label updates it in place.
	const query = `
        INSERT INTO button_defs (guild_id, label, prompt_template, ticket_type, position)
        VALUES ($1,$2,$3,$4,
            (SELECT COALESCE(MAX(position)+1, 0) FROM button_defs WHERE guild_id=$1))
        ON CONFLICT (guild_id, label)
        DO UPDATE SET
            prompt_template = EXCLUDED.prompt_template,
            ticket_type = EXCLUDED.ticket_type`
	return r.retry.Do(ctx, "button_upsert", func(ctx context.Context) error {
		_, err := r.db.Exec(ctx, query, guildID, button.Label, button.PromptTemplate, button.Type)
		return err
	})
}

func (r *panelRepository) RemoveButton(ctx context.Context, guildID, label string) (bool, error) {
	const query = `DELETE FROM button_defs WHERE guild_id=$1 AND label=$2`
	var removed bool
	err := r.retry.Do(ctx, "button_remove", func(ctx context.Context) error {
		cmd, err := r.db.Exec(ctx, query, guildID, label)
		if err != nil {
			return err
		}
		removed = cmd.RowsAffected() > 0
		return nil
	})
	if err != nil {
		return false, err
	}
	return removed, nil
}

func (r *panelRepository) ClearButtons(ctx context.Context, guildID string) error {
	const query = `DELETE FROM button_defs WHERE guild_id=$1`
	return r.retry.Do(ctx, "button_clear", func(ctx context.Context) error {
		_, err := r.db.Exec(ctx, query, guildID)
		return err
	})
}
