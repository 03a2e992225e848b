// Package controls implements the persistent control registry: the
// mapping from identifiers embedded in rendered UI controls to the
// context needed to handle interactions with them. Postgres is the
// source of truth; Redis is a best-effort read-through cache. Control
// identifiers are derived deterministically, so a control rendered
// before a restart still resolves afterwards.
package controls

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/crypto/blake2b"

	"github.com/guildtools/ticketbot/internal/domain"
	"github.com/guildtools/ticketbot/internal/repository"
	apperrors "github.com/guildtools/ticketbot/pkg/util"
)

const redisKeyPrefix = "control:"

// Registry resolves control identifiers across restarts.
type Registry struct {
	repo     repository.ControlRepository
	rdb      *redis.Client
	cacheTTL time.Duration
	logger   *zap.Logger
}

// NewRegistry builds a registry. rdb may be nil; the registry then
// reads straight from the store.
func NewRegistry(repo repository.ControlRepository, rdb *redis.Client, cacheTTL time.Duration, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{repo: repo, rdb: rdb, cacheTTL: cacheTTL, logger: logger}
}

// Register persists a control record and primes the cache.
func (r *Registry) Register(ctx context.Context, record *domain.ControlRecord) error {
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}
	if err := r.repo.Insert(ctx, record); err != nil {
		return err
	}
	r.cacheSet(ctx, record)
	return nil
}

// Resolve returns the record for a control identifier. An unknown
// identifier yields a STALE_CONTROL error, which callers surface to the
// user as a recoverable condition.
func (r *Registry) Resolve(ctx context.Context, controlID string) (*domain.ControlRecord, error) {
	if record := r.cacheGet(ctx, controlID); record != nil {
		return record, nil
	}

	record, err := r.repo.Get(ctx, controlID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, apperrors.NewStaleControl(controlID)
	}
	r.cacheSet(ctx, record)
	return record, nil
}

// Deregister removes a single control.
func (r *Registry) Deregister(ctx context.Context, controlID string) error {
	if err := r.repo.Delete(ctx, controlID); err != nil {
		return err
	}
	r.cacheDel(ctx, controlID)
	return nil
}

// DeregisterTicket removes every control attached to a ticket.
func (r *Registry) DeregisterTicket(ctx context.Context, ticketID string) error {
	records, err := r.repo.ListByTicket(ctx, ticketID)
	if err != nil {
		return err
	}
	if err := r.repo.DeleteByTicket(ctx, ticketID); err != nil {
		return err
	}
	for _, record := range records {
		r.cacheDel(ctx, record.ControlID)
	}
	return nil
}

func (r *Registry) cacheGet(ctx context.Context, controlID string) *domain.ControlRecord {
	if r.rdb == nil {
		return nil
	}
	payload, err := r.rdb.Get(ctx, redisKeyPrefix+controlID).Bytes()
	if err != nil {
		if err != redis.Nil {
			r.logger.Warn("control cache read failed", zap.Error(err))
		}
		return nil
	}
	var record domain.ControlRecord
	if err := json.Unmarshal(payload, &record); err != nil {
		r.logger.Warn("control cache entry corrupt", zap.String("control_id", controlID), zap.Error(err))
		return nil
	}
	return &record
}

func (r *Registry) cacheSet(ctx context.Context, record *domain.ControlRecord) {
	if r.rdb == nil {
		return
	}
	payload, err := json.Marshal(record)
	if err != nil {
		return
	}
	if err := r.rdb.Set(ctx, redisKeyPrefix+record.ControlID, payload, r.cacheTTL).Err(); err != nil {
		r.logger.Warn("control cache write failed", zap.Error(err))
	}
}

func (r *Registry) cacheDel(ctx context.Context, controlID string) {
	if r.rdb == nil {
		return
	}
	if err := r.rdb.Del(ctx, redisKeyPrefix+controlID).Err(); err != nil {
		r.logger.Warn("control cache delete failed", zap.Error(err))
	}
}

// PanelButtonControlID derives the stable identifier for a guild's
// panel button. Identical inputs always produce the same id.
func PanelButtonControlID(guildID, label string) string {
	return "ticket_" + shortHash(guildID+"|"+label)
}

// SelectMenuControlID derives the stable identifier for a guild's
// ticket select menu.
func SelectMenuControlID(guildID string) string {
	return "menu_" + shortHash(guildID)
}

// CloseButtonControlID derives the stable identifier for a ticket's
// close button.
func CloseButtonControlID(ticketID string) string {
	return "close_" + shortHash(ticketID)
}

func shortHash(input string) string {
	sum := blake2b.Sum256([]byte(input))
	return hex.EncodeToString(sum[:4])
}
