package gateway

import (
	"context"

	"go.uber.org/zap"

	"github.com/guildtools/ticketbot/internal/domain"
	"github.com/guildtools/ticketbot/internal/transcript"
)

// Noop stands in when no gateway is configured: history reads come back
// empty, transcripts are dropped with a log line, and role checks deny.
type Noop struct {
	Logger *zap.Logger
}

func (n Noop) Fetch(context.Context, string) ([]domain.Message, error) {
	return nil, nil
}

func (n Noop) Post(_ context.Context, channelID string, artifact transcript.Artifact) error {
	if n.Logger != nil {
		n.Logger.Warn("no gateway configured, transcript dropped",
			zap.String("channel_id", channelID),
			zap.String("file_name", artifact.FileName),
		)
	}
	return nil
}

func (n Noop) HasRole(context.Context, string, string, string) (bool, error) {
	return false, nil
}
