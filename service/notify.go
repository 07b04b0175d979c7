package service

import (
	"github.com/dnldd/edge/shared"
	"github.com/rs/zerolog"
)

// LogNotifier relays notifications to the application log.
type LogNotifier struct {
	logger *zerolog.Logger
}

// Ensure the log notifier implements the NotificationSink interface.
var _ shared.NotificationSink = (*LogNotifier)(nil)

// NewLogNotifier initializes a new log notifier.
func NewLogNotifier(logger *zerolog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify relays the provided message.
func (n *LogNotifier) Notify(kind shared.NotificationKind, message string) {
	switch kind {
	case shared.ErrorNotification:
		n.logger.Error().Str("kind", kind.String()).Msg(message)
	default:
		n.logger.Info().Str("kind", kind.String()).Msg(message)
	}
}
