package notifications

import (
	"context"
	"log/slog"
)

// LogNotifier writes PIN deliveries to the log instead of sending them.
// The plaintext PIN is only logged when revealPIN is set, which main enables outside prod.
type LogNotifier struct {
	log       *slog.Logger
	revealPIN bool
}

func NewLogNotifier(log *slog.Logger, revealPIN bool) *LogNotifier {
	return &LogNotifier{log: log, revealPIN: revealPIN}
}

func (n *LogNotifier) SendPIN(ctx context.Context, in SendPINInput) error {
	attrs := []any{"email", in.Email, "name", in.Name}

	if n.revealPIN {
		attrs = append(attrs, "pin", in.PIN)
	}

	n.log.InfoContext(ctx, "notification.pin_issued", attrs...)
	return nil
}
