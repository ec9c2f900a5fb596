package services

import (
	applog "waitline/internal/log"
)

type NotificationKind string

const (
	KindConfirmation  NotificationKind = "confirmation"
	KindSpotAvailable NotificationKind = "spot_available"
)

// Notifier is the outbound mail collaborator. Sends are best-effort: queue
// state is the source of truth, so callers log send errors and move on.
type Notifier interface {
	Send(toEmail string, kind NotificationKind, payload map[string]any) error
}

// LogNotifier writes the notification as a JSON log line instead of
// delivering mail. The default wiring until a real sender is plugged in.
type LogNotifier struct{}

func (LogNotifier) Send(toEmail string, kind NotificationKind, payload map[string]any) error {
	fields := map[string]any{"to": toEmail, "kind": string(kind)}
	for k, v := range payload {
		fields[k] = v
	}
	applog.Info(nil, "notify.send", fields)
	return nil
}
